// Package sequence allocates the human-readable, date-scoped identifiers used
// for transactions, deliveries, transfers and office-asset movements, e.g.
// TXN-25122024-0007 or TXN-25122024-DXB1-0003.
package sequence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Kind struct {
	Prefix     string
	DateLayout string
	Width      int
}

var (
	Transaction      = Kind{Prefix: "TXN", DateLayout: "02012006", Width: 4}
	Delivery         = Kind{Prefix: "DEL", DateLayout: "02012006", Width: 4}
	Transfer         = Kind{Prefix: "TRF", DateLayout: "02012006", Width: 4}
	AssetTransaction = Kind{Prefix: "OTXN", DateLayout: "020106", Width: 3}
)

// Scope is the site code as embedded in an identifier: stored codes are
// used verbatim, only surrounding blanks are dropped.
func Scope(code string) string {
	return strings.TrimSpace(code)
}

func (k Kind) DateKey(t time.Time) string {
	return t.Format(k.DateLayout)
}

// Stem is everything before the sequence number.
func (k Kind) Stem(dateKey, scope string) string {
	if scope = Scope(scope); scope != "" {
		return k.Prefix + "-" + dateKey + "-" + scope + "-"
	}
	return k.Prefix + "-" + dateKey + "-"
}

func (k Kind) Format(dateKey, scope string, seq int) string {
	return fmt.Sprintf("%s%0*d", k.Stem(dateKey, scope), k.Width, seq)
}

// Next returns the identifier following the numerically greatest sequence
// among existing for the same stem. Identifiers with a different stem
// (another day or scope) are ignored.
func (k Kind) Next(existing []string, dateKey, scope string) string {
	stem := k.Stem(dateKey, scope)
	max := 0
	for _, id := range existing {
		rest, ok := strings.CutPrefix(id, stem)
		if !ok || rest == "" {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 || strings.ContainsAny(rest, "+-") {
			continue
		}
		if n > max {
			max = n
		}
	}
	return k.Format(dateKey, scope, max+1)
}

// NextID reads the identifiers already issued for the stem from table.column
// and returns the next one. Run it inside the transaction that inserts the
// row, wrapped in WithRetry.
func NextID(tx *gorm.DB, table, column string, k Kind, at time.Time, scope string) (string, error) {
	dateKey := k.DateKey(at)
	var existing []string
	err := tx.Table(table).
		Where(column+" LIKE ?", k.Stem(dateKey, scope)+"%").
		Pluck(column, &existing).Error
	if err != nil {
		return "", fmt.Errorf("scan %s.%s: %w", table, column, err)
	}
	return k.Next(existing, dateKey, scope), nil
}
