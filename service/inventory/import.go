package inventory

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"warehouse.GO/model/entity"
)

// ImportOptions configures a CSV import run.
type ImportOptions struct {
	BatchSize int
}

// ImportResult holds counters and timing from an import run.
type ImportResult struct {
	TotalRows int           `json:"totalRows"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Warnings  []string      `json:"warnings"`
	TotalTime time.Duration `json:"totalTimeNs"`
}

// importRow is one CSV line. Column names match the JSON field names.
type importRow struct {
	SKU          string `mapstructure:"sku"`
	Name         string `mapstructure:"name"`
	Category     string `mapstructure:"category"`
	Description  string `mapstructure:"description"`
	Unit         string `mapstructure:"unit"`
	InitialStock int    `mapstructure:"initialStock"`
	ReorderLevel int    `mapstructure:"reorderLevel"`
	UnitCost     string `mapstructure:"unitCost"`
	Currency     string `mapstructure:"currency"`
}

var knownColumns = map[string]bool{
	"sku": true, "name": true, "category": true, "description": true, "unit": true,
	"initialStock": true, "reorderLevel": true, "unitCost": true, "currency": true,
}

func decodeRow(rec map[string]interface{}) (importRow, error) {
	var row importRow
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &row,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return row, err
	}
	// blank numeric cells decode as zero
	for k, v := range rec {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			delete(rec, k)
		}
	}
	err = dec.Decode(rec)
	return row, err
}

// Import upserts items by SKU from CSV. Existing items keep their initial
// stock; every other column is overwritten.
func (s *Service) Import(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	start := time.Now()
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	hasSKU := false
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
		if headers[i] == "sku" {
			hasSKU = true
		}
	}
	if !hasSKU {
		return nil, fmt.Errorf("CSV must contain a 'sku' column")
	}

	res := &ImportResult{}
	for _, h := range headers {
		if !knownColumns[h] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("column %q: unknown, skipping", h))
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV rows: %w", err)
	}
	res.TotalRows = len(rows)

	bySKU := make(map[string]*entity.InventoryItem, len(rows))
	var order []string
	for n, cells := range rows {
		rec := make(map[string]interface{}, len(headers))
		for i, h := range headers {
			if i < len(cells) && knownColumns[h] {
				rec[h] = strings.TrimSpace(cells[i])
			}
		}
		row, err := decodeRow(rec)
		line := n + 2
		if err != nil {
			res.Skipped++
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if row.SKU == "" || row.Name == "" {
			res.Skipped++
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: sku and name are required", line))
			continue
		}
		if row.InitialStock < 0 {
			res.Skipped++
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: negative initialStock", line))
			continue
		}
		cost := decimal.Zero
		if row.UnitCost != "" {
			if cost, err = decimal.NewFromString(row.UnitCost); err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: unitCost %q ignored", line, row.UnitCost))
				cost = decimal.Zero
			}
		}
		if _, dup := bySKU[row.SKU]; !dup {
			order = append(order, row.SKU)
		}
		bySKU[row.SKU] = &entity.InventoryItem{
			SKU: row.SKU, Name: row.Name, Category: row.Category, Description: row.Description,
			Unit: row.Unit, InitialStock: row.InitialStock, CurrentStock: row.InitialStock,
			ReorderLevel: row.ReorderLevel, UnitCost: cost, Currency: row.Currency,
		}
	}

	db := s.db.WithContext(ctx)
	var existing []string
	for i := 0; i < len(order); i += opts.BatchSize {
		end := i + opts.BatchSize
		if end > len(order) {
			end = len(order)
		}
		var found []string
		if err := db.Model(&entity.InventoryItem{}).Where("sku IN ?", order[i:end]).Pluck("sku", &found).Error; err != nil {
			return nil, err
		}
		existing = append(existing, found...)
	}
	res.Updated = len(existing)
	res.Created = len(order) - len(existing)

	items := make([]*entity.InventoryItem, 0, len(order))
	for _, sku := range order {
		items = append(items, bySKU[sku])
	}
	if len(items) > 0 {
		err = db.Transaction(func(tx *gorm.DB) error {
			return tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "sku"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "category", "description", "unit", "reorder_level", "unit_cost", "currency", "updated_at",
				}),
			}).CreateInBatches(items, opts.BatchSize).Error
		})
		if err != nil {
			return nil, fmt.Errorf("upsert items: %w", err)
		}
	}
	res.TotalTime = time.Since(start)
	return res, nil
}
