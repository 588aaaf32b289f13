package stock

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/ledger"
	"warehouse.GO/service/sequence"
)

// Posting is one ledger movement to record inside an open transaction.
type Posting struct {
	Type       string
	ItemID     uint
	SiteID     uint
	EmployeeID *uint
	Quantity   int
	Remark     string
	// At is the persistence time; it dates the identifier.
	At time.Time
	// Timestamp overrides the movement time recorded on the row.
	Timestamp *time.Time
	// Scope is a site code to embed in the identifier (transfers).
	Scope         string
	TransferGroup *string
	TransferRef   *uint
	CreatedBy     *uint
}

func validType(t string) bool { return t == entity.TxnIssue || t == entity.TxnReturn }

func (p Posting) validate() error {
	if !validType(p.Type) {
		return apperr.Validationf("type", "type must be %s or %s", entity.TxnIssue, entity.TxnReturn)
	}
	if p.ItemID == 0 {
		return apperr.Required("itemId")
	}
	if p.SiteID == 0 {
		return apperr.Required("siteId")
	}
	if p.Quantity <= 0 {
		return apperr.Validationf("quantity", "quantity must be greater than 0")
	}
	return nil
}

// Post validates references, enforces sufficiency for ISSUE, allocates the
// identifier and inserts the row, then refreshes the item's stored stock.
// The caller owns tx and must retry the whole unit on duplicate identifiers.
func Post(tx *gorm.DB, p Posting) (*entity.Transaction, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := checkRefs(tx, p.SiteID, p.EmployeeID); err != nil {
		return nil, err
	}
	item, err := ledger.Lock(tx, p.ItemID)
	if err != nil {
		return nil, err
	}
	if p.Type == entity.TxnIssue {
		b, err := ledger.Compute(tx, p.ItemID)
		if err != nil {
			return nil, err
		}
		if b.Current < p.Quantity {
			return nil, apperr.Insufficient(item.Name, b.Current, p.Quantity)
		}
	}

	id, err := sequence.NextID(tx, "transactions", "transaction_id", sequence.Transaction, p.At, p.Scope)
	if err != nil {
		return nil, err
	}
	ts := p.At
	if p.Timestamp != nil && !p.Timestamp.IsZero() {
		ts = *p.Timestamp
	}
	txn := &entity.Transaction{
		TransactionID: id,
		Type:          p.Type,
		ItemID:        p.ItemID,
		SiteID:        p.SiteID,
		EmployeeID:    p.EmployeeID,
		Quantity:      p.Quantity,
		Timestamp:     ts,
		Remark:        p.Remark,
		TransferGroup: p.TransferGroup,
		TransferRef:   p.TransferRef,
		CreatedBy:     p.CreatedBy,
	}
	if err := tx.Omit("Item", "Site", "Employee").Create(txn).Error; err != nil {
		return nil, fmt.Errorf("insert transaction %s: %w", id, err)
	}
	if err := ledger.Refresh(tx, p.ItemID); err != nil {
		return nil, err
	}
	return txn, nil
}

func checkRefs(tx *gorm.DB, siteID uint, employeeID *uint) error {
	var n int64
	if err := tx.Model(&entity.Site{}).Where("id = ?", siteID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFoundf("site", siteID)
	}
	if employeeID != nil && *employeeID != 0 {
		if err := tx.Model(&entity.Employee{}).Where("id = ?", *employeeID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFoundf("employee", *employeeID)
		}
	}
	return nil
}
