// Package ledger derives an inventory item's effective stock from its
// history:
//
//	current = initial + delivered - issued + returned - assigned
//
// Every figure is an indexed aggregate over the item's own rows; nothing here
// trusts the denormalised current_stock column.
package ledger

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"warehouse.GO/core/apperr"
	"warehouse.GO/model/entity"
)

type Breakdown struct {
	ItemID    uint `json:"itemId"`
	Initial   int  `json:"initialStock"`
	Delivered int  `json:"delivered"`
	Issued    int  `json:"issued"`
	Returned  int  `json:"returned"`
	Assigned  int  `json:"assigned"`
	Current   int  `json:"currentStock"`
}

func (b *Breakdown) total() {
	b.Current = b.Initial + b.Delivered - b.Issued + b.Returned - b.Assigned
}

type sumRow struct {
	ItemID uint
	Type   string
	Total  int
}

// Compute returns the breakdown for one item. The result may be negative
// when historical data is inconsistent.
func Compute(tx *gorm.DB, itemID uint) (*Breakdown, error) {
	var item entity.InventoryItem
	if err := tx.Select("id", "initial_stock").First(&item, itemID).Error; err != nil {
		return nil, apperr.FromGorm(err, "inventory item", itemID)
	}
	out, err := aggregate(tx, []uint{itemID}, map[uint]int{item.ID: item.InitialStock})
	if err != nil {
		return nil, err
	}
	return out[itemID], nil
}

// ComputeMany returns breakdowns keyed by item id. A nil ids slice means
// every item.
func ComputeMany(tx *gorm.DB, ids []uint) (map[uint]*Breakdown, error) {
	var items []entity.InventoryItem
	q := tx.Select("id", "initial_stock")
	if ids != nil {
		if len(ids) == 0 {
			return map[uint]*Breakdown{}, nil
		}
		q = q.Where("id IN ?", ids)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	initial := make(map[uint]int, len(items))
	found := make([]uint, 0, len(items))
	for _, it := range items {
		initial[it.ID] = it.InitialStock
		found = append(found, it.ID)
	}
	if len(found) == 0 {
		return map[uint]*Breakdown{}, nil
	}
	return aggregate(tx, found, initial)
}

func aggregate(tx *gorm.DB, ids []uint, initial map[uint]int) (map[uint]*Breakdown, error) {
	out := make(map[uint]*Breakdown, len(ids))
	for _, id := range ids {
		out[id] = &Breakdown{ItemID: id, Initial: initial[id]}
	}

	var delivered []sumRow
	if err := tx.Model(&entity.DeliveryItem{}).
		Select("item_id, COALESCE(SUM(quantity), 0) AS total").
		Where("item_id IN ?", ids).
		Group("item_id").
		Scan(&delivered).Error; err != nil {
		return nil, fmt.Errorf("sum deliveries: %w", err)
	}
	for _, r := range delivered {
		out[r.ItemID].Delivered = r.Total
	}

	var moved []sumRow
	if err := tx.Model(&entity.Transaction{}).
		Select("item_id, type, COALESCE(SUM(quantity), 0) AS total").
		Where("item_id IN ?", ids).
		Group("item_id, type").
		Scan(&moved).Error; err != nil {
		return nil, fmt.Errorf("sum transactions: %w", err)
	}
	for _, r := range moved {
		switch r.Type {
		case entity.TxnIssue:
			out[r.ItemID].Issued = r.Total
		case entity.TxnReturn:
			out[r.ItemID].Returned = r.Total
		}
	}

	var assigned []sumRow
	if err := tx.Model(&entity.EmployeeAsset{}).
		Select("item_id, COALESCE(SUM(quantity), 0) AS total").
		Where("item_id IN ?", ids).
		Group("item_id").
		Scan(&assigned).Error; err != nil {
		return nil, fmt.Errorf("sum assignments: %w", err)
	}
	for _, r := range assigned {
		out[r.ItemID].Assigned = r.Total
	}

	for _, b := range out {
		b.total()
	}
	return out, nil
}

// Lock loads the item and, on engines that support it, holds a row lock for
// the rest of tx. Every write that can lower an item's stock takes this lock
// before checking sufficiency, which serializes competing issues.
func Lock(tx *gorm.DB, itemID uint) (*entity.InventoryItem, error) {
	var item entity.InventoryItem
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&item, itemID).Error; err != nil {
		return nil, apperr.FromGorm(err, "inventory item", itemID)
	}
	return &item, nil
}

// Refresh recomputes and stores current_stock for ids inside tx.
func Refresh(tx *gorm.DB, ids ...uint) error {
	ids = Unique(ids)
	if len(ids) == 0 {
		return nil
	}
	all, err := ComputeMany(tx, ids)
	if err != nil {
		return err
	}
	for id, b := range all {
		if err := tx.Model(&entity.InventoryItem{}).
			Where("id = ?", id).
			UpdateColumn("current_stock", b.Current).Error; err != nil {
			return fmt.Errorf("refresh stock of item %d: %w", id, err)
		}
	}
	return nil
}

// Unique drops zero and repeated ids, preserving order.
func Unique(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
