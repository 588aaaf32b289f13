package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InventoryItem is a warehouse stock-keeping unit. InitialStock is the
// immutable baseline; CurrentStock is a denormalised copy of the derived
// ledger value, rewritten inside every transaction that touches the item.
type InventoryItem struct {
	ID           uint              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SKU          string            `gorm:"column:sku;type:varchar(64);not null;uniqueIndex" json:"sku"`
	Name         string            `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Category     string            `gorm:"column:category;type:varchar(128);index" json:"category"`
	Description  string            `gorm:"column:description;type:text" json:"description,omitempty"`
	Unit         string            `gorm:"column:unit;type:varchar(32)" json:"unit,omitempty"`
	InitialStock int               `gorm:"column:initial_stock;not null;default:0" json:"initialStock"`
	CurrentStock int               `gorm:"column:current_stock;not null;default:0" json:"currentStock"`
	ReorderLevel int               `gorm:"column:reorder_level;not null;default:0" json:"reorderLevel"`
	UnitCost     decimal.Decimal   `gorm:"column:unit_cost;type:decimal(12,2)" json:"unitCost"`
	Currency     string            `gorm:"column:currency;type:varchar(8)" json:"currency,omitempty"`
	Attributes   datatypes.JSONMap `gorm:"column:attributes" json:"attributes,omitempty"`
	Image        string            `gorm:"column:image;type:text" json:"image,omitempty"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (InventoryItem) TableName() string {
	return "inventory_items"
}

// LowStock reports whether the cached stock is at or under the reorder level.
func (i InventoryItem) LowStock() bool {
	return i.ReorderLevel > 0 && i.CurrentStock <= i.ReorderLevel
}
