package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type Delivery struct {
	ID            uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DeliveryID    string          `gorm:"column:delivery_id;type:varchar(64);not null;uniqueIndex" json:"deliveryId"`
	Seller        string          `gorm:"column:seller;type:varchar(255);not null" json:"seller"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(14,2)" json:"amount"`
	Currency      string          `gorm:"column:currency;type:varchar(8)" json:"currency,omitempty"`
	InvoiceNumber string          `gorm:"column:invoice_number;type:varchar(64)" json:"invoiceNumber,omitempty"`
	Invoice       string          `gorm:"column:invoice;type:text" json:"invoice,omitempty"`
	DeliveredAt   time.Time       `gorm:"column:delivered_at;not null;index" json:"deliveredAt"`
	Remark        string          `gorm:"column:remark;type:varchar(255)" json:"remark,omitempty"`
	CreatedBy     *uint           `gorm:"column:created_by" json:"createdBy,omitempty"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Items []DeliveryItem `gorm:"foreignKey:DeliveryRef" json:"items"`
}

func (Delivery) TableName() string {
	return "deliveries"
}

// DeliveryItem is one received line; its quantity counts toward the item's stock.
type DeliveryItem struct {
	ID          uint `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DeliveryRef uint `gorm:"column:delivery_ref;not null;index" json:"deliveryRef"`
	ItemID      uint `gorm:"column:item_id;not null;index" json:"itemId"`
	Quantity    int  `gorm:"column:quantity;not null" json:"quantity"`

	Item *InventoryItem `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

func (DeliveryItem) TableName() string {
	return "delivery_items"
}
