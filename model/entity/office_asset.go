package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OfficeAsset is company equipment (laptops, furniture). Unlike warehouse
// items its CurrentStock is the source of truth and is adjusted in place.
type OfficeAsset struct {
	ID           uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SKU          string          `gorm:"column:sku;type:varchar(64);not null;uniqueIndex" json:"sku"`
	Name         string          `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Category     string          `gorm:"column:category;type:varchar(128);index" json:"category,omitempty"`
	Brand        string          `gorm:"column:brand;type:varchar(128)" json:"brand,omitempty"`
	Model        string          `gorm:"column:model;type:varchar(128)" json:"model,omitempty"`
	SerialNumber string          `gorm:"column:serial_number;type:varchar(128)" json:"serialNumber,omitempty"`
	TotalStock   int             `gorm:"column:total_stock;not null" json:"totalStock"`
	CurrentStock int             `gorm:"column:current_stock;not null" json:"currentStock"`
	Price        decimal.Decimal `gorm:"column:price;type:decimal(12,2)" json:"price"`
	PurchaseDate *time.Time      `gorm:"column:purchase_date" json:"purchaseDate,omitempty"`
	Location     string          `gorm:"column:location;type:varchar(255)" json:"location,omitempty"`
	Image        string          `gorm:"column:image;type:text" json:"image,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (OfficeAsset) TableName() string {
	return "office_assets"
}

const (
	AssetTxnAssign   = "ASSIGN"
	AssetTxnActive   = "ACTIVE"
	AssetTxnReturned = "RETURNED"
)

type AssetTransaction struct {
	ID              uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TransactionID   string     `gorm:"column:transaction_id;type:varchar(64);not null;uniqueIndex" json:"transactionId"`
	AssetID         uint       `gorm:"column:asset_id;not null;index" json:"assetId"`
	EmployeeID      uint       `gorm:"column:employee_id;not null;index" json:"employeeId"`
	Type            string     `gorm:"column:type;type:varchar(16);not null" json:"type"`
	Quantity        int        `gorm:"column:quantity;not null" json:"quantity"`
	Status          string     `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	Condition       string     `gorm:"column:item_condition;type:varchar(16)" json:"condition,omitempty"`
	ReturnCondition string     `gorm:"column:return_condition;type:varchar(16)" json:"returnCondition,omitempty"`
	Remarks         string     `gorm:"column:remarks;type:varchar(255)" json:"remarks,omitempty"`
	AssignedAt      time.Time  `gorm:"column:assigned_at;not null" json:"assignedAt"`
	ReturnedAt      *time.Time `gorm:"column:returned_at" json:"returnedAt,omitempty"`
	CreatedBy       *uint      `gorm:"column:created_by" json:"createdBy,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Asset    *OfficeAsset `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	Employee *Employee    `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
}

func (AssetTransaction) TableName() string {
	return "asset_transactions"
}
