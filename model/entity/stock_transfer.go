package entity

import "time"

const (
	TransferPending   = "PENDING"
	TransferInTransit = "IN_TRANSIT"
	TransferReceived  = "RECEIVED"
	TransferCancelled = "CANCELLED"
)

// StockTransfer is a requested move of one or more items between two sites.
// Approval posts the RETURN/ISSUE pair for every line.
type StockTransfer struct {
	ID          uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TransferID  string     `gorm:"column:transfer_id;type:varchar(64);not null;uniqueIndex" json:"transferId"`
	FromSiteID  uint       `gorm:"column:from_site_id;not null;index" json:"fromSiteId"`
	ToSiteID    uint       `gorm:"column:to_site_id;not null;index" json:"toSiteId"`
	RequestedBy uint       `gorm:"column:requested_by;not null" json:"requestedBy"`
	ApprovedBy  *uint      `gorm:"column:approved_by" json:"approvedBy,omitempty"`
	Status      string     `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	Remark      string     `gorm:"column:remark;type:varchar(255)" json:"remark,omitempty"`
	ApprovedAt  *time.Time `gorm:"column:approved_at" json:"approvedAt,omitempty"`
	ReceivedAt  *time.Time `gorm:"column:received_at" json:"receivedAt,omitempty"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelledAt,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Lines    []StockTransferLine `gorm:"foreignKey:TransferRef" json:"items"`
	FromSite *Site               `gorm:"foreignKey:FromSiteID" json:"fromSite,omitempty"`
	ToSite   *Site               `gorm:"foreignKey:ToSiteID" json:"toSite,omitempty"`
}

func (StockTransfer) TableName() string {
	return "stock_transfers"
}

type StockTransferLine struct {
	ID          uint `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TransferRef uint `gorm:"column:transfer_ref;not null;index" json:"transferRef"`
	ItemID      uint `gorm:"column:item_id;not null;index" json:"itemId"`
	Quantity    int  `gorm:"column:quantity;not null" json:"quantity"`

	Item *InventoryItem `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

func (StockTransferLine) TableName() string {
	return "stock_transfer_lines"
}
