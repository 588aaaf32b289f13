package entity

import "time"

const (
	TxnIssue  = "ISSUE"
	TxnReturn = "RETURN"
)

// Transaction is one ledger movement of an inventory item to or from a site.
type Transaction struct {
	ID            uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TransactionID string    `gorm:"column:transaction_id;type:varchar(64);not null;uniqueIndex" json:"transactionId"`
	Type          string    `gorm:"column:type;type:varchar(8);not null;index:idx_txn_item_type,priority:2" json:"type"`
	ItemID        uint      `gorm:"column:item_id;not null;index:idx_txn_item_type,priority:1" json:"itemId"`
	SiteID        uint      `gorm:"column:site_id;not null;index" json:"siteId"`
	EmployeeID    *uint     `gorm:"column:employee_id;index" json:"employeeId,omitempty"`
	Quantity      int       `gorm:"column:quantity;not null" json:"quantity"`
	Timestamp     time.Time `gorm:"column:occurred_at;not null;index" json:"timestamp"`
	Remark        string    `gorm:"column:remark;type:varchar(255)" json:"remark,omitempty"`
	TransferGroup *string   `gorm:"column:transfer_group;type:varchar(36);index" json:"transferGroup,omitempty"`
	TransferRef   *uint     `gorm:"column:transfer_ref;index" json:"transferRef,omitempty"`
	CreatedBy     *uint     `gorm:"column:created_by" json:"createdBy,omitempty"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Item     *InventoryItem `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Site     *Site          `gorm:"foreignKey:SiteID" json:"site,omitempty"`
	Employee *Employee      `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// Effect is the signed change this transaction applies to effective stock.
func (t Transaction) Effect() int {
	if t.Type == TxnIssue {
		return -t.Quantity
	}
	return t.Quantity
}
