package entity

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&InventoryItem{},
		&Site{},
		&Employee{},
		&EmployeeAsset{},
		&Transaction{},
		&Delivery{},
		&DeliveryItem{},
		&StockTransfer{},
		&StockTransferLine{},
		&OfficeAsset{},
		&AssetTransaction{},
		&Attendance{},
		&ActivityLog{},
		&Notification{},
	}
}
