package ledger

import (
	"fmt"

	"gorm.io/gorm"
)

// Holding is the quantity of one item currently deployed at a site: issued
// to the site minus returned from it.
type Holding struct {
	ItemID   uint   `json:"itemId"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

const holdingExpr = "COALESCE(SUM(CASE WHEN transactions.type = 'ISSUE' THEN transactions.quantity ELSE -transactions.quantity END), 0)"

// SiteHoldings lists the items with a positive holding at siteID.
func SiteHoldings(tx *gorm.DB, siteID uint) ([]Holding, error) {
	var rows []Holding
	err := tx.Table("transactions").
		Select("transactions.item_id AS item_id, inventory_items.sku AS sku, inventory_items.name AS name, "+holdingExpr+" AS quantity").
		Joins("JOIN inventory_items ON inventory_items.id = transactions.item_id").
		Where("transactions.site_id = ?", siteID).
		Group("transactions.item_id, inventory_items.sku, inventory_items.name").
		Having(holdingExpr + " > 0").
		Order("inventory_items.name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("site holdings: %w", err)
	}
	return rows, nil
}

// SiteHolding returns the holding of one item at one site (possibly <= 0).
func SiteHolding(tx *gorm.DB, siteID, itemID uint) (int, error) {
	var qty int
	err := tx.Table("transactions").
		Select(holdingExpr).
		Where("transactions.site_id = ? AND transactions.item_id = ?", siteID, itemID).
		Scan(&qty).Error
	if err != nil {
		return 0, fmt.Errorf("site holding: %w", err)
	}
	return qty, nil
}
