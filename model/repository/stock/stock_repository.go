package stock

import (
	"database/sql"

	"gorm.io/gorm"
)

// StockRepository serves the hot read path of the realtime endpoints straight
// from the current_stock column, which every ledger write refreshes inside its
// transaction.
type StockRepository struct {
	db    *gorm.DB
	sqlDB *sql.DB
}

func NewStockRepository(db *gorm.DB) (*StockRepository, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &StockRepository{db: db, sqlDB: sqlDB}, nil
}

// Level is the stock snapshot of one item.
type Level struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	CurrentStock int    `json:"currentStock"`
	ReorderLevel int    `json:"reorderLevel"`
}

// Low reports whether the item is at or under its reorder level.
func (l Level) Low() bool { return l.ReorderLevel > 0 && l.CurrentStock <= l.ReorderLevel }

// GetBySKU uses raw SQL for minimal overhead.
func (r *StockRepository) GetBySKU(sku string) (Level, bool) {
	const query = `SELECT sku, name, current_stock, reorder_level FROM inventory_items WHERE sku = ? LIMIT 1`
	var l Level
	if err := r.sqlDB.QueryRow(query, sku).Scan(&l.SKU, &l.Name, &l.CurrentStock, &l.ReorderLevel); err != nil {
		return Level{}, false
	}
	return l, true
}

// BatchGet fetches several SKUs in one query. Unknown SKUs are absent from
// the result.
func (r *StockRepository) BatchGet(skus []string) (map[string]Level, error) {
	if len(skus) == 0 {
		return map[string]Level{}, nil
	}
	rows, err := r.db.Table("inventory_items").
		Select("sku, name, current_stock, reorder_level").
		Where("sku IN ?", skus).
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]Level, len(skus))
	for rows.Next() {
		var l Level
		if err := rows.Scan(&l.SKU, &l.Name, &l.CurrentStock, &l.ReorderLevel); err != nil {
			return nil, err
		}
		result[l.SKU] = l
	}
	return result, rows.Err()
}

// LowStock lists items at or under their reorder level.
func (r *StockRepository) LowStock() ([]Level, error) {
	var out []Level
	err := r.db.Table("inventory_items").
		Select("sku, name, current_stock, reorder_level").
		Where("reorder_level > 0 AND current_stock <= reorder_level").
		Order("sku").
		Scan(&out).Error
	return out, err
}
