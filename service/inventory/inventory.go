// Package inventory manages warehouse items. Reads report the stock derived
// from the ledger, never a stored counter.
package inventory

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/cdn"
	"warehouse.GO/service/ledger"
)

type Service struct {
	db       *gorm.DB
	calc     *ledger.Calculator
	uploader cdn.Uploader
	events   events.Publisher
	log      *zap.Logger
}

func NewService(db *gorm.DB, calc *ledger.Calculator, u cdn.Uploader, pub events.Publisher, log *zap.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, calc: calc, uploader: u, events: pub, log: log}
}

type Input struct {
	SKU          *string                `json:"sku"`
	Name         *string                `json:"name"`
	Category     *string                `json:"category"`
	Description  *string                `json:"description"`
	Unit         *string                `json:"unit"`
	InitialStock *int                   `json:"initialStock"`
	ReorderLevel *int                   `json:"reorderLevel"`
	UnitCost     *decimal.Decimal       `json:"unitCost"`
	Currency     *string                `json:"currency"`
	Attributes   map[string]interface{} `json:"attributes"`
	Image        *cdn.File              `json:"-"`
	ClearImage   bool                   `json:"-"`
}

func trim(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func (s *Service) Create(ctx context.Context, in Input) (*entity.InventoryItem, error) {
	item := &entity.InventoryItem{
		SKU:         trim(in.SKU),
		Name:        trim(in.Name),
		Category:    trim(in.Category),
		Description: trim(in.Description),
		Unit:        trim(in.Unit),
		Currency:    trim(in.Currency),
	}
	if item.SKU == "" {
		return nil, apperr.Required("sku")
	}
	if item.Name == "" {
		return nil, apperr.Required("name")
	}
	if in.InitialStock != nil {
		if *in.InitialStock < 0 {
			return nil, apperr.Validationf("initialStock", "initialStock must not be negative")
		}
		item.InitialStock = *in.InitialStock
	}
	item.CurrentStock = item.InitialStock
	if in.ReorderLevel != nil {
		if *in.ReorderLevel < 0 {
			return nil, apperr.Validationf("reorderLevel", "reorderLevel must not be negative")
		}
		item.ReorderLevel = *in.ReorderLevel
	}
	if in.UnitCost != nil {
		item.UnitCost = *in.UnitCost
	}
	if in.Attributes != nil {
		item.Attributes = datatypes.JSONMap(in.Attributes)
	}
	if in.Image != nil {
		item.Image = cdn.Store(ctx, s.uploader, *in.Image, s.log)
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		if apperr.IsDuplicate(err) {
			return nil, apperr.Conflictf("inventory item with sku %s already exists", item.SKU)
		}
		return nil, err
	}
	s.events.Publish(events.InventoryCreated, item)
	return item, nil
}

// Update edits descriptive fields. The initial stock is the ledger baseline
// and cannot be changed once the item exists.
func (s *Service) Update(ctx context.Context, id uint, in Input) (*entity.InventoryItem, error) {
	if in.InitialStock != nil {
		return nil, apperr.Validationf("initialStock", "initialStock cannot be changed")
	}
	updates := map[string]interface{}{}
	str := func(col string, p *string, required bool) error {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		if required && v == "" {
			return apperr.Required(col)
		}
		updates[col] = v
		return nil
	}
	for _, f := range []struct {
		col string
		p   *string
		req bool
	}{
		{"sku", in.SKU, true}, {"name", in.Name, true}, {"category", in.Category, false},
		{"description", in.Description, false}, {"unit", in.Unit, false}, {"currency", in.Currency, false},
	} {
		if err := str(f.col, f.p, f.req); err != nil {
			return nil, err
		}
	}
	if in.ReorderLevel != nil {
		if *in.ReorderLevel < 0 {
			return nil, apperr.Validationf("reorderLevel", "reorderLevel must not be negative")
		}
		updates["reorder_level"] = *in.ReorderLevel
	}
	if in.UnitCost != nil {
		updates["unit_cost"] = *in.UnitCost
	}
	if in.Attributes != nil {
		updates["attributes"] = datatypes.JSONMap(in.Attributes)
	}
	switch {
	case in.Image != nil:
		updates["image"] = cdn.Store(ctx, s.uploader, *in.Image, s.log)
	case in.ClearImage:
		updates["image"] = ""
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&entity.InventoryItem{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			if apperr.IsDuplicate(res.Error) {
				return nil, apperr.Conflictf("inventory item with sku %s already exists", trim(in.SKU))
			}
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, apperr.NotFoundf("inventory item", id)
		}
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.events.Publish(events.InventoryUpdated, item)
	return item, nil
}

// Delete removes an item that no ledger row references.
func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ledger.Lock(tx, id); err != nil {
			return err
		}
		for _, m := range []interface{}{&entity.Transaction{}, &entity.DeliveryItem{}, &entity.EmployeeAsset{}, &entity.StockTransferLine{}} {
			var n int64
			if err := tx.Model(m).Where("item_id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return apperr.Conflictf("inventory item %d has stock history and cannot be deleted", id)
			}
		}
		return tx.Delete(&entity.InventoryItem{}, id).Error
	})
	if err != nil {
		return err
	}
	s.calc.Forget(id)
	s.events.Publish(events.InventoryDeleted, map[string]interface{}{"id": id})
	return nil
}

// Get returns the item with its derived current stock.
func (s *Service) Get(ctx context.Context, id uint) (*entity.InventoryItem, error) {
	var item entity.InventoryItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, apperr.FromGorm(err, "inventory item", id)
	}
	n, err := s.calc.CurrentStock(ctx, id)
	if err != nil {
		return nil, err
	}
	item.CurrentStock = n
	return &item, nil
}

func (s *Service) GetBySKU(ctx context.Context, sku string) (*entity.InventoryItem, error) {
	var item entity.InventoryItem
	if err := s.db.WithContext(ctx).Select("id").Where("sku = ?", sku).First(&item).Error; err != nil {
		return nil, apperr.FromGorm(err, "inventory item", sku)
	}
	return s.Get(ctx, item.ID)
}

func (s *Service) Breakdown(ctx context.Context, id uint) (*ledger.Breakdown, error) {
	return s.calc.Breakdown(ctx, id)
}

type Filter struct {
	Category string
	Search   string
	LowStock bool
	Limit    int
	Offset   int
}

// List returns items ordered by name with derived stock filled in.
func (s *Service) List(ctx context.Context, f Filter) ([]entity.InventoryItem, int64, error) {
	q := s.db.WithContext(ctx).Model(&entity.InventoryItem{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("name LIKE ? OR sku LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 200
	}
	var items []entity.InventoryItem
	if err := q.Order("name").Limit(f.Limit).Offset(f.Offset).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	ids := make([]uint, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	stocks, err := s.calc.CurrentStocks(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	out := items[:0]
	for _, it := range items {
		it.CurrentStock = stocks[it.ID]
		if f.LowStock && !it.LowStock() {
			continue
		}
		out = append(out, it)
	}
	return out, total, nil
}

// Categories lists the distinct non-empty categories.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).Model(&entity.InventoryItem{}).
		Where("category <> ''").Distinct().Order("category").Pluck("category", &out).Error
	return out, err
}
