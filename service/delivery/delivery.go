// Package delivery records goods received from sellers. Each delivery line
// adds to the referenced item's stock; removing a line takes it away again.
package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/cdn"
	"warehouse.GO/service/ledger"
	"warehouse.GO/service/sequence"
	"warehouse.GO/service/stock"
)

type Service struct {
	db       *gorm.DB
	calc     *ledger.Calculator
	uploader cdn.Uploader
	events   events.Publisher
	log      *zap.Logger
	attempts int
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithAttempts(n int) Option { return func(s *Service) { s.attempts = n } }

func WithUploader(u cdn.Uploader) Option { return func(s *Service) { s.uploader = u } }

func NewService(db *gorm.DB, calc *ledger.Calculator, pub events.Publisher, log *zap.Logger, opts ...Option) *Service {
	s := &Service{db: db, calc: calc, events: pub, log: log, attempts: sequence.DefaultAttempts, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// LineInput references an item by id or, when id is zero, by SKU.
type LineInput struct {
	ItemID   uint   `json:"itemId"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type CreateInput struct {
	Seller        string          `json:"seller"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	InvoiceNumber string          `json:"invoiceNumber"`
	DeliveredAt   *time.Time      `json:"deliveredAt"`
	Remark        string          `json:"remark"`
	Items         []LineInput     `json:"items"`
	Invoice       *cdn.File       `json:"-"`
}

func resolveItem(tx *gorm.DB, l LineInput, field string) (uint, error) {
	if l.Quantity <= 0 {
		return 0, apperr.Validationf(field+".quantity", "quantity must be greater than 0")
	}
	var item entity.InventoryItem
	switch {
	case l.ItemID != 0:
		if err := tx.Select("id").First(&item, l.ItemID).Error; err != nil {
			return 0, apperr.FromGorm(err, "inventory item", l.ItemID)
		}
	case strings.TrimSpace(l.SKU) != "":
		if err := tx.Select("id").Where("sku = ?", strings.TrimSpace(l.SKU)).First(&item).Error; err != nil {
			return 0, apperr.FromGorm(err, "inventory item", l.SKU)
		}
	default:
		return 0, apperr.Required(field + ".itemId")
	}
	return item.ID, nil
}

// Create stores the delivery with its lines and refreshes stock of every
// referenced item in the same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID *uint) (*entity.Delivery, error) {
	in.Seller = strings.TrimSpace(in.Seller)
	if in.Seller == "" {
		return nil, apperr.Required("seller")
	}
	if in.Amount.IsNegative() {
		return nil, apperr.Validationf("amount", "amount must not be negative")
	}
	invoice := ""
	if in.Invoice != nil {
		invoice = cdn.Store(ctx, s.uploader, *in.Invoice, s.log)
	}

	var d *entity.Delivery
	err := sequence.WithRetry(s.attempts, func(int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			lines := make([]entity.DeliveryItem, 0, len(in.Items))
			ids := make([]uint, 0, len(in.Items))
			for i, l := range in.Items {
				id, err := resolveItem(tx, l, fmt.Sprintf("items[%d]", i))
				if err != nil {
					return err
				}
				lines = append(lines, entity.DeliveryItem{ItemID: id, Quantity: l.Quantity})
				ids = append(ids, id)
			}
			now := s.now()
			code, err := sequence.NextID(tx, "deliveries", "delivery_id", sequence.Delivery, now, "")
			if err != nil {
				return err
			}
			at := now
			if in.DeliveredAt != nil && !in.DeliveredAt.IsZero() {
				at = *in.DeliveredAt
			}
			d = &entity.Delivery{
				DeliveryID:    code,
				Seller:        in.Seller,
				Amount:        in.Amount,
				Currency:      in.Currency,
				InvoiceNumber: in.InvoiceNumber,
				Invoice:       invoice,
				DeliveredAt:   at,
				Remark:        in.Remark,
				CreatedBy:     actorID,
				Items:         lines,
			}
			if err := tx.Omit("Items.Item").Create(d).Error; err != nil {
				return fmt.Errorf("insert delivery %s: %w", code, err)
			}
			return ledger.Refresh(tx, ids...)
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("delivery recorded", zap.String("delivery", d.DeliveryID), zap.Int("lines", len(d.Items)))
	s.events.Publish(events.DeliveryCreated, d)
	s.afterStockChange(ctx, lineItems(d.Items)...)
	return d, nil
}

type UpdateInput struct {
	Seller        *string          `json:"seller"`
	Amount        *decimal.Decimal `json:"amount"`
	Currency      *string          `json:"currency"`
	InvoiceNumber *string          `json:"invoiceNumber"`
	DeliveredAt   *time.Time       `json:"deliveredAt"`
	Remark        *string          `json:"remark"`
	// ClearInvoice removes the stored invoice. Ignored when Invoice is set.
	ClearInvoice bool      `json:"-"`
	Invoice      *cdn.File `json:"-"`
}

// Update changes header fields only; lines are edited through the line
// operations so every stock effect stays explicit.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*entity.Delivery, error) {
	updates := map[string]interface{}{}
	if in.Seller != nil {
		v := strings.TrimSpace(*in.Seller)
		if v == "" {
			return nil, apperr.Required("seller")
		}
		updates["seller"] = v
	}
	if in.Amount != nil {
		if in.Amount.IsNegative() {
			return nil, apperr.Validationf("amount", "amount must not be negative")
		}
		updates["amount"] = *in.Amount
	}
	if in.Currency != nil {
		updates["currency"] = *in.Currency
	}
	if in.InvoiceNumber != nil {
		updates["invoice_number"] = *in.InvoiceNumber
	}
	if in.DeliveredAt != nil {
		updates["delivered_at"] = *in.DeliveredAt
	}
	if in.Remark != nil {
		updates["remark"] = *in.Remark
	}
	switch {
	case in.Invoice != nil:
		updates["invoice"] = cdn.Store(ctx, s.uploader, *in.Invoice, s.log)
	case in.ClearInvoice:
		updates["invoice"] = ""
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&entity.Delivery{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, apperr.NotFoundf("delivery", id)
		}
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.events.Publish(events.DeliveryUpdated, d)
	return d, nil
}

// AddLine appends a line to an existing delivery.
func (s *Service) AddLine(ctx context.Context, deliveryID uint, in LineInput) (*entity.DeliveryItem, error) {
	var line *entity.DeliveryItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, deliveryID); err != nil {
			return err
		}
		itemID, err := resolveItem(tx, in, "item")
		if err != nil {
			return err
		}
		line = &entity.DeliveryItem{DeliveryRef: deliveryID, ItemID: itemID, Quantity: in.Quantity}
		if err := tx.Omit("Item").Create(line).Error; err != nil {
			return err
		}
		return ledger.Refresh(tx, itemID)
	})
	if err != nil {
		return nil, err
	}
	s.lineChanged(ctx, deliveryID, line.ItemID)
	return line, nil
}

// UpdateLine changes the quantity of a line. Lowering it must not leave the
// item with negative stock.
func (s *Service) UpdateLine(ctx context.Context, deliveryID, lineID uint, quantity int) (*entity.DeliveryItem, error) {
	if quantity <= 0 {
		return nil, apperr.Validationf("quantity", "quantity must be greater than 0")
	}
	var line entity.DeliveryItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("delivery_ref = ?", deliveryID).First(&line, lineID).Error; err != nil {
			return apperr.FromGorm(err, "delivery line", lineID)
		}
		if _, err := ledger.Lock(tx, line.ItemID); err != nil {
			return err
		}
		delta := quantity - line.Quantity
		if err := tx.Model(&entity.DeliveryItem{}).Where("id = ?", line.ID).Update("quantity", quantity).Error; err != nil {
			return err
		}
		line.Quantity = quantity
		if delta < 0 {
			if err := ensureNonNegative(tx, line.ItemID, -delta); err != nil {
				return err
			}
		}
		return ledger.Refresh(tx, line.ItemID)
	})
	if err != nil {
		return nil, err
	}
	s.lineChanged(ctx, deliveryID, line.ItemID)
	return &line, nil
}

// DeleteLine removes one line and its stock effect.
func (s *Service) DeleteLine(ctx context.Context, deliveryID, lineID uint) error {
	var line entity.DeliveryItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("delivery_ref = ?", deliveryID).First(&line, lineID).Error; err != nil {
			return apperr.FromGorm(err, "delivery line", lineID)
		}
		if _, err := ledger.Lock(tx, line.ItemID); err != nil {
			return err
		}
		if err := tx.Delete(&line).Error; err != nil {
			return err
		}
		if err := ensureNonNegative(tx, line.ItemID, line.Quantity); err != nil {
			return err
		}
		return ledger.Refresh(tx, line.ItemID)
	})
	if err != nil {
		return err
	}
	s.lineChanged(ctx, deliveryID, line.ItemID)
	return nil
}

// Delete removes the delivery and reverses every line.
func (s *Service) Delete(ctx context.Context, id uint) error {
	var d entity.Delivery
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&d, id).Error; err != nil {
			return apperr.FromGorm(err, "delivery", id)
		}
		ids := ledger.Unique(lineItems(d.Items))
		for _, itemID := range ids {
			if _, err := ledger.Lock(tx, itemID); err != nil {
				return err
			}
		}
		if err := tx.Where("delivery_ref = ?", id).Delete(&entity.DeliveryItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.Delivery{}, id).Error; err != nil {
			return err
		}
		removed := map[uint]int{}
		for _, l := range d.Items {
			removed[l.ItemID] += l.Quantity
		}
		for _, itemID := range ids {
			if err := ensureNonNegative(tx, itemID, removed[itemID]); err != nil {
				return err
			}
		}
		return ledger.Refresh(tx, ids...)
	})
	if err != nil {
		return err
	}
	s.log.Info("delivery deleted", zap.String("delivery", d.DeliveryID))
	s.events.Publish(events.DeliveryDeleted, map[string]interface{}{"id": d.ID, "deliveryId": d.DeliveryID})
	s.afterStockChange(ctx, lineItems(d.Items)...)
	return nil
}

// ensureNonNegative is called after removing delivered quantity. It rejects
// the change when the item would end below zero.
func ensureNonNegative(tx *gorm.DB, itemID uint, removed int) error {
	b, err := ledger.Compute(tx, itemID)
	if err != nil {
		return err
	}
	if b.Current < 0 {
		var item entity.InventoryItem
		tx.Select("name").First(&item, itemID)
		return apperr.Insufficient(item.Name, b.Current+removed, removed)
	}
	return nil
}

func mustExist(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&entity.Delivery{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFoundf("delivery", id)
	}
	return nil
}

func lineItems(lines []entity.DeliveryItem) []uint {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}
	return ids
}

func (s *Service) lineChanged(ctx context.Context, deliveryID, itemID uint) {
	if d, err := s.Get(ctx, deliveryID); err == nil {
		s.events.Publish(events.DeliveryUpdated, d)
	}
	s.afterStockChange(ctx, itemID)
}

func (s *Service) afterStockChange(ctx context.Context, ids ...uint) {
	ids = ledger.Unique(ids)
	if len(ids) == 0 {
		return
	}
	s.calc.Forget(ids...)
	stock.PublishStock(ctx, s.calc, s.events, s.log, ids...)
}

func (s *Service) Get(ctx context.Context, id uint) (*entity.Delivery, error) {
	var d entity.Delivery
	if err := s.db.WithContext(ctx).Preload("Items.Item").First(&d, id).Error; err != nil {
		return nil, apperr.FromGorm(err, "delivery", id)
	}
	return &d, nil
}

type Filter struct {
	Seller string
	ItemID uint
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// List returns deliveries newest first along with the unpaged total.
func (s *Service) List(ctx context.Context, f Filter) ([]entity.Delivery, int64, error) {
	q := s.db.WithContext(ctx).Model(&entity.Delivery{})
	if f.Seller != "" {
		q = q.Where("seller LIKE ?", "%"+f.Seller+"%")
	}
	if f.ItemID != 0 {
		q = q.Where("id IN (?)", s.db.Model(&entity.DeliveryItem{}).Select("delivery_ref").Where("item_id = ?", f.ItemID))
	}
	if f.From != nil {
		q = q.Where("delivered_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("delivered_at < ?", *f.To)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	var out []entity.Delivery
	err := q.Preload("Items.Item").Order("delivered_at DESC, id DESC").Limit(f.Limit).Offset(f.Offset).Find(&out).Error
	return out, total, err
}
