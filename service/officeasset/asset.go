// Package officeasset manages company equipment and its hand-outs to
// employees. Asset stock is held directly on the asset row and adjusted with
// conditional updates, so concurrent assignments can never oversell it.
package officeasset

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/activity"
	"warehouse.GO/service/cdn"
	"warehouse.GO/service/sequence"
)

type Service struct {
	db       *gorm.DB
	uploader cdn.Uploader
	events   events.Publisher
	audit    *activity.Logger
	log      *zap.Logger
	attempts int
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithUploader(u cdn.Uploader) Option { return func(s *Service) { s.uploader = u } }

func WithAttempts(n int) Option { return func(s *Service) { s.attempts = n } }

func NewService(db *gorm.DB, pub events.Publisher, audit *activity.Logger, log *zap.Logger, opts ...Option) *Service {
	s := &Service{db: db, events: pub, audit: audit, log: log, attempts: sequence.DefaultAttempts, now: time.Now}
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

type Input struct {
	SKU          *string          `json:"sku"`
	Name         *string          `json:"name"`
	Category     *string          `json:"category"`
	Brand        *string          `json:"brand"`
	Model        *string          `json:"model"`
	SerialNumber *string          `json:"serialNumber"`
	TotalStock   *int             `json:"totalStock"`
	Price        *decimal.Decimal `json:"price"`
	PurchaseDate *time.Time       `json:"purchaseDate"`
	Location     *string          `json:"location"`
	Image        *cdn.File        `json:"-"`
	ClearImage   bool             `json:"-"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func (s *Service) Create(ctx context.Context, in Input) (*entity.OfficeAsset, error) {
	a := &entity.OfficeAsset{
		SKU:          str(in.SKU),
		Name:         str(in.Name),
		Category:     str(in.Category),
		Brand:        str(in.Brand),
		Model:        str(in.Model),
		SerialNumber: str(in.SerialNumber),
		Location:     str(in.Location),
		PurchaseDate: in.PurchaseDate,
		TotalStock:   1,
	}
	if a.SKU == "" {
		return nil, apperr.Required("sku")
	}
	if a.Name == "" {
		return nil, apperr.Required("name")
	}
	if in.TotalStock != nil {
		if *in.TotalStock < 0 {
			return nil, apperr.Validationf("totalStock", "totalStock must not be negative")
		}
		a.TotalStock = *in.TotalStock
	}
	a.CurrentStock = a.TotalStock
	if in.Price != nil {
		a.Price = *in.Price
	}
	if in.Image != nil {
		a.Image = cdn.Store(ctx, s.uploader, *in.Image, s.log)
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		if apperr.IsDuplicate(err) {
			return nil, apperr.Conflictf("office asset with sku %s already exists", a.SKU)
		}
		return nil, err
	}
	s.events.Publish(events.AssetCreated, a)
	return a, nil
}

// Update edits descriptive fields. Changing TotalStock shifts CurrentStock by
// the same amount and is rejected if that would go below zero.
func (s *Service) Update(ctx context.Context, id uint, in Input) (*entity.OfficeAsset, error) {
	updates := map[string]interface{}{}
	set := func(col string, p *string) {
		if p != nil {
			updates[col] = strings.TrimSpace(*p)
		}
	}
	if in.SKU != nil && str(in.SKU) == "" {
		return nil, apperr.Required("sku")
	}
	if in.Name != nil && str(in.Name) == "" {
		return nil, apperr.Required("name")
	}
	set("sku", in.SKU)
	set("name", in.Name)
	set("category", in.Category)
	set("brand", in.Brand)
	set("model", in.Model)
	set("serial_number", in.SerialNumber)
	set("location", in.Location)
	if in.Price != nil {
		updates["price"] = *in.Price
	}
	if in.PurchaseDate != nil {
		updates["purchase_date"] = *in.PurchaseDate
	}
	switch {
	case in.Image != nil:
		updates["image"] = cdn.Store(ctx, s.uploader, *in.Image, s.log)
	case in.ClearImage:
		updates["image"] = ""
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a entity.OfficeAsset
		if err := tx.First(&a, id).Error; err != nil {
			return apperr.FromGorm(err, "office asset", id)
		}
		if in.TotalStock != nil {
			total := *in.TotalStock
			if total < 0 {
				return apperr.Validationf("totalStock", "totalStock must not be negative")
			}
			delta := total - a.TotalStock
			if a.CurrentStock+delta < 0 {
				return apperr.Insufficient(a.Name, a.CurrentStock, -delta)
			}
			updates["total_stock"] = total
			updates["current_stock"] = gorm.Expr("current_stock + ?", delta)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&entity.OfficeAsset{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			if apperr.IsDuplicate(err) {
				return apperr.Conflictf("office asset with sku %s already exists", str(in.SKU))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.events.Publish(events.AssetUpdated, a)
	return a, nil
}

// Delete removes an asset that has no active hand-outs.
func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&entity.AssetTransaction{}).Where("asset_id = ? AND status = ?", id, entity.AssetTxnActive).Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return apperr.Conflictf("office asset %d has %d active assignments", id, active)
		}
		res := tx.Delete(&entity.OfficeAsset{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFoundf("office asset", id)
		}
		return tx.Where("asset_id = ?", id).Delete(&entity.AssetTransaction{}).Error
	})
	if err != nil {
		return err
	}
	s.events.Publish(events.AssetDeleted, map[string]interface{}{"id": id})
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (*entity.OfficeAsset, error) {
	var a entity.OfficeAsset
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, apperr.FromGorm(err, "office asset", id)
	}
	return &a, nil
}

func (s *Service) List(ctx context.Context, category string) ([]entity.OfficeAsset, error) {
	q := s.db.WithContext(ctx)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var out []entity.OfficeAsset
	err := q.Order("name").Find(&out).Error
	return out, err
}
