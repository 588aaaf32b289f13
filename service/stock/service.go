// Package stock records ISSUE and RETURN movements against the ledger.
package stock

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/ledger"
	"warehouse.GO/service/sequence"
	"warehouse.GO/service/site"
)

type Service struct {
	db       *gorm.DB
	calc     *ledger.Calculator
	events   events.Publisher
	log      *zap.Logger
	attempts int
	now      func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAttempts bounds identifier retries.
func WithAttempts(n int) Option {
	return func(s *Service) { s.attempts = n }
}

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

// Input describes a movement requested by a user.
type Input struct {
	Type       string     `json:"type"`
	ItemID     uint       `json:"itemId"`
	SiteID     uint       `json:"siteId"`
	SiteName   string     `json:"siteName"`
	EmployeeID *uint      `json:"employeeId"`
	Quantity   int        `json:"quantity"`
	Remark     string     `json:"remark"`
	Timestamp  *time.Time `json:"timestamp"`
}

func normEmployee(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}

// Issue sends stock out to a site. It fails with InsufficientStock when the
// item's effective stock is below the quantity; nothing is written then.
func (s *Service) Issue(ctx context.Context, in Input, actorID *uint) (*entity.Transaction, error) {
	in.Type = entity.TxnIssue
	return s.Record(ctx, in, actorID)
}

// Return brings stock back. Returns always succeed once references resolve.
func (s *Service) Return(ctx context.Context, in Input, actorID *uint) (*entity.Transaction, error) {
	in.Type = entity.TxnReturn
	return s.Record(ctx, in, actorID)
}

// Record posts in.Type.
func (s *Service) Record(ctx context.Context, in Input, actorID *uint) (*entity.Transaction, error) {
	var txn *entity.Transaction
	err := sequence.WithRetry(s.attempts, func(int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			siteID := in.SiteID
			if siteID == 0 && in.SiteName != "" {
				st, created, err := site.FindOrCreate(tx, in.SiteName)
				if err != nil {
					return err
				}
				if created {
					s.log.Info("site created from movement", zap.String("code", st.Code), zap.String("name", st.Name))
				}
				siteID = st.ID
			}
			var err error
			txn, err = Post(tx, Posting{
				Type:       in.Type,
				ItemID:     in.ItemID,
				SiteID:     siteID,
				EmployeeID: normEmployee(in.EmployeeID),
				Quantity:   in.Quantity,
				Remark:     in.Remark,
				At:         s.now(),
				Timestamp:  in.Timestamp,
				CreatedBy:  actorID,
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	s.calc.Forget(txn.ItemID)
	s.log.Info("stock movement recorded",
		zap.String("transaction_id", txn.TransactionID), zap.String("type", txn.Type),
		zap.Uint("item_id", txn.ItemID), zap.Int("quantity", txn.Quantity))
	s.events.Publish(events.TransactionCreated, txn)
	s.publishStock(ctx, txn.ItemID)
	return txn, nil
}

// UpdateInput holds the fields an edit may change; nil leaves a field as is.
type UpdateInput struct {
	Type       *string    `json:"type"`
	ItemID     *uint      `json:"itemId"`
	SiteID     *uint      `json:"siteId"`
	EmployeeID *uint      `json:"employeeId"`
	Quantity   *int       `json:"quantity"`
	Remark     *string    `json:"remark"`
	Timestamp  *time.Time `json:"timestamp"`
}

// Update edits a transaction. The old effect is reversed against the
// original item and the new effect is applied to the (possibly different)
// new item; an ISSUE is re-checked against the new item's stock after the
// reversal.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*entity.Transaction, error) {
	var before, after entity.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&before, id).Error; err != nil {
			return apperr.FromGorm(err, "transaction", id)
		}
		if before.TransferGroup != nil {
			return apperr.Conflictf("transaction %s is part of a stock transfer and cannot be edited", before.TransactionID)
		}
		after = before
		if in.Type != nil {
			after.Type = *in.Type
		}
		if in.ItemID != nil {
			after.ItemID = *in.ItemID
		}
		if in.SiteID != nil {
			after.SiteID = *in.SiteID
		}
		if in.EmployeeID != nil {
			after.EmployeeID = normEmployee(in.EmployeeID)
		}
		if in.Quantity != nil {
			after.Quantity = *in.Quantity
		}
		if in.Remark != nil {
			after.Remark = *in.Remark
		}
		if in.Timestamp != nil && !in.Timestamp.IsZero() {
			after.Timestamp = *in.Timestamp
		}
		p := Posting{Type: after.Type, ItemID: after.ItemID, SiteID: after.SiteID, Quantity: after.Quantity}
		if err := p.validate(); err != nil {
			return err
		}
		if err := checkRefs(tx, after.SiteID, after.EmployeeID); err != nil {
			return err
		}
		// Lock in id order so two edits touching the same pair cannot deadlock.
		first, second := before.ItemID, after.ItemID
		if first > second {
			first, second = second, first
		}
		if _, err := ledger.Lock(tx, first); err != nil {
			return err
		}
		newItem, err := ledger.Lock(tx, second)
		if err != nil {
			return err
		}
		if second != after.ItemID {
			if newItem, err = ledger.Lock(tx, after.ItemID); err != nil {
				return err
			}
		}

		if err := tx.Model(&entity.Transaction{}).Where("id = ?", id).Updates(map[string]interface{}{
			"type":        after.Type,
			"item_id":     after.ItemID,
			"site_id":     after.SiteID,
			"employee_id": after.EmployeeID,
			"quantity":    after.Quantity,
			"remark":      after.Remark,
			"occurred_at": after.Timestamp,
		}).Error; err != nil {
			return fmt.Errorf("update transaction %d: %w", id, err)
		}

		if after.Type == entity.TxnIssue {
			b, err := ledger.Compute(tx, after.ItemID)
			if err != nil {
				return err
			}
			// b already includes the new issue; available before it is b+qty.
			if b.Current < 0 {
				return apperr.Insufficient(newItem.Name, b.Current+after.Quantity, after.Quantity)
			}
		}
		return ledger.Refresh(tx, before.ItemID, after.ItemID)
	})
	if err != nil {
		return nil, err
	}
	s.calc.Forget(before.ItemID, after.ItemID)
	s.events.Publish(events.TransactionUpdated, &after)
	s.publishStock(ctx, before.ItemID, after.ItemID)
	return &after, nil
}

// Delete removes a transaction, reversing its effect. Removing one leg of a
// transfer removes both legs.
func (s *Service) Delete(ctx context.Context, id uint) error {
	var removed []entity.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn entity.Transaction
		if err := tx.First(&txn, id).Error; err != nil {
			return apperr.FromGorm(err, "transaction", id)
		}
		removed = []entity.Transaction{txn}
		if txn.TransferGroup != nil {
			if err := tx.Where("transfer_group = ?", *txn.TransferGroup).Find(&removed).Error; err != nil {
				return err
			}
		}
		ids := make([]uint, 0, len(removed))
		items := make([]uint, 0, len(removed))
		for _, r := range removed {
			ids = append(ids, r.ID)
			items = append(items, r.ItemID)
		}
		if err := tx.Delete(&entity.Transaction{}, ids).Error; err != nil {
			return fmt.Errorf("delete transaction %d: %w", id, err)
		}
		return ledger.Refresh(tx, items...)
	})
	if err != nil {
		return err
	}
	items := make([]uint, 0, len(removed))
	for i := range removed {
		items = append(items, removed[i].ItemID)
		s.events.Publish(events.TransactionDeleted, &removed[i])
	}
	s.calc.Forget(items...)
	s.publishStock(ctx, items...)
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (*entity.Transaction, error) {
	var txn entity.Transaction
	err := s.db.WithContext(ctx).Preload("Item").Preload("Site").Preload("Employee").First(&txn, id).Error
	if err != nil {
		return nil, apperr.FromGorm(err, "transaction", id)
	}
	return &txn, nil
}

// GetByCode looks a transaction up by its TXN-… identifier.
func (s *Service) GetByCode(ctx context.Context, code string) (*entity.Transaction, error) {
	var txn entity.Transaction
	err := s.db.WithContext(ctx).Preload("Item").Preload("Site").Preload("Employee").
		Where("transaction_id = ?", code).First(&txn).Error
	if err != nil {
		return nil, apperr.FromGorm(err, "transaction", code)
	}
	return &txn, nil
}

type Filter struct {
	Type       string
	ItemID     uint
	SiteID     uint
	EmployeeID uint
	From, To   *time.Time
	Limit      int
	Offset     int
}

// List returns transactions newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]entity.Transaction, int64, error) {
	q := s.db.WithContext(ctx).Model(&entity.Transaction{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.ItemID != 0 {
		q = q.Where("item_id = ?", f.ItemID)
	}
	if f.SiteID != 0 {
		q = q.Where("site_id = ?", f.SiteID)
	}
	if f.EmployeeID != 0 {
		q = q.Where("employee_id = ?", f.EmployeeID)
	}
	if f.From != nil {
		q = q.Where("occurred_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("occurred_at < ?", *f.To)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	var out []entity.Transaction
	err := q.Preload("Item").Preload("Site").Preload("Employee").
		Order("occurred_at DESC, id DESC").Limit(f.Limit).Offset(f.Offset).Find(&out).Error
	return out, total, err
}

// StockChange is the payload of inventory:updated events.
type StockChange struct {
	ItemID       uint `json:"itemId"`
	CurrentStock int  `json:"currentStock"`
}

func (s *Service) publishStock(ctx context.Context, ids ...uint) {
	PublishStock(ctx, s.calc, s.events, s.log, ids...)
}

// PublishStock emits inventory:updated with the fresh effective stock of ids.
func PublishStock(ctx context.Context, calc *ledger.Calculator, pub events.Publisher, log *zap.Logger, ids ...uint) {
	stocks, err := calc.CurrentStocks(ctx, ids)
	if err != nil {
		log.Warn("read stock for broadcast", zap.Error(err))
		return
	}
	for _, id := range ledger.Unique(ids) {
		if v, ok := stocks[id]; ok {
			pub.Publish(events.InventoryUpdated, StockChange{ItemID: id, CurrentStock: v})
		}
	}
}
