// Package transfer moves stock between sites. A transfer is always a pair of
// ledger rows, a RETURN at the source and an ISSUE at the destination,
// written in one database transaction and linked by a transfer group id.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/ledger"
	"warehouse.GO/service/sequence"
	"warehouse.GO/service/stock"
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

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithAttempts(n int) Option { return func(s *Service) { s.attempts = n } }

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

// Pair is the two ledger rows of one transferred line.
type Pair struct {
	Group     string              `json:"transferGroup"`
	ReturnTxn *entity.Transaction `json:"returnTransaction"`
	IssueTxn  *entity.Transaction `json:"issueTransaction"`
}

type DirectInput struct {
	ItemID     uint   `json:"itemId"`
	FromSiteID uint   `json:"fromSiteId"`
	ToSiteID   uint   `json:"toSiteId"`
	Quantity   int    `json:"quantity"`
	EmployeeID *uint  `json:"employeeId"`
	Remark     string `json:"remark"`
}

func loadSites(tx *gorm.DB, fromID, toID uint) (*entity.Site, *entity.Site, error) {
	if fromID == 0 {
		return nil, nil, apperr.Required("fromSiteId")
	}
	if toID == 0 {
		return nil, nil, apperr.Required("toSiteId")
	}
	if fromID == toID {
		return nil, nil, apperr.Validationf("toSiteId", "source and destination site must differ")
	}
	var from, to entity.Site
	if err := tx.First(&from, fromID).Error; err != nil {
		return nil, nil, apperr.FromGorm(err, "site", fromID)
	}
	if err := tx.First(&to, toID).Error; err != nil {
		return nil, nil, apperr.FromGorm(err, "site", toID)
	}
	return &from, &to, nil
}

// Remark is the human-readable note stored on both legs.
func Remark(from, to *entity.Site) string {
	return fmt.Sprintf("Stock Transfer: %s → %s", from.Name, to.Name)
}

type leg struct {
	itemID     uint
	quantity   int
	employeeID *uint
	transferID *uint
	note       string
}

// movePair posts the RETURN at from and the ISSUE at to inside tx.
func movePair(tx *gorm.DB, at time.Time, from, to *entity.Site, l leg, actorID *uint) (*Pair, error) {
	if l.quantity <= 0 {
		return nil, apperr.Validationf("quantity", "quantity must be greater than 0")
	}
	if _, err := ledger.Lock(tx, l.itemID); err != nil {
		return nil, err
	}

	if l.employeeID != nil && *l.employeeID == 0 {
		l.employeeID = nil
	}
	if actorID != nil && *actorID == 0 {
		actorID = nil
	}
	group := uuid.NewString()
	remark := Remark(from, to)
	if l.note != "" {
		remark += " (" + l.note + ")"
	}
	ret, err := stock.Post(tx, stock.Posting{
		Type: entity.TxnReturn, ItemID: l.itemID, SiteID: from.ID, EmployeeID: l.employeeID,
		Quantity: l.quantity, Remark: remark, At: at, Scope: from.Code,
		TransferGroup: &group, TransferRef: l.transferID, CreatedBy: actorID,
	})
	if err != nil {
		return nil, err
	}
	iss, err := stock.Post(tx, stock.Posting{
		Type: entity.TxnIssue, ItemID: l.itemID, SiteID: to.ID, EmployeeID: l.employeeID,
		Quantity: l.quantity, Remark: remark, At: at, Scope: to.Code,
		TransferGroup: &group, TransferRef: l.transferID, CreatedBy: actorID,
	})
	if err != nil {
		return nil, err
	}
	return &Pair{Group: group, ReturnTxn: ret, IssueTxn: iss}, nil
}

// Transfer moves quantity of one item from one site to another immediately.
func (s *Service) Transfer(ctx context.Context, in DirectInput, actorID *uint) (*Pair, error) {
	var pair *Pair
	err := sequence.WithRetry(s.attempts, func(int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			from, to, err := loadSites(tx, in.FromSiteID, in.ToSiteID)
			if err != nil {
				return err
			}
			if in.ItemID == 0 {
				return apperr.Required("itemId")
			}
			if in.EmployeeID == nil || *in.EmployeeID == 0 {
				return apperr.Required("employeeId")
			}
			var emp entity.Employee
			if err := tx.Select("id").First(&emp, *in.EmployeeID).Error; err != nil {
				return apperr.FromGorm(err, "employee", *in.EmployeeID)
			}
			pair, err = movePair(tx, s.now(), from, to, leg{itemID: in.ItemID, quantity: in.Quantity, employeeID: in.EmployeeID, note: in.Remark}, actorID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	s.afterPairs(ctx, []Pair{*pair})
	return pair, nil
}

func (s *Service) afterPairs(ctx context.Context, pairs []Pair) {
	items := make([]uint, 0, len(pairs))
	for _, p := range pairs {
		items = append(items, p.ReturnTxn.ItemID)
		s.log.Info("stock transferred",
			zap.String("group", p.Group), zap.String("return", p.ReturnTxn.TransactionID),
			zap.String("issue", p.IssueTxn.TransactionID), zap.Int("quantity", p.IssueTxn.Quantity))
		s.events.Publish(events.TransactionCreated, p.ReturnTxn)
		s.events.Publish(events.TransactionCreated, p.IssueTxn)
	}
	s.calc.Forget(items...)
	stock.PublishStock(ctx, s.calc, s.events, s.log, items...)
}

// History returns the most recent transfer pairs, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]Pair, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []entity.Transaction
	err := s.db.WithContext(ctx).
		Preload("Item").Preload("Site").Preload("Employee").
		Where("transfer_group IS NOT NULL").
		Order("occurred_at DESC, id DESC").
		Limit(limit * 2).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	byGroup := make(map[string]*Pair)
	var order []string
	for i := range rows {
		r := &rows[i]
		g := *r.TransferGroup
		p, ok := byGroup[g]
		if !ok {
			p = &Pair{Group: g}
			byGroup[g] = p
			order = append(order, g)
		}
		if r.Type == entity.TxnReturn {
			p.ReturnTxn = r
		} else {
			p.IssueTxn = r
		}
	}
	out := make([]Pair, 0, len(order))
	for _, g := range order {
		if len(out) == limit {
			break
		}
		out = append(out, *byGroup[g])
	}
	return out, nil
}

// SiteItems lists what a site currently holds.
func (s *Service) SiteItems(ctx context.Context, siteID uint) ([]ledger.Holding, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&entity.Site{}).Where("id = ?", siteID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.NotFoundf("site", siteID)
	}
	return ledger.SiteHoldings(s.db.WithContext(ctx), siteID)
}
