// Package site manages construction sites, the destinations of issued stock.
package site

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
)

type Service struct {
	db     *gorm.DB
	events events.Publisher
	log    *zap.Logger
}

func NewService(db *gorm.DB, pub events.Publisher, log *zap.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, events: pub, log: log}
}

type Input struct {
	Code          *string          `json:"code"`
	Name          *string          `json:"name"`
	Location      *string          `json:"location"`
	Address       *string          `json:"address"`
	ClientName    *string          `json:"clientName"`
	ClientContact *string          `json:"clientContact"`
	ClientEmail   *string          `json:"clientEmail"`
	Status        *string          `json:"status"`
	Budget        *decimal.Decimal `json:"budget"`
	StartDate     *time.Time       `json:"startDate"`
	EndDate       *time.Time       `json:"endDate"`
	Description   *string          `json:"description"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func (in Input) validate(creating bool) error {
	if creating || in.Code != nil {
		if str(in.Code) == "" {
			return apperr.Required("code")
		}
	}
	if creating || in.Name != nil {
		if str(in.Name) == "" {
			return apperr.Required("name")
		}
	}
	if in.Status != nil && !entity.ValidSiteStatus(str(in.Status)) {
		return apperr.Validationf("status", "status must be one of %s", strings.Join(entity.SiteStatuses, ", "))
	}
	if in.Budget != nil && in.Budget.IsNegative() {
		return apperr.Validationf("budget", "budget must not be negative")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return apperr.Validationf("endDate", "endDate is before startDate")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*entity.Site, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	site := &entity.Site{
		Code:          strings.ToUpper(str(in.Code)),
		Name:          str(in.Name),
		Location:      str(in.Location),
		Address:       str(in.Address),
		ClientName:    str(in.ClientName),
		ClientContact: str(in.ClientContact),
		ClientEmail:   str(in.ClientEmail),
		Status:        entity.SiteActive,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Description:   str(in.Description),
	}
	if in.Status != nil {
		site.Status = str(in.Status)
	}
	if in.Budget != nil {
		site.Budget = *in.Budget
	}
	if err := s.db.WithContext(ctx).Create(site).Error; err != nil {
		if apperr.IsDuplicate(err) {
			return nil, apperr.Conflictf("site code %s already exists", site.Code)
		}
		return nil, err
	}
	s.events.Publish(events.SiteCreated, site)
	return site, nil
}

func (s *Service) Update(ctx context.Context, id uint, in Input) (*entity.Site, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	set := func(col string, p *string) {
		if p != nil {
			updates[col] = strings.TrimSpace(*p)
		}
	}
	if in.Code != nil {
		updates["code"] = strings.ToUpper(str(in.Code))
	}
	set("name", in.Name)
	set("location", in.Location)
	set("address", in.Address)
	set("client_name", in.ClientName)
	set("client_contact", in.ClientContact)
	set("client_email", in.ClientEmail)
	set("status", in.Status)
	set("description", in.Description)
	if in.Budget != nil {
		updates["budget"] = *in.Budget
	}
	if in.StartDate != nil {
		updates["start_date"] = *in.StartDate
	}
	if in.EndDate != nil {
		updates["end_date"] = *in.EndDate
	}

	site, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(site).Updates(updates).Error; err != nil {
			if apperr.IsDuplicate(err) {
				return nil, apperr.Conflictf("site code %v already exists", updates["code"])
			}
			return nil, err
		}
	}
	site, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.events.Publish(events.SiteUpdated, site)
	return site, nil
}

// Delete removes a site that no transaction or transfer references.
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&entity.Transaction{}).Where("site_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflictf("site %d has %d transactions", id, n)
		}
		if err := tx.Model(&entity.StockTransfer{}).
			Where("from_site_id = ? OR to_site_id = ?", id, id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflictf("site %d is used by %d stock transfers", id, n)
		}
		res := tx.Delete(&entity.Site{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFoundf("site", id)
		}
		return nil
	})
}

func (s *Service) Get(ctx context.Context, id uint) (*entity.Site, error) {
	var site entity.Site
	if err := s.db.WithContext(ctx).First(&site, id).Error; err != nil {
		return nil, apperr.FromGorm(err, "site", id)
	}
	return &site, nil
}

type Filter struct {
	Status string
	Search string
}

func (s *Service) List(ctx context.Context, f Filter) ([]entity.Site, error) {
	q := s.db.WithContext(ctx).Model(&entity.Site{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(location) LIKE ?", like, like, like)
	}
	var out []entity.Site
	err := q.Order("name ASC").Find(&out).Error
	return out, err
}

// FindOrCreate resolves a site by name (case-insensitive) inside tx and
// creates an active site with a derived code when none matches.
func FindOrCreate(tx *gorm.DB, name string) (*entity.Site, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, apperr.Required("siteName")
	}
	var site entity.Site
	err := tx.Where("LOWER(name) = ?", strings.ToLower(name)).First(&site).Error
	if err == nil {
		return &site, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	base := CodeFromName(name)
	code := base
	for i := 2; ; i++ {
		var n int64
		if err := tx.Model(&entity.Site{}).Where("code = ?", code).Count(&n).Error; err != nil {
			return nil, false, err
		}
		if n == 0 {
			break
		}
		code = fmt.Sprintf("%s%d", base, i)
	}
	site = entity.Site{Code: code, Name: name, Status: entity.SiteActive}
	if err := tx.Create(&site).Error; err != nil {
		return nil, false, err
	}
	return &site, true, nil
}

// CodeFromName keeps up to six letters or digits of name, upper-cased.
func CodeFromName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if b.Len() == 6 {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "SITE"
	}
	return b.String()
}
