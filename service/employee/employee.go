// Package employee manages login identities: accounts, roles, permission sets
// and passwords.
package employee

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/auth"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
	authRepo "warehouse.GO/model/repository/auth"
	"warehouse.GO/service/activity"
	"warehouse.GO/service/ledger"
)

const MinPasswordLen = 6

type Service struct {
	db     *gorm.DB
	calc   *ledger.Calculator
	repo   *authRepo.AuthRepository
	events events.Publisher
	audit  *activity.Logger
	log    *zap.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, calc *ledger.Calculator, pub events.Publisher, audit *activity.Logger, log *zap.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, calc: calc, repo: authRepo.NewAuthRepository(db), events: pub, audit: audit, log: log, now: time.Now}
}

type Input struct {
	Username    *string            `json:"username"`
	Password    *string            `json:"password"`
	Name        *string            `json:"name"`
	Email       *string            `json:"email"`
	Phone       *string            `json:"phone"`
	Role        *string            `json:"role"`
	Designation *string            `json:"designation"`
	Permissions entity.Permissions `json:"permissions"`
	Active      *bool              `json:"active"`
	JoinedAt    *time.Time         `json:"joinedAt"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func validUsername(u string) error {
	if len(u) < 3 {
		return apperr.Validationf("username", "username must be at least 3 characters")
	}
	if strings.ContainsAny(u, " \t\n") {
		return apperr.Validationf("username", "username must not contain spaces")
	}
	return nil
}

func validPassword(p string) error {
	if len(p) < MinPasswordLen {
		return apperr.Validationf("password", "password must be at least %d characters", MinPasswordLen)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*entity.Employee, error) {
	username := strings.ToLower(str(in.Username))
	if err := validUsername(username); err != nil {
		return nil, err
	}
	if in.Password == nil {
		return nil, apperr.Required("password")
	}
	if err := validPassword(*in.Password); err != nil {
		return nil, err
	}
	name := str(in.Name)
	if name == "" {
		return nil, apperr.Required("name")
	}
	role := entity.RoleEmployee
	if in.Role != nil {
		role = str(in.Role)
	}
	if !entity.ValidRole(role) {
		return nil, apperr.Validationf("role", "unknown role %q", role)
	}
	hash, err := auth.HashPassword(*in.Password)
	if err != nil {
		return nil, err
	}
	e := &entity.Employee{
		Username:     username,
		PasswordHash: hash,
		Name:         name,
		Email:        str(in.Email),
		Phone:        str(in.Phone),
		Role:         role,
		Designation:  str(in.Designation),
		Permissions:  datatypes.NewJSONType(auth.Merge(auth.Defaults(), in.Permissions)),
		Active:       in.Active == nil || *in.Active,
		JoinedAt:     in.JoinedAt,
	}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		if apperr.IsDuplicate(err) {
			return nil, apperr.Conflictf("username %s is taken", username)
		}
		return nil, err
	}
	s.log.Info("employee created", zap.String("username", e.Username), zap.String("role", e.Role))
	s.events.Publish(events.EmployeeCreated, e)
	return e, nil
}

func (s *Service) Update(ctx context.Context, id uint, in Input) (*entity.Employee, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Username != nil {
		u := strings.ToLower(str(in.Username))
		if err := validUsername(u); err != nil {
			return nil, err
		}
		updates["username"] = u
	}
	if in.Password != nil {
		if err := validPassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}
	if in.Name != nil {
		if str(in.Name) == "" {
			return nil, apperr.Required("name")
		}
		updates["name"] = str(in.Name)
	}
	if in.Role != nil {
		if !entity.ValidRole(str(in.Role)) {
			return nil, apperr.Validationf("role", "unknown role %q", str(in.Role))
		}
		updates["role"] = str(in.Role)
	}
	for col, p := range map[string]*string{"email": in.Email, "phone": in.Phone, "designation": in.Designation} {
		if p != nil {
			updates[col] = str(p)
		}
	}
	if in.Permissions != nil {
		updates["permissions"] = datatypes.NewJSONType(auth.Merge(e.Granted(), in.Permissions))
	}
	if in.Active != nil {
		updates["active"] = *in.Active
	}
	if in.JoinedAt != nil {
		updates["joined_at"] = *in.JoinedAt
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(e).Updates(updates).Error; err != nil {
			if apperr.IsDuplicate(err) {
				return nil, apperr.Conflictf("username %v is taken", updates["username"])
			}
			return nil, err
		}
	}
	e, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.events.Publish(events.EmployeeUpdated, e)
	return e, nil
}

// Delete removes an employee together with their asset holdings. Movement
// history keeps the employee id. An employee cannot delete their own account.
func (s *Service) Delete(ctx context.Context, id uint, actorID uint) error {
	if id == actorID {
		return apperr.Forbiddenf("you cannot delete your own account")
	}
	var itemIDs []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.EmployeeAsset{}).Where("employee_id = ?", id).
			Distinct().Pluck("item_id", &itemIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("employee_id = ?", id).Delete(&entity.EmployeeAsset{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&entity.Employee{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFoundf("employee", id)
		}
		return ledger.Refresh(tx, itemIDs...)
	})
	if err != nil {
		return err
	}
	if s.calc != nil {
		s.calc.Forget(itemIDs...)
	}
	s.events.Publish(events.EmployeeDeleted, map[string]interface{}{"id": id, "releasedItems": itemIDs})
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (*entity.Employee, error) {
	var e entity.Employee
	if err := s.db.WithContext(ctx).Preload("Assets.Item").First(&e, id).Error; err != nil {
		return nil, apperr.FromGorm(err, "employee", id)
	}
	return &e, nil
}

type Filter struct {
	Role   string
	Active *bool
	Search string
}

func (s *Service) List(ctx context.Context, f Filter) ([]entity.Employee, error) {
	q := s.db.WithContext(ctx).Model(&entity.Employee{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(username) LIKE ?", like, like)
	}
	var out []entity.Employee
	err := q.Order("name ASC").Find(&out).Error
	return out, err
}

// Authenticate checks a username/password pair and stamps the login time.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entity.Employee, error) {
	e, err := s.repo.FindByUsername(strings.ToLower(strings.TrimSpace(username)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorizedf("invalid username or password")
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(e.PasswordHash, password) {
		return nil, apperr.Unauthorizedf("invalid username or password")
	}
	if !e.Active {
		return nil, apperr.Forbiddenf("account is deactivated")
	}
	at := s.now()
	if err := s.repo.TouchLogin(e.ID, at); err != nil {
		s.log.Warn("login timestamp not saved", zap.Uint("employee_id", e.ID), zap.Error(err))
	} else {
		e.LastLoginAt = &at
	}
	s.audit.Record(ctx, activity.Login, activity.Actor{ID: e.ID, Username: e.Username}, nil)
	return e, nil
}

func (s *Service) ChangePassword(ctx context.Context, id uint, current, next string) error {
	var e entity.Employee
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return apperr.FromGorm(err, "employee", id)
	}
	if !auth.CheckPassword(e.PasswordHash, current) {
		return apperr.Validationf("currentPassword", "current password is incorrect")
	}
	if err := validPassword(next); err != nil {
		return err
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&e).Update("password_hash", hash).Error
}

// EnsureAdmin creates the named admin account unless it exists already.
func (s *Service) EnsureAdmin(ctx context.Context, username, password, name string) (*entity.Employee, bool, error) {
	if e, err := s.repo.FindByUsername(strings.ToLower(username)); err == nil {
		return e, false, nil
	}
	role := entity.RoleAdmin
	e, err := s.Create(ctx, Input{Username: &username, Password: &password, Name: &name, Role: &role})
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}
