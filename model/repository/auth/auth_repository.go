package auth

import (
	"time"

	"gorm.io/gorm"

	entity "warehouse.GO/model/entity"
)

type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

// FindActiveEmployee returns an active employee by id.
func (r *AuthRepository) FindActiveEmployee(id uint) (*entity.Employee, error) {
	var e entity.Employee
	err := r.db.Where("id = ? AND active = ?", id, true).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindByUsername returns an employee regardless of the active flag, so the
// caller can tell a deactivated account from a wrong password.
func (r *AuthRepository) FindByUsername(username string) (*entity.Employee, error) {
	var e entity.Employee
	err := r.db.Where("username = ?", username).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// TouchLogin records the time of a successful login.
func (r *AuthRepository) TouchLogin(id uint, at time.Time) error {
	return r.db.Model(&entity.Employee{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}
