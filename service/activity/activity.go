// Package activity writes the audit trail. Writes are best effort: a failed
// audit row is logged and never fails the operation that produced it.
package activity

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"warehouse.GO/model/entity"
)

const (
	CheckIn          = "CHECKIN"
	CheckOut         = "CHECKOUT"
	EditAttendance   = "EDIT_ATTENDANCE"
	DeleteAttendance = "DELETE_ATTENDANCE"
	Approve          = "APPROVE_ATTENDANCE"
	Reject           = "REJECT_ATTENDANCE"
	Assign           = "ASSIGN"
	Unassign         = "UNASSIGN"
	AssetAssign      = "ASSET_ASSIGN"
	AssetReturn      = "ASSET_RETURN"
	Login            = "LOGIN"
)

// Actor identifies who did something.
type Actor struct {
	ID       uint
	Username string
}

type Logger struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(db *gorm.DB, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{db: db, log: log}
}

// Record stores one audit row. A nil Logger records nothing.
func (l *Logger) Record(ctx context.Context, action string, actor Actor, details map[string]interface{}) {
	if l == nil || l.db == nil {
		return
	}
	row := entity.ActivityLog{
		Action:   action,
		Username: actor.Username,
		Details:  datatypes.JSONMap(details),
	}
	if actor.ID != 0 {
		id := actor.ID
		row.EmployeeID = &id
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		l.log.Warn("activity log write failed", zap.String("action", action), zap.Error(err))
	}
}

type Filter struct {
	Action     string
	EmployeeID uint
	Since      *time.Time
	Limit      int
}

func (l *Logger) List(ctx context.Context, f Filter) ([]entity.ActivityLog, error) {
	q := l.db.WithContext(ctx).Model(&entity.ActivityLog{})
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.EmployeeID != 0 {
		q = q.Where("employee_id = ?", f.EmployeeID)
	}
	if f.Since != nil {
		q = q.Where("created_at >= ?", *f.Since)
	}
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 200
	}
	var out []entity.ActivityLog
	err := q.Order("id DESC").Limit(f.Limit).Find(&out).Error
	return out, err
}
