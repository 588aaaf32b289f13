// Package notification stores announcements for employees and pushes them
// to devices. A failed push is recorded on the notification, never returned.
package notification

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/notify"
)

// DefaultLifetime is how long a notification stays visible when no expiry
// date is given.
const DefaultLifetime = 48 * time.Hour

type Service struct {
	db       *gorm.DB
	notifier notify.Notifier
	events   events.Publisher
	log      *zap.Logger
	now      func() time.Time
}

func NewService(db *gorm.DB, n notify.Notifier, pub events.Publisher, log *zap.Logger) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, notifier: n, events: pub, log: log, now: time.Now}
}

type CreateInput struct {
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Type        string     `json:"type"`
	Recipients  []uint     `json:"recipients"`
	SendingDate *time.Time `json:"sendingDate"`
	ExpiryDate  *time.Time `json:"expiryDate"`
	// Push sends the notification to devices right away.
	Push bool `json:"sendNotifications"`
}

// Create stores a notification. Without recipients it is a broadcast.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID *uint) (*entity.Notification, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if in.Title == "" {
		return nil, apperr.Required("title")
	}
	if in.Message == "" {
		return nil, apperr.Required("message")
	}
	sending := s.now()
	if in.SendingDate != nil && !in.SendingDate.IsZero() {
		sending = *in.SendingDate
	}
	expiry := sending.Add(DefaultLifetime)
	if in.ExpiryDate != nil && !in.ExpiryDate.IsZero() {
		expiry = *in.ExpiryDate
	}
	if !expiry.After(sending) {
		return nil, apperr.Validationf("expiryDate", "expiry date must be after the sending date")
	}
	if in.Type == "" {
		in.Type = "general"
	}

	n := &entity.Notification{
		Title:       in.Title,
		Message:     in.Message,
		Type:        in.Type,
		Recipients:  datatypes.NewJSONType(in.Recipients),
		Broadcast:   len(in.Recipients) == 0,
		SendingDate: sending,
		ExpiryDate:  expiry,
		PushStatus:  entity.PushSkipped,
		CreatedBy:   actorID,
	}
	if in.Push {
		n.PushStatus = s.push(ctx, n, in.Recipients)
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	s.events.Publish(events.NotificationSent, n)
	return n, nil
}

func (s *Service) push(ctx context.Context, n *entity.Notification, to []uint) string {
	msg := notify.Message{
		Title:   n.Title,
		Body:    n.Message,
		UserIDs: to,
		Data:    map[string]interface{}{"type": n.Type},
	}
	if n.SendingDate.After(s.now()) {
		at := n.SendingDate
		msg.SendAfter = &at
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.log.Warn("push notification failed", zap.String("title", n.Title), zap.Error(err))
		return entity.PushFailed
	}
	return entity.PushSent
}

// ForEmployee lists the unexpired notifications addressed to an employee.
func (s *Service) ForEmployee(ctx context.Context, employeeID uint) ([]entity.Notification, error) {
	now := s.now()
	var rows []entity.Notification
	err := s.db.WithContext(ctx).
		Where("sending_date <= ? AND expiry_date > ?", now, now).
		Order("sending_date DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, n := range rows {
		if n.Targets(employeeID) {
			out = append(out, n)
		}
	}
	return out, nil
}

// All lists every notification, expired ones included.
func (s *Service) All(ctx context.Context) ([]entity.Notification, error) {
	var rows []entity.Notification
	err := s.db.WithContext(ctx).Order("sending_date DESC, id DESC").Find(&rows).Error
	return rows, err
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&entity.Notification{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("notification", id)
	}
	return nil
}

// PurgeExpired removes notifications that expired before cutoff.
func (s *Service) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expiry_date < ?", cutoff).Delete(&entity.Notification{})
	return res.RowsAffected, res.Error
}
