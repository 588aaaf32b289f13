// Package attendance tracks check-in/check-out sessions. An employee has at
// most one open session at a time; the database enforces it through the
// unique open_slot column. Durations are stored in whole seconds.
package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/activity"
	"warehouse.GO/service/notify"
)

const DateLayout = "2006-01-02"

// Actor is the authenticated caller. CanApprove is the approveAttendance
// capability (admins always have it).
type Actor struct {
	ID         uint
	Username   string
	CanApprove bool
}

func (a Actor) audit() activity.Actor { return activity.Actor{ID: a.ID, Username: a.Username} }

type Service struct {
	db       *gorm.DB
	events   events.Publisher
	notifier notify.Notifier
	audit    *activity.Logger
	log      *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLocation sets the zone that decides which calendar day a session
// belongs to.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

func WithNotifier(n notify.Notifier) Option { return func(s *Service) { s.notifier = n } }

func NewService(db *gorm.DB, pub events.Publisher, audit *activity.Logger, log *zap.Logger, opts ...Option) *Service {
	s := &Service{db: db, events: pub, audit: audit, log: log, loc: time.Local, now: time.Now, notifier: notify.Nop{}}
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

// Location is a check-in or check-out position. Latitude and longitude are
// pointers so a missing value is told apart from the equator.
type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

func (l Location) point() (entity.GeoPoint, error) {
	if l.Latitude == nil || l.Longitude == nil || strings.TrimSpace(l.Address) == "" {
		return entity.GeoPoint{}, apperr.Validationf("location", "location data is required")
	}
	return entity.GeoPoint{Latitude: *l.Latitude, Longitude: *l.Longitude, Address: strings.TrimSpace(l.Address)}, nil
}

type CheckInInput struct {
	Location
	// EmployeeID checks in someone else. Requires Actor.CanApprove.
	EmployeeID  uint       `json:"employeeId"`
	Date        string     `json:"date"`
	CheckInTime *time.Time `json:"checkInTime"`
	Remarks     string     `json:"remarks"`
}

type CheckOutInput struct {
	Location
	CheckOutTime *time.Time `json:"checkOutTime"`
}

func (s *Service) target(actor Actor, employeeID uint) (uint, bool, error) {
	if employeeID == 0 || employeeID == actor.ID {
		return actor.ID, false, nil
	}
	if !actor.CanApprove {
		return 0, false, apperr.Forbiddenf("not allowed to record attendance for another employee")
	}
	return employeeID, true, nil
}

// CheckIn opens a session. A second open session for the same employee is a
// Conflict.
func (s *Service) CheckIn(ctx context.Context, in CheckInInput, actor Actor) (*entity.Attendance, error) {
	point, err := in.point()
	if err != nil {
		return nil, err
	}
	empID, onBehalf, err := s.target(actor, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	at := now
	if in.CheckInTime != nil && !in.CheckInTime.IsZero() {
		at = *in.CheckInTime
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = at.In(s.loc).Format(DateLayout)
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, apperr.Validationf("date", "date must be YYYY-MM-DD")
	}

	var rec *entity.Attendance
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var emp entity.Employee
		if err := tx.Select("id", "name").First(&emp, empID).Error; err != nil {
			return apperr.FromGorm(err, "employee", empID)
		}
		var open int64
		if err := tx.Model(&entity.Attendance{}).Where("employee_id = ? AND check_out IS NULL", empID).Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return apperr.Conflictf("please check out first before checking in again")
		}
		var today int64
		if err := tx.Model(&entity.Attendance{}).Where("employee_id = ? AND work_date = ?", empID, date).Count(&today).Error; err != nil {
			return err
		}
		slot := empID
		rec = &entity.Attendance{
			EmployeeID:      empID,
			Date:            date,
			SessionNumber:   int(today) + 1,
			CheckIn:         at,
			CheckInLocation: datatypes.NewJSONType(point),
			OpenSlot:        &slot,
			ApprovalStatus:  entity.ApprovalPending,
			Remarks:         in.Remarks,
		}
		if onBehalf {
			approve(rec, actor.ID, now)
		}
		if err := tx.Omit("Employee").Create(rec).Error; err != nil {
			if apperr.IsDuplicate(err) {
				return apperr.Conflictf("please check out first before checking in again")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rec.Derive()
	s.audit.Record(ctx, activity.CheckIn, actor.audit(), map[string]interface{}{
		"attendanceId": rec.ID, "employeeId": empID, "address": point.Address, "onBehalf": onBehalf,
	})
	s.events.Publish(events.AttendanceCreated, rec)
	if onBehalf {
		s.notifyEmployee(empID, "Attendance recorded",
			fmt.Sprintf("%s checked you in at %s", actor.Username, at.In(s.loc).Format("15:04")))
	}
	return rec, nil
}

func approve(rec *entity.Attendance, by uint, at time.Time) {
	rec.ApprovalStatus = entity.ApprovalApproved
	rec.ApprovedBy = &by
	rec.ApprovedAt = &at
	rec.RecordedBy = &by
}

// CheckOut closes the session with the given id and stores its duration.
func (s *Service) CheckOut(ctx context.Context, id uint, in CheckOutInput, actor Actor) (*entity.Attendance, error) {
	point, err := in.point()
	if err != nil {
		return nil, err
	}
	now := s.now()
	at := now
	if in.CheckOutTime != nil && !in.CheckOutTime.IsZero() {
		at = *in.CheckOutTime
	}

	var rec entity.Attendance
	var onBehalf bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, id).Error; err != nil {
			return apperr.FromGorm(err, "attendance record", id)
		}
		if _, onBehalf, err = s.target(actor, rec.EmployeeID); err != nil {
			return err
		}
		if !rec.IsOpen() {
			return apperr.Conflictf("attendance record %d is already checked out", id)
		}
		if at.Before(rec.CheckIn) {
			return apperr.Validationf("checkOutTime", "check-out cannot be before check-in")
		}
		secs := int64(at.Sub(rec.CheckIn) / time.Second)
		updates := map[string]interface{}{
			"check_out":          at,
			"check_out_location": datatypes.NewJSONType(point),
			"working_seconds":    secs,
			"open_slot":          nil,
		}
		if onBehalf && rec.ApprovalStatus == entity.ApprovalPending {
			updates["approval_status"] = entity.ApprovalApproved
			updates["approved_by"] = actor.ID
			updates["approved_at"] = now
		}
		res := tx.Model(&entity.Attendance{}).Where("id = ? AND check_out IS NULL", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflictf("attendance record %d is already checked out", id)
		}
		return tx.First(&rec, id).Error
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, activity.CheckOut, actor.audit(), map[string]interface{}{
		"attendanceId": rec.ID, "employeeId": rec.EmployeeID, "address": point.Address,
		"worked": FormatDuration(rec.WorkingSeconds),
	})
	s.events.Publish(events.AttendanceUpdated, &rec)
	if onBehalf {
		s.notifyEmployee(rec.EmployeeID, "Attendance recorded",
			fmt.Sprintf("%s checked you out at %s (%s)", actor.Username, at.In(s.loc).Format("15:04"), FormatDuration(rec.WorkingSeconds)))
	}
	return &rec, nil
}

// FormatDuration renders seconds as "8h 30m".
func FormatDuration(secs int64) string {
	return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
}

func (s *Service) notifyEmployee(employeeID uint, title, body string) {
	notify.Async(s.notifier, notify.Message{
		Title:   title,
		Body:    body,
		UserIDs: []uint{employeeID},
		Data:    map[string]interface{}{"type": "attendance"},
	}, s.log)
}
