package attendance

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/activity"
)

type EditInput struct {
	CheckIn  *time.Time `json:"checkIn"`
	CheckOut *time.Time `json:"checkOut"`
	// Reopen clears the check-out. Ignored when CheckOut is set.
	Reopen  bool    `json:"reopen"`
	Remarks *string `json:"remarks"`
}

// Edit corrects a session's times and recomputes its duration.
func (s *Service) Edit(ctx context.Context, id uint, in EditInput, actor Actor) (*entity.Attendance, error) {
	var rec entity.Attendance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, id).Error; err != nil {
			return apperr.FromGorm(err, "attendance record", id)
		}
		if in.CheckIn != nil {
			rec.CheckIn = *in.CheckIn
		}
		switch {
		case in.CheckOut != nil:
			out := *in.CheckOut
			rec.CheckOut = &out
		case in.Reopen:
			rec.CheckOut = nil
		}
		updates := map[string]interface{}{"check_in": rec.CheckIn}
		if rec.CheckOut != nil {
			if rec.CheckOut.Before(rec.CheckIn) {
				return apperr.Validationf("checkOut", "check-out cannot be before check-in")
			}
			updates["check_out"] = *rec.CheckOut
			updates["working_seconds"] = int64(rec.CheckOut.Sub(rec.CheckIn) / time.Second)
			updates["open_slot"] = nil
		} else {
			updates["check_out"] = nil
			updates["working_seconds"] = 0
			updates["open_slot"] = rec.EmployeeID
		}
		if in.Remarks != nil {
			updates["remarks"] = strings.TrimSpace(*in.Remarks)
		}
		if err := tx.Model(&entity.Attendance{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			if apperr.IsDuplicate(err) {
				return apperr.Conflictf("employee %d already has an open session", rec.EmployeeID)
			}
			return err
		}
		return tx.First(&rec, id).Error
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, activity.EditAttendance, actor.audit(), map[string]interface{}{"attendanceId": id})
	s.events.Publish(events.AttendanceUpdated, &rec)
	return &rec, nil
}

func (s *Service) decide(ctx context.Context, id uint, status, reason string, actor Actor) (*entity.Attendance, error) {
	var rec entity.Attendance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		res := tx.Model(&entity.Attendance{}).
			Where("id = ? AND approval_status = ?", id, entity.ApprovalPending).
			Updates(map[string]interface{}{
				"approval_status":  status,
				"approved_by":      actor.ID,
				"approved_at":      now,
				"rejection_reason": reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if err := tx.First(&rec, id).Error; err != nil {
			return apperr.FromGorm(err, "attendance record", id)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflictf("attendance record %d is already %s", id, rec.ApprovalStatus)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	action := activity.Approve
	if status == entity.ApprovalRejected {
		action = activity.Reject
	}
	s.audit.Record(ctx, action, actor.audit(), map[string]interface{}{"attendanceId": id, "reason": reason})
	s.events.Publish(events.AttendanceUpdated, &rec)
	return &rec, nil
}

// Approve moves a pending session to approved.
func (s *Service) Approve(ctx context.Context, id uint, actor Actor) (*entity.Attendance, error) {
	return s.decide(ctx, id, entity.ApprovalApproved, "", actor)
}

// Reject moves a pending session to rejected. A reason is required.
func (s *Service) Reject(ctx context.Context, id uint, reason string, actor Actor) (*entity.Attendance, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Required("reason")
	}
	return s.decide(ctx, id, entity.ApprovalRejected, reason, actor)
}

func (s *Service) Delete(ctx context.Context, id uint, actor Actor) error {
	res := s.db.WithContext(ctx).Delete(&entity.Attendance{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("attendance record", id)
	}
	s.audit.Record(ctx, activity.DeleteAttendance, actor.audit(), map[string]interface{}{"attendanceId": id})
	s.events.Publish(events.AttendanceDeleted, map[string]interface{}{"id": id})
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (*entity.Attendance, error) {
	var rec entity.Attendance
	if err := s.db.WithContext(ctx).Preload("Employee").First(&rec, id).Error; err != nil {
		return nil, apperr.FromGorm(err, "attendance record", id)
	}
	return &rec, nil
}

type Filter struct {
	Date       string
	EmployeeID uint
	Status     string
	From       string
	To         string
}

// List returns sessions newest check-in first.
func (s *Service) List(ctx context.Context, f Filter) ([]entity.Attendance, error) {
	q := s.db.WithContext(ctx).Preload("Employee")
	if f.Date != "" {
		q = q.Where("work_date = ?", f.Date)
	}
	if f.EmployeeID != 0 {
		q = q.Where("employee_id = ?", f.EmployeeID)
	}
	if f.Status != "" {
		q = q.Where("approval_status = ?", f.Status)
	}
	if f.From != "" {
		q = q.Where("work_date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("work_date <= ?", f.To)
	}
	var out []entity.Attendance
	err := q.Order("check_in DESC, id DESC").Find(&out).Error
	return out, err
}
