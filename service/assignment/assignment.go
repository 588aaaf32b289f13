// Package assignment hands warehouse stock to employees. An assigned quantity
// is out of stock for as long as the assignment exists.
package assignment

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/activity"
	"warehouse.GO/service/ledger"
	"warehouse.GO/service/stock"
)

type Service struct {
	db     *gorm.DB
	calc   *ledger.Calculator
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
	return &Service{db: db, calc: calc, events: pub, audit: audit, log: log, now: time.Now}
}

type Input struct {
	ItemID    uint   `json:"itemId"`
	Quantity  int    `json:"quantity"`
	Condition string `json:"condition"`
	Remarks   string `json:"remarks"`
}

// Assign gives quantity of an item to an employee. Like an ISSUE it fails
// with InsufficientStock when the item does not have enough.
func (s *Service) Assign(ctx context.Context, employeeID uint, in Input, actor activity.Actor) (*entity.EmployeeAsset, error) {
	if in.ItemID == 0 {
		return nil, apperr.Required("itemId")
	}
	if in.Quantity <= 0 {
		return nil, apperr.Validationf("quantity", "quantity must be greater than 0")
	}
	if in.Condition == "" {
		in.Condition = entity.ConditionNew
	}
	if !entity.ValidCondition(in.Condition) {
		return nil, apperr.Validationf("condition", "condition must be new, used or damaged")
	}

	var row *entity.EmployeeAsset
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := employeeExists(tx, employeeID); err != nil {
			return err
		}
		item, err := ledger.Lock(tx, in.ItemID)
		if err != nil {
			return err
		}
		b, err := ledger.Compute(tx, in.ItemID)
		if err != nil {
			return err
		}
		if b.Current < in.Quantity {
			return apperr.Insufficient(item.Name, b.Current, in.Quantity)
		}
		row = &entity.EmployeeAsset{
			EmployeeID: employeeID,
			ItemID:     in.ItemID,
			Quantity:   in.Quantity,
			Condition:  in.Condition,
			Remarks:    in.Remarks,
			AssignedAt: s.now(),
		}
		if err := tx.Omit("Item").Create(row).Error; err != nil {
			return err
		}
		return ledger.Refresh(tx, in.ItemID)
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, activity.Assign, actor, map[string]interface{}{
		"employeeId": employeeID, "itemId": in.ItemID, "quantity": in.Quantity,
	})
	s.changed(ctx, employeeID, in.ItemID)
	return row, nil
}

// UpdateQuantity sets a new quantity and/or condition on an assignment.
// Raising the quantity draws more stock and is checked like Assign.
func (s *Service) UpdateQuantity(ctx context.Context, employeeID, assignmentID uint, quantity int, condition string) (*entity.EmployeeAsset, error) {
	if quantity <= 0 {
		return nil, apperr.Validationf("quantity", "quantity must be greater than 0")
	}
	if condition != "" && !entity.ValidCondition(condition) {
		return nil, apperr.Validationf("condition", "condition must be new, used or damaged")
	}
	var row entity.EmployeeAsset
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", employeeID).First(&row, assignmentID).Error; err != nil {
			return apperr.FromGorm(err, "assignment", assignmentID)
		}
		item, err := ledger.Lock(tx, row.ItemID)
		if err != nil {
			return err
		}
		if delta := quantity - row.Quantity; delta > 0 {
			b, err := ledger.Compute(tx, row.ItemID)
			if err != nil {
				return err
			}
			if b.Current < delta {
				return apperr.Insufficient(item.Name, b.Current, delta)
			}
		}
		updates := map[string]interface{}{"quantity": quantity}
		if condition != "" {
			updates["item_condition"] = condition
			row.Condition = condition
		}
		if err := tx.Model(&entity.EmployeeAsset{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
			return err
		}
		row.Quantity = quantity
		return ledger.Refresh(tx, row.ItemID)
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, employeeID, row.ItemID)
	return &row, nil
}

// Remove ends an assignment and puts its quantity back into stock.
func (s *Service) Remove(ctx context.Context, employeeID, assignmentID uint, actor activity.Actor) error {
	var row entity.EmployeeAsset
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", employeeID).First(&row, assignmentID).Error; err != nil {
			return apperr.FromGorm(err, "assignment", assignmentID)
		}
		if _, err := ledger.Lock(tx, row.ItemID); err != nil {
			return err
		}
		if err := tx.Delete(&entity.EmployeeAsset{}, row.ID).Error; err != nil {
			return err
		}
		return ledger.Refresh(tx, row.ItemID)
	})
	if err != nil {
		return err
	}
	s.audit.Record(ctx, activity.Unassign, actor, map[string]interface{}{
		"employeeId": employeeID, "itemId": row.ItemID, "quantity": row.Quantity,
	})
	s.changed(ctx, employeeID, row.ItemID)
	return nil
}

func (s *Service) ListByEmployee(ctx context.Context, employeeID uint) ([]entity.EmployeeAsset, error) {
	if err := employeeExists(s.db.WithContext(ctx), employeeID); err != nil {
		return nil, err
	}
	var out []entity.EmployeeAsset
	err := s.db.WithContext(ctx).Preload("Item").Where("employee_id = ?", employeeID).Order("assigned_at DESC, id DESC").Find(&out).Error
	return out, err
}

func employeeExists(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&entity.Employee{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFoundf("employee", id)
	}
	return nil
}

func (s *Service) changed(ctx context.Context, employeeID, itemID uint) {
	s.calc.Forget(itemID)
	s.events.Publish(events.EmployeeUpdated, map[string]interface{}{"id": employeeID})
	stock.PublishStock(ctx, s.calc, s.events, s.log, itemID)
}
