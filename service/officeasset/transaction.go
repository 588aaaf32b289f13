package officeasset

import (
	"context"

	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/activity"
	"warehouse.GO/service/sequence"
)

type AssignInput struct {
	EmployeeID uint   `json:"employeeId"`
	Quantity   int    `json:"quantity"`
	Condition  string `json:"condition"`
	Remarks    string `json:"remarks"`
}

// Assign hands quantity of an asset to an employee. The stock decrement is a
// single conditional UPDATE; when no row matches the asset is short.
func (s *Service) Assign(ctx context.Context, assetID uint, in AssignInput, actor activity.Actor) (*entity.AssetTransaction, error) {
	if in.EmployeeID == 0 {
		return nil, apperr.Required("employeeId")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return nil, apperr.Validationf("quantity", "quantity must be greater than 0")
	}
	if in.Condition != "" && !entity.ValidCondition(in.Condition) {
		return nil, apperr.Validationf("condition", "condition must be new, used or damaged")
	}

	var txn *entity.AssetTransaction
	err := sequence.WithRetry(s.attempts, func(int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var a entity.OfficeAsset
			if err := tx.First(&a, assetID).Error; err != nil {
				return apperr.FromGorm(err, "office asset", assetID)
			}
			var n int64
			if err := tx.Model(&entity.Employee{}).Where("id = ?", in.EmployeeID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return apperr.NotFoundf("employee", in.EmployeeID)
			}
			res := tx.Model(&entity.OfficeAsset{}).
				Where("id = ? AND current_stock >= ?", assetID, in.Quantity).
				UpdateColumn("current_stock", gorm.Expr("current_stock - ?", in.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				var cur entity.OfficeAsset
				tx.Select("current_stock").First(&cur, assetID)
				return apperr.Insufficient(a.Name, cur.CurrentStock, in.Quantity)
			}
			now := s.now()
			code, err := sequence.NextID(tx, "asset_transactions", "transaction_id", sequence.AssetTransaction, now, "")
			if err != nil {
				return err
			}
			var by *uint
			if actor.ID != 0 {
				id := actor.ID
				by = &id
			}
			txn = &entity.AssetTransaction{
				TransactionID: code,
				AssetID:       assetID,
				EmployeeID:    in.EmployeeID,
				Type:          entity.AssetTxnAssign,
				Quantity:      in.Quantity,
				Status:        entity.AssetTxnActive,
				Condition:     in.Condition,
				Remarks:       in.Remarks,
				AssignedAt:    now,
				CreatedBy:     by,
			}
			return tx.Omit("Asset", "Employee").Create(txn).Error
		})
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, activity.AssetAssign, actor, map[string]interface{}{
		"transactionId": txn.TransactionID, "assetId": assetID, "employeeId": in.EmployeeID, "quantity": in.Quantity,
	})
	s.assetChanged(ctx, assetID)
	return txn, nil
}

type ReturnInput struct {
	Condition string `json:"condition"`
	Remarks   string `json:"remarks"`
}

// Return closes an ACTIVE hand-out and puts the quantity back. Returning a
// transaction twice is a Conflict.
func (s *Service) Return(ctx context.Context, txnID uint, in ReturnInput, actor activity.Actor) (*entity.AssetTransaction, error) {
	if in.Condition != "" && !entity.ValidCondition(in.Condition) {
		return nil, apperr.Validationf("condition", "condition must be new, used or damaged")
	}
	var txn entity.AssetTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&txn, txnID).Error; err != nil {
			return apperr.FromGorm(err, "asset transaction", txnID)
		}
		now := s.now()
		updates := map[string]interface{}{
			"status":           entity.AssetTxnReturned,
			"returned_at":      now,
			"return_condition": in.Condition,
		}
		if in.Remarks != "" {
			updates["remarks"] = in.Remarks
		}
		res := tx.Model(&entity.AssetTransaction{}).
			Where("id = ? AND status = ?", txnID, entity.AssetTxnActive).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflictf("asset transaction %s is already %s", txn.TransactionID, txn.Status)
		}
		return tx.Model(&entity.OfficeAsset{}).Where("id = ?", txn.AssetID).
			UpdateColumn("current_stock", gorm.Expr("current_stock + ?", txn.Quantity)).Error
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, activity.AssetReturn, actor, map[string]interface{}{
		"transactionId": txn.TransactionID, "assetId": txn.AssetID, "quantity": txn.Quantity,
	})
	s.assetChanged(ctx, txn.AssetID)
	return s.Transaction(ctx, txnID)
}

// DeleteTransaction removes a hand-out record. An ACTIVE one gives its
// quantity back to the asset first.
func (s *Service) DeleteTransaction(ctx context.Context, txnID uint) error {
	var txn entity.AssetTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&txn, txnID).Error; err != nil {
			return apperr.FromGorm(err, "asset transaction", txnID)
		}
		if err := tx.Delete(&entity.AssetTransaction{}, txnID).Error; err != nil {
			return err
		}
		if txn.Status != entity.AssetTxnActive {
			return nil
		}
		return tx.Model(&entity.OfficeAsset{}).Where("id = ?", txn.AssetID).
			UpdateColumn("current_stock", gorm.Expr("current_stock + ?", txn.Quantity)).Error
	})
	if err != nil {
		return err
	}
	s.assetChanged(ctx, txn.AssetID)
	return nil
}

func (s *Service) Transaction(ctx context.Context, id uint) (*entity.AssetTransaction, error) {
	var txn entity.AssetTransaction
	if err := s.db.WithContext(ctx).Preload("Asset").Preload("Employee").First(&txn, id).Error; err != nil {
		return nil, apperr.FromGorm(err, "asset transaction", id)
	}
	return &txn, nil
}

type TxnFilter struct {
	AssetID    uint
	EmployeeID uint
	Status     string
}

func (s *Service) Transactions(ctx context.Context, f TxnFilter) ([]entity.AssetTransaction, error) {
	q := s.db.WithContext(ctx).Preload("Asset").Preload("Employee")
	if f.AssetID != 0 {
		q = q.Where("asset_id = ?", f.AssetID)
	}
	if f.EmployeeID != 0 {
		q = q.Where("employee_id = ?", f.EmployeeID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []entity.AssetTransaction
	err := q.Order("assigned_at DESC, id DESC").Find(&out).Error
	return out, err
}

func (s *Service) assetChanged(ctx context.Context, id uint) {
	if a, err := s.Get(ctx, id); err == nil {
		s.events.Publish(events.AssetUpdated, a)
	}
}
