package transfer

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/sequence"
)

type LineInput struct {
	ItemID   uint `json:"itemId"`
	Quantity int  `json:"quantity"`
}

type RequestInput struct {
	FromSiteID uint        `json:"fromSiteId"`
	ToSiteID   uint        `json:"toSiteId"`
	Items      []LineInput `json:"items"`
	Remark     string      `json:"remark"`
}

// Request stores a PENDING transfer. No stock moves until Approve.
func (s *Service) Request(ctx context.Context, in RequestInput, requestedBy uint) (*entity.StockTransfer, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Validationf("items", "at least one item is required")
	}
	for i, l := range in.Items {
		if l.ItemID == 0 {
			return nil, apperr.Required(fmt.Sprintf("items[%d].itemId", i))
		}
		if l.Quantity <= 0 {
			return nil, apperr.Validationf(fmt.Sprintf("items[%d].quantity", i), "quantity must be greater than 0")
		}
	}
	var tr *entity.StockTransfer
	err := sequence.WithRetry(s.attempts, func(int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, _, err := loadSites(tx, in.FromSiteID, in.ToSiteID); err != nil {
				return err
			}
			lines := make([]entity.StockTransferLine, 0, len(in.Items))
			for _, l := range in.Items {
				var n int64
				if err := tx.Model(&entity.InventoryItem{}).Where("id = ?", l.ItemID).Count(&n).Error; err != nil {
					return err
				}
				if n == 0 {
					return apperr.NotFoundf("inventory item", l.ItemID)
				}
				lines = append(lines, entity.StockTransferLine{ItemID: l.ItemID, Quantity: l.Quantity})
			}
			id, err := sequence.NextID(tx, "stock_transfers", "transfer_id", sequence.Transfer, s.now(), "")
			if err != nil {
				return err
			}
			tr = &entity.StockTransfer{
				TransferID:  id,
				FromSiteID:  in.FromSiteID,
				ToSiteID:    in.ToSiteID,
				RequestedBy: requestedBy,
				Status:      entity.TransferPending,
				Remark:      in.Remark,
				Lines:       lines,
			}
			return tx.Omit("FromSite", "ToSite", "Lines.Item").Create(tr).Error
		})
	})
	if err != nil {
		return nil, err
	}
	s.events.Publish(events.TransferCreated, tr)
	return tr, nil
}

// transition moves a transfer from one status to another with a conditional
// update, so exactly one of several concurrent callers wins.
func transition(tx *gorm.DB, id uint, from, to string, extra map[string]interface{}) error {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&entity.StockTransfer{}).Where("id = ? AND status = ?", id, from).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	var cur entity.StockTransfer
	if err := tx.Select("transfer_id", "status").First(&cur, id).Error; err != nil {
		return apperr.FromGorm(err, "stock transfer", id)
	}
	return apperr.Conflictf("stock transfer %s is %s, expected %s", cur.TransferID, cur.Status, from)
}

// Approve posts a RETURN/ISSUE pair for every line and moves the transfer to
// IN_TRANSIT, all in one transaction. A transfer that is not PENDING is a
// Conflict and nothing is written.
func (s *Service) Approve(ctx context.Context, id uint, approverID uint) (*entity.StockTransfer, error) {
	var pairs []Pair
	err := sequence.WithRetry(s.attempts, func(int) error {
		pairs = pairs[:0]
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			now := s.now()
			if err := transition(tx, id, entity.TransferPending, entity.TransferInTransit, map[string]interface{}{
				"approved_by": approverID,
				"approved_at": now,
			}); err != nil {
				return err
			}
			var tr entity.StockTransfer
			if err := tx.Preload("Lines").First(&tr, id).Error; err != nil {
				return apperr.FromGorm(err, "stock transfer", id)
			}
			from, to, err := loadSites(tx, tr.FromSiteID, tr.ToSiteID)
			if err != nil {
				return err
			}
			for _, l := range tr.Lines {
				p, err := movePair(tx, now, from, to, leg{
					itemID: l.ItemID, quantity: l.Quantity, employeeID: &tr.RequestedBy,
					transferID: &tr.ID, note: tr.TransferID,
				}, &approverID)
				if err != nil {
					return err
				}
				pairs = append(pairs, *p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.afterPairs(ctx, pairs)
	return s.publishTransfer(ctx, id)
}

// Receive marks an IN_TRANSIT transfer as delivered at the destination.
func (s *Service) Receive(ctx context.Context, id uint) (*entity.StockTransfer, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return transition(tx, id, entity.TransferInTransit, entity.TransferReceived, map[string]interface{}{"received_at": s.now()})
	})
	if err != nil {
		return nil, err
	}
	return s.publishTransfer(ctx, id)
}

// Cancel withdraws a PENDING transfer.
func (s *Service) Cancel(ctx context.Context, id uint) (*entity.StockTransfer, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return transition(tx, id, entity.TransferPending, entity.TransferCancelled, map[string]interface{}{"cancelled_at": s.now()})
	})
	if err != nil {
		return nil, err
	}
	return s.publishTransfer(ctx, id)
}

func (s *Service) publishTransfer(ctx context.Context, id uint) (*entity.StockTransfer, error) {
	tr, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.events.Publish(events.TransferUpdated, tr)
	return tr, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*entity.StockTransfer, error) {
	var tr entity.StockTransfer
	err := s.db.WithContext(ctx).Preload("Lines.Item").Preload("FromSite").Preload("ToSite").First(&tr, id).Error
	if err != nil {
		return nil, apperr.FromGorm(err, "stock transfer", id)
	}
	return &tr, nil
}

type Filter struct {
	Status string
	SiteID uint
	Limit  int
	Offset int
}

func (s *Service) List(ctx context.Context, f Filter) ([]entity.StockTransfer, error) {
	q := s.db.WithContext(ctx).Preload("Lines.Item").Preload("FromSite").Preload("ToSite")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.SiteID != 0 {
		q = q.Where("from_site_id = ? OR to_site_id = ?", f.SiteID, f.SiteID)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	var out []entity.StockTransfer
	err := q.Order("created_at DESC, id DESC").Limit(f.Limit).Offset(f.Offset).Find(&out).Error
	return out, err
}
