package resolvers

import (
	"strconv"
	"time"

	gql "github.com/graph-gophers/graphql-go"

	gqlmodels "warehouse.GO/graphql/models"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/ledger"
)

func id(v uint) gql.ID { return gql.ID(strconv.FormatUint(uint64(v), 10)) }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func mapBreakdown(b *ledger.Breakdown) *gqlmodels.StockBreakdown {
	if b == nil {
		return &gqlmodels.StockBreakdown{}
	}
	return &gqlmodels.StockBreakdown{
		InitialStock: int32(b.Initial),
		Delivered:    int32(b.Delivered),
		Issued:       int32(b.Issued),
		Returned:     int32(b.Returned),
		Assigned:     int32(b.Assigned),
		CurrentStock: int32(b.Current),
	}
}

// mapItem trusts b for the stock figures; item.CurrentStock may be stale.
func mapItem(item *entity.InventoryItem, b *ledger.Breakdown) *gqlmodels.Item {
	out := &gqlmodels.Item{
		ID:           id(item.ID),
		SKU:          item.SKU,
		Name:         item.Name,
		Category:     item.Category,
		Unit:         optional(item.Unit),
		UnitCost:     item.UnitCost.StringFixed(2),
		ReorderLevel: int32(item.ReorderLevel),
		Stock:        mapBreakdown(b),
	}
	out.LowStock = item.ReorderLevel > 0 && int(out.Stock.CurrentStock) <= item.ReorderLevel
	return out
}

func mapSite(s *entity.Site) *gqlmodels.Site {
	if s == nil {
		return nil
	}
	return &gqlmodels.Site{
		ID:       id(s.ID),
		Code:     s.Code,
		Name:     s.Name,
		Location: optional(s.Location),
		Status:   s.Status,
		Budget:   s.Budget.StringFixed(2),
	}
}

func mapHolding(h ledger.Holding) *gqlmodels.Holding {
	return &gqlmodels.Holding{ItemID: id(h.ItemID), SKU: h.SKU, Name: h.Name, Quantity: int32(h.Quantity)}
}

func mapTransfer(t *entity.StockTransfer) *gqlmodels.Transfer {
	out := &gqlmodels.Transfer{
		ID:         id(t.ID),
		TransferID: t.TransferID,
		Status:     t.Status,
		FromSite:   mapSite(t.FromSite),
		ToSite:     mapSite(t.ToSite),
		Remark:     optional(t.Remark),
		CreatedAt:  t.CreatedAt.UTC().Format(time.RFC3339),
		Lines:      make([]*gqlmodels.TransferLine, 0, len(t.Lines)),
	}
	for _, l := range t.Lines {
		line := &gqlmodels.TransferLine{Quantity: int32(l.Quantity)}
		if l.Item != nil {
			line.SKU, line.Name = l.Item.SKU, l.Item.Name
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}
