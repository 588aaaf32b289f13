package transfers

import (
	"context"
	"net/http"
	"testing"

	"warehouse.GO/api/apitest"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/stock"
	"warehouse.GO/service/transfer"
)

func seed(t *testing.T, s *apitest.Server) (*entity.InventoryItem, *entity.Site, *entity.Site) {
	t.Helper()
	item := &entity.InventoryItem{SKU: "CEM-50", Name: "Cement", InitialStock: 20, CurrentStock: 20}
	from := &entity.Site{Code: "DXB1", Name: "Dubai One", Status: entity.SiteActive}
	to := &entity.Site{Code: "SHJ2", Name: "Sharjah Two", Status: entity.SiteActive}
	for _, v := range []interface{}{item, from, to} {
		if err := s.App.DB.Create(v).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if _, err := s.App.Stock.Issue(context.Background(), stock.Input{ItemID: item.ID, SiteID: from.ID, Quantity: 6}, nil); err != nil {
		t.Fatalf("seed issue: %v", err)
	}
	return item, from, to
}

func TestTransfersAPI_Direct(t *testing.T) {
	s := apitest.New(t, RegisterTransferRoutes)
	item, from, to := seed(t, s)
	emp, _ := s.Employee(t, "ravi", entity.RoleStorekeeper)

	rec := s.Do(t, http.MethodPost, "/api/stock-transfers/direct", map[string]interface{}{
		"itemId": item.ID, "fromSiteId": from.ID, "toSiteId": to.ID, "quantity": 4, "employeeId": emp.ID,
	})
	apitest.Expect(t, rec, http.StatusCreated)
	var pair transfer.Pair
	apitest.Decode(t, rec, &pair)
	if pair.ReturnTxn == nil || pair.IssueTxn == nil || pair.Group == "" {
		t.Fatalf("pair = %+v", pair)
	}

	apitest.Expect(t, s.Do(t, http.MethodPost, "/api/stock-transfers/direct", map[string]interface{}{
		"itemId": item.ID, "fromSiteId": from.ID, "toSiteId": to.ID, "quantity": 3,
	}), http.StatusBadRequest)
	apitest.Expect(t, s.Do(t, http.MethodPost, "/api/stock-transfers/direct", map[string]interface{}{
		"itemId": item.ID, "fromSiteId": from.ID, "toSiteId": from.ID, "quantity": 1, "employeeId": emp.ID,
	}), http.StatusBadRequest)

	rec = s.Do(t, http.MethodGet, "/api/stock-transfers/sites/"+apitest.ID(to.ID)+"/items", nil)
	apitest.Expect(t, rec, http.StatusOK)
	var held []struct {
		Quantity int `json:"quantity"`
	}
	apitest.Decode(t, rec, &held)
	if len(held) != 1 || held[0].Quantity != 4 {
		t.Errorf("destination holdings = %s", rec.Body.String())
	}
}

func TestTransfersAPI_Workflow(t *testing.T) {
	s := apitest.New(t, RegisterTransferRoutes)
	item, from, to := seed(t, s)

	rec := s.Do(t, http.MethodPost, "/api/stock-transfers", map[string]interface{}{
		"fromSiteId": from.ID, "toSiteId": to.ID,
		"items": []map[string]interface{}{{"itemId": item.ID, "quantity": 2}},
	})
	apitest.Expect(t, rec, http.StatusCreated)
	var tr entity.StockTransfer
	apitest.Decode(t, rec, &tr)
	if tr.Status != entity.TransferPending {
		t.Fatalf("status = %s", tr.Status)
	}
	base := "/api/stock-transfers/" + apitest.ID(tr.ID)

	apitest.Expect(t, s.Do(t, http.MethodPost, base+"/approve", nil), http.StatusOK)
	apitest.Expect(t, s.Do(t, http.MethodPost, base+"/approve", nil), http.StatusConflict)
	apitest.Expect(t, s.Do(t, http.MethodPost, base+"/receive", nil), http.StatusOK)

	rec = s.Do(t, http.MethodGet, "/api/stock-transfers?status=received", nil)
	apitest.Expect(t, rec, http.StatusOK)
	var list []entity.StockTransfer
	apitest.Decode(t, rec, &list)
	if len(list) != 1 {
		t.Errorf("received = %d, want 1", len(list))
	}

	rec = s.Do(t, http.MethodGet, "/api/stock-transfers/history", nil)
	apitest.Expect(t, rec, http.StatusOK)
	var pairs []transfer.Pair
	apitest.Decode(t, rec, &pairs)
	if len(pairs) != 1 {
		t.Errorf("history = %d pairs, want 1", len(pairs))
	}
}
