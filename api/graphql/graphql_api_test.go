package graphql

import (
	"context"
	"net/http"
	"testing"

	"warehouse.GO/api/apitest"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/stock"
)

type gqlResponse struct {
	Data   map[string]interface{} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func query(t *testing.T, s *apitest.Server, q string, vars map[string]interface{}) gqlResponse {
	t.Helper()
	rec := s.Do(t, http.MethodPost, "/api/graphql", map[string]interface{}{"query": q, "variables": vars})
	apitest.Expect(t, rec, http.StatusOK)
	var out gqlResponse
	apitest.Decode(t, rec, &out)
	return out
}

func TestGraphQL_ItemWithDerivedStock(t *testing.T) {
	s := apitest.New(t, RegisterGraphQLRoutes)
	ctx := context.Background()
	item := entity.InventoryItem{SKU: "CEM-1", Name: "Cement", Category: "Civil", InitialStock: 10, ReorderLevel: 8}
	if err := s.App.DB.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	site := entity.Site{Code: "DXB", Name: "Dubai One", Status: entity.SiteActive}
	if err := s.App.DB.Create(&site).Error; err != nil {
		t.Fatalf("seed site: %v", err)
	}
	if _, err := s.App.Stock.Record(ctx, stock.Input{Type: entity.TxnIssue, ItemID: item.ID, SiteID: site.ID, Quantity: 3}, nil); err != nil {
		t.Fatalf("issue: %v", err)
	}

	out := query(t, s, `query($sku: String!) { item(sku: $sku) { sku lowStock stock { initialStock issued currentStock } } }`,
		map[string]interface{}{"sku": "CEM-1"})
	if len(out.Errors) > 0 {
		t.Fatalf("errors: %+v", out.Errors)
	}
	got := out.Data["item"].(map[string]interface{})
	st := got["stock"].(map[string]interface{})
	if st["currentStock"] != float64(7) || st["issued"] != float64(3) || got["lowStock"] != true {
		t.Errorf("item = %+v", got)
	}

	out = query(t, s, `query($id: ID!) { siteHoldings(siteId: $id) { sku quantity } }`,
		map[string]interface{}{"id": apitest.ID(site.ID)})
	holdings := out.Data["siteHoldings"].([]interface{})
	if len(holdings) != 1 || holdings[0].(map[string]interface{})["quantity"] != float64(3) {
		t.Errorf("holdings = %+v", holdings)
	}

	out = query(t, s, `{ _extension(name: "stockBreakdown", args: "{\"sku\":\"CEM-1\"}") }`, nil)
	if len(out.Errors) > 0 || out.Data["_extension"] == nil {
		t.Errorf("extension = %+v", out)
	}
}

func TestGraphQL_PermissionDenied(t *testing.T) {
	s := apitest.New(t, RegisterGraphQLRoutes)
	_, p := s.Employee(t, "guest", entity.RoleLabor)
	s.As = p

	out := query(t, s, `{ items { totalCount } }`, nil)
	if len(out.Errors) == 0 {
		t.Fatal("want permission error")
	}
}
