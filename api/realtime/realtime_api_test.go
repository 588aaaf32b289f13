package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"warehouse.GO/api/apitest"
	"warehouse.GO/core/events"
	"warehouse.GO/model/entity"
)

func TestRealtimeAPI_StockLookup(t *testing.T) {
	s := apitest.New(t, RegisterRealtimeRoutes)
	item := entity.InventoryItem{SKU: "CEM-1", Name: "Cement", CurrentStock: 4, ReorderLevel: 5}
	if err := s.App.DB.Create(&item).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := s.Do(t, http.MethodGet, "/api/realtime/stock?sku=CEM-1", nil)
	apitest.Expect(t, rec, http.StatusOK)
	if rec.Header().Get("X-Request-Duration-ms") == "" {
		t.Error("missing duration header")
	}
	var got struct {
		CurrentStock int  `json:"currentStock"`
		LowStock     bool `json:"lowStock"`
	}
	apitest.Decode(t, rec, &got)
	if got.CurrentStock != 4 || !got.LowStock {
		t.Errorf("stock = %+v", got)
	}

	apitest.Expect(t, s.Do(t, http.MethodGet, "/api/realtime/stock?sku=NOPE", nil), http.StatusNotFound)
	apitest.Expect(t, s.Do(t, http.MethodGet, "/api/realtime/stock", nil), http.StatusBadRequest)
	apitest.Expect(t, s.Do(t, http.MethodGet, "/api/realtime/stock/batch?skus=CEM-1,NOPE", nil), http.StatusOK)
}

func TestRealtimeAPI_EventStream(t *testing.T) {
	s := apitest.New(t, RegisterRealtimeRoutes)
	srv := httptest.NewServer(s.E)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/realtime/events?events="+events.InventoryUpdated, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, ": connected") {
		t.Fatalf("first line = %q, %v", line, err)
	}

	s.App.Bus.Publish(events.SiteCreated, map[string]string{"code": "SKIP"})
	s.App.Bus.Publish(events.InventoryUpdated, map[string]string{"sku": "CEM-1"})

	var got []string
	for len(got) < 2 {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, ":") {
			got = append(got, line)
		}
	}
	if got[0] != "event: "+events.InventoryUpdated || !strings.Contains(got[1], `"sku":"CEM-1"`) {
		t.Errorf("stream = %q", got)
	}
}
