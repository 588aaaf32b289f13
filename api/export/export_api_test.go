package export

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"warehouse.GO/api/apitest"
	"warehouse.GO/app"
	"warehouse.GO/core/auth"
	"warehouse.GO/model/entity"
	svc "warehouse.GO/service/export"
)

type memorySink struct {
	name   string
	err    error
	sheets []svc.Sheet
}

func (m *memorySink) Name() string { return m.name }

func (m *memorySink) Write(_ context.Context, sheets []svc.Sheet) error {
	m.sheets = sheets
	return m.err
}

func TestExportAPI_Run(t *testing.T) {
	mem := &memorySink{name: "memory"}
	s := apitest.New(t, RegisterExportRoutes, app.WithSinks(mem))
	if err := s.App.DB.Create(&entity.InventoryItem{SKU: "CEM-1", Name: "Cement", InitialStock: 4}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := s.Do(t, http.MethodPost, "/api/export", nil)
	apitest.Expect(t, rec, http.StatusOK)
	var rep svc.Report
	apitest.Decode(t, rec, &rep)
	if rep.Rows["inventory"] != 1 || rep.Sinks["memory"] != "ok" {
		t.Errorf("report = %+v", rep)
	}
	if len(mem.sheets) == 0 {
		t.Error("sink received nothing")
	}
}

func TestExportAPI_SinkFailure(t *testing.T) {
	broken := &memorySink{name: "elasticsearch", err: errors.New("connection refused")}
	s := apitest.New(t, RegisterExportRoutes, app.WithSinks(broken))

	rec := s.Do(t, http.MethodPost, "/api/export", nil)
	apitest.Expect(t, rec, http.StatusBadGateway)
	var body struct {
		Report svc.Report `json:"report"`
	}
	apitest.Decode(t, rec, &body)
	if body.Report.Sinks["elasticsearch"] != "connection refused" {
		t.Errorf("report = %+v", body.Report)
	}
}

func TestExportAPI_NeedsPermission(t *testing.T) {
	s := apitest.New(t, RegisterExportRoutes, app.WithSinks())
	_, p := s.Employee(t, "clerk", entity.RoleEmployee, auth.ViewInventory)
	s.As = p
	apitest.Expect(t, s.Do(t, http.MethodPost, "/api/export", nil), http.StatusForbidden)
}
