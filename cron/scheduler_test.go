package cron

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"warehouse.GO/app"
	"warehouse.GO/config"
	"warehouse.GO/core/testdb"
	"warehouse.GO/model/entity"
)

func newApp(t *testing.T, cfg *config.Config) *app.App {
	t.Helper()
	cfg.StockCacheTTL = time.Minute
	cfg.Location = time.UTC
	return app.New(testdb.Open(t), cfg, zap.NewNop(), app.WithSinks())
}

func TestStartCron_SchedulesConfiguredJobs(t *testing.T) {
	defer Unregister("") // Jobs() locks the registry
	a := newApp(t, &config.Config{ExportSchedule: "0 2 * * *", ReconcileSchedule: "30 2 * * *"})
	c, err := StartCron(a)
	if err != nil {
		t.Fatalf("StartCron: %v", err)
	}
	defer c.Stop()
	if n := len(c.Entries()); n != 2 {
		t.Errorf("entries = %d, want 2 (purge has no schedule)", n)
	}
}

func TestStartCron_BadSchedule(t *testing.T) {
	defer Unregister("")
	a := newApp(t, &config.Config{ExportSchedule: "every night"})
	if _, err := StartCron(a); err == nil {
		t.Fatal("want error for bad schedule")
	}
}

func TestRunJob_ReconcileFixesDrift(t *testing.T) {
	defer Unregister("")
	a := newApp(t, &config.Config{})
	item := entity.InventoryItem{SKU: "CEM-1", Name: "Cement", InitialStock: 10, CurrentStock: 3}
	if err := a.DB.Create(&item).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := RunJob(context.Background(), a, "stock:reconcile"); err != nil {
		t.Fatalf("RunJob: %v", err)
	}
	var got entity.InventoryItem
	a.DB.First(&got, item.ID)
	if got.CurrentStock != 10 {
		t.Errorf("current_stock = %d, want 10", got.CurrentStock)
	}
	if err := RunJob(context.Background(), a, "nope"); err == nil {
		t.Error("want error for unknown job")
	}
}
