package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"warehouse.GO/app"
	"warehouse.GO/config"
	"warehouse.GO/core/testdb"
)

func TestHealth(t *testing.T) {
	db := testdb.Open(t)
	a := app.New(db, &config.Config{AppName: "warehouse", StockCacheTTL: time.Minute, Location: time.UTC}, zap.NewNop())
	e := echo.New()
	RegisterHealthRoute(e, a)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("closed db status = %d", rec.Code)
	}
}
