// Package apitest builds an echo instance over a throwaway database for the
// handler tests of the api packages.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/config"
	"warehouse.GO/core/auth"
	"warehouse.GO/core/testdb"
	"warehouse.GO/model/entity"
)

// Server is an echo instance with one module mounted under /api.
type Server struct {
	E   *echo.Echo
	App *app.App
	// As is the principal every request runs as; nil means anonymous.
	As *auth.Principal
}

// Admin is the default caller.
var Admin = &auth.Principal{ID: 0, Username: "api", Static: true}

func New(t *testing.T, module api.ModuleFunc, opts ...app.Option) *Server {
	t.Helper()
	db := testdb.Open(t)
	cfg := &config.Config{AppName: "test", IDRetryAttempts: 5, StockCacheTTL: time.Minute, Location: time.UTC}
	a := app.New(db, cfg, zap.NewNop(), opts...)
	s := &Server{E: echo.New(), App: a, As: Admin}
	s.E.HTTPErrorHandler = api.ErrorHandler(zap.NewNop())
	g := s.E.Group("/api", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.As != nil {
				auth.SetCurrent(c, s.As)
			}
			return next(c)
		}
	})
	module(g, a)
	return s
}

// Employee stores an employee and returns a principal acting as them.
func (s *Server) Employee(t *testing.T, username, role string, perms ...string) (*entity.Employee, *auth.Principal) {
	t.Helper()
	granted := entity.Permissions{}
	for _, p := range perms {
		granted[p] = true
	}
	e := &entity.Employee{Username: username, Name: username, Role: role, Active: true,
		Permissions: datatypes.NewJSONType(granted)}
	if err := s.App.DB.Create(e).Error; err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	p := &auth.Principal{ID: e.ID, Username: username, Role: role, Permissions: granted}
	return e, p
}

// Do sends a JSON request and returns the recorder.
func (s *Server) Do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, req)
	return rec
}

// DoRaw sends body as is with the given content type.
func (s *Server) DoRaw(t *testing.T, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, req)
	return rec
}

// ID formats an id for a path.
func ID(id uint) string { return strconv.FormatUint(uint64(id), 10) }

// Decode unmarshals the response body into v.
func Decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

// Expect fails the test when the status differs.
func Expect(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
	}
}
