package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/auth"
	"warehouse.GO/service/activity"
	"warehouse.GO/service/cdn"
)

var statusByKind = map[apperr.Kind]int{
	apperr.Validation:        http.StatusBadRequest,
	apperr.Unauthorized:      http.StatusUnauthorized,
	apperr.Forbidden:         http.StatusForbidden,
	apperr.NotFound:          http.StatusNotFound,
	apperr.Conflict:          http.StatusConflict,
	apperr.InsufficientStock: http.StatusUnprocessableEntity,
	apperr.Upstream:          http.StatusBadGateway,
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	if code, ok := statusByKind[apperr.KindOf(err)]; ok {
		return code
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders every handler error as {"error": msg, "code": kind, ...}.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := Status(err)
		body := echo.Map{}
		var ae *apperr.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			for k, v := range ae.Details() {
				body[k] = v
			}
			body["error"] = ae.Message
			body["code"] = string(ae.Kind)
		case errors.As(err, &he):
			body["error"] = http.StatusText(he.Code)
			if msg, ok := he.Message.(string); ok {
				body["error"] = msg
			}
		default:
			body["error"] = "internal server error"
		}
		if code >= http.StatusInternalServerError {
			log.Error("request failed", zap.String("path", c.Path()), zap.Int("status", code), zap.Error(err))
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

// Bind decodes the request body, reporting malformed input as a validation error.
func Bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return apperr.Validationf("body", "invalid request body: %v", err)
	}
	return nil
}

// ParamID parses a positive numeric path parameter.
func ParamID(c echo.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Validationf(name, "%s must be a positive integer", name)
	}
	return uint(n), nil
}

// QueryInt parses an optional integer query parameter.
func QueryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validationf(name, "%s must be an integer", name)
	}
	return n, nil
}

// QueryUint parses an optional id query parameter; 0 means absent.
func QueryUint(c echo.Context, name string) (uint, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validationf(name, "%s must be a positive integer", name)
	}
	return uint(n), nil
}

// Actor is the audit identity of the caller.
func Actor(c echo.Context) activity.Actor {
	p := auth.Current(c)
	if p == nil {
		return activity.Actor{}
	}
	return activity.Actor{ID: p.ID, Username: p.Username}
}

// ActorID is the caller's employee id, nil for the static key.
func ActorID(c echo.Context) *uint {
	return auth.Current(c).ActorID()
}

// Page wraps a list with its total.
func Page(list interface{}, total int64, limit, offset int) echo.Map {
	return echo.Map{"data": list, "total": total, "limit": limit, "offset": offset}
}

// DecodeFile turns a base64 (or data URL) body field into a file. A present
// but empty value means "remove the stored file".
func DecodeFile(field, name string, raw *string) (file *cdn.File, clear bool, err error) {
	if raw == nil {
		return nil, false, nil
	}
	if *raw == "" {
		return nil, true, nil
	}
	f, err := cdn.FromBase64(name, *raw)
	if err != nil {
		return nil, false, apperr.Validationf(field, "%s must be base64 encoded", field)
	}
	return &f, false, nil
}
