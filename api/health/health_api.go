package health

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"warehouse.GO/api"
	"warehouse.GO/app"
)

func init() {
	api.RegisterRoute(RegisterHealthRoute)
}

// RegisterHealthRoute mounts GET /health. It is on the auth skip list.
func RegisterHealthRoute(e *echo.Echo, a *app.App) {
	e.GET("/health", func(c echo.Context) error {
		body := echo.Map{"status": "ok", "app": a.Config.AppName, "time": time.Now().UTC()}
		sqlDB, err := a.DB.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			err = sqlDB.PingContext(ctx)
			cancel()
		}
		if err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		body["database"] = "ok"
		return c.JSON(http.StatusOK, body)
	})
}
