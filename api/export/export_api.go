package export

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/core/apperr"
	"warehouse.GO/core/auth"
)

func init() {
	api.RegisterModule(RegisterExportRoutes)
}

func RegisterExportRoutes(apiGroup *echo.Group, a *app.App) {
	// POST /api/export runs every configured sink. A partial failure still
	// returns the report so the caller sees which sink broke.
	apiGroup.POST("/export", func(c echo.Context) error {
		rep, err := a.Exporter.Run(c.Request().Context())
		if err != nil && rep == nil {
			return err
		}
		if err != nil {
			return c.JSON(api.Status(err), echo.Map{
				"error":  err.Error(),
				"code":   apperr.KindOf(err),
				"report": rep,
			})
		}
		return c.JSON(http.StatusOK, rep)
	}, auth.RequirePermission(auth.ExportData))
}
