package transactions

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/core/apperr"
	"warehouse.GO/core/auth"
	"warehouse.GO/service/stock"
)

func init() {
	api.RegisterModule(RegisterTransactionRoutes)
}

func parseDate(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validationf(name, "%s must be RFC3339 or YYYY-MM-DD", name)
}

func RegisterTransactionRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/transactions")
	svc := a.Stock

	g.GET("", func(c echo.Context) error {
		f := stock.Filter{Type: strings.ToUpper(c.QueryParam("type"))}
		var err error
		if f.ItemID, err = api.QueryUint(c, "itemId"); err != nil {
			return err
		}
		if f.SiteID, err = api.QueryUint(c, "siteId"); err != nil {
			return err
		}
		if f.EmployeeID, err = api.QueryUint(c, "employeeId"); err != nil {
			return err
		}
		if f.From, err = parseDate(c, "from"); err != nil {
			return err
		}
		if f.To, err = parseDate(c, "to"); err != nil {
			return err
		}
		if f.Limit, err = api.QueryInt(c, "limit", 0); err != nil {
			return err
		}
		if f.Offset, err = api.QueryInt(c, "offset", 0); err != nil {
			return err
		}
		list, total, err := svc.List(c.Request().Context(), f)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, api.Page(list, total, f.Limit, f.Offset))
	}, auth.RequirePermission(auth.ViewTransactions))

	g.GET("/code/:code", func(c echo.Context) error {
		txn, err := svc.GetByCode(c.Request().Context(), c.Param("code"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, txn)
	}, auth.RequirePermission(auth.ViewTransactions))

	g.GET("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		txn, err := svc.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, txn)
	}, auth.RequirePermission(auth.ViewTransactions))

	// POST /api/transactions – {"type": "ISSUE"|"RETURN", "itemId", "siteId"|"siteName", "quantity", ...}
	g.POST("", func(c echo.Context) error {
		var in stock.Input
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		in.Type = strings.ToUpper(strings.TrimSpace(in.Type))
		txn, err := svc.Record(c.Request().Context(), in, api.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, txn)
	}, auth.RequirePermission(auth.AddTransactions))

	g.PUT("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var in stock.UpdateInput
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		if in.Type != nil {
			t := strings.ToUpper(strings.TrimSpace(*in.Type))
			in.Type = &t
		}
		txn, err := svc.Update(c.Request().Context(), id, in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, txn)
	}, auth.RequirePermission(auth.EditTransactions))

	g.DELETE("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.Delete(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}, auth.RequirePermission(auth.DeleteTransactions))
}
