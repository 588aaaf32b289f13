package transfers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/core/auth"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/transfer"
)

func init() {
	api.RegisterModule(RegisterTransferRoutes)
}

func actor(c echo.Context) uint {
	if p := auth.Current(c); p != nil {
		return p.ID
	}
	return 0
}

func RegisterTransferRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/stock-transfers")
	svc := a.Transfers
	view := auth.RequirePermission(auth.ViewTransfers)
	approve := auth.RequirePermission(auth.ApproveTransfers)

	g.GET("", func(c echo.Context) error {
		f := transfer.Filter{Status: strings.ToUpper(c.QueryParam("status"))}
		var err error
		if f.SiteID, err = api.QueryUint(c, "siteId"); err != nil {
			return err
		}
		if f.Limit, err = api.QueryInt(c, "limit", 0); err != nil {
			return err
		}
		if f.Offset, err = api.QueryInt(c, "offset", 0); err != nil {
			return err
		}
		list, err := svc.List(c.Request().Context(), f)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}, view)

	// GET /api/stock-transfers/history – recent RETURN/ISSUE pairs
	g.GET("/history", func(c echo.Context) error {
		limit, err := api.QueryInt(c, "limit", 0)
		if err != nil {
			return err
		}
		pairs, err := svc.History(c.Request().Context(), limit)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, pairs)
	}, view)

	g.GET("/sites/:siteId/items", func(c echo.Context) error {
		id, err := api.ParamID(c, "siteId")
		if err != nil {
			return err
		}
		items, err := svc.SiteItems(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, items)
	}, view)

	// POST /api/stock-transfers/direct – move stock now, no approval step
	g.POST("/direct", func(c echo.Context) error {
		var in transfer.DirectInput
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		pair, err := svc.Transfer(c.Request().Context(), in, api.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, pair)
	}, auth.RequirePermission(auth.AddTransfers))

	g.POST("", func(c echo.Context) error {
		var in transfer.RequestInput
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		tr, err := svc.Request(c.Request().Context(), in, actor(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, tr)
	}, auth.RequirePermission(auth.AddTransfers))

	g.GET("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		tr, err := svc.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, tr)
	}, view)

	step := func(fn func(c echo.Context, id uint) (*entity.StockTransfer, error)) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := api.ParamID(c, "id")
			if err != nil {
				return err
			}
			tr, err := fn(c, id)
			if err != nil {
				return err
			}
			return c.JSON(http.StatusOK, tr)
		}
	}
	g.POST("/:id/approve", step(func(c echo.Context, id uint) (*entity.StockTransfer, error) {
		return svc.Approve(c.Request().Context(), id, actor(c))
	}), approve)
	g.POST("/:id/receive", step(func(c echo.Context, id uint) (*entity.StockTransfer, error) {
		return svc.Receive(c.Request().Context(), id)
	}), approve)
	g.POST("/:id/cancel", step(func(c echo.Context, id uint) (*entity.StockTransfer, error) {
		return svc.Cancel(c.Request().Context(), id)
	}), approve)
}
