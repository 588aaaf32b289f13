package inventory

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/core/apperr"
	"warehouse.GO/core/auth"
	invService "warehouse.GO/service/inventory"
)

func init() {
	api.RegisterModule(RegisterInventoryRoutes)
}

type itemBody struct {
	invService.Input
	Image     *string `json:"image"`
	ImageName string  `json:"imageName"`
}

func (b itemBody) input() (invService.Input, error) {
	in := b.Input
	f, clear, err := api.DecodeFile("image", b.ImageName, b.Image)
	if err != nil {
		return in, err
	}
	in.Image, in.ClearImage = f, clear
	return in, nil
}

func RegisterInventoryRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/inventory")
	svc := a.Inventory

	g.GET("", func(c echo.Context) error {
		limit, err := api.QueryInt(c, "limit", 0)
		if err != nil {
			return err
		}
		offset, err := api.QueryInt(c, "offset", 0)
		if err != nil {
			return err
		}
		low, _ := strconv.ParseBool(c.QueryParam("lowStock"))
		items, total, err := svc.List(c.Request().Context(), invService.Filter{
			Category: c.QueryParam("category"),
			Search:   c.QueryParam("search"),
			LowStock: low,
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, api.Page(items, total, limit, offset))
	}, auth.RequirePermission(auth.ViewInventory))

	g.GET("/categories", func(c echo.Context) error {
		cats, err := svc.Categories(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, cats)
	}, auth.RequirePermission(auth.ViewInventory))

	g.GET("/sku/:sku", func(c echo.Context) error {
		item, err := svc.GetBySKU(c.Request().Context(), c.Param("sku"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, item)
	}, auth.RequirePermission(auth.ViewInventory))

	g.GET("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		item, err := svc.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, item)
	}, auth.RequirePermission(auth.ViewInventory))

	// GET /api/inventory/:id/stock – ledger breakdown behind currentStock
	g.GET("/:id/stock", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		b, err := svc.Breakdown(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, b)
	}, auth.RequirePermission(auth.ViewInventory))

	g.POST("", func(c echo.Context) error {
		var body itemBody
		if err := api.Bind(c, &body); err != nil {
			return err
		}
		in, err := body.input()
		if err != nil {
			return err
		}
		item, err := svc.Create(c.Request().Context(), in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, item)
	}, auth.RequirePermission(auth.AddInventory))

	g.PUT("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body itemBody
		if err := api.Bind(c, &body); err != nil {
			return err
		}
		in, err := body.input()
		if err != nil {
			return err
		}
		item, err := svc.Update(c.Request().Context(), id, in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, item)
	}, auth.RequirePermission(auth.EditInventory))

	g.DELETE("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.Delete(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}, auth.RequirePermission(auth.DeleteInventory))

	// POST /api/inventory/import – CSV upsert by SKU (multipart field "file" or raw text/csv body)
	g.POST("/import", func(c echo.Context) error {
		start := time.Now()
		body := c.Request().Body
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return apperr.Validationf("file", "cannot read upload: %v", err)
			}
			defer f.Close()
			body = f
		}
		batch, err := api.QueryInt(c, "batchSize", 0)
		if err != nil {
			return err
		}
		res, err := svc.Import(c.Request().Context(), body, invService.ImportOptions{BatchSize: batch})
		if err != nil {
			return err
		}
		duration := time.Since(start).Milliseconds()
		c.Response().Header().Set("X-Request-Duration-ms", strconv.FormatInt(duration, 10))
		return c.JSON(http.StatusOK, res)
	}, auth.RequirePermission(auth.AddInventory))
}
