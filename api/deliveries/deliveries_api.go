package deliveries

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/core/apperr"
	"warehouse.GO/core/auth"
	"warehouse.GO/service/delivery"
)

func init() {
	api.RegisterModule(RegisterDeliveryRoutes)
}

type createBody struct {
	delivery.CreateInput
	Invoice     *string `json:"invoice"`
	InvoiceName string  `json:"invoiceName"`
}

type updateBody struct {
	delivery.UpdateInput
	Invoice     *string `json:"invoice"`
	InvoiceName string  `json:"invoiceName"`
}

func dateParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperr.Validationf(name, "%s must be YYYY-MM-DD", name)
	}
	return &t, nil
}

func RegisterDeliveryRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/deliveries")
	svc := a.Deliveries
	view := auth.RequirePermission(auth.ViewDeliveries)
	edit := auth.RequirePermission(auth.EditDeliveries)

	g.GET("", func(c echo.Context) error {
		f := delivery.Filter{Seller: c.QueryParam("seller")}
		var err error
		if f.ItemID, err = api.QueryUint(c, "itemId"); err != nil {
			return err
		}
		if f.From, err = dateParam(c, "from"); err != nil {
			return err
		}
		if f.To, err = dateParam(c, "to"); err != nil {
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
	}, view)

	g.GET("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		d, err := svc.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, d)
	}, view)

	g.POST("", func(c echo.Context) error {
		var body createBody
		if err := api.Bind(c, &body); err != nil {
			return err
		}
		in := body.CreateInput
		f, _, err := api.DecodeFile("invoice", body.InvoiceName, body.Invoice)
		if err != nil {
			return err
		}
		in.Invoice = f
		d, err := svc.Create(c.Request().Context(), in, api.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, d)
	}, auth.RequirePermission(auth.AddDeliveries))

	g.PUT("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body updateBody
		if err := api.Bind(c, &body); err != nil {
			return err
		}
		in := body.UpdateInput
		if in.Invoice, in.ClearInvoice, err = api.DecodeFile("invoice", body.InvoiceName, body.Invoice); err != nil {
			return err
		}
		d, err := svc.Update(c.Request().Context(), id, in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, d)
	}, edit)

	g.DELETE("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.Delete(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}, auth.RequirePermission(auth.DeleteDeliveries))

	g.POST("/:id/items", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var in delivery.LineInput
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		line, err := svc.AddLine(c.Request().Context(), id, in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, line)
	}, edit)

	g.PUT("/:id/items/:lineId", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		lineID, err := api.ParamID(c, "lineId")
		if err != nil {
			return err
		}
		var body struct {
			Quantity int `json:"quantity"`
		}
		if err := api.Bind(c, &body); err != nil {
			return err
		}
		line, err := svc.UpdateLine(c.Request().Context(), id, lineID, body.Quantity)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, line)
	}, edit)

	g.DELETE("/:id/items/:lineId", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		lineID, err := api.ParamID(c, "lineId")
		if err != nil {
			return err
		}
		if err := svc.DeleteLine(c.Request().Context(), id, lineID); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}, edit)
}
