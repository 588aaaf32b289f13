package officeassets

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/core/auth"
	"warehouse.GO/service/officeasset"
)

func init() {
	api.RegisterModule(RegisterOfficeAssetRoutes)
}

type assetBody struct {
	officeasset.Input
	Image     *string `json:"image"`
	ImageName string  `json:"imageName"`
}

func RegisterOfficeAssetRoutes(apiGroup *echo.Group, a *app.App) {
	svc := a.OfficeAssets
	view := auth.RequirePermission(auth.ViewOfficeAssets)
	manage := auth.RequirePermission(auth.ManageOfficeAssets)

	g := apiGroup.Group("/office-assets")

	g.GET("", func(c echo.Context) error {
		list, err := svc.List(c.Request().Context(), c.QueryParam("category"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}, view)

	g.GET("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		asset, err := svc.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, asset)
	}, view)

	save := func(c echo.Context, id uint) error {
		var body assetBody
		if err := api.Bind(c, &body); err != nil {
			return err
		}
		in := body.Input
		var err error
		if in.Image, in.ClearImage, err = api.DecodeFile("image", body.ImageName, body.Image); err != nil {
			return err
		}
		if id == 0 {
			asset, err := svc.Create(c.Request().Context(), in)
			if err != nil {
				return err
			}
			return c.JSON(http.StatusCreated, asset)
		}
		asset, err := svc.Update(c.Request().Context(), id, in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, asset)
	}
	g.POST("", func(c echo.Context) error { return save(c, 0) }, manage)
	g.PUT("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		return save(c, id)
	}, manage)

	g.DELETE("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.Delete(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}, manage)

	g.POST("/:id/assign", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var in officeasset.AssignInput
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		txn, err := svc.Assign(c.Request().Context(), id, in, api.Actor(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, txn)
	}, manage)

	g.GET("/:id/transactions", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		list, err := svc.Transactions(c.Request().Context(), officeasset.TxnFilter{AssetID: id})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}, view)

	// --- /asset-transactions ---

	t := apiGroup.Group("/asset-transactions")

	t.GET("", func(c echo.Context) error {
		f := officeasset.TxnFilter{Status: strings.ToUpper(c.QueryParam("status"))}
		var err error
		if f.AssetID, err = api.QueryUint(c, "assetId"); err != nil {
			return err
		}
		if f.EmployeeID, err = api.QueryUint(c, "employeeId"); err != nil {
			return err
		}
		list, err := svc.Transactions(c.Request().Context(), f)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}, view)

	t.GET("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		txn, err := svc.Transaction(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, txn)
	}, view)

	t.POST("/:id/return", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var in officeasset.ReturnInput
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		txn, err := svc.Return(c.Request().Context(), id, in, api.Actor(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, txn)
	}, manage)

	t.DELETE("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.DeleteTransaction(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}, manage)
}
