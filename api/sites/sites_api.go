package sites

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/core/auth"
	"warehouse.GO/service/site"
)

func init() {
	api.RegisterModule(RegisterSiteRoutes)
}

func RegisterSiteRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/sites")
	svc := a.Sites

	g.GET("", func(c echo.Context) error {
		list, err := svc.List(c.Request().Context(), site.Filter{
			Status: c.QueryParam("status"),
			Search: c.QueryParam("search"),
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}, auth.RequirePermission(auth.ViewSites))

	g.GET("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		s, err := svc.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, s)
	}, auth.RequirePermission(auth.ViewSites))

	// GET /api/sites/:id/items – stock currently deployed at the site
	g.GET("/:id/items", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		items, err := a.Transfers.SiteItems(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, items)
	}, auth.RequirePermission(auth.ViewSites))

	g.POST("", func(c echo.Context) error {
		var in site.Input
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		s, err := svc.Create(c.Request().Context(), in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, s)
	}, auth.RequirePermission(auth.AddSites))

	g.PUT("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var in site.Input
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		s, err := svc.Update(c.Request().Context(), id, in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, s)
	}, auth.RequirePermission(auth.EditSites))

	g.DELETE("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.Delete(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}, auth.RequirePermission(auth.DeleteSites))
}
