package notifications

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/core/auth"
	"warehouse.GO/service/notification"
)

func init() {
	api.RegisterModule(RegisterNotificationRoutes)
}

func RegisterNotificationRoutes(apiGroup *echo.Group, a *app.App) {
	svc := a.Notifications
	manage := auth.RequirePermission(auth.SendNotifications)
	g := apiGroup.Group("/notifications")

	// Own feed. The static key has no employee behind it and sees everything.
	g.GET("", func(c echo.Context) error {
		p := auth.Current(c)
		if p == nil || p.ID == 0 {
			list, err := svc.All(c.Request().Context())
			if err != nil {
				return err
			}
			return c.JSON(http.StatusOK, list)
		}
		list, err := svc.ForEmployee(c.Request().Context(), p.ID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}, auth.RequirePermission(auth.ViewNotifications))

	g.GET("/all", func(c echo.Context) error {
		list, err := svc.All(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}, manage)

	g.POST("", func(c echo.Context) error {
		var in notification.CreateInput
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		n, err := svc.Create(c.Request().Context(), in, api.ActorID(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, n)
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
}
