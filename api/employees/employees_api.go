package employees

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/core/apperr"
	"warehouse.GO/core/auth"
	"warehouse.GO/service/assignment"
	"warehouse.GO/service/employee"
)

func init() {
	api.RegisterModule(RegisterEmployeeRoutes)
}

// selfOr lets employees read their own record without holding perm.
func selfOr(perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := auth.Current(c)
			if p != nil && p.ID != 0 && c.Param("id") == strconv.FormatUint(uint64(p.ID), 10) {
				return next(c)
			}
			if !auth.Allows(p, perm) {
				return apperr.Forbiddenf("permission denied: %s", perm)
			}
			return next(c)
		}
	}
}

func RegisterEmployeeRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/employees")
	svc := a.Employees
	assets := a.Assignments
	edit := auth.RequirePermission(auth.EditEmployees)

	g.GET("", func(c echo.Context) error {
		f := employee.Filter{Role: c.QueryParam("role"), Search: c.QueryParam("search")}
		if raw := c.QueryParam("active"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				return apperr.Validationf("active", "active must be true or false")
			}
			f.Active = &active
		}
		list, err := svc.List(c.Request().Context(), f)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}, auth.RequirePermission(auth.ViewEmployees))

	g.GET("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		e, err := svc.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, e)
	}, selfOr(auth.ViewEmployees))

	g.POST("", func(c echo.Context) error {
		var in employee.Input
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		e, err := svc.Create(c.Request().Context(), in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, e)
	}, auth.RequirePermission(auth.AddEmployees))

	g.PUT("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var in employee.Input
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		// role and permission changes are reserved for administrators
		if (in.Role != nil || in.Permissions != nil) && !auth.Current(c).IsAdmin() {
			return apperr.Forbiddenf("only administrators can change roles or permissions")
		}
		e, err := svc.Update(c.Request().Context(), id, in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, e)
	}, edit)

	g.DELETE("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var actorID uint
		if p := auth.Current(c); p != nil {
			actorID = p.ID
		}
		if err := svc.Delete(c.Request().Context(), id, actorID); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}, auth.RequirePermission(auth.DeleteEmployees))

	// --- asset holdings ---

	g.GET("/:id/assets", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		list, err := assets.ListByEmployee(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}, selfOr(auth.ViewEmployees))

	g.POST("/:id/assets", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var in assignment.Input
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		row, err := assets.Assign(c.Request().Context(), id, in, api.Actor(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, row)
	}, edit)

	g.PUT("/:id/assets/:assetId", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		assetID, err := api.ParamID(c, "assetId")
		if err != nil {
			return err
		}
		var body struct {
			Quantity  int    `json:"quantity"`
			Condition string `json:"condition"`
		}
		if err := api.Bind(c, &body); err != nil {
			return err
		}
		row, err := assets.UpdateQuantity(c.Request().Context(), id, assetID, body.Quantity, body.Condition)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, row)
	}, edit)

	g.DELETE("/:id/assets/:assetId", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		assetID, err := api.ParamID(c, "assetId")
		if err != nil {
			return err
		}
		if err := assets.Remove(c.Request().Context(), id, assetID, api.Actor(c)); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}, edit)
}
