package session

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/core/apperr"
	"warehouse.GO/core/auth"
)

func init() {
	api.RegisterModule(RegisterAuthRoutes)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func RegisterAuthRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/auth")

	// POST /api/auth/login – public (see config.GetAuthSkipperPaths)
	g.POST("/login", func(c echo.Context) error {
		var req loginRequest
		if err := api.Bind(c, &req); err != nil {
			return err
		}
		if req.Username == "" || req.Password == "" {
			return apperr.Validationf("username", "username and password are required")
		}
		e, err := a.Employees.Authenticate(c.Request().Context(), req.Username, req.Password)
		if err != nil {
			return err
		}
		token, exp, err := auth.IssueToken(a.Config.JWTSecret, a.Config.JWTTTL, e, time.Now())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{
			"token":     token,
			"expiresAt": exp,
			"user":      e,
		})
	})

	g.GET("/me", func(c echo.Context) error {
		p := auth.Current(c)
		if p == nil {
			return apperr.Unauthorizedf("not authenticated")
		}
		if p.ID == 0 {
			return c.JSON(http.StatusOK, echo.Map{"username": p.Username, "role": "admin", "static": true})
		}
		e, err := a.Employees.Get(c.Request().Context(), p.ID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, e)
	})

	g.POST("/password", func(c echo.Context) error {
		p := auth.Current(c)
		if p == nil || p.ID == 0 {
			return apperr.Forbiddenf("password change needs an employee login")
		}
		var req struct {
			Current string `json:"currentPassword"`
			New     string `json:"newPassword"`
		}
		if err := api.Bind(c, &req); err != nil {
			return err
		}
		if err := a.Employees.ChangePassword(c.Request().Context(), p.ID, req.Current, req.New); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
}
