package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"warehouse.GO/config"
	authRepo "warehouse.GO/model/repository/auth"
)

const principalKey = "principal"

// Middleware returns the auth middleware based on AUTH_TYPE.
func Middleware(db *gorm.DB, cfg *config.Config) echo.MiddlewareFunc {
	skipper := buildSkipper()
	switch cfg.AuthType {
	case "key":
		return keyAuth(cfg.APIKey, skipper)
	default:
		return tokenAuth(authRepo.NewAuthRepository(db), cfg, skipper)
	}
}

func buildSkipper() middleware.Skipper {
	skipPaths := config.GetAuthSkipperPaths()
	return func(c echo.Context) bool {
		path := c.Path()
		for _, skip := range skipPaths {
			if path == skip {
				return true
			}
		}
		return false
	}
}

func keyAuth(apiKey string, skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Validator: func(key string, c echo.Context) (bool, error) {
			if apiKey == "" || key != apiKey {
				return false, nil
			}
			c.Set(principalKey, &Principal{Username: "api", Static: true})
			return true, nil
		},
		Skipper: skipper,
	})
}

// tokenAuth accepts "Authorization: Bearer <jwt>" (or the static key). The
// SSE endpoint may pass the token as ?token= because EventSource cannot set
// headers.
func tokenAuth(repo *authRepo.AuthRepository, cfg *config.Config, skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup: "header:" + echo.HeaderAuthorization + ":Bearer ,query:token",
		Validator: func(token string, c echo.Context) (bool, error) {
			token = strings.TrimSpace(token)
			if cfg.APIKey != "" && token == cfg.APIKey {
				c.Set(principalKey, &Principal{Username: "api", Static: true})
				return true, nil
			}
			id, _, err := ParseToken(cfg.JWTSecret, token)
			if err != nil {
				return false, nil
			}
			emp, err := repo.FindActiveEmployee(id)
			if err != nil {
				return false, nil
			}
			c.Set(principalKey, FromEmployee(emp))
			return true, nil
		},
		Skipper: skipper,
	})
}

// Current returns the principal set by the middleware, or nil.
func Current(c echo.Context) *Principal {
	p, _ := c.Get(principalKey).(*Principal)
	return p
}

// SetCurrent is used by tests that bypass the middleware.
func SetCurrent(c echo.Context, p *Principal) { c.Set(principalKey, p) }

// RequirePermission rejects callers the policy does not allow.
func RequirePermission(perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !Allows(Current(c), perm) {
				return echo.NewHTTPError(http.StatusForbidden, "permission denied: "+perm)
			}
			return next(c)
		}
	}
}

func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !Current(c).IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			return next(c)
		}
	}
}
