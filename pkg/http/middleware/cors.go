package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowOrigins  []string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        int // seconds a preflight may be cached
}

// CORS returns CORS middleware. Rendered panes are fetched cross-origin by
// chart frontends, so Content-Type is exposed by default.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	wildcard := slices.Contains(cfg.AllowOrigins, "*")
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			h := c.Response().Header()
			h.Add(echo.HeaderVary, echo.HeaderOrigin)

			if len(cfg.AllowOrigins) > 0 && !wildcard && !slices.Contains(cfg.AllowOrigins, origin) {
				return next(c)
			}

			switch {
			case origin != "":
				h.Set(echo.HeaderAccessControlAllowOrigin, origin)
			case wildcard:
				h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			}
			if expose != "" {
				h.Set(echo.HeaderAccessControlExposeHeaders, expose)
			}

			// Handle preflight
			if c.Request().Method == http.MethodOptions {
				if methods != "" {
					h.Set(echo.HeaderAccessControlAllowMethods, methods)
				}
				if headers != "" {
					h.Set(echo.HeaderAccessControlAllowHeaders, headers)
				}
				if cfg.MaxAge > 0 {
					h.Set(echo.HeaderAccessControlMaxAge, strconv.Itoa(cfg.MaxAge))
				}
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}
