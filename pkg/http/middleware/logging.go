package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "CoinChart/pkg/logger"
)

// RequestLogging logs HTTP requests. 5xx responses are logged as errors and
// requests slower than slowThreshold as warnings.
func RequestLogging(l *applogger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	if l == nil {
		l = applogger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			latency := time.Since(start)
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("route", routeLabel(c)),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", c.Response().Status),
				applogger.Int64("bytes", c.Response().Size),
				applogger.Duration("latency", latency),
			}
			switch {
			case c.Response().Status >= 500:
				if err != nil {
					fields = append(fields, applogger.Error(err))
				}
				l.Error("http request failed", fields...)
			case slowThreshold > 0 && latency >= slowThreshold:
				l.Warn("http request slow", fields...)
			default:
				l.Debug("http request", fields...)
			}

			// Already written by c.Error above.
			return nil
		}
	}
}
