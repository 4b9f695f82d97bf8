package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"AutoOptimiser/pkg/logger"
)

// RequestLogging writes one structured entry per request. Server errors are
// logged at error level, the rest at debug.
func RequestLogging(lgr *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("uri", req.RequestURI),
				logger.String("remote", c.RealIP()),
				logger.Int("status", status),
				logger.Duration("latency_ms", time.Since(start)),
			}
			if status >= 500 {
				if err != nil {
					fields = append(fields, logger.Error(err))
				}
				lgr.Error("http request", fields...)
			} else {
				lgr.Debug("http request", fields...)
			}
			return nil
		}
	}
}
