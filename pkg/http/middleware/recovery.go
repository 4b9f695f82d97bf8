package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"

	"AutoOptimiser/pkg/logger"
)

const stackLimit = 4 << 10

// Recover converts a handler panic into a 500 HTTPError carrying the panic
// value as its internal error. http.ErrAbortHandler is re-panicked.
func Recover(lgr *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				cause, ok := r.(error)
				if !ok {
					cause = fmt.Errorf("panic: %v", r)
				}
				stack := make([]byte, stackLimit)
				stack = stack[:runtime.Stack(stack, false)]
				lgr.Error("http handler panic",
					logger.Error(cause),
					logger.String("method", c.Request().Method),
					logger.String("route", c.Path()),
					logger.Bool("committed", c.Response().Committed),
					logger.String("stack", string(stack)))
				err = echo.NewHTTPError(http.StatusInternalServerError).SetInternal(cause)
			}()
			return next(c)
		}
	}
}
