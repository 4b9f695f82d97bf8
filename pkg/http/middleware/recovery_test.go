package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"AutoOptimiser/pkg/logger"
)

func TestRecoverTurnsPanicIntoError(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/runs", nil), httptest.NewRecorder())

	h := Recover(logger.Nop())(func(echo.Context) error { panic("nil session") })
	err := h(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 HTTPError, got %v", err)
	}
	if he.Internal == nil || he.Internal.Error() != "panic: nil session" {
		t.Fatalf("unexpected internal error %v", he.Internal)
	}
}

func TestRecoverPassesThrough(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/runs", nil), httptest.NewRecorder())
	want := errors.New("plain")
	if err := Recover(logger.Nop())(func(echo.Context) error { return want })(c); err != want {
		t.Fatalf("got %v", err)
	}
}
