package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope wraps every JSON body the API writes.
type Envelope struct {
	Status  int    `json:"status" example:"200"`
	Message string `json:"message" example:"OK"`
	Data    any    `json:"data,omitempty"`
}

// Page is a list body with its total length.
type Page struct {
	Rows  any `json:"rows"`
	Total int `json:"total"`
}

// Respond writes data in the envelope with status.
func Respond(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	})
}

func OK(c echo.Context, data any) error {
	return Respond(c, http.StatusOK, data)
}

// Accepted reports work that continues after the response.
func Accepted(c echo.Context, data any) error {
	return Respond(c, http.StatusAccepted, data)
}

func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func Rows(c echo.Context, rows any, total int) error {
	return Respond(c, http.StatusOK, Page{Rows: rows, Total: total})
}

// Fail writes err as a list of errors. Validation failures are a 400, an
// AppError keeps its status and anything else is a 500.
func Fail(c echo.Context, err error) error {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return Respond(c, http.StatusBadRequest, verrs)
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return Respond(c, appErr.Status, []*AppError{appErr})
	}
	return Respond(c, http.StatusInternalServerError, []*AppError{{
		Code:    "ERR_INTERNAL",
		Message: http.StatusText(http.StatusInternalServerError),
	}})
}
