package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is reported to the client under Status. Err stays server side.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Status  int            `json:"-"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// ValidationErrors lists every rejected field of one request.
type ValidationErrors []*AppError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

type errorRule struct {
	match func(error) bool
	build func(error) *AppError
}

// ErrorMap translates service errors into AppErrors. Rules are tried in
// the order they were added and the first match wins.
type ErrorMap struct {
	rules []errorRule
}

func NewErrorMap() *ErrorMap { return &ErrorMap{} }

// On reports any error wrapping one of targets under status and code,
// using the error text as the message.
func (m *ErrorMap) On(status int, code string, targets ...error) *ErrorMap {
	return m.OnFunc(
		func(err error) bool {
			for _, t := range targets {
				if errors.Is(err, t) {
					return true
				}
			}
			return false
		},
		func(err error) *AppError {
			return &AppError{Code: code, Message: err.Error(), Status: status, Err: err}
		},
	)
}

// OnFunc adds a rule with its own matcher and builder.
func (m *ErrorMap) OnFunc(match func(error) bool, build func(error) *AppError) *ErrorMap {
	m.rules = append(m.rules, errorRule{match: match, build: build})
	return m
}

// Resolve returns the AppError for err. An AppError passes through and
// anything unmatched becomes a bare 500.
func (m *ErrorMap) Resolve(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, r := range m.rules {
		if r.match(err) {
			return r.build(err)
		}
	}
	return &AppError{
		Code:    "ERR_INTERNAL",
		Message: http.StatusText(http.StatusInternalServerError),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}
