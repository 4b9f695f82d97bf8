package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"AutoOptimiser/internal/domain/models"
	"AutoOptimiser/internal/services/ranking"
	"AutoOptimiser/internal/usecase"
	xhttp "AutoOptimiser/pkg/http"
	xlogger "AutoOptimiser/pkg/logger"
)

// RankRequest selects, filters and orders one accumulator of a session.
type RankRequest struct {
	Category      models.Category          `json:"category" default:"all" validate:"oneof=all history forward"`
	Criteria      []models.Criterion       `json:"criteria" validate:"required,min=1"`
	SortDirection models.SortDirection     `json:"sort_direction" default:"asc" validate:"oneof=asc desc"`
	Filters       []models.FilterPredicate `json:"filters,omitempty"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Variant string `json:"variant"`
	Busy    bool   `json:"busy"`
	Error   string `json:"error,omitempty"`
}

type criterionInfo struct {
	Name      string `json:"name"`
	Ascending bool   `json:"ascending"`
}

// RunHandler exposes the run service over HTTP.
type RunHandler struct {
	logger *xlogger.Logger
	runs   *usecase.RunService
	events EventSource
}

func NewRunHandler(logger *xlogger.Logger, runs *usecase.RunService, events EventSource) *RunHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &RunHandler{logger: logger, runs: runs, events: events}
}

func (h *RunHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/criteria", h.Criteria)
	g.POST("/runs", h.Submit)
	g.GET("/runs/events", h.Events)
	g.GET("/runs/:id", h.Status)
	g.POST("/runs/:id/stop", h.Stop)
	g.DELETE("/runs/:id", h.Clear)
	g.POST("/runs/:id/rank", h.Rank)
}

func (h *RunHandler) Submit(c echo.Context) error {
	req := &models.RunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.Fail(c, verr)
	}

	id, err := h.runs.Submit(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "submit run", err)
	}
	return xhttp.Accepted(c, submitResponse{ID: id})
}

func (h *RunHandler) Status(c echo.Context) error {
	snap, err := h.runs.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "run status", err)
	}
	return xhttp.OK(c, snap)
}

func (h *RunHandler) Stop(c echo.Context) error {
	if err := h.runs.Stop(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, "stop run", err)
	}
	return xhttp.Accepted(c, submitResponse{ID: c.Param("id")})
}

func (h *RunHandler) Clear(c echo.Context) error {
	if err := h.runs.Clear(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, "clear run", err)
	}
	return xhttp.NoContent(c)
}

func (h *RunHandler) Rank(c echo.Context) error {
	req := &RankRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.Fail(c, verr)
	}

	recs, err := h.runs.Rank(c.Request().Context(), c.Param("id"), req.Category, req.Criteria, req.SortDirection, req.Filters)
	if err != nil {
		return h.fail(c, "rank run", err)
	}
	return xhttp.Rows(c, recs, len(recs))
}

// Health reports engine occupancy and the state of the result archive.
func (h *RunHandler) Health(c echo.Context) error {
	res := healthResponse{Status: "ok", Variant: h.runs.Variant(), Busy: h.runs.Busy()}
	if err := h.runs.Health(c.Request().Context()); err != nil {
		res.Status = "degraded"
		res.Error = err.Error()
		return xhttp.Respond(c, http.StatusServiceUnavailable, res)
	}
	return xhttp.OK(c, res)
}

// Criteria lists every ranking criterion with its preferred direction.
func (h *RunHandler) Criteria(c echo.Context) error {
	all := models.AllCriteria()
	out := make([]criterionInfo, 0, len(all))
	for _, crit := range all {
		out = append(out, criterionInfo{Name: crit.String(), Ascending: ranking.PrefersAscending(crit)})
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.Rows(c, out, len(out))
}

func (h *RunHandler) fail(c echo.Context, op string, err error) error {
	appErr := runErrors.Resolve(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", xlogger.String("path", c.Path()), xlogger.Error(err))
	}
	return xhttp.Fail(c, appErr)
}

var runErrors = xhttp.NewErrorMap().
	On(http.StatusNotFound, "ERR_NOT_FOUND", models.ErrSessionNotFound).
	On(http.StatusConflict, "ERR_CONFLICT", models.ErrAlreadyRunning, models.ErrSessionActive).
	On(http.StatusBadRequest, "ERR_BAD_REQUEST",
		models.ErrNoHistory,
		models.ErrNoCriteria,
		models.ErrInvalidInterval,
		models.ErrUnknownCriterion,
		models.ErrInvalidFilter).
	OnFunc(
		func(err error) bool {
			var mismatch *models.SettingsMismatchError
			return errors.As(err, &mismatch)
		},
		func(err error) *xhttp.AppError {
			var mismatch *models.SettingsMismatchError
			errors.As(err, &mismatch)
			return &xhttp.AppError{
				Code:    "ERR_SETTINGS_MISMATCH",
				Message: err.Error(),
				Field:   mismatch.Field,
				Params:  map[string]any{"expected": mismatch.Expected, "actual": mismatch.Actual},
				Status:  http.StatusUnprocessableEntity,
				Err:     err,
			}
		},
	)
