package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"AutoOptimiser/internal/domain/models"
	"AutoOptimiser/pkg/logger"
	"AutoOptimiser/pkg/queue"
)

// RunJobType is the queue message type of a submitted run.
const RunJobType = "run.optimise"

// RunPayload is the queued form of a run request.
type RunPayload struct {
	SessionID string            `json:"session_id"`
	Request   models.RunRequest `json:"request"`
}

// RunJob executes queued runs one at a time.
type RunJob struct {
	svc *RunService
	log *logger.Logger
}

var _ queue.Job = (*RunJob)(nil)

func NewRunJob(svc *RunService, lgr *logger.Logger) *RunJob {
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &RunJob{svc: svc, log: lgr}
}

func (j *RunJob) Type() string { return RunJobType }

// Handle runs the payload to completion. A busy engine is returned as an
// error so the queue retries later; failed runs are persisted, not retried.
func (j *RunJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.Decode[RunPayload](payload)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if snap, err := j.svc.store.Get(ctx, p.SessionID); err == nil && snap.Phase == models.PhaseStopped {
		j.log.Info("skipping stopped run", logger.String("session", p.SessionID))
		return nil
	}

	snap, err := j.svc.Run(ctx, p.SessionID, &p.Request)
	switch {
	case errors.Is(err, models.ErrAlreadyRunning):
		return err
	case err != nil && snap == nil:
		j.log.Error("run rejected", logger.String("session", p.SessionID), logger.Error(err))
		failed := &models.SessionSnapshot{
			ID:        p.SessionID,
			Variant:   j.svc.engine.Variant(),
			Phase:     models.PhaseFailed,
			Account:   p.Request.Settings(),
			Error:     err.Error(),
			StartedAt: time.Now(),
		}
		if serr := j.svc.store.Save(ctx, failed); serr != nil {
			j.log.Error("save rejected run", logger.String("session", p.SessionID), logger.Error(serr))
		}
		return nil
	case err != nil:
		j.log.Warn("run failed", logger.String("session", p.SessionID), logger.Error(err))
		return nil
	}
	j.log.Info("run completed",
		logger.String("session", snap.ID),
		logger.String("phase", string(snap.Phase)))
	return nil
}
