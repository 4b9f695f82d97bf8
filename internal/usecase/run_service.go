package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"AutoOptimiser/internal/domain/models"
	drepo "AutoOptimiser/internal/domain/repository"
	dsvc "AutoOptimiser/internal/domain/service"
	"AutoOptimiser/internal/services/ranking"
	"AutoOptimiser/pkg/logger"
	"AutoOptimiser/pkg/queue"
)

// RunService is the caller-facing API over the optimiser: it starts runs
// directly or through the job queue and persists every finished session.
type RunService struct {
	engine  dsvc.Optimiser
	store   drepo.SessionStore
	archive drepo.ResultArchive
	queue   queue.Publisher
	log     *logger.Logger
}

// RunServiceOption configures RunService.
type RunServiceOption func(*RunService)

// WithArchive stores records of finished sessions in a.
func WithArchive(a drepo.ResultArchive) RunServiceOption {
	return func(s *RunService) { s.archive = a }
}

// WithQueue makes Submit enqueue runs instead of starting them.
func WithQueue(q queue.Publisher) RunServiceOption {
	return func(s *RunService) { s.queue = q }
}

func NewRunService(engine dsvc.Optimiser, store drepo.SessionStore, lgr *logger.Logger, opts ...RunServiceOption) *RunService {
	s := &RunService{engine: engine, store: store, log: lgr}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

// Submit validates req and starts it, or queues it when a queue is set.
func (s *RunService) Submit(ctx context.Context, req *models.RunRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	if s.queue != nil {
		id := uuid.NewString()
		queued := &models.SessionSnapshot{
			ID:        id,
			Variant:   s.engine.Variant(),
			Phase:     models.PhaseQueued,
			Account:   req.Settings(),
			StartedAt: time.Now(),
		}
		if err := s.store.Save(ctx, queued); err != nil {
			return "", fmt.Errorf("save queued session: %w", err)
		}
		if _, err := s.queue.Enqueue(ctx, RunJobType, RunPayload{SessionID: id, Request: *req}); err != nil {
			_ = s.store.Delete(ctx, id)
			return "", fmt.Errorf("enqueue run: %w", err)
		}
		s.log.Info("run queued", logger.String("session", id))
		return id, nil
	}

	id, err := s.engine.Start(ctx, req)
	if err != nil {
		return "", err
	}
	go s.await(id)
	return id, nil
}

// Run starts req under id (generated when empty) and blocks until it ends.
// Cancelling ctx stops the session; the running tester is still awaited.
func (s *RunService) Run(ctx context.Context, id string, req *models.RunRequest) (*models.SessionSnapshot, error) {
	var opts []dsvc.StartOption
	if id != "" {
		opts = append(opts, dsvc.WithSessionID(id))
	}
	id, err := s.engine.Start(ctx, req, opts...)
	if err != nil {
		return nil, err
	}

	snap, runErr := s.engine.Wait(ctx, id)
	if ctx.Err() != nil && snap == nil {
		_ = s.engine.Stop(id)
		snap, runErr = s.engine.Wait(context.WithoutCancel(ctx), id)
	}
	if snap != nil {
		s.persist(context.WithoutCancel(ctx), snap)
	}
	return snap, runErr
}

func (s *RunService) await(id string) {
	snap, err := s.engine.Wait(context.Background(), id)
	if snap == nil {
		s.log.Error("await session", logger.String("session", id), logger.Error(err))
		return
	}
	s.persist(context.Background(), snap)
}

// persist saves snap, archives finished records and drops the engine copy.
func (s *RunService) persist(ctx context.Context, snap *models.SessionSnapshot) {
	if err := s.store.Save(ctx, snap); err != nil {
		s.log.Error("save session", logger.String("session", snap.ID), logger.Error(err))
		return
	}
	if s.archive != nil && snap.Phase == models.PhaseFinished {
		for _, cat := range []models.Category{models.CategoryAll, models.CategoryHistory, models.CategoryForward} {
			recs := snap.Results.Get(cat)
			if len(recs) == 0 {
				continue
			}
			if err := s.archive.StoreBatch(ctx, snap.ID, cat, recs); err != nil {
				s.log.Error("archive results",
					logger.String("session", snap.ID),
					logger.String("category", string(cat)),
					logger.Error(err))
			}
		}
	}
	if err := s.engine.ClearSession(snap.ID); err != nil && !errors.Is(err, models.ErrSessionNotFound) {
		s.log.Warn("clear engine session", logger.String("session", snap.ID), logger.Error(err))
	}
}

// Status returns the live session, falling back to the stored snapshot.
func (s *RunService) Status(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	snap, err := s.engine.Snapshot(id)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, models.ErrSessionNotFound) {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Stop stops a running session. A queued session is marked stopped and
// skipped when its job comes up.
func (s *RunService) Stop(ctx context.Context, id string) error {
	err := s.engine.Stop(id)
	if !errors.Is(err, models.ErrSessionNotFound) {
		return err
	}
	snap, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if snap.Phase != models.PhaseQueued {
		return nil
	}
	now := time.Now()
	snap.Phase = models.PhaseStopped
	snap.EndedAt = &now
	return s.store.Save(ctx, snap)
}

// Clear forgets a session that is not running.
func (s *RunService) Clear(ctx context.Context, id string) error {
	err := s.engine.ClearSession(id)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrSessionNotFound):
		if _, gerr := s.store.Get(ctx, id); gerr != nil {
			return gerr
		}
	default:
		return err
	}
	return s.store.Delete(ctx, id)
}

// Rank filters and orders one accumulator of a session for presentation.
func (s *RunService) Rank(ctx context.Context, id string, cat models.Category, criteria []models.Criterion,
	dir models.SortDirection, filters []models.FilterPredicate) ([]models.ResultRecord, error) {
	snap, err := s.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, c := range criteria {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %d", models.ErrUnknownCriterion, int(c))
		}
	}
	for _, f := range filters {
		if err := f.Check(); err != nil {
			return nil, err
		}
	}
	recs := ranking.Filter(snap.Results.Get(cat), filters)
	return ranking.Rank(recs, criteria, dir), nil
}

// Busy reports whether the engine is running a session.
func (s *RunService) Busy() bool { return s.engine.Active() }

// Health checks the optional archive. The engine itself has no remote state.
func (s *RunService) Health(ctx context.Context) error {
	if s.archive == nil {
		return nil
	}
	if err := s.archive.Health(ctx); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Variant is the name of the optimiser variant runs use.
func (s *RunService) Variant() string { return s.engine.Variant() }
