package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"AutoOptimiser/internal/domain/models"
	"AutoOptimiser/internal/repository"
	"AutoOptimiser/pkg/cache"
)

type capturedQueue struct {
	mu       sync.Mutex
	payloads []json.RawMessage
}

func (q *capturedQueue) Enqueue(_ context.Context, msgType string, payload any) (string, error) {
	if msgType != RunJobType {
		return "", errors.New("unexpected type " + msgType)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	q.mu.Lock()
	q.payloads = append(q.payloads, b)
	q.mu.Unlock()
	return "msg", nil
}

func newService(t *testing.T, h *harness, opts ...RunServiceOption) *RunService {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	return NewRunService(h.opt, repository.NewCacheSessionStore(mc, time.Hour), nil, opts...)
}

func waitPhase(t *testing.T, svc *RunService, id string, want models.Phase) *models.SessionSnapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		// persisted sessions are dropped from the engine
		if _, err := svc.engine.Snapshot(id); errors.Is(err, models.ErrSessionNotFound) {
			snap, err := svc.Status(context.Background(), id)
			if err == nil && snap.Phase == want {
				return snap
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session %s never reached %s", id, want)
	return nil
}

func twoPassProducer(run testerRun) []models.ResultRecord {
	return []models.ResultRecord{
		record(run.window, 100, map[string]string{"fast": "10"}),
		record(run.window, 300, map[string]string{"fast": "20"}),
	}
}

func TestRunServiceSubmitPersistsAndRanks(t *testing.T) {
	h := newHarness(t, VariantHistory, false, twoPassProducer)
	svc := newService(t, h)

	req := baseRequest()
	req.History = []models.DateInterval{models.MustDateInterval(day(2020, 1, 1), day(2020, 7, 1))}
	id, err := svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap := waitPhase(t, svc, id, models.PhaseFinished)
	if len(snap.Results.All) != 2 {
		t.Fatalf("expected 2 stored records, got %d", len(snap.Results.All))
	}

	ranked, err := svc.Rank(context.Background(), id, models.CategoryAll, []models.Criterion{models.CritPL}, models.SortAscending, nil)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if ranked[0].Params["fast"] != "20" {
		t.Fatalf("expected best P/L first, got %v", ranked[0].Params)
	}

	noCmp := []models.FilterPredicate{{Criterion: models.CritPL, Threshold: 0}}
	if _, err := svc.Rank(context.Background(), id, models.CategoryAll, []models.Criterion{models.CritPL}, models.SortAscending, noCmp); !errors.Is(err, models.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}

	if err := svc.Clear(context.Background(), id); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := svc.Status(context.Background(), id); !errors.Is(err, models.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after clear, got %v", err)
	}
}

func TestRunServiceSubmitRejectsInvalid(t *testing.T) {
	h := newHarness(t, VariantHistory, false, twoPassProducer)
	svc := newService(t, h)
	if _, err := svc.Submit(context.Background(), baseRequest()); !errors.Is(err, models.ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}
}

func TestRunServiceQueuedRun(t *testing.T) {
	h := newHarness(t, VariantHistory, false, twoPassProducer)
	q := &capturedQueue{}
	svc := newService(t, h, WithQueue(q))
	job := NewRunJob(svc, nil)

	req := baseRequest()
	req.History = []models.DateInterval{models.MustDateInterval(day(2020, 1, 1), day(2020, 7, 1))}
	id, err := svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap, err := svc.Status(context.Background(), id)
	if err != nil || snap.Phase != models.PhaseQueued {
		t.Fatalf("expected queued session, got %v %v", snap, err)
	}
	if len(q.payloads) != 1 {
		t.Fatalf("expected one queued payload, got %d", len(q.payloads))
	}

	if err := job.Handle(context.Background(), q.payloads[0]); err != nil {
		t.Fatalf("handle: %v", err)
	}
	snap, err = svc.Status(context.Background(), id)
	if err != nil || snap.Phase != models.PhaseFinished || len(snap.Results.All) != 2 {
		t.Fatalf("unexpected status after job: %+v %v", snap, err)
	}
}

func TestRunServiceStopQueuedRun(t *testing.T) {
	h := newHarness(t, VariantHistory, false, twoPassProducer)
	q := &capturedQueue{}
	svc := newService(t, h, WithQueue(q))
	job := NewRunJob(svc, nil)

	req := baseRequest()
	req.History = []models.DateInterval{models.MustDateInterval(day(2020, 1, 1), day(2020, 7, 1))}
	id, err := svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.Stop(context.Background(), id); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := job.Handle(context.Background(), q.payloads[0]); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if n := len(h.tester.launches()); n != 0 {
		t.Fatalf("stopped queued run must not launch, got %d", n)
	}
	snap, _ := svc.Status(context.Background(), id)
	if snap.Phase != models.PhaseStopped {
		t.Fatalf("expected stopped, got %s", snap.Phase)
	}
}

func TestRunJobRetriesWhenBusy(t *testing.T) {
	h := newHarness(t, VariantHistory, false, twoPassProducer)
	h.tester.gate = make(chan struct{})
	h.tester.started = make(chan struct{}, 1)
	svc := newService(t, h)
	job := NewRunJob(svc, nil)

	req := baseRequest()
	req.History = []models.DateInterval{models.MustDateInterval(day(2020, 1, 1), day(2020, 7, 1))}
	id, err := svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-h.tester.started

	payload, _ := json.Marshal(RunPayload{SessionID: "second", Request: *req})
	if err := job.Handle(context.Background(), json.RawMessage(payload)); !errors.Is(err, models.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	close(h.tester.gate)
	waitPhase(t, svc, id, models.PhaseFinished)
}

func TestRegistry(t *testing.T) {
	if _, err := NewVariant("grid", OptimiserDeps{}, OptimiserConfig{}); !errors.Is(err, models.ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got %v", err)
	}
	names := Variants()
	if len(names) < 2 || names[0] != VariantHistory || names[1] != VariantWalkForward {
		t.Fatalf("unexpected variants %v", names)
	}
	o, err := NewVariant(VariantHistory, OptimiserDeps{}, OptimiserConfig{})
	if err != nil || o.Variant() != VariantHistory || o.runTests {
		t.Fatalf("history variant: %+v %v", o, err)
	}
}
