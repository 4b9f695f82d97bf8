package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"AutoOptimiser/internal/domain/models"
)

// runSession is the state of one Start call. sources is touched only by the
// run goroutine; everything read by other goroutines goes through mu.
type runSession struct {
	id      string
	req     models.RunRequest
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
	stopped atomic.Bool

	// history window -> interval reported for it by the tester
	sources map[models.DateInterval]models.DateInterval

	mu      sync.Mutex
	phase   models.Phase
	account models.AccountSettings
	results models.Results
	err     error
	ended   *time.Time
}

func newRunSession(id string, req models.RunRequest, now time.Time, cancel context.CancelFunc) *runSession {
	return &runSession{
		id:      id,
		req:     req,
		started: now,
		cancel:  cancel,
		done:    make(chan struct{}),
		sources: make(map[models.DateInterval]models.DateInterval),
		phase:   models.PhaseOptimizingHistory,
		account: req.Settings(),
	}
}

func (s *runSession) phaseNow() models.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *runSession) setPhase(p models.Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

func (s *runSession) accountNow() models.AccountSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

// captureAccount fixes the fields the request left empty.
func (s *runSession) captureAccount(actual models.AccountSettings) {
	s.mu.Lock()
	s.account.Fill(actual)
	s.mu.Unlock()
}

func (s *runSession) appendRecords(cat models.Category, recs []models.ResultRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch cat {
	case models.CategoryHistory:
		s.results.History = append(s.results.History, recs...)
	case models.CategoryForward:
		s.results.Forward = append(s.results.Forward, recs...)
	default:
		s.results.All = append(s.results.All, recs...)
	}
}

// sourceRecords returns the optimisation records collected for history window h.
func (s *runSession) sourceRecords(h models.DateInterval, replaced bool) []models.ResultRecord {
	key := h
	if !replaced {
		key = s.sources[h]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ResultRecord
	for i := range s.results.All {
		if s.results.All[i].Interval == key {
			out = append(out, s.results.All[i].Clone())
		}
	}
	return out
}

// end moves the session to a final phase. A failed session keeps no results.
func (s *runSession) end(p models.Phase, err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
	s.err = err
	s.ended = &at
	if err != nil {
		s.results = models.Results{}
	}
}

func (s *runSession) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *runSession) snapshot(variant string) *models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &models.SessionSnapshot{
		ID:        s.id,
		Variant:   variant,
		Phase:     s.phase,
		Account:   s.account,
		Results:   cloneResults(s.results),
		StartedAt: s.started,
	}
	if s.ended != nil {
		t := *s.ended
		snap.EndedAt = &t
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

func cloneResults(r models.Results) models.Results {
	return models.Results{
		All:     cloneRecords(r.All),
		History: cloneRecords(r.History),
		Forward: cloneRecords(r.Forward),
	}
}

func cloneRecords(in []models.ResultRecord) []models.ResultRecord {
	if in == nil {
		return nil
	}
	out := make([]models.ResultRecord, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
