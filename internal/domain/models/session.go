package models

import "time"

// Phase is the engine state of a session.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseQueued            Phase = "queued"
	PhaseOptimizingHistory Phase = "optimizing_history"
	PhaseConfirmingTests   Phase = "confirming_tests"
	PhaseFinished          Phase = "finished"
	PhaseStopped           Phase = "stopped"
	PhaseFailed            Phase = "failed"
)

// Running reports whether p is one of the Running sub-states.
func (p Phase) Running() bool {
	return p == PhaseOptimizingHistory || p == PhaseConfirmingTests
}

// Terminal reports whether no further transitions happen from p.
func (p Phase) Terminal() bool {
	return p == PhaseFinished || p == PhaseStopped || p == PhaseFailed
}

// Category selects one of the session accumulators.
type Category string

const (
	CategoryAll     Category = "all"
	CategoryHistory Category = "history"
	CategoryForward Category = "forward"
)

// Results holds the three accumulators of a run.
type Results struct {
	All     []ResultRecord `json:"all"`
	History []ResultRecord `json:"history"`
	Forward []ResultRecord `json:"forward"`
}

// Get returns the accumulator for c.
func (r *Results) Get(c Category) []ResultRecord {
	switch c {
	case CategoryHistory:
		return r.History
	case CategoryForward:
		return r.Forward
	default:
		return r.All
	}
}

// Len is the total number of records across accumulators.
func (r *Results) Len() int { return len(r.All) + len(r.History) + len(r.Forward) }

// SessionSnapshot is a point-in-time copy of a session for callers and storage.
type SessionSnapshot struct {
	ID        string          `json:"id"`
	Variant   string          `json:"variant"`
	Phase     Phase           `json:"phase"`
	Account   AccountSettings `json:"account"`
	Results   Results         `json:"results"`
	Error     string          `json:"error,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
}

// EventKind classifies RunEvent.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventFinished EventKind = "finished"
	EventStopped  EventKind = "stopped"
	EventFailed   EventKind = "failed"
)

// RunEvent is emitted synchronously from the orchestration goroutine.
type RunEvent struct {
	SessionID string    `json:"session_id"`
	Kind      EventKind `json:"kind"`
	Label     string    `json:"label,omitempty"`
	Percent   float64   `json:"percent"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}
