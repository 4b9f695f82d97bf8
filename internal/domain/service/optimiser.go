package service

import (
	"context"

	"AutoOptimiser/internal/domain/models"
)

// StartOptions carries optional Start arguments.
type StartOptions struct {
	SessionID string
}

// StartOption configures one Start call.
type StartOption func(*StartOptions)

// WithSessionID makes Start use id instead of generating one.
func WithSessionID(id string) StartOption {
	return func(o *StartOptions) {
		o.SessionID = id
	}
}

// Optimiser drives one walk-forward session at a time.
type Optimiser interface {
	// Variant is the registry name the optimiser was built under.
	Variant() string

	// Start validates req and launches the session in the background.
	Start(ctx context.Context, req *models.RunRequest, opts ...StartOption) (string, error)

	// Stop asks the session to leave after the in-flight tester run exits.
	Stop(id string) error

	// ClearSession drops a finished session and its accumulators.
	ClearSession(id string) error

	// Wait blocks until the session leaves the running phases and returns
	// its final snapshot together with the error that ended it, if any.
	Wait(ctx context.Context, id string) (*models.SessionSnapshot, error)

	Snapshot(id string) (*models.SessionSnapshot, error)

	// Active reports whether a session is running.
	Active() bool
}
