package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInterval  = errors.New("invalid date interval")
	ErrAlreadyRunning   = errors.New("optimisation already running")
	ErrNoHistory        = errors.New("at least one history interval is required")
	ErrNoCriteria       = errors.New("ranking criteria are required when optimisation is enabled")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionActive    = errors.New("session is still running")
	ErrNoSourceRecords  = errors.New("no optimisation records for paired history interval")
	ErrUnknownCriterion = errors.New("unknown ranking criterion")
	ErrInvalidFilter    = errors.New("invalid filter predicate")
	ErrUnknownVariant   = errors.New("unknown optimiser variant")
)

// SettingsMismatchError reports a result file whose header disagrees with the
// account settings fixed for the session.
type SettingsMismatchError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *SettingsMismatchError) Error() string {
	return fmt.Sprintf("settings mismatch: %s expected %q, got %q", e.Field, e.Expected, e.Actual)
}
