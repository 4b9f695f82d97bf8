package repository

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"AutoOptimiser/pkg/logger"
	"AutoOptimiser/pkg/terminal"
)

// TerminalRunner launches the strategy tester and waits for it to exit.
type TerminalRunner struct {
	proc    *terminal.Process
	login   string
	profile string
	timeout time.Duration
	log     *logger.Logger
}

// TerminalOption configures TerminalRunner.
type TerminalOption func(*TerminalRunner)

// WithLogin passes /login to every launch.
func WithLogin(login string) TerminalOption {
	return func(t *TerminalRunner) { t.login = login }
}

// WithProfile passes /profile to every launch.
func WithProfile(profile string) TerminalOption {
	return func(t *TerminalRunner) { t.profile = profile }
}

// WithRunTimeout kills a launch that runs longer than d. Zero waits forever.
func WithRunTimeout(d time.Duration) TerminalOption {
	return func(t *TerminalRunner) { t.timeout = d }
}

func NewTerminalRunner(proc *terminal.Process, lgr *logger.Logger, opts ...TerminalOption) *TerminalRunner {
	t := &TerminalRunner{proc: proc, log: lgr}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TerminalRunner) IsRunning() bool { return t.proc.IsRunning() }

// Run blocks until the tester exits. A non-zero exit is logged and not
// returned: the tester exits non-zero on some normal shutdowns and the
// result file is the only contract.
func (t *TerminalRunner) Run(ctx context.Context, configPath string) error {
	args := t.args(configPath)
	started, err := t.proc.Launch(args...)
	if err != nil {
		return err
	}
	if !started {
		return fmt.Errorf("terminal %s is already running", t.proc.Executable())
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- t.proc.AwaitExit() }()

	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			t.log.Warn("terminal exited with error",
				logger.String("config", configPath),
				logger.Int("code", exitErr.ExitCode()))
			return nil
		}
		return err
	case <-ctx.Done():
		t.log.Warn("terminating terminal", logger.String("config", configPath), logger.Error(ctx.Err()))
		if err := t.proc.Terminate(); err != nil {
			t.log.Error("terminate terminal", logger.Error(err))
		}
		<-done
		return ctx.Err()
	}
}

func (t *TerminalRunner) args(configPath string) []string {
	args := []string{"/config:" + configPath}
	if t.login != "" {
		args = append(args, "/login:"+t.login)
	}
	if t.profile != "" {
		args = append(args, "/profile:"+t.profile)
	}
	return args
}
