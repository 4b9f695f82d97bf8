// Package terminal manages the lifecycle of one external tester process.
package terminal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

var ErrNotStarted = errors.New("terminal: process not started")

// Option configures Process.
type Option func(*Process)

// WithWorkDir sets the working directory of launched processes.
func WithWorkDir(dir string) Option {
	return func(p *Process) {
		p.dir = dir
	}
}

// WithEnv appends environment variables to the inherited environment.
func WithEnv(env ...string) Option {
	return func(p *Process) {
		p.env = append(p.env, env...)
	}
}

// WithExitHandler registers fn to be called from the wait goroutine after every exit.
func WithExitHandler(fn func(err error)) Option {
	return func(p *Process) {
		p.onExit = fn
	}
}

// Process starts one executable at a time and tracks its exit.
type Process struct {
	exe    string
	dir    string
	env    []string
	onExit func(error)

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// New returns a handle for exe. Nothing is started until Launch.
func New(exe string, opts ...Option) *Process {
	p := &Process{exe: exe}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Executable returns the path the handle launches.
func (p *Process) Executable() string { return p.exe }

// Launch starts the executable with args. It returns false without error
// when a previous launch is still running.
func (p *Process) Launch(args ...string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runningLocked() {
		return false, nil
	}

	cmd := exec.Command(p.exe, args...)
	cmd.Dir = p.dir
	if len(p.env) > 0 {
		cmd.Env = append(os.Environ(), p.env...)
	}
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("start %s: %w", p.exe, err)
	}

	done := make(chan struct{})
	p.cmd, p.done, p.err = cmd, done, nil

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.err = err
		handler := p.onExit
		p.mu.Unlock()
		close(done)
		if handler != nil {
			handler(err)
		}
	}()
	return true, nil
}

// IsRunning reports whether the last launched process has not exited yet.
func (p *Process) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runningLocked()
}

func (p *Process) runningLocked() bool {
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// AwaitExit blocks until the last launched process exits and returns its wait error.
func (p *Process) AwaitExit() error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return ErrNotStarted
	}
	<-done

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// AwaitExitTimeout waits at most d and reports whether the process exited.
func (p *Process) AwaitExitTimeout(d time.Duration) bool {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// Terminate kills the running process. It is a no-op when nothing runs.
func (p *Process) Terminate() error {
	p.mu.Lock()
	cmd := p.cmd
	running := p.runningLocked()
	p.mu.Unlock()
	if !running || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill %s: %w", p.exe, err)
	}
	return nil
}
