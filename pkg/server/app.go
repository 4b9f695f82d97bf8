package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AutoOptimiser/internal/domain/models"
	"AutoOptimiser/internal/middleware"
	"AutoOptimiser/internal/usecase"
	"AutoOptimiser/pkg/config"
	xhttp "AutoOptimiser/pkg/http"
	"AutoOptimiser/pkg/logger"
	"AutoOptimiser/pkg/queue"
)

// App encapsulates the application lifecycle.
type App struct {
	cfg    *config.Config
	log    *logger.Logger
	http   *xhttp.Server
	hub    *middleware.ProgressHub
	engine *usecase.Optimiser
	runs   *usecase.RunService
	queue  *queue.RedisQueue
}

// New assembles the App. q may be nil when the queue is disabled.
func New(
	cfg *config.Config,
	lgr *logger.Logger,
	httpServer *xhttp.Server,
	hub *middleware.ProgressHub,
	engine *usecase.Optimiser,
	runs *usecase.RunService,
	q *queue.RedisQueue,
) *App {
	return &App{
		cfg:    cfg,
		log:    lgr,
		http:   httpServer,
		hub:    hub,
		engine: engine,
		runs:   runs,
		queue:  q,
	}
}

// Run serves the API and the job queue until ctx ends or a termination
// signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.hub.Start(ctx)

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.log.Error("queue start failed", logger.Error(err))
			a.shutdown(context.WithoutCancel(ctx))
			return err
		}
	}

	if err := a.http.Start(); err != nil {
		a.log.Error("http server start error", logger.Error(err))
		a.shutdown(context.WithoutCancel(ctx))
		return err
	}
	a.log.Info("optimiser ready",
		logger.String("env", a.cfg.Environment),
		logger.String("variant", a.engine.Variant()),
		logger.String("addr", a.http.Addr()),
		logger.Bool("queue", a.queue != nil))

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	a.shutdown(context.WithoutCancel(ctx))
	return nil
}

// RunOnce executes req in the foreground without the HTTP server or queue
// and returns the final snapshot. Cancelling ctx stops the run.
func (a *App) RunOnce(ctx context.Context, req *models.RunRequest) (*models.SessionSnapshot, error) {
	a.hub.Start(ctx)
	defer a.shutdown(context.WithoutCancel(ctx))
	return a.runs.Run(ctx, "", req)
}

// Subscribe returns the run event stream, see ProgressHub.Subscribe.
func (a *App) Subscribe() (<-chan models.RunEvent, func()) {
	return a.hub.Subscribe()
}

// Runs is the run service the App drives.
func (a *App) Runs() *usecase.RunService { return a.runs }

// shutdown stops intake first, then the engine and the event hub.
// Infrastructure clients are closed by the injector's cleanup afterwards.
func (a *App) shutdown(ctx context.Context) {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.http.Stop(ctx); err != nil {
		a.log.Warn("http shutdown error", logger.Error(err))
	}

	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Warn("queue stop error", logger.Error(err))
		}
	}

	if a.engine.Active() {
		a.log.Warn("terminating running tester")
	}
	a.engine.Close()

	a.hub.Stop()
	a.log.Info("shutdown complete")
}
