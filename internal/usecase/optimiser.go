package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"AutoOptimiser/internal/domain/models"
	drepo "AutoOptimiser/internal/domain/repository"
	dsvc "AutoOptimiser/internal/domain/service"
	"AutoOptimiser/internal/services/intervals"
	"AutoOptimiser/internal/services/ranking"
	"AutoOptimiser/pkg/logger"
	"AutoOptimiser/pkg/util"
)

// OptimiserDeps are the collaborators an Optimiser drives.
type OptimiserDeps struct {
	Terminal   drepo.Terminal
	Config     drepo.ConfigStore
	Parameters drepo.ParameterWriter
	Reports    drepo.ReportSource
	Events     drepo.EventSink // optional
	Metrics    drepo.Metrics   // optional
	Logger     *logger.Logger
}

// OptimiserConfig holds the file locations and run switches of the engine.
type OptimiserConfig struct {
	// WorkDir receives one tester configuration copy per session.
	WorkDir string
	// ParametersDir is where the tester looks for .set files.
	ParametersDir string
	// ReportFile is the result file the strategy appends to.
	ReportFile string
	// ReplaceDates records the requested window instead of the reported one.
	ReplaceDates     bool
	ShutdownOnFinish bool
	// TickModel is the price model used by tick confirmation runs.
	TickModel models.PriceModel
}

// Optimiser runs the history optimisation loop and, for walk-forward
// variants, the confirmation tests on matched windows.
type Optimiser struct {
	variant  string
	runTests bool
	deps     OptimiserDeps
	cfg      OptimiserConfig
	log      *logger.Logger
	metrics  drepo.Metrics
	events   drepo.EventSink
	newID    func() string
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*runSession
	active   string
}

var _ dsvc.Optimiser = (*Optimiser)(nil)

func newOptimiser(variant string, runTests bool, deps OptimiserDeps, cfg OptimiserConfig) *Optimiser {
	o := &Optimiser{
		variant:  variant,
		runTests: runTests,
		deps:     deps,
		cfg:      cfg,
		log:      deps.Logger,
		metrics:  deps.Metrics,
		events:   deps.Events,
		newID:    uuid.NewString,
		now:      time.Now,
		sessions: make(map[string]*runSession),
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	if o.metrics == nil {
		o.metrics = nopMetrics{}
	}
	if o.events == nil {
		o.events = nopSink{}
	}
	return o
}

func (o *Optimiser) Variant() string { return o.variant }

func (o *Optimiser) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active != ""
}

// Start validates req, registers a new session and runs it in the background.
// The session keeps ctx values but not its cancellation.
func (o *Optimiser) Start(ctx context.Context, req *models.RunRequest, opts ...dsvc.StartOption) (string, error) {
	if req == nil {
		return "", errors.New("start: nil request")
	}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("start: %w", err)
	}
	var so dsvc.StartOptions
	for _, opt := range opts {
		opt(&so)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != "" {
		return "", models.ErrAlreadyRunning
	}
	id := so.SessionID
	if id == "" {
		id = o.newID()
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := newRunSession(id, copyRequest(req), o.now(), cancel)
	o.sessions[id] = s
	o.active = id
	o.metrics.RecordPhase(string(models.PhaseOptimizingHistory))

	go o.run(runCtx, s)
	return id, nil
}

// Stop flags the session; the running tester is awaited before it takes effect.
func (o *Optimiser) Stop(id string) error {
	s, err := o.session(id)
	if err != nil {
		return err
	}
	if s.phaseNow().Running() {
		s.stopped.Store(true)
		o.log.Info("stop requested", logger.String("session", id))
	}
	return nil
}

func (o *Optimiser) ClearSession(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[id]
	if !ok {
		return models.ErrSessionNotFound
	}
	if s.phaseNow().Running() {
		return models.ErrSessionActive
	}
	delete(o.sessions, id)
	return nil
}

func (o *Optimiser) Wait(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	s, err := o.session(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
	}
	return s.snapshot(o.variant), s.failure()
}

func (o *Optimiser) Snapshot(id string) (*models.SessionSnapshot, error) {
	s, err := o.session(id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(o.variant), nil
}

// Close terminates the tester of every running session.
func (o *Optimiser) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, s := range o.sessions {
		s.stopped.Store(true)
		s.cancel()
	}
}

func (o *Optimiser) session(id string) (*runSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

func (o *Optimiser) run(ctx context.Context, s *runSession) {
	log := o.log.With(logger.String("session", s.id), logger.String("variant", o.variant))
	log.Info("optimisation started",
		logger.String("strategy", s.req.Strategy),
		logger.String("symbol", s.req.Symbol),
		logger.Int("history", len(s.req.History)),
		logger.Int("forward", len(s.req.Forward)))

	err := o.optimiseHistory(ctx, s, log)
	if err == nil && o.runTests && !s.stopped.Load() {
		err = o.confirm(ctx, s, log)
	}
	o.finish(s, err, log)
}

func (o *Optimiser) optimiseHistory(ctx context.Context, s *runSession, log *logger.Logger) error {
	n := len(s.req.History)
	for i, w := range s.req.History {
		if s.stopped.Load() {
			log.Info("leaving history loop on stop", logger.Int("done", i))
			return nil
		}

		recs, err := o.launch(ctx, s, launchSpec{
			window:       w,
			optimization: s.req.Optimization,
			model:        s.req.PriceModel,
			params:       s.req.Parameters,
			label:        "history",
		}, log)
		if err != nil {
			return err
		}

		if len(recs) > 0 {
			if distinctIntervals(recs) > 1 {
				log.Warn("tester reported several windows, normalising", logger.String("window", w.String()))
				for j := range recs {
					recs[j].Interval = w
				}
			}
			s.sources[w] = recs[0].Interval
			if o.cfg.ReplaceDates {
				for j := range recs {
					recs[j].Interval = w
				}
			}
			s.appendRecords(models.CategoryAll, recs)
			o.metrics.RecordRecords(string(models.CategoryAll), len(recs))
		} else if !s.stopped.Load() {
			log.Info("no records for window", logger.String("window", w.String()))
		}

		o.progress(s, "Optimisation", i+1, n)
	}
	return nil
}

func (o *Optimiser) confirm(ctx context.Context, s *runSession, log *logger.Logger) error {
	s.setPhase(models.PhaseConfirmingTests)
	o.metrics.RecordPhase(string(models.PhaseConfirmingTests))

	var work intervals.Pairs
	for _, p := range intervals.Match(s.req.History, s.req.Forward) {
		if p.Forward == nil {
			log.Debug("no forward window", logger.String("history", p.History.String()))
			continue
		}
		if _, ok := s.sources[p.History]; !ok {
			log.Debug("history window produced no records", logger.String("history", p.History.String()))
			continue
		}
		work = append(work, p)
	}

	model := s.req.PriceModel
	if s.req.TickTest.Enabled {
		model = o.cfg.TickModel
	}

	n := len(work)
	for i, p := range work {
		if s.stopped.Load() {
			return nil
		}

		src := s.sourceRecords(p.History, o.cfg.ReplaceDates)
		if len(src) == 0 {
			return fmt.Errorf("%w: %s", models.ErrNoSourceRecords, p.History)
		}
		candidates := ranking.Filter(src, s.req.Filters)
		if len(candidates) == 0 {
			log.Info("filters rejected every record", logger.String("history", p.History.String()))
			o.progress(s, "History tests", i+1, n)
			o.progress(s, "Forward tests", i+1, n)
			continue
		}
		best, _ := ranking.Best(candidates, s.req.Criteria, s.req.SortDirection)
		params := resolveParams(s.req.Parameters, best, s.req.TickTest)

		if err := o.confirmRun(ctx, s, p.History, models.CategoryHistory, params, model, best, log); err != nil {
			return err
		}
		o.progress(s, "History tests", i+1, n)

		if s.stopped.Load() {
			return nil
		}
		if err := o.confirmRun(ctx, s, *p.Forward, models.CategoryForward, params, model, best, log); err != nil {
			return err
		}
		o.progress(s, "Forward tests", i+1, n)
	}
	return nil
}

func (o *Optimiser) confirmRun(ctx context.Context, s *runSession, w models.DateInterval, cat models.Category,
	params []models.StrategyParam, model models.PriceModel, best models.ResultRecord, log *logger.Logger) error {
	recs, err := o.launch(ctx, s, launchSpec{
		window:       w,
		optimization: models.OptimizationDisabled,
		model:        model,
		params:       params,
		label:        string(cat),
	}, log)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		if !s.stopped.Load() {
			log.Info("confirmation run produced no record",
				logger.String("category", string(cat)),
				logger.String("window", w.String()))
		}
		return nil
	}

	rec := recs[0]
	if len(rec.Params) == 0 {
		rec.Params = best.Clone().Params
	}
	if o.cfg.ReplaceDates {
		rec.Interval = w
	}
	s.appendRecords(cat, []models.ResultRecord{rec})
	o.metrics.RecordRecords(string(cat), 1)
	return nil
}

type launchSpec struct {
	window       models.DateInterval
	optimization models.OptimizationMode
	model        models.PriceModel
	params       []models.StrategyParam
	label        string
}

// launch runs the tester once and returns the records it wrote.
// Nothing is read when the session was stopped while the tester ran.
func (o *Optimiser) launch(ctx context.Context, s *runSession, spec launchSpec, log *logger.Logger) ([]models.ResultRecord, error) {
	setPath := filepath.Join(o.cfg.ParametersDir, strategyName(s.req.Strategy)+".set")
	if err := o.deps.Parameters.Write(setPath, spec.params); err != nil {
		return nil, fmt.Errorf("write parameters: %w", err)
	}

	ed, err := o.deps.Config.Duplicate(filepath.Join(o.cfg.WorkDir, s.id+".ini"))
	if err != nil {
		return nil, fmt.Errorf("duplicate tester config: %w", err)
	}
	rc := models.RunConfig{
		Strategy:         s.req.Strategy,
		ParametersFile:   setPath,
		Symbol:           s.req.Symbol,
		Timeframe:        string(models.NormalizeTimeframe(s.req.Timeframe)),
		Interval:         spec.window,
		Optimization:     spec.optimization,
		PriceModel:       spec.model,
		ExecutionDelay:   s.req.ExecutionDelay,
		Currency:         s.req.Currency,
		Balance:          s.req.Balance,
		Leverage:         s.req.Leverage,
		ShutdownOnFinish: o.cfg.ShutdownOnFinish,
		ReportPath:       o.cfg.ReportFile,
	}
	if err := applyRunConfig(ed, rc); err != nil {
		return nil, fmt.Errorf("tester config: %w", err)
	}
	if err := ed.Save(); err != nil {
		return nil, fmt.Errorf("save tester config: %w", err)
	}
	if err := o.deps.Reports.Remove(o.cfg.ReportFile); err != nil {
		return nil, fmt.Errorf("remove previous results: %w", err)
	}

	log.Info("launching tester",
		logger.String("run", spec.label),
		logger.String("window", spec.window.String()),
		logger.String("optimization", spec.optimization.String()),
		logger.String("config", ed.Path()))
	o.metrics.RecordLaunch(spec.label)
	start := time.Now()
	if err := o.deps.Terminal.Run(ctx, ed.Path()); err != nil {
		o.metrics.RecordError("terminal")
		return nil, fmt.Errorf("run tester: %w", err)
	}
	o.metrics.RecordLatency("tester_run", time.Since(start).Seconds())

	if s.stopped.Load() {
		return nil, nil
	}

	recs, actual, err := o.deps.Reports.ReadResults(o.cfg.ReportFile, s.accountNow())
	if err != nil {
		o.metrics.RecordError("report")
		return nil, fmt.Errorf("read results: %w", err)
	}
	if len(recs) > 0 {
		s.captureAccount(actual)
	}
	return recs, nil
}

func (o *Optimiser) finish(s *runSession, err error, log *logger.Logger) {
	var (
		phase models.Phase
		kind  models.EventKind
	)
	switch {
	case err != nil:
		phase, kind = models.PhaseFailed, models.EventFailed
		log.Error("optimisation failed", logger.Error(err))
		o.metrics.RecordError("session")
	case s.stopped.Load():
		phase, kind = models.PhaseStopped, models.EventStopped
		log.Info("optimisation stopped")
	default:
		phase, kind = models.PhaseFinished, models.EventFinished
		snap := s.snapshot(o.variant)
		log.Info("optimisation finished",
			logger.Int("all", len(snap.Results.All)),
			logger.Int("history", len(snap.Results.History)),
			logger.Int("forward", len(snap.Results.Forward)))
	}

	s.end(phase, err, o.now())
	o.metrics.RecordPhase(string(phase))

	o.mu.Lock()
	if o.active == s.id {
		o.active = ""
	}
	o.mu.Unlock()

	ev := models.RunEvent{SessionID: s.id, Kind: kind, Percent: 100, Time: o.now()}
	if err != nil {
		ev.Error = err.Error()
	}
	o.events.Emit(ev)
	s.cancel()
	close(s.done)
}

func (o *Optimiser) progress(s *runSession, label string, done, total int) {
	pct := 100.0
	if total > 0 {
		pct = 100 * float64(done) / float64(total)
	}
	o.events.Emit(models.RunEvent{
		SessionID: s.id,
		Kind:      models.EventProgress,
		Label:     label,
		Percent:   pct,
		Time:      o.now(),
	})
}

// resolveParams takes each requested parameter's value from the winning
// record; tick test overrides win over both. Sweeps are switched off.
func resolveParams(req []models.StrategyParam, best models.ResultRecord, tick models.TickTest) []models.StrategyParam {
	out := make([]models.StrategyParam, len(req))
	for i, p := range req {
		if v, ok := best.Params[p.Name]; ok {
			p.Value = v
		}
		if tick.Enabled {
			if v, ok := tick.Overrides[p.Name]; ok {
				p.Value = util.FormatFloat(v)
			}
		}
		if p.Range != nil {
			r := *p.Range
			r.Enabled = false
			p.Range = &r
		}
		out[i] = p
	}
	return out
}

func distinctIntervals(recs []models.ResultRecord) int {
	seen := make(map[models.DateInterval]struct{}, 1)
	for i := range recs {
		seen[recs[i].Interval] = struct{}{}
	}
	return len(seen)
}

func copyRequest(req *models.RunRequest) models.RunRequest {
	c := *req
	c.Parameters = append([]models.StrategyParam(nil), req.Parameters...)
	c.History = append([]models.DateInterval(nil), req.History...)
	c.Forward = append([]models.DateInterval(nil), req.Forward...)
	c.Criteria = append([]models.Criterion(nil), req.Criteria...)
	c.Filters = append([]models.FilterPredicate(nil), req.Filters...)
	if req.TickTest.Overrides != nil {
		c.TickTest.Overrides = make(map[string]float64, len(req.TickTest.Overrides))
		for k, v := range req.TickTest.Overrides {
			c.TickTest.Overrides[k] = v
		}
	}
	return c
}

type nopMetrics struct{}

func (nopMetrics) RecordLaunch(string)           {}
func (nopMetrics) RecordRecords(string, int)     {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) RecordPhase(string)            {}

type nopSink struct{}

func (nopSink) Emit(models.RunEvent) {}
