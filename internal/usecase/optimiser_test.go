package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"AutoOptimiser/internal/domain/models"
	"AutoOptimiser/internal/report"
	"AutoOptimiser/internal/repository"
	"AutoOptimiser/pkg/setfile"
	"AutoOptimiser/pkg/testerini"
	"AutoOptimiser/pkg/textenc"
	"AutoOptimiser/pkg/util"
)

const testStrategy = `Experts\MA.ex5`

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

type testerRun struct {
	window       models.DateInterval
	optimization string
	model        string
	params       map[string]string
	forwardDate  bool
}

// fakeTester plays the external tester: it reads the launch config and
// parameter file and writes the records produce returns.
type fakeTester struct {
	t       *testing.T
	report  string
	setDir  string
	header  models.AccountSettings
	produce func(run testerRun) []models.ResultRecord
	gate    chan struct{}
	started chan struct{}

	mu   sync.Mutex
	runs []testerRun
}

func (f *fakeTester) IsRunning() bool { return false }

func (f *fakeTester) Run(ctx context.Context, configPath string) error {
	cfg, err := testerini.Load(configPath)
	if err != nil {
		f.t.Errorf("load config: %v", err)
		return err
	}
	get := func(key string) string {
		v, _ := cfg.Get(testerini.SectionTester, key)
		return v
	}
	from, _ := util.ParseTime(get("FromDate"))
	till, _ := util.ParseTime(get("ToDate"))
	run := testerRun{
		window:       models.MustDateInterval(from, till),
		optimization: get("Optimization"),
		model:        get("Model"),
		params:       map[string]string{},
	}
	_, run.forwardDate = cfg.Get(testerini.SectionTester, "ForwardDate")
	if got := get("Report"); got != f.report {
		f.t.Errorf("Report = %q, want %q", got, f.report)
	}
	if got := get("ReplaceReport"); got != "1" {
		f.t.Errorf("ReplaceReport = %q, want 1", got)
	}
	ps, err := setfile.ReadFile(filepath.Join(f.setDir, get("ExpertParameters")))
	if err != nil {
		f.t.Errorf("read set file: %v", err)
		return err
	}
	for _, p := range ps {
		run.params[p.Name] = p.Value
	}

	f.mu.Lock()
	f.runs = append(f.runs, run)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}

	recs := f.produce(run)
	if recs == nil {
		return nil
	}
	return report.WriteRecords(f.report, report.Header{Created: 1, Settings: f.header}, recs)
}

func (f *fakeTester) launches() []testerRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]testerRun(nil), f.runs...)
}

func record(w models.DateInterval, pl float64, params map[string]string) models.ResultRecord {
	return models.ResultRecord{
		Symbol:       "EURUSD",
		Timeframe:    "H1",
		Interval:     w,
		Coefficients: models.Coefficients{PL: pl, TotalTrades: 10},
		Params:       params,
	}
}

type harness struct {
	tester *fakeTester
	opt    *Optimiser
	events *eventLog
}

type eventLog struct {
	mu  sync.Mutex
	evs []models.RunEvent
}

func (l *eventLog) Emit(ev models.RunEvent) {
	l.mu.Lock()
	l.evs = append(l.evs, ev)
	l.mu.Unlock()
}

func (l *eventLog) labels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.evs))
	for _, ev := range l.evs {
		out = append(out, ev.Label)
	}
	return out
}

func newHarness(t *testing.T, variant string, replaceDates bool, produce func(run testerRun) []models.ResultRecord) *harness {
	t.Helper()
	dir := t.TempDir()
	base := filepath.Join(dir, "tester.ini")
	if err := os.WriteFile(base, []byte("[Tester]\r\nExpert=old\r\nForwardMode=4\r\nForwardDate=2019.01.01\r\n"), 0o644); err != nil {
		t.Fatalf("write base config: %v", err)
	}
	setDir := filepath.Join(dir, "sets")
	if err := os.MkdirAll(setDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	ft := &fakeTester{
		t:       t,
		report:  filepath.Join(dir, "report.xml"),
		setDir:  setDir,
		header:  models.AccountSettings{Strategy: testStrategy, Currency: "USD", Balance: decimal.NewFromInt(10000), Leverage: 100},
		produce: produce,
	}
	events := &eventLog{}
	opt, err := NewVariant(variant, OptimiserDeps{
		Terminal:   ft,
		Config:     repository.NewTesterConfigStore(base),
		Parameters: repository.NewSetFileWriter(textenc.UTF8),
		Reports:    repository.NewReportFileSource(),
		Events:     events,
	}, OptimiserConfig{
		WorkDir:       dir,
		ParametersDir: setDir,
		ReportFile:    ft.report,
		ReplaceDates:  replaceDates,
		TickModel:     models.ModelRealTicks,
	})
	if err != nil {
		t.Fatalf("new variant: %v", err)
	}
	return &harness{tester: ft, opt: opt, events: events}
}

func baseRequest() *models.RunRequest {
	return &models.RunRequest{
		Strategy:      testStrategy,
		Currency:      "USD",
		Balance:       decimal.NewFromInt(10000),
		Leverage:      100,
		Symbol:        "EURUSD",
		Timeframe:     "H1",
		Optimization:  models.OptimizationGenetic,
		Criteria:      []models.Criterion{models.CritPL},
		SortDirection: models.SortAscending,
		Parameters: []models.StrategyParam{
			{Name: "fast", Value: "12", Range: &models.OptimizeRange{Start: "5", Step: "5", Stop: "30", Enabled: true}},
			{Name: "slow", Value: "26"},
		},
	}
}

func runToEnd(t *testing.T, o *Optimiser, req *models.RunRequest) (*models.SessionSnapshot, error) {
	t.Helper()
	id, err := o.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return o.Wait(ctx, id)
}

func TestOptimiserHistoryWindowsWithoutForward(t *testing.T) {
	h := newHarness(t, VariantWalkForward, false, func(run testerRun) []models.ResultRecord {
		return []models.ResultRecord{
			record(run.window, 100, map[string]string{"fast": "10"}),
			record(run.window, 200, map[string]string{"fast": "20"}),
		}
	})
	req := baseRequest()
	req.History = []models.DateInterval{
		models.MustDateInterval(day(2016, 6, 10), day(2017, 6, 14)),
		models.MustDateInterval(day(2017, 6, 14), day(2018, 6, 14)),
	}

	snap, err := runToEnd(t, h.opt, req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := len(h.tester.launches()); got != 2 {
		t.Fatalf("expected 2 launches, got %d", got)
	}
	if snap.Phase != models.PhaseFinished {
		t.Fatalf("expected finished, got %s", snap.Phase)
	}
	if len(snap.Results.All) != 4 || len(snap.Results.History) != 0 || len(snap.Results.Forward) != 0 {
		t.Fatalf("unexpected accumulators: all=%d history=%d forward=%d",
			len(snap.Results.All), len(snap.Results.History), len(snap.Results.Forward))
	}
	for _, run := range h.tester.launches() {
		if run.optimization != "2" {
			t.Fatalf("expected genetic optimisation, got %q", run.optimization)
		}
		if run.forwardDate {
			t.Fatalf("forward date must be removed when forward mode is off")
		}
	}
	if h.opt.Active() {
		t.Fatalf("engine should be idle after finish")
	}
}

func TestOptimiserCurrencyMismatchFails(t *testing.T) {
	h := newHarness(t, VariantWalkForward, false, func(run testerRun) []models.ResultRecord {
		return []models.ResultRecord{record(run.window, 1, map[string]string{"fast": "10"})}
	})
	h.tester.header.Currency = "EUR"
	req := baseRequest()
	req.History = []models.DateInterval{
		models.MustDateInterval(day(2020, 1, 1), day(2020, 6, 1)),
		models.MustDateInterval(day(2020, 6, 1), day(2020, 12, 1)),
	}

	snap, err := runToEnd(t, h.opt, req)
	var mm *models.SettingsMismatchError
	if !errors.As(err, &mm) || mm.Field != "currency" {
		t.Fatalf("expected currency mismatch, got %v", err)
	}
	if snap.Phase != models.PhaseFailed || snap.Results.Len() != 0 {
		t.Fatalf("expected failed session without results, got %s with %d", snap.Phase, snap.Results.Len())
	}
	if got := len(h.tester.launches()); got != 1 {
		t.Fatalf("expected run to abort after first launch, got %d", got)
	}
	if h.opt.Active() {
		t.Fatalf("engine should be idle after failure")
	}
	h.tester.header.Currency = "USD"
	snap, err = runToEnd(t, h.opt, req)
	if err != nil || snap.Phase != models.PhaseFinished {
		t.Fatalf("restart after failure: %v %v", snap.Phase, err)
	}
}

func TestOptimiserWalkForwardConfirmsWinner(t *testing.T) {
	hist := models.MustDateInterval(day(2020, 1, 1), day(2020, 7, 1))
	fwd := models.MustDateInterval(day(2020, 7, 1), day(2020, 10, 1))

	h := newHarness(t, VariantWalkForward, false, func(run testerRun) []models.ResultRecord {
		if run.optimization != "0" {
			return []models.ResultRecord{
				record(run.window, 100, map[string]string{"fast": "10", "slow": "26"}),
				record(run.window, 300, map[string]string{"fast": "20", "slow": "26"}),
				record(run.window, 200, map[string]string{"fast": "30", "slow": "26"}),
			}
		}
		// confirmation runs report no parameters
		return []models.ResultRecord{record(run.window, 50, nil)}
	})
	req := baseRequest()
	req.History = []models.DateInterval{hist}
	req.Forward = []models.DateInterval{fwd}

	snap, err := runToEnd(t, h.opt, req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	runs := h.tester.launches()
	if len(runs) != 3 {
		t.Fatalf("expected optimisation plus two tests, got %d launches", len(runs))
	}
	for _, run := range runs[1:] {
		if run.params["fast"] != "20" {
			t.Fatalf("test run used fast=%q, want winner 20", run.params["fast"])
		}
		if run.optimization != "0" {
			t.Fatalf("test run must not optimise, got %q", run.optimization)
		}
	}
	if runs[1].window != hist || runs[2].window != fwd {
		t.Fatalf("unexpected test windows: %v, %v", runs[1].window, runs[2].window)
	}
	if len(snap.Results.History) != 1 || len(snap.Results.Forward) != 1 {
		t.Fatalf("expected one history and one forward record, got %d/%d",
			len(snap.Results.History), len(snap.Results.Forward))
	}
	if snap.Results.History[0].Params["fast"] != "20" {
		t.Fatalf("params not backfilled from winner: %v", snap.Results.History[0].Params)
	}
	if snap.Results.Forward[0].Interval != fwd {
		t.Fatalf("forward record interval %v", snap.Results.Forward[0].Interval)
	}

	labels := h.events.labels()
	want := []string{"Optimisation", "History tests", "Forward tests", ""}
	if len(labels) != len(want) {
		t.Fatalf("events %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("events %v, want %v", labels, want)
		}
	}
}

func TestOptimiserFiltersRejectEverything(t *testing.T) {
	hist := models.MustDateInterval(day(2020, 1, 1), day(2020, 7, 1))
	fwd := models.MustDateInterval(day(2020, 7, 1), day(2020, 10, 1))
	h := newHarness(t, VariantWalkForward, false, func(run testerRun) []models.ResultRecord {
		return []models.ResultRecord{record(run.window, 10, map[string]string{"fast": "10"})}
	})
	req := baseRequest()
	req.History = []models.DateInterval{hist}
	req.Forward = []models.DateInterval{fwd}
	req.Filters = []models.FilterPredicate{{Criterion: models.CritPL, Comparator: models.CmpGreater, Threshold: 1000}}

	snap, err := runToEnd(t, h.opt, req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := len(h.tester.launches()); got != 1 {
		t.Fatalf("expected no test launches, got %d total", got)
	}
	if snap.Phase != models.PhaseFinished || len(snap.Results.History) != 0 {
		t.Fatalf("unexpected snapshot: %s history=%d", snap.Phase, len(snap.Results.History))
	}
}

func TestOptimiserReplaceDates(t *testing.T) {
	w := models.MustDateInterval(day(2020, 1, 1), day(2020, 7, 1))
	reported := models.MustDateInterval(day(2020, 1, 2), day(2020, 6, 30))
	h := newHarness(t, VariantHistory, true, func(run testerRun) []models.ResultRecord {
		return []models.ResultRecord{record(reported, 1, map[string]string{"fast": "10"})}
	})
	req := baseRequest()
	req.History = []models.DateInterval{w}

	snap, err := runToEnd(t, h.opt, req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(snap.Results.All) != 1 || snap.Results.All[0].Interval != w {
		t.Fatalf("expected nominal window, got %+v", snap.Results.All)
	}
}

func TestOptimiserNormalisesSeveralReportedWindows(t *testing.T) {
	w := models.MustDateInterval(day(2020, 1, 1), day(2020, 7, 1))
	h := newHarness(t, VariantHistory, false, func(run testerRun) []models.ResultRecord {
		return []models.ResultRecord{
			record(models.MustDateInterval(day(2020, 1, 2), day(2020, 7, 1)), 1, map[string]string{"fast": "10"}),
			record(models.MustDateInterval(day(2020, 1, 3), day(2020, 7, 1)), 2, map[string]string{"fast": "20"}),
		}
	})
	req := baseRequest()
	req.History = []models.DateInterval{w}

	snap, err := runToEnd(t, h.opt, req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, r := range snap.Results.All {
		if r.Interval != w {
			t.Fatalf("expected %v, got %v", w, r.Interval)
		}
	}
}

func TestOptimiserTickTestOverrides(t *testing.T) {
	hist := models.MustDateInterval(day(2020, 1, 1), day(2020, 7, 1))
	fwd := models.MustDateInterval(day(2020, 8, 1), day(2020, 10, 1))
	h := newHarness(t, VariantWalkForward, false, func(run testerRun) []models.ResultRecord {
		return []models.ResultRecord{record(run.window, 5, map[string]string{"fast": "10", "slow": "40"})}
	})
	req := baseRequest()
	req.History = []models.DateInterval{hist}
	req.Forward = []models.DateInterval{fwd}
	req.TickTest = models.TickTest{Enabled: true, Overrides: map[string]float64{"slow": 55.5}}

	if _, err := runToEnd(t, h.opt, req); err != nil {
		t.Fatalf("run: %v", err)
	}
	runs := h.tester.launches()
	if len(runs) != 3 {
		t.Fatalf("expected 3 launches, got %d", len(runs))
	}
	tick := runs[2]
	if tick.params["fast"] != "10" || tick.params["slow"] != "55.5" {
		t.Fatalf("unexpected tick params: %v", tick.params)
	}
	if tick.model != "4" {
		t.Fatalf("expected real ticks model, got %q", tick.model)
	}
}

func TestOptimiserStopAfterRunningLaunch(t *testing.T) {
	h := newHarness(t, VariantWalkForward, false, func(run testerRun) []models.ResultRecord {
		return []models.ResultRecord{record(run.window, 1, map[string]string{"fast": "10"})}
	})
	h.tester.gate = make(chan struct{})
	h.tester.started = make(chan struct{}, 4)

	req := baseRequest()
	req.History = []models.DateInterval{
		models.MustDateInterval(day(2020, 1, 1), day(2020, 2, 1)),
		models.MustDateInterval(day(2020, 2, 1), day(2020, 3, 1)),
		models.MustDateInterval(day(2020, 3, 1), day(2020, 4, 1)),
	}
	id, err := h.opt.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	<-h.tester.started

	if _, err := h.opt.Start(context.Background(), req); !errors.Is(err, models.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := h.opt.ClearSession(id); !errors.Is(err, models.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	if err := h.opt.Stop(id); err != nil {
		t.Fatalf("stop: %v", err)
	}
	close(h.tester.gate)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap, err := h.opt.Wait(ctx, id)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if snap.Phase != models.PhaseStopped {
		t.Fatalf("expected stopped, got %s", snap.Phase)
	}
	if got := len(h.tester.launches()); got != 1 {
		t.Fatalf("expected loop to stop after in-flight launch, got %d", got)
	}
	if err := h.opt.ClearSession(id); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := h.opt.Snapshot(id); !errors.Is(err, models.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestOptimiserRejectsInvalidRequest(t *testing.T) {
	h := newHarness(t, VariantWalkForward, false, func(run testerRun) []models.ResultRecord { return nil })
	req := baseRequest()
	if _, err := h.opt.Start(context.Background(), req); !errors.Is(err, models.ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}
	req.History = []models.DateInterval{models.MustDateInterval(day(2020, 1, 1), day(2020, 2, 1))}
	req.Criteria = nil
	if _, err := h.opt.Start(context.Background(), req); !errors.Is(err, models.ErrNoCriteria) {
		t.Fatalf("expected ErrNoCriteria, got %v", err)
	}
	if len(h.tester.launches()) != 0 || h.opt.Active() {
		t.Fatalf("rejected requests must not launch")
	}
}

func TestOptimiserSkipsEmptyWindows(t *testing.T) {
	hist := models.MustDateInterval(day(2020, 1, 1), day(2020, 7, 1))
	fwd := models.MustDateInterval(day(2020, 7, 1), day(2020, 10, 1))
	h := newHarness(t, VariantWalkForward, false, func(run testerRun) []models.ResultRecord { return nil })
	req := baseRequest()
	req.History = []models.DateInterval{hist}
	req.Forward = []models.DateInterval{fwd}

	snap, err := runToEnd(t, h.opt, req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := len(h.tester.launches()); got != 1 {
		t.Fatalf("unresolved history window must not be tested, got %d launches", got)
	}
	if snap.Phase != models.PhaseFinished || snap.Results.Len() != 0 {
		t.Fatalf("unexpected snapshot %s %d", snap.Phase, snap.Results.Len())
	}
}
