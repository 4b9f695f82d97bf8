package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OptimizationMode mirrors the tester's Optimization values.
type OptimizationMode int

const (
	OptimizationDisabled OptimizationMode = iota
	OptimizationExhaustive
	OptimizationGenetic
	OptimizationAllSymbols
)

var optimizationNames = map[OptimizationMode]string{
	OptimizationDisabled:   "disabled",
	OptimizationExhaustive: "exhaustive",
	OptimizationGenetic:    "genetic",
	OptimizationAllSymbols: "all_symbols",
}

func (m OptimizationMode) String() string {
	if n, ok := optimizationNames[m]; ok {
		return n
	}
	return fmt.Sprintf("optimization(%d)", int(m))
}

func (m OptimizationMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *OptimizationMode) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for k, v := range optimizationNames {
		if v == s {
			*m = k
			return nil
		}
	}
	return fmt.Errorf("unknown optimization mode %q", s)
}

// PriceModel mirrors the tester's Model values.
type PriceModel int

const (
	ModelEveryTick PriceModel = iota
	ModelOHLC1Minute
	ModelOpenPrices
	ModelMathCalculations
	ModelRealTicks
)

var priceModelNames = map[PriceModel]string{
	ModelEveryTick:        "every_tick",
	ModelOHLC1Minute:      "ohlc_1m",
	ModelOpenPrices:       "open_prices",
	ModelMathCalculations: "math",
	ModelRealTicks:        "real_ticks",
}

func (m PriceModel) String() string {
	if n, ok := priceModelNames[m]; ok {
		return n
	}
	return fmt.Sprintf("model(%d)", int(m))
}

func (m PriceModel) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *PriceModel) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for k, v := range priceModelNames {
		if v == s {
			*m = k
			return nil
		}
	}
	return fmt.Errorf("unknown price model %q", s)
}

// ExecutionDelay is the simulated order delay in milliseconds; 0 is none, -1 random.
type ExecutionDelay int

const (
	DelayNone   ExecutionDelay = 0
	DelayRandom ExecutionDelay = -1
)

// OptimizeRange is the tester sweep for one parameter.
type OptimizeRange struct {
	Start   string `json:"start" yaml:"start"`
	Step    string `json:"step" yaml:"step"`
	Stop    string `json:"stop" yaml:"stop"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// StrategyParam is one expert input with its current value and optional sweep.
type StrategyParam struct {
	Name  string         `json:"name" yaml:"name" validate:"required"`
	Value string         `json:"value" yaml:"value"`
	Range *OptimizeRange `json:"range,omitempty" yaml:"range,omitempty"`
}

// TickTest configures confirmation runs on tick data.
type TickTest struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Overrides replaces the winning value of a parameter in tick tests.
	Overrides map[string]float64 `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// RunRequest is the caller-supplied description of one walk-forward run.
// The engine treats it as read-only.
type RunRequest struct {
	Strategy         string            `json:"strategy" yaml:"strategy" validate:"required"`
	Currency         string            `json:"currency" yaml:"currency"`
	Balance          decimal.Decimal   `json:"balance" yaml:"balance"`
	Leverage         int               `json:"leverage" yaml:"leverage" validate:"gte=0"`
	Symbol           string            `json:"symbol" yaml:"symbol" validate:"required"`
	Timeframe        string            `json:"timeframe" yaml:"timeframe" default:"H1"`
	ExecutionDelay   ExecutionDelay    `json:"execution_delay" yaml:"execution_delay"`
	PriceModel       PriceModel        `json:"price_model" yaml:"price_model"`
	Optimization     OptimizationMode  `json:"optimization" yaml:"optimization"`
	Parameters       []StrategyParam   `json:"parameters" yaml:"parameters" validate:"dive"`
	History          []DateInterval    `json:"history" yaml:"history"`
	Forward          []DateInterval    `json:"forward" yaml:"forward"`
	Criteria         []Criterion       `json:"criteria" yaml:"criteria"`
	SortDirection    SortDirection     `json:"sort_direction" yaml:"sort_direction" default:"asc" validate:"omitempty,oneof=asc desc"`
	Filters          []FilterPredicate `json:"filters,omitempty" yaml:"filters,omitempty"`
	TickTest         TickTest          `json:"tick_test" yaml:"tick_test"`
}

// Validate checks the invariants Start enforces before any side effect.
func (r *RunRequest) Validate() error {
	if len(r.History) == 0 {
		return ErrNoHistory
	}
	if r.Optimization != OptimizationDisabled && len(r.Criteria) == 0 {
		return ErrNoCriteria
	}
	for _, c := range r.Criteria {
		if !c.Valid() {
			return fmt.Errorf("%w: %d", ErrUnknownCriterion, int(c))
		}
	}
	for _, f := range r.Filters {
		if err := f.Check(); err != nil {
			return err
		}
	}
	for _, h := range r.History {
		if h.IsZero() {
			return fmt.Errorf("history: %w", ErrInvalidInterval)
		}
	}
	for _, f := range r.Forward {
		if f.IsZero() {
			return fmt.Errorf("forward: %w", ErrInvalidInterval)
		}
	}
	return nil
}

// AccountSettings are the header values every result file must agree on.
type AccountSettings struct {
	Strategy string          `json:"strategy"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
	Leverage int             `json:"leverage"`
}

// Fill copies into s every field s leaves empty.
func (s *AccountSettings) Fill(from AccountSettings) {
	if s.Strategy == "" {
		s.Strategy = from.Strategy
	}
	if s.Currency == "" {
		s.Currency = from.Currency
	}
	if s.Balance.IsZero() {
		s.Balance = from.Balance
	}
	if s.Leverage == 0 {
		s.Leverage = from.Leverage
	}
}

// Check compares a freshly read header against s. Empty fields in s are not checked.
func (s AccountSettings) Check(actual AccountSettings) error {
	if s.Strategy != "" && normalizeStrategyPath(s.Strategy) != normalizeStrategyPath(actual.Strategy) {
		return &SettingsMismatchError{Field: "strategy", Expected: s.Strategy, Actual: actual.Strategy}
	}
	if s.Currency != "" && !strings.EqualFold(s.Currency, actual.Currency) {
		return &SettingsMismatchError{Field: "currency", Expected: s.Currency, Actual: actual.Currency}
	}
	if !s.Balance.IsZero() && !s.Balance.Equal(actual.Balance) {
		return &SettingsMismatchError{Field: "balance", Expected: s.Balance.String(), Actual: actual.Balance.String()}
	}
	if s.Leverage != 0 && s.Leverage != actual.Leverage {
		return &SettingsMismatchError{Field: "leverage", Expected: fmt.Sprint(s.Leverage), Actual: fmt.Sprint(actual.Leverage)}
	}
	return nil
}

// Settings returns the account part of the request.
func (r *RunRequest) Settings() AccountSettings {
	return AccountSettings{Strategy: r.Strategy, Currency: r.Currency, Balance: r.Balance, Leverage: r.Leverage}
}

func normalizeStrategyPath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "/", `\`)
	return strings.ToLower(strings.TrimPrefix(p, `\`))
}
