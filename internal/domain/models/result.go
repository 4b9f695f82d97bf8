package models

import "time"

// TradingDays lists the weekdays carried in the per-day breakdown, in file order.
var TradingDays = [5]time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// VaR holds the value-at-risk quantiles plus the distribution mean and deviation.
type VaR struct {
	Q90 float64 `json:"q90"`
	Q95 float64 `json:"q95"`
	Q99 float64 `json:"q99"`
	Mx  float64 `json:"mx"`
	Std float64 `json:"std"`
}

// ExtremePoint describes the max-profit or max-drawdown point of the equity curve.
type ExtremePoint struct {
	Value             float64 `json:"value"`
	TotalTrades       int     `json:"total_trades"`
	ConsecutiveTrades int     `json:"consecutive_trades"`
}

type MaxPLDD struct {
	Profit ExtremePoint `json:"profit"`
	DD     ExtremePoint `json:"dd"`
}

// DailyStats aggregates profit/drawdown for one weekday.
type DailyStats struct {
	Profit       float64 `json:"profit"`
	DD           float64 `json:"dd"`
	ProfitTrades int     `json:"profit_trades"`
	LoseTrades   int     `json:"lose_trades"`
}

// Coefficients is the fixed performance bundle attached to every result.
type Coefficients struct {
	Payoff                float64       `json:"payoff"`
	ProfitFactor          float64       `json:"profit_factor"`
	AverageProfitFactor   float64       `json:"average_profit_factor"`
	RecoveryFactor        float64       `json:"recovery_factor"`
	AverageRecoveryFactor float64       `json:"average_recovery_factor"`
	PL                    float64       `json:"pl"`
	DD                    float64       `json:"dd"`
	TotalTrades           int           `json:"total_trades"`
	AltmanZScore          float64       `json:"altman_z_score"`
	Custom                float64       `json:"custom"`
	VaR                   VaR           `json:"var"`
	MaxPLDD               MaxPLDD       `json:"max_pl_dd"`
	Days                  [5]DailyStats `json:"days"` // indexed like TradingDays
}

// ResultRecord is one tester pass as reported by the external process.
// Rank is derived by the ranking service and is the only field mutated after read.
type ResultRecord struct {
	Symbol       string            `json:"symbol"`
	Timeframe    string            `json:"timeframe"`
	Interval     DateInterval      `json:"interval"`
	Coefficients Coefficients      `json:"coefficients"`
	Params       map[string]string `json:"params"`
	Rank         float64           `json:"rank"`
}

// Clone returns a copy that shares nothing mutable with r.
func (r ResultRecord) Clone() ResultRecord {
	out := r
	if r.Params != nil {
		out.Params = make(map[string]string, len(r.Params))
		for k, v := range r.Params {
			out.Params[k] = v
		}
	}
	return out
}

// SameParameters reports whether a and b were produced by the same parameter set.
// Coefficients, intervals and rank are ignored; use it for dedup and
// "same parameters" lookups, not as general equality.
func SameParameters(a, b ResultRecord) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for k, v := range a.Params {
		if w, ok := b.Params[k]; !ok || w != v {
			return false
		}
	}
	return true
}
