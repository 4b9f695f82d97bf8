package models

import (
	"fmt"
	"strings"
)

// Criterion names a coefficient usable for ranking and filtering.
type Criterion int

const (
	CritPayoff Criterion = iota
	CritProfitFactor
	CritAverageProfitFactor
	CritRecoveryFactor
	CritAverageRecoveryFactor
	CritPL
	CritDD
	CritTotalTrades
	CritAltmanZScore
	CritCustom

	CritVaR90
	CritVaR95
	CritVaR99
	CritVaRMx
	CritVaRStd

	CritMaxProfit
	CritMaxProfitTotalTrades
	CritMaxProfitConsecutive
	CritMaxDD
	CritMaxDDTotalTrades
	CritMaxDDConsecutive

	// Per weekday blocks, Monday..Friday each.
	CritDayProfitMn
	CritDayProfitTu
	CritDayProfitWe
	CritDayProfitTh
	CritDayProfitFr
	CritDayDDMn
	CritDayDDTu
	CritDayDDWe
	CritDayDDTh
	CritDayDDFr
	CritDayProfitTradesMn
	CritDayProfitTradesTu
	CritDayProfitTradesWe
	CritDayProfitTradesTh
	CritDayProfitTradesFr
	CritDayLoseTradesMn
	CritDayLoseTradesTu
	CritDayLoseTradesWe
	CritDayLoseTradesTh
	CritDayLoseTradesFr

	criterionCount
)

var criterionNames = [criterionCount]string{
	"payoff", "profit_factor", "average_profit_factor", "recovery_factor", "average_recovery_factor",
	"pl", "dd", "total_trades", "altman_z_score", "custom",
	"var_90", "var_95", "var_99", "var_mx", "var_std",
	"max_profit", "max_profit_total_trades", "max_profit_consecutive",
	"max_dd", "max_dd_total_trades", "max_dd_consecutive",
	"profit_mn", "profit_tu", "profit_we", "profit_th", "profit_fr",
	"dd_mn", "dd_tu", "dd_we", "dd_th", "dd_fr",
	"profit_trades_mn", "profit_trades_tu", "profit_trades_we", "profit_trades_th", "profit_trades_fr",
	"lose_trades_mn", "lose_trades_tu", "lose_trades_we", "lose_trades_th", "lose_trades_fr",
}

// AllCriteria returns every supported criterion in declaration order.
func AllCriteria() []Criterion {
	out := make([]Criterion, criterionCount)
	for i := range out {
		out[i] = Criterion(i)
	}
	return out
}

func (c Criterion) Valid() bool { return c >= 0 && c < criterionCount }

func (c Criterion) String() string {
	if !c.Valid() {
		return fmt.Sprintf("criterion(%d)", int(c))
	}
	return criterionNames[c]
}

// ParseCriterion resolves a criterion by its snake_case name.
func ParseCriterion(s string) (Criterion, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range criterionNames {
		if n == s {
			return Criterion(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCriterion, s)
}

func (c Criterion) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCriterion, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Criterion) UnmarshalText(b []byte) error {
	v, err := ParseCriterion(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Comparator is a bit set of >, < and = tests.
type Comparator uint8

const (
	CmpGreater Comparator = 1 << iota
	CmpLess
	CmpEqual
)

// Eval reports whether value relates to threshold by any bit set in c.
func (c Comparator) Eval(value, threshold float64) bool {
	if c&CmpGreater != 0 && value > threshold {
		return true
	}
	if c&CmpLess != 0 && value < threshold {
		return true
	}
	if c&CmpEqual != 0 && value == threshold {
		return true
	}
	return false
}

func (c Comparator) String() string {
	var b strings.Builder
	if c&CmpGreater != 0 {
		b.WriteByte('>')
	}
	if c&CmpLess != 0 {
		b.WriteByte('<')
	}
	if c&CmpEqual != 0 {
		b.WriteByte('=')
	}
	return b.String()
}

// ParseComparator accepts any combination of '>', '<', '=' plus "!=" for <>.
func ParseComparator(s string) (Comparator, error) {
	s = strings.TrimSpace(s)
	if s == "!=" {
		return CmpGreater | CmpLess, nil
	}
	var c Comparator
	for _, r := range s {
		switch r {
		case '>':
			c |= CmpGreater
		case '<':
			c |= CmpLess
		case '=':
			c |= CmpEqual
		default:
			return 0, fmt.Errorf("invalid comparator %q", s)
		}
	}
	if c == 0 {
		return 0, fmt.Errorf("empty comparator")
	}
	return c, nil
}

func (c Comparator) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Comparator) UnmarshalText(b []byte) error {
	v, err := ParseComparator(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// FilterPredicate keeps records whose criterion value satisfies Comparator against Threshold.
type FilterPredicate struct {
	Criterion  Criterion  `json:"criterion" yaml:"criterion"`
	Comparator Comparator `json:"comparator" yaml:"comparator"`
	Threshold  float64    `json:"threshold" yaml:"threshold"`
}

// Check rejects a predicate on an unknown criterion or without a comparator,
// which would otherwise drop every record.
func (f FilterPredicate) Check() error {
	if !f.Criterion.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCriterion, int(f.Criterion))
	}
	if f.Comparator == 0 || f.Comparator > CmpGreater|CmpLess|CmpEqual {
		return fmt.Errorf("%w: %s has no comparator", ErrInvalidFilter, f.Criterion)
	}
	return nil
}

// SortDirection is the overall order of a multi-criteria ranking.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)
