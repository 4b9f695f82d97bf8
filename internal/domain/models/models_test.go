package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestNewDateInterval(t *testing.T) {
	cases := []struct {
		name     string
		from     time.Time
		till     time.Time
		wantFail bool
	}{
		{"ordered", day(2016, 6, 10), day(2017, 6, 14), false},
		{"one second", day(2016, 6, 10), day(2016, 6, 10).Add(time.Second), false},
		{"equal", day(2016, 6, 10), day(2016, 6, 10), true},
		{"reversed", day(2017, 6, 14), day(2016, 6, 10), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDateInterval(tc.from, tc.till)
			if tc.wantFail {
				if !errors.Is(err, ErrInvalidInterval) {
					t.Fatalf("expected ErrInvalidInterval, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDateIntervalEqualityAcrossZones(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	a := MustDateInterval(day(2020, 1, 1), day(2020, 2, 1))
	b := MustDateInterval(day(2020, 1, 1).In(loc), day(2020, 2, 1).In(loc))
	if a != b {
		t.Fatalf("expected equal intervals, got %v and %v", a, b)
	}
	m := map[DateInterval]int{a: 1}
	if m[b] != 1 {
		t.Fatalf("expected map lookup by equal interval")
	}
}

func TestDateIntervalOrdering(t *testing.T) {
	xs := []DateInterval{
		MustDateInterval(day(2020, 3, 1), day(2020, 4, 1)),
		MustDateInterval(day(2020, 1, 1), day(2020, 3, 1)),
		MustDateInterval(day(2020, 1, 1), day(2020, 2, 1)),
	}
	SortIntervals(xs)
	if xs[0].Till() != day(2020, 2, 1) || xs[1].Till() != day(2020, 3, 1) || xs[2].From() != day(2020, 3, 1) {
		t.Fatalf("unexpected order: %v", xs)
	}
}

func TestDateIntervalJSONAndYAML(t *testing.T) {
	in := MustDateInterval(day(2016, 6, 10), day(2017, 6, 14))
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out DateInterval
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("json mismatch: %v vs %v", out, in)
	}

	var y DateInterval
	if err := yaml.Unmarshal([]byte("from: 2016-06-10\ntill: 2017-06-14\n"), &y); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if y != in {
		t.Fatalf("yaml mismatch: %v vs %v", y, in)
	}

	if err := json.Unmarshal([]byte(`{"from":"2017-01-01T00:00:00Z","till":"2016-01-01T00:00:00Z"}`), &out); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected invalid interval, got %v", err)
	}

	b, _ = json.Marshal(DateInterval{})
	var zero DateInterval
	if err := json.Unmarshal(b, &zero); err != nil || !zero.IsZero() {
		t.Fatalf("zero interval round trip: %v %v", zero, err)
	}
}

func TestComparator(t *testing.T) {
	cases := []struct {
		in        string
		value     float64
		threshold float64
		want      bool
	}{
		{">", 2, 1, true},
		{">", 1, 1, false},
		{">=", 1, 1, true},
		{"<", 0, 1, true},
		{"<=", 2, 1, false},
		{"=", 1, 1, true},
		{"!=", 1, 1, false},
		{"!=", 3, 1, true},
	}
	for _, tc := range cases {
		c, err := ParseComparator(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got := c.Eval(tc.value, tc.threshold); got != tc.want {
			t.Fatalf("%v %s %v: got %v want %v", tc.value, tc.in, tc.threshold, got, tc.want)
		}
	}
	if _, err := ParseComparator("~"); err == nil {
		t.Fatalf("expected error for invalid comparator")
	}
}

func TestCriterionNames(t *testing.T) {
	for _, c := range AllCriteria() {
		got, err := ParseCriterion(c.String())
		if err != nil || got != c {
			t.Fatalf("round trip %v: got %v err %v", c, got, err)
		}
	}
	if _, err := ParseCriterion("sharpe"); !errors.Is(err, ErrUnknownCriterion) {
		t.Fatalf("expected ErrUnknownCriterion, got %v", err)
	}
}

func TestSameParameters(t *testing.T) {
	a := ResultRecord{Params: map[string]string{"fast": "12", "slow": "26"}, Coefficients: Coefficients{PL: 100}}
	b := ResultRecord{Params: map[string]string{"slow": "26", "fast": "12"}, Coefficients: Coefficients{PL: -5}}
	c := ResultRecord{Params: map[string]string{"fast": "12"}}
	if !SameParameters(a, b) {
		t.Fatalf("expected same parameters regardless of coefficients")
	}
	if SameParameters(a, c) {
		t.Fatalf("expected different parameter sets")
	}
}

func TestAccountSettingsCheck(t *testing.T) {
	fixed := AccountSettings{Strategy: `Advisors\MA.ex5`, Currency: "USD", Balance: decimal.NewFromInt(10000), Leverage: 100}
	ok := AccountSettings{Strategy: "advisors/ma.ex5", Currency: "usd", Balance: decimal.RequireFromString("10000.00"), Leverage: 100}
	if err := fixed.Check(ok); err != nil {
		t.Fatalf("unexpected mismatch: %v", err)
	}
	bad := ok
	bad.Currency = "EUR"
	var mm *SettingsMismatchError
	if err := fixed.Check(bad); !errors.As(err, &mm) || mm.Field != "currency" {
		t.Fatalf("expected currency mismatch, got %v", err)
	}

	var empty AccountSettings
	empty.Fill(ok)
	if empty.Leverage != 100 || empty.Currency != "usd" {
		t.Fatalf("fill did not copy: %+v", empty)
	}
}

func TestRunRequestValidate(t *testing.T) {
	h := MustDateInterval(day(2020, 1, 1), day(2020, 6, 1))
	r := RunRequest{Strategy: "x", Symbol: "EURUSD"}
	if err := r.Validate(); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}
	r.History = []DateInterval{h}
	r.Optimization = OptimizationGenetic
	if err := r.Validate(); !errors.Is(err, ErrNoCriteria) {
		t.Fatalf("expected ErrNoCriteria, got %v", err)
	}
	r.Criteria = []Criterion{CritPL}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded RunRequest
	if err := json.Unmarshal([]byte(`{"filters":[{"criterion":"pl","threshold":0}]}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	r.Filters = decoded.Filters
	if err := r.Validate(); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter for missing comparator, got %v", err)
	}
	r.Filters[0].Comparator = CmpGreater | CmpEqual
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error with comparator: %v", err)
	}
}

func TestNormalizeTimeframe(t *testing.T) {
	cases := map[string]Timeframe{
		"h4":   TFH4,
		" M15": TFM15,
		"mn1":  TFMN1,
		"":     TFH1,
		"H2":   TFH1,
	}
	for in, want := range cases {
		if got := NormalizeTimeframe(in); got != want {
			t.Fatalf("NormalizeTimeframe(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestDateIntervalYAMLTesterDates(t *testing.T) {
	var got DateInterval
	if err := yaml.Unmarshal([]byte("from: 2016.06.10\ntill: 2017.06.14\n"), &got); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if want := MustDateInterval(day(2016, 6, 10), day(2017, 6, 14)); got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	if err := yaml.Unmarshal([]byte("from: soon\ntill: 2017.06.14\n"), &got); err == nil {
		t.Fatalf("expected parse error")
	}
}
