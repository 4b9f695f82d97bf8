package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"AutoOptimiser/pkg/util"

	"gopkg.in/yaml.v3"
)

// DateInterval is an immutable [from, till] calendar range.
// Endpoints are normalised to UTC whole seconds so intervals compare with ==
// and can be used as map keys.
type DateInterval struct {
	from time.Time
	till time.Time
}

// NewDateInterval builds an interval; till must be strictly after from.
func NewDateInterval(from, till time.Time) (DateInterval, error) {
	f := from.UTC().Truncate(time.Second)
	t := till.UTC().Truncate(time.Second)
	if !t.After(f) {
		return DateInterval{}, fmt.Errorf("%w: till %s <= from %s", ErrInvalidInterval, t.Format(time.RFC3339), f.Format(time.RFC3339))
	}
	return DateInterval{from: f, till: t}, nil
}

// MustDateInterval panics on invalid input. Intended for literals in tests and defaults.
func MustDateInterval(from, till time.Time) DateInterval {
	di, err := NewDateInterval(from, till)
	if err != nil {
		panic(err)
	}
	return di
}

// IntervalFromUnix builds an interval from seconds since epoch.
func IntervalFromUnix(from, till int64) (DateInterval, error) {
	return NewDateInterval(time.Unix(from, 0), time.Unix(till, 0))
}

func (d DateInterval) From() time.Time { return d.from }
func (d DateInterval) Till() time.Time { return d.till }

// IsZero reports whether d is the zero value (never produced by the constructor).
func (d DateInterval) IsZero() bool { return d.from.IsZero() && d.till.IsZero() }

// Less orders by from, then till.
func (d DateInterval) Less(o DateInterval) bool {
	if !d.from.Equal(o.from) {
		return d.from.Before(o.from)
	}
	return d.till.Before(o.till)
}

func (d DateInterval) String() string {
	return d.from.Format("2006.01.02") + "-" + d.till.Format("2006.01.02")
}

// SortIntervals sorts ascending by (from, till) in place.
func SortIntervals(xs []DateInterval) {
	sort.SliceStable(xs, func(i, j int) bool { return xs[i].Less(xs[j]) })
}

type intervalDTO struct {
	From time.Time `json:"from" yaml:"from"`
	Till time.Time `json:"till" yaml:"till"`
}

// interval converts dto back; a zero dto is the zero interval.
func (dto intervalDTO) interval() (DateInterval, error) {
	if dto.From.IsZero() && dto.Till.IsZero() {
		return DateInterval{}, nil
	}
	return NewDateInterval(dto.From, dto.Till)
}

func (d DateInterval) MarshalJSON() ([]byte, error) {
	return json.Marshal(intervalDTO{From: d.from, Till: d.till})
}

func (d *DateInterval) UnmarshalJSON(b []byte) error {
	var dto intervalDTO
	if err := json.Unmarshal(b, &dto); err != nil {
		return err
	}
	di, err := dto.interval()
	if err != nil {
		return err
	}
	*d = di
	return nil
}

func (d DateInterval) MarshalYAML() (interface{}, error) {
	return intervalDTO{From: d.from, Till: d.till}, nil
}

// UnmarshalYAML accepts tester dates (2016.06.10) as well as ISO and
// RFC3339 timestamps.
func (d *DateInterval) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		From string `yaml:"from"`
		Till string `yaml:"till"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	var dto intervalDTO
	for _, f := range []struct {
		name string
		in   string
		out  *time.Time
	}{{"from", raw.From, &dto.From}, {"till", raw.Till, &dto.Till}} {
		if f.in == "" {
			continue
		}
		t, ok := util.ParseTime(f.in)
		if !ok {
			return fmt.Errorf("interval %s: cannot parse %q", f.name, f.in)
		}
		*f.out = t
	}
	di, err := dto.interval()
	if err != nil {
		return err
	}
	*d = di
	return nil
}
