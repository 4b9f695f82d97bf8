package intervals

import (
	"testing"
	"time"

	"AutoOptimiser/internal/domain/models"
)

func iv(t *testing.T, from, till string) models.DateInterval {
	t.Helper()
	f, err := time.Parse("2006-01-02", from)
	if err != nil {
		t.Fatalf("parse %s: %v", from, err)
	}
	u, err := time.Parse("2006-01-02", till)
	if err != nil {
		t.Fatalf("parse %s: %v", till, err)
	}
	d, err := models.NewDateInterval(f, u)
	if err != nil {
		t.Fatalf("interval: %v", err)
	}
	return d
}

func TestMatchSkipsOverlappingForward(t *testing.T) {
	h := iv(t, "2016-06-10", "2017-06-14")
	want := iv(t, "2017-06-15", "2017-09-08")
	pairs := Match(
		[]models.DateInterval{h},
		[]models.DateInterval{iv(t, "2017-03-10", "2017-06-14"), want},
	)
	fwd, ok := pairs.Lookup(h)
	if !ok || fwd == nil {
		t.Fatalf("expected mapping for %v, got %+v", h, pairs)
	}
	if *fwd != want {
		t.Fatalf("expected %v, got %v", want, *fwd)
	}
}

func TestMatchForwardStartingAtHistoryEnd(t *testing.T) {
	h := iv(t, "2020-01-01", "2020-06-01")
	f := iv(t, "2020-06-01", "2020-07-01")
	fwd, _ := Match([]models.DateInterval{h}, []models.DateInterval{f}).Lookup(h)
	if fwd == nil || *fwd != f {
		t.Fatalf("forward starting exactly at history end must qualify, got %v", fwd)
	}
}

func TestMatchGreedyOneToOne(t *testing.T) {
	h1 := iv(t, "2020-01-01", "2020-03-01")
	h2 := iv(t, "2020-02-01", "2020-04-01")
	h3 := iv(t, "2020-03-01", "2020-05-01")
	f1 := iv(t, "2020-03-01", "2020-04-01")
	f2 := iv(t, "2020-04-01", "2020-05-01")

	// Unsorted input on purpose.
	pairs := Match([]models.DateInterval{h3, h1, h2}, []models.DateInterval{f2, f1})
	if len(pairs) != 3 {
		t.Fatalf("every history window must be a key, got %d", len(pairs))
	}

	if fwd, _ := pairs.Lookup(h1); fwd == nil || *fwd != f1 {
		t.Fatalf("h1: got %v", fwd)
	}
	if fwd, _ := pairs.Lookup(h2); fwd == nil || *fwd != f2 {
		t.Fatalf("h2: got %v", fwd)
	}
	if fwd, ok := pairs.Lookup(h3); !ok || fwd != nil {
		t.Fatalf("h3 should be unmatched, got %v ok=%v", fwd, ok)
	}
	if len(pairs.Matched()) != 2 {
		t.Fatalf("expected 2 matched pairs")
	}
}

func TestMatchProperties(t *testing.T) {
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	var hs, fs []models.DateInterval
	for i := 0; i < 12; i++ {
		from := base.AddDate(0, i*2, 0)
		hs = append(hs, models.MustDateInterval(from, from.AddDate(0, 3, (i%3)*5)))
		ffrom := base.AddDate(0, i*3+1, 0)
		fs = append(fs, models.MustDateInterval(ffrom, ffrom.AddDate(0, 1, 0)))
	}
	// Duplicate history and forward windows.
	hs = append(hs, hs[0])
	fs = append(fs, fs[3])

	pairs := Match(hs, fs)

	for _, h := range hs {
		if _, ok := pairs.Lookup(h); !ok {
			t.Fatalf("history %v missing from result", h)
		}
	}
	used := map[models.DateInterval]models.DateInterval{}
	for _, p := range pairs {
		if p.Forward == nil {
			continue
		}
		if p.Forward.From().Before(p.History.Till()) {
			t.Fatalf("forward %v starts before history %v ends", *p.Forward, p.History)
		}
		if prev, dup := used[*p.Forward]; dup {
			t.Fatalf("forward %v assigned to both %v and %v", *p.Forward, prev, p.History)
		}
		used[*p.Forward] = p.History
	}
}

func TestMatchEmptyForward(t *testing.T) {
	h1 := iv(t, "2020-01-01", "2020-02-01")
	h2 := iv(t, "2020-02-01", "2020-03-01")
	pairs := Match([]models.DateInterval{h1, h2}, nil)
	if len(pairs) != 2 || len(pairs.Matched()) != 0 {
		t.Fatalf("expected two unmatched pairs, got %+v", pairs)
	}
}
