package ranking

import (
	"testing"

	"AutoOptimiser/internal/domain/models"
)

func rec(id string, pl, dd, z float64) models.ResultRecord {
	return models.ResultRecord{
		Params:       map[string]string{"id": id},
		Coefficients: models.Coefficients{PL: pl, DD: dd, AltmanZScore: z},
	}
}

func ids(rs []models.ResultRecord) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Params["id"]
	}
	return out
}

func TestPreferredDirections(t *testing.T) {
	cases := map[models.Criterion]bool{
		models.CritDD:              true,
		models.CritMaxDD:           true,
		models.CritVaRStd:          true,
		models.CritDayLoseTradesWe: true,
		models.CritAltmanZScore:    false,
		models.CritPL:              false,
		models.CritDayProfitMn:     false,
	}
	for c, want := range cases {
		if got := PrefersAscending(c); got != want {
			t.Fatalf("%s: got %v want %v", c, got, want)
		}
	}
}

func TestValueExtractsDays(t *testing.T) {
	var r models.ResultRecord
	r.Coefficients.Days[2] = models.DailyStats{Profit: 5, DD: 1, ProfitTrades: 7, LoseTrades: 3}
	if Value(&r, models.CritDayProfitWe) != 5 || Value(&r, models.CritDayDDWe) != 1 {
		t.Fatalf("wednesday profit/dd not extracted")
	}
	if Value(&r, models.CritDayProfitTradesWe) != 7 || Value(&r, models.CritDayLoseTradesWe) != 3 {
		t.Fatalf("wednesday trade counts not extracted")
	}
	if Value(&r, models.CritDayProfitMn) != 0 {
		t.Fatalf("monday should be empty")
	}
}

func TestRankSingleCriterion(t *testing.T) {
	in := []models.ResultRecord{rec("a", 10, 5, 0), rec("b", 30, 1, 0), rec("c", 20, 9, 0)}

	got := ids(Rank(in, []models.Criterion{models.CritPL}, models.SortAscending))
	if got[0] != "b" || got[1] != "c" || got[2] != "a" {
		t.Fatalf("pl should sort descending, got %v", got)
	}

	// Caller direction does not change a single-criterion order.
	got = ids(Rank(in, []models.Criterion{models.CritDD}, models.SortDescending))
	if got[0] != "b" || got[1] != "a" || got[2] != "c" {
		t.Fatalf("dd should sort ascending, got %v", got)
	}

	if ids(in)[0] != "a" {
		t.Fatalf("input must not be reordered")
	}
}

func TestRankMultiCriteriaScores(t *testing.T) {
	in := []models.ResultRecord{
		rec("best", 100, 1, 3),
		rec("mid", 50, 5, 2),
		rec("worst", -20, 10, -1),
	}
	crit := []models.Criterion{models.CritPL, models.CritDD, models.CritAltmanZScore, models.CritPL}
	out := Rank(in, crit, models.SortAscending)

	for _, r := range out {
		if r.Rank < 0 || r.Rank > 1 {
			t.Fatalf("score %v out of [0,1] for %s", r.Rank, r.Params["id"])
		}
	}
	got := ids(out)
	if got[0] != "best" || got[2] != "worst" {
		t.Fatalf("unexpected order %v", got)
	}
	if out[0].Rank > out[1].Rank {
		t.Fatalf("ascending order expected")
	}

	desc := ids(Rank(in, crit, models.SortDescending))
	if desc[0] != "worst" || desc[2] != "best" {
		t.Fatalf("descending order expected, got %v", desc)
	}
}

func TestRankScoreValues(t *testing.T) {
	// PL 0..10 (prefers larger), DD 0..4 (prefers smaller).
	in := []models.ResultRecord{rec("x", 10, 4, 0), rec("y", 0, 0, 0)}
	out := Rank(in, []models.Criterion{models.CritPL, models.CritDD}, models.SortAscending)
	for _, r := range out {
		if r.Rank != 0.5 {
			t.Fatalf("expected 0.5 for %s, got %v", r.Params["id"], r.Rank)
		}
	}
}

func TestRankZeroRangeContributesNothing(t *testing.T) {
	in := []models.ResultRecord{rec("a", 0, 0, 0), rec("b", 0, 0, 0)}
	out := Rank(in, []models.Criterion{models.CritPL, models.CritDD}, models.SortAscending)
	for _, r := range out {
		if r.Rank != 0 {
			t.Fatalf("expected zero score, got %v", r.Rank)
		}
	}
}

func TestFilter(t *testing.T) {
	in := []models.ResultRecord{rec("a", 10, 5, 0), rec("b", 30, 1, 0), rec("c", 20, 9, 0)}
	preds := []models.FilterPredicate{
		{Criterion: models.CritPL, Comparator: models.CmpGreater | models.CmpEqual, Threshold: 20},
		{Criterion: models.CritDD, Comparator: models.CmpLess, Threshold: 9},
	}
	once := Filter(in, preds)
	if got := ids(once); len(got) != 1 || got[0] != "b" {
		t.Fatalf("unexpected survivors %v", got)
	}
	twice := Filter(once, preds)
	if len(twice) != len(once) || twice[0].Params["id"] != once[0].Params["id"] {
		t.Fatalf("filter is not idempotent")
	}
	if len(Filter(in, nil)) != len(in) {
		t.Fatalf("no predicates should keep everything")
	}
}

func TestBest(t *testing.T) {
	if _, ok := Best(nil, []models.Criterion{models.CritPL}, models.SortAscending); ok {
		t.Fatalf("expected no best record for empty input")
	}
	in := []models.ResultRecord{rec("a", 1, 0, 0), rec("b", 2, 0, 0)}
	b, ok := Best(in, []models.Criterion{models.CritPL}, models.SortAscending)
	if !ok || b.Params["id"] != "b" {
		t.Fatalf("unexpected best %+v", b)
	}
}
