// Package ranking filters result records by coefficient thresholds and
// orders them by one or more criteria.
package ranking

import (
	"math"
	"sort"

	"AutoOptimiser/internal/domain/models"
)

// Filter returns the records for which every predicate holds.
// The input slice is not modified.
func Filter(records []models.ResultRecord, preds []models.FilterPredicate) []models.ResultRecord {
	out := make([]models.ResultRecord, 0, len(records))
	for i := range records {
		if matches(&records[i], preds) {
			out = append(out, records[i])
		}
	}
	return out
}

func matches(r *models.ResultRecord, preds []models.FilterPredicate) bool {
	for _, p := range preds {
		if !p.Comparator.Eval(Value(r, p.Criterion), p.Threshold) {
			return false
		}
	}
	return true
}

// Rank returns a sorted copy of records with Rank set.
//
// With one criterion records are ordered by its raw value in the criterion's
// preferred direction and dir is ignored. With several, each record gets a
// score in [0,1] where 0 is best on every criterion, and records are ordered
// by score in dir.
func Rank(records []models.ResultRecord, criteria []models.Criterion, dir models.SortDirection) []models.ResultRecord {
	out := make([]models.ResultRecord, len(records))
	for i := range records {
		out[i] = records[i].Clone()
	}
	crit := distinct(criteria)
	if len(out) == 0 || len(crit) == 0 {
		return out
	}

	score(out, crit)

	if len(crit) == 1 {
		c := crit[0]
		asc := PrefersAscending(c)
		sort.SliceStable(out, func(i, j int) bool {
			vi, vj := Value(&out[i], c), Value(&out[j], c)
			if asc {
				return vi < vj
			}
			return vi > vj
		})
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		if dir == models.SortDescending {
			return out[i].Rank > out[j].Rank
		}
		return out[i].Rank < out[j].Rank
	})
	return out
}

// Best returns the first record Rank would return.
func Best(records []models.ResultRecord, criteria []models.Criterion, dir models.SortDirection) (models.ResultRecord, bool) {
	ranked := Rank(records, criteria, dir)
	if len(ranked) == 0 {
		return models.ResultRecord{}, false
	}
	return ranked[0], true
}

func score(records []models.ResultRecord, crit []models.Criterion) {
	weight := 1 / float64(len(crit))
	for i := range records {
		records[i].Rank = 0
	}
	for _, c := range crit {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := range records {
			v := Value(&records[i], c)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		shift := 0.0
		if lo < 0 {
			shift = -lo
		}
		top := hi + shift
		if top <= 0 {
			continue
		}
		asc := PrefersAscending(c)
		for i := range records {
			v := (Value(&records[i], c) + shift) / top
			if asc {
				records[i].Rank += v * weight
			} else {
				records[i].Rank += (1 - v) * weight
			}
		}
	}
}

func distinct(criteria []models.Criterion) []models.Criterion {
	seen := make(map[models.Criterion]struct{}, len(criteria))
	out := make([]models.Criterion, 0, len(criteria))
	for _, c := range criteria {
		if !c.Valid() {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
