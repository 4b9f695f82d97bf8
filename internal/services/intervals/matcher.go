// Package intervals pairs history windows with the forward windows that follow them.
package intervals

import (
	"AutoOptimiser/internal/domain/models"
)

// Pair is one history window and its forward window, if any.
type Pair struct {
	History models.DateInterval
	Forward *models.DateInterval
}

// Pairs is the ordered result of Match.
type Pairs []Pair

// Lookup returns the forward window mapped to h.
func (p Pairs) Lookup(h models.DateInterval) (fwd *models.DateInterval, found bool) {
	for i := range p {
		if p[i].History == h {
			return p[i].Forward, true
		}
	}
	return nil, false
}

// Matched returns only the pairs that have a forward window.
func (p Pairs) Matched() Pairs {
	out := make(Pairs, 0, len(p))
	for _, pr := range p {
		if pr.Forward != nil {
			out = append(out, pr)
		}
	}
	return out
}

// Match maps every distinct history window to the first unclaimed forward
// window starting no earlier than the history window ends. Both inputs are
// sorted by (from, till); the forward cursor only moves forward, so each
// forward window is used at most once. A forward window equal to one already
// claimed is skipped.
func Match(history, forward []models.DateInterval) Pairs {
	hs := append([]models.DateInterval(nil), history...)
	fs := append([]models.DateInterval(nil), forward...)
	models.SortIntervals(hs)
	models.SortIntervals(fs)

	out := make(Pairs, 0, len(hs))
	seen := make(map[models.DateInterval]struct{}, len(hs))
	claimed := make(map[models.DateInterval]struct{}, len(fs))

	cursor := 0
	for _, h := range hs {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		pair := Pair{History: h}

		for j := cursor; j < len(fs); j++ {
			f := fs[j]
			if _, taken := claimed[f]; taken {
				continue
			}
			if f.From().Before(h.Till()) {
				continue
			}
			claimed[f] = struct{}{}
			fwd := f
			pair.Forward = &fwd
			cursor = j + 1
			break
		}
		out = append(out, pair)
	}
	return out
}
