package evaluation

import (
	"cmp"
	"math"
	"slices"

	"github.com/ricesearch/contact-eval/internal/contact"
	"github.com/ricesearch/contact-eval/internal/prediction"
)

// CompareOptions configure Compare.
type CompareOptions struct {
	Cutoff   float64 // contact distance cutoff
	Missing  MissingPolicy
	TieBreak TieBreak
}

// DefaultCompareOptions returns the options used when none are given.
func DefaultCompareOptions(cutoff float64) CompareOptions {
	return CompareOptions{
		Cutoff:   cutoff,
		Missing:  MissingDrop,
		TieBreak: TieDescending,
	}
}

// Compare joins predictions with true distances on the unordered residue
// pair and ranks the result by descending confidence. Duplicate predictions
// are compared independently. The second return value counts predictions
// with no true distance.
func Compare(truth []contact.Pair, preds []prediction.Record, opts CompareOptions) ([]Comparison, int) {
	idx := contact.NewIndex(truth)

	out := make([]Comparison, 0, len(preds))
	unmatched := 0
	for _, p := range preds {
		d, ok := idx.Lookup(p.I, p.J)
		if !ok {
			unmatched++
			if opts.Missing != MissingMiss {
				continue
			}
			d = math.NaN()
		}

		out = append(out, Comparison{
			I:          p.I,
			J:          p.J,
			Distance:   d,
			Contact:    ok && d < opts.Cutoff,
			Confidence: p.Confidence,
			Matched:    ok,
		})
	}

	Sort(out, opts.TieBreak)
	return out, unmatched
}

// Sort orders comparisons by descending confidence, breaking ties as tb
// says. The sort is stable, so fully equal records keep their order.
func Sort(records []Comparison, tb TieBreak) {
	slices.SortStableFunc(records, func(a, b Comparison) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		c := compareTail(a, b)
		if tb == TieAscending {
			return c
		}
		return -c
	})
}

// compareTail compares I, J, Distance and Contact ascending, with false
// before true.
func compareTail(a, b Comparison) int {
	if c := cmp.Compare(a.I, b.I); c != 0 {
		return c
	}
	if c := cmp.Compare(a.J, b.J); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	return cmp.Compare(boolRank(a.Contact), boolRank(b.Contact))
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
