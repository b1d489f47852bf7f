package evaluation

import (
	"math"

	"github.com/ricesearch/contact-eval/internal/contact"
)

// Keys names every cut in report order. The digit is the divisor of L.
var Keys = []string{
	"short1", "short2", "short5",
	"medm1", "medm2", "medm5",
	"long1", "long2", "long5",
	"all1", "all2", "all5",
}

// bucket groups the three cuts of one separation class.
type bucket struct {
	prefix string
	r      *contact.Range // nil keeps every record
}

var buckets = []bucket{
	{"short", &contact.Short},
	{"medm", &contact.Medium},
	{"long", &contact.Long},
	{"all", nil},
}

var divisors = []int{1, 2, 5}

// Evaluate computes top-L, top-L/2 and top-L/5 precision for each
// separation class of a ranked comparison list. Each class is filtered out
// of the ranked list before truncation; the L/2 and L/5 cuts are prefixes
// of the top-L cut.
func Evaluate(ranked []Comparison, length int) *Report {
	report := &Report{
		Length: length,
		Cuts:   make([]Cut, 0, len(Keys)),
	}

	for _, b := range buckets {
		top := topN(filterBucket(ranked, b.r), length)
		for _, d := range divisors {
			limit := length / d
			cutTop := top[:min(limit, len(top))]
			report.Cuts = append(report.Cuts, Cut{
				Key:       b.prefix + string(rune('0'+d)),
				Limit:     limit,
				Top:       cutTop,
				Contacts:  countContacts(cutTop),
				Precision: Precision(cutTop, len(cutTop)),
			})
		}
	}

	return report
}

func filterBucket(ranked []Comparison, r *contact.Range) []Comparison {
	if r == nil {
		return ranked
	}
	out := make([]Comparison, 0, len(ranked))
	for _, c := range ranked {
		if r.Contains(contact.Separation(c.I, c.J)) {
			out = append(out, c)
		}
	}
	return out
}

func topN(records []Comparison, n int) []Comparison {
	if n < 0 {
		n = 0
	}
	return records[:min(n, len(records))]
}

// Cut returns the cut named key.
func (r *Report) Cut(key string) (*Cut, bool) {
	for i := range r.Cuts {
		if r.Cuts[i].Key == key {
			return &r.Cuts[i], true
		}
	}
	return nil, false
}

// Precision returns the precision of the cut named key, or NaN.
func (r *Report) Precision(key string) float64 {
	if c, ok := r.Cut(key); ok {
		return c.Precision
	}
	return math.NaN()
}

// Values returns the precision of every cut in Keys order.
func (r *Report) Values() []float64 {
	out := make([]float64, len(r.Cuts))
	for i, c := range r.Cuts {
		out[i] = c.Precision
	}
	return out
}

// Summarize averages each key over the reports that define it.
func Summarize(reports []*Report) *Summary {
	summary := &Summary{
		Count:   len(reports),
		Mean:    make(map[string]float64, len(Keys)),
		Defined: make(map[string]int, len(Keys)),
	}

	values := make([]float64, 0, len(reports))
	for _, key := range Keys {
		values = values[:0]
		for _, r := range reports {
			values = append(values, r.Precision(key))
		}
		summary.Mean[key], summary.Defined[key] = mean(values)
	}

	return summary
}

// Values returns the mean of every key in Keys order.
func (s *Summary) Values() []float64 {
	out := make([]float64, len(Keys))
	for i, key := range Keys {
		v, ok := s.Mean[key]
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}
