package evaluation

import "math"

// Precision returns the fraction of contacts among the first k records.
// It is NaN when there is nothing to count.
func Precision(records []Comparison, k int) float64 {
	if k > len(records) {
		k = len(records)
	}
	if k <= 0 {
		return math.NaN()
	}

	return float64(countContacts(records[:k])) / float64(k)
}

func countContacts(records []Comparison) int {
	n := 0
	for _, r := range records {
		if r.Contact {
			n++
		}
	}
	return n
}

// mean returns the mean of the defined values and how many there were.
func mean(values []float64) (float64, int) {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN(), 0
	}
	return sum / float64(n), n
}
