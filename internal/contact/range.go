package contact

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ricesearch/contact-eval/internal/pkg/errors"
)

// Bucket names a sequence separation class.
type Bucket string

const (
	BucketAll    Bucket = "all"
	BucketShort  Bucket = "short"
	BucketMedium Bucket = "medium"
	BucketLong   Bucket = "long"
	// BucketMin keeps separations at or above a threshold.
	BucketMin Bucket = "min"
)

// Range selects pairs by sequence separation. Named buckets are half-open:
// short is [6,12), medium [12,24), long [24,inf), all [1,inf).
type Range struct {
	Bucket Bucket
	Min    int // threshold for BucketMin
}

// Named ranges.
var (
	All    = Range{Bucket: BucketAll}
	Short  = Range{Bucket: BucketShort}
	Medium = Range{Bucket: BucketMedium}
	Long   = Range{Bucket: BucketLong}
)

// DefaultRange is the selector used when none is given.
var DefaultRange = MinSeparation(6)

// MinSeparation returns a range keeping separations >= n.
func MinSeparation(n int) Range {
	return Range{Bucket: BucketMin, Min: n}
}

// ParseRange parses "all", "short", "medium", "long" or a non-negative
// integer threshold.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	switch Bucket(strings.ToLower(s)) {
	case BucketAll:
		return All, nil
	case BucketShort:
		return Short, nil
	case BucketMedium:
		return Medium, nil
	case BucketLong:
		return Long, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Range{}, errors.ValidationError(
			fmt.Sprintf("invalid range %q (must be all, short, medium, long, or a non-negative integer)", s)).
			WithDetail("field", "range")
	}
	return MinSeparation(n), nil
}

// Contains reports whether a separation falls in the range.
func (r Range) Contains(sep int) bool {
	switch r.Bucket {
	case BucketAll:
		return sep >= 1
	case BucketShort:
		return sep >= 6 && sep < 12
	case BucketMedium:
		return sep >= 12 && sep < 24
	case BucketLong:
		return sep >= 24
	default:
		return sep >= r.Min
	}
}

// String returns the selector form accepted by ParseRange.
func (r Range) String() string {
	if r.Bucket == BucketMin || r.Bucket == "" {
		return strconv.Itoa(r.Min)
	}
	return string(r.Bucket)
}
