package evaluation

import (
	"fmt"
	"strings"

	"github.com/ricesearch/contact-eval/internal/pkg/errors"
)

// Comparison is a predicted pair joined with its true distance.
type Comparison struct {
	I, J       int // as predicted
	Distance   float64
	Contact    bool // Distance < cutoff
	Confidence float64
	Matched    bool // false if the structure has no distance for the pair
}

// MissingPolicy decides what happens to predictions without a true distance.
type MissingPolicy string

const (
	// MissingDrop leaves them out of the comparison.
	MissingDrop MissingPolicy = "drop"
	// MissingMiss keeps them as non-contacts with a NaN distance.
	MissingMiss MissingPolicy = "miss"
)

// ParseMissingPolicy parses "drop" or "miss".
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch p := MissingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MissingDrop, MissingMiss:
		return p, nil
	}
	return "", errors.ValidationError(fmt.Sprintf("invalid missing policy %q (must be drop or miss)", s)).
		WithDetail("field", "missing")
}

// TieBreak orders comparisons of equal confidence.
type TieBreak string

const (
	// TieDescending orders ties by descending I, J and distance, contacts
	// first: the whole record compared in reverse.
	TieDescending TieBreak = "descending"
	// TieAscending orders ties by ascending I, J and distance, contacts last.
	TieAscending TieBreak = "ascending"
)

// ParseTieBreak parses "descending" or "ascending".
func ParseTieBreak(s string) (TieBreak, error) {
	switch tb := TieBreak(strings.ToLower(strings.TrimSpace(s))); tb {
	case TieDescending, TieAscending:
		return tb, nil
	}
	return "", errors.ValidationError(fmt.Sprintf("invalid tie break %q (must be descending or ascending)", s)).
		WithDetail("field", "tie_break")
}

// Cut is one bucket and rank cut of a ranked comparison list.
type Cut struct {
	Key       string
	Limit     int // L, L/2 or L/5
	Top       []Comparison
	Contacts  int
	Precision float64 // NaN when Top is empty
}

// Defined reports whether the cut has a precision.
func (c *Cut) Defined() bool {
	return len(c.Top) > 0
}

// Report holds the precision of every cut, in Keys order.
type Report struct {
	Length int
	Cuts   []Cut
}

// Summary aggregates reports of several prediction files.
type Summary struct {
	Count   int                `json:"count"`
	Mean    map[string]float64 `json:"mean"`    // NaN when no report defines the key
	Defined map[string]int     `json:"defined"` // reports with a defined value
}
