// Package contact computes inter-residue distances and selects contacts
// from them by sequence separation and distance.
package contact

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ricesearch/contact-eval/internal/pdb"
)

// Pair is the distance between two residues, with I < J.
type Pair struct {
	I        int     `json:"i"`
	J        int     `json:"j"`
	Distance float64 `json:"distance"`
}

// Separation returns |I - J|.
func (p Pair) Separation() int {
	return Separation(p.I, p.J)
}

// Separation returns the sequence separation of residues i and j.
func Separation(i, j int) int {
	if i > j {
		return i - j
	}
	return j - i
}

// Distances returns the Euclidean distance of every unordered residue pair.
// Residues must be sorted ascending by sequence number; pairs are produced
// with the outer index ascending, then the inner one.
func Distances(residues []pdb.Residue) []Pair {
	n := len(residues)
	if n < 2 {
		return nil
	}

	pairs := make([]Pair, 0, n*(n-1)/2)
	for a := 0; a < n-1; a++ {
		ra := residues[a]
		for b := a + 1; b < n; b++ {
			rb := residues[b]
			pairs = append(pairs, Pair{
				I:        ra.SeqNum,
				J:        rb.SeqNum,
				Distance: r3.Norm(r3.Sub(ra.Coords, rb.Coords)),
			})
		}
	}
	return pairs
}

// Filter keeps pairs with Distance < cutoff whose separation falls in r.
// A cutoff of 0 disables the distance test.
func Filter(pairs []Pair, r Range, cutoff float64) []Pair {
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if cutoff != 0 && !(p.Distance < cutoff) {
			continue
		}
		if !r.Contains(p.Separation()) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ProteinLength returns max - min + 1 over every index in pairs, so gaps in
// numbering count toward the length. It returns 0 for no pairs.
func ProteinLength(pairs []Pair) int {
	if len(pairs) == 0 {
		return 0
	}
	lo, hi := pairs[0].I, pairs[0].I
	for _, p := range pairs {
		lo = min(lo, p.I, p.J)
		hi = max(hi, p.I, p.J)
	}
	return hi - lo + 1
}

// Index maps unordered residue pairs to their distance.
type Index map[[2]int]float64

// NewIndex indexes pairs by unordered residue pair.
func NewIndex(pairs []Pair) Index {
	idx := make(Index, len(pairs))
	for _, p := range pairs {
		idx[key(p.I, p.J)] = p.Distance
	}
	return idx
}

// Lookup returns the distance between residues i and j in either order.
func (idx Index) Lookup(i, j int) (float64, bool) {
	d, ok := idx[key(i, j)]
	return d, ok
}

func key(i, j int) [2]int {
	if i > j {
		i, j = j, i
	}
	return [2]int{i, j}
}
