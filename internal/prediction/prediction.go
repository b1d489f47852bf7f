// Package prediction parses predicted contact maps.
//
// Two line shapes are recognised after whitespace tokenisation:
//
//	i j confidence                 (plain)
//	i j lower upper confidence     (CASP RR distance range)
//
// Any other line is skipped.
package prediction

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ricesearch/contact-eval/internal/contact"
	"github.com/ricesearch/contact-eval/internal/pkg/errors"
)

// Format identifies the shape a record was read from.
type Format int

const (
	FormatPlain Format = iota + 1
	FormatRange
)

func (f Format) String() string {
	switch f {
	case FormatPlain:
		return "plain"
	case FormatRange:
		return "range"
	default:
		return "unknown"
	}
}

// Record is one predicted residue pair. Lower and Upper are only set for
// FormatRange records.
type Record struct {
	Format     Format
	I, J       int
	Lower      float64
	Upper      float64
	Confidence float64
}

// Separation returns |I - J|.
func (r Record) Separation() int {
	return contact.Separation(r.I, r.J)
}

// Cutoffs are confidence thresholds. A prediction is rejected when its
// confidence is at or below All, or at or below the threshold of its
// separation class. The classes here are closed at both 12 and 24.
type Cutoffs struct {
	All    float64
	Short  float64
	Medium float64
	Long   float64
}

// Reject reports whether a prediction is dropped by the cutoffs.
func (c Cutoffs) Reject(conf float64, sep int) bool {
	return conf <= c.All ||
		(conf <= c.Short && sep <= 12) ||
		(conf <= c.Medium && 12 <= sep && sep <= 24) ||
		(conf <= c.Long && sep >= 24)
}

// Options control which records Parse keeps.
type Options struct {
	Range   contact.Range
	Cutoffs Cutoffs
}

// DefaultOptions keeps separations >= 6 with no confidence cutoffs.
func DefaultOptions() Options {
	return Options{Range: contact.DefaultRange}
}

// Result is the outcome of parsing a prediction file.
type Result struct {
	Records []Record // in file order

	Skipped        int // lines of neither shape
	OutOfRange     int // records outside the separation range
	BelowThreshold int // records rejected by the confidence cutoffs
}

// Parse reads predictions from r.
func Parse(r io.Reader, opts Options) (*Result, error) {
	res := &Result{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		rec, ok := parseLine(line)
		if !ok {
			res.Skipped++
			continue
		}

		sep := rec.Separation()
		if !opts.Range.Contains(sep) {
			res.OutOfRange++
			continue
		}
		if opts.Cutoffs.Reject(rec.Confidence, sep) {
			res.BelowThreshold++
			continue
		}

		res.Records = append(res.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.InternalError("reading predictions", err)
	}

	return res, nil
}

// Load parses the prediction file at path.
func Load(path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NotFoundError("prediction file "+path, err)
	}
	defer f.Close()

	res, err := Parse(f, opts)
	if err != nil {
		return nil, errors.ParseError(path, 0, err.Error())
	}
	return res, nil
}

// parseLine resolves the shape of a line by its field count.
func parseLine(line string) (Record, bool) {
	fields := strings.Fields(line)

	var rec Record
	switch len(fields) {
	case 3:
		rec.Format = FormatPlain
	case 5:
		rec.Format = FormatRange
	default:
		return Record{}, false
	}

	var ok bool
	if rec.I, ok = parseIndex(fields[0]); !ok {
		return Record{}, false
	}
	if rec.J, ok = parseIndex(fields[1]); !ok {
		return Record{}, false
	}
	if rec.Format == FormatRange {
		if rec.Lower, ok = parseReal(fields[2]); !ok {
			return Record{}, false
		}
		if rec.Upper, ok = parseReal(fields[3]); !ok {
			return Record{}, false
		}
	}
	if rec.Confidence, ok = parseReal(fields[len(fields)-1]); !ok {
		return Record{}, false
	}
	return rec, true
}

// parseIndex accepts unsigned decimal integers only.
func parseIndex(s string) (int, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func parseReal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
