// Package report writes contacts, comparisons and precision statistics as
// tab separated text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ricesearch/contact-eval/internal/contact"
	"github.com/ricesearch/contact-eval/internal/evaluation"
	"github.com/ricesearch/contact-eval/internal/pkg/errors"
)

// Shape is the output shape of a run.
type Shape string

const (
	ShapeList Shape = "list"
	ShapeDist Shape = "dist"
	ShapeStat Shape = "stat"
)

// ParseShape parses "list", "dist" or "stat".
func ParseShape(s string) (Shape, error) {
	switch sh := Shape(strings.ToLower(strings.TrimSpace(s))); sh {
	case ShapeList, ShapeDist, ShapeStat:
		return sh, nil
	}
	return "", errors.ValidationError(fmt.Sprintf("invalid output format %q (must be list, dist, or stat)", s)).
		WithDetail("field", "outfmt")
}

// Printer writes results to Out. In text mode, column headers of
// statistics go to Err so that Out stays machine readable. JSON output
// always carries distances; undefined values are null.
type Printer struct {
	Out  io.Writer
	Err  io.Writer
	JSON bool
}

// Contacts writes ground truth pairs in list or dist shape.
func (p *Printer) Contacts(pairs []contact.Pair, shape Shape) error {
	if shape == ShapeStat {
		return errors.ValidationError("stat output needs a prediction file")
	}
	if p.JSON {
		out := make([]jsonPair, len(pairs))
		for i, c := range pairs {
			out[i] = jsonPair{I: c.I, J: c.J, Distance: finite(c.Distance)}
		}
		return p.encode(out)
	}

	for _, c := range pairs {
		var err error
		if shape == ShapeDist {
			_, err = fmt.Fprintf(p.Out, "%d\t%d\t%.1f\n", c.I, c.J, c.Distance)
		} else {
			_, err = fmt.Fprintf(p.Out, "%d\t%d\n", c.I, c.J)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Comparisons writes ranked comparisons in list or dist shape.
func (p *Printer) Comparisons(records []evaluation.Comparison, shape Shape) error {
	if p.JSON {
		out := make([]jsonComparison, len(records))
		for i, c := range records {
			out[i] = jsonComparison{
				I:          c.I,
				J:          c.J,
				Distance:   finite(c.Distance),
				Contact:    c.Contact,
				Confidence: c.Confidence,
				Matched:    c.Matched,
			}
		}
		return p.encode(out)
	}

	for _, c := range records {
		var err error
		if shape == ShapeDist {
			_, err = fmt.Fprintf(p.Out, "%d\t%d\t%.1f\t%s\t%.3f\n", c.I, c.J, c.Distance, label(c.Contact), c.Confidence)
		} else {
			_, err = fmt.Fprintf(p.Out, "%d\t%d\t%s\t%.3f\n", c.I, c.J, label(c.Contact), c.Confidence)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Stat writes the twelve precision values of a report.
func (p *Printer) Stat(r *evaluation.Report) error {
	if p.JSON {
		return p.encode(newJSONReport("", r))
	}

	if err := p.header(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(p.Out, formatValues(r.Values()))
	return err
}

// Batch writes one statistics line per prediction file and a final line
// with the mean of each key.
func (p *Printer) Batch(paths []string, reports []*evaluation.Report, summary *evaluation.Summary) error {
	if p.JSON {
		out := jsonBatch{
			Reports: make([]jsonReport, len(reports)),
			Summary: jsonSummary{
				Count:   summary.Count,
				Mean:    precisionMap(evaluation.Keys, summary.Values()),
				Defined: summary.Defined,
			},
		}
		for i, r := range reports {
			out.Reports[i] = newJSONReport(paths[i], r)
		}
		return p.encode(out)
	}

	if err := p.header("file"); err != nil {
		return err
	}
	for i, r := range reports {
		if _, err := fmt.Fprintf(p.Out, "%s\t%s\n", paths[i], formatValues(r.Values())); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(p.Out, "mean\t%s\n", formatValues(summary.Values()))
	return err
}

func (p *Printer) header(leading ...string) error {
	if p.Err == nil {
		return nil
	}
	cols := make([]string, 0, len(leading)+len(evaluation.Keys))
	cols = append(cols, leading...)
	cols = append(cols, evaluation.Keys...)
	_, err := fmt.Fprintln(p.Err, strings.Join(cols, "\t"))
	return err
}

func (p *Printer) encode(v any) error {
	enc := json.NewEncoder(p.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func label(contact bool) string {
	if contact {
		return "TRUE"
	}
	return "FALSE"
}

func formatValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.3f", v)
	}
	return strings.Join(parts, "\t")
}

// finite returns nil for NaN and infinities, which JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

type jsonPair struct {
	I        int      `json:"i"`
	J        int      `json:"j"`
	Distance *float64 `json:"distance"`
}

type jsonComparison struct {
	I          int      `json:"i"`
	J          int      `json:"j"`
	Distance   *float64 `json:"distance"`
	Contact    bool     `json:"contact"`
	Confidence float64  `json:"confidence"`
	Matched    bool     `json:"matched"`
}

type jsonReport struct {
	File      string              `json:"file,omitempty"`
	Length    int                 `json:"length"`
	Precision map[string]*float64 `json:"precision"`
	Counts    map[string]int      `json:"counts"`
}

type jsonSummary struct {
	Count   int                 `json:"count"`
	Mean    map[string]*float64 `json:"mean"`
	Defined map[string]int      `json:"defined"`
}

type jsonBatch struct {
	Reports []jsonReport `json:"reports"`
	Summary jsonSummary  `json:"summary"`
}

func newJSONReport(file string, r *evaluation.Report) jsonReport {
	out := jsonReport{
		File:      file,
		Length:    r.Length,
		Precision: make(map[string]*float64, len(r.Cuts)),
		Counts:    make(map[string]int, len(r.Cuts)),
	}
	for _, c := range r.Cuts {
		out.Precision[c.Key] = finite(c.Precision)
		out.Counts[c.Key] = len(c.Top)
	}
	return out
}

func precisionMap(keys []string, values []float64) map[string]*float64 {
	out := make(map[string]*float64, len(keys))
	for i, k := range keys {
		out[k] = finite(values[i])
	}
	return out
}
