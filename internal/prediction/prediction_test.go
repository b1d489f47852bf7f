package prediction

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ricesearch/contact-eval/internal/contact"
	"github.com/ricesearch/contact-eval/internal/pkg/errors"
)

func allOptions() Options {
	return Options{Range: contact.All}
}

func TestParse_SingleLine(t *testing.T) {
	res, err := Parse(strings.NewReader("10 12 0.9\n"), allOptions())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("len(Records) = %d, want 1", len(res.Records))
	}

	got := res.Records[0]
	if got.Format != FormatPlain || got.I != 10 || got.J != 12 || got.Confidence != 0.9 {
		t.Errorf("Records[0] = %+v", got)
	}
}

func TestParse_MixedFormats(t *testing.T) {
	input := strings.Join([]string{
		"PFRMAT RR",
		"TARGET T0999",
		"MODEL  1",
		"MKVLAAGIVGLLAAQ",
		"",
		"1 30 0 8 0.85",
		"   2\t40   0.70  ",
		"3 50 0.5 extra",
		"-4 50 0.5",
		"5 60 nan",
		"6 70 0 8 1e400",
		"7 80 0.1",
		"END",
	}, "\n")

	res, err := Parse(strings.NewReader(input), allOptions())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(res.Records) != 3 {
		t.Fatalf("len(Records) = %d, want 3: %+v", len(res.Records), res.Records)
	}

	first := res.Records[0]
	if first.Format != FormatRange || first.Lower != 0 || first.Upper != 8 || first.Confidence != 0.85 {
		t.Errorf("Records[0] = %+v", first)
	}
	if second := res.Records[1]; second.Format != FormatPlain || second.I != 2 || second.J != 40 {
		t.Errorf("Records[1] = %+v", second)
	}
	if third := res.Records[2]; third.I != 7 {
		t.Errorf("Records[2] = %+v, want file order", third)
	}

	// PFRMAT, TARGET, MODEL, sequence, 4 fields, negative index, NaN, Inf, END
	if res.Skipped != 9 {
		t.Errorf("Skipped = %d, want 9", res.Skipped)
	}
}

func TestParse_Duplicates(t *testing.T) {
	res, err := Parse(strings.NewReader("1 20 0.5\n1 20 0.5\n20 1 0.4\n"), allOptions())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(res.Records) != 3 {
		t.Errorf("len(Records) = %d, want 3 (no deduplication)", len(res.Records))
	}
	if res.Records[2].I != 20 || res.Records[2].J != 1 {
		t.Errorf("index order should be preserved, got %+v", res.Records[2])
	}
}

func TestParse_Range(t *testing.T) {
	input := "1 5 0.9\n1 7 0.9\n1 13 0.9\n1 30 0.9\n"

	tests := []struct {
		r    contact.Range
		want int
	}{
		{contact.All, 4},
		{contact.Short, 1},
		{contact.Medium, 1},
		{contact.Long, 1},
		{contact.MinSeparation(6), 3},
	}

	for _, tt := range tests {
		t.Run(tt.r.String(), func(t *testing.T) {
			res, err := Parse(strings.NewReader(input), Options{Range: tt.r})
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(res.Records) != tt.want {
				t.Errorf("len(Records) = %d, want %d", len(res.Records), tt.want)
			}
			if res.OutOfRange != 4-tt.want {
				t.Errorf("OutOfRange = %d, want %d", res.OutOfRange, 4-tt.want)
			}
		})
	}
}

func TestCutoffs_Reject(t *testing.T) {
	tests := []struct {
		name string
		c    Cutoffs
		conf float64
		sep  int
		want bool
	}{
		{"zero cutoffs keep positive", Cutoffs{}, 0.1, 30, false},
		{"zero cutoffs drop zero", Cutoffs{}, 0, 30, true},
		{"all cutoff inclusive", Cutoffs{All: 0.5}, 0.5, 30, true},
		{"all cutoff above", Cutoffs{All: 0.5}, 0.51, 30, false},
		{"short at 12", Cutoffs{Short: 0.5}, 0.4, 12, true},
		{"short at 13", Cutoffs{Short: 0.5}, 0.4, 13, false},
		{"medium at 12", Cutoffs{Medium: 0.5}, 0.4, 12, true},
		{"medium at 24", Cutoffs{Medium: 0.5}, 0.4, 24, true},
		{"medium at 11", Cutoffs{Medium: 0.5}, 0.4, 11, false},
		{"medium at 25", Cutoffs{Medium: 0.5}, 0.4, 25, false},
		{"long at 24", Cutoffs{Long: 0.5}, 0.4, 24, true},
		{"long at 23", Cutoffs{Long: 0.5}, 0.4, 23, false},
		{"negative all keeps zero", Cutoffs{All: -1}, 0, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Reject(tt.conf, tt.sep); got != tt.want {
				t.Errorf("Reject(%v, %d) = %v, want %v", tt.conf, tt.sep, got, tt.want)
			}
		})
	}
}

func TestParse_Cutoffs(t *testing.T) {
	input := "1 10 0.3\n1 20 0.3\n1 40 0.3\n1 41 0.6\n"
	opts := Options{
		Range:   contact.All,
		Cutoffs: Cutoffs{Long: 0.5},
	}

	res, err := Parse(strings.NewReader(input), opts)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(res.Records) != 3 {
		t.Errorf("len(Records) = %d, want 3", len(res.Records))
	}
	if res.BelowThreshold != 1 {
		t.Errorf("BelowThreshold = %d, want 1", res.BelowThreshold)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.rr")
	if err := os.WriteFile(path, []byte("10 40 0.9\n"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(res.Records) != 1 {
		t.Errorf("len(Records) = %d, want 1", len(res.Records))
	}

	if _, err := Load(path+".missing", DefaultOptions()); !errors.IsNotFound(err) {
		t.Errorf("Load() error = %v, want not found", err)
	}
}

func TestFormat_String(t *testing.T) {
	if FormatPlain.String() != "plain" || FormatRange.String() != "range" || Format(0).String() != "unknown" {
		t.Error("unexpected Format names")
	}
}
