package contact

import (
	"testing"

	"github.com/ricesearch/contact-eval/internal/pkg/errors"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		input   string
		want    Range
		wantErr bool
	}{
		{"all", All, false},
		{"short", Short, false},
		{"MEDIUM", Medium, false},
		{"long", Long, false},
		{"6", MinSeparation(6), false},
		{"0", MinSeparation(0), false},
		{"-1", Range{}, true},
		{"far", Range{}, true},
		{"", Range{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRange(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRange(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr && !errors.IsValidation(err) {
				t.Errorf("ParseRange(%q) error = %v, want validation error", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseRange(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRange_Contains(t *testing.T) {
	tests := []struct {
		r    Range
		sep  int
		want bool
	}{
		{All, 0, false},
		{All, 1, true},
		{Short, 5, false},
		{Short, 6, true},
		{Short, 11, true},
		{Short, 12, false},
		{Medium, 12, true},
		{Medium, 23, true},
		{Medium, 24, false},
		{Long, 23, false},
		{Long, 24, true},
		{Long, 500, true},
		{MinSeparation(6), 5, false},
		{MinSeparation(6), 6, true},
		{MinSeparation(0), 0, true},
	}

	for _, tt := range tests {
		if got := tt.r.Contains(tt.sep); got != tt.want {
			t.Errorf("%s.Contains(%d) = %v, want %v", tt.r, tt.sep, got, tt.want)
		}
	}
}

func TestRange_String(t *testing.T) {
	for _, s := range []string{"all", "short", "medium", "long", "6", "24"} {
		r, err := ParseRange(s)
		if err != nil {
			t.Fatalf("ParseRange(%q) error = %v", s, err)
		}
		if r.String() != s {
			t.Errorf("String() = %s, want %s", r.String(), s)
		}
	}
	if DefaultRange.String() != "6" {
		t.Errorf("DefaultRange = %s, want 6", DefaultRange)
	}
}
