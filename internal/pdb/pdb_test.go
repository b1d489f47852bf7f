package pdb

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/ricesearch/contact-eval/internal/pkg/errors"
)

func atomLine(serial int, name, resName string, chain byte, resSeq int, x, y, z float64) string {
	return fmt.Sprintf("ATOM  %5d %-4s %3s %c%4d    %8.3f%8.3f%8.3f  1.00  0.00           C",
		serial, name, resName, chain, resSeq, x, y, z)
}

func parseString(t *testing.T, content string, sel AtomSelection) (*Structure, error) {
	t.Helper()
	return Parse(strings.NewReader(content), "test.pdb", sel)
}

func TestParse_Colinear(t *testing.T) {
	content := strings.Join([]string{
		"HEADER    TEST",
		atomLine(1, "N", "ALA", 'A', 10, -1, 0, 0),
		atomLine(2, "CA", "ALA", 'A', 10, 0, 0, 0),
		atomLine(3, "CA", "GLY", 'A', 11, 1, 0, 0),
		atomLine(4, "CA", "SER", 'A', 12, 2, 0, 0),
		"END",
	}, "\n")

	s, err := parseString(t, content, SelectCA)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if s.Chain != 'A' {
		t.Errorf("Chain = %q, want A", s.Chain)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	for i, want := range []int{10, 11, 12} {
		if s.Residues[i].SeqNum != want {
			t.Errorf("Residues[%d].SeqNum = %d, want %d", i, s.Residues[i].SeqNum, want)
		}
		if s.Residues[i].Coords.X != float64(i) {
			t.Errorf("Residues[%d].Coords.X = %v, want %d", i, s.Residues[i].Coords.X, i)
		}
	}
	if s.Residues[1].Name != "GLY" {
		t.Errorf("Residues[1].Name = %s, want GLY", s.Residues[1].Name)
	}
}

func TestParse_AtomSelection(t *testing.T) {
	content := strings.Join([]string{
		atomLine(1, "CA", "ALA", 'A', 1, 0, 0, 0),
		atomLine(2, "CB", "ALA", 'A', 1, 0, 1, 0),
		atomLine(3, "CA", "GLY", 'A', 2, 5, 0, 0),
		atomLine(4, "CB", "SER", 'A', 3, 9, 1, 0), // CB before CA
		atomLine(5, "CA", "SER", 'A', 3, 9, 0, 0),
	}, "\n")

	tests := []struct {
		sel   AtomSelection
		wantY []float64
	}{
		{SelectCA, []float64{0, 0, 0}},
		{SelectCB, []float64{1, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sel), func(t *testing.T) {
			s, err := parseString(t, content, tt.sel)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if s.Len() != len(tt.wantY) {
				t.Fatalf("Len() = %d, want %d", s.Len(), len(tt.wantY))
			}
			for i, y := range tt.wantY {
				if s.Residues[i].Coords.Y != y {
					t.Errorf("residue %d Y = %v, want %v", s.Residues[i].SeqNum, s.Residues[i].Coords.Y, y)
				}
			}
		})
	}
}

func TestParse_FirstChainAndModel(t *testing.T) {
	content := strings.Join([]string{
		"MODEL        1",
		atomLine(1, "CA", "ALA", 'B', 5, 0, 0, 0),
		atomLine(2, "CA", "ALA", 'A', 6, 1, 0, 0),
		"HETATM    3  CA  HOH B   7       2.000   0.000   0.000  1.00  0.00           O",
		atomLine(4, "CA", "ALA", 'B', 8, 3, 0, 0),
		"ENDMDL",
		"MODEL        2",
		atomLine(5, "CA", "ALA", 'B', 9, 4, 0, 0),
		"ENDMDL",
	}, "\n")

	s, err := parseString(t, content, SelectCA)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.ChainID() != "B" {
		t.Errorf("ChainID() = %s, want B", s.ChainID())
	}

	var got []int
	for _, r := range s.Residues {
		got = append(got, r.SeqNum)
	}
	if fmt.Sprint(got) != "[5 8]" {
		t.Errorf("residues = %v, want [5 8]", got)
	}
}

func TestParse_SkipsShortRecordsOfOtherChains(t *testing.T) {
	content := strings.Join([]string{
		atomLine(1, "CA", "ALA", 'A', 1, 0, 0, 0),
		atomLine(2, "CA", "ALA", 'B', 1, 5, 0, 0)[:30],
		"ATOM      3  CA  ALA B",
		atomLine(4, "CA", "ALA", 'A', 2, 1, 0, 0),
	}, "\n")

	s, err := parseString(t, content, SelectCA)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.ChainID() != "A" || s.Len() != 2 {
		t.Errorf("chain %s with %d residues, want chain A with 2", s.ChainID(), s.Len())
	}
}

func TestParse_SortsResidues(t *testing.T) {
	content := strings.Join([]string{
		atomLine(1, "CA", "ALA", 'A', 30, 0, 0, 0),
		atomLine(2, "CA", "ALA", 'A', -2, 1, 0, 0),
		atomLine(3, "CA", "ALA", 'A', 4, 2, 0, 0),
	}, "\n")

	s, err := parseString(t, content, SelectCA)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	for i := 1; i < s.Len(); i++ {
		if s.Residues[i-1].SeqNum >= s.Residues[i].SeqNum {
			t.Fatalf("residues not ascending: %v", s.Residues)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	good := atomLine(1, "CA", "ALA", 'A', 1, 0, 0, 0)
	badX := good[:30] + "   abc.x" + good[38:]

	tests := []struct {
		name     string
		content  string
		wantLine string
	}{
		{"empty file", "", ""},
		{"no atom records", "HEADER    TEST\nHETATM    1  O   HOH A   1       0.000   0.000   0.000\n", ""},
		{"atoms only after first model", "ENDMDL\n" + good, ""},
		{"no CA atoms", atomLine(1, "N", "ALA", 'A', 1, 0, 0, 0), ""},
		{"malformed coordinate", good + "\n" + badX, "2"},
		{"truncated record", good[:40], "1"},
		{"truncated before chain", good[:20], "1"},
		{"truncated record in selected chain", good + "\n" + atomLine(2, "CA", "ALA", 'A', 2, 1, 0, 0)[:40], "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseString(t, tt.content, SelectCA)
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !errors.IsParse(err) {
				t.Errorf("Parse() error = %v, want a parse error", err)
			}
			var appErr *errors.AppError
			if tt.wantLine != "" {
				appErr = err.(*errors.AppError)
				if appErr.Details["line"] != tt.wantLine {
					t.Errorf("line = %s, want %s", appErr.Details["line"], tt.wantLine)
				}
			}
		})
	}
}

func TestParse_InvalidSelection(t *testing.T) {
	_, err := parseString(t, atomLine(1, "CA", "ALA", 'A', 1, 0, 0, 0), AtomSelection("CG"))
	if !errors.IsValidation(err) {
		t.Errorf("Parse() error = %v, want a validation error", err)
	}
}

func TestParseAtomSelection(t *testing.T) {
	tests := []struct {
		input   string
		want    AtomSelection
		wantErr bool
	}{
		{"CA", SelectCA, false},
		{"cb", SelectCB, false},
		{" CB ", SelectCB, false},
		{"CG", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAtomSelection(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAtomSelection(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAtomSelection(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	content := atomLine(1, "CA", "ALA", 'A', 1, 0, 0, 0) + "\n" +
		atomLine(2, "CA", "ALA", 'A', 2, 3.8, 0, 0) + "\n"

	plain := filepath.Join(dir, "model.pdb")
	if err := os.WriteFile(plain, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	compressed := filepath.Join(dir, "model.pdb.gz")
	if err := os.WriteFile(compressed, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{plain, compressed} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := Load(path, SelectCA)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if s.Len() != 2 {
				t.Errorf("Len() = %d, want 2", s.Len())
			}
			if s.Path != path {
				t.Errorf("Path = %s, want %s", s.Path, path)
			}
		})
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.pdb"), SelectCA)
	if !errors.IsNotFound(err) {
		t.Errorf("Load() error = %v, want not found", err)
	}
}

func TestCheckSchema(t *testing.T) {
	if err := checkSchema(atomSchema); err != nil {
		t.Errorf("atom schema invalid: %v", err)
	}
	if minAtomLen != 54 {
		t.Errorf("minAtomLen = %d, want 54", minAtomLen)
	}

	overlapping := []column{{"a", 1, 6}, {"b", 6, 8}}
	if err := checkSchema(overlapping); err == nil {
		t.Error("checkSchema() should reject overlapping columns")
	}

	inverted := []column{{"a", 5, 2}}
	if err := checkSchema(inverted); err == nil {
		t.Error("checkSchema() should reject inverted ranges")
	}
}
