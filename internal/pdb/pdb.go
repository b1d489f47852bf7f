// Package pdb reads residue coordinates from PDB structure files.
//
// Only the first model of a file is read, and within it only the chain
// named by the first ATOM record. Each residue is reduced to a single
// position chosen by an AtomSelection.
package pdb

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ricesearch/contact-eval/internal/pkg/errors"
)

// AtomSelection chooses which atom represents a residue.
type AtomSelection string

const (
	// SelectCA uses the alpha carbon of every residue.
	SelectCA AtomSelection = "CA"

	// SelectCB uses the beta carbon, falling back to the alpha carbon for
	// residues without one (glycine).
	SelectCB AtomSelection = "CB"
)

// ParseAtomSelection parses "CA" or "CB".
func ParseAtomSelection(s string) (AtomSelection, error) {
	switch sel := AtomSelection(strings.ToUpper(strings.TrimSpace(s))); sel {
	case SelectCA, SelectCB:
		return sel, nil
	}
	return "", errors.ValidationError(fmt.Sprintf("invalid atom selection %q (must be CA or CB)", s)).
		WithDetail("field", "atom")
}

// Residue is the position of one residue under an AtomSelection.
type Residue struct {
	SeqNum int
	Name   string
	Coords r3.Vec
}

// Structure is the residue set of the first chain of the first model.
type Structure struct {
	Path     string
	Chain    byte
	Residues []Residue // ascending by SeqNum
}

// Len returns the number of residues with a recorded position.
func (s *Structure) Len() int {
	return len(s.Residues)
}

// ChainID returns the chain identifier as a string.
func (s *Structure) ChainID() string {
	return string(s.Chain)
}

// Open opens a structure file for reading. Files ending in ".gz" are
// decompressed transparently.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NotFoundError("structure file "+path, err)
	}
	if filepath.Ext(path) != ".gz" {
		return f, nil
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.ParseError(path, 0, "invalid gzip stream: "+err.Error())
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return zerr
}

// ReadFile reads the whole, decompressed contents of a structure file.
func ReadFile(path string) ([]byte, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.ParseError(path, 0, "read failed: "+err.Error())
	}
	return data, nil
}

// Load reads and parses the structure file at path.
func Load(path string, sel AtomSelection) (*Structure, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(data), path, sel)
}

// Parse reads ATOM records from r. The path is used in errors only.
func Parse(r io.Reader, path string, sel AtomSelection) (*Structure, error) {
	if sel != SelectCA && sel != SelectCB {
		return nil, errors.ValidationError(fmt.Sprintf("invalid atom selection %q", sel))
	}

	b := newBuilder(sel)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := record(scanner.Bytes())

		if line.isModelEnd() {
			break
		}
		if !line.isAtom() {
			continue
		}
		if err := b.add(line); err != nil {
			return nil, errors.ParseError(path, lineNo, err.Error())
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.ParseError(path, lineNo, "read failed: "+err.Error())
	}

	if !b.sawAtom {
		return nil, errors.ParseError(path, 0, "no ATOM records in first model")
	}
	if len(b.residues) == 0 {
		return nil, errors.ParseError(path, 0,
			fmt.Sprintf("no %s or CA atoms for chain %q", sel, b.chain))
	}

	return &Structure{
		Path:     path,
		Chain:    b.chain,
		Residues: b.build(),
	}, nil
}

// builder accumulates one position per residue of the first chain.
type builder struct {
	sel      AtomSelection
	sawAtom  bool
	chain    byte
	residues map[int]Residue
}

func newBuilder(sel AtomSelection) *builder {
	return &builder{
		sel:      sel,
		residues: make(map[int]Residue),
	}
}

func (b *builder) add(line record) error {
	if len(line) < colChain.end {
		return fmt.Errorf("truncated ATOM record (%d columns, no chain identifier)", len(line))
	}

	// Records of other chains are skipped before their remaining columns
	// are checked.
	chain := line.at(colChain)
	if !b.sawAtom {
		b.sawAtom = true
		b.chain = chain
	}
	if chain != b.chain {
		return nil
	}

	if len(line) < minAtomLen {
		return fmt.Errorf("truncated ATOM record (%d columns, need %d)", len(line), minAtomLen)
	}

	seqNum, err := line.atoi(colResSeq)
	if err != nil {
		return err
	}
	var pos r3.Vec
	if pos.X, err = line.atof(colX); err != nil {
		return err
	}
	if pos.Y, err = line.atof(colY); err != nil {
		return err
	}
	if pos.Z, err = line.atof(colZ); err != nil {
		return err
	}

	name := line.field(colName)
	_, seen := b.residues[seqNum]
	if name == string(b.sel) || (name == string(SelectCA) && !seen) {
		b.residues[seqNum] = Residue{
			SeqNum: seqNum,
			Name:   line.field(colResName),
			Coords: pos,
		}
	}
	return nil
}

func (b *builder) build() []Residue {
	out := make([]Residue, 0, len(b.residues))
	for _, r := range b.residues {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeqNum < out[j].SeqNum })
	return out
}
