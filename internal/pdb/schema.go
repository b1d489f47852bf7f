package pdb

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// column is a named fixed-width field of an ATOM record. Columns are
// 1-based and inclusive, as in the PDB format description.
type column struct {
	name       string
	start, end int
}

var (
	colRecord  = column{"record", 1, 6}
	colName    = column{"name", 13, 16}
	colResName = column{"resName", 18, 20}
	colChain   = column{"chainID", 22, 22}
	colResSeq  = column{"resSeq", 23, 26}
	colX       = column{"x", 31, 38}
	colY       = column{"y", 39, 46}
	colZ       = column{"z", 47, 54}
)

// atomSchema lists every column read from an ATOM record.
var atomSchema = []column{
	colRecord, colName, colResName, colChain, colResSeq, colX, colY, colZ,
}

// minAtomLen is the shortest ATOM line that carries every schema column.
var minAtomLen int

func init() {
	if err := checkSchema(atomSchema); err != nil {
		panic(err)
	}
	for _, c := range atomSchema {
		minAtomLen = max(minAtomLen, c.end)
	}
}

// checkSchema verifies that columns are well formed and do not overlap.
func checkSchema(schema []column) error {
	sorted := make([]column, len(schema))
	copy(sorted, schema)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	for i, c := range sorted {
		if c.start < 1 || c.end < c.start {
			return fmt.Errorf("pdb: column %s has invalid range %d-%d", c.name, c.start, c.end)
		}
		if i > 0 && c.start <= sorted[i-1].end {
			return fmt.Errorf("pdb: column %s overlaps %s", c.name, sorted[i-1].name)
		}
	}
	return nil
}

// record is a single line of a structure file.
type record []byte

// field returns the trimmed contents of c, or "" if the line is too short.
func (r record) field(c column) string {
	rs, re := c.start-1, c.end
	if rs >= len(r) {
		return ""
	}
	if re > len(r) {
		re = len(r)
	}
	return string(bytes.TrimSpace(r[rs:re]))
}

// at returns the single byte at column c.start, or 0.
func (r record) at(c column) byte {
	i := c.start - 1
	if i < 0 || i >= len(r) {
		return 0
	}
	return r[i]
}

func (r record) atoi(c column) (int, error) {
	v, err := strconv.Atoi(r.field(c))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", c.name, r.field(c))
	}
	return v, nil
}

func (r record) atof(c column) (float64, error) {
	v, err := strconv.ParseFloat(r.field(c), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s coordinate %q", c.name, r.field(c))
	}
	return v, nil
}

// isAtom reports whether the line is an ATOM record. HETATM records are
// not atoms for this purpose.
func (r record) isAtom() bool {
	return bytes.HasPrefix(r, []byte("ATOM  "))
}

// isModelEnd reports whether the line terminates a MODEL section.
func (r record) isModelEnd() bool {
	return r.field(colRecord) == "ENDMDL"
}
