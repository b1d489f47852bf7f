package watch

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoreFiles are read from the watched directory, in order.
var ignoreFiles = []string{".gitignore", ".contactignore"}

// defaultPatterns skip editor droppings and structure files, which share
// directories with predictions more often than not.
var defaultPatterns = []string{
	".git",
	".DS_Store",
	"*.swp",
	"*~",
	"*.tmp",
	"*.log",
	"*.pdb",
	"*.pdb.gz",
	"*.ent",
	"*.ent.gz",
}

// IgnoreFilter decides which paths under a root are not prediction files.
type IgnoreFilter struct {
	root     string
	patterns []gitignore.Pattern
}

// NewIgnoreFilter builds a filter from the default patterns, the ignore
// files found in root and extra patterns.
func NewIgnoreFilter(root string, extra ...string) (*IgnoreFilter, error) {
	f := &IgnoreFilter{root: root}

	f.add(defaultPatterns...)
	for _, name := range ignoreFiles {
		lines, err := readPatterns(filepath.Join(root, name))
		if err != nil {
			return nil, err
		}
		f.add(lines...)
	}
	f.add(extra...)

	return f, nil
}

func (f *IgnoreFilter) add(lines ...string) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f.patterns = append(f.patterns, gitignore.ParsePattern(line, nil))
	}
}

func readPatterns(path string) ([]string, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// ShouldIgnore reports whether path matches an exclude pattern. Later
// patterns win, so a negated pattern can re-include a file.
func (f *IgnoreFilter) ShouldIgnore(path string, isDir bool) bool {
	relPath, err := filepath.Rel(f.root, path)
	if err != nil || relPath == "." {
		return false
	}

	parts := strings.Split(relPath, string(filepath.Separator))
	ignored := false
	for _, pattern := range f.patterns {
		switch pattern.Match(parts, isDir) {
		case gitignore.Exclude:
			ignored = true
		case gitignore.Include:
			ignored = false
		}
	}
	return ignored
}
