package watch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIgnoreFilter(t *testing.T) {
	root := t.TempDir()
	content := "# local rules\ndrafts/\n!keep.pdb\n"
	if err := os.WriteFile(filepath.Join(root, ".contactignore"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := NewIgnoreFilter(root, "*.bak")
	if err != nil {
		t.Fatalf("NewIgnoreFilter() error = %v", err)
	}

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"model.rr", false, false},
		{"sub/model.rr", false, false},
		{".git", true, true},
		{".git/HEAD", false, true},
		{"1abc.pdb", false, true},
		{"1abc.pdb.gz", false, true},
		{"keep.pdb", false, false},
		{"model.rr.swp", false, true},
		{"drafts", true, true},
		{"drafts/model.rr", false, true},
		{"old.bak", false, true},
		{"run.log", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := f.ShouldIgnore(filepath.Join(root, tt.path), tt.isDir); got != tt.want {
				t.Errorf("ShouldIgnore(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	if f.ShouldIgnore(root, true) {
		t.Error("root must never be ignored")
	}
}

func TestIgnoreFilter_GitignoreFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.csv\n"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := NewIgnoreFilter(root)
	if err != nil {
		t.Fatalf("NewIgnoreFilter() error = %v", err)
	}
	if !f.ShouldIgnore(filepath.Join(root, "scores.csv"), false) {
		t.Error(".gitignore patterns should apply")
	}
}
