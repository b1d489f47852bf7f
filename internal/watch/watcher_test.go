package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ricesearch/contact-eval/internal/pipeline"
	"github.com/ricesearch/contact-eval/internal/pkg/errors"
	"github.com/ricesearch/contact-eval/internal/pkg/logger"
)

type fakeEvaluator struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeEvaluator) EvaluateMany(ctx context.Context, structure string, predictions []string) ([]*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, predictions)
	if f.err != nil {
		return nil, f.err
	}

	results := make([]*pipeline.Result, len(predictions))
	for i, p := range predictions {
		results[i] = &pipeline.Result{Structure: structure, Prediction: p}
	}
	return results, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func names(results []*pipeline.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = filepath.Base(r.Prediction)
	}
	return out
}

func nextBatch(t *testing.T, ch <-chan []*pipeline.Result) []string {
	t.Helper()
	select {
	case results := <-ch:
		return names(results)
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for evaluation batch")
		return nil
	}
}

func TestNewWatcher_Validation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.rr")
	writeFile(t, file, "1 7 0.9\n")

	tests := []struct {
		name  string
		cfg   Config
		check func(error) bool
	}{
		{"no evaluator", Config{Dir: dir}, errors.IsValidation},
		{"missing dir", Config{Dir: filepath.Join(dir, "absent"), Evaluator: &fakeEvaluator{}}, errors.IsNotFound},
		{"file as dir", Config{Dir: file, Evaluator: &fakeEvaluator{}}, errors.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWatcher(tt.cfg)
			if err == nil || !tt.check(err) {
				t.Errorf("NewWatcher() error = %v", err)
			}
		})
	}
}

func TestWatcher_InitialAndChanges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.rr"), "1 7 0.9\n")
	writeFile(t, filepath.Join(dir, "a.rr"), "1 7 0.9\n")
	writeFile(t, filepath.Join(dir, "target.pdb"), "END\n")
	writeFile(t, filepath.Join(dir, "notes.log"), "ignored\n")

	batches := make(chan []*pipeline.Result, 4)
	w, err := NewWatcher(Config{
		Structure:  filepath.Join(dir, "target.pdb"),
		Dir:        dir,
		Evaluator:  &fakeEvaluator{},
		BatchDelay: 20 * time.Millisecond,
		OnResults:  func(r []*pipeline.Result) { batches <- r },
		Log:        logger.Discard(),
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	errc := make(chan error, 1)
	go func() { errc <- w.Start(context.Background()) }()

	if got := strings.Join(nextBatch(t, batches), ","); got != "a.rr,b.rr" {
		t.Errorf("initial batch = %s, want a.rr,b.rr", got)
	}

	writeFile(t, filepath.Join(dir, "c.rr"), "2 9 0.5\n")
	writeFile(t, filepath.Join(dir, "c.pdb"), "END\n")
	if got := strings.Join(nextBatch(t, batches), ","); got != "c.rr" {
		t.Errorf("change batch = %s, want c.rr", got)
	}

	runs, evaluated, last := w.Stats()
	if runs != 2 || evaluated != 3 || last.IsZero() {
		t.Errorf("Stats() = %d, %d, %v", runs, evaluated, last)
	}

	w.Stop()
	w.Stop()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestWatcher_EvaluatorError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.rr"), "1 7 0.9\n")

	fake := &fakeEvaluator{err: errors.New(errors.CodeParse, "bad structure")}
	called := false
	w, err := NewWatcher(Config{
		Structure: filepath.Join(dir, "missing.pdb"),
		Dir:       dir,
		Evaluator: fake,
		OnResults: func([]*pipeline.Result) { called = true },
		Log:       logger.Discard(),
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	w.run([]string{filepath.Join(dir, "a.rr")})

	if called {
		t.Error("OnResults should not be called on failure")
	}
	if runs, _, _ := w.Stats(); runs != 0 {
		t.Errorf("runs = %d, want 0", runs)
	}
	if len(fake.calls) != 1 {
		t.Errorf("evaluator calls = %d, want 1", len(fake.calls))
	}
}

func TestWatcher_ContextCancel(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(Config{Dir: dir, Evaluator: &fakeEvaluator{}, Log: logger.Discard()})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Start(ctx) }()
	cancel()

	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

// TestWatcher_Pipeline runs a real evaluation through the watcher.
func TestWatcher_Pipeline(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	for i := 1; i <= 20; i++ {
		fmt.Fprintf(&b, "ATOM  %5d %-4s %3s %c%4d    %8.3f%8.3f%8.3f  1.00  0.00           C\n",
			i, "CA", "GLY", 'A', i, float64(i), 0.0, 0.0)
	}
	structure := filepath.Join(dir, "chain.pdb")
	writeFile(t, structure, b.String())
	writeFile(t, filepath.Join(dir, "model.rr"), "1 7 0.9\n1 19 0.8\n")

	opts := pipeline.DefaultOptions()
	opts.Cutoff = 8
	svc := pipeline.New(pipeline.Config{Options: opts, Workers: 2}, nil, nil, logger.Discard())

	var got []*pipeline.Result
	w, err := NewWatcher(Config{
		Structure: structure,
		Dir:       dir,
		Evaluator: svc,
		OnResults: func(r []*pipeline.Result) { got = r },
		Log:       logger.Discard(),
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	w.run([]string{filepath.Join(dir, "model.rr")})

	if len(got) != 1 {
		t.Fatalf("results = %d, want 1", len(got))
	}
	if p := got[0].Report.Precision("all1"); p != 0.5 {
		t.Errorf("all1 = %v, want 0.5", p)
	}
}
