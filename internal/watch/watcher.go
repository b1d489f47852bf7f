// Package watch re-evaluates prediction files against a structure whenever
// they change on disk.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/ricesearch/contact-eval/internal/pipeline"
	"github.com/ricesearch/contact-eval/internal/pkg/errors"
	"github.com/ricesearch/contact-eval/internal/pkg/logger"
	"github.com/ricesearch/contact-eval/internal/pkg/security"
)

// Evaluator scores prediction files against a structure.
type Evaluator interface {
	EvaluateMany(ctx context.Context, structure string, predictions []string) ([]*pipeline.Result, error)
}

var _ Evaluator = (*pipeline.Service)(nil)

// Config configures a Watcher.
type Config struct {
	Structure string
	Dir       string
	Evaluator Evaluator

	// BatchDelay debounces bursts of file events. Default: 500ms.
	BatchDelay time.Duration

	// MaxPerSecond caps evaluation batches per second, 0 = unlimited.
	MaxPerSecond float64

	// Ignore holds extra gitignore-style patterns.
	Ignore []string

	// OnResults receives every completed batch.
	OnResults func([]*pipeline.Result)

	Log *logger.Logger
}

// Watcher evaluates the prediction files of a directory once, then again
// each time they are created or written.
type Watcher struct {
	structure string
	dir       string
	eval      Evaluator
	ignore    *IgnoreFilter
	limiter   *rate.Limiter
	onResults func([]*pipeline.Result)

	pendingMu    sync.Mutex
	pendingFiles map[string]struct{}
	batchTimer   *time.Timer
	batchDelay   time.Duration

	// Batches run one at a time.
	runMu     sync.Mutex
	runs      int
	evaluated int
	lastRun   time.Time

	ctx      context.Context
	done     chan struct{}
	stopOnce sync.Once
	log      *logger.Logger
}

// NewWatcher validates cfg and builds a watcher.
func NewWatcher(cfg Config) (*Watcher, error) {
	if cfg.Evaluator == nil {
		return nil, errors.ValidationError("watcher needs an evaluator")
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = 500 * time.Millisecond
	}
	if cfg.Log == nil {
		cfg.Log = logger.Default()
	}

	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, errors.InternalError("resolving watch directory", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.NotFoundError("watch directory "+cfg.Dir, err)
	}
	if !info.IsDir() {
		return nil, errors.ValidationError(cfg.Dir + " is not a directory")
	}

	structure, err := filepath.Abs(cfg.Structure)
	if err != nil {
		return nil, errors.InternalError("resolving structure path", err)
	}

	ignore, err := NewIgnoreFilter(dir, cfg.Ignore...)
	if err != nil {
		return nil, errors.InternalError("loading ignore patterns", err)
	}

	limit := rate.Inf
	if cfg.MaxPerSecond > 0 {
		limit = rate.Limit(cfg.MaxPerSecond)
	}

	return &Watcher{
		structure:    structure,
		dir:          dir,
		eval:         cfg.Evaluator,
		ignore:       ignore,
		limiter:      rate.NewLimiter(limit, 1),
		onResults:    cfg.OnResults,
		pendingFiles: make(map[string]struct{}),
		batchDelay:   cfg.BatchDelay,
		ctx:          context.Background(),
		done:         make(chan struct{}),
		log:          &logger.Logger{Logger: cfg.Log.With("component", "watcher")},
	}, nil
}

// Start evaluates the existing prediction files and then blocks, watching
// for changes until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.ctx = ctx
	w.log.Info("Starting watcher", "dir", w.dir, "structure", w.structure)

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.InternalError("creating file watcher", err)
	}
	defer fsWatcher.Close()

	initial, err := w.walk(fsWatcher)
	if err != nil {
		return err
	}
	if len(initial) > 0 {
		w.run(initial)
	}

	w.log.Info("Watching for changes", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return ctx.Err()
		case <-w.done:
			w.stopTimer()
			return nil
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, fsWatcher)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Error("Watcher error")
		}
	}
}

// walk registers every directory under the root and returns the
// prediction files already present.
func (w *Watcher) walk(fsWatcher *fsnotify.Watcher) ([]string, error) {
	var files []string
	err := filepath.WalkDir(w.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.log.Warn("Error walking path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if w.ignore.ShouldIgnore(path, true) {
				return filepath.SkipDir
			}
			return fsWatcher.Add(path)
		}
		if w.isPrediction(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.InternalError("watching "+w.dir, err)
	}
	return files, nil
}

func (w *Watcher) isPrediction(path string) bool {
	return path != w.structure && !w.ignore.ShouldIgnore(path, false)
}

func (w *Watcher) handleEvent(event fsnotify.Event, fsWatcher *fsnotify.Watcher) {
	path := event.Name

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		if !w.ignore.ShouldIgnore(path, true) {
			fsWatcher.Add(path)
		}
		return
	}
	if !w.isPrediction(path) {
		return
	}

	w.log.Debug("Prediction file changed", "path", security.SanitizeForLog(path), "op", event.Op.String())

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pendingFiles[path] = struct{}{}
	if w.batchTimer != nil {
		w.batchTimer.Stop()
	}
	w.batchTimer = time.AfterFunc(w.batchDelay, w.processBatch)
}

func (w *Watcher) stopTimer() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.batchTimer != nil {
		w.batchTimer.Stop()
	}
}

func (w *Watcher) processBatch() {
	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for path := range w.pendingFiles {
		// Files removed since the event are dropped.
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			files = append(files, path)
		}
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 {
		return
	}
	w.run(files)
}

func (w *Watcher) run(files []string) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	slices.Sort(files)
	ctx := w.ctx

	if err := w.limiter.Wait(ctx); err != nil {
		w.log.Debug("Evaluation batch dropped", "count", len(files), "error", err)
		return
	}

	w.log.Info("Evaluating batch", "count", len(files))

	results, err := w.eval.EvaluateMany(ctx, w.structure, files)
	if err != nil {
		w.log.WithError(err).Error("Failed to evaluate batch")
		return
	}

	w.runs++
	w.evaluated += len(results)
	w.lastRun = time.Now()

	if w.onResults != nil {
		w.onResults(results)
	}
}

// Stop ends a running Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// Stats returns the number of batches run, files evaluated and the time of
// the last batch.
func (w *Watcher) Stats() (runs, evaluated int, lastRun time.Time) {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	return w.runs, w.evaluated, w.lastRun
}
