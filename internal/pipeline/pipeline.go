// Package pipeline runs contact listings and prediction evaluations end to
// end: structure loading through the distance cache, prediction parsing,
// comparison, accuracy evaluation and event publishing.
package pipeline

import (
	"bytes"
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ricesearch/contact-eval/internal/bus"
	"github.com/ricesearch/contact-eval/internal/cache"
	"github.com/ricesearch/contact-eval/internal/contact"
	"github.com/ricesearch/contact-eval/internal/evaluation"
	"github.com/ricesearch/contact-eval/internal/pdb"
	"github.com/ricesearch/contact-eval/internal/pkg/errors"
	"github.com/ricesearch/contact-eval/internal/pkg/hash"
	"github.com/ricesearch/contact-eval/internal/pkg/logger"
	"github.com/ricesearch/contact-eval/internal/prediction"
)

const eventSource = "pipeline"

// Config configures a Service.
type Config struct {
	Options Options

	// Workers bounds concurrent evaluations in EvaluateMany.
	Workers int
}

// Service orchestrates evaluation runs.
type Service struct {
	opts    Options
	workers int
	cache   cache.DistanceCache
	bus     bus.Bus
	log     *logger.Logger
}

// New creates a service. distCache and eventBus are optional; without a
// cache every run parses the structure, without a bus no events are
// published.
func New(cfg Config, distCache cache.DistanceCache, eventBus bus.Bus, log *logger.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if distCache == nil {
		distCache = cache.NoopCache{}
	}
	if log == nil {
		log = logger.Default()
	}

	return &Service{
		opts:    cfg.Options,
		workers: cfg.Workers,
		cache:   distCache,
		bus:     eventBus,
		log:     log,
	}
}

// Options returns the evaluation parameters of the service.
func (s *Service) Options() Options {
	return s.opts
}

// Distances is the full pairwise distance list of a structure.
type Distances struct {
	Structure string
	Pairs     []contact.Pair
	Length    int  // max index - min index + 1 over the pairs
	Cached    bool // served from the distance cache
}

// Result is the outcome of one evaluation.
type Result struct {
	Structure   string
	Prediction  string
	Length      int
	Parsed      *prediction.Result
	Comparisons []evaluation.Comparison // ranked
	Unmatched   int                     // predictions with no true distance
	Report      *evaluation.Report
	Duration    time.Duration
}

// Distances loads the structure at path and computes every pairwise
// distance, consulting the cache first.
func (s *Service) Distances(ctx context.Context, path string) (*Distances, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := pdb.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key := hash.CacheKey(hash.Fingerprint(data), string(s.opts.Atom))
	log := s.log.WithStructure(path)

	pairs, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.WithError(err).Warn("Distance cache lookup failed")
	}
	if ok {
		log.Debug("Distance cache hit", "key", key, "pairs", len(pairs))
		return &Distances{
			Structure: path,
			Pairs:     pairs,
			Length:    contact.ProteinLength(pairs),
			Cached:    true,
		}, nil
	}

	st, err := pdb.Parse(bytes.NewReader(data), path, s.opts.Atom)
	if err != nil {
		return nil, err
	}
	pairs = contact.Distances(st.Residues)

	log.Debug("Structure loaded",
		"chain", st.ChainID(),
		"residues", st.Len(),
		"pairs", len(pairs),
	)

	if err := s.cache.Set(ctx, key, pairs); err != nil {
		log.WithError(err).Warn("Distance cache store failed")
	}

	return &Distances{
		Structure: path,
		Pairs:     pairs,
		Length:    contact.ProteinLength(pairs),
	}, nil
}

// Contacts lists the true contacts of a structure within the configured
// separation range and distance cutoff.
func (s *Service) Contacts(ctx context.Context, path string) ([]contact.Pair, error) {
	if s.opts.Cutoff == 0 {
		s.log.Warn("Distance cutoff not set, listing every pair in the separation range",
			"range", s.opts.Range.String(),
		)
	}

	dist, err := s.Distances(ctx, path)
	if err != nil {
		return nil, err
	}
	return contact.Filter(dist.Pairs, s.opts.Range, s.opts.Cutoff), nil
}

// Evaluate scores the prediction file against the structure.
func (s *Service) Evaluate(ctx context.Context, structure, predictions string) (*Result, error) {
	s.warnCutoffUnset()

	dist, err := s.Distances(ctx, structure)
	if err != nil {
		s.publishFailed(ctx, structure, predictions, err)
		return nil, err
	}

	res, err := s.evaluate(ctx, dist, predictions)
	if err != nil {
		s.publishFailed(ctx, structure, predictions, err)
		return nil, err
	}
	return res, nil
}

// EvaluateMany scores several prediction files against one structure. The
// distance list is computed once; evaluations run concurrently and results
// come back in input order. The first failure cancels the remaining runs.
func (s *Service) EvaluateMany(ctx context.Context, structure string, predictions []string) ([]*Result, error) {
	s.warnCutoffUnset()

	dist, err := s.Distances(ctx, structure)
	if err != nil {
		for _, p := range predictions {
			s.publishFailed(ctx, structure, p, err)
		}
		return nil, err
	}

	results := make([]*Result, len(predictions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, p := range predictions {
		g.Go(func() error {
			res, err := s.evaluate(gctx, dist, p)
			if err != nil {
				s.publishFailed(ctx, structure, p, err)
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) evaluate(ctx context.Context, dist *Distances, predictions string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	log := s.log.WithStructure(dist.Structure).WithPrediction(predictions)

	parsed, err := prediction.Load(predictions, s.opts.predictionOptions())
	if err != nil {
		return nil, err
	}

	ranked, unmatched := evaluation.Compare(dist.Pairs, parsed.Records, s.opts.compareOptions())
	report := evaluation.Evaluate(ranked, dist.Length)

	res := &Result{
		Structure:   dist.Structure,
		Prediction:  predictions,
		Length:      dist.Length,
		Parsed:      parsed,
		Comparisons: ranked,
		Unmatched:   unmatched,
		Report:      report,
		Duration:    time.Since(start),
	}

	log.Debug("Predictions parsed",
		"records", len(parsed.Records),
		"skipped", parsed.Skipped,
		"out_of_range", parsed.OutOfRange,
		"below_threshold", parsed.BelowThreshold,
	)
	if unmatched > 0 {
		log.Debug("Predictions without a true distance",
			"unmatched", unmatched,
			"policy", string(s.opts.Missing),
		)
	}
	log.Info("Evaluation complete",
		"length", res.Length,
		"compared", len(ranked),
		"all1", report.Precision("all1"),
		"duration", res.Duration,
	)

	s.publishCompleted(ctx, res)
	return res, nil
}

func (s *Service) warnCutoffUnset() {
	if s.opts.Cutoff == 0 {
		s.log.Warn("Distance cutoff not set, no prediction will count as a contact")
	}
}

func (s *Service) publishCompleted(ctx context.Context, res *Result) {
	if s.bus == nil {
		return
	}

	precision := make(map[string]*float64, len(evaluation.Keys))
	for i, v := range res.Report.Values() {
		if math.IsNaN(v) {
			precision[evaluation.Keys[i]] = nil
			continue
		}
		precision[evaluation.Keys[i]] = &v
	}

	event := bus.NewEvent(bus.TypeEvaluationCompleted, eventSource, res.Structure, res.Prediction,
		bus.EvaluationCompleted{
			Structure:  res.Structure,
			Prediction: res.Prediction,
			Length:     res.Length,
			Compared:   len(res.Comparisons),
			Unmatched:  res.Unmatched,
			Precision:  precision,
		})
	if err := s.bus.Publish(ctx, bus.TopicEvaluationCompleted, event); err != nil {
		s.log.Debug("Failed to publish evaluation event", "error", err)
	}
}

func (s *Service) publishFailed(ctx context.Context, structure, predictions string, cause error) {
	if s.bus == nil {
		return
	}

	event := bus.NewEvent(bus.TypeEvaluationFailed, eventSource, structure, predictions,
		bus.EvaluationFailed{
			Structure:  structure,
			Prediction: predictions,
			Code:       errors.CodeOf(cause),
			Error:      cause.Error(),
		})
	// The caller's context may already be cancelled.
	if err := s.bus.Publish(context.WithoutCancel(ctx), bus.TopicEvaluationFailed, event); err != nil {
		s.log.Debug("Failed to publish evaluation failure", "error", err)
	}
}
