package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ricesearch/contact-eval/internal/bus"
	"github.com/ricesearch/contact-eval/internal/cache"
	"github.com/ricesearch/contact-eval/internal/config"
	"github.com/ricesearch/contact-eval/internal/pipeline"
	"github.com/ricesearch/contact-eval/internal/pkg/errors"
	"github.com/ricesearch/contact-eval/internal/pkg/logger"
	"github.com/ricesearch/contact-eval/internal/pkg/security"
	"github.com/ricesearch/contact-eval/internal/report"
)

// app holds the services of one command invocation.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	cache   cache.DistanceCache
	bus     bus.Bus
	svc     *pipeline.Service
	printer *report.Printer
	shape   report.Shape
}

// loadConfig reads the config file and environment, applies the flags set
// on the command line and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath, func(cfg *config.Config) error {
		return applyFlags(cmd, cfg)
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "failed to load config", err)
	}
	return cfg, nil
}

// applyFlags overrides cfg with every evaluation flag that was set.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	ev := &cfg.Evaluation

	floats := map[string]*float64{
		"cutoff":        &ev.Cutoff,
		"cutoff-all":    &ev.CutoffAll,
		"cutoff-short":  &ev.CutoffShort,
		"cutoff-medium": &ev.CutoffMedium,
		"cutoff-long":   &ev.CutoffLong,
	}
	for name, dst := range floats {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetFloat64(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	strs := map[string]*string{
		"atom":      &ev.Atom,
		"range":     &ev.Range,
		"outfmt":    &ev.OutFmt,
		"missing":   &ev.Missing,
		"tie-break": &ev.TieBreak,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if verbose, _ := flags.GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}
	return nil
}

// newApp builds the logger, cache, bus and pipeline for cmd.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return nil, errors.ValidationError(fmt.Sprintf("invalid format %q (must be text or json)", format))
	}

	shape, err := report.ParseShape(cfg.Evaluation.OutFmt)
	if err != nil {
		return nil, err
	}
	opts, err := pipeline.OptionsFromConfig(cfg.Evaluation)
	if err != nil {
		return nil, err
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

	distCache, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}

	eventBus, err := bus.NewBus(cfg.Bus, log)
	if err != nil {
		distCache.Close()
		return nil, err
	}

	backends := map[string]string{"cache": cfg.Cache.Type, "bus": cfg.Bus.Type}
	if cfg.Cache.Type == "redis" {
		backends["redis_url"] = cfg.Cache.RedisURL
	}
	if cfg.Bus.Type == "kafka" {
		backends["kafka_brokers"] = cfg.Bus.KafkaBrokers
	}
	log.Debug("Backends ready", "backends", security.MaskSensitiveMap(backends))

	svc := pipeline.New(pipeline.Config{
		Options: opts,
		Workers: cfg.Batch.Workers,
	}, distCache, eventBus, log)

	return &app{
		cfg:   cfg,
		log:   log,
		cache: distCache,
		bus:   eventBus,
		svc:   svc,
		printer: &report.Printer{
			Out:  cmd.OutOrStdout(),
			Err:  cmd.ErrOrStderr(),
			JSON: format == "json",
		},
		shape: shape,
	}, nil
}

// Close releases the cache and flushes the bus.
func (a *app) Close() {
	if r, ok := a.cache.(cache.StatsReporter); ok {
		stats := r.Stats()
		a.log.Debug("Distance cache", "hits", stats.Hits, "misses", stats.Misses, "size", stats.Size)
	}
	if err := a.bus.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close event bus")
	}
	if err := a.cache.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close distance cache")
	}
}
