// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Evaluation parameters
	Evaluation EvaluationConfig `yaml:"evaluation"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Distance cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Batch configuration
	Batch BatchConfig `yaml:"batch"`

	// Watch configuration
	Watch WatchConfig `yaml:"watch"`
}

// EvaluationConfig holds the parameters of a single evaluation run.
type EvaluationConfig struct {
	Cutoff       float64 `envconfig:"CONTACT_CUTOFF" yaml:"cutoff"` // 0 = unset
	Atom         string  `envconfig:"CONTACT_ATOM" yaml:"atom"`
	Range        string  `envconfig:"CONTACT_RANGE" yaml:"range"`
	OutFmt       string  `envconfig:"CONTACT_OUTFMT" yaml:"outfmt"`
	CutoffAll    float64 `envconfig:"CONTACT_CUTOFF_ALL" yaml:"cutoff_all"`
	CutoffShort  float64 `envconfig:"CONTACT_CUTOFF_SHORT" yaml:"cutoff_short"`
	CutoffMedium float64 `envconfig:"CONTACT_CUTOFF_MEDIUM" yaml:"cutoff_medium"`
	CutoffLong   float64 `envconfig:"CONTACT_CUTOFF_LONG" yaml:"cutoff_long"`
	Missing      string  `envconfig:"CONTACT_MISSING" yaml:"missing"`
	TieBreak     string  `envconfig:"CONTACT_TIE_BREAK" yaml:"tie_break"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"CONTACT_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"CONTACT_LOG_FORMAT" yaml:"format"`
}

// CacheConfig holds distance cache settings.
type CacheConfig struct {
	Type     string `envconfig:"CONTACT_CACHE_TYPE" yaml:"type"`
	Size     int    `envconfig:"CONTACT_CACHE_SIZE" yaml:"size"`
	TTL      int    `envconfig:"CONTACT_CACHE_TTL" yaml:"ttl"` // seconds, 0 = no expiry
	RedisURL string `envconfig:"CONTACT_REDIS_URL" yaml:"redis_url"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"CONTACT_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"CONTACT_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"CONTACT_KAFKA_GROUP" yaml:"kafka_group"`
	EventLog     string `envconfig:"CONTACT_EVENT_LOG" yaml:"event_log"` // empty = disabled
}

// BatchConfig holds batch evaluation settings.
type BatchConfig struct {
	Workers int `envconfig:"CONTACT_BATCH_WORKERS" yaml:"workers"`
}

// WatchConfig holds prediction directory watch settings.
type WatchConfig struct {
	DelayMs      int      `envconfig:"CONTACT_WATCH_DELAY_MS" yaml:"delay_ms"`
	MaxPerSecond float64  `envconfig:"CONTACT_WATCH_MAX_PER_SECOND" yaml:"max_per_second"`
	Ignore       []string `envconfig:"CONTACT_WATCH_IGNORE" yaml:"ignore"`
}

// Override adjusts a configuration after the file and environment are
// applied and before it is validated.
type Override func(*Config) error

// Load builds the configuration from defaults, an optional YAML file, the
// environment and then overrides, in increasing priority. Validation runs
// once on the final result.
func Load(configPath string, overrides ...Override) (*Config, error) {
	cfg := Default()

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	for _, o := range overrides {
		if err := o(cfg); err != nil {
			return nil, err
		}
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Evaluation = EvaluationConfig{
		Cutoff:   0,
		Atom:     "CA",
		Range:    "6",
		OutFmt:   "list",
		Missing:  "drop",
		TieBreak: "descending",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Cache = CacheConfig{
		Type:     "memory",
		Size:     64,
		TTL:      0,
		RedisURL: "redis://localhost:6379",
	}

	cfg.Bus = BusConfig{
		Type:       "memory",
		KafkaGroup: "contact-eval",
	}

	cfg.Batch = BatchConfig{
		Workers: 4,
	}

	cfg.Watch = WatchConfig{
		DelayMs:      500,
		MaxPerSecond: 2,
	}
}

// Normalize trims enumerated settings and folds them to the case Validate
// expects: atom names upper case, everything else lower case.
func (c *Config) Normalize() {
	ev := &c.Evaluation
	ev.Atom = strings.ToUpper(strings.TrimSpace(ev.Atom))
	for _, s := range []*string{
		&ev.Range, &ev.OutFmt, &ev.Missing, &ev.TieBreak,
		&c.Log.Level, &c.Log.Format,
		&c.Cache.Type, &c.Bus.Type,
	} {
		*s = strings.ToLower(strings.TrimSpace(*s))
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Evaluation validation
	if c.Evaluation.Cutoff < 0 {
		errs = append(errs, "cutoff must not be negative")
	}

	validAtoms := map[string]bool{"CA": true, "CB": true}
	if !validAtoms[c.Evaluation.Atom] {
		errs = append(errs, fmt.Sprintf("invalid atom: %s (must be CA or CB)", c.Evaluation.Atom))
	}

	if !validRange(c.Evaluation.Range) {
		errs = append(errs, fmt.Sprintf("invalid range: %s (must be all, short, medium, long, or a non-negative integer)", c.Evaluation.Range))
	}

	validOutFmts := map[string]bool{"list": true, "dist": true, "stat": true}
	if !validOutFmts[c.Evaluation.OutFmt] {
		errs = append(errs, fmt.Sprintf("invalid outfmt: %s (must be list, dist, or stat)", c.Evaluation.OutFmt))
	}

	validMissing := map[string]bool{"drop": true, "miss": true}
	if !validMissing[c.Evaluation.Missing] {
		errs = append(errs, fmt.Sprintf("invalid missing policy: %s (must be drop or miss)", c.Evaluation.Missing))
	}

	validTieBreaks := map[string]bool{"descending": true, "ascending": true}
	if !validTieBreaks[c.Evaluation.TieBreak] {
		errs = append(errs, fmt.Sprintf("invalid tie_break: %s (must be descending or ascending)", c.Evaluation.TieBreak))
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	// Cache validation
	validCacheTypes := map[string]bool{"memory": true, "redis": true, "none": true}
	if !validCacheTypes[c.Cache.Type] {
		errs = append(errs, fmt.Sprintf("invalid cache type: %s (must be memory, redis, or none)", c.Cache.Type))
	}

	if c.Cache.Type == "memory" && c.Cache.Size < 1 {
		errs = append(errs, "cache size must be positive")
	}

	if c.Cache.TTL < 0 {
		errs = append(errs, "cache ttl must not be negative")
	}

	// Bus validation
	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	if c.Bus.Type == "kafka" && strings.TrimSpace(c.Bus.KafkaBrokers) == "" {
		errs = append(errs, "kafka_brokers is required for the kafka bus")
	}

	// Batch validation
	if c.Batch.Workers < 1 {
		errs = append(errs, "batch workers must be positive")
	}

	// Watch validation
	if c.Watch.DelayMs < 0 {
		errs = append(errs, "watch delay_ms must not be negative")
	}

	if c.Watch.MaxPerSecond <= 0 {
		errs = append(errs, "watch max_per_second must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func validRange(s string) bool {
	switch s {
	case "all", "short", "medium", "long":
		return true
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0
}
