package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chartwatch/ingestor/internal/ingest"
	"github.com/chartwatch/ingestor/internal/models"
	"github.com/chartwatch/ingestor/internal/ratelimit"
	"github.com/chartwatch/ingestor/internal/scoring"
)

// Duration is a yaml-friendly time.Duration accepting "90s" style
// strings or bare integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if n, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to a standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// DatabaseConfig locates the chart store.
type DatabaseConfig struct {
	DSN   string `yaml:"dsn"`
	Debug bool   `yaml:"debug"`
}

// FeedConfig holds remote feed credentials.
type FeedConfig struct {
	APIKey string `yaml:"api_key"`
}

// ScoringConfig carries lead-score multipliers and their cache TTL.
type ScoringConfig struct {
	Multipliers scoring.Multipliers `yaml:"multipliers"`
	CacheTTL    Duration            `yaml:"cache_ttl"`
}

// RateLimit mirrors ratelimit.Config with yaml-friendly durations.
type RateLimit struct {
	Strategy          string   `yaml:"strategy"`
	RequestsPerSec    float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
	FixedDelay        Duration `yaml:"fixed_delay"`
	MaxRetries        int      `yaml:"max_retries"`
	InitialBackoff    Duration `yaml:"initial_backoff"`
	MaxBackoff        Duration `yaml:"max_backoff"`
	BackoffMultiplier float64  `yaml:"backoff_multiplier"`
}

// JobConfig seeds one recurring fetch job per listed region.
type JobConfig struct {
	ChartType   string   `yaml:"chart_type"`
	ChartPeriod string   `yaml:"chart_period"`
	Regions     []string `yaml:"regions"`
	Enabled     bool     `yaml:"enabled"`
	Interval    Duration `yaml:"interval"`
}

// Config is the whole external settings surface.
type Config struct {
	Database     DatabaseConfig       `yaml:"database"`
	Feed         FeedConfig           `yaml:"feed"`
	DedupActions map[string]string    `yaml:"dedup_actions"`
	Scoring      ScoringConfig        `yaml:"scoring"`
	RateLimits   map[string]RateLimit `yaml:"rate_limits"`
	Jobs         []JobConfig          `yaml:"jobs"`
}

// Load parses and validates YAML settings, applying defaults.
func Load(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "chartwatch.db"
	}
	if cfg.Scoring.CacheTTL <= 0 {
		cfg.Scoring.CacheTTL = Duration(5 * time.Minute)
	}

	for class, raw := range cfg.DedupActions {
		if _, err := ingest.ParseAction(raw); err != nil {
			return nil, fmt.Errorf("dedup action for %s: %w", class, err)
		}
	}
	return cfg, nil
}

// LoadFile reads and parses a settings file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Load(data)
}

// DedupDefaults converts the configured per-source-class actions for the
// orchestrator. Unknown classes are ignored; missing classes fall back to
// the orchestrator's built-ins.
func (c *Config) DedupDefaults() map[models.EntrySource]ingest.Action {
	out := make(map[models.EntrySource]ingest.Action, len(c.DedupActions))
	for class, raw := range c.DedupActions {
		action, err := ingest.ParseAction(raw)
		if err != nil {
			continue
		}
		switch models.EntrySource(class) {
		case models.SourceManualUpload, models.SourceScheduledFetch, models.SourcePlaylist:
			out[models.EntrySource(class)] = action
		}
	}
	return out
}

// Multipliers returns the configured multipliers with defaults filled in
// for unset terms.
func (c *Config) Multipliers() scoring.Multipliers {
	m := c.Scoring.Multipliers
	def := scoring.DefaultMultipliers()
	if m.Top10 == 0 {
		m.Top10 = def.Top10
	}
	if m.Top20 == 0 {
		m.Top20 = def.Top20
	}
	if m.AvgPosition == 0 {
		m.AvgPosition = def.AvgPosition
	}
	if m.BestPosition == 0 {
		m.BestPosition = def.BestPosition
	}
	return m
}

// MultiplierSource adapts the static config into the scoring cache's
// source contract.
func (c *Config) MultiplierSource() scoring.MultiplierSource {
	return staticMultipliers{m: c.Multipliers()}
}

type staticMultipliers struct {
	m scoring.Multipliers
}

func (s staticMultipliers) Multipliers(context.Context) (scoring.Multipliers, error) {
	return s.m, nil
}

// RateLimit resolves the limiter config for a named source, falling back
// to package defaults when the source is not configured.
func (c *Config) RateLimit(source string) ratelimit.Config {
	rl, ok := c.RateLimits[source]
	if !ok {
		return ratelimit.DefaultConfig()
	}
	return ratelimit.Config{
		Strategy:          ratelimit.Strategy(rl.Strategy),
		RequestsPerSec:    rl.RequestsPerSec,
		Burst:             rl.Burst,
		FixedDelay:        rl.FixedDelay.Std(),
		MaxRetries:        rl.MaxRetries,
		InitialBackoff:    rl.InitialBackoff.Std(),
		MaxBackoff:        rl.MaxBackoff.Std(),
		BackoffMultiplier: rl.BackoffMultiplier,
	}
}

// ChartConfigs expands the job list into persistable job definitions,
// one per region. The region "global" maps to nil.
func (c *Config) ChartConfigs() ([]*models.ChartConfig, error) {
	var out []*models.ChartConfig
	for _, job := range c.Jobs {
		interval := job.Interval.Std()
		if interval <= 0 {
			interval = 24 * time.Hour
		}
		regions := job.Regions
		if len(regions) == 0 {
			regions = []string{"global"}
		}
		for _, region := range regions {
			cfg := &models.ChartConfig{
				ChartType:   models.ChartType(job.ChartType),
				ChartPeriod: models.ChartPeriod(job.ChartPeriod),
				Platform:    models.PlatformSpotify,
				Enabled:     job.Enabled,
				Interval:    interval,
			}
			if r := region; r != "global" && r != "" {
				cfg.Region = &r
			}
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("job %s-%s: %w", job.ChartType, job.ChartPeriod, err)
			}
			out = append(out, cfg)
		}
	}
	return out, nil
}
