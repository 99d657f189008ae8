package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file or a field is absent
const (
	DefaultCacheCapacity    = 1000
	DefaultCacheTTL         = 5 * time.Minute
	DefaultSweepInterval    = time.Minute
	DefaultPageSize         = 20
	DefaultMaxContentLength = 2000
	DefaultFuzzyThreshold   = 0.6
	DefaultEmbeddingDim     = 128
	DefaultWarnLatencyMs    = 150
	DefaultSLALatencyMs     = 200
	DefaultHitRatioFloor    = 0.7
	DefaultMemoryLimitMB    = 512
	DefaultCollectInterval  = 30 * time.Second
)

// CacheConfig controls the response cache
type CacheConfig struct {
	Capacity      int           `yaml:"capacity"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// PerfConfig controls performance alert thresholds
type PerfConfig struct {
	WarnLatencyMs   int           `yaml:"warn_latency_ms"`
	SLALatencyMs    int           `yaml:"sla_latency_ms"`
	HitRatioFloor   float64       `yaml:"hit_ratio_floor"`
	MemoryLimitMB   int           `yaml:"memory_limit_mb"`
	CollectInterval time.Duration `yaml:"collect_interval"`
}

// QueryConfig controls query processing and response shaping
type QueryConfig struct {
	PageSize         int     `yaml:"page_size"`
	MaxContentLength int     `yaml:"max_content_length"`
	SnippetMode      string  `yaml:"snippet_mode"` // code | text
	FuzzyThreshold   float64 `yaml:"fuzzy_threshold"`
	EmbeddingDim     int     `yaml:"embedding_dim"`
}

// Config is the in-memory representation of ~/.astquery/config.yaml
type Config struct {
	IndexPath string      `yaml:"index_path,omitempty"`
	LogLevel  string      `yaml:"log_level,omitempty"`
	Cache     CacheConfig `yaml:"cache"`
	Perf      PerfConfig  `yaml:"performance"`
	Query     QueryConfig `yaml:"query"`
}

// Dir returns the absolute path to ~/.astquery/
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".astquery"), nil
}

// Path returns the absolute path to ~/.astquery/config.yaml
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Cache: CacheConfig{
			Capacity:      DefaultCacheCapacity,
			TTL:           DefaultCacheTTL,
			SweepInterval: DefaultSweepInterval,
		},
		Perf: PerfConfig{
			WarnLatencyMs:   DefaultWarnLatencyMs,
			SLALatencyMs:    DefaultSLALatencyMs,
			HitRatioFloor:   DefaultHitRatioFloor,
			MemoryLimitMB:   DefaultMemoryLimitMB,
			CollectInterval: DefaultCollectInterval,
		},
		Query: QueryConfig{
			PageSize:         DefaultPageSize,
			MaxContentLength: DefaultMaxContentLength,
			SnippetMode:      "code",
			FuzzyThreshold:   DefaultFuzzyThreshold,
			EmbeddingDim:     DefaultEmbeddingDim,
		},
	}
}

// Load reads the config file at path, or the default location when path
// is empty. A missing file yields the defaults; environment variables
// override either.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	applyEnv(cfg)
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save marshals cfg and writes it to the given path, creating the
// parent directory if needed
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

// Validate rejects values that would misconfigure the pipeline
func (c *Config) Validate() error {
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache capacity must be positive, got %d", c.Cache.Capacity)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Query.FuzzyThreshold < 0 || c.Query.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy threshold must be between 0 and 1, got %g", c.Query.FuzzyThreshold)
	}
	if c.Perf.HitRatioFloor < 0 || c.Perf.HitRatioFloor > 1 {
		return fmt.Errorf("hit ratio floor must be between 0 and 1, got %g", c.Perf.HitRatioFloor)
	}
	if mode := c.Query.SnippetMode; mode != "code" && mode != "text" {
		return fmt.Errorf("snippet mode must be code or text, got %q", mode)
	}
	return nil
}

// fillDefaults replaces zero values left by a partial config file
func (c *Config) fillDefaults() {
	def := Default()
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = def.Cache.Capacity
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = def.Cache.TTL
	}
	if c.Cache.SweepInterval == 0 {
		c.Cache.SweepInterval = def.Cache.SweepInterval
	}
	if c.Perf.WarnLatencyMs == 0 {
		c.Perf.WarnLatencyMs = def.Perf.WarnLatencyMs
	}
	if c.Perf.SLALatencyMs == 0 {
		c.Perf.SLALatencyMs = def.Perf.SLALatencyMs
	}
	if c.Perf.HitRatioFloor == 0 {
		c.Perf.HitRatioFloor = def.Perf.HitRatioFloor
	}
	if c.Perf.MemoryLimitMB == 0 {
		c.Perf.MemoryLimitMB = def.Perf.MemoryLimitMB
	}
	if c.Perf.CollectInterval == 0 {
		c.Perf.CollectInterval = def.Perf.CollectInterval
	}
	if c.Query.PageSize == 0 {
		c.Query.PageSize = def.Query.PageSize
	}
	if c.Query.MaxContentLength == 0 {
		c.Query.MaxContentLength = def.Query.MaxContentLength
	}
	if c.Query.SnippetMode == "" {
		c.Query.SnippetMode = def.Query.SnippetMode
	}
	if c.Query.FuzzyThreshold == 0 {
		c.Query.FuzzyThreshold = def.Query.FuzzyThreshold
	}
	if c.Query.EmbeddingDim == 0 {
		c.Query.EmbeddingDim = def.Query.EmbeddingDim
	}
}

// applyEnv overrides config fields from ASTQUERY_* environment variables
func applyEnv(c *Config) {
	if v := os.Getenv("ASTQUERY_INDEX_PATH"); v != "" {
		c.IndexPath = v
	}
	if v := os.Getenv("ASTQUERY_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := envInt("ASTQUERY_CACHE_CAPACITY"); ok {
		c.Cache.Capacity = v
	}
	if v, ok := envDuration("ASTQUERY_CACHE_TTL"); ok {
		c.Cache.TTL = v
	}
	if v, ok := envInt("ASTQUERY_PAGE_SIZE"); ok {
		c.Query.PageSize = v
	}
	if v, ok := envInt("ASTQUERY_SLA_LATENCY_MS"); ok {
		c.Perf.SLALatencyMs = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
