// Package config loads and validates engine configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Engine, Search, Spelling, MoreLikeThis, Cache, Redis, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Engine       EngineConfig       `yaml:"engine"`
	Search       SearchConfig       `yaml:"search"`
	Spelling     SpellingConfig     `yaml:"spelling"`
	MoreLikeThis MoreLikeThisConfig `yaml:"moreLikeThis"`
	Cache        CacheConfig        `yaml:"cache"`
	Redis        RedisConfig        `yaml:"redis"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// EngineConfig controls where snapshots live and whether the engine writes
// one on Close.
type EngineConfig struct {
	DataDir         string `yaml:"dataDir"`
	SnapshotOnClose bool   `yaml:"snapshotOnClose"`
	KeepSnapshots   int    `yaml:"keepSnapshots"`
}

// SearchConfig controls query execution limits, timeouts and output markup.
type SearchConfig struct {
	MaxResults           int           `yaml:"maxResults"`
	Timeout              time.Duration `yaml:"timeout"`
	WildcardOperator     string        `yaml:"wildcardOperator"`
	MaxWildcardExpansion int           `yaml:"maxWildcardExpansion"`
	HighlightPreTag      string        `yaml:"highlightPreTag"`
	HighlightPostTag     string        `yaml:"highlightPostTag"`
	FacetConcurrency     int           `yaml:"facetConcurrency"`
}

// SpellingConfig controls the spelling suggestion model.
type SpellingConfig struct {
	Enabled         bool `yaml:"enabled"`
	MaxEditDistance int  `yaml:"maxEditDistance"`
	CacheSize       int  `yaml:"cacheSize"`
}

// MoreLikeThisConfig controls significant-term extraction for similarity
// queries.
type MoreLikeThisConfig struct {
	MaxTerms   int `yaml:"maxTerms"`
	MinDocFreq int `yaml:"minDocFreq"`
}

// CacheConfig selects the result cache backend ("none", "memory" or
// "redis").
type CacheConfig struct {
	Backend             string        `yaml:"backend"`
	Size                int           `yaml:"size"`
	TTL                 time.Duration `yaml:"ttl"`
	BreakerFailures     int           `yaml:"breakerFailures"`
	BreakerResetTimeout time.Duration `yaml:"breakerResetTimeout"`
}

// RedisConfig holds Redis connection parameters for the shared cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// KafkaConfig holds Kafka broker and topic settings for index events.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexEvents string `yaml:"indexEvents"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server of the host command.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for an embedded engine.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			DataDir:       "data/index",
			KeepSnapshots: 3,
		},
		Search: SearchConfig{
			MaxResults:           0,
			Timeout:              5 * time.Second,
			WildcardOperator:     "synonym",
			MaxWildcardExpansion: 1000,
			HighlightPreTag:      "<em>",
			HighlightPostTag:     "</em>",
			FacetConcurrency:     4,
		},
		Spelling: SpellingConfig{
			Enabled:         true,
			MaxEditDistance: 2,
			CacheSize:       4096,
		},
		MoreLikeThis: MoreLikeThisConfig{
			MaxTerms:   40,
			MinDocFreq: 1,
		},
		Cache: CacheConfig{
			Backend:             "none",
			Size:                1024,
			TTL:                 60 * time.Second,
			BreakerFailures:     5,
			BreakerResetTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "searchcore-indexer",
			Topics: KafkaTopics{
				IndexEvents: "index-events",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Search.WildcardOperator {
	case "synonym", "or":
	default:
		return fmt.Errorf("search.wildcardOperator must be \"synonym\" or \"or\", got %q", c.Search.WildcardOperator)
	}
	switch c.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be one of none, memory, redis, got %q", c.Cache.Backend)
	}
	if c.Spelling.MaxEditDistance < 0 {
		return fmt.Errorf("spelling.maxEditDistance must not be negative")
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.maxResults must not be negative")
	}
	return nil
}

// applyEnvOverrides reads SC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SC_ENGINE_DATA_DIR"); v != "" {
		cfg.Engine.DataDir = v
	}
	if v := os.Getenv("SC_SEARCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.Timeout = d
		}
	}
	if v := os.Getenv("SC_SEARCH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.MaxResults = n
		}
	}
	if v := os.Getenv("SC_SEARCH_WILDCARD_OPERATOR"); v != "" {
		cfg.Search.WildcardOperator = strings.ToLower(v)
	}
	if v := os.Getenv("SC_SPELLING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Spelling.Enabled = b
		}
	}
	if v := os.Getenv("SC_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("SC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SC_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("SC_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
