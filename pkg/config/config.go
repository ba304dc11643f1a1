// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Retrieval, Evaluation, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
}

// PostgresConfig holds PostgreSQL connection parameters. An empty Host
// disables every PostgreSQL-backed feature.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Enabled reports whether a PostgreSQL host is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// KafkaConfig holds Kafka broker and topic settings. No brokers means the
// analytics collector and the index-request consumer stay off.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexRequests   string `yaml:"indexRequests"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// RetrievalConfig selects the scoring model and its tuning knobs.
type RetrievalConfig struct {
	Model        string        `yaml:"model"`
	DefaultK     int           `yaml:"defaultK"`
	MaxK         int           `yaml:"maxK"`
	Workers      int           `yaml:"workers"`
	MaxQueries   int           `yaml:"maxQueries"`
	Lexical      LexicalConfig `yaml:"lexical"`
	BM25         BM25Config    `yaml:"bm25"`
	BuildOnStart bool          `yaml:"buildOnStart"`
}

// LexicalConfig mirrors lexical.Config in YAML form.
type LexicalConfig struct {
	WordNgramMin    int     `yaml:"wordNgramMin"`
	WordNgramMax    int     `yaml:"wordNgramMax"`
	CharNgramMin    int     `yaml:"charNgramMin"`
	CharNgramMax    int     `yaml:"charNgramMax"`
	TitleWeight     float64 `yaml:"titleWeight"`
	DescWeight      float64 `yaml:"descWeight"`
	MaxFeaturesWord int     `yaml:"maxFeaturesWord"`
	MaxFeaturesChar int     `yaml:"maxFeaturesChar"`
	MinTokenLength  int     `yaml:"minTokenLength"`
	WordWeight      float64 `yaml:"wordWeight"`
	CharWeight      float64 `yaml:"charWeight"`
}

// BM25Config holds the Okapi BM25 saturation and length-normalisation knobs.
type BM25Config struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
}

// EvaluationConfig controls offline evaluation behaviour.
type EvaluationConfig struct {
	K             int     `yaml:"k"`
	GainThreshold float64 `yaml:"gainThreshold"`
	SaveRuns      bool    `yaml:"saveRuns"`
}

// CatalogConfig names the PostgreSQL table holding catalog rows.
type CatalogConfig struct {
	Table string `yaml:"table"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
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
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    64 << 20,
		},
		Postgres: PostgresConfig{
			Port:            5432,
			Database:        "catalog",
			User:            "catalog",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "catalog-relevance",
			Topics: KafkaTopics{
				IndexRequests:   "index-requests",
				AnalyticsEvents: "retrieval-events",
			},
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Retrieval: RetrievalConfig{
			Model:      "tfidf_char_word",
			DefaultK:   10,
			MaxK:       1000,
			Workers:    4,
			MaxQueries: 10000,
			Lexical: LexicalConfig{
				WordNgramMin:    1,
				WordNgramMax:    2,
				CharNgramMin:    3,
				CharNgramMax:    5,
				TitleWeight:     2,
				DescWeight:      1,
				MaxFeaturesWord: 50000,
				MaxFeaturesChar: 80000,
				MinTokenLength:  2,
				WordWeight:      1,
				CharWeight:      1,
			},
			BM25: BM25Config{
				K1: 1.5,
				B:  0.75,
			},
		},
		Evaluation: EvaluationConfig{
			K:             10,
			GainThreshold: 0.2,
		},
		Catalog: CatalogConfig{
			Table: "products",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects settings that would only surface as failures at request
// time.
func (c *Config) Validate() error {
	var problems []string
	switch strings.ToLower(strings.TrimSpace(c.Retrieval.Model)) {
	case "tfidf_char_word", "tfidf", "bm25":
	default:
		problems = append(problems, fmt.Sprintf("retrieval.model: unknown model %q", c.Retrieval.Model))
	}
	if c.Retrieval.DefaultK <= 0 {
		problems = append(problems, "retrieval.defaultK: must be positive")
	}
	if c.Retrieval.MaxK < c.Retrieval.DefaultK {
		problems = append(problems, "retrieval.maxK: must be >= defaultK")
	}
	if c.Evaluation.K <= 0 {
		problems = append(problems, "evaluation.k: must be positive")
	}
	if c.Evaluation.GainThreshold < 0 || c.Evaluation.GainThreshold > 1 {
		problems = append(problems, "evaluation.gainThreshold: must be within [0,1]")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, "server.port: must be between 1 and 65535")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// applyEnvOverrides reads CR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CR_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CR_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CR_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("CR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CR_RETRIEVAL_MODEL"); v != "" {
		cfg.Retrieval.Model = v
	}
	if v := os.Getenv("CR_RETRIEVAL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.Workers = n
		}
	}
	if v := os.Getenv("CR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CR_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
