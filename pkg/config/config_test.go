package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "tfidf_char_word", cfg.Retrieval.Model)
	assert.Equal(t, 10, cfg.Retrieval.DefaultK)
	assert.Equal(t, 1.5, cfg.Retrieval.BM25.K1)
	assert.Equal(t, 0.75, cfg.Retrieval.BM25.B)
	assert.Equal(t, 2.0, cfg.Retrieval.Lexical.TitleWeight)
	assert.Equal(t, 50000, cfg.Retrieval.Lexical.MaxFeaturesWord)
	assert.Equal(t, 80000, cfg.Retrieval.Lexical.MaxFeaturesChar)
	assert.Equal(t, 0.2, cfg.Evaluation.GainThreshold)
	assert.False(t, cfg.Postgres.Enabled())
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  writeTimeout: 5s
retrieval:
  model: bm25
  bm25:
    k1: 1.2
evaluation:
  k: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "bm25", cfg.Retrieval.Model)
	assert.Equal(t, 1.2, cfg.Retrieval.BM25.K1)
	assert.Equal(t, 0.75, cfg.Retrieval.BM25.B)
	assert.Equal(t, 5, cfg.Evaluation.K)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CR_RETRIEVAL_MODEL", "BM25")
	t.Setenv("CR_POSTGRES_HOST", "db.internal")
	t.Setenv("CR_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CR_RETRIEVAL_WORKERS", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "BM25", cfg.Retrieval.Model)
	assert.True(t, cfg.Postgres.Enabled())
	assert.Contains(t, cfg.Postgres.DSN(), "host=db.internal")
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 4, cfg.Retrieval.Workers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown model", func(c *Config) { c.Retrieval.Model = "word2vec" }, "retrieval.model"},
		{"zero default k", func(c *Config) { c.Retrieval.DefaultK = 0 }, "retrieval.defaultK"},
		{"max below default", func(c *Config) { c.Retrieval.MaxK = 5 }, "retrieval.maxK"},
		{"zero evaluation k", func(c *Config) { c.Evaluation.K = 0 }, "evaluation.k"},
		{"threshold above one", func(c *Config) { c.Evaluation.GainThreshold = 1.5 }, "evaluation.gainThreshold"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.NoError(t, Default().Validate())
}
