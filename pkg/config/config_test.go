package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "synonym", cfg.Search.WildcardOperator)
	assert.Equal(t, 2, cfg.Spelling.MaxEditDistance)
	assert.Equal(t, "<em>", cfg.Search.HighlightPreTag)
	assert.Equal(t, "none", cfg.Cache.Backend)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "searchcore.yaml")
	data := []byte(`
search:
  timeout: 250ms
  wildcardOperator: or
spelling:
  maxEditDistance: 1
cache:
  backend: memory
  size: 16
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Search.Timeout)
	assert.Equal(t, "or", cfg.Search.WildcardOperator)
	assert.Equal(t, 1, cfg.Spelling.MaxEditDistance)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 16, cfg.Cache.Size)
	// untouched sections keep their defaults
	assert.Equal(t, 40, cfg.MoreLikeThis.MaxTerms)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SC_SEARCH_WILDCARD_OPERATOR", "OR")
	t.Setenv("SC_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("SC_SPELLING_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "or", cfg.Search.WildcardOperator)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Spelling.Enabled)
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	cfg := Default()
	cfg.Search.WildcardOperator = "xor"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Cache.Backend = "memcached"
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
