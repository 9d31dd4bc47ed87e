package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kerem-kaynak/sarf/pkg/morph"
)

var configEnvVars = []string{
	"SARF_ROOTS",
	"SARF_PATTERNS",
	"SARF_DB",
	"SARF_CACHE",
	"SARF_CACHE_SIZE",
	"SARF_PATTERN_CAPACITY",
	"SARF_LOG_LEVEL",
}

func clearConfigEnvVars(t *testing.T) {
	for _, name := range configEnvVars {
		t.Setenv(name, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearConfigEnvVars(t)

	cfg := Load()

	assert.Equal(t, DefaultRoots, cfg.Roots)
	assert.Equal(t, DefaultPatterns, cfg.Patterns)
	assert.Empty(t, cfg.DB)
	assert.True(t, cfg.Cache)
	assert.Equal(t, morph.DefaultCacheSize, cfg.CacheSize)
	assert.Equal(t, morph.DefaultPatternCapacity, cfg.PatternCapacity)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	clearConfigEnvVars(t)
	t.Setenv("SARF_ROOTS", "corpus/**/*.txt")
	t.Setenv("SARF_PATTERNS", "patterns.yaml")
	t.Setenv("SARF_DB", "sarf.db")
	t.Setenv("SARF_CACHE", "false")
	t.Setenv("SARF_CACHE_SIZE", "500")
	t.Setenv("SARF_PATTERN_CAPACITY", "8")
	t.Setenv("SARF_LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, "corpus/**/*.txt", cfg.Roots)
	assert.Equal(t, "patterns.yaml", cfg.Patterns)
	assert.Equal(t, "sarf.db", cfg.DB)
	assert.False(t, cfg.Cache)
	assert.Equal(t, 500, cfg.CacheSize)
	assert.Equal(t, 8, cfg.PatternCapacity)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearConfigEnvVars(t)
	t.Setenv("SARF_CACHE", "maybe")
	t.Setenv("SARF_CACHE_SIZE", "-3")
	t.Setenv("SARF_PATTERN_CAPACITY", "many")
	t.Setenv("SARF_LOG_LEVEL", "loud")

	cfg := Load()

	assert.True(t, cfg.Cache)
	assert.Equal(t, morph.DefaultCacheSize, cfg.CacheSize)
	assert.Equal(t, morph.DefaultPatternCapacity, cfg.PatternCapacity)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestEngineConfig(t *testing.T) {
	clearConfigEnvVars(t)
	t.Setenv("SARF_CACHE_SIZE", "42")

	logger := slog.New(slog.DiscardHandler)
	ec := Load().Engine(logger)

	assert.True(t, ec.Cache)
	assert.Equal(t, 42, ec.CacheSize)
	assert.Same(t, logger, ec.Logger)
}
