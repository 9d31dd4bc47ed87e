package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/kerem-kaynak/sarf/pkg/morph"
)

// Defaults used when a variable is unset or invalid.
const (
	DefaultRoots    = "data/roots.txt"
	DefaultPatterns = "data/patterns.json"
)

// Config holds the application's configuration.
type Config struct {
	Roots           string // glob of root list files
	Patterns        string // pattern file, JSON or YAML
	DB              string // SQLite path; empty disables persistence
	Cache           bool
	CacheSize       int
	PatternCapacity int
	LogLevel        slog.Level
}

// Load reads configuration from SARF_* environment variables.
func Load() *Config {
	cfg := &Config{
		Roots:           os.Getenv("SARF_ROOTS"),
		Patterns:        os.Getenv("SARF_PATTERNS"),
		DB:              os.Getenv("SARF_DB"),
		Cache:           true,
		CacheSize:       morph.DefaultCacheSize,
		PatternCapacity: morph.DefaultPatternCapacity,
		LogLevel:        slog.LevelWarn,
	}

	if cfg.Roots == "" {
		cfg.Roots = DefaultRoots
	}
	if cfg.Patterns == "" {
		cfg.Patterns = DefaultPatterns
	}

	if cacheStr := os.Getenv("SARF_CACHE"); cacheStr != "" {
		if cache, err := strconv.ParseBool(cacheStr); err == nil {
			cfg.Cache = cache
		}
	}

	if sizeStr := os.Getenv("SARF_CACHE_SIZE"); sizeStr != "" {
		if size, err := strconv.Atoi(sizeStr); err == nil && size > 0 {
			cfg.CacheSize = size
		}
	}

	if capacityStr := os.Getenv("SARF_PATTERN_CAPACITY"); capacityStr != "" {
		if capacity, err := strconv.Atoi(capacityStr); err == nil && capacity > 0 {
			cfg.PatternCapacity = capacity
		}
	}

	if levelStr := os.Getenv("SARF_LOG_LEVEL"); levelStr != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(strings.TrimSpace(levelStr))); err == nil {
			cfg.LogLevel = level
		}
	}

	return cfg
}

// Engine returns the engine configuration with the given logger.
func (c *Config) Engine(logger *slog.Logger) morph.Config {
	return morph.Config{Cache: c.Cache, CacheSize: c.CacheSize, Logger: logger}
}
