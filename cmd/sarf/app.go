package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/kerem-kaynak/sarf/internal/config"
	"github.com/kerem-kaynak/sarf/pkg/loader"
	"github.com/kerem-kaynak/sarf/pkg/morph"
	"github.com/kerem-kaynak/sarf/pkg/store"
)

// options are the persistent flags shared by every command.
type options struct {
	roots    string
	patterns string
	db       string
	noCache  bool
	verbose  bool
	json     bool
}

// app holds the engine and its persistence for one process. Data is loaded
// once, so the interactive shell keeps state between lines.
type app struct {
	cfg    *config.Config
	opts   options
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	logger *slog.Logger
	engine *morph.Engine
	store  *store.Store
	loaded bool
}

func newApp(cfg *config.Config, in io.Reader, out, errOut io.Writer) *app {
	return &app{
		cfg:    cfg,
		in:     in,
		out:    out,
		errOut: errOut,
		opts: options{
			roots:    cfg.Roots,
			patterns: cfg.Patterns,
			db:       cfg.DB,
			noCache:  !cfg.Cache,
		},
	}
}

// load builds the engine and fills it from the configured sources. Roots
// come from the database when it holds any, otherwise from the root files.
func (a *app) load(ctx context.Context) error {
	if a.loaded {
		return nil
	}

	level := a.cfg.LogLevel
	if a.opts.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	engineCfg := a.cfg.Engine(a.logger)
	engineCfg.Cache = !a.opts.noCache
	index := morph.NewIndex(a.logger)
	patterns := morph.NewPatternStore(a.cfg.PatternCapacity, a.logger)
	a.engine = morph.NewEngine(index, patterns, engineCfg)

	if err := a.loadPatterns(); err != nil {
		return err
	}

	restored := 0
	if a.opts.db != "" {
		s, err := store.Open(a.opts.db)
		if err != nil {
			return err
		}
		a.store = s
		if restored, err = s.Restore(ctx, index); err != nil {
			return fmt.Errorf("restore %s: %w", a.opts.db, err)
		}
		a.logger.Info("roots restored", "db", a.opts.db, "roots", restored)
	}
	if restored == 0 {
		if err := a.loadRoots(); err != nil {
			return err
		}
		// Seed the database so later derivative merges find every root.
		if err := a.saveRoots(ctx); err != nil {
			return err
		}
	}

	a.loaded = true
	return nil
}

func (a *app) loadPatterns() error {
	patterns, err := loader.ReadPatterns(a.opts.patterns)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		a.logger.Warn("pattern file not found", "path", a.opts.patterns)
		return nil
	case err != nil:
		return err
	}
	a.engine.LoadPatterns(patterns)
	return nil
}

func (a *app) loadRoots() error {
	roots, err := loader.ReadRootFiles(a.opts.roots)
	switch {
	case errors.Is(err, loader.ErrNoMatch):
		a.logger.Warn("no root files found", "pattern", a.opts.roots)
		return nil
	case err != nil:
		return err
	}
	a.engine.LoadRoots(roots)
	return nil
}

// saveRoots writes the index to the database, if one is configured.
func (a *app) saveRoots(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Snapshot(ctx, a.engine.Roots()); err != nil {
		return fmt.Errorf("save %s: %w", a.opts.db, err)
	}
	return nil
}

// recordDerivative adds one occurrence of (root, word, pattern) to the
// database, if one is configured.
func (a *app) recordDerivative(ctx context.Context, root, word, pattern string) error {
	if a.store == nil {
		return nil
	}
	frequency, err := a.store.MergeDerivative(ctx, root, word, pattern)
	if err != nil {
		return fmt.Errorf("record %s in %s: %w", word, a.opts.db, err)
	}
	a.logger.Debug("derivative stored", "root", root, "word", word, "pattern", pattern, "frequency", frequency)
	return nil
}

// savePatterns writes the pattern store back to the pattern file.
func (a *app) savePatterns() error {
	path := a.opts.patterns
	if ext := filepath.Ext(path); ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %q", loader.ErrUnsupportedFormat, ext)
	}
	return loader.WritePatterns(path, loader.PatternMap(a.engine.Patterns().All()))
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	a.loaded = false
	return err
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
