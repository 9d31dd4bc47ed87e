// Package loader reads and writes the on-disk root lists and pattern
// definitions consumed by the morph engine.
//
// Root lists are UTF-8 text with one or more roots per line, separated by
// whitespace or commas. Blank lines and lines starting with # are ignored.
// Pattern files are JSON or YAML objects keyed by pattern name.
package loader

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/kerem-kaynak/sarf/pkg/morph"
)

var (
	ErrNoMatch           = errors.New("no files match")
	ErrUnsupportedFormat = errors.New("unsupported pattern file format")
)

// ReadRoots reads root strings from r. Roots are returned as written;
// normalization happens on insert.
func ReadRoots(r io.Reader) ([]string, error) {
	var roots []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		roots = append(roots, strings.FieldsFunc(line, isSeparator)...)
	}
	return roots, scanner.Err()
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == ',' || r == '،'
}

// ReadRootFile reads a single root list.
func ReadRootFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	roots, err := ReadRoots(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return roots, nil
}

// ReadRootFiles reads every file matching pattern, which may use ** to
// match across directories. Files are read in sorted path order.
func ReadRootFiles(pattern string) ([]string, error) {
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}
	sort.Strings(paths)

	var roots []string
	for _, path := range paths {
		batch, err := ReadRootFile(path)
		if err != nil {
			return nil, err
		}
		roots = append(roots, batch...)
	}
	return roots, nil
}

// ReadPatterns reads a pattern file, choosing the decoder by extension.
func ReadPatterns(path string) (map[string]morph.Pattern, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	patterns, err := DecodePatterns(file, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return patterns, nil
}

// DecodePatterns decodes a pattern object from r. ext is a file extension
// such as ".json", ".yaml" or ".yml".
func DecodePatterns(r io.Reader, ext string) (map[string]morph.Pattern, error) {
	patterns := map[string]morph.Pattern{}
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.NewDecoder(r).Decode(&patterns); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(r).Decode(&patterns); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return patterns, nil
}

// EncodePatterns writes patterns to w in the format named by ext. JSON is
// indented and keeps Arabic text unescaped.
func EncodePatterns(w io.Writer, ext string, patterns map[string]morph.Pattern) error {
	switch strings.ToLower(ext) {
	case ".json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(patterns)
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(patterns); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// WritePatterns writes patterns to path, choosing the encoder by extension.
func WritePatterns(path string, patterns map[string]morph.Pattern) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodePatterns(file, filepath.Ext(path), patterns); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

// PatternMap converts a store listing back into a map for writing.
func PatternMap(patterns []morph.NamedPattern) map[string]morph.Pattern {
	out := make(map[string]morph.Pattern, len(patterns))
	for _, p := range patterns {
		out[p.Name] = p.Pattern
	}
	return out
}
