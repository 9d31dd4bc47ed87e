// Package morph indexes Arabic triliteral roots and morphological patterns
// and derives words from them.
//
// An Engine ties together an Index of roots, ordered by an AVL tree, and a
// PatternStore of templates, kept in a chained hash map. It generates words
// (root + pattern), validates them (word to root and pattern) and classifies
// roots. Every text comparison goes through Normalize.
package morph

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of (root, template) generations kept by
// the engine cache.
const DefaultCacheSize = 10_000

// maxImportErrors bounds the rejection reasons reported by ImportPatterns.
const maxImportErrors = 3

// maxStatsDerivatives bounds the derivatives listed by RootStats.
const maxStatsDerivatives = 10

// Config controls Engine behavior.
type Config struct {
	Cache     bool         // memoize ApplyPattern results
	CacheSize int          // non-positive selects DefaultCacheSize
	Logger    *slog.Logger // nil discards output
}

// DefaultConfig returns the configuration with caching enabled.
func DefaultConfig() Config {
	return Config{Cache: true, CacheSize: DefaultCacheSize}
}

// Engine generates and validates words against one Index and one
// PatternStore. It holds references only; both structures may be shared.
type Engine struct {
	roots    *Index
	patterns *PatternStore
	cache    *lru.Cache[string, string]
	logger   *slog.Logger
}

// NewEngine creates an engine over roots and patterns. Nil structures are
// replaced with empty ones.
func NewEngine(roots *Index, patterns *PatternStore, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if roots == nil {
		roots = NewIndex(logger)
	}
	if patterns == nil {
		patterns = NewPatternStore(DefaultPatternCapacity, logger)
	}

	e := &Engine{roots: roots, patterns: patterns, logger: logger}
	if cfg.Cache {
		size := cfg.CacheSize
		if size <= 0 {
			size = DefaultCacheSize
		}
		e.cache, _ = lru.New[string, string](size)
	}
	return e
}

// Roots returns the engine's root index.
func (e *Engine) Roots() *Index { return e.roots }

// Patterns returns the engine's pattern store.
func (e *Engine) Patterns() *PatternStore { return e.patterns }

// CacheEnabled reports whether generation caching is active.
func (e *Engine) CacheEnabled() bool {
	return e.cache != nil
}

// CacheSize returns the number of cached generations.
func (e *Engine) CacheSize() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.Len()
}

// ClearCache empties the generation cache.
func (e *Engine) ClearCache() {
	if e.cache != nil {
		e.cache.Purge()
	}
}

// ApplyPattern substitutes the radicals of root into template: marker 1, 2
// or 3 emits the corresponding radical, anything else is copied. root must
// be exactly three letters after shadda expansion.
func ApplyPattern(root, template string) (string, error) {
	radicals := []rune(ExpandShadda(root))
	if len(radicals) != 3 {
		return "", fmt.Errorf("%w: %q has %d letters", ErrInvalidRoot, root, len(radicals))
	}

	var b strings.Builder
	b.Grow(len(template) + len(root))
	for _, r := range template {
		switch r {
		case '1', '2', '3':
			b.WriteRune(radicals[r-'1'])
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// FindPatternMatch reports whether word is what template produces from
// root. The comparison tries conservative normalization, then aggressive,
// then raw equality. A root that cannot be applied is no match.
func FindPatternMatch(word, root, template string) bool {
	expected, err := ApplyPattern(root, template)
	if err != nil {
		return false
	}
	return sameWord(word, expected)
}

func sameWord(word, expected string) bool {
	if expected == "" {
		return false
	}
	if a, b := Normalize(word, false), Normalize(expected, false); a != "" && a == b {
		return true
	}
	if a, b := Normalize(word, true), Normalize(expected, true); a != "" && a == b {
		return true
	}
	return word == expected
}

// apply is ApplyPattern behind the cache.
func (e *Engine) apply(root, template string) (string, error) {
	if e.cache == nil {
		return ApplyPattern(root, template)
	}
	key := root + "\x1f" + template
	if word, ok := e.cache.Get(key); ok {
		return word, nil
	}
	word, err := ApplyPattern(root, template)
	if err != nil {
		return "", err
	}
	e.cache.Add(key, word)
	return word, nil
}

// LoadRoots normalizes and inserts every root, skipping invalid ones.
// Returns the number inserted.
func (e *Engine) LoadRoots(roots []string) int {
	loaded := 0
	for _, r := range roots {
		if _, err := e.roots.Insert(r); err == nil {
			loaded++
		}
	}
	e.logger.Info("roots loaded", "loaded", loaded, "skipped", len(roots)-loaded, "distinct", e.roots.Count())
	return loaded
}

// LoadPatterns inserts every pattern without validation.
func (e *Engine) LoadPatterns(patterns map[string]Pattern) {
	for name, p := range patterns {
		e.patterns.Insert(name, p)
	}
	e.logger.Info("patterns loaded", "count", len(patterns), "capacity", e.patterns.Capacity())
}

// ImportPatterns adds every pattern with validation, in name order. err
// joins at most three rejection reasons plus a count of the rest.
func (e *Engine) ImportPatterns(patterns map[string]Pattern) (imported int, err error) {
	var errs []error
	rejected := 0
	for _, name := range slices.Sorted(maps.Keys(patterns)) {
		if _, addErr := e.patterns.AddWithValidation(name, patterns[name]); addErr != nil {
			rejected++
			if len(errs) < maxImportErrors {
				errs = append(errs, fmt.Errorf("%s: %w", name, addErr))
			}
			continue
		}
		imported++
	}
	if rejected > len(errs) {
		errs = append(errs, fmt.Errorf("%d more rejected", rejected-len(errs)))
	}
	e.logger.Info("patterns imported", "imported", imported, "rejected", rejected)
	return imported, errors.Join(errs...)
}

// AddPattern validates and adds a new pattern.
func (e *Engine) AddPattern(name string, p Pattern) (string, error) {
	return e.patterns.AddWithValidation(name, p)
}

// EditPattern merges u into an existing pattern.
func (e *Engine) EditPattern(name string, u PatternUpdate) (string, error) {
	return e.patterns.Update(name, u)
}

// DeletePattern removes a pattern.
func (e *Engine) DeletePattern(name string) (string, error) {
	if !e.patterns.Delete(name) {
		return "", fmt.Errorf("%w: %q", ErrPatternNotFound, name)
	}
	return fmt.Sprintf("pattern %q deleted successfully", name), nil
}

// ValidatePatternTemplate checks template syntax and explains the result.
func ValidatePatternTemplate(template string) (bool, string) {
	if err := ValidateTemplate(template); err != nil {
		return false, strings.TrimPrefix(err.Error(), ErrInvalidTemplate.Error()+": ")
	}
	return true, "template is valid"
}

// Generation is the outcome of applying one pattern to one root.
type Generation struct {
	Root        string `json:"root"`
	Pattern     string `json:"pattern"`
	Template    string `json:"template"`
	Word        string `json:"word"`
	Valid       bool   `json:"valid"`
	Irregular   bool   `json:"irregular,omitempty"`
	Recorded    bool   `json:"recorded"`  // derivative stored on the root
	Frequency   int    `json:"frequency"` // derivative frequency after recording
	Description string `json:"description,omitempty"`
	Example     string `json:"example,omitempty"`
}

// resolve normalizes root and looks up the pattern.
func (e *Engine) resolve(root, patternName string) (string, Pattern, error) {
	key, ok := NormalizeRoot(root)
	if !ok {
		e.logger.Debug("generation rejected", "root", root, "reason", "invalid root")
		return "", Pattern{}, fmt.Errorf("%w: %q", ErrInvalidRoot, root)
	}
	p, ok := e.patterns.Search(patternName)
	if !ok {
		e.logger.Debug("generation rejected", "pattern", patternName, "reason", "unknown pattern")
		return "", Pattern{}, fmt.Errorf("%w: %q", ErrPatternNotFound, patternName)
	}
	if !hasTemplate(p) {
		e.logger.Debug("generation rejected", "pattern", patternName, "reason", "empty template")
		return "", Pattern{}, fmt.Errorf("%w: pattern %q has no template", ErrInvalidTemplate, patternName)
	}
	return key, p, nil
}

// GenerateWord applies the named pattern to root and confirms the result
// with FindPatternMatch. A confirmed word is recorded as a derivative when
// the root is in the index.
func (e *Engine) GenerateWord(root, patternName string) (*Generation, error) {
	key, p, err := e.resolve(root, patternName)
	if err != nil {
		return nil, err
	}
	word, err := e.apply(key, p.Template)
	if err != nil {
		return nil, err
	}

	g := e.newGeneration(key, patternName, p, word)
	g.Valid = FindPatternMatch(word, key, p.Template)
	if g.Valid {
		g.Frequency, g.Recorded = e.roots.AddDerivative(key, word, patternName)
	}
	return g, nil
}

// GenerateIrregular is GenerateWord with root-type corrections applied.
func (e *Engine) GenerateIrregular(root, patternName string) (*Generation, error) {
	key, p, err := e.resolve(root, patternName)
	if err != nil {
		return nil, err
	}
	regular, err := e.apply(key, p.Template)
	if err != nil {
		return nil, err
	}
	word, err := GenerateWithRootType(key, p.Template, patternName)
	if err != nil {
		return nil, err
	}

	g := e.newGeneration(key, patternName, p, word)
	g.Irregular = word != regular
	g.Valid = true
	g.Frequency, g.Recorded = e.roots.AddDerivative(key, word, patternName)
	return g, nil
}

func (e *Engine) newGeneration(root, name string, p Pattern, word string) *Generation {
	return &Generation{
		Root:        root,
		Pattern:     name,
		Template:    p.Template,
		Word:        word,
		Description: p.Description,
		Example:     p.Example,
	}
}

// GenerateAll applies every stored pattern to root in store order.
func (e *Engine) GenerateAll(root string) ([]*Generation, error) {
	if _, ok := NormalizeRoot(root); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRoot, root)
	}
	var out []*Generation
	for _, name := range e.patterns.Names() {
		g, err := e.GenerateWord(root, name)
		if err != nil {
			// Deleted concurrently or no template; skip it.
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

// Match is one (root, pattern) pair that produces a word.
type Match struct {
	Root        string `json:"root"`
	Word        string `json:"word"` // form produced by the pattern
	Pattern     string `json:"pattern"`
	Template    string `json:"template"`
	Description string `json:"description,omitempty"`
	Irregular   bool   `json:"irregular,omitempty"`
}

// ValidationResult describes whether and how a word derives from a root.
type ValidationResult struct {
	Word          string   `json:"word"`
	Root          string   `json:"root,omitempty"`
	Valid         bool     `json:"valid"`
	Pattern       string   `json:"pattern,omitempty"`
	Template      string   `json:"template,omitempty"`
	Matches       []Match  `json:"matches,omitempty"`
	PossibleRoots []string `json:"possible_roots,omitempty"`
	Suggestions   []string `json:"suggestions,omitempty"`
	Message       string   `json:"message"`
}

// ValidateWord checks word against root, or against every stored root when
// root is empty. A rooted check stops at the first matching pattern and
// records the derivative. An unrooted check collects every match; when there
// is none it falls back to PossibleRoots and lexicon suggestions.
func (e *Engine) ValidateWord(word, root string) *ValidationResult {
	normalized := Normalize(word, false)
	if root != "" {
		return e.validateAgainstRoot(normalized, root)
	}
	return e.findMatches(normalized)
}

func (e *Engine) validateAgainstRoot(word, root string) *ValidationResult {
	res := &ValidationResult{Word: word, Root: root}
	key, ok := NormalizeRoot(root)
	if !ok {
		res.Message = fmt.Sprintf("invalid root: %s", root)
		return res
	}
	res.Root = key
	if !e.roots.Contains(key) {
		res.Message = fmt.Sprintf("root %q not found", key)
		return res
	}

	m, ok := e.matchRoot(word, key, e.patterns.All())
	if !ok {
		res.Message = fmt.Sprintf("word does not belong to root %q with any known pattern", key)
		return res
	}
	res.Valid = true
	res.Pattern = m.Pattern
	res.Template = m.Template
	res.Matches = []Match{m}
	e.roots.AddDerivative(key, m.Word, m.Pattern)
	res.Message = fmt.Sprintf("word belongs to root %q with pattern %q", key, m.Pattern)
	return res
}

// matchRoot returns the first pattern producing word from root. Regular
// forms are tried across all patterns before irregular ones.
func (e *Engine) matchRoot(word, root string, patterns []NamedPattern) (Match, bool) {
	patterns = slices.DeleteFunc(slices.Clone(patterns), func(p NamedPattern) bool { return !hasTemplate(p.Pattern) })
	for _, p := range patterns {
		if expected, err := e.apply(root, p.Template); err == nil && sameWord(word, expected) {
			return newMatch(root, expected, p, false), true
		}
	}
	subtype := Classify(root).Subtype
	for _, p := range patterns {
		if !HasIrregularForm(subtype, p.Name) {
			continue
		}
		if expected, err := GenerateWithRootType(root, p.Template, p.Name); err == nil && sameWord(word, expected) {
			return newMatch(root, expected, p, true), true
		}
	}
	return Match{}, false
}

// hasTemplate reports whether p can produce a word. Bulk-loaded patterns
// are not validated and may lack one.
func hasTemplate(p Pattern) bool {
	return strings.TrimSpace(p.Template) != ""
}

func newMatch(root, word string, p NamedPattern, irregular bool) Match {
	return Match{
		Root:        root,
		Word:        word,
		Pattern:     p.Name,
		Template:    p.Template,
		Description: p.Description,
		Irregular:   irregular,
	}
}

func (e *Engine) findMatches(word string) *ValidationResult {
	res := &ValidationResult{Word: word}
	patterns := e.patterns.All()
	roots := e.roots.InOrder()
	e.logger.Debug("validating against every root", "word", word, "roots", len(roots), "patterns", len(patterns))

	for _, root := range roots {
		subtype := Classify(root).Subtype
		for _, p := range patterns {
			if !hasTemplate(p.Pattern) {
				continue
			}
			if expected, err := e.apply(root, p.Template); err == nil && sameWord(word, expected) {
				res.Matches = append(res.Matches, newMatch(root, expected, p, false))
				continue
			}
			if !HasIrregularForm(subtype, p.Name) {
				continue
			}
			if expected, err := GenerateWithRootType(root, p.Template, p.Name); err == nil && sameWord(word, expected) {
				res.Matches = append(res.Matches, newMatch(root, expected, p, true))
			}
		}
	}

	if len(res.Matches) > 0 {
		res.Valid = true
		res.Message = fmt.Sprintf("found %d possible derivation(s)", len(res.Matches))
		return res
	}

	res.PossibleRoots = PossibleRoots(word)
	res.Suggestions = e.suggest(res.PossibleRoots)
	res.Message = "no derivation found"
	if len(res.PossibleRoots) > 0 {
		res.Message += fmt.Sprintf("; possible roots: %s", strings.Join(res.PossibleRoots, ", "))
	}
	return res
}

// suggest returns stored roots equal to or within edit distance 1 of any
// candidate, without duplicates.
func (e *Engine) suggest(candidates []string) []string {
	if len(candidates) == 0 || e.roots.Count() == 0 {
		return nil
	}
	lex, err := e.roots.Lexicon()
	if err != nil {
		e.logger.Warn("lexicon build failed", "error", err)
		return nil
	}
	defer lex.Close()

	seen := map[string]bool{}
	var out []string
	add := func(root string) {
		if !seen[root] {
			seen[root] = true
			out = append(out, root)
		}
	}
	for _, c := range candidates {
		if lex.Contains(c) {
			add(c)
		}
		similar, err := lex.Similar(c)
		if err != nil {
			continue
		}
		for _, s := range similar {
			add(s)
		}
	}
	return out
}

// PossibleRoots guesses roots from the letters of word: first, middle and
// last; the first three; the last three. Only valid roots are returned, in
// that order without duplicates.
func PossibleRoots(word string) []string {
	letters := []rune(strings.Join(strings.Fields(Normalize(word, false)), ""))
	n := len(letters)
	if n < 3 {
		return nil
	}
	candidates := []string{
		string([]rune{letters[0], letters[n/2], letters[n-1]}),
		string(letters[:3]),
		string(letters[n-3:]),
	}
	var out []string
	seen := map[string]bool{}
	for _, c := range candidates {
		if !seen[c] && IsValidRoot(c) {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// WordAnalysis is the validation of one word from running text.
type WordAnalysis struct {
	Token RawToken
	*ValidationResult
}

// AnalyzeText splits text into words and validates each one against every
// stored root. Words with no Arabic letters are skipped.
func (e *Engine) AnalyzeText(text string) []WordAnalysis {
	var out []WordAnalysis
	for _, tok := range SplitWords(text) {
		if tok.Type != TokenWord || Normalize(tok.Text, false) == "" {
			continue
		}
		out = append(out, WordAnalysis{Token: tok, ValidationResult: e.ValidateWord(tok.Text, "")})
	}
	return out
}

// Classify delegates to the package-level Classify.
func (e *Engine) Classify(root string) Analysis {
	return Classify(root)
}

// SearchRoot returns a copy of the stored entry for root.
func (e *Engine) SearchRoot(root string) (RootEntry, bool) {
	return e.roots.Search(root)
}

// ListRoots returns stored roots in sorted order.
func (e *Engine) ListRoots() []string {
	return e.roots.InOrder()
}

// Derivatives returns the derivatives recorded for root.
func (e *Engine) Derivatives(root string) ([]Derivative, error) {
	entry, ok := e.roots.Search(root)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRootNotFound, root)
	}
	return entry.Derivatives(), nil
}

// RemoveDerivative removes derivatives of root with word, restricted to
// pattern unless it is empty.
func (e *Engine) RemoveDerivative(root, word, pattern string) bool {
	if _, ok := NormalizeRoot(root); !ok {
		e.logger.Debug("derivative removal rejected", "root", root, "reason", "invalid root")
		return false
	}
	return e.roots.RemoveDerivative(root, word, pattern)
}

// ClearDerivatives removes every derivative of root.
func (e *Engine) ClearDerivatives(root string) bool {
	return e.roots.ClearDerivatives(root)
}

// RootStats summarizes one root.
type RootStats struct {
	Root            string       `json:"root"`
	Exists          bool         `json:"exists"`
	Occurrences     int          `json:"occurrences"`
	DerivativeCount int          `json:"derivative_count"`
	Derivatives     []Derivative `json:"derivatives,omitempty"` // at most 10
	Analysis        Analysis     `json:"-"`
}

// RootStats reports usage of root. A missing root yields Exists false.
func (e *Engine) RootStats(root string) RootStats {
	entry, ok := e.roots.Search(root)
	if !ok {
		return RootStats{Root: root}
	}
	derivs := entry.Derivatives()
	stats := RootStats{
		Root:            entry.Root,
		Exists:          true,
		Occurrences:     entry.Occurrences,
		DerivativeCount: len(derivs),
		Analysis:        Classify(entry.Root),
	}
	if len(derivs) > maxStatsDerivatives {
		derivs = derivs[:maxStatsDerivatives]
	}
	stats.Derivatives = derivs
	return stats
}

// EngineStats summarizes the whole engine.
type EngineStats struct {
	Roots                int          `json:"roots"`
	Patterns             int          `json:"patterns"`
	Derivatives          int          `json:"derivatives"`
	RootsWithDerivatives int          `json:"roots_with_derivatives"`
	TreeHeight           int          `json:"tree_height"`
	LoadFactor           float64      `json:"load_factor"`
	PatternTable         PatternStats `json:"pattern_table"`
	CachedGenerations    int          `json:"cached_generations"`
}

// Stats reports counts across both structures.
func (e *Engine) Stats() EngineStats {
	table := e.patterns.Stats()
	stats := EngineStats{
		Roots:             e.roots.Count(),
		Patterns:          table.Size,
		TreeHeight:        e.roots.Height(),
		LoadFactor:        table.LoadFactor,
		PatternTable:      table,
		CachedGenerations: e.CacheSize(),
	}
	for _, entry := range e.roots.Entries() {
		if n := entry.DerivativeCount(); n > 0 {
			stats.Derivatives += n
			stats.RootsWithDerivatives++
		}
	}
	return stats
}
