package morph

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"
)

const (
	// DefaultPatternCapacity is the initial bucket count of a PatternStore.
	DefaultPatternCapacity = 50

	// MaxLoadFactor triggers a resize when reached on insert.
	MaxLoadFactor = 0.75

	hashBase = 31
)

// Pattern is a morphological template with its metadata. Template mixes
// literal letters with the root-slot markers 1, 2 and 3.
type Pattern struct {
	Template    string `json:"template" yaml:"template"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Example     string `json:"example,omitempty" yaml:"example,omitempty"`
	Rule        string `json:"rule,omitempty" yaml:"rule,omitempty"`
}

// PatternUpdate carries the fields to change in an existing pattern.
// Nil fields are kept.
type PatternUpdate struct {
	Template    *string
	Description *string
	Example     *string
	Rule        *string
}

// NamedPattern pairs a pattern with its name.
type NamedPattern struct {
	Name string
	Pattern
}

// PatternStats describes the bucket layout of a PatternStore.
type PatternStats struct {
	Capacity       int     `json:"capacity"`
	Size           int     `json:"size"`
	LoadFactor     float64 `json:"load_factor"`
	BucketsUsed    int     `json:"buckets_used"`
	MaxChainLength int     `json:"max_chain_length"`
	AvgChainLength float64 `json:"avg_chain_length"`
}

type bucketEntry struct {
	name    string
	pattern Pattern
	next    *bucketEntry
}

// PatternStore is a hash map from pattern name to Pattern using separate
// chaining. Capacity doubles, with a full rehash, whenever the load factor
// has reached MaxLoadFactor at the start of an insert.
type PatternStore struct {
	mu      sync.RWMutex
	buckets []*bucketEntry
	size    int
	logger  *slog.Logger
}

// NewPatternStore creates an empty store with the given initial capacity.
// A non-positive capacity selects DefaultPatternCapacity. A nil logger
// discards output.
func NewPatternStore(capacity int, logger *slog.Logger) *PatternStore {
	if capacity <= 0 {
		capacity = DefaultPatternCapacity
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PatternStore{
		buckets: make([]*bucketEntry, capacity),
		logger:  logger,
	}
}

// hashIndex is a polynomial rolling hash over code points, reduced modulo
// capacity at every step.
func hashIndex(name string, capacity int) int {
	c := uint64(capacity)
	var h uint64
	for _, r := range name {
		h = (h*hashBase + uint64(r)) % c
	}
	return int(h)
}

// Insert adds or replaces a pattern without validation.
func (s *PatternStore) Insert(name string, p Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(name, p)
}

// insert places an entry without locking (caller must hold lock).
func (s *PatternStore) insert(name string, p Pattern) {
	if float64(s.size)/float64(len(s.buckets)) >= MaxLoadFactor {
		s.resize()
	}
	s.place(name, p)
}

// place puts the entry at the end of its chain, or overwrites an equal key.
func (s *PatternStore) place(name string, p Pattern) {
	idx := hashIndex(name, len(s.buckets))
	entry := s.buckets[idx]
	if entry == nil {
		s.buckets[idx] = &bucketEntry{name: name, pattern: p}
		s.size++
		return
	}
	for {
		if entry.name == name {
			entry.pattern = p
			return
		}
		if entry.next == nil {
			break
		}
		entry = entry.next
	}
	entry.next = &bucketEntry{name: name, pattern: p}
	s.size++
}

// resize doubles the capacity and rehashes every entry in bucket order.
func (s *PatternStore) resize() {
	old := s.buckets
	s.buckets = make([]*bucketEntry, len(old)*2)
	s.size = 0
	for _, entry := range old {
		for ; entry != nil; entry = entry.next {
			s.place(entry.name, entry.pattern)
		}
	}
	s.logger.Debug("pattern table resized", "old_capacity", len(old), "new_capacity", len(s.buckets))
}

// Search returns the named pattern.
func (s *PatternStore) Search(name string) (Pattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search(name)
}

func (s *PatternStore) search(name string) (Pattern, bool) {
	for entry := s.buckets[hashIndex(name, len(s.buckets))]; entry != nil; entry = entry.next {
		if entry.name == name {
			return entry.pattern, true
		}
	}
	return Pattern{}, false
}

// Contains reports whether name is stored.
func (s *PatternStore) Contains(name string) bool {
	_, ok := s.Search(name)
	return ok
}

// Delete removes the named pattern and reports whether it existed.
func (s *PatternStore) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := hashIndex(name, len(s.buckets))
	var prev *bucketEntry
	for entry := s.buckets[idx]; entry != nil; entry = entry.next {
		if entry.name == name {
			if prev == nil {
				s.buckets[idx] = entry.next
			} else {
				prev.next = entry.next
			}
			s.size--
			return true
		}
		prev = entry
	}
	return false
}

// All returns every pattern in bucket order, chain order within a bucket.
func (s *PatternStore) All() []NamedPattern {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]NamedPattern, 0, s.size)
	for _, entry := range s.buckets {
		for ; entry != nil; entry = entry.next {
			out = append(out, NamedPattern{Name: entry.name, Pattern: entry.pattern})
		}
	}
	return out
}

// Names returns every pattern name in bucket order.
func (s *PatternStore) Names() []string {
	all := s.All()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name
	}
	return names
}

// Len returns the number of stored patterns.
func (s *PatternStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Capacity returns the current bucket count.
func (s *PatternStore) Capacity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets)
}

// Stats walks every chain and reports the table layout.
func (s *PatternStore) Stats() PatternStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := PatternStats{
		Capacity:   len(s.buckets),
		Size:       s.size,
		LoadFactor: float64(s.size) / float64(len(s.buckets)),
	}
	total := 0
	for _, entry := range s.buckets {
		chain := 0
		for ; entry != nil; entry = entry.next {
			chain++
		}
		if chain > 0 {
			stats.BucketsUsed++
			total += chain
			if chain > stats.MaxChainLength {
				stats.MaxChainLength = chain
			}
		}
	}
	if stats.BucketsUsed > 0 {
		stats.AvgChainLength = float64(total) / float64(stats.BucketsUsed)
	}
	return stats
}

// AddWithValidation inserts a new pattern after checking the name is free
// and the template is well formed. The returned message confirms success.
func (s *PatternStore) AddWithValidation(name string, p Pattern) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyPatternName
	}
	if err := ValidateTemplate(p.Template); err != nil {
		return "", err
	}
	p.Template = strings.TrimSpace(p.Template)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.search(name); exists {
		return "", fmt.Errorf("%w: %q", ErrPatternExists, name)
	}
	s.insert(name, p)
	return fmt.Sprintf("pattern %q added successfully", name), nil
}

// Update merges the non-nil fields of u into an existing pattern. A new
// template is validated before anything changes.
func (s *PatternStore) Update(name string, u PatternUpdate) (string, error) {
	if u.Template != nil {
		if err := ValidateTemplate(*u.Template); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.search(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrPatternNotFound, name)
	}
	if u.Template != nil {
		p.Template = strings.TrimSpace(*u.Template)
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Example != nil {
		p.Example = *u.Example
	}
	if u.Rule != nil {
		p.Rule = *u.Rule
	}
	s.insert(name, p)
	return fmt.Sprintf("pattern %q updated successfully", name), nil
}

// ValidateTemplate checks template syntax: each of the markers 1, 2 and 3
// appears at least once, no other digit appears, and every other character
// is an alphabet letter. Markers may repeat.
func ValidateTemplate(template string) error {
	template = strings.TrimSpace(template)
	if template == "" {
		return fmt.Errorf("%w: template cannot be empty", ErrInvalidTemplate)
	}

	present := map[rune]bool{}
	for _, r := range template {
		if !unicode.IsDigit(r) {
			continue
		}
		if r < '1' || r > '3' {
			return fmt.Errorf("%w: invalid root position %q, only digits 1, 2, 3 are allowed", ErrInvalidTemplate, r)
		}
		present[r] = true
	}

	var missing []string
	for _, marker := range "123" {
		if !present[marker] {
			missing = append(missing, string(marker))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing root positions: %s", ErrInvalidTemplate, strings.Join(missing, ", "))
	}

	for _, r := range template {
		if unicode.IsDigit(r) {
			continue
		}
		if !IsArabicLetter(r) {
			return fmt.Errorf("%w: invalid character in template: %q", ErrInvalidTemplate, r)
		}
	}
	return nil
}
