package morph

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/blevesearch/vellum"
	"github.com/blevesearch/vellum/levenshtein"
)

// maxSuggestDistance bounds the edit distance used for root suggestions.
const maxSuggestDistance = 1

// Lexicon is an immutable FST snapshot of an Index. Keys are roots, values
// their occurrence counts. It is safe for concurrent reads.
type Lexicon struct {
	fst     *vellum.FST
	builder *levenshtein.LevenshteinAutomatonBuilder
}

// Lexicon builds an FST over the current roots. Roots inserted afterwards
// are not visible to the snapshot.
func (ix *Index) Lexicon() (*Lexicon, error) {
	return BuildLexicon(ix.Entries())
}

// BuildLexicon builds an FST from entries sorted by root, as returned by
// Index.Entries.
func BuildLexicon(entries []RootEntry) (*Lexicon, error) {
	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, fmt.Errorf("create fst builder: %w", err)
	}
	for _, e := range entries {
		if err := builder.Insert([]byte(e.Root), uint64(e.Occurrences)); err != nil {
			builder.Close()
			return nil, fmt.Errorf("insert %q: %w", e.Root, err)
		}
	}
	if err := builder.Close(); err != nil {
		return nil, fmt.Errorf("close fst builder: %w", err)
	}

	fst, err := vellum.Load(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("load fst: %w", err)
	}
	lb, err := levenshtein.NewLevenshteinAutomatonBuilder(maxSuggestDistance, false)
	if err != nil {
		return nil, fmt.Errorf("levenshtein builder: %w", err)
	}
	return &Lexicon{fst: fst, builder: lb}, nil
}

// Contains reports whether root is in the snapshot. The root is looked up as
// given; callers normalize beforehand.
func (l *Lexicon) Contains(root string) bool {
	_, ok, _ := l.fst.Get([]byte(root))
	return ok
}

// Occurrences returns the stored occurrence count of root.
func (l *Lexicon) Occurrences(root string) (int, bool) {
	v, ok, err := l.fst.Get([]byte(root))
	if err != nil || !ok {
		return 0, false
	}
	return int(v), true
}

// Len returns the number of roots in the snapshot.
func (l *Lexicon) Len() int {
	return l.fst.Len()
}

// WithPrefix returns every root starting with prefix, in sorted order.
func (l *Lexicon) WithPrefix(prefix string) ([]string, error) {
	start := []byte(prefix)
	itr, err := l.fst.Iterator(start, prefixEnd(start))
	return collect(itr, err)
}

// Similar returns the roots within edit distance 1 of root, excluding root
// itself.
func (l *Lexicon) Similar(root string) ([]string, error) {
	dfa, err := l.builder.BuildDfa(root, maxSuggestDistance)
	if err != nil {
		return nil, fmt.Errorf("build dfa for %q: %w", root, err)
	}
	itr, err := l.fst.Search(dfa, nil, nil)
	matches, err := collect(itr, err)
	if err != nil {
		return nil, err
	}
	out := matches[:0]
	for _, m := range matches {
		if m != root {
			out = append(out, m)
		}
	}
	return out, nil
}

// Close releases the FST.
func (l *Lexicon) Close() error {
	return l.fst.Close()
}

func collect(itr *vellum.FSTIterator, err error) ([]string, error) {
	var out []string
	for err == nil {
		key, _ := itr.Current()
		out = append(out, string(key))
		err = itr.Next()
	}
	if !errors.Is(err, vellum.ErrIteratorDone) {
		return nil, err
	}
	return out, nil
}

// prefixEnd returns the smallest key greater than every key with the given
// prefix, or nil when no such key exists.
func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
