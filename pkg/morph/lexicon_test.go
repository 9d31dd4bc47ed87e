package morph

import (
	"slices"
	"testing"
)

func newTestLexicon(t *testing.T, roots ...string) *Lexicon {
	t.Helper()
	ix := NewIndex(nil)
	for _, r := range roots {
		if _, err := ix.Insert(r); err != nil {
			t.Fatalf("Insert(%q) error = %v", r, err)
		}
	}
	lex, err := ix.Lexicon()
	if err != nil {
		t.Fatalf("Lexicon() error = %v", err)
	}
	t.Cleanup(func() { lex.Close() })
	return lex
}

func TestLexiconLookup(t *testing.T) {
	lex := newTestLexicon(t, "كتب", "كتب", "درس", "قول")

	if lex.Len() != 3 {
		t.Errorf("Len() = %d, want 3", lex.Len())
	}
	if !lex.Contains("كتب") || lex.Contains("جلس") {
		t.Error("Contains() mismatch")
	}
	if n, ok := lex.Occurrences("كتب"); !ok || n != 2 {
		t.Errorf("Occurrences(كتب) = %d, %v; want 2, true", n, ok)
	}
	if _, ok := lex.Occurrences("جلس"); ok {
		t.Error("Occurrences(جلس) found")
	}
}

func TestLexiconWithPrefix(t *testing.T) {
	lex := newTestLexicon(t, "كتب", "كتم", "كذب", "درس", "قول")

	got, err := lex.WithPrefix("كت")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"كتب", "كتم"}; !slices.Equal(got, want) {
		t.Errorf("WithPrefix(كت) = %q, want %q", got, want)
	}

	all, err := lex.WithPrefix("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 || !slices.IsSorted(all) {
		t.Errorf("WithPrefix(\"\") = %q", all)
	}

	none, err := lex.WithPrefix("ز")
	if err != nil || len(none) != 0 {
		t.Errorf("WithPrefix(ز) = %q, %v", none, err)
	}
}

func TestLexiconSimilar(t *testing.T) {
	lex := newTestLexicon(t, "كتب", "كتم", "كذب", "درس")

	got, err := lex.Similar("كتب")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"كتم", "كذب"}; !slices.Equal(got, want) {
		t.Errorf("Similar(كتب) = %q, want %q", got, want)
	}

	got, err = lex.Similar("جلس")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Similar(جلس) = %q, want none", got)
	}
}

func TestEmptyLexicon(t *testing.T) {
	lex := newTestLexicon(t)
	if lex.Len() != 0 || lex.Contains("كتب") {
		t.Error("empty lexicon reports contents")
	}
	got, err := lex.WithPrefix("")
	if err != nil || len(got) != 0 {
		t.Errorf("WithPrefix on empty = %q, %v", got, err)
	}
}

func TestPrefixEnd(t *testing.T) {
	if got := prefixEnd([]byte{0x01, 0xff}); !slices.Equal(got, []byte{0x02}) {
		t.Errorf("prefixEnd = %x", got)
	}
	if got := prefixEnd([]byte{0xff}); got != nil {
		t.Errorf("prefixEnd(ff) = %x, want nil", got)
	}
}
