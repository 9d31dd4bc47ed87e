package morph

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"testing"
)

var testPatterns = map[string]Pattern{
	"فاعل":  {Template: "1ا23", Description: "active participle", Example: "كاتب"},
	"مفعول": {Template: "م12و3", Description: "passive participle", Example: "مكتوب"},
	"فعال":  {Template: "12ا3", Description: "verbal noun", Example: "كتاب"},
	"يفعل":  {Template: "ي123", Description: "present tense", Example: "يكتب"},
	"فعل":   {Template: "123", Description: "past tense", Example: "كتب"},
}

var testRoots = []string{"كتب", "درس", "قول", "رمى", "مدّ", "قرأ", "أكل"}

func newTestEngine(t testing.TB, cfg Config) *Engine {
	t.Helper()
	e := NewEngine(NewIndex(nil), NewPatternStore(DefaultPatternCapacity, nil), cfg)
	if n := e.LoadRoots(testRoots); n != len(testRoots) {
		t.Fatalf("LoadRoots loaded %d, want %d", n, len(testRoots))
	}
	e.LoadPatterns(testPatterns)
	return e
}

func TestApplyPattern(t *testing.T) {
	tests := []struct {
		root     string
		template string
		expected string
	}{
		{"كتب", "1ا23", "كاتب"},
		{"كتب", "م12و3", "مكتوب"},
		{"كتب", "ا1ت2ا3", "اكتتاب"},
		{"مدّ", "1ا23", "مادد"},
		{"درس", "1233", "درسس"},
		{"درس", "م1ا2ة3", "مدارةس"},
	}

	for _, tt := range tests {
		result, err := ApplyPattern(tt.root, tt.template)
		if err != nil {
			t.Errorf("ApplyPattern(%q, %q) error = %v", tt.root, tt.template, err)
			continue
		}
		if result != tt.expected {
			t.Errorf("ApplyPattern(%q, %q) = %q, want %q", tt.root, tt.template, result, tt.expected)
		}
	}

	for _, root := range []string{"كتاب", "كت", ""} {
		if _, err := ApplyPattern(root, "1ا23"); !errors.Is(err, ErrInvalidRoot) {
			t.Errorf("ApplyPattern(%q) error = %v, want ErrInvalidRoot", root, err)
		}
	}
}

func TestFindPatternMatch(t *testing.T) {
	tests := []struct {
		word     string
		root     string
		template string
		expected bool
	}{
		{"كاتب", "كتب", "1ا23", true},
		{"كَاتِبٌ", "كتب", "1ا23", true},
		{"ساال", "سأل", "1ا23", true},
		{"مكتبه", "كتب", "م123ة", true},
		{"مكتبه", "كتب", "م12ة3", false},
		{"", "كتب", "", false},
		{"مكتوب", "كتب", "1ا23", false},
		{"كاتب", "كتاب", "1ا23", false},
		{"xyz", "abc", "123", false},
	}

	for _, tt := range tests {
		result := FindPatternMatch(tt.word, tt.root, tt.template)
		if result != tt.expected {
			t.Errorf("FindPatternMatch(%q, %q, %q) = %v, want %v", tt.word, tt.root, tt.template, result, tt.expected)
		}
	}
}

func TestApplyMatchRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	roots := append(randomRoots(r, 200), "قرأ", "سأل", "مدّ", "رمى", "آمن", "ءءء")
	templates := []string{"123", "1ا23", "م12و3", "ا1ت2ا3", "12ا3ة", "ت1ا2ي3", "1233", "م1ى2أ3"}

	for _, root := range roots {
		for _, tpl := range templates {
			word, err := ApplyPattern(root, tpl)
			if err != nil {
				t.Fatalf("ApplyPattern(%q, %q) error = %v", root, tpl, err)
			}
			if !FindPatternMatch(word, root, tpl) {
				t.Errorf("FindPatternMatch(%q, %q, %q) = false after ApplyPattern", word, root, tpl)
			}
		}
	}
}

func TestGenerateWordRecordsDerivative(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	g, err := e.GenerateWord("كتب", "فاعل")
	if err != nil {
		t.Fatalf("GenerateWord() error = %v", err)
	}
	if g.Word != "كاتب" || !g.Valid || !g.Recorded || g.Frequency != 1 {
		t.Fatalf("GenerateWord() = %+v", g)
	}
	if g.Template != "1ا23" || g.Description != "active participle" || g.Example != "كاتب" {
		t.Errorf("pattern metadata not carried: %+v", g)
	}

	g, err = e.GenerateWord("كتب", "فاعل")
	if err != nil || g.Frequency != 2 {
		t.Fatalf("second GenerateWord() = %+v, %v; want frequency 2", g, err)
	}

	derivs, err := e.Derivatives("كتب")
	if err != nil {
		t.Fatal(err)
	}
	want := []Derivative{{Word: "كاتب", Pattern: "فاعل", Frequency: 2}}
	if !slices.Equal(derivs, want) {
		t.Errorf("Derivatives() = %+v, want %+v", derivs, want)
	}
}

func TestGenerateWordErrors(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	if _, err := e.GenerateWord("كتاب", "فاعل"); !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("invalid root error = %v, want ErrInvalidRoot", err)
	}
	if _, err := e.GenerateWord("كتب", "missing"); !errors.Is(err, ErrPatternNotFound) {
		t.Errorf("unknown pattern error = %v, want ErrPatternNotFound", err)
	}

	g, err := e.GenerateWord("جلس", "فاعل")
	if err != nil {
		t.Fatal(err)
	}
	if g.Word != "جالس" || !g.Valid || g.Recorded {
		t.Errorf("unstored root generation = %+v; want valid, not recorded", g)
	}
	if _, err := e.Derivatives("جلس"); !errors.Is(err, ErrRootNotFound) {
		t.Errorf("Derivatives(unstored) = %v, want ErrRootNotFound", err)
	}
}

func TestPatternWithoutTemplate(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.LoadPatterns(map[string]Pattern{
		"broken": {Description: "no template"},
		"blank":  {Template: "  "},
	})

	for _, name := range []string{"broken", "blank"} {
		if g, err := e.GenerateWord("كتب", name); !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("GenerateWord(%q) = %+v, %v; want ErrInvalidTemplate", name, g, err)
		}
		if g, err := e.GenerateIrregular("قول", name); !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("GenerateIrregular(%q) = %+v, %v; want ErrInvalidTemplate", name, g, err)
		}
	}

	for _, word := range []string{"hello", "123", ""} {
		if res := e.ValidateWord(word, "كتب"); res.Valid {
			t.Errorf("ValidateWord(%q, كتب) = %+v, want invalid", word, res)
		}
		if res := e.ValidateWord(word, ""); res.Valid {
			t.Errorf("ValidateWord(%q) = %+v, want invalid", word, res)
		}
	}

	gens, err := e.GenerateAll("كتب")
	if err != nil {
		t.Fatal(err)
	}
	if len(gens) != len(testPatterns) {
		t.Errorf("GenerateAll() returned %d results, want %d", len(gens), len(testPatterns))
	}

	derivs, err := e.Derivatives("كتب")
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range derivs {
		if d.Word == "" || d.Pattern == "broken" || d.Pattern == "blank" {
			t.Errorf("derivative recorded from a pattern without template: %+v", d)
		}
	}
}

func TestGenerateAll(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	gens, err := e.GenerateAll("كتب")
	if err != nil {
		t.Fatal(err)
	}
	if len(gens) != len(testPatterns) {
		t.Fatalf("GenerateAll() returned %d results, want %d", len(gens), len(testPatterns))
	}
	words := map[string]string{}
	for _, g := range gens {
		words[g.Pattern] = g.Word
	}
	for name, p := range testPatterns {
		if words[name] != p.Example {
			t.Errorf("pattern %s produced %q, want %q", name, words[name], p.Example)
		}
	}
	if s := e.RootStats("كتب"); s.DerivativeCount != len(testPatterns) {
		t.Errorf("DerivativeCount = %d, want %d", s.DerivativeCount, len(testPatterns))
	}

	if _, err := e.GenerateAll("كت"); !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("GenerateAll(invalid) = %v, want ErrInvalidRoot", err)
	}
}

func TestGenerateIrregular(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	g, err := e.GenerateIrregular("قول", "فاعل")
	if err != nil {
		t.Fatal(err)
	}
	if g.Word != "قائل" || !g.Irregular || !g.Recorded {
		t.Errorf("GenerateIrregular(قول, فاعل) = %+v", g)
	}

	g, err = e.GenerateIrregular("كتب", "فاعل")
	if err != nil {
		t.Fatal(err)
	}
	if g.Word != "كاتب" || g.Irregular {
		t.Errorf("GenerateIrregular(كتب, فاعل) = %+v; want regular كاتب", g)
	}
}

func TestValidateWordWithRoot(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	res := e.ValidateWord("مَكْتُوب", "كتب")
	if !res.Valid || res.Pattern != "مفعول" || res.Template != "م12و3" {
		t.Fatalf("ValidateWord(مكتوب, كتب) = %+v", res)
	}
	if derivs, _ := e.Derivatives("كتب"); len(derivs) != 1 || derivs[0].Word != "مكتوب" {
		t.Errorf("validation did not record the derivative: %+v", derivs)
	}

	res = e.ValidateWord("قائل", "قول")
	if !res.Valid || res.Pattern != "فاعل" || !res.Matches[0].Irregular {
		t.Errorf("ValidateWord(قائل, قول) = %+v", res)
	}

	tests := []struct {
		word    string
		root    string
		message string
	}{
		{"كاتب", "كتاب", "invalid root"},
		{"جالس", "جلس", "not found"},
		{"مدرسة", "كتب", "does not belong"},
	}
	for _, tt := range tests {
		res := e.ValidateWord(tt.word, tt.root)
		if res.Valid || !strings.Contains(res.Message, tt.message) {
			t.Errorf("ValidateWord(%q, %q) = %+v; want invalid with %q", tt.word, tt.root, res, tt.message)
		}
	}
}

func TestValidateWordAllRoots(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	res := e.ValidateWord("مكتوب", "")
	if !res.Valid || len(res.Matches) != 1 {
		t.Fatalf("ValidateWord(مكتوب) = %+v", res)
	}
	if m := res.Matches[0]; m.Root != "كتب" || m.Pattern != "مفعول" {
		t.Errorf("match = %+v", m)
	}
	if derivs, _ := e.Derivatives("كتب"); len(derivs) != 0 {
		t.Errorf("unrooted validation recorded derivatives: %+v", derivs)
	}

	res = e.ValidateWord("قائل", "")
	if !res.Valid || res.Matches[0].Root != "قول" || !res.Matches[0].Irregular {
		t.Errorf("ValidateWord(قائل) = %+v", res)
	}
}

func TestValidateWordCollectsEveryMatch(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.LoadPatterns(map[string]Pattern{"ماضي": {Template: "123"}})

	res := e.ValidateWord("كتب", "")
	if len(res.Matches) != 2 {
		t.Fatalf("Matches = %+v, want both same-template patterns", res.Matches)
	}
	names := []string{res.Matches[0].Pattern, res.Matches[1].Pattern}
	want := []string{"فعل", "ماضي"}
	slices.Sort(names)
	slices.Sort(want)
	if !slices.Equal(names, want) {
		t.Errorf("matched patterns = %q, want %q", names, want)
	}
}

func TestValidateWordFallback(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	res := e.ValidateWord("كتبت", "")
	if res.Valid {
		t.Fatalf("ValidateWord(كتبت) = %+v, want invalid", res)
	}
	if !slices.Equal(res.PossibleRoots, []string{"كبت", "كتب", "تبت"}) {
		t.Errorf("PossibleRoots = %q", res.PossibleRoots)
	}
	if !slices.Contains(res.Suggestions, "كتب") {
		t.Errorf("Suggestions = %q, want كتب", res.Suggestions)
	}
	if !strings.Contains(res.Message, "possible roots") {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestPossibleRoots(t *testing.T) {
	tests := []struct {
		word     string
		expected []string
	}{
		{"كتب", []string{"كتب"}},
		{"مكتوب", []string{"متب", "مكت", "توب"}},
		{"كِتَاب", []string{"كاب", "كتا", "تاب"}},
		{"كت", nil},
		{"", nil},
	}

	for _, tt := range tests {
		result := PossibleRoots(tt.word)
		if !slices.Equal(result, tt.expected) {
			t.Errorf("PossibleRoots(%q) = %q, want %q", tt.word, result, tt.expected)
		}
	}
}

func TestAnalyzeText(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	results := e.AnalyzeText("الكاتب: كاتب، مكتوب! 42 hello")
	if len(results) != 3 {
		t.Fatalf("AnalyzeText returned %d words, want 3: %+v", len(results), results)
	}
	if results[0].Valid {
		t.Errorf("%q should not validate", results[0].Token.Text)
	}
	for _, r := range results[1:] {
		if !r.Valid {
			t.Errorf("%q should validate: %s", r.Token.Text, r.Message)
		}
	}
	if results[2].Token.Text != "مكتوب" || results[2].Token.Start != 14 {
		t.Errorf("last token = %+v", results[2].Token)
	}
}

func TestPatternCRUD(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	msg, err := e.AddPattern("افتعال", Pattern{Template: "ا1ت2ا3"})
	if err != nil || !strings.Contains(msg, "added") {
		t.Fatalf("AddPattern() = %q, %v", msg, err)
	}
	if _, err := e.AddPattern("افتعال", Pattern{Template: "ا1ت2ا3"}); !errors.Is(err, ErrPatternExists) {
		t.Errorf("duplicate AddPattern() = %v", err)
	}

	tpl := "ا1ت2ا3ة"
	if _, err := e.EditPattern("افتعال", PatternUpdate{Template: &tpl}); err != nil {
		t.Fatalf("EditPattern() error = %v", err)
	}
	g, err := e.GenerateWord("كتب", "افتعال")
	if err != nil || g.Word != "اكتتابة" {
		t.Errorf("GenerateWord after edit = %+v, %v", g, err)
	}

	if msg, err := e.DeletePattern("افتعال"); err != nil || !strings.Contains(msg, "deleted") {
		t.Errorf("DeletePattern() = %q, %v", msg, err)
	}
	if _, err := e.DeletePattern("افتعال"); !errors.Is(err, ErrPatternNotFound) {
		t.Errorf("second DeletePattern() = %v", err)
	}
}

func TestValidatePatternTemplate(t *testing.T) {
	if ok, msg := ValidatePatternTemplate("1ا2و3"); !ok {
		t.Errorf("ValidatePatternTemplate(1ا2و3) = false, %q", msg)
	}
	ok, msg := ValidatePatternTemplate("12")
	if ok || msg != "missing root positions: 3" {
		t.Errorf("ValidatePatternTemplate(12) = %v, %q", ok, msg)
	}
}

func TestImportPatterns(t *testing.T) {
	e := NewEngine(nil, nil, DefaultConfig())

	imported, err := e.ImportPatterns(map[string]Pattern{
		"فاعل":  {Template: "1ا23"},
		"مفعول": {Template: "م12و3"},
		"bad1":  {Template: "12"},
		"bad2":  {Template: "1x23"},
		"bad3":  {Template: ""},
		"bad4":  {Template: "1245"},
		"bad5":  {Template: "3"},
	})
	if imported != 2 {
		t.Errorf("imported = %d, want 2", imported)
	}
	if err == nil {
		t.Fatal("ImportPatterns() error = nil, want rejections")
	}
	lines := strings.Split(err.Error(), "\n")
	if len(lines) != 4 || lines[3] != "2 more rejected" {
		t.Errorf("error summary = %q", lines)
	}
	if !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("summary does not wrap ErrInvalidTemplate")
	}

	imported, err = e.ImportPatterns(map[string]Pattern{"فعال": {Template: "12ا3"}})
	if imported != 1 || err != nil {
		t.Errorf("clean import = %d, %v", imported, err)
	}
}

func TestRootStats(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	for i := range 12 {
		e.Roots().AddDerivative("كتب", fmt.Sprintf("w%d", i), "p")
	}

	s := e.RootStats("كتب")
	if !s.Exists || s.DerivativeCount != 12 || len(s.Derivatives) != maxStatsDerivatives {
		t.Errorf("RootStats(كتب) = %+v", s)
	}
	if s.Analysis.Category != Sound {
		t.Errorf("Analysis = %v", s.Analysis)
	}
	if s := e.RootStats("جلس"); s.Exists {
		t.Errorf("RootStats(جلس) = %+v, want missing", s)
	}
}

func TestEngineStats(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.GenerateWord("كتب", "فاعل")
	e.GenerateWord("كتب", "مفعول")
	e.GenerateWord("درس", "فاعل")

	s := e.Stats()
	if s.Roots != len(testRoots) || s.Patterns != len(testPatterns) {
		t.Errorf("Roots/Patterns = %d/%d", s.Roots, s.Patterns)
	}
	if s.Derivatives != 3 || s.RootsWithDerivatives != 2 {
		t.Errorf("Derivatives/RootsWithDerivatives = %d/%d, want 3/2", s.Derivatives, s.RootsWithDerivatives)
	}
	if s.TreeHeight != e.Roots().Height() || s.TreeHeight == 0 {
		t.Errorf("TreeHeight = %d", s.TreeHeight)
	}
	want := float64(len(testPatterns)) / DefaultPatternCapacity
	if s.LoadFactor != want {
		t.Errorf("LoadFactor = %v, want %v", s.LoadFactor, want)
	}
}

func TestRemoveAndClearDerivatives(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.GenerateWord("كتب", "فاعل")
	e.GenerateWord("كتب", "مفعول")

	if e.RemoveDerivative("كتاب", "كاتب", "") {
		t.Error("RemoveDerivative(invalid root) = true")
	}
	if !e.RemoveDerivative("كتب", "كاتب", "فاعل") {
		t.Error("RemoveDerivative() = false")
	}
	if !e.ClearDerivatives("كتب") {
		t.Error("ClearDerivatives() = false")
	}
	if derivs, _ := e.Derivatives("كتب"); len(derivs) != 0 {
		t.Errorf("Derivatives() after clear = %+v", derivs)
	}
}

func TestSearchAndListRoots(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	if _, ok := e.SearchRoot("مدد"); !ok {
		t.Error("SearchRoot(مدد) not found")
	}
	roots := e.ListRoots()
	if len(roots) != len(testRoots) || !slices.IsSorted(roots) {
		t.Errorf("ListRoots() = %q", roots)
	}
	if a := e.Classify("قال"); a.Subtype != Hollow {
		t.Errorf("Classify(قال) = %v", a)
	}
}

func TestEngineCache(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	if !e.CacheEnabled() {
		t.Fatal("cache should be enabled")
	}
	e.GenerateWord("كتب", "فاعل")
	e.GenerateWord("كتب", "فاعل")
	if e.CacheSize() != 1 {
		t.Errorf("CacheSize() = %d, want 1", e.CacheSize())
	}
	e.ClearCache()
	if e.CacheSize() != 0 {
		t.Errorf("CacheSize() after clear = %d", e.CacheSize())
	}

	noCache := newTestEngine(t, Config{})
	if noCache.CacheEnabled() || noCache.CacheSize() != 0 {
		t.Error("cache should be disabled")
	}
	g, err := noCache.GenerateWord("كتب", "فاعل")
	if err != nil || g.Word != "كاتب" {
		t.Errorf("uncached GenerateWord() = %+v, %v", g, err)
	}
}

func TestEngineConcurrentUse(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	const workers, rounds = 8, 50
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				if _, err := e.GenerateWord("كتب", "فاعل"); err != nil {
					t.Error(err)
					return
				}
				e.ValidateWord("مكتوب", "")
				e.Roots().Insert(testRoots[w%len(testRoots)])
				e.Stats()
			}
		}()
	}
	wg.Wait()

	derivs, _ := e.Derivatives("كتب")
	if len(derivs) != 1 || derivs[0].Frequency != workers*rounds {
		t.Errorf("Derivatives() = %+v, want one with frequency %d", derivs, workers*rounds)
	}
}
