package morph

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters with special roles in normalization and classification.
const (
	Hamza          = '\u0621' // ء
	AlefMadda      = '\u0622' // آ
	AlefHamzaAbove = '\u0623' // أ
	WawHamza       = '\u0624' // ؤ
	AlefHamzaBelow = '\u0625' // إ
	YaHamza        = '\u0626' // ئ
	Alef           = '\u0627' // ا
	TaMarbuta      = '\u0629' // ة
	Tatweel        = '\u0640'
	Ha             = '\u0647' // ه
	Waw            = '\u0648' // و
	AlefMaqsura    = '\u0649' // ى
	Ya             = '\u064A' // ي
	Shadda         = '\u0651'
	AlefWasla      = '\u0671' // ٱ
)

// alphabet is the set of letters accepted in roots and pattern templates.
var alphabet = map[rune]struct{}{}

func init() {
	for _, r := range "ابتثجحخدذرزسشصضطظعغفقكلمنهوي" + "ءآأإئؤة" + "ى" {
		alphabet[r] = struct{}{}
	}
}

// IsArabicLetter reports whether r belongs to the root/template alphabet.
func IsArabicLetter(r rune) bool {
	_, ok := alphabet[r]
	return ok
}

// NormalizerFunc defines a single normalization step.
type NormalizerFunc func(string) string

// NormalizerConfig toggles the steps of a Normalizer pipeline.
// Steps always run in declaration order.
type NormalizerConfig struct {
	ExpandShadda          bool
	FoldPresentationForms bool
	StripDiacritics       bool
	FoldVariants          bool
	FoldHamza             bool
	DropNonArabic         bool
}

// Normalizer applies a configurable pipeline of normalization steps.
type Normalizer struct {
	steps []NormalizerFunc
}

// NewNormalizer creates a normalizer with the steps enabled in cfg.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	var steps []NormalizerFunc
	if cfg.ExpandShadda {
		steps = append(steps, ExpandShadda)
	}
	if cfg.FoldPresentationForms {
		steps = append(steps, FoldPresentationForms)
	}
	if cfg.StripDiacritics {
		steps = append(steps, StripDiacritics)
	}
	if cfg.FoldVariants {
		steps = append(steps, FoldVariants)
	}
	if cfg.FoldHamza {
		steps = append(steps, FoldHamza)
	}
	if cfg.DropNonArabic {
		steps = append(steps, DropNonArabic)
	}
	return &Normalizer{steps: steps}
}

// NewNormalizerWithSteps creates a normalizer with a custom pipeline.
func NewNormalizerWithSteps(steps ...NormalizerFunc) *Normalizer {
	return &Normalizer{steps: steps}
}

// Normalize applies all configured steps in order.
func (n *Normalizer) Normalize(s string) string {
	for _, step := range n.steps {
		s = step(s)
	}
	return s
}

// DefaultNormalizerConfig returns the pipeline used for root identity:
// hamza-bearing letters are preserved.
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		ExpandShadda:          true,
		FoldPresentationForms: true,
		StripDiacritics:       true,
		FoldVariants:          true,
		DropNonArabic:         true,
	}
}

var (
	conservative         = NewNormalizer(DefaultNormalizerConfig())
	aggressive           = NewNormalizer(withHamza(DefaultNormalizerConfig()))
	conservativeNoShadda = NewNormalizer(withoutShadda(DefaultNormalizerConfig()))
	aggressiveNoShadda   = NewNormalizer(withoutShadda(withHamza(DefaultNormalizerConfig())))
)

func withHamza(cfg NormalizerConfig) NormalizerConfig {
	cfg.FoldHamza = true
	return cfg
}

func withoutShadda(cfg NormalizerConfig) NormalizerConfig {
	cfg.ExpandShadda = false
	return cfg
}

// Normalize canonicalizes Arabic text with shadda expansion.
// Aggressive mode also folds hamza-bearing letters to their base letters.
func Normalize(text string, aggressiveMode bool) string {
	return NormalizeWith(text, aggressiveMode, true)
}

// NormalizeWith is Normalize with shadda expansion made optional. Without
// expansion the shadda is stripped like any other diacritic.
func NormalizeWith(text string, aggressiveMode, expandShadda bool) string {
	if text == "" {
		return ""
	}
	switch {
	case aggressiveMode && expandShadda:
		return aggressive.Normalize(text)
	case aggressiveMode:
		return aggressiveNoShadda.Normalize(text)
	case expandShadda:
		return conservative.Normalize(text)
	default:
		return conservativeNoShadda.Normalize(text)
	}
}

// IsValidRoot reports whether s is exactly three alphabet letters once
// shadda is expanded. Diacritics are not stripped here.
func IsValidRoot(s string) bool {
	if s == "" {
		return false
	}
	expanded := []rune(ExpandShadda(s))
	if len(expanded) != 3 {
		return false
	}
	for _, r := range expanded {
		if !IsArabicLetter(r) {
			return false
		}
	}
	return true
}

// NormalizeRoot returns the canonical key for a root: conservative
// normalization with shadda expansion. ok is false if the result is not a
// valid root.
func NormalizeRoot(root string) (key string, ok bool) {
	key = Normalize(root, false)
	return key, IsValidRoot(key)
}

// ExpandShadda replaces every shadda with a second copy of the letter it
// marks. Vowel marks between the letter and the shadda are kept in place.
// A shadda with no preceding letter is dropped.
func ExpandShadda(s string) string {
	if !strings.ContainsRune(s, Shadda) {
		return s
	}
	var result strings.Builder
	result.Grow(len(s) + 2)
	var last rune
	for _, r := range s {
		switch {
		case r == Shadda:
			if last != 0 {
				result.WriteRune(last)
			}
		case isMark(r):
			result.WriteRune(r)
		default:
			last = r
			result.WriteRune(r)
		}
	}
	return result.String()
}

// FoldPresentationForms applies NFKC, mapping Arabic presentation forms
// (U+FB50–U+FEFF) to base letters and composing decomposed hamza.
func FoldPresentationForms(s string) string {
	return norm.NFKC.String(s)
}

// StripDiacritics removes Arabic combining marks and tatweel.
func StripDiacritics(s string) string {
	result, _, err := transform.String(runes.Remove(runes.Predicate(isDiacritic)), s)
	if err != nil {
		return s
	}
	return result
}

// variantFolds map presentation variants that carry no root identity.
var variantFolds = map[rune]rune{
	AlefMadda:      Alef,
	AlefHamzaBelow: Alef,
	AlefWasla:      Alef,
	AlefMaqsura:    Ya,
	TaMarbuta:      Ha,
}

// hamzaFolds map hamza-bearing letters to their seats.
var hamzaFolds = map[rune]rune{
	AlefHamzaAbove: Alef,
	WawHamza:       Waw,
	YaHamza:        Ya,
}

// FoldVariants folds alef variants to alef, alef-maqsura to ya and
// ta-marbuta to ha.
func FoldVariants(s string) string {
	return foldWith(s, variantFolds)
}

// FoldHamza folds hamza-bearing letters to their base letters.
func FoldHamza(s string) string {
	return foldWith(s, hamzaFolds)
}

func foldWith(s string, table map[rune]rune) string {
	result, _, err := transform.String(runes.Map(func(r rune) rune {
		if folded, ok := table[r]; ok {
			return folded
		}
		return r
	}), s)
	if err != nil {
		return s
	}
	return result
}

// DropNonArabic removes everything outside the Arabic block except
// whitespace, then trims.
func DropNonArabic(s string) string {
	result, _, err := transform.String(runes.Remove(runes.Predicate(func(r rune) bool {
		return !inArabicBlock(r) && !unicode.IsSpace(r)
	})), s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(result)
}

func inArabicBlock(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF
}

func isMark(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

func isDiacritic(r rune) bool {
	return r == Tatweel || (inArabicBlock(r) && isMark(r))
}
