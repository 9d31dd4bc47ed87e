package morph

import (
	"fmt"
	"strings"
)

// Category is the top-level morphological class of a triliteral root.
type Category int

const (
	Unknown Category = iota
	Sound
	Weak
	Hamzated
	Doubled
)

var categoryNames = [...]string{
	Unknown:  "unknown",
	Sound:    "sound",
	Weak:     "weak",
	Hamzated: "hamzated",
	Doubled:  "doubled",
}

var categoryArabic = [...]string{
	Unknown:  "غير معروف",
	Sound:    "صحيح",
	Weak:     "معتل",
	Hamzated: "مهموز",
	Doubled:  "مضعف",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Arabic returns the traditional Arabic grammatical label.
func (c Category) Arabic() string {
	if c < 0 || int(c) >= len(categoryArabic) {
		return categoryArabic[Unknown]
	}
	return categoryArabic[c]
}

// Subtype refines a Category. Each subtype belongs to exactly one category.
type Subtype int

const (
	NoSubtype Subtype = iota
	SoundPerfect
	HamzaFirst
	HamzaSecond
	HamzaThird
	MultipleHamza
	DoubledRoot
	Assimilated // first radical weak
	Hollow      // second radical weak
	Defective   // third radical weak
	SeparatedDoubleWeak
	JoinedDoubleWeak
	OtherDoubleWeak
	FullyWeak
)

var subtypeNames = [...]string{
	NoSubtype:           "none",
	SoundPerfect:        "sound-perfect",
	HamzaFirst:          "hamza-first",
	HamzaSecond:         "hamza-second",
	HamzaThird:          "hamza-third",
	MultipleHamza:       "multiple-hamza",
	DoubledRoot:         "doubled",
	Assimilated:         "assimilated",
	Hollow:              "hollow",
	Defective:           "defective",
	SeparatedDoubleWeak: "separated-double-weak",
	JoinedDoubleWeak:    "joined-double-weak",
	OtherDoubleWeak:     "other-double-weak",
	FullyWeak:           "fully-weak",
}

var subtypeArabic = [...]string{
	NoSubtype:           "",
	SoundPerfect:        "صحيح سالم",
	HamzaFirst:          "مهموز الفاء",
	HamzaSecond:         "مهموز العين",
	HamzaThird:          "مهموز اللام",
	MultipleHamza:       "مهموز متعدد",
	DoubledRoot:         "مضعف",
	Assimilated:         "مثال",
	Hollow:              "أجوف",
	Defective:           "ناقص",
	SeparatedDoubleWeak: "لفيف مفروق",
	JoinedDoubleWeak:    "لفيف مقرون",
	OtherDoubleWeak:     "لفيف آخر",
	FullyWeak:           "معتل كامل",
}

func (s Subtype) String() string {
	if s < 0 || int(s) >= len(subtypeNames) {
		return "none"
	}
	return subtypeNames[s]
}

// Arabic returns the traditional Arabic grammatical label.
func (s Subtype) Arabic() string {
	if s < 0 || int(s) >= len(subtypeArabic) {
		return ""
	}
	return subtypeArabic[s]
}

// Category returns the category the subtype refines.
func (s Subtype) Category() Category {
	switch s {
	case SoundPerfect:
		return Sound
	case HamzaFirst, HamzaSecond, HamzaThird, MultipleHamza:
		return Hamzated
	case DoubledRoot:
		return Doubled
	case Assimilated, Hollow, Defective, SeparatedDoubleWeak, JoinedDoubleWeak, OtherDoubleWeak, FullyWeak:
		return Weak
	default:
		return Unknown
	}
}

// IsDoubleWeak reports whether the subtype is one of the lafif kinds.
func (s Subtype) IsDoubleWeak() bool {
	return s == SeparatedDoubleWeak || s == JoinedDoubleWeak || s == OtherDoubleWeak
}

// Analysis is the classification of one root. It is computed on demand and
// never stored.
type Analysis struct {
	Root           string
	Category       Category
	Subtype        Subtype
	WeakPositions  []int
	HamzaPositions []int
	IsDoubled      bool
	HasShadda      bool
	Description    string
}

func (a Analysis) String() string {
	return fmt.Sprintf("%s: %s (%s)", a.Root, a.Category, a.Subtype)
}

// IsWeakLetter reports whether r is one of و ي ا ى.
func IsWeakLetter(r rune) bool {
	return r == Waw || r == Ya || r == Alef || r == AlefMaqsura
}

// IsHamzaLetter reports whether r is hamza on any seat.
func IsHamzaLetter(r rune) bool {
	switch r {
	case Hamza, AlefHamzaAbove, AlefHamzaBelow, AlefMadda, WawHamza, YaHamza:
		return true
	}
	return false
}

// Classify analyses a triliteral root. Input is normalized conservatively
// with shadda expansion first; a result that is not three letters yields
// category Unknown.
func Classify(root string) Analysis {
	normalized := Normalize(root, false)
	letters := []rune(normalized)

	if len(letters) != 3 || !IsValidRoot(normalized) {
		return Analysis{
			Root:        root,
			Category:    Unknown,
			Subtype:     NoSubtype,
			Description: fmt.Sprintf("invalid root after normalization: %d letters", len(letters)),
		}
	}

	a := Analysis{
		Root:           normalized,
		IsDoubled:      letters[1] == letters[2] && !IsWeakLetter(letters[1]),
		HamzaPositions: positions(letters, IsHamzaLetter),
		WeakPositions:  positions(letters, IsWeakLetter),
		HasShadda:      strings.ContainsRune(root, Shadda),
	}
	a.Subtype, a.Description = decide(a)
	a.Category = a.Subtype.Category()
	if a.HasShadda {
		a.Description += " (contains shadda)"
	}
	return a
}

func positions(letters []rune, match func(rune) bool) []int {
	out := []int{}
	for i, r := range letters {
		if match(r) {
			out = append(out, i)
		}
	}
	return out
}

// decide applies the classification order: hamza, doubling, weakness, sound.
func decide(a Analysis) (Subtype, string) {
	if n := len(a.HamzaPositions); n > 0 {
		if n > 1 {
			return MultipleHamza, "more than one hamza in the root"
		}
		switch a.HamzaPositions[0] {
		case 0:
			return HamzaFirst, "hamza in the first radical"
		case 1:
			return HamzaSecond, "hamza in the second radical"
		default:
			return HamzaThird, "hamza in the third radical"
		}
	}

	if a.IsDoubled {
		return DoubledRoot, "second and third radicals are identical"
	}

	switch w := a.WeakPositions; len(w) {
	case 0:
		return SoundPerfect, "no weak letter, hamza or doubling"
	case 1:
		switch w[0] {
		case 0:
			return Assimilated, "weak letter in the first radical"
		case 1:
			return Hollow, "weak letter in the second radical"
		default:
			return Defective, "weak letter in the third radical"
		}
	case 2:
		switch {
		case w[0] == 0 && w[1] == 2:
			return SeparatedDoubleWeak, "weak letters in the first and third radicals"
		case w[0] == 1 && w[1] == 2:
			return JoinedDoubleWeak, "weak letters in the second and third radicals"
		default:
			return OtherDoubleWeak, "weak letters in the first and second radicals"
		}
	default:
		return FullyWeak, "every radical is a weak letter"
	}
}

// Examples returns canonical example roots per subtype.
func Examples() map[Subtype][]string {
	return map[Subtype][]string{
		SoundPerfect:        {"كتب", "جلس", "درس", "فهم", "سمع"},
		HamzaFirst:          {"أكل", "أخذ", "أمر"},
		HamzaSecond:         {"سأل", "رأى", "بئس"},
		HamzaThird:          {"قرأ", "بدأ", "ملأ"},
		Assimilated:         {"وعد", "يسر", "وجد", "وضع"},
		Hollow:              {"قال", "باع", "خاف", "نام"},
		Defective:           {"دعا", "رمى", "سعى", "غزا"},
		SeparatedDoubleWeak: {"وفى", "وقى", "وحي"},
		JoinedDoubleWeak:    {"طوى", "حيى", "سوى"},
		DoubledRoot:         {"مدّ", "شدّ", "فرّ", "حبّ"},
	}
}

// Group labels used by GroupByCategory.
const (
	GroupSound       = "sound"
	GroupHamzated    = "hamzated"
	GroupAssimilated = "assimilated"
	GroupHollow      = "hollow"
	GroupDefective   = "defective"
	GroupLafif       = "double-weak"
	GroupDoubled     = "doubled"
	GroupOther       = "other"
)

// GroupByCategory classifies every root and buckets the analyses. All group
// keys are present in the result, possibly with empty slices.
func GroupByCategory(roots []string) map[string][]Analysis {
	groups := map[string][]Analysis{
		GroupSound:       {},
		GroupHamzated:    {},
		GroupAssimilated: {},
		GroupHollow:      {},
		GroupDefective:   {},
		GroupLafif:       {},
		GroupDoubled:     {},
		GroupOther:       {},
	}

	for _, root := range roots {
		a := Classify(root)
		key := GroupOther
		switch a.Category {
		case Sound:
			key = GroupSound
		case Hamzated:
			key = GroupHamzated
		case Doubled:
			key = GroupDoubled
		case Weak:
			switch {
			case a.Subtype == Assimilated:
				key = GroupAssimilated
			case a.Subtype == Hollow:
				key = GroupHollow
			case a.Subtype == Defective:
				key = GroupDefective
			case a.Subtype.IsDoubleWeak():
				key = GroupLafif
			}
		}
		groups[key] = append(groups[key], a)
	}
	return groups
}
