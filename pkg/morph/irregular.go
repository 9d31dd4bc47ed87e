package morph

// Pattern names that carry root-type corrections.
const (
	PatternActiveParticiple  = "فاعل"
	PatternPassiveParticiple = "مفعول"
	PatternPresent           = "يفعل"
	PatternPast              = "فعل"
)

// irregularRule rewrites the regular form for one (subtype, pattern) pair.
// r holds the three normalized radicals.
type irregularRule func(r [3]rune) string

var irregularRules = map[Subtype]map[string]irregularRule{
	Hollow: {
		PatternActiveParticiple: func(r [3]rune) string {
			return string([]rune{r[0], Alef, YaHamza, r[2]})
		},
		PatternPresent: func(r [3]rune) string {
			return string([]rune{Ya, r[0], Waw, r[2]})
		},
		PatternPassiveParticiple: func(r [3]rune) string {
			return string([]rune{'م', r[0], Waw, r[2]})
		},
		PatternPast: func(r [3]rune) string {
			return string([]rune{r[0], Alef, r[2]})
		},
	},
	Defective: {
		PatternActiveParticiple: func(r [3]rune) string {
			return string([]rune{r[0], Alef, r[1], Ya})
		},
		PatternPresent: func(r [3]rune) string {
			return string([]rune{Ya, r[0], r[1], Ya})
		},
		PatternPassiveParticiple: func(r [3]rune) string {
			last := AlefMaqsura
			if r[2] == Waw || r[2] == Alef {
				last = Waw
			}
			return string([]rune{'م', r[0], r[1], last})
		},
		PatternPast: func(r [3]rune) string {
			last := AlefMaqsura
			if r[2] == Waw {
				last = Alef
			}
			return string([]rune{r[0], r[1], last})
		},
	},
	HamzaThird: {
		PatternActiveParticiple: func(r [3]rune) string {
			return string([]rune{r[0], Alef, r[1], YaHamza})
		},
	},
	HamzaSecond: {
		PatternActiveParticiple: func(r [3]rune) string {
			return string([]rune{r[0], Alef, YaHamza, r[2]})
		},
	},
	HamzaFirst: {
		PatternActiveParticiple: func(r [3]rune) string {
			return string([]rune{AlefMadda, r[1], r[2]})
		},
	},
	DoubledRoot: {
		PatternActiveParticiple: func(r [3]rune) string {
			return string([]rune{r[0], Alef, r[1]})
		},
	},
}

// GenerateWithRootType applies template to root and then corrects the
// result for the root's subtype when patternName has a known irregular
// form. Otherwise the regular substitution is returned unchanged.
func GenerateWithRootType(root, template, patternName string) (string, error) {
	word, err := ApplyPattern(root, template)
	if err != nil {
		return "", err
	}

	a := Classify(root)
	if a.Category == Unknown {
		return word, nil
	}
	rule, ok := irregularRules[a.Subtype][patternName]
	if !ok {
		return word, nil
	}

	var radicals [3]rune
	copy(radicals[:], []rune(a.Root))
	return rule(radicals), nil
}

// HasIrregularForm reports whether a correction exists for the subtype and
// pattern name.
func HasIrregularForm(s Subtype, patternName string) bool {
	_, ok := irregularRules[s][patternName]
	return ok
}
