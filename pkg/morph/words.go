package morph

import "unicode"

// TokenType tells words from the runs of text between them.
type TokenType int

const (
	TokenWord TokenType = iota
	TokenSeparator
)

// RawToken is a span of unnormalized input. Start and End are rune offsets,
// End exclusive.
type RawToken struct {
	Text  string
	Type  TokenType
	Start int
	End   int
}

// inWord reports whether r continues a word. Harakat and shadda are
// nonspacing marks, so a vowelled word is not broken at its diacritics.
func inWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r)
}

func classOf(r rune) TokenType {
	if inWord(r) {
		return TokenWord
	}
	return TokenSeparator
}

// SplitWords cuts text into alternating word and separator tokens that
// together cover the whole input.
func SplitWords(text string) []RawToken {
	var tokens []RawToken
	letters := []rune(text)
	for start := 0; start < len(letters); {
		class := classOf(letters[start])
		end := start + 1
		for end < len(letters) && classOf(letters[end]) == class {
			end++
		}
		tokens = append(tokens, RawToken{
			Text:  string(letters[start:end]),
			Type:  class,
			Start: start,
			End:   end,
		})
		start = end
	}
	return tokens
}

// Words returns the word tokens of text.
func Words(text string) []string {
	var words []string
	for _, tok := range SplitWords(text) {
		if tok.Type == TokenWord {
			words = append(words, tok.Text)
		}
	}
	return words
}
