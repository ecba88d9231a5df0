package tokenize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// englishProtectedTerms are Title-Case technical or proper-noun phrases
// that must never be split across a chunk boundary.
var englishProtectedTerms = []string{
	"United States",
	"New York",
	"Machine Learning",
	"Artificial Intelligence",
	"Data Science",
	"Natural Language Processing",
	"Deep Learning",
}

// englishNamePattern matches a two-token Title-Case phrase, e.g. "John Smith".
var englishNamePattern = regexp.MustCompile(`[A-Z][a-z]+\s+[A-Z][a-z]+`)

// EnglishTokenizer implements Tokenizer for English text.
type EnglishTokenizer struct{}

// NewEnglishTokenizer returns the English tokenizer.
func NewEnglishTokenizer() *EnglishTokenizer { return &EnglishTokenizer{} }

var _ Tokenizer = (*EnglishTokenizer)(nil)

// Language implements Tokenizer.
func (t *EnglishTokenizer) Language() string { return "en" }

// Normalize implements Tokenizer.
func (t *EnglishTokenizer) Normalize(text string) string {
	return collapseWhitespace(norm.NFC.String(text))
}

// Sentences implements Tokenizer.
func (t *EnglishTokenizer) Sentences(text string) []string {
	return splitSentences(text)
}

// IsProtected implements Tokenizer.
func (t *EnglishTokenizer) IsProtected(phrase string) bool {
	lower := strings.ToLower(phrase)
	for _, term := range englishProtectedTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return englishNamePattern.MatchString(phrase)
}

// Separators implements Tokenizer.
func (t *EnglishTokenizer) Separators() []string { return defaultSeparators }
