package tokenize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// defaultSentenceSplit is a plain regex split on runs of sentence-ending
// punctuation, with no sentence-boundary heuristics.
var defaultSentenceSplit = regexp.MustCompile(`[.!?]+`)

// DefaultTokenizer is the fallback for languages with no dedicated
// implementation. It performs no protected-phrase handling.
type DefaultTokenizer struct{}

// NewDefaultTokenizer returns the fallback tokenizer.
func NewDefaultTokenizer() *DefaultTokenizer { return &DefaultTokenizer{} }

var _ Tokenizer = (*DefaultTokenizer)(nil)

// Language implements Tokenizer.
func (t *DefaultTokenizer) Language() string { return "unknown" }

// Normalize implements Tokenizer.
func (t *DefaultTokenizer) Normalize(text string) string {
	return collapseWhitespace(norm.NFC.String(text))
}

// Sentences implements Tokenizer.
func (t *DefaultTokenizer) Sentences(text string) []string {
	var sentences []string
	for _, s := range defaultSentenceSplit.Split(text, -1) {
		trimmed := strings.TrimSpace(s)
		if utf8.RuneCountInString(trimmed) >= 3 {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// IsProtected implements Tokenizer. The default tokenizer never protects a
// phrase from being split.
func (t *DefaultTokenizer) IsProtected(phrase string) bool { return false }

// Separators implements Tokenizer.
func (t *DefaultTokenizer) Separators() []string { return defaultSeparators }
