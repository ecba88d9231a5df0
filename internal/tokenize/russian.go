package tokenize

import "golang.org/x/text/unicode/norm"

// RussianTokenizer implements Tokenizer for Russian text. It applies
// normalization and sentence splitting only; it has no protected terms
// beyond the defaults.
type RussianTokenizer struct{}

// NewRussianTokenizer returns the Russian tokenizer.
func NewRussianTokenizer() *RussianTokenizer { return &RussianTokenizer{} }

var _ Tokenizer = (*RussianTokenizer)(nil)

// Language implements Tokenizer.
func (t *RussianTokenizer) Language() string { return "ru" }

// Normalize implements Tokenizer.
func (t *RussianTokenizer) Normalize(text string) string {
	return collapseWhitespace(norm.NFC.String(text))
}

// Sentences implements Tokenizer.
func (t *RussianTokenizer) Sentences(text string) []string {
	return splitSentences(text)
}

// IsProtected implements Tokenizer. Russian has no protected-phrase set.
func (t *RussianTokenizer) IsProtected(phrase string) bool { return false }

// Separators implements Tokenizer.
func (t *RussianTokenizer) Separators() []string { return defaultSeparators }
