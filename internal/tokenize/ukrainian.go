package tokenize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ukrainianCompoundTerms are hyphenated compounds that must survive
// normalization intact; hyphen variants (regular, non-breaking, en/em dash)
// are folded back to a plain hyphen.
var ukrainianCompoundTerms = []string{
	"загально-державний",
	"державно-приватний",
	"державно-приватне",
	"науково-технічний",
	"інформаційно-комунікаційний",
	"навчально-методичний",
	"організаційно-правовий",
	"адміністративно-територіальний",
	"соціально-економічний",
	"культурно-історичний",
}

// ukrainianProtectedNames must never be split across a chunk boundary.
var ukrainianProtectedNames = []string{
	"Тарас Шевченко",
	"Іван Франко",
	"Леся Українка",
	"Михайло Грушевський",
	"Володимир Великий",
}

// ukrainianNamePattern matches a two-token Title-Case Cyrillic name, e.g.
// "Михайло Грушевський".
var ukrainianNamePattern = regexp.MustCompile(`[А-ЯІЇЄҐ][а-яіїєґ]+\s+[А-ЯІЇЄҐ][а-яіїєґ]+`)

// hyphenVariants is substituted back to a plain ASCII hyphen before
// matching compound terms, so visually-identical dash characters in
// source text don't defeat the fixed compound-term list.
var hyphenVariants = strings.NewReplacer(
	"‐", "-", // hyphen
	"‑", "-", // non-breaking hyphen
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
)

// UkrainianTokenizer implements Tokenizer for Ukrainian text.
type UkrainianTokenizer struct{}

// NewUkrainianTokenizer returns the Ukrainian tokenizer.
func NewUkrainianTokenizer() *UkrainianTokenizer { return &UkrainianTokenizer{} }

var _ Tokenizer = (*UkrainianTokenizer)(nil)

// Language implements Tokenizer.
func (t *UkrainianTokenizer) Language() string { return "uk" }

// Normalize implements Tokenizer. Dash variants (non-breaking hyphen, en
// dash, em dash) are folded to a plain hyphen so compound terms spelled
// with any of them still match the fixed compound-term list.
func (t *UkrainianTokenizer) Normalize(text string) string {
	normalized := norm.NFC.String(text)
	normalized = collapseWhitespace(normalized)
	return hyphenVariants.Replace(normalized)
}

// Sentences implements Tokenizer.
func (t *UkrainianTokenizer) Sentences(text string) []string {
	return splitSentences(text)
}

// IsProtected implements Tokenizer.
func (t *UkrainianTokenizer) IsProtected(phrase string) bool {
	lower := strings.ToLower(phrase)

	for _, name := range ukrainianProtectedNames {
		if strings.Contains(lower, strings.ToLower(name)) {
			return true
		}
	}
	for _, term := range ukrainianCompoundTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return ukrainianNamePattern.MatchString(phrase)
}

// Separators implements Tokenizer.
func (t *UkrainianTokenizer) Separators() []string { return defaultSeparators }
