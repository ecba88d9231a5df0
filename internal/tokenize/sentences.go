package tokenize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// sentenceBoundary matches a run of sentence-terminating punctuation
// followed by whitespace (or end of string), capturing the terminator so
// it stays attached to the sentence that precedes it.
var sentenceBoundary = regexp.MustCompile(`([.!?]+)(\s+|$)`)

// splitSentences performs a deterministic, punctuation-based sentence
// split shared by every tokenizer, discarding fragments shorter than 3
// characters after trimming.
func splitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		end := loc[1]
		sentence := strings.TrimSpace(text[last:end])
		if utf8.RuneCountInString(sentence) >= 3 {
			sentences = append(sentences, sentence)
		}
		last = end
	}
	if last < len(text) {
		remainder := strings.TrimSpace(text[last:])
		if utf8.RuneCountInString(remainder) >= 3 {
			sentences = append(sentences, remainder)
		}
	}
	return sentences
}

// collapseWhitespace trims and collapses any run of whitespace to a single
// space, shared by every tokenizer's Normalize implementation.
func collapseWhitespace(text string) string {
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}
