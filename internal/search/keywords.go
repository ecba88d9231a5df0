package search

import (
	"strings"
	"unicode"
)

// maxKeywords bounds the keyword arm's query to the five most informative
// terms, per the Store's fulltext graph query contract.
const maxKeywords = 5

// minKeywordLength is the shortest term kept after stop-word filtering.
const minKeywordLength = 3

// stopWords is a small cross-language stop-word set covering the query's
// probable languages. It is deliberately short: the keyword arm only needs
// to drop noise words common enough to dilute a fulltext match, not to
// perform full linguistic stop-word removal.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "was": {}, "were": {}, "have": {}, "has": {}, "not": {}, "but": {},
	"what": {}, "how": {}, "when": {}, "where": {}, "who": {}, "which": {},
	"і": {}, "та": {}, "це": {}, "як": {}, "що": {}, "для": {}, "але": {}, "або": {},
	"и": {}, "что": {}, "как": {}, "но": {}, "или": {}, "это": {},
}

// extractKeywords returns up to five lowercase, stop-word-filtered terms
// from query, in first-occurrence order, for use as the keyword arm's
// fulltext query.
func extractKeywords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	keywords := make([]string, 0, maxKeywords)
	for _, f := range fields {
		if len(keywords) >= maxKeywords {
			break
		}
		if len([]rune(f)) < minKeywordLength {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		keywords = append(keywords, f)
	}
	return keywords
}
