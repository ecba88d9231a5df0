package search

import "strings"

// languagePlaceholderScore is the fixed score contributed by the language
// signal: 0.8 when the request specified a language (its match is checked
// upstream when populating each merged result), 0.8 unconditionally
// otherwise. The formula always produces a deterministic value in [0,1];
// a true language-detector signal is future work.
const languagePlaceholderScore = 0.8

// combine computes the weighted re-rank score for a merged result:
//
//	combined = w_v·vector + w_g·graph·(1/max(distance,1)) + w_i·intent + w_l·language
func combine(r *Result, w Weights) float64 {
	graphDecay := 1.0
	if r.GraphDistance > 1 {
		graphDecay = 1.0 / float64(r.GraphDistance)
	}

	r.LanguageScore = languagePlaceholderScore
	r.CombinedScore = w.Vector*r.VectorScore +
		w.Graph*r.GraphScore*graphDecay +
		w.Intent*r.IntentScore +
		w.Language*r.LanguageScore
	return r.CombinedScore
}

// intentScore returns 1.0 if result's intent exactly matches the requested
// filter, 0.5 if the result carries any intent at all, 0 otherwise.
func intentScore(resultIntent, requestedIntent string) float64 {
	if resultIntent == "" {
		return 0
	}
	if requestedIntent != "" && resultIntent == requestedIntent {
		return 1.0
	}
	return 0.5
}

// applyExactMatchBoost multiplies combined_score by boost when query
// (case-folded) appears literally in the result's content, capping at 1.0.
func applyExactMatchBoost(r *Result, query string, boost float64) {
	if query == "" {
		return
	}
	if strings.Contains(strings.ToLower(r.Content), strings.ToLower(query)) {
		r.CombinedScore *= boost
		if r.CombinedScore > 1.0 {
			r.CombinedScore = 1.0
		}
	}
}
