// Package lang provides lightweight, dependency-free language detection for
// chunking and query processing. It trades classifier accuracy for
// determinism and zero external calls: the chunker and search engine only
// need a Detector, not a specific algorithm.
package lang

import (
	"context"
	"strings"
	"unicode"
)

// Detection is the result of a language detection call.
type Detection struct {
	Lang          string
	Confidence    float64
	Method        string
	Probabilities map[string]float64
}

// Detector identifies the natural language of a text. Implementations never
// return an error from Detect; the error return exists for interface
// symmetry with other capabilities and is reserved for future
// classifier-backed implementations.
type Detector interface {
	// Detect returns the detected language for text. Empty or
	// whitespace-only input returns Detection{Lang: "unknown", Confidence: 0}.
	Detect(ctx context.Context, text string) (Detection, error)

	// DetectFromName applies a filename-suffix heuristic (e.g. "_uk",
	// "_en") to sourceDoc, returning ok=false if no suffix matched.
	DetectFromName(sourceDoc string) (language string, ok bool)
}

// nameSuffixes maps filename suffixes to ISO 639-1 codes, checked in the
// order declared so multi-character suffixes are tried before shorter ones
// that could spuriously match a substring.
var nameSuffixes = []struct {
	suffix string
	lang   string
}{
	{"_uk", "uk"},
	{"_en", "en"},
	{"_ru", "ru"},
	{"_zh", "zh"},
	{"_es", "es"},
	{"_fr", "fr"},
	{"_de", "de"},
	{"_ja", "ja"},
	{"_ko", "ko"},
	{"_ar", "ar"},
	{"_pt", "pt"},
	{"_it", "it"},
	{"_nl", "nl"},
	{"_pl", "pl"},
	{"_cs", "cs"},
}

// HeuristicDetector detects language via script-range presence and
// common-stop-word scoring rather than a statistical classifier.
type HeuristicDetector struct{}

// NewHeuristicDetector returns the built-in script/stop-word detector.
func NewHeuristicDetector() *HeuristicDetector {
	return &HeuristicDetector{}
}

var _ Detector = (*HeuristicDetector)(nil)

// Detect implements Detector.
func (d *HeuristicDetector) Detect(ctx context.Context, text string) (Detection, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Detection{Lang: "unknown", Confidence: 0, Method: "empty"}, nil
	}

	scores := scoreLanguages(trimmed)
	best, bestScore := "en", 0.0
	total := 0.0
	for l, s := range scores {
		total += s
		if s > bestScore {
			best, bestScore = l, s
		}
	}

	if total == 0 {
		return Detection{Lang: "en", Confidence: 0.3, Method: "fallback"}, nil
	}

	probabilities := make(map[string]float64, len(scores))
	for l, s := range scores {
		probabilities[l] = s / total
	}

	return Detection{
		Lang:          best,
		Confidence:    probabilities[best],
		Method:        "heuristic",
		Probabilities: probabilities,
	}, nil
}

// DetectFromName implements Detector.
func (d *HeuristicDetector) DetectFromName(sourceDoc string) (string, bool) {
	name := sourceDoc
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		name = name[:idx]
	}
	lower := strings.ToLower(name)
	for _, candidate := range nameSuffixes {
		if strings.HasSuffix(lower, candidate.suffix) {
			return candidate.lang, true
		}
	}
	return "", false
}

// stopWords lists a small set of high-frequency function words per
// language, enough to disambiguate common scripts without a classifier.
var stopWords = map[string][]string{
	"en": {"the", "and", "is", "of", "to", "in", "that", "for", "with", "was"},
	"ru": {"и", "в", "не", "на", "что", "это", "он", "как", "его", "но"},
	"uk": {"і", "в", "не", "на", "що", "це", "як", "його", "але", "та"},
	"es": {"el", "la", "de", "que", "y", "en", "los", "un", "por", "con"},
	"fr": {"le", "la", "de", "et", "les", "des", "un", "que", "pour", "dans"},
	"de": {"der", "die", "und", "das", "ist", "zu", "den", "mit", "von", "ein"},
	"pl": {"i", "w", "nie", "na", "że", "się", "do", "jest", "to", "ale"},
}

// scoreLanguages scores each language by counting stop-word hits and
// script-range character presence.
func scoreLanguages(text string) map[string]float64 {
	lower := strings.ToLower(text)
	words := strings.Fields(lower)
	wordSet := make(map[string]int, len(words))
	for _, w := range words {
		wordSet[strings.Trim(w, ".,!?;:\"'()")]++
	}

	scores := make(map[string]float64)
	for language, terms := range stopWords {
		var hits float64
		for _, term := range terms {
			hits += float64(wordSet[term])
		}
		if hits > 0 {
			scores[language] = hits
		}
	}

	hasCyrillic, hasUkrainianOnly := scriptSignals(text)
	if hasCyrillic {
		if hasUkrainianOnly {
			scores["uk"] += 3
		} else if scores["uk"] == 0 && scores["ru"] == 0 {
			scores["ru"] += 1
		}
	} else {
		delete(scores, "uk")
		delete(scores, "ru")
	}

	return scores
}

// scriptSignals reports whether text contains Cyrillic characters, and
// whether it contains letters unique to the Ukrainian alphabet (і, ї, є, ґ)
// that do not appear in standard Russian.
func scriptSignals(text string) (hasCyrillic, hasUkrainianOnly bool) {
	for _, r := range text {
		if unicode.Is(unicode.Cyrillic, r) {
			hasCyrillic = true
		}
		switch unicode.ToLower(r) {
		case 'і', 'ї', 'є', 'ґ':
			hasUkrainianOnly = true
		}
	}
	return hasCyrillic, hasUkrainianOnly
}
