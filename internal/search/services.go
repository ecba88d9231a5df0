package search

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/knowledgeengine/core/internal/errors"
	"github.com/knowledgeengine/core/internal/graphstore"
)

// maxWalkDepth is the hard upper bound on Walk's max_depth parameter.
const maxWalkDepth = 5

// suggestKeywordFanout bounds how many keyword-graph matches Suggest
// scans for content-based candidates.
const suggestKeywordFanout = 50

// FacetCounts is the engine's view of the store's facet breakdown, with a
// Total summed across every category for callers that want a single
// number.
type FacetCounts struct {
	Languages map[string]int
	Intents   map[string]int
	Phases    map[string]int
	Sources   map[string]int
	Total     int
}

// Suggest returns ordered, unique suggestion strings matching prefix
// against Intent names and a bounded slice of chunk content, with shorter
// strings ranked first and ties broken lexicographically.
func (e *Engine) Suggest(ctx context.Context, prefix, language string, limit int) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "suggestion prefix must not be empty", nil)
	}
	if limit <= 0 {
		limit = defaultK
	}
	lower := strings.ToLower(prefix)

	seen := make(map[string]struct{})
	var candidates []string

	addCandidate := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		candidates = append(candidates, s)
	}

	facets, err := e.store.Facets(ctx, "", language)
	if err != nil {
		return nil, err
	}
	for name := range facets.Intents {
		if strings.Contains(strings.ToLower(name), lower) {
			addCandidate(name)
		}
	}

	matches, err := e.store.KeywordGraphQuery(ctx, prefix, "", language, suggestKeywordFanout)
	if err == nil {
		for _, m := range matches {
			addCandidate(snippetAround(m.Record.Content, lower))
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) < len(candidates[j])
		}
		return candidates[i] < candidates[j]
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// snippetAround returns a short window of content surrounding the first
// case-insensitive occurrence of needle, or "" if absent.
func snippetAround(content, needle string) string {
	lower := strings.ToLower(content)
	idx := strings.Index(lower, needle)
	if idx < 0 {
		return ""
	}
	const window = 40
	start := idx - window
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + window
	if end > len(content) {
		end = len(content)
	}
	return strings.TrimSpace(content[start:end])
}

// Facets passes through the store's facet counts, with a summed total
// added at the engine layer.
func (e *Engine) Facets(ctx context.Context, queryKeyword, language string) (FacetCounts, error) {
	raw, err := e.store.Facets(ctx, queryKeyword, language)
	if err != nil {
		return FacetCounts{}, err
	}

	counts := FacetCounts{
		Languages: raw.Languages,
		Intents:   raw.Intents,
		Phases:    raw.Phases,
		Sources:   raw.Sources,
	}
	for _, v := range raw.Languages {
		counts.Total += v
	}
	for _, v := range raw.Intents {
		counts.Total += v
	}
	for _, v := range raw.Phases {
		counts.Total += v
	}
	for _, v := range raw.Sources {
		counts.Total += v
	}
	return counts, nil
}

// Walk delegates to the store's bounded graph traversal, filtering out
// paths whose confidence falls below minConfidence.
func (e *Engine) Walk(ctx context.Context, startHash string, maxDepth int, intentFilter string, minConfidence ...float64) ([]graphstore.Path, error) {
	if maxDepth <= 0 {
		maxDepth = maxWalkDepth
	}
	if maxDepth > maxWalkDepth {
		return nil, errors.New(errors.ErrCodeInvalidDepth, "walk depth exceeds maximum", nil).
			WithDetail("max_depth", strconv.Itoa(maxWalkDepth))
	}

	paths, err := e.store.Walk(ctx, startHash, maxDepth, intentFilter)
	if err != nil {
		return nil, err
	}

	threshold := e.walkThreshold
	if len(minConfidence) > 0 && minConfidence[0] > 0 {
		threshold = minConfidence[0]
	}
	if threshold <= 0 {
		return paths, nil
	}

	filtered := paths[:0]
	for _, p := range paths {
		if p.Confidence >= threshold {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}
