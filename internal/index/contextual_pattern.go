package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/knowledgeengine/core/internal/chunk"
)

// PatternContextGenerator generates context from chunk metadata alone,
// with no LLM call. It is the fallback HybridContextGenerator uses when the
// LLM backend is unavailable, fails, or returns an empty context.
type PatternContextGenerator struct{}

// NewPatternContextGenerator creates a new pattern-based context generator.
func NewPatternContextGenerator() *PatternContextGenerator {
	return &PatternContextGenerator{}
}

// GenerateContext generates context for a chunk using pattern rules.
func (p *PatternContextGenerator) GenerateContext(ctx context.Context, c *chunk.Chunk, docContext string) (string, error) {
	if c == nil {
		return "", nil
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("From document: %s", c.SourceDoc))
	parts = append(parts, fmt.Sprintf("Language: %s", c.Language))
	parts = append(parts, fmt.Sprintf("Section %d", c.Position))

	return strings.Join(parts, ". ") + ".", nil
}

// GenerateBatch generates context for multiple chunks.
func (p *PatternContextGenerator) GenerateBatch(ctx context.Context, chunks []*chunk.Chunk, docContext string) ([]string, error) {
	results := make([]string, len(chunks))
	for i, c := range chunks {
		generated, err := p.GenerateContext(ctx, c, docContext)
		if err != nil {
			return nil, err
		}
		results[i] = generated
	}
	return results, nil
}

// Available always returns true: the pattern generator has no external
// dependency.
func (p *PatternContextGenerator) Available(ctx context.Context) bool {
	return true
}

// ModelName returns the generator identifier.
func (p *PatternContextGenerator) ModelName() string {
	return "pattern-based"
}

// Close is a no-op for the pattern generator.
func (p *PatternContextGenerator) Close() error {
	return nil
}

// HybridContextGenerator prefers an LLM generator when available and falls
// back to pattern-based generation otherwise, so enrichment degrades
// gracefully rather than stalling indexing when the LLM backend is down.
type HybridContextGenerator struct {
	llm     ContextGenerator // nil if no LLM backend is configured
	pattern *PatternContextGenerator
}

// NewHybridContextGenerator creates a new hybrid generator. If llm is nil,
// only pattern-based generation is used.
func NewHybridContextGenerator(llm ContextGenerator) *HybridContextGenerator {
	return &HybridContextGenerator{
		llm:     llm,
		pattern: NewPatternContextGenerator(),
	}
}

// GenerateContext generates context, preferring the LLM when available.
func (h *HybridContextGenerator) GenerateContext(ctx context.Context, c *chunk.Chunk, docContext string) (string, error) {
	if h.llm != nil && h.llm.Available(ctx) {
		generated, err := h.llm.GenerateContext(ctx, c, docContext)
		if err == nil && generated != "" {
			return generated, nil
		}
	}
	return h.pattern.GenerateContext(ctx, c, docContext)
}

// GenerateBatch generates context for multiple chunks.
func (h *HybridContextGenerator) GenerateBatch(ctx context.Context, chunks []*chunk.Chunk, docContext string) ([]string, error) {
	if h.llm != nil && h.llm.Available(ctx) {
		generated, err := h.llm.GenerateBatch(ctx, chunks, docContext)
		if err == nil {
			return generated, nil
		}
	}
	return h.pattern.GenerateBatch(ctx, chunks, docContext)
}

// Available returns true if either generator is usable; the pattern
// generator always is, so this is always true.
func (h *HybridContextGenerator) Available(ctx context.Context) bool {
	return h.pattern.Available(ctx) || (h.llm != nil && h.llm.Available(ctx))
}

// ModelName returns the model identifier.
func (h *HybridContextGenerator) ModelName() string {
	if h.llm != nil {
		return h.llm.ModelName() + "+pattern"
	}
	return h.pattern.ModelName()
}

// Close releases resources held by the LLM generator, if any.
func (h *HybridContextGenerator) Close() error {
	if h.llm != nil {
		return h.llm.Close()
	}
	return nil
}
