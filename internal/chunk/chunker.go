package chunk

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/knowledgeengine/core/internal/lang"
	"github.com/knowledgeengine/core/internal/tokenize"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 512

	// DefaultChunkOverlap is the default chunk-overlap setting. The Chunker
	// stores it but does not read it: applyOverlap prepends the previous
	// chunk's last one or two sentences, bounded by overlapCapFactor.
	DefaultChunkOverlap = 128

	// DefaultMinChunkSize discards any chunk shorter than this.
	DefaultMinChunkSize = 50

	// overlapCapFactor bounds how large a chunk may grow once overlap is
	// prepended: 1.1 x chunk_size.
	overlapCapFactor = 1.1

	// autoLanguage is the sentinel declared-language value that triggers
	// detection.
	autoLanguage = "auto"
)

// Chunker splits normalized document text into an ordered sequence of
// Chunks using the tokenizer appropriate to the detected or declared
// language.
type Chunker struct {
	registry     *tokenize.Registry
	detector     lang.Detector
	chunkSize    int
	chunkOverlap int
	minChunkSize int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize overrides the target chunk size in characters.
func WithChunkSize(n int) Option {
	return func(c *Chunker) { c.chunkSize = n }
}

// WithChunkOverlap overrides the stored chunk-overlap setting, which
// applyOverlap does not read.
func WithChunkOverlap(n int) Option {
	return func(c *Chunker) { c.chunkOverlap = n }
}

// WithMinChunkSize overrides the minimum retained chunk length.
func WithMinChunkSize(n int) Option {
	return func(c *Chunker) { c.minChunkSize = n }
}

// NewChunker constructs a Chunker over registry and detector, applying
// defaults of chunk_size=512, chunk_overlap=128, min_chunk_size=50.
func NewChunker(registry *tokenize.Registry, detector lang.Detector, opts ...Option) *Chunker {
	c := &Chunker{
		registry:     registry,
		detector:     detector,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		minChunkSize: DefaultMinChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk splits text into an ordered list of Chunks. Empty input returns an
// empty list, never an error. declaredLang may be "" or "auto" to request
// detection, or an explicit ISO 639-1 tag.
func (c *Chunker) Chunk(ctx context.Context, text, sourceDoc, declaredLang string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return []Chunk{}, nil
	}

	language, langConfidence, err := c.resolveLanguage(ctx, text, sourceDoc, declaredLang)
	if err != nil {
		return nil, err
	}

	tok := c.registry.Get(language)
	normalized := tok.Normalize(text)
	sentences := tok.Sentences(normalized)
	if len(sentences) == 0 {
		return []Chunk{}, nil
	}

	rawChunks := c.splitIntoChunks(strings.Join(sentences, " "), tok.Separators())
	rawChunks = c.applyOverlap(rawChunks, sentences, tok)

	now := time.Now()
	chunks := make([]Chunk, 0, len(rawChunks))
	charPos := 0
	position := 0
	for _, content := range rawChunks {
		content = strings.TrimSpace(content)
		if len(content) < c.minChunkSize {
			continue
		}

		chunkSentences := tok.Sentences(content)
		words := strings.Fields(content)
		confidence := c.computeConfidence(content, langConfidence, tok)

		chunks = append(chunks, Chunk{
			Hash:               hashContent(content),
			Content:            content,
			Language:           language,
			LanguageConfidence: langConfidence,
			SourceDoc:          sourceDoc,
			Position:           position,
			StartChar:          charPos,
			EndChar:            charPos + len(content),
			SentenceCount:      len(chunkSentences),
			WordCount:          len(words),
			Confidence:         confidence,
			Metadata: map[string]string{
				"language":               language,
				"language_confidence":    formatFloat(langConfidence),
				"has_protected_phrases":  formatBool(tok.IsProtected(content)),
				"processing_method":      "multilingual_enhanced",
			},
			CreatedAt: now,
			UpdatedAt: now,
		})
		charPos += len(content)
		position++
	}

	return chunks, nil
}

// resolveLanguage implements the §4.3 step-1 language resolution rule: an
// explicit non-auto declaredLang is trusted outright (confidence 0.8 if a
// filename hint corroborates it, else 0.6); otherwise the detector decides.
func (c *Chunker) resolveLanguage(ctx context.Context, text, sourceDoc, declaredLang string) (string, float64, error) {
	if declaredLang != "" && declaredLang != autoLanguage {
		if hint, ok := c.detector.DetectFromName(sourceDoc); ok && hint == declaredLang {
			return declaredLang, 0.8, nil
		}
		return declaredLang, 0.6, nil
	}

	detection, err := c.detector.Detect(ctx, text)
	if err != nil {
		return "", 0, err
	}
	return detection.Lang, detection.Confidence, nil
}

// splitIntoChunks recursively applies separators, in priority order, to
// break text into pieces that target c.chunkSize without exceeding it,
// preferring breaks that land on the earliest-priority separator available.
func (c *Chunker) splitIntoChunks(text string, separators []string) []string {
	if len(text) <= c.chunkSize {
		return []string{text}
	}

	sep := pickSeparator(text, separators, c.chunkSize)
	pieces := splitKeepingSeparator(text, sep)

	var chunks []string
	var current strings.Builder
	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+len(piece) > c.chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if len(piece) > c.chunkSize {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, c.splitIntoChunks(piece, nextSeparators(separators, sep))...)
			continue
		}
		current.WriteString(piece)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// pickSeparator returns the highest-priority separator that actually
// occurs in text, falling back to the last (typically "") so the split
// always makes progress.
func pickSeparator(text string, separators []string, chunkSize int) string {
	for _, sep := range separators {
		if sep == "" {
			return sep
		}
		if strings.Contains(text, sep) {
			return sep
		}
	}
	if len(separators) > 0 {
		return separators[len(separators)-1]
	}
	return ""
}

// nextSeparators returns the separators after the one just used, so a
// recursive split tries progressively finer-grained breaks.
func nextSeparators(separators []string, used string) []string {
	for i, sep := range separators {
		if sep == used && i+1 < len(separators) {
			return separators[i+1:]
		}
	}
	return []string{""}
}

// splitKeepingSeparator splits text on sep, reattaching sep to the piece
// that precedes it so downstream splitters still see original punctuation.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		return splitRunes(text)
	}
	parts := strings.Split(text, sep)
	pieces := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			pieces = append(pieces, p+sep)
		} else if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// splitRunes is the last-resort separator: one rune-safe character at a
// time, so even an unbroken run of text without any separator still makes
// progress through splitIntoChunks.
func splitRunes(text string) []string {
	runes := []rune(text)
	pieces := make([]string, len(runes))
	for i, r := range runes {
		pieces[i] = string(r)
	}
	return pieces
}

// applyOverlap prepends the trailing one-to-two sentences of the previous
// chunk to each subsequent chunk, as long as doing so keeps the result
// within 1.1 x chunk_size.
func (c *Chunker) applyOverlap(chunks []string, allSentences []string, tok interface {
	Sentences(string) []string
}) []string {
	if len(chunks) <= 1 {
		return chunks
	}

	overlapCap := float64(c.chunkSize) * overlapCapFactor
	enhanced := make([]string, len(chunks))
	for i, current := range chunks {
		enhanced[i] = current
		if i == 0 {
			continue
		}
		prevSentences := sentencesWithin(chunks[i-1], allSentences)
		if len(prevSentences) == 0 {
			continue
		}
		contextCount := 1
		if len(prevSentences) >= 2 {
			contextCount = 2
		}
		context := strings.Join(prevSentences[len(prevSentences)-contextCount:], " ")

		if float64(len(current)+len(context)+1) <= overlapCap {
			enhanced[i] = context + " " + current
		}
	}
	return enhanced
}

// sentencesWithin returns the subset of allSentences that appear verbatim
// inside chunk, preserving their original order.
func sentencesWithin(chunkText string, allSentences []string) []string {
	var found []string
	for _, s := range allSentences {
		if strings.Contains(chunkText, strings.TrimSpace(s)) {
			found = append(found, s)
		}
	}
	return found
}

// computeConfidence implements the §4.3 step-7 formula: language
// confidence scaled by a size penalty, then boosted (capped at 1.0) if the
// chunk contains a protected phrase.
func (c *Chunker) computeConfidence(content string, langConfidence float64, tok tokenize.Tokenizer) float64 {
	confidence := langConfidence

	switch {
	case len(content) < int(float64(c.minChunkSize)*0.5):
		confidence *= 0.7
	case float64(len(content)) > float64(c.chunkSize)*1.5:
		confidence *= 0.8
	}

	if tok.IsProtected(content) {
		confidence *= 1.1
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}
