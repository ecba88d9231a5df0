// Package chunk implements the sentence-aware recursive text splitter that
// turns a normalized document into an ordered sequence of Chunks.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Chunk is a sentence-aware slice of a document with a fixed identity
// (Hash), metadata, and an embedding filled in later by the indexing
// pipeline.
type Chunk struct {
	Hash              string
	Content           string
	Language          string
	LanguageConfidence float64
	SourceDoc         string
	Position          int
	StartChar         int
	EndChar           int
	SentenceCount     int
	WordCount         int
	Confidence        float64
	Embedding         []float32
	Metadata          map[string]string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// hashContent returns the first 16 hex characters of content's SHA-256
// digest, matching the truncated form the storage layer keys chunks by.
func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}
