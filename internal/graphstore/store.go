// Package graphstore persists chunks to a property graph with an online
// vector index and exposes the hybrid read paths (vector KNN, keyword/graph
// traversal, bounded walk, facet counts) the search engine fans out across.
package graphstore

import (
	"context"
	"time"
)

// Record is a chunk as persisted by and read back from the store. It is the
// storage-layer counterpart of chunk.Chunk, carrying the same identity
// (Hash) plus whatever graph relationships the store attaches.
type Record struct {
	Hash               string
	Content            string
	Language           string
	LanguageConfidence float64
	SourceDoc          string
	Position           int
	Confidence         float64
	Embedding          []float32
	Metadata           map[string]string
	IntentName         string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ScoredRecord pairs a Record with a similarity or relevance score.
type ScoredRecord struct {
	Record Record
	Score  float64
}

// KeywordMatch is a candidate surfaced by a keyword/graph fulltext query,
// carrying the graph-distance-weighted score alongside the intent it was
// reached through, if any.
type KeywordMatch struct {
	Record        Record
	GraphScore    float64
	IntentName    string
	GraphDistance int
}

// Path is one traversal result from Walk: the ordered node hashes and edge
// types connecting them, plus a confidence equal to the product of the
// per-edge confidences along the path.
type Path struct {
	NodeHashes []string
	EdgeTypes  []string
	Confidence float64
}

// Facets holds the distinct-value counts returned by Facets.
type Facets struct {
	Languages map[string]int
	Intents   map[string]int
	Phases    map[string]int
	Sources   map[string]int
}

// Health reports store and index connectivity.
type Health struct {
	Online            bool
	VectorIndexOnline bool
	ChunkCount        int64
	DocumentCount     int64
}

// Store is the property-graph and vector-index contract the indexing
// pipeline writes through and the search engine reads through. All methods
// are safe for concurrent use.
type Store interface {
	// StoreChunks atomically MERGEs every record in batch by Hash, in a
	// single transaction; partial batches are never observable. Returns the
	// number of records persisted.
	StoreChunks(ctx context.Context, batch []Record) (int, error)

	// GetByHash returns the record with the given chunk hash, or ok=false
	// if none exists.
	GetByHash(ctx context.Context, hash string) (Record, bool, error)

	// VectorKNN returns the k nearest records to queryVector by cosine
	// similarity, optionally filtered to language, excluding any record
	// scoring below minScore. The filter is applied inside the store query.
	VectorKNN(ctx context.Context, queryVector []float32, k int, language string, minScore float64) ([]ScoredRecord, error)

	// KeywordGraphQuery matches chunks whose content contains keywords as a
	// case-insensitive substring, optionally filtered by language and by the
	// intent the chunk's DETAILS edge points to. No fulltext index is used,
	// and LEADS_TO edges to connected chunks are not followed.
	KeywordGraphQuery(ctx context.Context, keywords, intent, language string, k int) ([]KeywordMatch, error)

	// Walk performs a bounded BFS from startHash over {DETAILS, LEADS_TO,
	// SIMILAR_TO}, up to maxDepth hops, optionally filtered to intentFilter.
	// Paths are ordered by confidence then length.
	Walk(ctx context.Context, startHash string, maxDepth int, intentFilter string) ([]Path, error)

	// Facets returns distinct-value counts for chunks whose content matches
	// queryKeyword, optionally filtered by language.
	Facets(ctx context.Context, queryKeyword, language string) (Facets, error)

	// Health reports store and vector-index connectivity.
	Health(ctx context.Context) (Health, error)

	// Close releases resources held by the store.
	Close(ctx context.Context) error
}
