// Package search implements the hybrid vector/graph search engine, plus the
// suggestion, facet, and graph-walk services layered on top of the same
// graph-vector store.
package search

import (
	"context"
)

// ResultType classifies how a result was found.
type ResultType string

const (
	ResultTypeVector ResultType = "vector"
	ResultTypeGraph  ResultType = "graph"
	ResultTypeHybrid ResultType = "hybrid"
)

// Result is a single ranked chunk returned by Search.
type Result struct {
	ChunkHash     string
	Content       string
	SourceDoc     string
	Language      string
	Metadata      map[string]string
	VectorScore   float64
	GraphScore    float64
	IntentScore   float64
	LanguageScore float64
	CombinedScore float64
	ResultType    ResultType
	IntentName    string
	GraphDistance int
}

// Options configures a single Search call. Zero values select engine
// defaults.
type Options struct {
	Language string
	Intent   string
	Phase    string
	K        int
	UseCache bool
}

// Weights holds the non-negative re-rank weights, which must sum to 1.
// Defaults come from config.RetrievalConfig (0.40 / 0.30 / 0.20 / 0.10).
type Weights struct {
	Vector  float64
	Graph   float64
	Intent  float64
	Language float64
}

// cacher is the minimal surface the engine needs from a result cache. It is
// satisfied by *redisCache; tests substitute a fake.
type cacher interface {
	Get(ctx context.Context, key string) ([]Result, bool)
	Set(ctx context.Context, key string, results []Result)
}
