// Package retrieval composes the language, chunking, embedding, graph-store,
// indexing, and search layers into the single entry point external callers
// use: index documents, run hybrid search, walk the graph, and read back
// facets, suggestions, and individual chunks.
//
// Engine owns the boundary validations that the lower layers leave to their
// caller — a non-positive or over-large result count, a malformed query, a
// too-deep walk, a dimension mismatch on insert — so that every operation
// below Engine can assume its input already satisfies the external
// contract.
package retrieval

import (
	"context"
	"fmt"

	"github.com/knowledgeengine/core/internal/chunk"
	"github.com/knowledgeengine/core/internal/config"
	"github.com/knowledgeengine/core/internal/embed"
	"github.com/knowledgeengine/core/internal/errors"
	"github.com/knowledgeengine/core/internal/graphstore"
	"github.com/knowledgeengine/core/internal/index"
	"github.com/knowledgeengine/core/internal/lang"
	"github.com/knowledgeengine/core/internal/search"
	"github.com/knowledgeengine/core/internal/telemetry"
	"github.com/knowledgeengine/core/internal/tokenize"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// maxK is the external contract's upper bound on a requested result count;
// requests above it are clamped rather than rejected.
const maxK = 100

// Engine is the transport-agnostic facade over the whole retrieval core.
// An HTTP or CLI layer binds operations to it; Engine itself assumes
// nothing about how it is invoked.
type Engine struct {
	embedder     embed.Embedder
	store        graphstore.Store
	pipeline     *index.Pipeline
	search       *search.Engine
	metrics      *telemetry.Metrics
	queryMetrics *telemetry.QueryMetrics
	dims         int
}

// New constructs an Engine from cfg over the given store and embedder,
// wiring a language detector, tokenizer registry, chunker, indexing
// pipeline, and search engine. New performs no connectivity checks; it does
// not use ctx, and Engine does not retain it.
func New(ctx context.Context, cfg *config.Config, store graphstore.Store, embedder embed.Embedder, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New(errors.ErrCodeInternal, "store is required", nil)
	}
	if embedder == nil {
		return nil, errors.New(errors.ErrCodeInternal, "embedder is required", nil)
	}

	metrics := telemetry.NewMetrics(prometheus.NewRegistry())

	var queryMetricsStore telemetry.QueryMetricsStore
	if cfg.Telemetry.QueryMetricsPath != "" {
		boltStore, err := telemetry.NewBoltMetricsStore(cfg.Telemetry.QueryMetricsPath)
		if err != nil {
			return nil, fmt.Errorf("open query metrics store: %w", err)
		}
		queryMetricsStore = boltStore
	}
	queryMetrics := telemetry.NewQueryMetrics(queryMetricsStore)

	detector := lang.NewHeuristicDetector()
	registry := tokenize.NewRegistry()
	chunker := chunk.NewChunker(
		registry, detector,
		chunk.WithChunkSize(cfg.Chunking.ChunkSize),
		chunk.WithChunkOverlap(cfg.Chunking.ChunkOverlap),
		chunk.WithMinChunkSize(cfg.Chunking.MinChunkSize),
	)

	pipeline := index.NewPipeline(chunker, embedder, store, index.WithMetrics(metrics))

	searchEngine, err := search.NewEngine(embedder, store,
		search.WithWeights(search.Weights{
			Vector:   cfg.Search.VectorWeight,
			Graph:    cfg.Search.GraphWeight,
			Intent:   cfg.Search.IntentWeight,
			Language: cfg.Search.LanguageWeight,
		}),
		search.WithScoreFloor(cfg.Search.ScoreFloor),
		search.WithMaxResults(cfg.Search.MaxResults),
		search.WithMaxQueryLength(cfg.Search.MaxQueryLength),
		search.WithExactMatchBoost(cfg.Search.ExactMatchBoost),
		search.WithWalkThreshold(0),
		search.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		embedder:     embedder,
		store:        store,
		pipeline:     pipeline,
		search:       searchEngine,
		metrics:      metrics,
		queryMetrics: queryMetrics,
		dims:         cfg.Embedding.Dimensions,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithResultCache attaches a Redis-backed search result cache.
func WithResultCache(client *redis.Client) Option {
	return func(e *Engine) {
		cached, err := search.NewEngine(e.embedder, e.store, search.WithCache(client), search.WithMetrics(e.metrics))
		if err != nil {
			return
		}
		e.search = cached
	}
}

// WithMetrics overrides the default metrics sink.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// clampK applies the external k contract: zero is rejected, values above
// maxK are silently clamped.
func clampK(k int) (int, error) {
	if k == 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "k must be positive", nil)
	}
	if k < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "k must be positive", nil)
	}
	if k > maxK {
		k = maxK
	}
	return k, nil
}

// Close releases resources owned by the engine's dependencies.
func (e *Engine) Close(ctx context.Context) error {
	if e.queryMetrics != nil {
		_ = e.queryMetrics.Close()
	}
	if err := e.embedder.Close(); err != nil {
		return err
	}
	return e.store.Close(ctx)
}

// storeHealthChecker adapts graphstore.Store to telemetry.HealthChecker so
// the store's vector-index state is reported as its own component rather
// than folded silently into a single pass/fail bit.
type storeHealthChecker struct{ store graphstore.Store }

func (c storeHealthChecker) Name() string { return "graphstore" }

func (c storeHealthChecker) CheckHealth(ctx context.Context) error {
	health, err := c.store.Health(ctx)
	if err != nil {
		return err
	}
	if !health.Online {
		return errors.New(errors.ErrCodeStoreUnavailable, "store connectivity check failed", nil)
	}
	if !health.VectorIndexOnline {
		return errors.New(errors.ErrCodeIndexOffline, "vector index is not online", nil)
	}
	return nil
}

// embedderHealthChecker adapts embed.Embedder to telemetry.HealthChecker.
type embedderHealthChecker struct{ embedder embed.Embedder }

func (c embedderHealthChecker) Name() string { return "embedder" }

func (c embedderHealthChecker) CheckHealth(ctx context.Context) error {
	if !c.embedder.Available(ctx) {
		return errors.New(errors.ErrCodeVectorizerUnavailable, "embedder backend is not reachable", nil)
	}
	return nil
}
