package retrieval

import (
	"context"
	"time"

	"github.com/knowledgeengine/core/internal/errors"
	"github.com/knowledgeengine/core/internal/graphstore"
	"github.com/knowledgeengine/core/internal/index"
	"github.com/knowledgeengine/core/internal/search"
	"github.com/knowledgeengine/core/internal/telemetry"
)

// IndexDocument implements index_document: chunk, embed, and store
// already-extracted text in one call.
func (e *Engine) IndexDocument(ctx context.Context, text, sourceName, declaredLang string) (index.Result, error) {
	return e.pipeline.IndexDocument(ctx, text, sourceName, declaredLang)
}

// StoreChunks implements store_chunks: a low-level bulk write used by tests
// and importers that already hold embedded records. The whole batch is
// rejected, with nothing persisted, if any record's embedding length does
// not match the configured dimension.
func (e *Engine) StoreChunks(ctx context.Context, batch []graphstore.Record) (int, error) {
	for _, r := range batch {
		if len(r.Embedding) != e.dims {
			return 0, errors.New(errors.ErrCodeDimensionMismatch, "embedding length does not match configured dimensions", nil).
				WithDetail("chunk_hash", r.Hash)
		}
	}
	return e.store.StoreChunks(ctx, batch)
}

// SearchRequest is the external search contract's parameters.
type SearchRequest struct {
	Query    string
	Language string
	Intent   string
	Phase    string
	K        int
	UseCache bool
}

// Search implements search: validates k against the external contract
// (zero rejected, values above 100 clamped) before delegating to the
// hybrid search engine.
func (e *Engine) Search(ctx context.Context, req SearchRequest) ([]search.Result, error) {
	k, err := clampK(req.K)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := e.search.Search(ctx, req.Query, search.Options{
		Language: req.Language,
		Intent:   req.Intent,
		Phase:    req.Phase,
		K:        k,
		UseCache: req.UseCache,
	})
	if err == nil && e.queryMetrics != nil {
		e.queryMetrics.Record(telemetry.QueryEvent{
			Query:       req.Query,
			QueryType:   telemetry.QueryTypeMixed,
			ResultCount: len(results),
			Latency:     time.Since(start),
			Timestamp:   time.Now(),
		})
	}
	return results, err
}

// VectorSearch implements vector_search: a pure vector-kNN query bypassing
// the keyword/graph arm and weighted re-rank entirely.
func (e *Engine) VectorSearch(ctx context.Context, query, language string, k int, minScore float64) ([]graphstore.ScoredRecord, error) {
	if query == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	k, err := clampK(k)
	if err != nil {
		return nil, err
	}

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, "query embedding failed", err)
	}
	return e.store.VectorKNN(ctx, embedding, k, language, minScore)
}

// Walk implements walk: a bounded-depth graph traversal from startHash.
func (e *Engine) Walk(ctx context.Context, startHash string, maxDepth int, intentFilter string) ([]graphstore.Path, error) {
	return e.search.Walk(ctx, startHash, maxDepth, intentFilter)
}

// Suggest implements suggest: ranked autocomplete candidates for prefix.
func (e *Engine) Suggest(ctx context.Context, prefix, language string, limit int) ([]string, error) {
	return e.search.Suggest(ctx, prefix, language, limit)
}

// Facets implements facets: per-dimension counts over chunks matching
// queryKeyword and language.
func (e *Engine) Facets(ctx context.Context, queryKeyword, language string) (search.FacetCounts, error) {
	return e.search.Facets(ctx, queryKeyword, language)
}

// GetChunk implements get_chunk: a direct lookup by chunk hash.
func (e *Engine) GetChunk(ctx context.Context, hash string) (graphstore.Record, error) {
	rec, ok, err := e.store.GetByHash(ctx, hash)
	if err != nil {
		return graphstore.Record{}, err
	}
	if !ok {
		return graphstore.Record{}, errors.New(errors.ErrCodeChunkNotFound, "chunk not found", nil).
			WithDetail("chunk_hash", hash)
	}
	return rec, nil
}

// Stats is the engine's point-in-time operational snapshot.
type Stats struct {
	ChunkCount    int64
	DocumentCount int64
	Facets        search.FacetCounts
	Healthy       bool
	Queries       *telemetry.QueryMetricsSnapshot
}

// Stats implements stats: store counts joined with a full facet breakdown
// and the in-process query pattern telemetry collected since startup.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	health, err := e.store.Health(ctx)
	if err != nil {
		return Stats{}, err
	}
	facets, err := e.search.Facets(ctx, "", "")
	if err != nil {
		return Stats{}, err
	}
	var snapshot *telemetry.QueryMetricsSnapshot
	if e.queryMetrics != nil {
		snapshot = e.queryMetrics.Snapshot()
	}
	return Stats{
		ChunkCount:    health.ChunkCount,
		DocumentCount: health.DocumentCount,
		Facets:        facets,
		Healthy:       health.Online && health.VectorIndexOnline,
		Queries:       snapshot,
	}, nil
}

// Health implements health: true only if every dependency component in
// HealthReport passes its check.
func (e *Engine) Health(ctx context.Context) (bool, error) {
	report := e.HealthReport(ctx)
	return report.Healthy, nil
}

// HealthReport runs a per-component health check against the store and the
// embedder and returns the aggregated result, so a caller can see which
// dependency is down rather than a single pass/fail bit.
func (e *Engine) HealthReport(ctx context.Context) telemetry.HealthReport {
	return telemetry.CheckHealth(ctx,
		storeHealthChecker{store: e.store},
		embedderHealthChecker{embedder: e.embedder},
	)
}
