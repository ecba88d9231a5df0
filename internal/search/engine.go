package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	stderrors "errors"

	"github.com/redis/go-redis/v9"

	"github.com/knowledgeengine/core/internal/embed"
	"github.com/knowledgeengine/core/internal/errors"
	"github.com/knowledgeengine/core/internal/graphstore"
	"github.com/knowledgeengine/core/internal/telemetry"
)

// ErrNilDependency is returned by NewEngine when a required dependency is
// nil.
var ErrNilDependency = stderrors.New("nil dependency")

// defaultK is the result count used when Options.K is unset.
const defaultK = 10

// searchArmTimeout bounds a single fan-out arm.
const searchArmTimeout = 10 * time.Second

// overallSearchTimeout bounds the whole Search call.
const overallSearchTimeout = 15 * time.Second

// Engine implements the hybrid search, suggestion, facet, and walk
// contracts over an embedder and a graph-vector store.
type Engine struct {
	embedder embed.Embedder
	store    graphstore.Store
	cache    cacher
	weights  Weights
	scoreFloor float64
	maxResults int
	maxQueryLength int
	exactMatchBoostFactor float64
	walkThreshold float64
	metrics  *telemetry.Metrics
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCache attaches a Redis-backed result cache. A nil client is
// accepted and yields a cache that always misses, matching "cache
// unavailability degrades silently".
func WithCache(client *redis.Client) EngineOption {
	return func(e *Engine) { e.cache = newRedisCache(client) }
}

// WithWeights overrides the default re-rank weights.
func WithWeights(w Weights) EngineOption {
	return func(e *Engine) { e.weights = w }
}

// WithScoreFloor overrides the minimum combined_score a result must clear
// to survive filtering.
func WithScoreFloor(floor float64) EngineOption {
	return func(e *Engine) { e.scoreFloor = floor }
}

// WithMaxResults overrides the default result count cap.
func WithMaxResults(n int) EngineOption {
	return func(e *Engine) { e.maxResults = n }
}

// WithMaxQueryLength overrides the maximum accepted query length.
func WithMaxQueryLength(n int) EngineOption {
	return func(e *Engine) { e.maxQueryLength = n }
}

// WithExactMatchBoost overrides the multiplier applied when the query
// appears literally in a result's content.
func WithExactMatchBoost(boost float64) EngineOption {
	return func(e *Engine) { e.exactMatchBoostFactor = boost }
}

// WithWalkThreshold overrides the minimum path confidence Walk returns.
func WithWalkThreshold(threshold float64) EngineOption {
	return func(e *Engine) { e.walkThreshold = threshold }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m *telemetry.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// defaultWeights mirrors config.RetrievalConfig's defaults so an Engine
// built with no options still produces a deterministic ranking.
var defaultWeights = Weights{Vector: 0.40, Graph: 0.30, Intent: 0.20, Language: 0.10}

// NewEngine constructs a search Engine over embedder and store, both of
// which are required.
func NewEngine(embedder embed.Embedder, store graphstore.Store, opts ...EngineOption) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrNilDependency)
	}

	e := &Engine{
		embedder:       embedder,
		store:          store,
		weights:        defaultWeights,
		scoreFloor:     0.1,
		maxResults:     20,
		maxQueryLength: 1000,
		exactMatchBoostFactor: 1.2,
		walkThreshold:  0,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search implements the hybrid search contract: cache probe, parallel
// vector and keyword-graph fan-out, merge, re-rank, exact-match boost,
// filter, sort, truncate, cache.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	start := time.Now()

	trimmed := normalizeQuery(query)
	if trimmed == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	if e.maxQueryLength > 0 && len([]rune(trimmed)) > e.maxQueryLength {
		return nil, errors.New(errors.ErrCodeQueryTooLong, "query exceeds maximum length", nil).
			WithDetail("max_length", strconv.Itoa(e.maxQueryLength))
	}

	opts = e.applyDefaults(opts)

	ctx, cancel := context.WithTimeout(ctx, overallSearchTimeout)
	defer cancel()

	key := cacheKey(trimmed, opts.Language, opts.Intent, opts.Phase, opts.K)
	if opts.UseCache && e.cache != nil {
		if cached, ok := e.cache.Get(ctx, key); ok {
			e.recordCache(true)
			return cached, nil
		}
		e.recordCache(false)
	}

	vecResults, kwResults, fanoutErr := e.parallelSearch(ctx, trimmed, opts)
	if fanoutErr != nil {
		if ctx.Err() != nil {
			return nil, errors.New(errors.ErrCodeCancelled, "search cancelled", ctx.Err())
		}
		return nil, errors.New(errors.ErrCodeInternal, "search arm failed with no results from the other arm", fanoutErr)
	}

	merged := merge(vecResults, kwResults, opts)

	for i := range merged {
		combine(&merged[i], e.weights)
		applyExactMatchBoost(&merged[i], trimmed, e.exactMatchBoost())
	}

	filtered := merged[:0]
	for _, r := range merged {
		if r.CombinedScore < e.scoreFloor {
			continue
		}
		if opts.Phase != "" && r.Metadata["phase"] != opts.Phase {
			continue
		}
		filtered = append(filtered, r)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].CombinedScore != filtered[j].CombinedScore {
			return filtered[i].CombinedScore > filtered[j].CombinedScore
		}
		return filtered[i].ChunkHash < filtered[j].ChunkHash
	})

	if len(filtered) > opts.K {
		filtered = filtered[:opts.K]
	}

	if e.metrics != nil {
		e.metrics.SearchLatency.WithLabelValues("overall").Observe(time.Since(start).Seconds())
		e.metrics.SearchesByStrategy.WithLabelValues(string(resultStrategy(filtered))).Inc()
	}

	if opts.UseCache && e.cache != nil && ctx.Err() == nil {
		e.cache.Set(ctx, key, filtered)
	}

	return filtered, nil
}

// exactMatchBoost returns the configured boost factor.
func (e *Engine) exactMatchBoost() float64 {
	return e.exactMatchBoostFactor
}

func (e *Engine) applyDefaults(opts Options) Options {
	if opts.K <= 0 {
		opts.K = defaultK
	}
	if opts.K > e.maxResults {
		opts.K = e.maxResults
	}
	return opts
}

func (e *Engine) recordCache(hit bool) {
	if e.metrics != nil {
		e.metrics.RecordCacheResult("search", hit)
	}
}

// parallelSearch runs the vector-KNN and keyword-graph arms concurrently.
// Each arm's error is captured into an outer-scope variable rather than
// returned from its goroutine, so one arm failing never cancels or aborts
// the other. A non-nil error is returned when both arms fail, or when one
// arm fails and the other returns no results; otherwise a failed arm is
// logged and its results are empty.
func (e *Engine) parallelSearch(ctx context.Context, query string, opts Options) (
	vec []graphstore.ScoredRecord,
	kw []graphstore.KeywordMatch,
	err error,
) {
	g, gctx := errgroup.WithContext(ctx)

	var vecErr, kwErr error
	fanoutK := opts.K * 2

	g.Go(func() error {
		armCtx, cancel := context.WithTimeout(gctx, searchArmTimeout)
		defer cancel()
		if e.metrics != nil {
			defer func(t time.Time) {
				e.metrics.SearchLatency.WithLabelValues("vector").Observe(time.Since(t).Seconds())
			}(time.Now())
		}

		embedding, embedErr := e.embedder.Embed(armCtx, query)
		if embedErr != nil {
			vecErr = errors.New(errors.ErrCodeEmbeddingFailed, "query embedding failed", embedErr)
			return nil
		}

		results, searchErr := e.store.VectorKNN(armCtx, embedding, fanoutK, opts.Language, 0)
		if searchErr != nil {
			vecErr = searchErr
			return nil
		}
		vec = results
		return nil
	})

	g.Go(func() error {
		armCtx, cancel := context.WithTimeout(gctx, searchArmTimeout)
		defer cancel()
		if e.metrics != nil {
			defer func(t time.Time) {
				e.metrics.SearchLatency.WithLabelValues("keyword").Observe(time.Since(t).Seconds())
			}(time.Now())
		}

		keywords := extractKeywords(query)
		results, searchErr := e.store.KeywordGraphQuery(armCtx, joinKeywords(keywords), opts.Intent, opts.Language, fanoutK)
		if searchErr != nil {
			kwErr = searchErr
			return nil
		}
		kw = results
		return nil
	})

	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, waitErr
	}

	if vecErr != nil && kwErr != nil {
		return nil, nil, stderrors.Join(vecErr, kwErr)
	}
	if vecErr != nil && len(kw) == 0 {
		return nil, nil, vecErr
	}
	if kwErr != nil && len(vec) == 0 {
		return nil, nil, kwErr
	}
	if vecErr != nil {
		slog.Warn("vector search arm failed, continuing with keyword results only", slog.String("error", vecErr.Error()))
	}
	if kwErr != nil {
		slog.Warn("keyword search arm failed, continuing with vector results only", slog.String("error", kwErr.Error()))
	}

	return vec, kw, nil
}

func resultStrategy(results []Result) ResultType {
	if len(results) == 0 {
		return ResultTypeHybrid
	}
	allVector, allGraph := true, true
	for _, r := range results {
		if r.ResultType != ResultTypeVector {
			allVector = false
		}
		if r.ResultType != ResultTypeGraph {
			allGraph = false
		}
	}
	switch {
	case allVector:
		return ResultTypeVector
	case allGraph:
		return ResultTypeGraph
	default:
		return ResultTypeHybrid
	}
}

func joinKeywords(keywords []string) string {
	return strings.Join(keywords, " ")
}

func normalizeQuery(query string) string {
	return strings.TrimSpace(query)
}

// Health reports whether the engine is ready to serve traffic: the store's
// vector index must be online and the embedder must pass a self-test
// embedding.
func (e *Engine) Health(ctx context.Context) (bool, error) {
	storeHealth, err := e.store.Health(ctx)
	if err != nil {
		return false, err
	}
	if !storeHealth.Online || !storeHealth.VectorIndexOnline {
		return false, nil
	}
	return e.embedder.Available(ctx), nil
}

// Close releases the engine's own resources. The embedder and store are
// owned by the caller and are not closed here.
func (e *Engine) Close() error {
	return nil
}
