// Package index composes the chunker, embedder, and graph-vector store into
// the document indexing pipeline: extract, chunk, embed in batch, and store
// atomically, with an optional contextual-enrichment step ahead of
// embedding.
package index

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/knowledgeengine/core/internal/chunk"
	"github.com/knowledgeengine/core/internal/embed"
	"github.com/knowledgeengine/core/internal/errors"
	"github.com/knowledgeengine/core/internal/graphstore"
	"github.com/knowledgeengine/core/internal/telemetry"
)

// Result is the outcome of indexing one document.
type Result struct {
	Success          bool
	ChunksCreated    int
	ChunksIndexed    int
	LanguageDetected string
	Duration         time.Duration
	ErrorCategory    string
	Err              error
}

// Pipeline composes a Chunker, Embedder, and Store to implement
// IndexDocument. Pipeline is safe for concurrent use; multiple documents may
// be indexed in parallel, with no ordering guarantee between them.
type Pipeline struct {
	chunker   *chunk.Chunker
	embedder  embed.Embedder
	store     graphstore.Store
	context   ContextGenerator // optional, nil disables enrichment
	metrics   *telemetry.Metrics
	storeRetry errors.RetryConfig
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithContextGenerator enables contextual enrichment: gen's generated
// context is embedded alongside each chunk's own content, though it is
// never written into the chunk's stored Content.
func WithContextGenerator(gen ContextGenerator) Option {
	return func(p *Pipeline) { p.context = gen }
}

// WithMetrics attaches a metrics sink to the pipeline.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithStoreRetry overrides the retry policy around the store-write step.
func WithStoreRetry(cfg errors.RetryConfig) Option {
	return func(p *Pipeline) { p.storeRetry = cfg }
}

// NewPipeline constructs a Pipeline over chunker, embedder, and store.
func NewPipeline(chunker *chunk.Chunker, embedder embed.Embedder, store graphstore.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		storeRetry: errors.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IndexDocument implements the indexing algorithm: chunk the already
// text-extracted source, embed every chunk's content in one batch call,
// assemble store records, and write them in a single transaction. Any
// extractor, embedding, or store error is reported in Result with
// Success=false and an ErrorCategory, rather than returned as an error,
// except for a context-cancellation error, which is also returned.
func (p *Pipeline) IndexDocument(ctx context.Context, text, sourceName, declaredLang string) (Result, error) {
	start := time.Now()

	chunks, err := p.chunker.Chunk(ctx, text, sourceName, declaredLang)
	if err != nil {
		return p.fail(start, "extract", err)
	}
	if len(chunks) == 0 {
		return Result{Success: true, Duration: time.Since(start)}, nil
	}

	texts := p.embeddingTexts(ctx, chunks)

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return p.fail(start, "embed", errors.New(errors.ErrCodeEmbeddingFailed, "batch embedding failed", err))
	}
	if len(vectors) != len(chunks) {
		return p.fail(start, "embed", errors.New(errors.ErrCodeEmbeddingCountMismatch, "embedding count mismatch", nil).
			WithDetail("chunks", strconv.Itoa(len(chunks))).
			WithDetail("vectors", strconv.Itoa(len(vectors))))
	}

	batch := make([]graphstore.Record, len(chunks))
	for i, c := range chunks {
		c.Embedding = vectors[i]
		batch[i] = toRecord(c)
	}

	var stored int
	writeErr := errors.Retry(ctx, p.storeRetry, func() error {
		n, err := p.store.StoreChunks(ctx, batch)
		if err != nil {
			return err
		}
		stored = n
		return nil
	})
	if writeErr != nil {
		return p.fail(start, "store", errors.New(errors.ErrCodeStoreUnavailable, "store write failed", writeErr))
	}

	duration := time.Since(start)
	if p.metrics != nil {
		p.metrics.IndexedDocuments.Inc()
		p.metrics.ChunksStored.Add(float64(stored))
		p.metrics.IndexingLatency.Observe(duration.Seconds())
	}

	return Result{
		Success:          true,
		ChunksCreated:    len(chunks),
		ChunksIndexed:    stored,
		LanguageDetected: chunks[0].Language,
		Duration:         duration,
	}, nil
}

// embeddingTexts returns the text to embed for each chunk, applying
// contextual enrichment when a ContextGenerator is configured. Enrichment
// failures degrade to the chunk's own content rather than failing indexing.
func (p *Pipeline) embeddingTexts(ctx context.Context, chunks []chunk.Chunk) []string {
	texts := make([]string, len(chunks))
	if p.context == nil {
		for i, c := range chunks {
			texts[i] = c.Content
		}
		return texts
	}

	refs := make([]*chunk.Chunk, len(chunks))
	for i := range chunks {
		refs[i] = &chunks[i]
	}
	docContext := ExtractDocumentContext(refs)

	generated, err := p.context.GenerateBatch(ctx, refs, docContext)
	if err != nil {
		slog.Warn("contextual enrichment failed, indexing without it", slog.String("error", err.Error()))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		return texts
	}

	for i, c := range chunks {
		var ctxStr string
		if i < len(generated) {
			ctxStr = generated[i]
		}
		ApplyContext(refs[i], ctxStr)
		texts[i] = EmbeddingText(refs[i], ctxStr)
	}
	return texts
}

func (p *Pipeline) fail(start time.Time, category string, err error) (Result, error) {
	if p.metrics != nil {
		p.metrics.RecordError(category)
	}
	var cancelErr error
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		cancelErr = err
	}
	return Result{
		Success:       false,
		Duration:      time.Since(start),
		ErrorCategory: category,
		Err:           err,
	}, cancelErr
}

func toRecord(c chunk.Chunk) graphstore.Record {
	return graphstore.Record{
		Hash:               c.Hash,
		Content:            c.Content,
		Language:           c.Language,
		LanguageConfidence: c.LanguageConfidence,
		SourceDoc:          c.SourceDoc,
		Position:           c.Position,
		Confidence:         c.Confidence,
		Embedding:          c.Embedding,
		Metadata:           c.Metadata,
		IntentName:         c.Metadata["intent"],
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

