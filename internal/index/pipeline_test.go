package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledgeengine/core/internal/chunk"
	"github.com/knowledgeengine/core/internal/errors"
	"github.com/knowledgeengine/core/internal/graphstore"
	"github.com/knowledgeengine/core/internal/lang"
	"github.com/knowledgeengine/core/internal/tokenize"
)

type fakeEmbedder struct {
	dims      int
	batchFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.batchFunc != nil {
		return f.batchFunc(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int      { return f.dims }
func (f *fakeEmbedder) ModelID() string      { return "fake" }
func (f *fakeEmbedder) MaxSeqLength() int    { return 512 }
func (f *fakeEmbedder) Available(context.Context) bool { return true }
func (f *fakeEmbedder) Close() error         { return nil }

type fakeStore struct {
	stored  []graphstore.Record
	storeErr error
	calls   int
}

func (s *fakeStore) StoreChunks(ctx context.Context, batch []graphstore.Record) (int, error) {
	s.calls++
	if s.storeErr != nil {
		return 0, s.storeErr
	}
	s.stored = append(s.stored, batch...)
	return len(batch), nil
}
func (s *fakeStore) GetByHash(ctx context.Context, hash string) (graphstore.Record, bool, error) {
	for _, r := range s.stored {
		if r.Hash == hash {
			return r, true, nil
		}
	}
	return graphstore.Record{}, false, nil
}
func (s *fakeStore) VectorKNN(context.Context, []float32, int, string, float64) ([]graphstore.ScoredRecord, error) {
	return nil, nil
}
func (s *fakeStore) KeywordGraphQuery(context.Context, string, string, string, int) ([]graphstore.KeywordMatch, error) {
	return nil, nil
}
func (s *fakeStore) Walk(context.Context, string, int, string) ([]graphstore.Path, error) {
	return nil, nil
}
func (s *fakeStore) Facets(context.Context, string, string) (graphstore.Facets, error) {
	return graphstore.Facets{}, nil
}
func (s *fakeStore) Health(context.Context) (graphstore.Health, error) {
	return graphstore.Health{Online: true}, nil
}
func (s *fakeStore) Close(context.Context) error { return nil }

func newTestChunker() *chunk.Chunker {
	return chunk.NewChunker(tokenize.NewRegistry(), lang.NewHeuristicDetector())
}

func noRetry() errors.RetryConfig {
	return errors.RetryConfig{MaxRetries: 0, InitialDelay: 0, MaxDelay: 0, Multiplier: 1}
}

func TestPipeline_IndexDocument_Success(t *testing.T) {
	store := &fakeStore{}
	p := NewPipeline(newTestChunker(), &fakeEmbedder{dims: 8}, store, WithStoreRetry(noRetry()))

	result, err := p.IndexDocument(context.Background(), "This is a reasonably long piece of English text used to exercise the chunker pipeline end to end.", "doc1.txt", "en")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Greater(t, result.ChunksCreated, 0)
	assert.Equal(t, result.ChunksCreated, result.ChunksIndexed)
	assert.Equal(t, 1, store.calls)
	assert.NotEmpty(t, store.stored)
	assert.Len(t, store.stored[0].Embedding, 8)
}

func TestPipeline_IndexDocument_EmptyTextIsSuccessWithNoChunks(t *testing.T) {
	store := &fakeStore{}
	p := NewPipeline(newTestChunker(), &fakeEmbedder{dims: 8}, store, WithStoreRetry(noRetry()))

	result, err := p.IndexDocument(context.Background(), "   ", "doc1.txt", "en")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ChunksCreated)
	assert.Equal(t, 0, store.calls)
}

func TestPipeline_IndexDocument_EmbeddingCountMismatchFails(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{
		dims: 8,
		batchFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			return make([][]float32, len(texts)+1), nil
		},
	}
	p := NewPipeline(newTestChunker(), embedder, store, WithStoreRetry(noRetry()))

	result, err := p.IndexDocument(context.Background(), "This is a reasonably long piece of English text that will split into more than one chunk of output.", "doc1.txt", "en")

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "embed", result.ErrorCategory)
	assert.Error(t, result.Err)
	assert.Equal(t, 0, store.calls)
}

func TestPipeline_IndexDocument_StoreErrorFails(t *testing.T) {
	store := &fakeStore{storeErr: assert.AnError}
	p := NewPipeline(newTestChunker(), &fakeEmbedder{dims: 8}, store, WithStoreRetry(noRetry()))

	result, err := p.IndexDocument(context.Background(), "Short text that should still produce at least one chunk for storage.", "doc1.txt", "en")

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "store", result.ErrorCategory)
}

func TestPipeline_IndexDocument_ContextGeneratorEnrichesWithoutMutatingStoredContent(t *testing.T) {
	store := &fakeStore{}
	gen := NewHybridContextGenerator(nil) // pattern-only

	var seenTexts []string
	embedder := &fakeEmbedder{
		dims: 4,
		batchFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			seenTexts = append(seenTexts, texts...)
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = make([]float32, 4)
			}
			return out, nil
		},
	}
	p := NewPipeline(newTestChunker(), embedder, store, WithContextGenerator(gen), WithStoreRetry(noRetry()))

	result, err := p.IndexDocument(context.Background(), "Short document body for enrichment testing purposes here.", "doc2.txt", "en")

	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, store.stored)

	storedContent := store.stored[0].Content
	assert.NotContains(t, storedContent, "From document")
	require.NotEmpty(t, seenTexts)
	assert.Contains(t, seenTexts[0], "From document: doc2.txt")
	assert.Contains(t, store.stored[0].Metadata["contextual_context"], "From document")
}
