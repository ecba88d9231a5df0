package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledgeengine/core/internal/config"
	"github.com/knowledgeengine/core/internal/graphstore"
)

type fakeEmbedder struct{ dims int }

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, f.dims), nil
}
func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}
func (f *fakeEmbedder) Dimensions() int                { return f.dims }
func (f *fakeEmbedder) ModelID() string                { return "fake" }
func (f *fakeEmbedder) MaxSeqLength() int               { return 512 }
func (f *fakeEmbedder) Available(context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                   { return nil }

type fakeStore struct {
	records   map[string]graphstore.Record
	vecResult []graphstore.ScoredRecord
	health    graphstore.Health
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[string]graphstore.Record),
		health:  graphstore.Health{Online: true, VectorIndexOnline: true},
	}
}

func (s *fakeStore) StoreChunks(_ context.Context, batch []graphstore.Record) (int, error) {
	for _, r := range batch {
		s.records[r.Hash] = r
	}
	return len(batch), nil
}
func (s *fakeStore) GetByHash(_ context.Context, hash string) (graphstore.Record, bool, error) {
	r, ok := s.records[hash]
	return r, ok, nil
}
func (s *fakeStore) VectorKNN(context.Context, []float32, int, string, float64) ([]graphstore.ScoredRecord, error) {
	return s.vecResult, nil
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
func (s *fakeStore) Health(context.Context) (graphstore.Health, error) { return s.health, nil }
func (s *fakeStore) Close(context.Context) error                       { return nil }

func testEngine(t *testing.T, store *fakeStore) *Engine {
	t.Helper()
	cfg := config.DefaultConfig()
	e, err := New(context.Background(), cfg, store, &fakeEmbedder{dims: 4})
	require.NoError(t, err)
	return e
}

func TestEngine_Search_RejectsZeroK(t *testing.T) {
	e := testEngine(t, newFakeStore())
	_, err := e.Search(context.Background(), SearchRequest{Query: "hello", K: 0})
	assert.Error(t, err)
}

func TestEngine_Search_ClampsKAboveMaximum(t *testing.T) {
	store := newFakeStore()
	store.vecResult = []graphstore.ScoredRecord{
		{Record: graphstore.Record{Hash: "h1", Content: "hello world"}, Score: 0.9},
	}
	e := testEngine(t, store)

	results, err := e.Search(context.Background(), SearchRequest{Query: "hello", K: 5000})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), maxK)
}

func TestEngine_StoreChunks_RejectsDimensionMismatch(t *testing.T) {
	store := newFakeStore()
	e := testEngine(t, store)

	batch := []graphstore.Record{
		{Hash: "ok", Embedding: make([]float32, 4)},
		{Hash: "bad", Embedding: make([]float32, 3)},
	}
	n, err := e.StoreChunks(context.Background(), batch)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, store.records, "no record from a rejected batch should be persisted")
}

func TestEngine_GetChunk_NotFoundReturnsError(t *testing.T) {
	e := testEngine(t, newFakeStore())
	_, err := e.GetChunk(context.Background(), "missing")
	assert.Error(t, err)
}

func TestEngine_VectorSearch_RejectsEmptyQuery(t *testing.T) {
	e := testEngine(t, newFakeStore())
	_, err := e.VectorSearch(context.Background(), "", "", 5, 0)
	assert.Error(t, err)
}

func TestEngine_Health_ReflectsStoreAndEmbedder(t *testing.T) {
	e := testEngine(t, newFakeStore())
	ok, err := e.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEngine_Stats_ReportsStoreCounts(t *testing.T) {
	store := newFakeStore()
	store.health = graphstore.Health{Online: true, VectorIndexOnline: true, ChunkCount: 7, DocumentCount: 2}
	e := testEngine(t, store)

	stats, err := e.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.ChunkCount)
	assert.Equal(t, int64(2), stats.DocumentCount)
	assert.True(t, stats.Healthy)
	require.NotNil(t, stats.Queries)
}

func TestEngine_HealthReport_NamesEachComponent(t *testing.T) {
	e := testEngine(t, newFakeStore())
	report := e.HealthReport(context.Background())
	require.True(t, report.Healthy)
	require.Len(t, report.Components, 2)

	names := map[string]bool{}
	for _, c := range report.Components {
		names[c.Name] = c.Healthy
	}
	assert.True(t, names["graphstore"])
	assert.True(t, names["embedder"])
}

func TestEngine_HealthReport_FlagsOfflineStore(t *testing.T) {
	store := newFakeStore()
	store.health = graphstore.Health{Online: true, VectorIndexOnline: false}
	e := testEngine(t, store)

	report := e.HealthReport(context.Background())
	assert.False(t, report.Healthy)

	ok, err := e.Health(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_Search_RecordsQueryMetrics(t *testing.T) {
	store := newFakeStore()
	store.vecResult = []graphstore.ScoredRecord{
		{Record: graphstore.Record{Hash: "h1", Content: "hello world"}, Score: 0.9},
	}
	e := testEngine(t, store)

	_, err := e.Search(context.Background(), SearchRequest{Query: "hello", K: 5})
	require.NoError(t, err)

	snapshot := e.queryMetrics.Snapshot()
	assert.Equal(t, int64(1), snapshot.TotalQueries)
}
