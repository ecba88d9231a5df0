package telemetry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *BoltMetricsStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	store, err := NewBoltMetricsStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func TestBoltMetricsStore_SaveQueryTypeCounts(t *testing.T) {
	store := setupTestStore(t)

	err := store.SaveQueryTypeCounts("2026-07-30", map[QueryType]int64{
		QueryTypeSemantic: 5,
		QueryTypeLexical:  3,
	})
	require.NoError(t, err)

	counts, err := store.GetQueryTypeCounts("2026-07-30", "2026-07-30")
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts[QueryTypeSemantic])
	assert.Equal(t, int64(3), counts[QueryTypeLexical])
}

func TestBoltMetricsStore_SaveQueryTypeCounts_Incremental(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SaveQueryTypeCounts("2026-07-30", map[QueryType]int64{QueryTypeMixed: 2}))
	require.NoError(t, store.SaveQueryTypeCounts("2026-07-30", map[QueryType]int64{QueryTypeMixed: 3}))

	counts, err := store.GetQueryTypeCounts("2026-07-30", "2026-07-30")
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts[QueryTypeMixed])
}

func TestBoltMetricsStore_UpsertTermCounts(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{"graph": 2, "vector": 1}))

	terms, err := store.GetTopTerms(10)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "graph", terms[0].Term)
	assert.Equal(t, int64(2), terms[0].Count)
}

func TestBoltMetricsStore_UpsertTermCounts_Incremental(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{"chunk": 1}))
	require.NoError(t, store.UpsertTermCounts(map[string]int64{"chunk": 4}))

	terms, err := store.GetTopTerms(10)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, int64(5), terms[0].Count)
}

func TestBoltMetricsStore_GetTopTerms_Limit(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{"a": 1, "b": 3, "c": 2}))

	terms, err := store.GetTopTerms(2)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "b", terms[0].Term)
	assert.Equal(t, "c", terms[1].Term)
}

func TestBoltMetricsStore_ZeroResultQueries(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.AddZeroResultQuery("unanswerable query", time.Now()))

	queries, err := store.GetZeroResultQueries(10)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "unanswerable query", queries[0])
}

func TestBoltMetricsStore_ZeroResultQueries_TrimsToMax(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 150; i++ {
		require.NoError(t, store.AddZeroResultQuery("query", time.Now()))
	}

	queries, err := store.GetZeroResultQueries(1000)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(queries), 100)
}

func TestBoltMetricsStore_LatencyCounts(t *testing.T) {
	store := setupTestStore(t)

	err := store.SaveLatencyCounts("2026-07-30", map[LatencyBucket]int64{
		BucketP50:  4,
		BucketP100: 1,
	})
	require.NoError(t, err)

	counts, err := store.GetLatencyCounts("2026-07-30", "2026-07-30")
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts[BucketP50])
	assert.Equal(t, int64(1), counts[BucketP100])
}

func TestBoltMetricsStore_LatencyCounts_Incremental(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SaveLatencyCounts("2026-07-30", map[LatencyBucket]int64{BucketP10: 1}))
	require.NoError(t, store.SaveLatencyCounts("2026-07-30", map[LatencyBucket]int64{BucketP10: 2}))

	counts, err := store.GetLatencyCounts("2026-07-30", "2026-07-30")
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[BucketP10])
}

func TestBoltMetricsStore_DateRange(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SaveQueryTypeCounts("2026-07-28", map[QueryType]int64{QueryTypeSemantic: 1}))
	require.NoError(t, store.SaveQueryTypeCounts("2026-07-29", map[QueryType]int64{QueryTypeSemantic: 2}))
	require.NoError(t, store.SaveQueryTypeCounts("2026-07-30", map[QueryType]int64{QueryTypeSemantic: 4}))

	counts, err := store.GetQueryTypeCounts("2026-07-29", "2026-07-30")
	require.NoError(t, err)
	assert.Equal(t, int64(6), counts[QueryTypeSemantic])
}

func TestBoltMetricsStore_EmptyTerms(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.UpsertTermCounts(nil))

	terms, err := store.GetTopTerms(10)
	require.NoError(t, err)
	assert.Empty(t, terms)
}

func TestBoltMetricsStore_Close(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "close.db")
	store, err := NewBoltMetricsStore(dbPath)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}
