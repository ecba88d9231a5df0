package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_PassesValidation(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestDefaultConfig_RankingWeightsSumToOne(t *testing.T) {
	cfg := DefaultConfig()
	sum := cfg.Search.VectorWeight + cfg.Search.GraphWeight + cfg.Search.IntentWeight + cfg.Search.LanguageWeight
	assert.InDelta(t, 1.0, sum, 0.01)
}

func TestValidate_RejectsOverlapNotSmallerThanChunkSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chunking.ChunkOverlap = cfg.Chunking.ChunkSize

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_overlap")
}

func TestValidate_RejectsBadWalkDepth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.MaxWalkDepth = 6

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_walk_depth")
}

func TestValidate_RejectsWeightsNotSummingToOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.VectorWeight = 0.9

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoad_AppliesProjectConfigOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
search:
  vector_weight: 0.5
  language_weight: 0.3
  graph_weight: 0.15
  intent_weight: 0.05
log_level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".knowledgeengine.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Search.VectorWeight)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 512, cfg.Chunking.ChunkSize, "unset fields keep their defaults")
}

func TestLoad_NoProjectConfigUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Chunking.ChunkSize, cfg.Chunking.ChunkSize)
}

func TestLoad_InvalidProjectConfigFailsValidation(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
store:
  max_walk_depth: 99
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".knowledgeengine.yaml"), []byte(yamlContent), 0o644))

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestApplyEnvOverrides_StoreURI(t *testing.T) {
	t.Setenv("KNOWLEDGEENGINE_STORE_URI", "neo4j://remote:7687")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "neo4j://remote:7687", cfg.Store.URI)
}

func TestApplyEnvOverrides_RejectsOutOfRangeWeight(t *testing.T) {
	t.Setenv("KNOWLEDGEENGINE_VECTOR_WEIGHT", "5")

	cfg := DefaultConfig()
	original := cfg.Search.VectorWeight
	cfg.applyEnvOverrides()

	assert.Equal(t, original, cfg.Search.VectorWeight, "out-of-range override should be ignored")
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")
	cfg := DefaultConfig()

	require.NoError(t, cfg.WriteYAML(path))

	reloaded := DefaultConfig()
	require.NoError(t, reloaded.loadYAML(path))
	assert.Equal(t, cfg.Embedding.ModelID, reloaded.Embedding.ModelID)
}

func TestTimeoutHelpers(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30e9, float64(cfg.EmbedTimeout()))
	assert.Equal(t, 30e9, float64(cfg.StoreWriteTimeout()))
	assert.Equal(t, 10e9, float64(cfg.SearchArmTimeout()))
	assert.Equal(t, 15e9, float64(cfg.SearchTimeout()))
	assert.Equal(t, 60e9, float64(cfg.AcquireTimeout()))
}
