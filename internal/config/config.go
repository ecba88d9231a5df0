// Package config loads and validates configuration for the retrieval engine.
//
// Precedence, lowest to highest:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/knowledgeengine/config.yaml)
//  3. Project config (.knowledgeengine.yaml in the working directory)
//  4. Environment variables (KNOWLEDGEENGINE_*)
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking" json:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Search    RetrievalConfig `yaml:"search" json:"search"`
	Timeouts  TimeoutsConfig  `yaml:"timeouts" json:"timeouts"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Contextual ContextualConfig `yaml:"contextual" json:"contextual"`
	LogLevel  string          `yaml:"log_level" json:"log_level"`
}

// ContextualConfig configures the optional contextual-enrichment step that
// prepends a short situating description to each chunk before it is
// embedded.
type ContextualConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Host      string `yaml:"host" json:"host"`
	Model     string `yaml:"model" json:"model"`
	Timeout   string `yaml:"timeout" json:"timeout"`
	BatchSize int    `yaml:"batch_size" json:"batch_size"`
}

// ChunkingConfig configures the sentence-aware recursive splitter.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
	MinChunkSize int `yaml:"min_chunk_size" json:"min_chunk_size"`
}

// EmbeddingConfig configures the vectorizer and its batching behavior.
type EmbeddingConfig struct {
	ModelID      string `yaml:"model_id" json:"model_id"`
	Dimensions   int    `yaml:"dimensions" json:"dimensions"`
	Normalize    bool   `yaml:"normalize" json:"normalize"`
	BatchSize    int    `yaml:"batch_size" json:"batch_size"`
	MaxSeqLength int    `yaml:"max_seq_length" json:"max_seq_length"`
	Endpoint     string `yaml:"endpoint" json:"endpoint"`
}

// StoreConfig configures the graph/vector store connection.
type StoreConfig struct {
	URI                   string `yaml:"uri" json:"uri"`
	Username              string `yaml:"username" json:"username"`
	Password              string `yaml:"password" json:"password"`
	Database              string `yaml:"database" json:"database"`
	ConnectionPoolSize    int    `yaml:"connection_pool_size" json:"connection_pool_size"`
	AcquireTimeoutSeconds int    `yaml:"acquire_timeout_seconds" json:"acquire_timeout_seconds"`
	VectorIndexName       string `yaml:"vector_index_name" json:"vector_index_name"`
	MaxWalkDepth          int    `yaml:"max_walk_depth" json:"max_walk_depth"`
}

// CacheConfig configures the embedding and search result caches.
type CacheConfig struct {
	RedisAddr           string `yaml:"redis_addr" json:"redis_addr"`
	EmbeddingTTLSeconds int    `yaml:"embedding_ttl_seconds" json:"embedding_ttl_seconds"`
	SearchTTLSeconds    int    `yaml:"search_ttl_seconds" json:"search_ttl_seconds"`
	LocalLRUSize        int    `yaml:"local_lru_size" json:"local_lru_size"`
	PersistentCachePath string `yaml:"persistent_cache_path" json:"persistent_cache_path"`
}

// RetrievalConfig configures hybrid search ranking.
type RetrievalConfig struct {
	VectorWeight    float64 `yaml:"vector_weight" json:"vector_weight"`
	GraphWeight     float64 `yaml:"graph_weight" json:"graph_weight"`
	IntentWeight    float64 `yaml:"intent_weight" json:"intent_weight"`
	LanguageWeight  float64 `yaml:"language_weight" json:"language_weight"`
	ExactMatchBoost float64 `yaml:"exact_match_boost" json:"exact_match_boost"`
	ScoreFloor      float64 `yaml:"score_floor" json:"score_floor"`
	MaxResults      int     `yaml:"max_results" json:"max_results"`
	MaxQueryLength  int     `yaml:"max_query_length" json:"max_query_length"`
}

// TimeoutsConfig configures per-operation deadlines.
type TimeoutsConfig struct {
	EmbedSeconds      int `yaml:"embed_seconds" json:"embed_seconds"`
	StoreWriteSeconds int `yaml:"store_write_seconds" json:"store_write_seconds"`
	SearchArmSeconds  int `yaml:"search_arm_seconds" json:"search_arm_seconds"`
	SearchSeconds     int `yaml:"search_seconds" json:"search_seconds"`
}

// TelemetryConfig configures metrics export.
type TelemetryConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// QueryMetricsPath is the bbolt database path used to persist query
	// pattern telemetry (query type mix, top terms, zero-result queries,
	// latency distribution) across restarts. Empty keeps it in-memory only.
	QueryMetricsPath string `yaml:"query_metrics_path" json:"query_metrics_path"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			ChunkSize:    512,
			ChunkOverlap: 128,
			MinChunkSize: 50,
		},
		Embedding: EmbeddingConfig{
			ModelID:      "multilingual-e5-base",
			Dimensions:   768,
			Normalize:    true,
			BatchSize:    32,
			MaxSeqLength: 512,
			Endpoint:     "",
		},
		Store: StoreConfig{
			URI:                   "neo4j://localhost:7687",
			Username:              "neo4j",
			Password:              "",
			Database:              "neo4j",
			ConnectionPoolSize:    50,
			AcquireTimeoutSeconds: 60,
			VectorIndexName:       "chunk_embedding_idx",
			MaxWalkDepth:          5,
		},
		Cache: CacheConfig{
			RedisAddr:           "localhost:6379",
			EmbeddingTTLSeconds: 3600,
			SearchTTLSeconds:    300,
			LocalLRUSize:        1000,
			PersistentCachePath: defaultCachePath(),
		},
		Search: RetrievalConfig{
			VectorWeight:    0.40,
			GraphWeight:     0.30,
			IntentWeight:    0.20,
			LanguageWeight:  0.10,
			ExactMatchBoost: 1.2,
			ScoreFloor:      0.1,
			MaxResults:      20,
			MaxQueryLength:  1000,
		},
		Timeouts: TimeoutsConfig{
			EmbedSeconds:      30,
			StoreWriteSeconds: 30,
			SearchArmSeconds:  10,
			SearchSeconds:     15,
		},
		Telemetry: TelemetryConfig{
			Enabled:    true,
			ListenAddr: ":9090",
		},
		Contextual: ContextualConfig{
			Enabled:   false,
			Host:      "http://localhost:11434",
			Model:     "qwen3:0.6b",
			Timeout:   "5s",
			BatchSize: 8,
		},
		LogLevel: "info",
	}
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".knowledgeengine", "cache.db")
	}
	return filepath.Join(home, ".knowledgeengine", "cache.db")
}

// GetUserConfigPath returns the path to the user/global configuration file,
// honoring XDG_CONFIG_HOME when set.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "knowledgeengine", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "knowledgeengine", "config.yaml")
	}
	return filepath.Join(home, ".config", "knowledgeengine", "config.yaml")
}

// Load loads configuration for the given working directory, applying
// defaults, then user config, then project config, then environment
// overrides, and finally validating the result.
func Load(dir string) (*Config, error) {
	cfg := DefaultConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := DefaultConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".knowledgeengine.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}
	ymlPath := filepath.Join(dir, ".knowledgeengine.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero fields of other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Chunking.ChunkSize != 0 {
		c.Chunking.ChunkSize = other.Chunking.ChunkSize
	}
	if other.Chunking.ChunkOverlap != 0 {
		c.Chunking.ChunkOverlap = other.Chunking.ChunkOverlap
	}
	if other.Chunking.MinChunkSize != 0 {
		c.Chunking.MinChunkSize = other.Chunking.MinChunkSize
	}

	if other.Embedding.ModelID != "" {
		c.Embedding.ModelID = other.Embedding.ModelID
	}
	if other.Embedding.Dimensions != 0 {
		c.Embedding.Dimensions = other.Embedding.Dimensions
	}
	if other.Embedding.BatchSize != 0 {
		c.Embedding.BatchSize = other.Embedding.BatchSize
	}
	if other.Embedding.MaxSeqLength != 0 {
		c.Embedding.MaxSeqLength = other.Embedding.MaxSeqLength
	}
	if other.Embedding.Endpoint != "" {
		c.Embedding.Endpoint = other.Embedding.Endpoint
	}

	if other.Store.URI != "" {
		c.Store.URI = other.Store.URI
	}
	if other.Store.Username != "" {
		c.Store.Username = other.Store.Username
	}
	if other.Store.Password != "" {
		c.Store.Password = other.Store.Password
	}
	if other.Store.Database != "" {
		c.Store.Database = other.Store.Database
	}
	if other.Store.ConnectionPoolSize != 0 {
		c.Store.ConnectionPoolSize = other.Store.ConnectionPoolSize
	}
	if other.Store.AcquireTimeoutSeconds != 0 {
		c.Store.AcquireTimeoutSeconds = other.Store.AcquireTimeoutSeconds
	}
	if other.Store.VectorIndexName != "" {
		c.Store.VectorIndexName = other.Store.VectorIndexName
	}
	if other.Store.MaxWalkDepth != 0 {
		c.Store.MaxWalkDepth = other.Store.MaxWalkDepth
	}

	if other.Cache.RedisAddr != "" {
		c.Cache.RedisAddr = other.Cache.RedisAddr
	}
	if other.Cache.EmbeddingTTLSeconds != 0 {
		c.Cache.EmbeddingTTLSeconds = other.Cache.EmbeddingTTLSeconds
	}
	if other.Cache.SearchTTLSeconds != 0 {
		c.Cache.SearchTTLSeconds = other.Cache.SearchTTLSeconds
	}
	if other.Cache.LocalLRUSize != 0 {
		c.Cache.LocalLRUSize = other.Cache.LocalLRUSize
	}
	if other.Cache.PersistentCachePath != "" {
		c.Cache.PersistentCachePath = other.Cache.PersistentCachePath
	}

	if other.Search.VectorWeight != 0 {
		c.Search.VectorWeight = other.Search.VectorWeight
	}
	if other.Search.GraphWeight != 0 {
		c.Search.GraphWeight = other.Search.GraphWeight
	}
	if other.Search.IntentWeight != 0 {
		c.Search.IntentWeight = other.Search.IntentWeight
	}
	if other.Search.LanguageWeight != 0 {
		c.Search.LanguageWeight = other.Search.LanguageWeight
	}
	if other.Search.ExactMatchBoost != 0 {
		c.Search.ExactMatchBoost = other.Search.ExactMatchBoost
	}
	if other.Search.ScoreFloor != 0 {
		c.Search.ScoreFloor = other.Search.ScoreFloor
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.MaxQueryLength != 0 {
		c.Search.MaxQueryLength = other.Search.MaxQueryLength
	}

	if other.Timeouts.EmbedSeconds != 0 {
		c.Timeouts.EmbedSeconds = other.Timeouts.EmbedSeconds
	}
	if other.Timeouts.StoreWriteSeconds != 0 {
		c.Timeouts.StoreWriteSeconds = other.Timeouts.StoreWriteSeconds
	}
	if other.Timeouts.SearchArmSeconds != 0 {
		c.Timeouts.SearchArmSeconds = other.Timeouts.SearchArmSeconds
	}
	if other.Timeouts.SearchSeconds != 0 {
		c.Timeouts.SearchSeconds = other.Timeouts.SearchSeconds
	}

	if other.Telemetry.ListenAddr != "" {
		c.Telemetry.ListenAddr = other.Telemetry.ListenAddr
	}
	if other.Telemetry.QueryMetricsPath != "" {
		c.Telemetry.QueryMetricsPath = other.Telemetry.QueryMetricsPath
	}

	if other.Contextual.Host != "" {
		c.Contextual.Host = other.Contextual.Host
	}
	if other.Contextual.Model != "" {
		c.Contextual.Model = other.Contextual.Model
	}
	if other.Contextual.Timeout != "" {
		c.Contextual.Timeout = other.Contextual.Timeout
	}
	if other.Contextual.BatchSize != 0 {
		c.Contextual.BatchSize = other.Contextual.BatchSize
	}

	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies KNOWLEDGEENGINE_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KNOWLEDGEENGINE_STORE_URI"); v != "" {
		c.Store.URI = v
	}
	if v := os.Getenv("KNOWLEDGEENGINE_STORE_USERNAME"); v != "" {
		c.Store.Username = v
	}
	if v := os.Getenv("KNOWLEDGEENGINE_STORE_PASSWORD"); v != "" {
		c.Store.Password = v
	}
	if v := os.Getenv("KNOWLEDGEENGINE_CACHE_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("KNOWLEDGEENGINE_EMBEDDING_ENDPOINT"); v != "" {
		c.Embedding.Endpoint = v
	}
	if v := os.Getenv("KNOWLEDGEENGINE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("KNOWLEDGEENGINE_VECTOR_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.VectorWeight = w
		}
	}
	if v := os.Getenv("KNOWLEDGEENGINE_GRAPH_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.GraphWeight = w
		}
	}
	if v := os.Getenv("KNOWLEDGEENGINE_MAX_WALK_DEPTH"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d > 0 {
			c.Store.MaxWalkDepth = d
		}
	}
	if v := os.Getenv("KNOWLEDGEENGINE_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
}

func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// Validate validates the configuration, returning an error describing the
// first invariant violation found.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 {
		return fmt.Errorf("chunking.chunk_overlap must be non-negative, got %d", c.Chunking.ChunkOverlap)
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}

	if c.Store.ConnectionPoolSize <= 0 {
		return fmt.Errorf("store.connection_pool_size must be positive, got %d", c.Store.ConnectionPoolSize)
	}
	if c.Store.MaxWalkDepth <= 0 || c.Store.MaxWalkDepth > 5 {
		return fmt.Errorf("store.max_walk_depth must be between 1 and 5, got %d", c.Store.MaxWalkDepth)
	}

	sum := c.Search.VectorWeight + c.Search.GraphWeight + c.Search.IntentWeight + c.Search.LanguageWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("search ranking weights must sum to 1.0, got %.2f", sum)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// EmbedTimeout returns the configured embedding call timeout as a duration.
func (c *Config) EmbedTimeout() time.Duration {
	return time.Duration(c.Timeouts.EmbedSeconds) * time.Second
}

// StoreWriteTimeout returns the configured store write timeout as a duration.
func (c *Config) StoreWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.StoreWriteSeconds) * time.Second
}

// SearchArmTimeout returns the configured per-arm search timeout as a duration.
func (c *Config) SearchArmTimeout() time.Duration {
	return time.Duration(c.Timeouts.SearchArmSeconds) * time.Second
}

// SearchTimeout returns the configured overall search timeout as a duration.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.Timeouts.SearchSeconds) * time.Second
}

// AcquireTimeout returns the configured connection-pool acquire timeout.
func (c *Config) AcquireTimeout() time.Duration {
	return time.Duration(c.Store.AcquireTimeoutSeconds) * time.Second
}

// EmbeddingCacheTTL returns the configured embedding cache entry lifetime.
func (c *Config) EmbeddingCacheTTL() time.Duration {
	return time.Duration(c.Cache.EmbeddingTTLSeconds) * time.Second
}

// SearchCacheTTL returns the configured search result cache entry lifetime.
func (c *Config) SearchCacheTTL() time.Duration {
	return time.Duration(c.Cache.SearchTTLSeconds) * time.Second
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
