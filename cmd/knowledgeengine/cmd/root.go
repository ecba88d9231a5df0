// Package cmd provides the CLI commands for knowledgeengine.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/knowledgeengine/core/internal/config"
	"github.com/knowledgeengine/core/internal/embed"
	internalerrors "github.com/knowledgeengine/core/internal/errors"
	"github.com/knowledgeengine/core/internal/graphstore"
	"github.com/knowledgeengine/core/internal/logging"
	"github.com/knowledgeengine/core/internal/retrieval"

	bolt "go.etcd.io/bbolt"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the knowledgeengine CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "knowledgeengine",
		Short: "Multilingual semantic knowledge-retrieval engine",
		Long: `knowledgeengine indexes documents into a graph-vector store and answers
queries with hybrid search: dense-vector similarity fused with graph
traversal, re-ranked by a weighted scoring model.`,
		SilenceUsage: true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.knowledgeengine/logs/")
	root.PersistentPreRunE = startLogging
	root.PersistentPostRunE = stopLogging

	root.AddCommand(newIndexCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newWalkCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newHealthCmd())

	return root
}

// Execute runs the root command, printing any returned error in the
// same user/debug format the engine itself uses for its structured errors.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, internalerrors.FormatForUser(err, debugMode))
	}
	return err
}

func startLogging(*cobra.Command, []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func stopLogging(*cobra.Command, []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// buildEngine loads configuration for the current directory and wires a
// retrieval.Engine over a Neo4j store and an HTTP-backed, locally cached
// embedder. Every subcommand shares this construction path.
func buildEngine(ctx context.Context) (*retrieval.Engine, func(), error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	store, err := graphstore.NewNeo4jStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to store: %w", err)
	}

	httpEmbedder, err := embed.NewHTTPEmbedder(ctx, embed.HTTPConfig{
		Endpoint:     cfg.Embedding.Endpoint,
		ModelID:      cfg.Embedding.ModelID,
		Dimensions:   cfg.Embedding.Dimensions,
		MaxSeqLength: cfg.Embedding.MaxSeqLength,
		Normalize:    cfg.Embedding.Normalize,
		BatchSize:    cfg.Embedding.BatchSize,
		Timeout:      cfg.EmbedTimeout(),
		MaxRetries:   embed.DefaultMaxRetries,
		PoolSize:     embed.HTTPPoolSize,
	})
	if err != nil {
		_ = store.Close(ctx)
		return nil, nil, fmt.Errorf("connect to embedder: %w", err)
	}

	var persistent *bolt.DB
	if cfg.Cache.PersistentCachePath != "" {
		persistent, err = bolt.Open(cfg.Cache.PersistentCachePath, 0o600, nil)
		if err != nil {
			slog.Warn("failed to open persistent embedding cache, continuing without it", slog.String("error", err.Error()))
			persistent = nil
		}
	}

	cachedEmbedder, err := embed.NewCachedEmbedder(
		httpEmbedder,
		cfg.Cache.LocalLRUSize,
		persistent,
		cfg.EmbeddingCacheTTL(),
	)
	if err != nil {
		_ = store.Close(ctx)
		return nil, nil, fmt.Errorf("build embedding cache: %w", err)
	}

	engine, err := retrieval.New(ctx, cfg, store, cachedEmbedder)
	if err != nil {
		_ = store.Close(ctx)
		return nil, nil, fmt.Errorf("build engine: %w", err)
	}

	cleanup := func() {
		if err := engine.Close(ctx); err != nil {
			slog.Warn("engine shutdown reported an error", slog.String("error", err.Error()))
		}
		if persistent != nil {
			_ = persistent.Close()
		}
	}
	return engine, cleanup, nil
}
