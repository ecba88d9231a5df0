package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store counts and facet breakdowns",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := buildEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := engine.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "chunks:    %d\n", stats.ChunkCount)
			fmt.Fprintf(out, "documents: %d\n", stats.DocumentCount)
			fmt.Fprintf(out, "healthy:   %t\n", stats.Healthy)
			fmt.Fprintf(out, "languages: %v\n", stats.Facets.Languages)
			fmt.Fprintf(out, "intents:   %v\n", stats.Facets.Intents)
			if stats.Queries != nil {
				fmt.Fprintf(out, "queries:   %d total, %.1f%% zero-result\n",
					stats.Queries.TotalQueries, stats.Queries.ZeroResultPercentage())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json")
	return cmd
}
