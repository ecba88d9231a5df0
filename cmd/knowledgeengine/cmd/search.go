package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/knowledgeengine/core/internal/retrieval"
)

func newSearchCmd() *cobra.Command {
	var language, intent, phase, format string
	var k int
	var noCache bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid vector + graph search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			engine, cleanup, err := buildEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := engine.Search(cmd.Context(), retrieval.SearchRequest{
				Query:    query,
				Language: language,
				Intent:   intent,
				Phase:    phase,
				K:        k,
				UseCache: !noCache,
			})
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			if len(results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no results for %q\n", query)
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. [%s] %s (score=%.3f, lang=%s)\n",
					i+1, r.ResultType, r.ChunkHash, r.CombinedScore, r.Language)
				fmt.Fprintf(cmd.OutOrStdout(), "   %s\n", truncate(r.Content, 160))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "filter by language tag")
	cmd.Flags().StringVar(&intent, "intent", "", "filter/score by intent name")
	cmd.Flags().StringVar(&phase, "phase", "", "filter by phase metadata")
	cmd.Flags().IntVarP(&k, "k", "n", 10, "maximum number of results (1-100)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the search result cache")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json")

	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
