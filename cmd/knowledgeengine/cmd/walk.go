package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newWalkCmd() *cobra.Command {
	var maxDepth int
	var intentFilter string
	var format string

	cmd := &cobra.Command{
		Use:   "walk <chunk-hash>",
		Short: "Walk the graph outward from a chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := buildEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			paths, err := engine.Walk(cmd.Context(), args[0], maxDepth, intentFilter)
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(paths)
			}

			if len(paths) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no paths from %s\n", args[0])
				return nil
			}
			for i, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (confidence=%.3f, hops=%s)\n",
					i+1, strings.Join(p.NodeHashes, " -> "), p.Confidence, strconv.Itoa(len(p.NodeHashes)-1))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxDepth, "max-depth", 3, "maximum traversal depth (capped at 5)")
	cmd.Flags().StringVar(&intentFilter, "intent", "", "only include paths touching this intent")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json")

	return cmd
}
