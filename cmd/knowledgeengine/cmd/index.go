package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	var sourceName string
	var declaredLang string

	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Index a document's text into the graph-vector store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			name := sourceName
			if name == "" {
				name = path
			}

			engine, cleanup, err := buildEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := engine.IndexDocument(cmd.Context(), string(data), name, declaredLang)
			if err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("indexing failed in %s phase: %w", result.ErrorCategory, result.Err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "indexed %s: %d chunks created, %d stored, language=%s, took %s\n",
				name, result.ChunksCreated, result.ChunksIndexed, result.LanguageDetected, result.Duration)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "source document name (defaults to the file path)")
	cmd.Flags().StringVar(&declaredLang, "lang", "auto", "declared language tag, or \"auto\" to detect")

	return cmd
}
