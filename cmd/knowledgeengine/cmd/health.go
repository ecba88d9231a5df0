package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check store and embedder readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := buildEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			report := engine.HealthReport(cmd.Context())
			for _, c := range report.Components {
				status := "ok"
				if !c.Healthy {
					status = "FAIL: " + c.Message
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", c.Name, status)
			}
			if !report.Healthy {
				return fmt.Errorf("one or more components are unhealthy")
			}
			return nil
		},
	}
}
