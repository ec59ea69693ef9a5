package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/t77yq/sentinel/internal/health"
)

// newHealthcheckCmd creates the healthcheck subcommand
func newHealthcheckCmd() *cobra.Command {
	var maxCPU float64
	var maxMemory float64

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Run health checks and exit nonzero on failure",
		Long: `Check database reachability, channel construction, and system resource
headroom. Exits nonzero when any check fails; suitable for container
health probes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			// Constructing the pipeline exercises channel transports,
			// including the NATS connection
			p, err := buildPipeline(a)
			if err != nil {
				return err
			}
			defer p.close()

			checker := health.NewChecker(a.logger)
			checker.Register("database", health.DatabasePing(a.db))
			checker.Register("channels", health.ChannelsRegistered(channelNames(a.cfg), p.dispatcher.Names))
			checker.Register("resources", health.SystemResources(maxCPU, maxMemory))

			results := checker.Run(cmd.Context())
			failed := 0
			for _, r := range results {
				mark := "ok"
				if r.Status != health.StatusOK {
					mark = "FAILED"
					failed++
				}
				fmt.Printf("%-12s %-7s %4dms", r.Name, mark, r.DurationMS)
				if r.Detail != "" {
					fmt.Printf("  %s", r.Detail)
				}
				fmt.Println()
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&maxCPU, "max-cpu", 90, "CPU usage threshold in percent")
	cmd.Flags().Float64Var(&maxMemory, "max-memory", 90, "memory usage threshold in percent")
	return cmd
}
