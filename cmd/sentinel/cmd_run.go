package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/t77yq/sentinel/internal/config"
	"github.com/t77yq/sentinel/internal/executor"
	"github.com/t77yq/sentinel/internal/model"
)

// newRunCmd creates the run subcommand
func newRunCmd() *cobra.Command {
	var all bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run [alert ...]",
		Short: "Evaluate alerts once",
		Long: `Evaluate the named alerts exactly once and record the outcome. With
--all every enabled alert runs; naming an alert explicitly runs it even
when disabled. With --dry-run the decision is computed and printed but
nothing is notified or persisted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("name at least one alert or pass --all")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			p, err := buildPipeline(a)
			if err != nil {
				return err
			}
			defer p.close()

			targets, err := selectAlerts(a.cfg, args, all)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			failed := 0
			for _, ac := range targets {
				alert := a.cfg.Alert(ac)

				started := time.Now()
				checkRes, execErr := p.runner.Run(ctx, alert)

				res, err := p.orchestrator.Evaluate(ctx, executor.Request{
					Alert:       alert,
					Result:      checkRes,
					ExecErr:     execErr,
					Duration:    time.Since(started),
					Behavior:    a.cfg.Behavior(ac),
					TriggeredBy: model.TriggeredByManual,
					DryRun:      dryRun,
				})
				if err != nil {
					// Storage failures would repeat on every target
					return err
				}

				printEvaluation(res, checkRes)
				if res.Status == model.ExecutionStatusError {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d evaluations reported errors", failed, len(targets))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "evaluate every enabled alert")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute decisions without notifying or persisting")
	return cmd
}

// selectAlerts resolves the run targets, preserving configuration order
func selectAlerts(cfg *config.Config, names []string, all bool) ([]config.AlertConfig, error) {
	if all {
		var targets []config.AlertConfig
		for _, ac := range cfg.Alerts {
			if ac.IsEnabled() {
				targets = append(targets, ac)
			}
		}
		if len(targets) == 0 {
			return nil, fmt.Errorf("no enabled alerts configured")
		}
		return targets, nil
	}

	var targets []config.AlertConfig
	for _, name := range names {
		ac, ok := cfg.FindAlert(name)
		if !ok {
			return nil, fmt.Errorf("unknown alert: %s", name)
		}
		targets = append(targets, ac)
	}
	return targets, nil
}

// printEvaluation renders one evaluation outcome for the terminal
func printEvaluation(res *model.ExecutionResult, check *model.CheckResult) {
	fmt.Printf("%-24s %-8s %s", res.AlertName, res.Status, res.Duration.Round(time.Millisecond))
	if check != nil && check.ActualValue != nil {
		fmt.Printf("  value=%s", formatFloat(*check.ActualValue))
		if check.Threshold != nil {
			fmt.Printf(" threshold=%s", formatFloat(*check.Threshold))
		}
	}
	switch {
	case res.DryRun && res.ShouldNotify:
		fmt.Print("  would notify")
	case res.NotificationSent:
		fmt.Print("  notified")
	}
	if res.Error != "" {
		fmt.Printf("  error=%q", res.Error)
	}
	fmt.Println()
}

// formatFloat renders values without trailing zeros
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
