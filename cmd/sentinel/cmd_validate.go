package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/t77yq/sentinel/internal/config"
)

// newValidateCmd creates the validate subcommand
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long: `Load the configuration, apply defaults and environment overrides, and
print what would run. Exits nonzero when the configuration is invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			printConfigSummary(cfg)
			return nil
		},
	}
}

// printConfigSummary renders the validated configuration for the terminal
func printConfigSummary(cfg *config.Config) {
	fmt.Println("Configuration OK")
	fmt.Println()
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	if cfg.Database.CheckDSN != "" {
		fmt.Printf("Check DB:  %s\n", cfg.Database.CheckDSN)
	}
	if cfg.Metrics.Enabled {
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Listen)
	}

	fmt.Printf("Channels:  %d\n", len(cfg.Channels))
	for _, ch := range cfg.Channels {
		fmt.Printf("  %-24s %s\n", ch.Name, ch.Type)
	}

	enabled := 0
	for _, ac := range cfg.Alerts {
		if ac.IsEnabled() {
			enabled++
		}
	}
	fmt.Printf("Alerts:    %d (%d enabled)\n", len(cfg.Alerts), enabled)
	for _, ac := range cfg.Alerts {
		alert := cfg.Alert(ac)
		suffix := ""
		if !alert.Enabled {
			suffix = "  (disabled)"
		}
		fmt.Printf("  %-24s %s%s\n", alert.Name, alert.Schedule, suffix)
	}
}
