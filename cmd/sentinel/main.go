package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version info (set by ldflags)
	version = "dev"

	// Flags
	configPath string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sentinel",
		Short: "SQL-driven alert evaluation daemon",
		Long: `sentinel evaluates SQL-defined alert conditions against a database and
notifies the configured channels when a condition enters the ALERT
state. Per-alert lifecycle state and the execution history live in a
local SQLite database.

Setup:
  sentinel init                  Create the state and history schema
  sentinel validate              Check the configuration file

Evaluation:
  sentinel run --all --dry-run   Evaluate every enabled alert once, no side effects
  sentinel daemon                Run scheduled evaluations in the foreground

Inspection:
  sentinel status                Current state of every alert
  sentinel history --alert X     Past evaluations, most recent first
  sentinel stats                 Aggregated execution outcomes`,
		Version: version,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default sentinel.yaml in . or ./config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(
		newInitCmd(),
		newValidateCmd(),
		newRunCmd(),
		newDaemonCmd(),
		newStatusCmd(),
		newHistoryCmd(),
		newStatsCmd(),
		newSilenceCmd(),
		newUnsilenceCmd(),
		newCleanupCmd(),
		newHealthcheckCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
