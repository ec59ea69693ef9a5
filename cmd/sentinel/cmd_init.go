package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newInitCmd creates the init subcommand
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the sentinel database schema",
		Long: `Create the SQLite schema holding per-alert lifecycle state and the
append-only execution history. Safe to run repeatedly; existing data is
never touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Printf("Database ready at %s\n", a.cfg.Database.Path)
			return nil
		},
	}
}
