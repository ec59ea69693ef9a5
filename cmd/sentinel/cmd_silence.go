package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newSilenceCmd creates the silence subcommand
func newSilenceCmd() *cobra.Command {
	var forDur time.Duration
	var until string

	cmd := &cobra.Command{
		Use:   "silence <alert>",
		Short: "Suppress notifications for an alert",
		Long: `Suppress notifications for one alert until the given time. Evaluations
keep running and recording history; only the notification step is
skipped. Exactly one of --for and --until must be given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deadline, err := silenceDeadline(time.Now().UTC(), forDur, until)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			// Catch typos before creating a state row nothing reads
			if _, ok := a.cfg.FindAlert(args[0]); !ok {
				return fmt.Errorf("unknown alert: %s", args[0])
			}

			if err := a.states.Silence(cmd.Context(), args[0], deadline); err != nil {
				return err
			}
			fmt.Printf("%s silenced until %s\n", args[0], deadline.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&forDur, "for", 0, "silence duration (e.g. 2h)")
	cmd.Flags().StringVar(&until, "until", "", "silence deadline (RFC 3339)")
	return cmd
}

// newUnsilenceCmd creates the unsilence subcommand
func newUnsilenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unsilence <alert>",
		Short: "Clear an active silence",
		Long: `Clear an active silence so the alert notifies again on its next ALERT
evaluation. Works even for alerts no longer in the configuration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.states.Unsilence(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("%s unsilenced\n", args[0])
			return nil
		},
	}
}

// silenceDeadline resolves the mutually exclusive --for and --until flags
func silenceDeadline(now time.Time, forDur time.Duration, until string) (time.Time, error) {
	switch {
	case forDur > 0 && until != "":
		return time.Time{}, fmt.Errorf("--for and --until are mutually exclusive")
	case forDur > 0:
		return now.Add(forDur), nil
	case until != "":
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --until value: %w", err)
		}
		if !t.After(now) {
			return time.Time{}, fmt.Errorf("--until must be in the future")
		}
		return t.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("either --for or --until is required")
	}
}
