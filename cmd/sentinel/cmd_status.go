package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/t77yq/sentinel/internal/model"
)

// newStatusCmd creates the status subcommand
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current state of every alert",
		Long: `Show the lifecycle state of every alert: current status, consecutive
counters, last execution, active silence, and escalations. Configured
alerts that never ran appear as unset.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			states, err := a.states.List(cmd.Context())
			if err != nil {
				return err
			}

			// Configured alerts that never ran still get a row
			known := make(map[string]bool, len(states))
			for _, st := range states {
				known[st.AlertName] = true
			}
			for _, ac := range a.cfg.Alerts {
				if !known[ac.Name] {
					states = append(states, model.NewAlertState(ac.Name))
				}
			}
			sort.Slice(states, func(i, j int) bool {
				return states[i].AlertName < states[j].AlertName
			})

			now := time.Now().UTC()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ALERT\tSTATUS\tCONSECUTIVE\tLAST EXECUTION\tSILENCED UNTIL\tESCALATIONS")
			for _, st := range states {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
					st.AlertName,
					st.CurrentStatus,
					consecutiveColumn(st),
					formatTimePtr(st.LastExecutionAt),
					silenceColumn(st, now),
					st.EscalationCount)
			}
			return w.Flush()
		},
	}
}

// consecutiveColumn renders whichever consecutive run is active
func consecutiveColumn(st *model.AlertState) string {
	switch {
	case st.ConsecutiveAlerts > 0:
		return fmt.Sprintf("%d alerts", st.ConsecutiveAlerts)
	case st.ConsecutiveSuccesses > 0:
		return fmt.Sprintf("%d ok", st.ConsecutiveSuccesses)
	default:
		return "-"
	}
}

// silenceColumn shows the deadline only while the silence is active
func silenceColumn(st *model.AlertState, now time.Time) string {
	if st.SilenceUntil == nil || !st.SilenceUntil.After(now) {
		return "-"
	}
	return formatTime(*st.SilenceUntil)
}

// formatTime renders timestamps for table output
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}
