package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/t77yq/sentinel/internal/model"
	"github.com/t77yq/sentinel/internal/storage"
)

// newHistoryCmd creates the history subcommand
func newHistoryCmd() *cobra.Command {
	var alertName string
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past evaluations, most recent first",
		Long: `Page through the execution history. Without --alert every alert's
records are shown interleaved by execution time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			records, err := a.ledger.Query(cmd.Context(), storage.LedgerQuery{
				AlertName: alertName,
				Limit:     limit,
				Offset:    offset,
			})
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println("No executions recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EXECUTED AT\tALERT\tSTATUS\tDURATION\tVALUE\tNOTIFIED\tERROR")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					formatTime(rec.ExecutedAt),
					rec.AlertName,
					rec.Status,
					time.Duration(rec.DurationMS)*time.Millisecond,
					valueColumn(rec),
					notifiedColumn(rec),
					rec.ErrorMessage)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&alertName, "alert", "", "restrict to one alert")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum records to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")
	return cmd
}

// valueColumn renders actual/threshold when the probe reported them
func valueColumn(rec *model.ExecutionRecord) string {
	if rec.ActualValue == nil {
		return "-"
	}
	if rec.Threshold == nil {
		return formatFloat(*rec.ActualValue)
	}
	return fmt.Sprintf("%s/%s", formatFloat(*rec.ActualValue), formatFloat(*rec.Threshold))
}

// notifiedColumn distinguishes clean deliveries from partial failures
func notifiedColumn(rec *model.ExecutionRecord) string {
	switch {
	case rec.NotificationSent && rec.NotificationError != "":
		return "partial"
	case rec.NotificationSent:
		return "yes"
	case rec.NotificationError != "":
		return "failed"
	default:
		return "-"
	}
}
