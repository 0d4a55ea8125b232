package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sungwon/newsletter/internal/queue"
)

// StatsResult is the JSON output of queue stats.
type StatsResult struct {
	Total   int64             `json:"total"`
	ByIssue []IssueStatResult `json:"by_issue"`
}

// IssueStatResult is one issue's queued task count.
type IssueStatResult struct {
	IssueID string `json:"newsletter_issue_id"`
	Pending int64  `json:"pending"`
}

// NewQueueCommand creates the queue command.
func NewQueueCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the delivery queue",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show queued delivery tasks per newsletter issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd, opts)
			if err != nil {
				return err
			}
			defer env.db.Close()

			stats, err := queue.ReadStats(commandContext(cmd), env.db.Queries())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read queue stats", err)
			}
			return writeStats(cmd.OutOrStdout(), opts.Format, stats)
		},
	})

	return cmd
}

func writeStats(w io.Writer, format string, stats queue.Stats) error {
	if format == "json" {
		result := StatsResult{Total: stats.Total, ByIssue: make([]IssueStatResult, 0, len(stats.ByIssue))}
		for _, d := range stats.ByIssue {
			result.ByIssue = append(result.ByIssue, IssueStatResult{IssueID: d.IssueID.String(), Pending: d.Pending})
		}
		return writeJSON(w, result)
	}

	if stats.Total == 0 {
		_, err := fmt.Fprintln(w, "Delivery queue is empty.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NEWSLETTER ISSUE\tPENDING")
	for _, d := range stats.ByIssue {
		fmt.Fprintf(tw, "%s\t%d\n", d.IssueID, d.Pending)
	}
	fmt.Fprintf(tw, "TOTAL\t%d\n", stats.Total)
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
