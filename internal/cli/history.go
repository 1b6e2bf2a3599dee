package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals from the local conversion history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openHistory()
			if err != nil {
				return err
			}
			defer repo.Close()

			stats, err := repo.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "total=%d completed=%d failed=%d\n", stats.Total, stats.Completed, stats.Failed)
			fmt.Fprintf(out, "uploaded=%s avg_time=%s\n",
				humanize.IBytes(uint64(stats.TotalBytes)), stats.AvgDuration.Round(100*time.Millisecond))
			return nil
		},
	}
}

func newHistoryCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openHistory()
			if err != nil {
				return err
			}
			defer repo.Close()

			entries, err := repo.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no conversions yet")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FINISHED\tSTATUS\tFILE\tSIZE\tRESULT")
			for _, e := range entries {
				result := e.DownloadURL
				if e.Error != "" {
					result = e.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.FinishedAt.Local().Format("2006-01-02 15:04"), e.Status, e.FileName,
					humanize.IBytes(uint64(e.FileSize)), result)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Max rows")
	return cmd
}
