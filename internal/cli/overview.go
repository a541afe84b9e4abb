package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rpggio/waitwatch/internal/domain/aggregate"
	"github.com/rpggio/waitwatch/internal/domain/estimate"
)

// OverviewCmd returns the overview command.
func OverviewCmd() *cobra.Command {
	var (
		hours           int
		top             int
		excludeOutliers bool
		source          string
	)

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Summarize arrivals and waits for a recent window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hours <= 0 {
				return fmt.Errorf("--hours must be positive")
			}
			a, closeDB, err := openApp()
			if err != nil {
				return err
			}
			defer closeDB()

			end := a.Clock.Now()
			q := aggregate.Query{
				Window:          aggregate.Window{Start: end.Add(-time.Duration(hours) * time.Hour), End: end},
				Source:          source,
				ExcludeOutliers: excludeOutliers,
			}

			ctx := cmd.Context()
			ov, err := a.Aggregate.Overview(ctx, q)
			if err != nil {
				return err
			}
			bins, err := a.Aggregate.WaitDistribution(ctx, q, aggregate.DefaultBinSeconds)
			if err != nil {
				return err
			}
			longest, err := a.Aggregate.LongestWaits(ctx, q, top)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			heading := color.New(color.Bold)
			heading.Fprintf(out, "Last %d hour(s)\n", hours)
			fmt.Fprintf(out, "Arrivals:        %d\n", ov.TotalArrivals)
			fmt.Fprintf(out, "Completed waits: %d\n", ov.CompletedWaits)
			fmt.Fprintf(out, "Waiting now:     %d\n", ov.OpenSessions)
			if ov.CompletedWaits > 0 {
				fmt.Fprintf(out, "Average wait:    %s %s\n",
					formatMinutes(ov.AvgWaitSeconds),
					categoryColor(estimate.CategoryFor(ov.AvgWaitSeconds)).Sprintf("(%s)", estimate.CategoryFor(ov.AvgWaitSeconds)))
				fmt.Fprintf(out, "Shortest:        %s\n", formatMinutes(ov.MinWaitSeconds))
				fmt.Fprintf(out, "Longest:         %s\n", formatMinutes(ov.MaxWaitSeconds))
			}

			if len(bins) > 0 {
				fmt.Fprintln(out)
				heading.Fprintln(out, "Distribution")
				for _, b := range bins {
					fmt.Fprintf(out, "%-12s %4d\n", b.Label, b.Count)
				}
			}

			if len(longest) > 0 {
				fmt.Fprintln(out)
				heading.Fprintln(out, "Longest waits")
				for _, sess := range longest {
					d, _ := sess.Duration()
					fmt.Fprintf(out, "%-10s %-10s %s  %s\n",
						sess.Source, sess.Identity,
						sess.EnteredAt.In(a.Estimate.Location()).Format("Mon 15:04"),
						formatMinutes(d))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 24, "Window length in hours, ending now")
	cmd.Flags().IntVar(&top, "top", 5, "Number of longest waits to list")
	cmd.Flags().BoolVar(&excludeOutliers, "exclude-outliers", false, "Drop unusually long waits")
	cmd.Flags().StringVar(&source, "source", "", "Camera source (default all)")

	return cmd
}
