package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpggio/waitwatch/internal/domain/estimate"
	"github.com/rpggio/waitwatch/internal/domain/queue"
)

// PredictCmd returns the predict command.
func PredictCmd() *cobra.Command {
	var (
		at               string
		weekday          int
		hour             int
		scheduledMinutes float64
		toleranceMinutes float64
		mode             string
		excludeOutliers  bool
		source           string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the wait for a time or weekday/hour",
		Long: `Predict the wait from stored history.

Examples:
  waitctl predict                          # now, in the site time zone
  waitctl predict --weekday 1 --hour 10    # Mondays at 10:00
  waitctl predict --at 2024-03-05T14:20:00Z --mode average`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeDB, err := openApp()
			if err != nil {
				return err
			}
			defer closeDB()

			when, err := parseTimeFlag("at", at)
			if err != nil {
				return err
			}
			if when.IsZero() {
				when = a.Clock.Now()
			}

			c := estimate.ContextFor(when, a.Estimate.Location())
			if cmd.Flags().Changed("weekday") {
				c.Weekday = time.Weekday(weekday)
			}
			if cmd.Flags().Changed("hour") {
				c.Hour = hour
			}
			c.Duration = time.Duration(scheduledMinutes * float64(time.Minute))
			c.Tolerance = time.Duration(toleranceMinutes * float64(time.Minute))
			req := estimate.Request{Context: c, ExcludeOutliers: excludeOutliers, Source: source}

			var pred *estimate.Prediction
			switch queue.Mode(mode) {
			case queue.ModeSequential:
				pred, err = a.Estimate.Predict(cmd.Context(), req)
			case queue.ModeAverage:
				pred, err = a.Estimate.PredictFromAverage(cmd.Context(), req)
			default:
				return fmt.Errorf("unknown mode %q (want sequential or average)", mode)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Predicted wait: %s %s\n",
				formatMinutes(pred.Seconds),
				categoryColor(pred.Category).Sprintf("(%s)", pred.Category))
			fmt.Fprintf(out, "Context: %s %02d:00, %d samples, covariance %.1f\n",
				pred.Weekday, pred.Hour, pred.Samples, pred.Covariance)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Arrival time as RFC3339 (default now)")
	cmd.Flags().IntVar(&weekday, "weekday", 0, "Day of week, 0 is Sunday (overrides --at)")
	cmd.Flags().IntVar(&hour, "hour", 0, "Hour of day 0-23 (overrides --at)")
	cmd.Flags().Float64Var(&scheduledMinutes, "scheduled-minutes", 0, "Only use visits of about this length")
	cmd.Flags().Float64Var(&toleranceMinutes, "tolerance-minutes", 0, "Allowed difference from --scheduled-minutes")
	cmd.Flags().StringVar(&mode, "mode", string(queue.ModeSequential), "sequential or average")
	cmd.Flags().BoolVar(&excludeOutliers, "exclude-outliers", false, "Drop unusually long waits")
	cmd.Flags().StringVar(&source, "source", "", "Camera source (default all)")

	return cmd
}
