package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rpggio/waitwatch/internal/sim"
)

// SimulateCmd returns the simulate command that seeds history with synthetic sessions.
func SimulateCmd() *cobra.Command {
	var (
		sessions int
		days     int
		seed     uint64
		source   string
		meanWait time.Duration
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Insert simulated closed sessions",
		Long: `Generate closed sessions with Poisson arrivals per hour and exponential
wait durations, ending now, and store them in one transaction.

Examples:
  waitctl simulate                         # 100 sessions over the last day
  waitctl simulate --sessions 2000 --days 14 --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeDB, err := openApp()
			if err != nil {
				return err
			}
			defer closeDB()

			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			generated, err := sim.Generate(sim.Config{
				Sessions: sessions,
				Days:     days,
				End:      a.Clock.Now(),
				MeanWait: meanWait,
				Source:   source,
				Seed:     seed,
			})
			if err != nil {
				return err
			}
			if len(generated) > 0 {
				if err := a.Sessions.BulkInsert(cmd.Context(), generated); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s inserted %d simulated sessions over %d day(s) on source %q\n",
				color.GreenString("✓"), len(generated), days, source)
			return nil
		},
	}

	cmd.Flags().IntVar(&sessions, "sessions", 100, "Expected number of sessions")
	cmd.Flags().IntVar(&days, "days", 1, "Days in the simulated window, ending now")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (0 picks one from the clock)")
	cmd.Flags().StringVar(&source, "source", sim.DefaultSource, "Source name for simulated sessions")
	cmd.Flags().DurationVar(&meanWait, "mean-wait", sim.DefaultMeanWait, "Mean wait duration")

	return cmd
}
