package commands

import (
	"log/slog"
	"time"

	"dcad-backend/internal/batch"
	"dcad-backend/lib/telemetry"
	"dcad-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var (
	batchWorkers *int
	batchDelay   *time.Duration
	batchRunID   *string
)

func init() {
	batchWorkers = batchCmd.Flags().IntP("workers", "w", 0, "The number of accounts scraped at once, overrides the config.")
	batchDelay = batchCmd.Flags().Duration("delay", 0, "The minimum time between two accounts, overrides the config.")
	batchRunID = batchCmd.Flags().String("run-id", "", "The id the run is stored under, a random one by default.")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch <accounts.csv | id,id,...> [--workers <n>] [--delay <duration>]",
	Short: "Scrapes and stores many accounts, failures are reported at the end.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		accounts, err := batch.ReadAccounts(args[0])
		if err != nil {
			// invalid ids are skipped, the rest still run
			slog.Warn("skipping invalid accounts", "err", err)
		}
		if len(accounts) == 0 {
			slog.Info("no accounts to scrape")
			return
		}

		cfg, components, release := openComponents(cmd.Context())
		defer release()
		telemetry.InstrumentPerfStats(cmd.Context())

		opts := cfg.BatchOptions()
		if *batchWorkers > 0 {
			opts.Workers = *batchWorkers
		}
		if *batchDelay > 0 {
			opts.Delay = *batchDelay
		}
		opts.RunID = *batchRunID

		start := time.Now()
		summary, err := components.Runner.Run(cmd.Context(), accounts, opts)
		slog.Info(
			"batch finished",
			"run_id", summary.RunID,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
			"seconds", time.Since(start).Seconds(),
		)
		if err != nil {
			serviceutil.Fatal("batch had failures", err)
		}
	},
}
