package commands

import (
	"log/slog"

	"dcad-backend/lib/util/serviceutil"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var scrapeFormat *string

func init() {
	scrapeFormat = scrapeCmd.Flags().StringP("format", "f", "json", "The output format, json or yaml.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <account-id> [--format json|yaml]",
	Short: "Fetches, extracts, archives and stores a single account.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, components, release := openComponents(cmd.Context())
		defer release()

		runID := uuid.NewString()
		rec, err := components.Runner.Process(cmd.Context(), runID, args[0])
		if err != nil {
			serviceutil.Fatal("scrape", err)
		}
		slog.Info("stored record", "account_id", args[0], "run_id", runID, "summary", rec.Summary())

		err = writeRecord(cmd.OutOrStdout(), rec, *scrapeFormat)
		if err != nil {
			serviceutil.Fatal("write record", err)
		}
	},
}
