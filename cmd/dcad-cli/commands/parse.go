package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"dcad-backend/internal/assembler"
	"dcad-backend/internal/telemetry"
	"dcad-backend/lib/util/serviceutil"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var (
	parseHistory           *string
	parseExemptions        *string
	parseExemptionsHistory *string
	parseFormat            *string
)

func init() {
	parseHistory = parseCmd.Flags().String("history", "", "The saved account history page.")
	parseExemptions = parseCmd.Flags().String("exemptions", "", "The saved exemption details page.")
	parseExemptionsHistory = parseCmd.Flags().String("exemptions-history", "", "The saved exemption details history page.")
	parseFormat = parseCmd.Flags().StringP("format", "f", "json", "The output format, json or yaml.")
	rootCmd.AddCommand(parseCmd)
}

func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(contents), nil
}

func writeRecord(w io.Writer, rec any, format string) error {
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	switch format {
	case "json":
	case "yaml":
		// through json so the sentinel and bucket marshalling applies
		out, err = yaml.JSONToYAML(out)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

var parseCmd = &cobra.Command{
	Use:   "parse <account.html> [--history <file>] [--exemptions <file>] [--exemptions-history <file>] [--format json|yaml]",
	Short: "Extracts a property record from saved pages without touching the network.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var docs assembler.Documents
		var err error
		files := []struct {
			path string
			out  *string
		}{
			{args[0], &docs.Account},
			{*parseHistory, &docs.History},
			{*parseExemptions, &docs.ExemptionDetails},
			{*parseExemptionsHistory, &docs.ExemptionDetailsHistory},
		}
		for _, f := range files {
			*f.out, err = readOptional(f.path)
			if err != nil {
				serviceutil.Fatal("read document", err)
			}
		}

		engine := assembler.NewEngine(telemetry.SlogAPI{})
		rec, err := engine.Extract(cmd.Context(), docs)
		if err != nil {
			serviceutil.Fatal("extract", err)
		}
		err = writeRecord(cmd.OutOrStdout(), rec, *parseFormat)
		if err != nil {
			serviceutil.Fatal("write record", err)
		}
	},
}

