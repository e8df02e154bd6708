package commands

import (
	"io"
	"strings"
	"time"

	"dcad-backend/internal/jurisdiction"
	"dcad-backend/internal/service"
	"dcad-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var showRefresh *bool

func init() {
	showRefresh = showCmd.Flags().Bool("refresh", false, "Scrape the account live instead of reading the stored snapshot.")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <account-id> [--refresh]",
	Short: "Prints a summary of the latest stored record of an account.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, components, release := openComponents(cmd.Context())
		defer release()

		detail, err := components.Service.Detail(cmd.Context(), args[0], *showRefresh)
		if err != nil {
			serviceutil.Fatal("show", err)
		}
		renderDetail(cmd.OutOrStdout(), detail)
	},
}

func detailRows(detail service.Detail) []table.Row {
	rec := detail.Record
	stored := "-"
	if detail.StoredAt != nil {
		stored = detail.StoredAt.Local().Format(time.ANSIC)
	}

	rows := []table.Row{
		{"Account", detail.AccountID},
		{"Source", detail.Source},
		{"Stored at", stored},
		{"Tax year", rec.TaxYear.String()},
		{"Address", rec.PropertyLocation.Address.String()},
		{"Neighborhood", rec.PropertyLocation.Neighborhood.String()},
		{"Owner", rec.Owner.OwnerName.String()},
		{"Mailing address", rec.Owner.MailingAddress.String()},
		{"Legal description", strings.Join(rec.LegalDescription.Lines, " / ")},
		{"Deed transfer", rec.LegalDescription.DeedTransferDate.String()},
		{"Improvement value", rec.ValueSummary.ImprovementValue.String()},
		{"Land value", rec.ValueSummary.LandValue.String()},
		{"Market value", rec.ValueSummary.MarketValue.String()},
		{"Capped value", rec.ValueSummary.CappedValue.String()},
		{"Year built", rec.MainImprovement.YearBuilt.String()},
		{"Living area", rec.MainImprovement.TotalLivingArea.String()},
	}
	for _, bucket := range jurisdiction.All {
		tax := rec.EstimatedTaxes.Jurisdictions.Get(bucket)
		rows = append(rows, table.Row{
			"Taxes: " + string(bucket),
			tax.TaxingUnit.String() + " " + tax.EstimatedTaxes.String(),
		})
	}
	rows = append(rows, table.Row{"Estimated taxes", rec.EstimatedTaxes.Total.String()})
	return rows
}

func renderDetail(w io.Writer, detail service.Detail) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows(detailRows(detail))
	t.SetStyle(table.StyleRounded)
	t.Render()
}
