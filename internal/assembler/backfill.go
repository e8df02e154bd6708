package assembler

import (
	"dcad-backend/internal/extract"
	"dcad-backend/internal/jurisdiction"
	"dcad-backend/internal/normalize"
	"dcad-backend/internal/record"
)

// backfill fills absent fields from other parts of the same record. Present
// values are never replaced.
func backfill(r *record.PropertyRecord, docs Documents) {
	r.ValueSummary.LandValue = extract.DeriveLand(r.ValueSummary)

	mi := &r.MainImprovement
	mi.TotalLivingArea = mi.TotalLivingArea.Or(mi.TotalAreaSqft).Or(mi.LivingAreaSqft)

	for _, b := range jurisdiction.All {
		ex := r.Exemptions.At(b)
		tax := r.EstimatedTaxes.Jurisdictions.At(b)
		ex.TaxableValue = ex.TaxableValue.Or(tax.TaxableValue)
		ex.TaxingJurisdiction = ex.TaxingJurisdiction.Or(tax.TaxingUnit)
		tax.TaxableValue = tax.TaxableValue.Or(ex.TaxableValue)
	}

	r.TaxYear = r.TaxYear.Or(r.ValueSummary.CertifiedYear)

	// owner history is sorted newest first
	if len(r.History.OwnerHistory) > 0 {
		r.LegalDescription.DeedTransferDate = r.LegalDescription.DeedTransferDate.
			Or(r.History.OwnerHistory[0].DeedTransferDate)
	}

	r.History.HistoryURL = r.History.HistoryURL.Or(normalize.CleanText(docs.HistoryURL))
	r.ExemptionDetails.DetailsURL = r.ExemptionDetails.DetailsURL.Or(normalize.CleanText(docs.ExemptionDetailsURL))
}
