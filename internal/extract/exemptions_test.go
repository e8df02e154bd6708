package extract

import (
	"testing"

	"dcad-backend/internal/normalize"
	"dcad-backend/internal/record"

	"github.com/stretchr/testify/require"
)

const exemptionRows = `<tr><th></th><th>City</th><th>School</th><th>County</th><th>College</th><th>Hospital</th><th>Special District</th></tr>
<tr><th>Taxing Jurisdiction</th><td>CITY OF DALLAS</td><td>DALLAS ISD</td><td>DALLAS COUNTY</td><td>DALLAS COLLEGE</td><td>PARKLAND HOSPITAL</td><td>DALLAS CO SCHOOL EQUALIZATION</td></tr>
<tr><th>HS Exemption</th><td>$0</td><td>$100,000</td><td>$60,000</td><td>$60,000</td><td>$60,000</td><td>$0</td></tr>`

func TestExemptions(t *testing.T) {
	wellFormed := parse(t, `<html><body>
<span id="lblExempt" class="DtlSectionHdr">Exemptions</span>
<table>`+exemptionRows+`
<tr><th>Taxable Value</th><td>$300,000</td><td>$200,000</td><td>$240,000</td><td>$240,000</td><td>$240,000</td><td>$300,000</td></tr>
</table>
</body></html>`)
	orphaned := parse(t, `<html><body>
<span id="lblExempt" class="DtlSectionHdr">Exemptions</span>
<table>`+exemptionRows+`
<th>Taxable Value</th><td>$300,000</td><td>$200,000</td><td>$240,000</td><td>$240,000</td><td>$240,000</td><td>$300,000</td>
</table>
</body></html>`)
	wrapped := parse(t, `<html><body>
<span id="lblExempt" class="DtlSectionHdr">Exemptions</span>
<table><tr><td><table>`+exemptionRows+`
<tr><th>Taxable Value</th><td>$300,000</td><td>$200,000</td><td>$240,000</td><td>$240,000</td><td>$240,000</td><td>$300,000</td></tr>
</table></td></tr></table>
</body></html>`)

	got := Exemptions(wellFormed)
	require.Equal(t, record.ExemptionRow{
		TaxingJurisdiction: normalize.Some("PARKLAND HOSPITAL"),
		HomesteadExemption: normalize.Some("$60,000"),
		TaxableValue:       normalize.Some("$240,000"),
	}, got.Hospital)
	require.Equal(t, "DALLAS CO SCHOOL EQUALIZATION", got.SpecialDistrict.TaxingJurisdiction.String())
	require.Equal(t, "$300,000", got.City.TaxableValue.String())

	require.Equal(t, got, Exemptions(orphaned))
	require.Equal(t, got, Exemptions(wrapped))
}

func TestEstimatedTaxes(t *testing.T) {
	grid := `<tr><th></th><th>City of Dallas</th><th>Dallas ISD</th><th>Dallas County</th><th>Dallas County Community College District</th><th>Parkland Hospital</th><th>Dallas County School Equalization</th></tr>
<tr><th>Taxing Jurisdiction</th><td>CITY OF DALLAS</td><td>DALLAS ISD</td><td>DALLAS COUNTY</td><td>DALLAS COLLEGE</td><td>PARKLAND HOSPITAL</td><td>EQUALIZATION</td></tr>
<tr><th>Tax Rate per $100</th><td>$0.7047</td><td>$0.9580</td><td>$0.2155</td><td>$0.1000</td><td>$0.2121</td><td>$0.0100</td></tr>
<tr><th>Taxable Value</th><td>$300,000</td><td>$200,000</td><td>$240,000</td><td>$240,000</td><td>$240,000</td><td>$300,000</td></tr>
<tr><th>Estimated Taxes</th><td>$2,114.10</td><td>$1,916.00</td><td>$517.20</td><td>$240.00</td><td>$509.04</td><td>$30.00</td></tr>
<tr><th>Tax Ceiling</th><td></td><td>$1,800.00</td><td></td><td></td><td></td><td></td></tr>
<tr><td colspan="6">Total Estimated Taxes:</td><td>$5,326.34</td></tr>`

	testCases := []struct {
		name  string
		extra string
		total string
	}{
		{name: "total row", total: "$5,326.34"},
		{name: "dedicated element wins", extra: `<span id="TaxEst1_lblTotalTax">$5,000.00</span>`, total: "$5,000.00"},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			root := parse(t, `<html><body>
<span id="lblEstTax" class="DtlSectionHdr">Estimated Taxes</span>
<table>`+grid+`</table>`+test.extra+`
</body></html>`)

			taxes := EstimatedTaxes(root)
			require.Equal(t, test.total, taxes.Total.String())

			j := taxes.Jurisdictions
			require.Equal(t, "CITY OF DALLAS", j.City.TaxingUnit.String())
			require.Equal(t, "DALLAS ISD", j.School.TaxingUnit.String())
			require.Equal(t, "$1,800.00", j.School.TaxCeiling.String())
			require.Equal(t, "DALLAS COUNTY", j.County.TaxingUnit.String())
			require.Equal(t, "DALLAS COLLEGE", j.College.TaxingUnit.String())
			require.Equal(t, "$0.1000", j.College.TaxRatePer100.String())
			require.Equal(t, "PARKLAND HOSPITAL", j.Hospital.TaxingUnit.String())
			require.Equal(t, "$509.04", j.Hospital.EstimatedTaxes.String())
			require.Equal(t, normalize.Absent, j.City.TaxCeiling.String())
			// the equalization column is a second school column and loses
			require.Equal(t, record.TaxRow{}, j.SpecialDistrict)
		})
	}
}

func TestExemptionDetails(t *testing.T) {
	root := parse(t, `<html><body>
<form id="Form1" action="./ExemptDetails.aspx?ID=1">
<table><tr>
<td><table>
<tr><th>Applicant Name</th></tr>
<tr><th>Homestead %</th></tr>
<tr><th>ISD</th></tr>
<tr><th>Ceiling</th></tr>
<tr><th>COUNTY</th></tr>
<tr><th>Ceiling</th></tr>
<tr><th>Homestead Pct</th></tr>
<tr><th>Disabled</th></tr>
</table></td>
<td><table>
<tr><td>SMITH JOHN</td></tr>
<tr><td>100%</td></tr>
<tr><td></td></tr>
<tr><td>$1,800.00</td></tr>
<tr><td></td></tr>
<tr><td>$900.00</td></tr>
<tr><td>50%</td></tr>
<tr><td></td></tr>
</table></td>
</tr></table>
</form>
</body></html>`)

	details := ExemptionDetails(root)
	require.Equal(t, "./ExemptDetails.aspx?ID=1", details.DetailsURL.String())
	require.Equal(t, map[string]normalize.Text{
		"applicant_name":       normalize.Some("SMITH JOHN"),
		"homestead_pct":        normalize.Some("100%"),
		"isd_ceiling":          normalize.Some("$1,800.00"),
		"county_ceiling":       normalize.Some("$900.00"),
		"county_homestead_pct": normalize.Some("50%"),
		"county_disabled":      {},
	}, details.Fields)
}

func TestExemptionDetailsFlat(t *testing.T) {
	root := parse(t, `<html><body>
<table>
<tr><th>Homestead %</th><td>100%</td></tr>
<tr><th>Homestead Pct</th><td>50%</td></tr>
<tr><th>Over 65 / Disabled</th><td></td></tr>
<tr><th></th><td>ignored</td></tr>
</table>
</body></html>`)

	details := ExemptionDetails(root)
	require.Equal(t, normalize.Absent, details.DetailsURL.String())
	require.Equal(t, map[string]normalize.Text{
		"homestead_pct":    normalize.Some("50%"),
		"over_65_disabled": {},
	}, details.Fields)
}

func TestExemptionDetailsHistory(t *testing.T) {
	block := func(name, pct string) string {
		return `<table>
<tr><th>Applicant Name</th></tr>
<tr><th>Ownership %</th></tr>
<tr><th>Homestead Date</th></tr>
<tr><th>Homestead Percent</th></tr>
<tr><th>Disabled Person</th></tr>
<tr><th>Tax Deferred</th></tr>
</table>
<table>
<tr><td>` + name + `</td></tr>
<tr><td>` + pct + `</td></tr>
<tr><td>1/1/2015</td></tr>
<tr><td>100%</td></tr>
<tr><td>NO</td></tr>
<tr><td>NO</td></tr>
</table>`
	}
	root := parse(t, `<html><body>
<span class="DtlSectionHdr">Exemption Details History</span>
<span class="DtlSectionHdr">2023</span>`+block("DOE JANE", "50%")+`
<span class="DtlSectionHdr">2024</span>`+block("SMITH JOHN", "100%")+`
</body></html>`)

	years := ExemptionDetailsHistory(root)
	require.Len(t, years, 2)
	require.Equal(t, 2024, years[0].Year)
	require.Equal(t, map[string]string{
		"applicant_name":  "SMITH JOHN",
		"ownership_pct":   "100%",
		"homestead_date":  "1/1/2015",
		"homestead_pct":   "100%",
		"disabled_person": "NO",
		"tax_deferred":    "NO",
	}, years[0].Fields)
	require.Equal(t, "DOE JANE", years[1].Fields["applicant_name"])
}
