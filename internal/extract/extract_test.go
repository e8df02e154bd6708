package extract

import (
	"strings"
	"testing"

	"dcad-backend/internal/normalize"
	"dcad-backend/internal/record"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parse(t testing.TB, doc string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return root
}

func TestValueSummary(t *testing.T) {
	root := parse(t, `<html><body>
<table id="tblValueSum">
<tr><td>Improvement:</td><td><span id="ValueSummary1_lblImpVal">$100,000</span></td></tr>
<tr><td>Market Value:</td><td><span id="ValueSummary1_pnlValue_lblTotalVal">$140,000</span></td></tr>
<tr><td class="FieldTitle">Capped Value:</td><td class="FieldValue">$130,000</td></tr>
<tr><td><span class="FieldTitle">Tax Agent:</span></td><td><span class="FieldValue">NONE ASSIGNED</span></td></tr>
<tr><td>Revaluation Year:</td><td><span id="ValueSummary1_lblRevalYr">2023</span></td></tr>
<tr><td>Previous Revaluation Year:</td><td><span id="ValueSummary1_lblPrevRevalYr">0</span></td></tr>
</table>
</body></html>`)

	vs := ValueSummary(root)
	require.Equal(t, "$100,000", vs.ImprovementValue.String())
	require.Equal(t, "$140,000", vs.MarketValue.String())
	require.Equal(t, "$40,000", vs.LandValue.String())
	require.Equal(t, "$130,000", vs.CappedValue.String())
	require.Equal(t, "NONE ASSIGNED", vs.TaxAgent.String())
	require.Equal(t, "2023", vs.RevaluationYear.String())
	require.False(t, vs.PreviousRevaluationYear.Present())
}

func TestValueSummaryFlattenedFallback(t *testing.T) {
	root := parse(t, `<html><body>
<table id="tblValueSum"><tr><td>Improvement: $90,000 Land: $60,000 Market Value: $150,000</td></tr></table>
</body></html>`)

	vs := ValueSummary(root)
	require.Equal(t, "$90,000", vs.ImprovementValue.String())
	require.Equal(t, "$60,000", vs.LandValue.String())
	require.Equal(t, "$150,000", vs.MarketValue.String())
	require.Equal(t, normalize.Absent, vs.CappedValue.String())
}

func TestDeriveLand(t *testing.T) {
	testCases := []struct {
		name        string
		improvement normalize.Text
		market      normalize.Text
		land        normalize.Text
		expected    string
	}{
		{name: "difference", improvement: normalize.Some("$100,000"), market: normalize.Some("$140,000"), expected: "$40,000"},
		{name: "equal", improvement: normalize.Some("$100,000"), market: normalize.Some("$100,000"), expected: "$0"},
		{name: "market below improvement", improvement: normalize.Some("$140,000"), market: normalize.Some("$100,000"), expected: normalize.Absent},
		{name: "missing market", improvement: normalize.Some("$140,000"), expected: normalize.Absent},
		{name: "present land kept", improvement: normalize.Some("$1"), market: normalize.Some("$5"), land: normalize.Some("$9"), expected: "$9"},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			land := DeriveLand(record.ValueSummary{
				ImprovementValue: test.improvement,
				MarketValue:      test.market,
				LandValue:        test.land,
			})
			require.Equal(t, test.expected, land.String())
		})
	}
}

func TestOwner(t *testing.T) {
	root := parse(t, `<html><body><div>
<span id="lblOwner">Owner</span><br>
SMITH JOHN<br>
JANE DOE<br>
123 MAIN ST<br>
DALLAS, TEXAS 75201<br>
<span class="DtlSectionHdr">Multi-Owner</span>
<table id="MultiOwner1_dgmultiOwner">
<tr><th>Owner Name</th><th>Ownership %</th></tr>
<tr><td>SMITH JOHN</td><td>50%</td></tr>
<tr><td>DOE JANE</td><td>50%</td></tr>
</table>
</div></body></html>`)

	owner := Owner(root)
	require.Equal(t, "SMITH JOHN JANE DOE", owner.OwnerName.String())
	require.Equal(t, "123 MAIN ST, DALLAS, TEXAS 75201", owner.MailingAddress.String())
	require.NotContains(t, owner.OwnerName.String(), "Multi-Owner")
	require.Equal(t, []record.MultiOwnerEntry{
		{OwnerName: normalize.Some("SMITH JOHN"), OwnershipPct: normalize.Some("50%")},
		{OwnerName: normalize.Some("DOE JANE"), OwnershipPct: normalize.Some("50%")},
	}, owner.MultiOwner)
}

func TestOwnerStopsAtGrid(t *testing.T) {
	root := parse(t, `<html><body><div>
<span id="lblOwner">Owner</span><br>
ACME HOLDINGS LLC<br>
PO BOX 100, DALLAS, TX 75201<br>
<div><table id="MultiOwner1_dgmultiOwner"><tr><th>Owner Name</th><th>Ownership %</th></tr></table></div>
</div></body></html>`)

	owner := Owner(root)
	require.Equal(t, "ACME HOLDINGS LLC", owner.OwnerName.String())
	require.Equal(t, "PO BOX 100, DALLAS, TX 75201", owner.MailingAddress.String())
	require.Empty(t, owner.MultiOwner)
}

func TestPropertyLocation(t *testing.T) {
	testCases := []struct {
		name     string
		doc      string
		expected string
	}{
		{
			name:     "suite",
			doc:      `<span id="PropAddr1_lblPropAddr">100 ELM ST STE 200</span>`,
			expected: "100 ELM ST, Suite 200",
		},
		{
			name:     "building removed",
			doc:      `<span id="PropAddr1_lblPropAddr">100 ELM ST Bldg: A<br>DALLAS</span>`,
			expected: "100 ELM ST DALLAS",
		},
		{
			name:     "word containing ste",
			doc:      `<span id="PropAddr1_lblPropAddr">4 STEVENS RD</span>`,
			expected: "4 STEVENS RD",
		},
		{
			name:     "id fragment",
			doc:      `<span id="lblSitus">9 OAK LN</span>`,
			expected: "9 OAK LN",
		},
		{
			name:     "header",
			doc:      `<b>Property Address</b><p>77 PINE DR</p>`,
			expected: "77 PINE DR",
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			loc := PropertyLocation(parse(t, "<html><body>"+test.doc+"</body></html>"))
			require.Equal(t, test.expected, loc.Address.String())
		})
	}
}

func TestLegalDescriptionAndBanner(t *testing.T) {
	root := parse(t, `<html><body>
<span>Property Details (2025 Certified Values)</span>
<span id="LegalDesc1_lblLegal1">LOT 1 BLK 2</span>
<span id="LegalDesc1_lblLegal2"> </span>
<span id="LegalDesc1_lblLegal3">ACME ADDN</span>
<span id="LegalDesc1_lblSaleDate">5/1/2020</span>
<span id="lblHearingDate">Hearing: 7/1/2025</span>
</body></html>`)

	legal := LegalDescription(root)
	require.Equal(t, []string{"LOT 1 BLK 2", "ACME ADDN"}, legal.Lines)
	require.Equal(t, "5/1/2020", legal.DeedTransferDate.String())
	require.Equal(t, "Hearing: 7/1/2025", ARBHearing(root).HearingInfo.String())
	require.Equal(t, "2025", TaxYear(root).String())
}

func TestMainImprovement(t *testing.T) {
	root := parse(t, `<html><body>
<span id="lblMainImp" class="DtlSectionHdr">Main Improvement (Current 2025)</span>
<table>
<tr><th>Building Class</th><td>20</td></tr>
<tr><th>Year Built</th><td>1985</td></tr>
<tr><th>Effective Year Built</th><td>1995</td></tr>
<tr><th>Actual Age</th><td>40 years</td></tr>
<tr><th># Stories</th><td>ONE AND ONE HALF</td></tr>
<tr><th>Living Area</th><td>1,850 sqft</td></tr>
<tr><th># Baths (Full/Half)</th><td>2/1</td></tr>
<tr><th>Pool</th><td>Y</td></tr>
<tr><th>Basement</th><td></td></tr>
<tr><th>Sprinkler</th><td>N</td></tr>
<tr><th>Spa</th><td>Maybe</td></tr>
</table>
</body></html>`)

	mi := MainImprovement(root)
	require.Equal(t, "20", mi.BuildingClass.String())
	require.Equal(t, "1985", mi.YearBuilt.String())
	require.Equal(t, "1995", mi.EffectiveYearBuilt.String())
	require.Equal(t, "40", mi.ActualAge.String())
	require.Equal(t, "1.5", mi.Stories.String())
	require.Equal(t, "ONE AND ONE HALF", mi.StoriesRaw.String())
	require.Equal(t, "1850", mi.LivingAreaSqft.String())
	require.Equal(t, "2", mi.BathsFull.String())
	require.Equal(t, "1", mi.BathsHalf.String())
	require.Equal(t, "Y", mi.Pool.String())
	require.Equal(t, "NONE", mi.Basement.String())
	require.Equal(t, "NONE", mi.Sprinkler.String())
	require.Equal(t, "Maybe", mi.Spa.String())
	require.Equal(t, normalize.Absent, mi.Deck.String())
}

func TestMainImprovementMissing(t *testing.T) {
	mi := MainImprovement(parse(t, `<html><body><p>nothing here</p></body></html>`))
	require.Equal(t, record.MainImprovement{}, mi)
	require.Equal(t, normalize.Absent, mi.Pool.String())
}

func TestStoriesToNumber(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "2", expected: "2"},
		{input: "1.5", expected: "1.5"},
		{input: "TWO STORY", expected: "2"},
		{input: "one and one half", expected: "1.5"},
		{input: "SPLIT LEVEL", expected: normalize.Absent},
		{input: "", expected: normalize.Absent},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, StoriesToNumber(test.input).String(), "input %q", test.input)
	}
}

const landHeaders = `<tr><th>#</th><th>State Code</th><th>Zoning</th><th>Frontage (ft)</th><th>Depth (ft)</th><th>Area</th><th>Pricing Method</th><th>Unit Price</th><th>Market Adjustment</th><th>Adjusted Price</th><th>Ag Land</th></tr>`

func TestAdditionalImprovements(t *testing.T) {
	root := parse(t, `<html><body>
<table id="ResImp1_dgImp">
<tr><th>Imp #</th><th>Imp Type</th><th>Imp Desc</th><th>Year Built</th><th>Construction</th><th>Floor Type</th><th>Ext Wall</th><th># Stories</th><th>Area Size</th><th>Value</th><th>Depreciation</th></tr>
<tr><td>1</td><td>DETACHED GARAGE</td><td>GARAGE</td><td>1990</td><td>FRAME</td><td>CONCRETE</td><td>BRICK</td><td>1</td><td>400 sqft</td><td>$5,000</td><td>20%</td></tr>
<tr><td>Total</td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td>$5,000</td><td></td></tr>
</table>
</body></html>`)

	rows := AdditionalImprovements(root)
	require.Equal(t, []record.AdditionalImprovementRow{{
		ImpNum:       normalize.Some("1"),
		ImpType:      normalize.Some("DETACHED GARAGE"),
		ImpDesc:      normalize.Some("GARAGE"),
		YearBuilt:    normalize.Num(1990),
		Construction: normalize.Some("FRAME"),
		FloorType:    normalize.Some("CONCRETE"),
		ExtWall:      normalize.Some("BRICK"),
		NumStories:   normalize.Num(1),
		AreaSize:     normalize.Some("400 sqft"),
		AreaSqft:     normalize.Num(400),
		Value:        normalize.Some("$5,000"),
		Depreciation: normalize.Some("20%"),
	}}, rows)
}

func TestAdditionalImprovementsRejectsLandGrid(t *testing.T) {
	root := parse(t, `<html><body><table id="ResImp1_dgImp">`+landHeaders+`
<tr><td>1</td><td>A1</td><td>R-7.5</td><td>50</td><td>150</td><td>7,500 sqft</td><td>STANDARD</td><td>$10</td><td>0%</td><td>$75,000</td><td>N</td></tr>
</table></body></html>`)

	rows := AdditionalImprovements(root)
	require.NotNil(t, rows)
	require.Empty(t, rows)
}

func TestLandDetail(t *testing.T) {
	root := parse(t, `<html><body>
<span id="lblLand" class="DtlSectionHdr">Land</span>
<table id="Land1_dgLand">`+landHeaders+`
<tr><td>1</td><td>A1</td><td>R-7.5</td><td>50</td><td>150</td><td>7,500 sqft</td><td>STANDARD</td><td>$10</td><td>0%</td><td>$75,000</td><td>N</td></tr>
</table></body></html>`)

	rows := LandDetail(root)
	require.Len(t, rows, 1)
	row := rows[0]
	require.Equal(t, "1", row.Number.String())
	require.Equal(t, "A1", row.StateCode.String())
	require.Equal(t, "R-7.5", row.Zoning.String())
	require.Equal(t, "50", row.FrontageFt.String())
	require.Equal(t, "150", row.DepthFt.String())
	require.Equal(t, "7500", row.AreaSqft.String())
	require.Equal(t, "STANDARD", row.PricingMethod.String())
	require.Equal(t, "$75,000", row.AdjustedPrice.String())
	require.Equal(t, "NONE", row.AgLand.String())
}

func TestHeaderOnlyTables(t *testing.T) {
	root := parse(t, `<html><body>
<table id="ResImp1_dgImp"><tr><th>Imp #</th><th>Imp Type</th><th>Value</th></tr></table>
<table id="Land1_dgLand">`+landHeaders+`</table>
<span id="lblExempt" class="DtlSectionHdr">Exemptions</span>
<table><tr><th></th><th>City</th><th>School</th></tr></table>
<span id="lblEstTax" class="DtlSectionHdr">Estimated Taxes</span>
<table><tr><th></th><th>City</th><th>School</th></tr></table>
<span class="DtlSectionHdr">Market Value History</span>
<table id="MarketHistory1_dgMarketHist"><tr><th>Year</th><th>Improvement</th></tr></table>
<table id="TaxHistory1_dgTaxHistory"><tr><th>Year</th><th>City</th></tr></table>
</body></html>`)

	require.NotPanics(t, func() {
		require.Empty(t, AdditionalImprovements(root))
		require.Empty(t, LandDetail(root))
		require.Equal(t, record.Exemptions{}, Exemptions(root))
		require.Equal(t, record.EstimatedTaxes{}, EstimatedTaxes(root))
		require.Empty(t, MarketValueHistory(root))
		require.Empty(t, TaxableValueHistory(root))
		require.Empty(t, OwnerHistory(root))
		require.Empty(t, ExemptionHistory(root))
	})
}
