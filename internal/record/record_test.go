package record

import (
	"encoding/json"
	"testing"

	"dcad-backend/internal/normalize"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestEmptyShape(t *testing.T) {
	raw, err := json.Marshal(Empty())
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))

	keys := []string{
		"parser_version", "tax_year", "property_location", "owner",
		"legal_description", "value_summary", "arb_hearing", "main_improvement",
		"additional_improvements", "land_detail", "exemptions", "estimated_taxes",
		"history", "exemption_details", "exemptions_table",
	}
	for _, key := range keys {
		require.Contains(t, out, key)
	}
	require.Equal(t, normalize.Absent, out["tax_year"])
	require.Equal(t, []any{}, out["land_detail"])

	exemptions := out["exemptions"].(map[string]any)
	require.Len(t, exemptions, 6)
	require.Equal(t, map[string]any{
		"taxing_jurisdiction": normalize.Absent,
		"homestead_exemption": normalize.Absent,
		"taxable_value":       normalize.Absent,
	}, exemptions["special_district"])

	details := out["exemption_details"].(map[string]any)
	require.Equal(t, map[string]any{"details_url": normalize.Absent}, details)
}

func TestTaxableValueEntryFlattens(t *testing.T) {
	entry := TaxableValueEntry{Year: 2024}
	entry.School = normalize.Some("$250,000")

	raw, err := json.Marshal(entry)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"year": 2024,
		"city": "N/A",
		"school": "$250,000",
		"county": "N/A",
		"college": "N/A",
		"hospital": "N/A",
		"special_district": "N/A"
	}`, string(raw))
}

func TestRoundTrip(t *testing.T) {
	rec := Empty()
	rec.TaxYear = normalize.Num(2025)
	rec.Owner.OwnerName = normalize.Some("DOE JOHN")
	rec.ExemptionDetails.DetailsURL = normalize.Some("https://www.dallascad.org/ExemptDetails.aspx?ID=1")
	rec.ExemptionDetails.Fields["homestead"] = normalize.Some("Yes")
	rec.MainImprovement.Pool = normalize.YesNo("Y")

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	decoded := Empty()
	require.NoError(t, json.Unmarshal(raw, &decoded))

	again, err := json.Marshal(decoded)
	require.NoError(t, err)
	if diff := cmp.Diff(string(raw), string(again)); diff != "" {
		t.Fatalf("round trip changed the record (-want +got):\n%s", diff)
	}
	require.Equal(t, "DOE JOHN | N/A | N/A", decoded.Summary())
}
