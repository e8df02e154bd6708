// Package record holds the canonical property record produced from the
// appraisal district pages. Every absent scalar serializes as "N/A" and
// every key is always present.
package record

import (
	"encoding/json"
	"strings"

	"dcad-backend/internal/jurisdiction"
	"dcad-backend/internal/normalize"
)

// ParserVersion identifies the extraction rules that produced a record.
const ParserVersion = "2025.10.1"

type PropertyRecord struct {
	ParserVersion          string                     `json:"parser_version"`
	TaxYear                normalize.Number           `json:"tax_year"`
	PropertyLocation       PropertyLocation           `json:"property_location"`
	Owner                  Owner                      `json:"owner"`
	LegalDescription       LegalDescription           `json:"legal_description"`
	ValueSummary           ValueSummary               `json:"value_summary"`
	ARBHearing             ARBHearing                 `json:"arb_hearing"`
	MainImprovement        MainImprovement            `json:"main_improvement"`
	AdditionalImprovements []AdditionalImprovementRow `json:"additional_improvements"`
	LandDetail             []LandRow                  `json:"land_detail"`
	Exemptions             Exemptions                 `json:"exemptions"`
	EstimatedTaxes         EstimatedTaxes             `json:"estimated_taxes"`
	History                History                    `json:"history"`
	ExemptionDetails       ExemptionDetails           `json:"exemption_details"`
	ExemptionsTable        []ExemptionDetailsYear     `json:"exemptions_table"`
}

type PropertyLocation struct {
	Address      normalize.Text `json:"address"`
	Neighborhood normalize.Text `json:"neighborhood"`
	Mapsco       normalize.Text `json:"mapsco"`
}

type MultiOwnerEntry struct {
	OwnerName    normalize.Text `json:"owner_name"`
	OwnershipPct normalize.Text `json:"ownership_pct"`
}

type Owner struct {
	OwnerName      normalize.Text    `json:"owner_name"`
	MailingAddress normalize.Text    `json:"mailing_address"`
	MultiOwner     []MultiOwnerEntry `json:"multi_owner"`
}

type LegalDescription struct {
	Lines            []string       `json:"lines"`
	DeedTransferDate normalize.Text `json:"deed_transfer_date"`
}

type ValueSummary struct {
	CertifiedYear           normalize.Number `json:"certified_year"`
	ImprovementValue        normalize.Text   `json:"improvement_value"`
	LandValue               normalize.Text   `json:"land_value"`
	MarketValue             normalize.Text   `json:"market_value"`
	CappedValue             normalize.Text   `json:"capped_value"`
	TaxAgent                normalize.Text   `json:"tax_agent"`
	RevaluationYear         normalize.Number `json:"revaluation_year"`
	PreviousRevaluationYear normalize.Number `json:"previous_revaluation_year"`
}

type ARBHearing struct {
	HearingInfo normalize.Text `json:"hearing_info"`
}

type MainImprovement struct {
	BuildingClass      normalize.Text   `json:"building_class"`
	YearBuilt          normalize.Number `json:"year_built"`
	EffectiveYearBuilt normalize.Number `json:"effective_year_built"`
	ActualAge          normalize.Number `json:"actual_age"`
	Desirability       normalize.Text   `json:"desirability"`
	DesirabilityRaw    normalize.Text   `json:"desirability_raw"`
	DesirabilityID     normalize.Number `json:"desirability_id"`
	LivingAreaSqft     normalize.Number `json:"living_area_sqft"`
	TotalLivingArea    normalize.Number `json:"total_living_area"`
	TotalAreaSqft      normalize.Number `json:"total_area_sqft"`
	PercentComplete    normalize.Number `json:"percent_complete"`
	Stories            normalize.Number `json:"stories"`
	StoriesRaw         normalize.Text   `json:"stories_raw"`
	Depreciation       normalize.Number `json:"depreciation"`
	ConstructionType   normalize.Text   `json:"construction_type"`
	Foundation         normalize.Text   `json:"foundation"`
	RoofType           normalize.Text   `json:"roof_type"`
	RoofMaterial       normalize.Text   `json:"roof_material"`
	FenceType          normalize.Text   `json:"fence_type"`
	ExteriorMaterial   normalize.Text   `json:"exterior_material"`
	BasementRaw        normalize.Text   `json:"basement_raw"`
	Basement           normalize.Flag   `json:"basement"`
	Heating            normalize.Text   `json:"heating"`
	AirConditioning    normalize.Text   `json:"air_conditioning"`
	BathsFull          normalize.Number `json:"baths_full"`
	BathsHalf          normalize.Number `json:"baths_half"`
	BedroomCount       normalize.Number `json:"bedroom_count"`
	Kitchens           normalize.Number `json:"kitchens"`
	Wetbars            normalize.Number `json:"wetbars"`
	Fireplaces         normalize.Number `json:"fireplaces"`
	Sprinkler          normalize.Flag   `json:"sprinkler"`
	Deck               normalize.Flag   `json:"deck"`
	Spa                normalize.Flag   `json:"spa"`
	Pool               normalize.Flag   `json:"pool"`
	Sauna              normalize.Flag   `json:"sauna"`
}

type AdditionalImprovementRow struct {
	ImpNum       normalize.Text   `json:"imp_num"`
	ImpType      normalize.Text   `json:"imp_type"`
	ImpDesc      normalize.Text   `json:"imp_desc"`
	YearBuilt    normalize.Number `json:"year_built"`
	Construction normalize.Text   `json:"construction"`
	FloorType    normalize.Text   `json:"floor_type"`
	ExtWall      normalize.Text   `json:"ext_wall"`
	NumStories   normalize.Number `json:"num_stories"`
	AreaSize     normalize.Text   `json:"area_size"`
	AreaSqft     normalize.Number `json:"area_sqft"`
	Value        normalize.Text   `json:"value"`
	Depreciation normalize.Text   `json:"depreciation"`
}

type LandRow struct {
	Number              normalize.Number `json:"number"`
	StateCode           normalize.Text   `json:"state_code"`
	Zoning              normalize.Text   `json:"zoning"`
	FrontageFt          normalize.Number `json:"frontage_ft"`
	DepthFt             normalize.Number `json:"depth_ft"`
	AreaSqft            normalize.Number `json:"area_sqft"`
	PricingMethod       normalize.Text   `json:"pricing_method"`
	UnitPrice           normalize.Text   `json:"unit_price"`
	MarketAdjustmentPct normalize.Text   `json:"market_adjustment_pct"`
	AdjustedPrice       normalize.Text   `json:"adjusted_price"`
	AgLand              normalize.Flag   `json:"ag_land"`
}

type ExemptionRow struct {
	TaxingJurisdiction normalize.Text `json:"taxing_jurisdiction"`
	HomesteadExemption normalize.Text `json:"homestead_exemption"`
	TaxableValue       normalize.Text `json:"taxable_value"`
}

// Exemptions is the current-year exemption table, one row per bucket.
type Exemptions = jurisdiction.Buckets[ExemptionRow]

type TaxRow struct {
	TaxingUnit     normalize.Text `json:"taxing_unit"`
	TaxRatePer100  normalize.Text `json:"tax_rate_per_100"`
	TaxableValue   normalize.Text `json:"taxable_value"`
	EstimatedTaxes normalize.Text `json:"estimated_taxes"`
	TaxCeiling     normalize.Text `json:"tax_ceiling"`
}

type EstimatedTaxes struct {
	Jurisdictions jurisdiction.Buckets[TaxRow] `json:"jurisdictions"`
	Total         normalize.Text               `json:"total"`
}

type OwnerHistoryEntry struct {
	Year             int            `json:"year"`
	Owner            normalize.Text `json:"owner"`
	LegalDescription []string       `json:"legal_description"`
	DeedTransferDate normalize.Text `json:"deed_transfer_date"`
}

type MarketValueEntry struct {
	Year            int            `json:"year"`
	Improvement     normalize.Text `json:"improvement"`
	Land            normalize.Text `json:"land"`
	TotalMarket     normalize.Text `json:"total_market"`
	HomesteadCapped normalize.Text `json:"homestead_capped"`
}

type TaxableValueEntry struct {
	Year int `json:"year"`
	jurisdiction.Buckets[normalize.Text]
}

type ExemptionHistoryEntry struct {
	Year       int        `json:"year"`
	Exemptions Exemptions `json:"exemptions"`
}

type History struct {
	HistoryURL   normalize.Text          `json:"history_url"`
	OwnerHistory []OwnerHistoryEntry     `json:"owner_history"`
	MarketValue  []MarketValueEntry      `json:"market_value"`
	TaxableValue []TaxableValueEntry     `json:"taxable_value"`
	Exemptions   []ExemptionHistoryEntry `json:"exemptions"`
}

// ExemptionDetails is the flat label/value content of the exemption details
// page. It serializes as a single object holding details_url next to the
// normalized field keys.
type ExemptionDetails struct {
	DetailsURL normalize.Text
	Fields     map[string]normalize.Text
}

func (d ExemptionDetails) MarshalJSON() ([]byte, error) {
	out := make(map[string]normalize.Text, len(d.Fields)+1)
	for k, v := range d.Fields {
		out[k] = v
	}
	out["details_url"] = d.DetailsURL
	return json.Marshal(out)
}

func (d *ExemptionDetails) UnmarshalJSON(data []byte) error {
	var raw map[string]normalize.Text
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.DetailsURL = raw["details_url"]
	delete(raw, "details_url")
	d.Fields = raw
	return nil
}

// ExemptionDetailsYear is one year of the exemption details history page.
type ExemptionDetailsYear struct {
	Year   int               `json:"year"`
	Fields map[string]string `json:"fields"`
}

// Empty returns a record with every collection initialized so that no key
// serializes as null.
func Empty() PropertyRecord {
	return PropertyRecord{
		ParserVersion:          ParserVersion,
		Owner:                  Owner{MultiOwner: []MultiOwnerEntry{}},
		LegalDescription:       LegalDescription{Lines: []string{}},
		AdditionalImprovements: []AdditionalImprovementRow{},
		LandDetail:             []LandRow{},
		History: History{
			OwnerHistory: []OwnerHistoryEntry{},
			MarketValue:  []MarketValueEntry{},
			TaxableValue: []TaxableValueEntry{},
			Exemptions:   []ExemptionHistoryEntry{},
		},
		ExemptionDetails: ExemptionDetails{Fields: map[string]normalize.Text{}},
		ExemptionsTable:  []ExemptionDetailsYear{},
	}
}

// Summary renders a one-line description of a record for logs and tables.
func (r PropertyRecord) Summary() string {
	parts := []string{
		r.Owner.OwnerName.String(),
		r.PropertyLocation.Address.String(),
		r.ValueSummary.MarketValue.String(),
	}
	return strings.Join(parts, " | ")
}
