package extract

import (
	"strings"

	"dcad-backend/internal/jurisdiction"
	"dcad-backend/internal/locator"
	"dcad-backend/internal/normalize"
	"dcad-backend/internal/record"
	"dcad-backend/lib/htmlutil"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var exemptionTargets = []locator.Target{
	locator.IDPrefix("lblexempt"),
	locator.Heading("exemptions"),
}

// ExemptionsTable resolves the current-year exemptions grid. The section is
// sometimes wrapped in a layout table with no "City" header of its own, in
// which case the grid is the first nested table.
func ExemptionsTable(root *html.Node) *html.Node {
	table := locator.Find(root, exemptionTargets...)
	if table == nil {
		return nil
	}
	hasCity := false
	for _, c := range htmlutil.StreamCells(table) {
		if htmlutil.IsElement(c, atom.Th) && strings.EqualFold(cellText(c), "city") {
			hasCity = true
			break
		}
	}
	if !hasCity {
		if nested := htmlutil.Find(table, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Table) }); nested != nil {
			return nested
		}
	}
	return table
}

// orphanValues collects the td siblings following the th labelled label.
// Some pages emit the taxable value cells with no row around them.
func orphanValues(table *html.Node, label string) []string {
	th := htmlutil.Find(table, func(n *html.Node) bool {
		return htmlutil.IsElement(n, atom.Th) && strings.Contains(strings.ToLower(cellText(n)), label)
	})
	if th == nil {
		return nil
	}
	var out []string
	for sib := th.NextSibling; sib != nil; sib = sib.NextSibling {
		if htmlutil.IsElement(sib, atom.Td) {
			out = append(out, cellText(sib))
		}
	}
	return out
}

// ExemptionsFrom reads the exemptions grid: a header row of jurisdictions
// followed by the taxing jurisdiction, homestead exemption and taxable value
// rows. Every bucket is present in the result, absent when its column or
// row is missing.
func ExemptionsFrom(table *html.Node) record.Exemptions {
	var out record.Exemptions
	if table == nil {
		return out
	}
	rows := htmlutil.FindAll(table, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Tr) })
	if len(rows) < 3 {
		return out
	}

	hdrs := cellTexts(htmlutil.Cells(rows[0]))
	if len(hdrs) > 0 {
		hdrs = hdrs[1:]
	}
	jurisdictions := cellTexts(dataCells(rows[1]))
	homestead := cellTexts(dataCells(rows[2]))

	var taxable []string
	found := false
	for _, r := range rows[3:] {
		if strings.Contains(strings.ToLower(cellText(r)), "taxable value") {
			taxable = cellTexts(dataCells(r))
			found = true
			break
		}
	}
	if !found {
		taxable = orphanValues(table, "taxable value")
	}

	for bucket, i := range jurisdiction.Columns(hdrs) {
		*out.At(bucket) = record.ExemptionRow{
			TaxingJurisdiction: at(jurisdictions, i),
			HomesteadExemption: at(homestead, i),
			TaxableValue:       at(taxable, i),
		}
	}
	return out
}

// Exemptions locates and reads the current-year exemptions grid.
func Exemptions(root *html.Node) record.Exemptions {
	return ExemptionsFrom(ExemptionsTable(root))
}

// taxRowLabels lists the accepted row labels of each estimated taxes field.
var taxRowLabels = struct {
	unit, rate, taxable, estimate, ceiling []string
}{
	unit:     []string{"TAXING JURISDICTION", "TAXING UNIT"},
	rate:     []string{"TAX RATE PER $100", "TAX RATE PER $100.00", "TAX RATE"},
	taxable:  []string{"TAXABLE VALUE", "TAXABLE VALUES"},
	estimate: []string{"ESTIMATED TAXES", "ESTIMATED TAX"},
	ceiling:  []string{"TAX CEILING", "TAX CEILINGS"},
}

var estimatedTaxTargets = []locator.Target{
	locator.IDPrefix("lblesttax"),
	locator.Heading("estimated taxes"),
}

const idTotalTax = "TaxEst1_lblTotalTax"

type namedRows map[string][]string

func (r namedRows) first(labels []string) []string {
	for _, l := range labels {
		if v := r[l]; len(v) > 0 {
			return v
		}
	}
	return nil
}

// EstimatedTaxes reads the estimated taxes grid and its total. The total
// comes from its dedicated element when present, otherwise from the last
// cell of the "total estimated taxes" row.
func EstimatedTaxes(root *html.Node) record.EstimatedTaxes {
	var out record.EstimatedTaxes
	table := locator.Find(root, estimatedTaxTargets...)
	if table == nil {
		return out
	}
	var rows []*html.Node
	for _, r := range htmlutil.FindAll(table, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Tr) }) {
		if len(htmlutil.Cells(r)) > 0 {
			rows = append(rows, r)
		}
	}
	if len(rows) < 3 {
		return out
	}

	out.Total = textByID(root, idTotalTax)

	hdrs := cellTexts(htmlutil.Cells(rows[0]))[1:]
	named := namedRows{}
	for _, r := range rows[1:] {
		if strings.Contains(strings.ToLower(cellText(r)), "total estimated taxes") {
			if !out.Total.Present() {
				cells := htmlutil.Cells(r)
				if tds := dataCells(r); len(tds) > 0 {
					cells = tds
				}
				out.Total = normalize.CleanText(cellText(cells[len(cells)-1]))
			}
			continue
		}
		th := headerCell(r)
		if th == nil {
			continue
		}
		if label := strings.ToUpper(cellText(th)); label != "" {
			named[label] = cellTexts(dataCells(r))
		}
	}

	var (
		units     = named.first(taxRowLabels.unit)
		rates     = named.first(taxRowLabels.rate)
		taxable   = named.first(taxRowLabels.taxable)
		estimates = named.first(taxRowLabels.estimate)
		ceilings  = named.first(taxRowLabels.ceiling)
	)
	for bucket, i := range jurisdiction.Columns(hdrs) {
		*out.Jurisdictions.At(bucket) = record.TaxRow{
			TaxingUnit:     at(units, i),
			TaxRatePer100:  at(rates, i),
			TaxableValue:   at(taxable, i),
			EstimatedTaxes: at(estimates, i),
			TaxCeiling:     at(ceilings, i),
		}
	}
	return out
}
