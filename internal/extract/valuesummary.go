package extract

import (
	"regexp"
	"strings"

	"dcad-backend/internal/normalize"
	"dcad-backend/internal/record"
	"dcad-backend/lib/htmlutil"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	idValueSummary   = "tblValueSum"
	idAppraisalYear  = "ValueSummary1_lblApprYr"
	idImprovement    = "ValueSummary1_lblImpVal"
	idLandUnderlined = "ValueSummary1_pnlValue_lblLandVal"
	idLand           = "ValueSummary1_lblLandVal"
	idTotalUnderline = "ValueSummary1_pnlValue_lblTotalVal"
	idTotal          = "ValueSummary1_lblTotalVal"
	idRevalYear      = "ValueSummary1_lblRevalYr"
	idPrevRevalYear  = "ValueSummary1_lblPrevRevalYr"
)

var (
	fieldValueClass = regexp.MustCompile(`(?i)FieldValue`)
	fieldTitleClass = regexp.MustCompile(`FieldTitle`)
	taxAgentLabel   = regexp.MustCompile(`(?i)tax\s*agent`)
)

// valueSummaryLabels is every label that can appear in the flattened value
// summary text, it bounds the label regexes below.
var valueSummaryLabels = []string{
	`Improvement(?:\s+Value)?:`,
	`Land(?:\s+Value)?:`,
	`(?:Total\s+)?Market\s+Value:`,
	`Capped\s+Value:`,
	`Tax\s+Agent:`,
	`Previous\s+Revaluation\s+Year:`,
	`Revaluation\s+Year:`,
}

func flattenedLabelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|\s)` + label + `\s*(.+?)\s*(?:` + strings.Join(valueSummaryLabels, "|") + `|$)`)
}

var (
	flatImprovement = flattenedLabelPattern(valueSummaryLabels[0])
	flatLand        = flattenedLabelPattern(valueSummaryLabels[1])
	flatMarket      = flattenedLabelPattern(valueSummaryLabels[2])
	flatCapped      = flattenedLabelPattern(valueSummaryLabels[3])
	flatTaxAgent    = flattenedLabelPattern(valueSummaryLabels[4])
)

func fieldValueIn(n *html.Node) *html.Node {
	return htmlutil.Find(n, func(c *html.Node) bool {
		return c.Type == html.ElementNode && fieldValueClass.MatchString(htmlutil.Attr(c, "class"))
	})
}

func firstByID(scope *html.Node, ids ...string) normalize.Text {
	for _, id := range ids {
		if v := textByID(scope, id); v.Present() {
			return v
		}
	}
	return normalize.Text{}
}

// rowOrParent is the enclosing row of n, or its parent when there is none.
func rowOrParent(n *html.Node) *html.Node {
	if tr := htmlutil.Ancestor(n, atom.Tr); tr != nil {
		return tr
	}
	return n.Parent
}

func cappedValue(table *html.Node) normalize.Text {
	text := htmlutil.Find(table, func(n *html.Node) bool {
		return n.Type == html.TextNode && strings.Contains(n.Data, "Capped Value:")
	})
	if text == nil {
		return normalize.Text{}
	}
	if fv := fieldValueIn(rowOrParent(text)); fv != nil {
		return normalize.CleanText(cellText(fv))
	}
	return normalize.Text{}
}

func taxAgent(table *html.Node) normalize.Text {
	label := htmlutil.Find(table, func(n *html.Node) bool {
		return htmlutil.IsElement(n, atom.Span, atom.Td, atom.Th) &&
			fieldTitleClass.MatchString(htmlutil.Attr(n, "class")) &&
			taxAgentLabel.MatchString(cellText(n))
	})
	if label != nil {
		if tr := htmlutil.Ancestor(label, atom.Tr); tr != nil {
			if fv := fieldValueIn(tr); fv != nil {
				if v := normalize.CleanText(cellText(fv)); v.Present() {
					return v
				}
			}
		}
		next := htmlutil.FindNext(label, func(n *html.Node) bool {
			return n.Type == html.ElementNode && fieldValueClass.MatchString(htmlutil.Attr(n, "class"))
		})
		if next != nil {
			return normalize.CleanText(cellText(next))
		}
		return normalize.Text{}
	}

	text := htmlutil.Find(table, func(n *html.Node) bool {
		return n.Type == html.TextNode && taxAgentLabel.MatchString(n.Data)
	})
	if text == nil {
		return normalize.Text{}
	}
	fv := fieldValueIn(rowOrParent(text))
	if fv == nil {
		fv = htmlutil.FindNext(text, func(n *html.Node) bool {
			return n.Type == html.ElementNode && fieldValueClass.MatchString(htmlutil.Attr(n, "class"))
		})
	}
	if fv == nil {
		return normalize.Text{}
	}
	return normalize.CleanText(cellText(fv))
}

// rowLabelValue scans the rows of table for a label cell containing keyword
// and returns the first non-blank cell after it.
func rowLabelValue(table *html.Node, keyword string) normalize.Text {
	for _, row := range htmlutil.Rows(table) {
		texts := cellTexts(htmlutil.Cells(row))
		for i, t := range texts {
			if !strings.Contains(strings.ToLower(t), keyword) {
				continue
			}
			for _, v := range texts[i+1:] {
				if v != "" {
					return normalize.Some(v)
				}
			}
		}
	}
	return normalize.Text{}
}

func flattenedValue(flat string, pattern *regexp.Regexp) normalize.Text {
	m := pattern.FindStringSubmatch(flat)
	if len(m) < 2 {
		return normalize.Text{}
	}
	return normalize.CleanText(m[1])
}

func yearNumber(t normalize.Text) normalize.Number {
	n := number(t)
	if v, ok := n.Get(); ok && v == 0 {
		return normalize.Number{}
	}
	return n
}

// ValueSummary reads the certified value summary. Direct element ids are
// tried first, then a keyword scan of the summary's row labels, then a
// regex over its flattened text. Land is finally derived from market minus
// improvement when still absent.
func ValueSummary(root *html.Node) record.ValueSummary {
	var out record.ValueSummary
	table := htmlutil.FindByID(root, idValueSummary)
	if table == nil {
		table = root
	}

	if m := certifiedYear.FindString(textByID(table, idAppraisalYear).String()); m != "" {
		out.CertifiedYear = normalize.ParseNumber(m)
	}
	out.ImprovementValue = firstByID(table, idImprovement)
	out.LandValue = firstByID(table, idLandUnderlined, idLand)
	out.MarketValue = firstByID(table, idTotalUnderline, idTotal)
	out.CappedValue = cappedValue(table)
	out.TaxAgent = taxAgent(table)
	out.RevaluationYear = yearNumber(textByID(table, idRevalYear))
	out.PreviousRevaluationYear = yearNumber(textByID(table, idPrevRevalYear))

	fallbacks := []struct {
		field   *normalize.Text
		keyword string
		pattern *regexp.Regexp
	}{
		{field: &out.ImprovementValue, keyword: "improvement", pattern: flatImprovement},
		{field: &out.LandValue, keyword: "land", pattern: flatLand},
		{field: &out.MarketValue, keyword: "market", pattern: flatMarket},
		{field: &out.CappedValue, keyword: "capped", pattern: flatCapped},
		{field: &out.TaxAgent, keyword: "tax agent", pattern: flatTaxAgent},
	}
	flat := cellText(table)
	for _, f := range fallbacks {
		if f.field.Present() {
			continue
		}
		*f.field = rowLabelValue(table, f.keyword).Or(flattenedValue(flat, f.pattern))
	}

	out.LandValue = DeriveLand(out)
	return out
}

// DeriveLand returns the land value, computing it as market minus
// improvement when it is absent and the difference is not negative.
func DeriveLand(vs record.ValueSummary) normalize.Text {
	if vs.LandValue.Present() {
		return vs.LandValue
	}
	improvement, iok := number(vs.ImprovementValue).Get()
	market, mok := number(vs.MarketValue).Get()
	if !iok || !mok || market < improvement {
		return normalize.Text{}
	}
	return normalize.Some(normalize.FormatCurrency(market - improvement))
}
