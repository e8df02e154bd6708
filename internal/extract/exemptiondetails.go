package extract

import (
	"sort"
	"strings"

	"dcad-backend/internal/locator"
	"dcad-backend/internal/normalize"
	"dcad-backend/internal/record"
	"dcad-backend/lib/htmlutil"
	"dcad-backend/lib/textutil"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Left column labels that switch the key prefix of the rows below them.
var detailSections = map[string]string{
	"ISD":    "isd",
	"COUNTY": "county",
}

func isTableNode(n *html.Node) bool {
	return htmlutil.IsElement(n, atom.Table)
}

func firstTable(n *html.Node) *html.Node {
	return htmlutil.Find(n, isTableNode)
}

// twoColumnTables finds a table with a single row of two cells, each holding
// a table: labels on the left and their values on the right.
func twoColumnTables(root *html.Node) (*html.Node, *html.Node) {
	for _, outer := range htmlutil.FindAll(root, isTableNode) {
		rows := htmlutil.Rows(outer)
		if len(rows) != 1 {
			continue
		}
		tds := dataCells(rows[0])
		if len(tds) != 2 {
			continue
		}
		left, right := firstTable(tds[0]), firstTable(tds[1])
		if left != nil && right != nil {
			return left, right
		}
	}
	return nil, nil
}

func allRows(table *html.Node) []*html.Node {
	return htmlutil.FindAll(table, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Tr) })
}

// firstCellText is the text of the first cell of row matching one of the
// tags, or of the whole row when it has none.
func firstCellText(row *html.Node, tags ...atom.Atom) string {
	for _, c := range htmlutil.Cells(row) {
		if htmlutil.IsElement(c, tags...) {
			return cellText(c)
		}
	}
	return cellText(row)
}

func detailKey(label, section string) string {
	key := textutil.NormalizeKey(label)
	if section != "" {
		return section + "_" + key
	}
	if key == "" {
		return "field"
	}
	return key
}

// ExemptionDetails reads the exemption details page into a flat map of
// normalized keys. Labels that normalize to the same key collide and the
// later row wins.
func ExemptionDetails(root *html.Node) record.ExemptionDetails {
	out := record.ExemptionDetails{
		DetailsURL: formAction(root),
		Fields:     map[string]normalize.Text{},
	}

	if left, right := twoColumnTables(root); left != nil {
		var labels, values []string
		for _, r := range allRows(left) {
			labels = append(labels, firstCellText(r, atom.Th, atom.Td))
		}
		for _, r := range allRows(right) {
			values = append(values, firstCellText(r, atom.Td))
		}
		section := ""
		for i := 0; i < len(labels) && i < len(values); i++ {
			label := labels[i]
			if label == "" {
				continue
			}
			if s, ok := detailSections[strings.ToUpper(strings.TrimSpace(label))]; ok {
				section = s
				continue
			}
			out.Fields[detailKey(label, section)] = normalize.CleanText(values[i])
		}
		return out
	}

	table := firstTable(root)
	if table == nil {
		return out
	}
	for _, r := range allRows(table) {
		cells := htmlutil.Cells(r)
		if len(cells) < 2 {
			continue
		}
		if label := cellText(cells[0]); label != "" {
			out.Fields[detailKey(label, "")] = normalize.CleanText(cellText(cells[1]))
		}
	}
	return out
}

// historyKeyAliases maps label prefixes of the exemption details history
// page to their canonical keys.
var historyKeyAliases = []struct {
	prefix string
	key    string
}{
	{prefix: "ownership", key: "ownership_pct"},
	{prefix: "homestead_percent", key: "homestead_pct"},
	{prefix: "other_disabled", key: "other_disabled_date"},
	{prefix: "disabled_percent", key: "disabled_pct"},
	{prefix: "disabled", key: "disabled_person"},
	{prefix: "tax_deferred_", key: "tax_deferred"},
}

var historyCanonicalKeys = map[string]bool{
	"applicant_name": true, "ownership_pct": true, "homestead_date": true,
	"homestead_pct": true, "other": true, "other_pct": true,
	"other_disabled_date": true, "disabled_person": true, "disabled_pct": true,
	"tax_deferred": true, "transferred": true, "defer": true,
	"capped_homestead": true, "market_value": true,
}

func historyKey(label string) string {
	base := textutil.NormalizeKey(strings.ReplaceAll(label, "&", " and "))
	if base == "" {
		return "field"
	}
	if historyCanonicalKeys[base] {
		return base
	}
	for _, a := range historyKeyAliases {
		if strings.HasPrefix(base, a.prefix) {
			return a.key
		}
	}
	return base
}

// isLabelsTable recognizes the left column of a year block: a leaf table
// of at least six header labels naming the applicant, ownership and
// homestead.
func isLabelsTable(t *html.Node) bool {
	if firstTable(t) != nil {
		return false
	}
	rows := allRows(t)
	if len(rows) < 6 {
		return false
	}
	ths := htmlutil.FindAll(t, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Th) })
	if len(ths) < 6 {
		return false
	}
	var labels []string
	for _, r := range rows {
		labels = append(labels, firstCellText(r, atom.Th, atom.Td))
	}
	joined := strings.ToLower(strings.Join(labels, " "))
	return strings.Contains(joined, "applicant") && strings.Contains(joined, "ownership") && strings.Contains(joined, "homestead")
}

// isValuesTable recognizes the right column: a leaf table of data cells.
func isValuesTable(t *html.Node) bool {
	if firstTable(t) != nil {
		return false
	}
	tds := htmlutil.FindAll(t, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Td) })
	ths := htmlutil.FindAll(t, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Th) })
	return len(tds) >= 6 && len(ths) <= 2
}

func yearBlockTables(hdr *html.Node) []*html.Node {
	var out []*html.Node
	for n := htmlutil.Next(hdr); n != nil; n = htmlutil.Next(n) {
		if htmlutil.IsElement(n, atom.Span) && htmlutil.HasClass(n, locator.SectionHeaderClass) {
			break
		}
		if isTableNode(n) {
			out = append(out, n)
		}
	}
	return out
}

func yearFields(tables []*html.Node) map[string]string {
	fields := map[string]string{}
	left := -1
	for i, t := range tables {
		if isLabelsTable(t) {
			left = i
			break
		}
	}
	if left < 0 {
		return fields
	}
	var right *html.Node
	for _, t := range tables[left+1:] {
		if isValuesTable(t) {
			right = t
			break
		}
	}
	if right == nil {
		return fields
	}

	var labels []string
	for _, r := range allRows(tables[left]) {
		for _, t := range cellTexts(htmlutil.Cells(r)) {
			if t != "" {
				labels = append(labels, t)
			}
		}
	}
	var values []string
	for _, r := range allRows(right) {
		values = append(values, firstCellText(r, atom.Td))
	}
	for i := 0; i < len(labels) && i < len(values); i++ {
		fields[historyKey(labels[i])] = values[i]
	}
	return fields
}

// ExemptionDetailsHistory reads the per-year blocks of the exemption details
// history page. Each block starts at a section header holding only a year.
func ExemptionDetailsHistory(root *html.Node) []record.ExemptionDetailsYear {
	out := []record.ExemptionDetailsYear{}
	headers := htmlutil.FindAll(root, func(n *html.Node) bool {
		return htmlutil.IsElement(n, atom.Span) && htmlutil.HasClass(n, locator.SectionHeaderClass)
	})
	for _, hdr := range headers {
		year, ok := yearOf(cellText(hdr))
		if !ok {
			continue
		}
		out = append(out, record.ExemptionDetailsYear{Year: year, Fields: yearFields(yearBlockTables(hdr))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}
