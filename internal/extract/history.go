package extract

import (
	"regexp"
	"sort"
	"strings"

	"dcad-backend/internal/jurisdiction"
	"dcad-backend/internal/locator"
	"dcad-backend/internal/normalize"
	"dcad-backend/internal/record"
	"dcad-backend/lib/htmlutil"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Cells per record in the flat fallback of each history table.
const (
	ownerStride     = 3
	marketStride    = 5
	taxableStride   = 7
	exemptionStride = 2
)

var (
	ownerHistoryTargets = []locator.Target{
		locator.Anchor{Name: "Owner", Heading: "Owner / Legal"},
		locator.Section{"owner", "legal"},
	}
	marketHistoryTargets = []locator.Target{
		locator.ID("MarketHistory1_dgMarketHist"),
		locator.ID("TaxHistory1_dgHistMktValue"),
		locator.Section{"market", "value"},
	}
	taxableHistoryTargets = []locator.Target{
		locator.ID("TaxHistory1_dgTaxHistory"),
		locator.Section{"taxable", "value"},
	}
	exemptionHistoryTargets = []locator.Target{
		locator.Section{"exempt"},
	}
)

var (
	legalSpanID     = regexp.MustCompile(`(?i)lblLegal\d+`)
	legalLineNumber = regexp.MustCompile(`^\d+:\s*$`)
	labelledDeed    = regexp.MustCompile(`(?i)deed.*date\s*[:\-]?\s*(` + DatePattern.String() + `)`)
)

// History reads every table of the history page. Each table is parsed
// independently and sorted newest year first.
func History(root *html.Node) record.History {
	out := record.History{
		HistoryURL:   formAction(root),
		OwnerHistory: OwnerHistory(root),
		MarketValue:  MarketValueHistory(root),
		TaxableValue: TaxableValueHistory(root),
		Exemptions:   ExemptionHistory(root),
	}
	return out
}

func yearOf(s string) (int, bool) {
	return normalize.ParseYear(normalize.Clean(s))
}

// DeedDate finds the deed transfer date inside a legal description cell. A
// nested label/value table is checked first, then a "deed ... date" label in
// the flattened text, then the first date-like token anywhere in the cell.
func DeedDate(cell *html.Node) normalize.Text {
	if cell == nil {
		return normalize.Text{}
	}
	if inner := htmlutil.Find(cell, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Table) }); inner != nil {
		for _, row := range htmlutil.FindAll(inner, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Tr) }) {
			cells := htmlutil.Cells(row)
			if len(cells) == 0 {
				continue
			}
			if len(cells) >= 2 {
				label, value := cellText(cells[0]), cellText(cells[1])
				if deedDateLabel.MatchString(label) {
					if m := DatePattern.FindString(value); m != "" {
						return normalize.Some(m)
					}
					if m := DatePattern.FindString(label); m != "" {
						return normalize.Some(m)
					}
				}
			}
			if text := cellText(row); deedDateLabel.MatchString(text) {
				if m := DatePattern.FindString(text); m != "" {
					return normalize.Some(m)
				}
			}
		}
	}
	flat := cellText(cell)
	if m := labelledDeed.FindStringSubmatch(flat); len(m) > 1 {
		return normalize.CleanText(m[1])
	}
	if m := DatePattern.FindString(flat); m != "" {
		return normalize.Some(m)
	}
	return normalize.Text{}
}

// legalLines reads the legal description lines of a history cell, skipping
// the deed date.
func legalLines(cell *html.Node) []string {
	out := []string{}
	spans := htmlutil.FindAll(cell, func(n *html.Node) bool {
		return htmlutil.IsElement(n, atom.Span) && legalSpanID.MatchString(htmlutil.ID(n))
	})
	if len(spans) > 0 {
		for _, s := range spans {
			if t := cellText(s); t != "" {
				out = append(out, t)
			}
		}
		return out
	}
	if inner := htmlutil.Find(cell, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Table) }); inner != nil {
		for _, row := range htmlutil.FindAll(inner, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Tr) }) {
			cells := htmlutil.Cells(row)
			if len(cells) == 0 || deedDateLabel.MatchString(cellText(cells[0])) {
				continue
			}
			if len(cells) == 1 {
				if t := cellText(cells[0]); t != "" && !legalLineNumber.MatchString(t) {
					out = append(out, t)
				}
				continue
			}
			for _, c := range cells[1:] {
				if t := cellText(c); t != "" {
					out = append(out, t)
				}
			}
		}
		return out
	}
	for _, line := range htmlutil.Lines(cell) {
		if !deedDateLabel.MatchString(line) {
			out = append(out, line)
		}
	}
	return out
}

func ownerEntry(year int, ownerCell, legalCell *html.Node) record.OwnerHistoryEntry {
	return record.OwnerHistoryEntry{
		Year:             year,
		Owner:            normalize.CleanText(cellText(ownerCell)),
		LegalDescription: legalLines(legalCell),
		DeedTransferDate: DeedDate(legalCell),
	}
}

// OwnerHistory reads the owner / legal history. Well-formed rows are exactly
// a year header cell and two data cells. When no such row exists the table's
// cells are read as a flat stream of year, owner, legal triplets.
func OwnerHistory(root *html.Node) []record.OwnerHistoryEntry {
	out := []record.OwnerHistoryEntry{}
	table := locator.Find(root, ownerHistoryTargets...)
	if table == nil {
		return out
	}
	for _, row := range htmlutil.Rows(table) {
		cells := htmlutil.Cells(row)
		if len(cells) != ownerStride || !isOwnerTriplet(cells) {
			continue
		}
		year, ok := yearOf(cellText(cells[0]))
		if !ok {
			continue
		}
		out = append(out, ownerEntry(year, cells[1], cells[2]))
	}
	if len(out) == 0 {
		cells := htmlutil.StreamCells(table)
		for i := 0; i+ownerStride <= len(cells); {
			if isOwnerTriplet(cells[i : i+ownerStride]) {
				if year, ok := yearOf(cellText(cells[i])); ok {
					out = append(out, ownerEntry(year, cells[i+1], cells[i+2]))
					i += ownerStride
					continue
				}
			}
			i++
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

func isOwnerTriplet(cells []*html.Node) bool {
	return htmlutil.IsElement(cells[0], atom.Th) &&
		htmlutil.IsElement(cells[1], atom.Td) &&
		htmlutil.IsElement(cells[2], atom.Td)
}

// headerIndexes assigns each header to the first matching column, a header
// is only claimed once.
func headerIndexes(hdrs []string, columns []func(string) bool) []int {
	idx := make([]int, len(columns))
	for i := range idx {
		idx[i] = -1
	}
	for i, h := range hdrs {
		h = strings.ToLower(h)
		for c, match := range columns {
			if idx[c] < 0 && match(h) {
				idx[c] = i
				break
			}
		}
	}
	return idx
}

func contains(keys ...string) func(string) bool {
	return func(h string) bool {
		for _, k := range keys {
			if strings.Contains(h, k) {
				return true
			}
		}
		return false
	}
}

var marketColumns = []func(string) bool{
	contains("year"),
	contains("improvement", "impr"),
	contains("land"),
	func(h string) bool {
		return strings.Contains(h, "total market") || (strings.Contains(h, "market") && strings.Contains(h, "total"))
	},
	func(h string) bool { return strings.Contains(h, "homestead") && strings.Contains(h, "cap") },
}

func marketEntry(year int, texts []string, idx []int) record.MarketValueEntry {
	return record.MarketValueEntry{
		Year:            year,
		Improvement:     at(texts, idx[1]),
		Land:            at(texts, idx[2]),
		TotalMarket:     at(texts, idx[3]),
		HomesteadCapped: at(texts, idx[4]),
	}
}

// positional is the column layout assumed by the flat fallbacks.
func positional(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// MarketValueHistory reads the market value history, falling back to a
// flat stream of five cells per year.
func MarketValueHistory(root *html.Node) []record.MarketValueEntry {
	out := []record.MarketValueEntry{}
	table := locator.Find(root, marketHistoryTargets...)
	if table == nil {
		return out
	}
	rows := htmlutil.Rows(table)
	if len(rows) > 0 {
		idx := headerIndexes(cellTexts(htmlutil.Cells(rows[0])), marketColumns)
		for _, row := range rows[1:] {
			texts := cellTexts(htmlutil.Cells(row))
			year, ok := yearOf(at(texts, idx[0]).String())
			if !ok {
				continue
			}
			out = append(out, marketEntry(year, texts, idx))
		}
	}
	if len(out) == 0 {
		texts := cellTexts(htmlutil.StreamCells(table))
		idx := positional(marketStride)
		forEachStride(texts, marketStride, func(year int, cells []string) {
			out = append(out, marketEntry(year, cells, idx))
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

// forEachStride walks a flat cell stream, emitting stride cells whenever
// the current cell is a four digit year and sliding by one otherwise.
func forEachStride(texts []string, stride int, emit func(year int, cells []string)) {
	for i := 0; i+stride <= len(texts); {
		if year, ok := yearOf(texts[i]); ok {
			emit(year, texts[i:i+stride])
			i += stride
			continue
		}
		i++
	}
}

var taxableColumns = []func(string) bool{
	contains("year"),
	contains("city"),
	contains("isd", "school"),
	contains("county"),
	contains("college"),
	contains("hospital"),
	func(h string) bool { return strings.Contains(h, "special") && strings.Contains(h, "district") },
}

var taxableBuckets = []jurisdiction.Bucket{
	jurisdiction.City, jurisdiction.School, jurisdiction.County,
	jurisdiction.College, jurisdiction.Hospital, jurisdiction.SpecialDistrict,
}

func taxableEntry(year int, texts []string, idx []int) record.TaxableValueEntry {
	entry := record.TaxableValueEntry{Year: year}
	for i, b := range taxableBuckets {
		*entry.At(b) = at(texts, idx[i+1])
	}
	return entry
}

// TaxableValueHistory reads the per-jurisdiction taxable value history,
// falling back to a flat stream of seven cells per year.
func TaxableValueHistory(root *html.Node) []record.TaxableValueEntry {
	out := []record.TaxableValueEntry{}
	table := locator.Find(root, taxableHistoryTargets...)
	if table == nil {
		return out
	}
	rows := htmlutil.Rows(table)
	if len(rows) > 0 {
		idx := headerIndexes(cellTexts(htmlutil.Cells(rows[0])), taxableColumns)
		for _, row := range rows[1:] {
			texts := cellTexts(htmlutil.Cells(row))
			year, ok := yearOf(at(texts, idx[0]).String())
			if !ok {
				continue
			}
			out = append(out, taxableEntry(year, texts, idx))
		}
	}
	if len(out) == 0 {
		texts := cellTexts(htmlutil.StreamCells(table))
		idx := positional(taxableStride)
		forEachStride(texts, taxableStride, func(year int, cells []string) {
			out = append(out, taxableEntry(year, cells, idx))
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

// yearExemptions reads the nested per-year exemption grid held by body. A
// year reading "No Exemptions", or with no recognizable grid, has every
// bucket absent.
func yearExemptions(body *html.Node) record.Exemptions {
	var out record.Exemptions
	if strings.Contains(strings.ToLower(cellText(body)), "no exemptions") {
		return out
	}
	inner := htmlutil.Find(body, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Table) })
	if inner == nil {
		return out
	}
	rows := htmlutil.FindAll(inner, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Tr) })
	if len(rows) == 0 {
		return out
	}
	var buckets []jurisdiction.Bucket
	for _, h := range cellTexts(htmlutil.Cells(rows[0])) {
		if b, ok := jurisdiction.Canonical(h); ok {
			buckets = append(buckets, b)
		}
	}
	if len(buckets) == 0 {
		return out
	}
	find := func(prefixes ...string) []string {
		for _, r := range rows[1:] {
			texts := cellTexts(htmlutil.Cells(r))
			if len(texts) == 0 {
				continue
			}
			head := strings.ToLower(texts[0])
			for _, p := range prefixes {
				if strings.Contains(head, p) {
					return texts[1:]
				}
			}
		}
		return nil
	}
	var (
		taxing    = find("taxing jurisdiction")
		homestead = find("homestead exemption", "homestead", "exemption")
		taxable   = find("taxable value")
	)
	seen := map[jurisdiction.Bucket]bool{}
	for i, b := range buckets {
		if seen[b] {
			continue
		}
		seen[b] = true
		*out.At(b) = record.ExemptionRow{
			TaxingJurisdiction: at(taxing, i),
			HomesteadExemption: at(homestead, i),
			TaxableValue:       at(taxable, i),
		}
	}
	return out
}

// ExemptionHistory reads the exemptions-by-year table, falling back to a
// flat stream of year and body cell pairs.
func ExemptionHistory(root *html.Node) []record.ExemptionHistoryEntry {
	out := []record.ExemptionHistoryEntry{}
	table := locator.Find(root, exemptionHistoryTargets...)
	if table == nil {
		return out
	}
	for _, row := range htmlutil.Rows(table) {
		cells := htmlutil.Cells(row)
		if len(cells) != exemptionStride {
			continue
		}
		year, ok := yearOf(cellText(cells[0]))
		if !ok {
			continue
		}
		out = append(out, record.ExemptionHistoryEntry{Year: year, Exemptions: yearExemptions(cells[1])})
	}
	if len(out) == 0 {
		cells := htmlutil.StreamCells(table)
		for i := 0; i+exemptionStride <= len(cells); {
			if year, ok := yearOf(cellText(cells[i])); ok {
				out = append(out, record.ExemptionHistoryEntry{Year: year, Exemptions: yearExemptions(cells[i+1])})
				i += exemptionStride
				continue
			}
			i++
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}
