package extract

import (
	"strconv"
	"strings"

	"dcad-backend/internal/locator"
	"dcad-backend/internal/normalize"
	"dcad-backend/internal/record"
	"dcad-backend/lib/htmlutil"
	"dcad-backend/lib/textutil"

	"golang.org/x/net/html"
)

var additionalImprovementTargets = []locator.Target{
	locator.ID("ResImp1_dgImp"),
	locator.IDPrefix("lbladdimp"),
	locator.Headings{"additional improvements", "other improvements", "outbuildings", "secondary improvements"},
	locator.Func(firstAdditionalImprovementTable),
}

var additionalImprovementVocabulary = []string{
	"imp", "improvement", "type", "desc", "description", "area", "size", "sq",
	"value", "depr", "depreciation", "year", "stories", "wall", "floor",
	"construction", "ext", "ext wall",
}

func isAdditionalImprovementTable(table *html.Node) bool {
	if isLandLike(table) || isNavLike(table) {
		return false
	}
	tokens := 0
	for _, k := range additionalImprovementVocabulary {
		for _, h := range headers(table) {
			if strings.Contains(h, k) {
				tokens++
			}
		}
	}
	return tokens >= 3
}

func firstAdditionalImprovementTable(root *html.Node) *html.Node {
	for _, t := range allTables(root) {
		if isAdditionalImprovementTable(t) {
			return t
		}
	}
	return nil
}

// AdditionalImprovementsTable resolves the additional improvements grid, or
// nil.
func AdditionalImprovementsTable(root *html.Node) *html.Node {
	return locator.Find(root, additionalImprovementTargets...)
}

// AdditionalImprovementsFrom reads the rows of an additional improvements
// grid. Columns are mapped by header text. A table whose headers identify it
// as the land grid yields no rows, as does any row without a numeric
// improvement number.
func AdditionalImprovementsFrom(table *html.Node) []record.AdditionalImprovementRow {
	out := []record.AdditionalImprovementRow{}
	if table == nil || isNavLike(table) || isLandLike(table) {
		return out
	}
	rows := htmlutil.Rows(table)
	if len(rows) <= 1 {
		return out
	}
	hdrs := make([]string, 0)
	for _, h := range cellTexts(htmlutil.Cells(rows[0])) {
		hdrs = append(hdrs, strings.ToLower(h))
	}
	if textutil.MatchName(strings.Join(hdrs, " | "), navWords) {
		return out
	}

	var (
		iNum   = columnIndex(hdrs, "imp #", "imp#", "imp no", "number", "#")
		iType  = columnIndex(hdrs, "type")
		iDesc  = columnIndex(hdrs, "desc")
		iYear  = columnIndex(hdrs, "year")
		iCon   = columnIndex(hdrs, "construction", "constr")
		iFloor = columnIndex(hdrs, "floor")
		iWall  = columnIndex(hdrs, "ext wall", "exterior wall", "ext. wall", "wall")
		iStor  = columnIndex(hdrs, "stories", "# stories")
		iArea  = columnIndex(hdrs, "area size", "area", "sq ft", "sqft", "size")
		iVal   = columnIndex(hdrs, "value")
		iDepr  = columnIndex(hdrs, "depr", "depreciation")
	)

	for _, row := range rows[1:] {
		tds := cellTexts(dataCells(row))
		if len(tds) == 0 {
			continue
		}
		if textutil.MatchName(strings.Join(tds, " "), navWords) {
			continue
		}
		num, ok := number(at(tds, iNum)).Int()
		if !ok {
			continue
		}
		areaSize := at(tds, iArea)
		out = append(out, record.AdditionalImprovementRow{
			ImpNum:       normalize.Some(strconv.FormatInt(num, 10)),
			ImpType:      at(tds, iType),
			ImpDesc:      at(tds, iDesc),
			YearBuilt:    number(at(tds, iYear)),
			Construction: at(tds, iCon),
			FloorType:    at(tds, iFloor),
			ExtWall:      at(tds, iWall),
			NumStories:   number(at(tds, iStor)),
			AreaSize:     areaSize,
			AreaSqft:     area(areaSize),
			Value:        at(tds, iVal),
			Depreciation: at(tds, iDepr),
		})
	}
	return out
}

// AdditionalImprovements locates and reads the additional improvements grid.
func AdditionalImprovements(root *html.Node) []record.AdditionalImprovementRow {
	return AdditionalImprovementsFrom(AdditionalImprovementsTable(root))
}

var landTargets = []locator.Target{
	locator.ID("Land1_dgLand"),
	locator.IDPrefix("lblland"),
	locator.Heading("land"),
}

// landColumns lists the header keywords of each land column, in the order the
// grid renders them when its headers can not be read.
var landColumns = [][]string{
	{"#", "number", "line"},
	{"state code", "sptb", "state"},
	{"zoning"},
	{"frontage"},
	{"depth"},
	{"area"},
	{"pricing method", "method"},
	{"unit price"},
	{"market adj", "mkt adj"},
	{"adjusted price", "adj price"},
	{"ag land", "agricultural"},
}

// landColumnIndexes maps each land column to a header, no header is claimed
// twice. When fewer than three columns are recognized the default layout is
// assumed.
func landColumnIndexes(hdrs []string) []int {
	idx := make([]int, len(landColumns))
	claimed := map[int]bool{}
	recognized := 0
	for c, keys := range landColumns {
		idx[c] = -1
		for _, k := range keys {
			for i, h := range hdrs {
				if !claimed[i] && strings.Contains(h, k) {
					idx[c] = i
					break
				}
			}
			if idx[c] >= 0 {
				claimed[idx[c]] = true
				recognized++
				break
			}
		}
	}
	if recognized < 3 {
		for c := range idx {
			idx[c] = c
		}
	}
	return idx
}

// LandTable resolves the land detail grid, or nil.
func LandTable(root *html.Node) *html.Node {
	return locator.Find(root, landTargets...)
}

// LandDetailFrom reads the rows of a land detail grid. A table whose headers
// identify it as an improvements grid yields no rows.
func LandDetailFrom(table *html.Node) []record.LandRow {
	out := []record.LandRow{}
	if table == nil || isImprovementLike(table) {
		return out
	}
	rows := htmlutil.Rows(table)
	if len(rows) <= 1 {
		return out
	}
	var hdrs []string
	for _, h := range cellTexts(htmlutil.Cells(rows[0])) {
		hdrs = append(hdrs, strings.ToLower(h))
	}
	idx := landColumnIndexes(hdrs)

	for _, row := range rows[1:] {
		tds := cellTexts(dataCells(row))
		num := number(at(tds, idx[0]))
		if !num.Present() {
			continue
		}
		agLand := normalize.Flag{}
		if v, ok := at(tds, idx[10]).Get(); ok {
			agLand = normalize.YesNo(v)
		}
		out = append(out, record.LandRow{
			Number:              num,
			StateCode:           at(tds, idx[1]),
			Zoning:              at(tds, idx[2]),
			FrontageFt:          number(at(tds, idx[3])),
			DepthFt:             number(at(tds, idx[4])),
			AreaSqft:            area(at(tds, idx[5])),
			PricingMethod:       at(tds, idx[6]),
			UnitPrice:           at(tds, idx[7]),
			MarketAdjustmentPct: at(tds, idx[8]),
			AdjustedPrice:       at(tds, idx[9]),
			AgLand:              agLand,
		})
	}
	return out
}

// LandDetail locates and reads the land detail grid.
func LandDetail(root *html.Node) []record.LandRow {
	return LandDetailFrom(LandTable(root))
}
