package extract

import (
	"regexp"
	"strconv"
	"strings"

	"dcad-backend/internal/locator"
	"dcad-backend/internal/normalize"
	"dcad-backend/internal/record"
	"dcad-backend/lib/htmlutil"
	"dcad-backend/lib/textutil"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var mainHeadingPhrases = []string{
	"main improvement", "main improvements", "main building", "primary improvement",
	"residential improvements", "building information", "improvements - main",
	"res improvements", "primary building",
}

var mainHeaderSignals = []string{
	"effective year built", "year built", "yr built", "eff yr",
	"total living area", "living area", "total area",
	"stories", "# stories", "desirability", "desirability code",
	"construction", "construction type", "foundation",
	"roof", "roof type", "roof material", "exterior", "ext. wall",
	"baths", "bedrooms",
}

var mainContentSignals = []string{
	"year built", "effective year built", "yr built", "eff yr",
	"living area", "total living area", "total area",
	"# stories", "stories",
	"desirability", "construction", "foundation",
	"roof type", "roof material", "exterior", "ext. wall",
	"baths", "bedrooms", "basement",
}

// mainImprovementTargets is tried in order before falling back to scoring
// every table on the page by content.
var mainImprovementTargets = []locator.Target{
	locator.Heading("main improvement"),
	locator.IDPrefix("lblmainimp"),
	locator.Headings(mainHeadingPhrases),
	locator.Func(firstMainImprovementTable),
}

func allTables(root *html.Node) []*html.Node {
	return htmlutil.FindAll(root, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Table) })
}

func firstMainImprovementTable(root *html.Node) *html.Node {
	for _, t := range allTables(root) {
		for _, h := range headers(t) {
			if textutil.MatchName(h, mainHeaderSignals) {
				return t
			}
		}
	}
	return nil
}

// bestMainImprovementByContent picks the table whose key-value labels hit
// the most improvement signals, requiring at least three hits.
func bestMainImprovementByContent(root *html.Node) *html.Node {
	var best *html.Node
	bestScore := 0
	for _, t := range allTables(root) {
		if isNavLike(t) || isLandLike(t) {
			continue
		}
		score := ReadKeyValues(t).Score(mainContentSignals)
		if score > bestScore {
			best = t
			bestScore = score
		}
	}
	if bestScore < 3 {
		return nil
	}
	return best
}

var storyWords = map[string]float64{
	"ONE": 1, "TWO": 2, "THREE": 3, "FOUR": 4, "FIVE": 5, "SIX": 6,
}

var leadingDecimal = regexp.MustCompile(`\d+(?:\.\d+)?`)

// StoriesToNumber reads a story count from either a numeral or a leading
// English number word, "HALF" anywhere adds half a story to the word form.
func StoriesToNumber(text string) normalize.Number {
	if m := leadingDecimal.FindString(text); m != "" {
		return normalize.ParseNumber(m)
	}
	words := strings.Fields(strings.ToUpper(text))
	if len(words) == 0 {
		return normalize.Number{}
	}
	n, ok := storyWords[words[0]]
	if !ok {
		return normalize.Number{}
	}
	if strings.Contains(strings.ToUpper(text), "HALF") {
		n += 0.5
	}
	return normalize.Num(n)
}

// splitBaths splits a combined "full/half" bath count.
func splitBaths(kv KeyValues) (normalize.Number, normalize.Number) {
	v, ok := kv.Any("# baths (full/half)", "baths (full/half)").Get()
	if !ok {
		return normalize.Number{}, normalize.Number{}
	}
	parts := strings.Split(strings.ReplaceAll(v, " ", ""), "/")
	if len(parts) != 2 {
		return normalize.Number{}, normalize.Number{}
	}
	return normalize.ParseNumber(parts[0]), normalize.ParseNumber(parts[1])
}

var signedNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

func firstSignedNumber(t normalize.Text) normalize.Number {
	v, ok := t.Get()
	if !ok {
		return normalize.Number{}
	}
	m := signedNumber.FindString(v)
	if m == "" {
		return normalize.Number{}
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return normalize.Number{}
	}
	return normalize.Num(n)
}

func number(t normalize.Text) normalize.Number {
	v, ok := t.Get()
	if !ok {
		return normalize.Number{}
	}
	return normalize.ParseNumber(v)
}

func area(t normalize.Text) normalize.Number {
	v, ok := t.Get()
	if !ok {
		return normalize.Number{}
	}
	return normalize.ParseArea(v)
}

func percent(t normalize.Text) normalize.Number {
	v, ok := t.Get()
	if !ok {
		return normalize.Number{}
	}
	return normalize.ParsePercent(v)
}

// MainImprovementTable resolves the main improvement table, or nil.
func MainImprovementTable(root *html.Node) *html.Node {
	if table := locator.Find(root, mainImprovementTargets...); table != nil {
		return table
	}
	return bestMainImprovementByContent(root)
}

// MainImprovement extracts the main building's attributes. A missing table
// yields an all-absent value.
func MainImprovement(root *html.Node) record.MainImprovement {
	table := MainImprovementTable(root)
	if table == nil {
		return record.MainImprovement{}
	}
	kv := ReadKeyValues(table)

	storiesRaw := kv.Any("# stories", "stories")
	var stories normalize.Number
	if s, ok := storiesRaw.Get(); ok {
		stories = StoriesToNumber(s)
	}

	bathsFull, bathsHalf := splitBaths(kv)
	if !bathsFull.Present() {
		bathsFull = number(kv.Any("# baths (full)", "baths full", "full baths"))
	}
	if !bathsHalf.Present() {
		bathsHalf = number(kv.Any("# baths (half)", "baths half", "half baths"))
	}

	desirability := kv.Any("desirability")
	basement := kv.Lookup("basement")

	return record.MainImprovement{
		BuildingClass:      kv.Any("building class"),
		YearBuilt:          number(kv.Any("year built", "yr built", "built")),
		EffectiveYearBuilt: number(kv.Any("effective year built", "eff year built", "eff yr")),
		ActualAge:          firstSignedNumber(kv.Any("actual age", "age")),
		Desirability:       desirability,
		DesirabilityRaw:    desirability,
		DesirabilityID:     number(kv.Any("desirability id", "desirability code")),
		LivingAreaSqft:     area(kv.Any("living area", "liv area", "area living")),
		TotalLivingArea:    area(kv.Any("total living area", "total liv area", "living area total")),
		TotalAreaSqft:      area(kv.Any("total area", "area total")),
		PercentComplete:    number(kv.Any("% complete", "percent complete", "complete %")),
		Stories:            stories,
		StoriesRaw:         storiesRaw,
		Depreciation:       percent(kv.Any("depreciation", "depr %", "depreciation %")),
		ConstructionType:   kv.Any("construction type", "constr type", "construction"),
		Foundation:         kv.Any("foundation", "found type"),
		RoofType:           kv.Any("roof type", "type roof"),
		RoofMaterial:       kv.Any("roof material", "material roof"),
		FenceType:          kv.Any("fence type", "type fence"),
		ExteriorMaterial:   kv.Any("ext. wall material", "exterior wall material", "exterior"),
		BasementRaw:        kv.Any("basement"),
		Basement:           normalize.FlagOf(basement),
		Heating:            kv.Any("heating", "heat type"),
		AirConditioning:    kv.Any("air condition", "air conditioning", "ac type"),
		BathsFull:          bathsFull,
		BathsHalf:          bathsHalf,
		BedroomCount:       number(kv.Any("# bedrooms", "bedrooms", "bed rooms", "bed room", "bedroom")),
		Kitchens:           number(kv.Any("# kitchens", "kitchens")),
		Wetbars:            number(kv.Any("# wet bars", "wet bars")),
		Fireplaces:         number(kv.Any("# fireplaces", "fireplaces")),
		Sprinkler:          normalize.FlagOf(kv.Lookup("sprinkler")),
		Deck:               normalize.FlagOf(kv.Lookup("deck")),
		Spa:                normalize.FlagOf(kv.Lookup("spa")),
		Pool:               normalize.FlagOf(kv.Lookup("pool")),
		Sauna:              normalize.FlagOf(kv.Lookup("sauna")),
	}
}
