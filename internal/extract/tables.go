package extract

import (
	"regexp"
	"strings"

	"dcad-backend/internal/normalize"
	"dcad-backend/lib/htmlutil"
	"dcad-backend/lib/textutil"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// cellText is the whitespace-collapsed text of a node.
func cellText(n *html.Node) string {
	return normalize.Clean(htmlutil.GetTextSeparated(n, " "))
}

func cellTexts(cells []*html.Node) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		out = append(out, cellText(c))
	}
	return out
}

// dataCells returns only the td children of a row.
func dataCells(row *html.Node) []*html.Node {
	var out []*html.Node
	for _, c := range htmlutil.Cells(row) {
		if htmlutil.IsElement(c, atom.Td) {
			out = append(out, c)
		}
	}
	return out
}

// headerCell returns the first th child of a row.
func headerCell(row *html.Node) *html.Node {
	for _, c := range htmlutil.Cells(row) {
		if htmlutil.IsElement(c, atom.Th) {
			return c
		}
	}
	return nil
}

// at returns texts[i] as Text, absent when out of range or blank.
func at(texts []string, i int) normalize.Text {
	if i < 0 || i >= len(texts) {
		return normalize.Text{}
	}
	return normalize.CleanText(texts[i])
}

// headers returns the lower-cased, non-blank header labels of a table: the
// thead cells when present, otherwise the cells of the first row.
func headers(table *html.Node) []string {
	var cells []*html.Node
	thead := htmlutil.Find(table, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Thead) })
	if thead != nil {
		cells = htmlutil.FindAll(thead, htmlutil.IsCell)
	} else if rows := htmlutil.Rows(table); len(rows) > 0 {
		cells = htmlutil.Cells(rows[0])
	}
	var out []string
	for _, c := range cells {
		if h := strings.ToLower(cellText(c)); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func headerLine(table *html.Node) string {
	return strings.Join(headers(table), " | ")
}

var navWords = []string{
	"navigation", "links", "link", "map", "property map",
	"print", "help", "disclaimer", "version", "top", "return",
}

func isNavLike(table *html.Node) bool {
	if textutil.MatchName(headerLine(table), navWords) {
		return true
	}
	rows := htmlutil.Rows(table)
	if len(rows) == 0 {
		return false
	}
	return textutil.MatchName(strings.Join(cellTexts(htmlutil.Cells(rows[0])), " "), navWords)
}

// landVocabulary is the header vocabulary of the land detail grid.
var landVocabulary = []string{
	"state code", "zoning", "frontage", "depth", "pricing method",
	"unit price", "market adjustment", "adjusted price", "ag land", "acre",
}

// isLandLike reports whether a table's headers identify it as the land
// grid. The land and additional improvement grids have the same shape and
// can only be told apart by their header text.
func isLandLike(table *html.Node) bool {
	line := headerLine(table)
	return textutil.CountMatches(line, landVocabulary) >= 3 && !strings.Contains(line, "imp")
}

var improvementVocabulary = []string{
	"imp", "improvement", "construction", "floor", "ext wall", "wall",
	"stories", "depr", "year built",
}

// isImprovementLike is the mirror guard used when looking for the land grid.
func isImprovementLike(table *html.Node) bool {
	if isLandLike(table) {
		return false
	}
	return textutil.CountMatches(headerLine(table), improvementVocabulary) >= 2
}

// columnIndex finds the first header containing one of the keys, keys are
// tried in order.
func columnIndex(headers []string, keys ...string) int {
	for _, k := range keys {
		for i, h := range headers {
			if strings.Contains(h, k) {
				return i
			}
		}
	}
	return -1
}

// DatePattern accepts m/d/yy, m/d/yyyy, m-d-yyyy and bare four digit years.
var DatePattern = regexp.MustCompile(`\b[0-1]?\d[/\-][0-3]?\d[/\-](?:[0-9]{4}|[0-9]{2})\b|\b[12][0-9]{3}\b`)

var deedDateLabel = regexp.MustCompile(`(?i)deed.*date`)

// formAction returns the action of form#Form1, which the pages use to carry
// their own url.
func formAction(root *html.Node) normalize.Text {
	form := htmlutil.Find(root, func(n *html.Node) bool {
		return htmlutil.IsElement(n, atom.Form) && htmlutil.ID(n) == "Form1"
	})
	if form == nil {
		return normalize.Text{}
	}
	return normalize.CleanText(htmlutil.Attr(form, "action"))
}

func textByID(root *html.Node, id string) normalize.Text {
	el := htmlutil.FindByID(root, id)
	if el == nil {
		return normalize.Text{}
	}
	return normalize.CleanText(cellText(el))
}

// after returns the last node of n's subtree, so that a forward scan from it
// starts past everything n contains.
func after(n *html.Node) *html.Node {
	for n != nil && n.LastChild != nil {
		n = n.LastChild
	}
	return n
}
