// Package locator finds the tables that hold each section of an appraisal
// page. Every target degrades to nil instead of failing, so extractors can
// chain targets and take the first one that resolves.
package locator

import (
	"strings"

	"dcad-backend/lib/htmlutil"
	"dcad-backend/lib/textutil"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxTables bounds how many tables a forward scan inspects after its
// starting point.
const MaxTables = 20

// SectionHeaderClass marks the section title spans on every page.
const SectionHeaderClass = "DtlSectionHdr"

// Target resolves to the table holding a section, or nil.
type Target interface {
	Locate(root *html.Node) *html.Node
}

// Find runs the targets in order and returns the first table found.
func Find(root *html.Node, targets ...Target) *html.Node {
	if root == nil {
		return nil
	}
	for _, t := range targets {
		if table := t.Locate(root); table != nil {
			return table
		}
	}
	return nil
}

// TableAfter returns the first table following start in document order that
// holds at least one cell, looking at no more than MaxTables tables.
func TableAfter(start *html.Node) *html.Node {
	cur := start
	for i := 0; i < MaxTables && cur != nil; i++ {
		cur = htmlutil.FindNext(cur, isTable)
		if cur == nil {
			return nil
		}
		if htmlutil.HasCells(cur) {
			return cur
		}
	}
	return nil
}

func isTable(n *html.Node) bool {
	return htmlutil.IsElement(n, atom.Table)
}

func isSectionHeader(n *html.Node) bool {
	return htmlutil.IsElement(n, atom.Span) && htmlutil.HasClass(n, SectionHeaderClass)
}

func lowerText(n *html.Node) string {
	return textutil.NormalizeName(htmlutil.GetText(n))
}

// ID resolves an element by exact id. A table is returned as is, any other
// element yields the first table after it.
type ID string

func (t ID) Locate(root *html.Node) *html.Node {
	el := htmlutil.FindByID(root, string(t))
	if el == nil {
		return nil
	}
	if isTable(el) {
		return el
	}
	return TableAfter(el)
}

// IDPrefix resolves a section header span whose id starts with the prefix,
// compared case-insensitively.
type IDPrefix string

func (t IDPrefix) Locate(root *html.Node) *html.Node {
	prefix := strings.ToLower(string(t))
	hdr := htmlutil.Find(root, func(n *html.Node) bool {
		return isSectionHeader(n) && strings.HasPrefix(strings.ToLower(htmlutil.ID(n)), prefix)
	})
	if hdr == nil {
		return nil
	}
	return TableAfter(hdr)
}

// Heading resolves a phrase by looking, in order, at heading-like elements,
// section header spans and finally any text on the page.
type Heading string

var headingTags = []atom.Atom{atom.H2, atom.H3, atom.H4, atom.B, atom.Strong}

func (t Heading) Locate(root *html.Node) *html.Node {
	start := t.start(root)
	if start == nil {
		return nil
	}
	return TableAfter(start)
}

func (t Heading) start(root *html.Node) *html.Node {
	phrase := strings.ToLower(string(t))
	if phrase == "" {
		return nil
	}
	if h := htmlutil.Find(root, func(n *html.Node) bool {
		return htmlutil.IsElement(n, headingTags...) && strings.Contains(lowerText(n), phrase)
	}); h != nil {
		return h
	}
	if h := htmlutil.Find(root, func(n *html.Node) bool {
		return isSectionHeader(n) && strings.Contains(lowerText(n), phrase)
	}); h != nil {
		return h
	}
	text := htmlutil.Find(root, func(n *html.Node) bool {
		return n.Type == html.TextNode && strings.Contains(strings.ToLower(n.Data), phrase)
	})
	if text == nil {
		return nil
	}
	return text.Parent
}

// Headings resolves the first heading-like element matching any of the
// phrases that has a table after it.
type Headings []string

var headingCandidateTags = []atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.Strong, atom.Label}

func (t Headings) Locate(root *html.Node) *html.Node {
	phrases := make([]string, 0, len(t))
	for _, p := range t {
		phrases = append(phrases, strings.ToLower(p))
	}
	candidates := htmlutil.FindAll(root, func(n *html.Node) bool {
		if htmlutil.IsElement(n, headingCandidateTags...) || isSectionHeader(n) {
			return true
		}
		return htmlutil.IsElement(n, atom.Div) &&
			(htmlutil.HasClass(n, "section-title") || htmlutil.HasClass(n, "card-title"))
	})
	for _, c := range candidates {
		if !textutil.MatchName(htmlutil.GetText(c), phrases) {
			continue
		}
		if table := TableAfter(c); table != nil {
			return table
		}
	}
	return nil
}

// Anchor resolves a named anchor (<a name="...">), falling back to Heading
// when the anchor is missing.
type Anchor struct {
	Name    string
	Heading string
}

func (t Anchor) Locate(root *html.Node) *html.Node {
	a := htmlutil.Find(root, func(n *html.Node) bool {
		return htmlutil.IsElement(n, atom.A) && strings.EqualFold(htmlutil.Attr(n, "name"), t.Name)
	})
	if a != nil {
		if table := TableAfter(a); table != nil {
			return table
		}
	}
	if t.Heading == "" {
		return nil
	}
	return Heading(t.Heading).Locate(root)
}

// Section resolves a section header span whose text contains every keyword
// and returns the first table after it, stopping at the next section header.
type Section []string

func (t Section) Locate(root *html.Node) *html.Node {
	for _, hdr := range htmlutil.FindAll(root, isSectionHeader) {
		text := lowerText(hdr)
		matched := true
		for _, k := range t {
			if !strings.Contains(text, strings.ToLower(k)) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		for n := htmlutil.Next(hdr); n != nil; n = htmlutil.Next(n) {
			if isSectionHeader(n) {
				break
			}
			if isTable(n) {
				return n
			}
		}
	}
	return nil
}

// Func adapts a plain function into a Target.
type Func func(root *html.Node) *html.Node

func (f Func) Locate(root *html.Node) *html.Node {
	return f(root)
}
