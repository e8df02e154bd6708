package htmlutil

import (
	"bytes"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// GetTextSeparated is GetText with sep written between every text node.
func GetTextSeparated(node *html.Node, sep string) string {
	return strings.Join(textNodes(node), sep)
}

// Lines returns every non-blank text node below node, whitespace collapsed.
// Elements like <br> split the text into separate lines.
func Lines(node *html.Node) []string {
	var out []string
	for _, s := range textNodes(node) {
		s = collapse(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func textNodes(node *html.Node) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n == nil {
			return
		}
		if n.Type == html.TextNode {
			out = append(out, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return out
}

func collapse(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	}), " ")
}

func Attr(node *html.Node, key string) string {
	if node == nil {
		return ""
	}
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func ID(node *html.Node) string {
	return Attr(node, "id")
}

func HasClass(node *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(node, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// IsElement reports whether node is an element with one of the given tags,
// any element matches when no tags are given.
func IsElement(node *html.Node, tags ...atom.Atom) bool {
	if node == nil || node.Type != html.ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if node.DataAtom == t {
			return true
		}
	}
	return false
}

func IsCell(node *html.Node) bool {
	return IsElement(node, atom.Th, atom.Td)
}

// Next returns the node following node in document order, descending into
// children first.
func Next(node *html.Node) *html.Node {
	if node == nil {
		return nil
	}
	if node.FirstChild != nil {
		return node.FirstChild
	}
	for n := node; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

// FindNext returns the first node after node in document order that
// satisfies match.
func FindNext(node *html.Node, match func(*html.Node) bool) *html.Node {
	for n := Next(node); n != nil; n = Next(n) {
		if match(n) {
			return n
		}
	}
	return nil
}

// Find returns the first descendant of root in document order that satisfies
// match.
func Find(root *html.Node, match func(*html.Node) bool) *html.Node {
	if root == nil {
		return nil
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := Find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func FindAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if match(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

func FindByID(root *html.Node, id string) *html.Node {
	return Find(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && ID(n) == id
	})
}

func Ancestor(node *html.Node, tag atom.Atom) *html.Node {
	if node == nil {
		return nil
	}
	for n := node.Parent; n != nil; n = n.Parent {
		if IsElement(n, tag) {
			return n
		}
	}
	return nil
}

// Rows returns the rows owned by table, rows of nested tables are skipped.
func Rows(table *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case IsElement(c, atom.Table):
				continue
			case IsElement(c, atom.Tr):
				out = append(out, c)
			default:
				walk(c)
			}
		}
	}
	if table != nil {
		walk(table)
	}
	return out
}

// Cells returns the th and td children of a row.
func Cells(row *html.Node) []*html.Node {
	var out []*html.Node
	if row == nil {
		return out
	}
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if IsCell(c) {
			out = append(out, c)
		}
	}
	return out
}

// StreamCells flattens every cell owned by table in document order, ignoring
// how the cells were grouped into rows.
func StreamCells(table *html.Node) []*html.Node {
	var out []*html.Node
	for _, row := range Rows(table) {
		out = append(out, Cells(row)...)
	}
	return out
}

// HasCells reports whether table contains at least one header or data cell.
func HasCells(table *html.Node) bool {
	return Find(table, IsCell) != nil
}
