package extract

import (
	"regexp"
	"strings"

	"dcad-backend/internal/normalize"
	"dcad-backend/lib/htmlutil"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// KeyValues is a case-insensitive label to value map read from a table.
type KeyValues map[string]string

var (
	labelClass  = regexp.MustCompile(`(?i)(FieldName|FieldLabel)`)
	valueClass  = regexp.MustCompile(`(?i)(FieldValue|FieldVal)`)
	colonSplit  = regexp.MustCompile(`\s*:\s*`)
	trailingSep = regexp.MustCompile(`\s*:\s*$`)
)

func normalizeLabel(label string) string {
	return strings.ToLower(trailingSep.ReplaceAllString(label, ""))
}

// setDefault keeps the first value seen for a label.
func (kv KeyValues) setDefault(label, value string) {
	label = normalizeLabel(label)
	if label == "" {
		return
	}
	if _, ok := kv[label]; ok {
		return
	}
	kv[label] = value
}

// ReadKeyValues reads label/value pairs out of every row of table. A single
// "label: value" cell is split on its colon, rows tagged with field label
// and value classes are paired by class, anything else is paired two cells
// at a time with an incomplete trailing pair dropped.
func ReadKeyValues(table *html.Node) KeyValues {
	out := KeyValues{}
	if table == nil {
		return out
	}
	rows := htmlutil.FindAll(table, func(n *html.Node) bool { return htmlutil.IsElement(n, atom.Tr) })
	for _, row := range rows {
		cells := htmlutil.Cells(row)
		raw := cellTexts(cells)
		if len(raw) == 2 && raw[0] != "" && raw[1] == "" {
			out.setDefault(raw[0], "")
			continue
		}
		var texts []string
		for _, t := range raw {
			if t != "" {
				texts = append(texts, t)
			}
		}

		switch {
		case len(texts) == 0:
			continue
		case len(texts) == 1:
			if !strings.Contains(texts[0], ":") {
				continue
			}
			parts := colonSplit.Split(texts[0], 2)
			if len(parts) == 2 && parts[0] != "" {
				out.setDefault(parts[0], parts[1])
			}
		case len(texts) == 2:
			out.setDefault(texts[0], texts[1])
		default:
			labels := classCells(row, labelClass)
			values := classCells(row, valueClass)
			if len(labels) > 0 && len(labels) == len(values) {
				for i := range labels {
					out.setDefault(cellText(labels[i]), cellText(values[i]))
				}
				continue
			}
			for i := 0; i+1 < len(texts); i += 2 {
				out.setDefault(texts[i], texts[i+1])
			}
		}
	}
	return out
}

func classCells(row *html.Node, pattern *regexp.Regexp) []*html.Node {
	return htmlutil.FindAll(row, func(n *html.Node) bool {
		return n.Type == html.ElementNode && pattern.MatchString(htmlutil.Attr(n, "class"))
	})
}

// Any returns the first non-blank value among the labels.
func (kv KeyValues) Any(labels ...string) normalize.Text {
	for _, l := range labels {
		if v := kv[l]; v != "" {
			return normalize.Some(v)
		}
	}
	return normalize.Text{}
}

// Has reports whether any of the labels was present, even with a blank value.
func (kv KeyValues) Has(labels ...string) bool {
	for _, l := range labels {
		if _, ok := kv[l]; ok {
			return true
		}
	}
	return false
}

// Lookup is Any, but a label that was present with a blank value yields a
// present empty Text instead of an absent one.
func (kv KeyValues) Lookup(labels ...string) normalize.Text {
	if v := kv.Any(labels...); v.Present() {
		return v
	}
	if kv.Has(labels...) {
		return normalize.Some("")
	}
	return normalize.Text{}
}

// Score counts how many signals appear as a substring of some label.
func (kv KeyValues) Score(signals []string) int {
	score := 0
	for _, s := range signals {
		for k := range kv {
			if strings.Contains(k, s) {
				score++
				break
			}
		}
	}
	return score
}
