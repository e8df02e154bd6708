package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

// MatchName reports whether the normalized name contains any of the matchers.
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// CountMatches counts how many matchers occur in the normalized name.
func CountMatches(name string, matchers []string) int {
	name = NormalizeName(name)
	count := 0
	for _, m := range matchers {
		if strings.Contains(name, m) {
			count++
		}
	}
	return count
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeKey turns a free-text label into a snake_case key: percent signs
// become "pct", slashes and ampersands become separators.
func NormalizeKey(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.NewReplacer("%", " pct ", "/", " ", "&", " ").Replace(s)
	s = nonAlnum.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
