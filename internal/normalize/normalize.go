package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var whitespace = regexp.MustCompile(`[\s\x{00a0}]+`)

// Clean collapses runs of whitespace (including non-breaking spaces) into a
// single space and trims the result.
func Clean(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// CleanText is Clean but an empty result is reported as absent.
func CleanText(s string) Text {
	s = Clean(s)
	if s == "" {
		return Text{}
	}
	return Some(s)
}

var numberPattern = regexp.MustCompile(`[-+]?(?:\d[\d,]*(?:\.\d+)?|\.\d+)`)

// ParseNumber returns the first signed decimal number found in s, thousands
// separators are tolerated. Input without any number yields an absent Number.
func ParseNumber(s string) Number {
	match := numberPattern.FindString(Clean(s))
	if match == "" {
		return Number{}
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return Number{}
	}
	return Num(v)
}

var areaUnits = regexp.MustCompile(`(?i)(square\s+feet|sq\.?\s*ft\.?|sqft|acres?|\bsf\b|\bac\b)`)

// ParseArea strips unit suffixes (sqft, sf, square feet, acres) before
// parsing the number.
func ParseArea(s string) Number {
	return ParseNumber(areaUnits.ReplaceAllString(s, " "))
}

// ParsePercent strips a trailing percent sign before parsing the number.
func ParsePercent(s string) Number {
	s = strings.TrimSpace(Clean(s))
	s = strings.TrimSuffix(s, "%")
	return ParseNumber(s)
}

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// ParseYear accepts exactly four digits after cleanup.
func ParseYear(s string) (int, bool) {
	s = Clean(s)
	if !yearPattern.MatchString(s) {
		return 0, false
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return year, true
}

var (
	noValues  = map[string]struct{}{"N": {}, "NO": {}, "FALSE": {}, "NONE": {}, "": {}, "UNASSIGNED": {}}
	yesValues = map[string]struct{}{"Y": {}, "YES": {}, "TRUE": {}, "1": {}}
)

// YesNo maps a yes/no-ish label onto the tri-state Flag, unmapped text is
// kept as the flag's raw value.
func YesNo(s string) Flag {
	cleaned := Clean(s)
	upper := strings.ToUpper(cleaned)
	if _, ok := noValues[upper]; ok {
		return Flag{State: FlagNone}
	}
	if _, ok := yesValues[upper]; ok {
		return Flag{State: FlagYes}
	}
	return Flag{State: FlagUnknown, Raw: cleaned}
}

// FlagOf is YesNo for a field that may not have been found at all, a missing
// field stays unknown rather than collapsing to none.
func FlagOf(t Text) Flag {
	v, ok := t.Get()
	if !ok {
		return Flag{}
	}
	return YesNo(v)
}

// FormatCurrency renders a whole dollar amount the way the appraisal pages
// do, e.g. $40,000.
func FormatCurrency(v float64) string {
	n := int64(math.Round(v))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var out strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	return fmt.Sprintf("%s$%s", sign, out.String())
}
