package store

import (
	"database/sql"
	"math"
	"strconv"
	"strings"

	"dcad-backend/internal/normalize"
)

var nullish = map[string]bool{
	"": true, "N/A": true, "NA": true, "NONE": true, "UNASSIGNED": true, "NULL": true, `N\A`: true,
}

func isNullish(s string) bool {
	return nullish[strings.ToUpper(strings.TrimSpace(s))]
}

func textOrNull(t normalize.Text) sql.NullString {
	v, ok := t.Get()
	if !ok || isNullish(v) {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.TrimSpace(v), Valid: true}
}

// parseSigned reads an amount such as "$1,234", "(1,234)" or "12.5%".
func parseSigned(s string) (float64, bool) {
	if isNullish(s) {
		return 0, false
	}
	s = strings.NewReplacer("$", "", ",", "", "%", "").Replace(strings.TrimSpace(s))
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func moneyOrNull(t normalize.Text) sql.NullInt64 {
	v, ok := t.Get()
	if !ok {
		return sql.NullInt64{}
	}
	f, ok := parseSigned(v)
	if !ok {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(math.Round(f)), Valid: true}
}

func percentOrNull(t normalize.Text) sql.NullFloat64 {
	v, ok := t.Get()
	if !ok {
		return sql.NullFloat64{}
	}
	f, ok := parseSigned(v)
	if !ok {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func intOrNull(n normalize.Number) sql.NullInt64 {
	v, ok := n.Int()
	if !ok {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

func floatOrNull(n normalize.Number) sql.NullFloat64 {
	v, ok := n.Get()
	if !ok {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// flagOrNull maps yes to true and none to false, unknown flags are null.
func flagOrNull(f normalize.Flag) sql.NullBool {
	switch f.State {
	case normalize.FlagYes:
		return sql.NullBool{Bool: true, Valid: true}
	case normalize.FlagNone:
		return sql.NullBool{Bool: false, Valid: true}
	}
	return sql.NullBool{}
}
