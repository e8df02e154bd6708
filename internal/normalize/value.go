package normalize

import (
	"encoding/json"
	"strconv"
)

// Absent is the token written in place of any field that was looked for but
// not found. Downstream consumers match on it literally.
const Absent = "N/A"

// Text is a string that may be absent. The zero value is absent.
type Text struct {
	value string
	ok    bool
}

func Some(s string) Text {
	return Text{value: s, ok: true}
}

func (t Text) Get() (string, bool) {
	return t.value, t.ok
}

func (t Text) Present() bool {
	return t.ok
}

// String returns the value, or Absent.
func (t Text) String() string {
	if !t.ok {
		return Absent
	}
	return t.value
}

// Or returns t when present, otherwise fallback.
func (t Text) Or(fallback Text) Text {
	if t.ok {
		return t
	}
	return fallback
}

func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Text) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Text{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == Absent {
		*t = Text{}
		return nil
	}
	*t = Some(s)
	return nil
}

// Number is a parsed numeric value that may be absent. The zero value is
// absent, which is distinct from a present zero.
type Number struct {
	value float64
	ok    bool
}

func Num(v float64) Number {
	return Number{value: v, ok: true}
}

func (n Number) Get() (float64, bool) {
	return n.value, n.ok
}

func (n Number) Present() bool {
	return n.ok
}

// Int truncates the value towards zero.
func (n Number) Int() (int64, bool) {
	return int64(n.value), n.ok
}

func (n Number) String() string {
	if !n.ok {
		return Absent
	}
	return strconv.FormatFloat(n.value, 'f', -1, 64)
}

func (n Number) Or(fallback Number) Number {
	if n.ok {
		return n
	}
	return fallback
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.ok {
		return json.Marshal(Absent)
	}
	return []byte(strconv.FormatFloat(n.value, 'f', -1, 64)), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Number{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*n = Num(v)
	return nil
}

type FlagState int

const (
	FlagUnknown FlagState = iota
	FlagYes
	FlagNone
)

// Flag is the tri-state result of a yes/no field. Raw carries the source text
// of an unknown flag and is empty when the field was never found.
type Flag struct {
	State FlagState
	Raw   string
}

func (f Flag) String() string {
	switch f.State {
	case FlagYes:
		return "Y"
	case FlagNone:
		return "NONE"
	}
	if f.Raw == "" {
		return Absent
	}
	return f.Raw
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Y":
		*f = Flag{State: FlagYes}
	case "NONE":
		*f = Flag{State: FlagNone}
	case Absent:
		*f = Flag{}
	default:
		*f = Flag{State: FlagUnknown, Raw: s}
	}
	return nil
}
