package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
)

// textKeys is the fixed order in which wrapper objects are searched for a
// usable string.
var textKeys = []string{"text", "description", "intro"}

// Text is a field that providers send either as a plain string or as a
// wrapper object such as {"text": "...", "keyPoints": [...]}. It is resolved
// once at decode time: plain string, then .text, then .description, then
// .intro, then the empty string.
type Text string

// UnmarshalJSON never fails; shapes it cannot read resolve to "".
func (t *Text) UnmarshalJSON(b []byte) error {
	*t = Text(extractText(b, 0))
	return nil
}

// String returns the trimmed value.
func (t Text) String() string {
	return strings.TrimSpace(string(t))
}

func extractText(b []byte, depth int) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return ""
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			return s
		}
		return ""
	case '{':
		if depth >= 2 {
			return ""
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b, &obj); err != nil {
			return ""
		}
		for _, k := range textKeys {
			raw, ok := obj[k]
			if !ok {
				continue
			}
			if s := extractText(raw, depth+1); strings.TrimSpace(s) != "" {
				return s
			}
		}
		return ""
	case '[', 't', 'f':
		return ""
	default:
		// bare JSON number, e.g. numeric ids
		var n json.Number
		if err := json.Unmarshal(b, &n); err == nil {
			return n.String()
		}
		return ""
	}
}

// KeyPoints returns the "keyPoints" array of a wrapper object, or nil when the
// value is a plain string or carries no key points.
func KeyPoints(b []byte) []string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	var wrapper struct {
		KeyPoints []json.RawMessage `json:"keyPoints"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return nil
	}
	out := make([]string, 0, len(wrapper.KeyPoints))
	for _, raw := range wrapper.KeyPoints {
		if s := strings.TrimSpace(extractText(raw, 0)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Number is a numeric field that may arrive as a JSON number, a formatted
// string ("€ 200.000", "1,5") or null. Valid is false when no number could be
// read; a missing value is never reported as zero.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if v, ok := ParseNumber(s); ok {
			*n = Number{Value: v, Valid: true}
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err == nil {
		*n = Number{Value: v, Valid: true}
	}
	return nil
}

// ParseNumber reads a human formatted number. Both European ("200.000,50")
// and English ("200,000.50") grouping are understood. A single separator
// followed by exactly three digits is treated as a thousands separator.
func ParseNumber(s string) (float64, bool) {
	var b strings.Builder
scan:
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		case unicode.IsLetter(r) && b.Len() > 0:
			// unit suffix such as "m2" ends the number
			break scan
		}
	}
	cleaned := strings.Trim(b.String(), ".,")
	if cleaned == "" || cleaned == "-" {
		return 0, false
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		cleaned = normaliseSingleSeparator(cleaned, ",")
	case lastDot >= 0:
		cleaned = normaliseSingleSeparator(cleaned, ".")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func normaliseSingleSeparator(s, sep string) string {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	idx := strings.Index(s, sep)
	if len(s)-idx-1 == 3 {
		return strings.Replace(s, sep, "", 1)
	}
	return strings.Replace(s, sep, ".", 1)
}

// Flag is a boolean that providers send as true/false, 1/0 or "yes"/"no".
type Flag struct {
	Value bool
	Set   bool
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	*f = Flag{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case bool:
		*f = Flag{Value: v, Set: true}
	case float64:
		*f = Flag{Value: v != 0, Set: true}
	case string:
		if val, ok := ParseFlag(v); ok {
			*f = Flag{Value: val, Set: true}
		}
	}
	return nil
}

// ParseFlag reads the textual booleans found in feeds (English and Spanish).
func ParseFlag(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "si", "sí":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	}
	return false, false
}
