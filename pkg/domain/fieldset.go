package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// DateLayout is the wire and FieldSet representation of calendar dates.
const DateLayout = "2006-01-02"

// FieldSet is the flat record shared by every step of one wizard session.
// Values are string, float64, bool or a DateLayout-formatted string.
// Keys are globally unique across the steps of a wizard.
type FieldSet map[string]any

// Clone returns a shallow copy. Values are scalars, so this is a full copy.
func (fs FieldSet) Clone() FieldSet {
	out := make(FieldSet, len(fs))
	for k, v := range fs {
		out[k] = v
	}
	return out
}

// Has reports whether key is present, even if its value is empty.
func (fs FieldSet) Has(key string) bool {
	_, ok := fs[key]
	return ok
}

// String returns the value as text. Numbers are formatted without
// trailing zeros; absent keys yield "".
func (fs FieldSet) String(key string) string {
	return Text(fs[key])
}

// Float parses the value as a number. ok is false for empty or unparsable
// values.
func (fs FieldSet) Float(key string) (float64, bool) {
	return Number(fs[key])
}

// Bool returns the truthiness of a value. Strings "true", "1", "yes" and
// "on" count as true.
func (fs FieldSet) Bool(key string) bool {
	switch v := fs[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// IsEmpty reports whether the value for key is absent, nil or blank text.
func (fs FieldSet) IsEmpty(key string) bool {
	v, ok := fs[key]
	if !ok || v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Keys returns the field names in lexical order.
func (fs FieldSet) Keys() []string {
	keys := make([]string, 0, len(fs))
	for k := range fs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge writes every entry of patch into fs.
func (fs FieldSet) Merge(patch FieldSet) {
	for k, v := range patch {
		fs[k] = v
	}
}

// Text renders a scalar field value as the string a form input would show.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// Number parses a scalar field value. NaN and infinities are rejected.
func Number(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
