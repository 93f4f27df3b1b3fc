package schema

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Rule defines the contract for one field constraint.
type Rule interface {
	// Name returns a short description used by introspection (e.g. "min:1").
	Name() string
	// Check validates the value of key. A non-nil error carries the message
	// shown to the user.
	Check(v View, key string, now time.Time) error
}

// emptyAware is implemented by rules that must run on empty values.
// Every other rule is skipped for empty optional fields.
type emptyAware interface {
	appliesToEmpty() bool
}

// Amount tolerance for currency comparisons (half a cent).
const Epsilon = 0.005

type funcRule struct {
	name       string
	check      func(v View, key string, now time.Time) error
	checkEmpty bool
}

func (r *funcRule) Name() string { return r.name }
func (r *funcRule) Check(v View, key string, now time.Time) error {
	return r.check(v, key, now)
}
func (r *funcRule) appliesToEmpty() bool { return r.checkEmpty }

func fail(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// --- Factory Functions ---

// Required rejects absent, nil and blank values.
func Required() Rule {
	return &funcRule{name: "required", checkEmpty: true, check: func(v View, key string, _ time.Time) error {
		if v.IsEmpty(key) {
			return fail("is required")
		}
		return nil
	}}
}

// RequiredIf makes key required while cond holds.
func RequiredIf(desc string, cond func(v View) bool) Rule {
	return &funcRule{name: "required_if:" + desc, checkEmpty: true, check: func(v View, key string, _ time.Time) error {
		if cond(v) && v.IsEmpty(key) {
			return fail("is required")
		}
		return nil
	}}
}

// Number requires a finite numeric value.
func Number() Rule {
	return &funcRule{name: "number", check: func(v View, key string, _ time.Time) error {
		if _, ok := v.Float(key); !ok {
			return fail("must be a number")
		}
		return nil
	}}
}

// NonNegative requires a number >= 0.
func NonNegative() Rule {
	return Min(0)
}

// Positive requires a number > 0.
func Positive() Rule {
	return &funcRule{name: "positive", check: func(v View, key string, _ time.Time) error {
		f, ok := v.Float(key)
		if !ok {
			return fail("must be a number")
		}
		if f <= 0 {
			return fail("must be greater than 0")
		}
		return nil
	}}
}

// Min requires a number >= n.
func Min(n float64) Rule {
	return &funcRule{name: fmt.Sprintf("min:%g", n), check: func(v View, key string, _ time.Time) error {
		f, ok := v.Float(key)
		if !ok {
			return fail("must be a number")
		}
		if f < n {
			if n == 0 {
				return fail("must not be negative")
			}
			return fail("must be at least %g", n)
		}
		return nil
	}}
}

// Max requires a number <= n.
func Max(n float64) Rule {
	return &funcRule{name: fmt.Sprintf("max:%g", n), check: func(v View, key string, _ time.Time) error {
		f, ok := v.Float(key)
		if !ok {
			return fail("must be a number")
		}
		if f > n {
			return fail("must be at most %g", n)
		}
		return nil
	}}
}

// Integer requires a whole number.
func Integer() Rule {
	return &funcRule{name: "integer", check: func(v View, key string, _ time.Time) error {
		f, ok := v.Float(key)
		if !ok {
			return fail("must be a number")
		}
		if f != math.Trunc(f) {
			return fail("must be a whole number")
		}
		return nil
	}}
}

// MinInt requires a whole number >= n.
func MinInt(n int) Rule {
	return &funcRule{name: fmt.Sprintf("min_int:%d", n), check: func(v View, key string, _ time.Time) error {
		f, ok := v.Float(key)
		if !ok {
			return fail("must be a number")
		}
		if f != math.Trunc(f) {
			return fail("must be a whole number")
		}
		if f < float64(n) {
			return fail("must be at least %d", n)
		}
		return nil
	}}
}

// AtLeastField requires a number >= the number stored under other.
// The rule passes when other is empty or not numeric.
func AtLeastField(other string) Rule {
	return &funcRule{name: "gte_field:" + other, check: func(v View, key string, _ time.Time) error {
		f, ok := v.Float(key)
		if !ok {
			return fail("must be a number")
		}
		ref, ok := v.Float(other)
		if !ok {
			return nil
		}
		if f < ref {
			return fail("must be at least %s (%g)", other, ref)
		}
		return nil
	}}
}

// EqualsAmount requires the number to match expected within Epsilon.
// expected reports ok=false when it cannot be computed; the rule then passes
// and the missing inputs are reported by their own steps.
func EqualsAmount(desc string, expected func(v View) (float64, bool), message string) Rule {
	return &funcRule{name: "equals:" + desc, check: func(v View, key string, _ time.Time) error {
		f, ok := v.Float(key)
		if !ok {
			return fail("must be a number")
		}
		want, ok := expected(v)
		if !ok {
			return nil
		}
		if math.Abs(f-want) > Epsilon {
			return fail("%s (expected %.2f)", message, want)
		}
		return nil
	}}
}

// Date requires a DateLayout date.
func Date() Rule {
	return &funcRule{name: "date", check: func(v View, key string, now time.Time) error {
		if _, ok := v.Date(key, now.Location()); !ok {
			return fail("must be a date (YYYY-MM-DD)")
		}
		return nil
	}}
}

// NotPast requires a date on or after the validation day. The comparison
// uses the clock passed to Validate, never the time the value was entered.
func NotPast() Rule {
	return &funcRule{name: "not_past", check: func(v View, key string, now time.Time) error {
		d, ok := v.Date(key, now.Location())
		if !ok {
			return fail("must be a date (YYYY-MM-DD)")
		}
		if d.Before(startOfDay(now)) {
			return fail("must not be in the past")
		}
		return nil
	}}
}

// Future requires a date strictly after the validation day.
func Future() Rule {
	return &funcRule{name: "future", check: func(v View, key string, now time.Time) error {
		d, ok := v.Date(key, now.Location())
		if !ok {
			return fail("must be a date (YYYY-MM-DD)")
		}
		if !d.After(startOfDay(now)) {
			return fail("must be in the future")
		}
		return nil
	}}
}

// After requires a date strictly after the date stored under other.
// The rule passes while other is empty or invalid.
func After(other string) Rule {
	return &funcRule{name: "after:" + other, check: func(v View, key string, now time.Time) error {
		d, ok := v.Date(key, now.Location())
		if !ok {
			return fail("must be a date (YYYY-MM-DD)")
		}
		ref, ok := v.Date(other, now.Location())
		if !ok {
			return nil
		}
		if !d.After(ref) {
			return fail("must be after %s", other)
		}
		return nil
	}}
}

// OneOf restricts the value to a fixed set of strings.
func OneOf(values ...string) Rule {
	return &funcRule{name: "one_of:" + strings.Join(values, "|"), check: func(v View, key string, _ time.Time) error {
		s := v.String(key)
		for _, allowed := range values {
			if s == allowed {
				return nil
			}
		}
		return fail("must be one of %s", strings.Join(values, ", "))
	}}
}

// MaxLength limits the value to n characters.
func MaxLength(n int) Rule {
	return &funcRule{name: fmt.Sprintf("max_length:%d", n), check: func(v View, key string, _ time.Time) error {
		if utf8.RuneCountInString(v.String(key)) > n {
			return fail("must be at most %d characters", n)
		}
		return nil
	}}
}

// Length requires exactly n characters.
func Length(n int) Rule {
	return &funcRule{name: fmt.Sprintf("length:%d", n), check: func(v View, key string, _ time.Time) error {
		if utf8.RuneCountInString(strings.TrimSpace(v.String(key))) != n {
			return fail("must be exactly %d characters", n)
		}
		return nil
	}}
}

// Pattern requires the value to match re.
func Pattern(re *regexp.Regexp, message string) Rule {
	return &funcRule{name: "pattern:" + re.String(), check: func(v View, key string, _ time.Time) error {
		if !re.MatchString(strings.TrimSpace(v.String(key))) {
			return fail("%s", message)
		}
		return nil
	}}
}

// Custom creates a rule with a user-defined function.
func Custom(name string, check func(v View, key string, now time.Time) error) Rule {
	return &funcRule{name: name, check: check}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
