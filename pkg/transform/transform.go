// Package transform holds the coercion helpers used to turn a FieldSet into
// a server-shaped payload.
//
// The helpers never fail. Unparsable numbers become 0 and blank optional
// values become nil (JSON null); both are deliberate policies covered by
// tests, not error paths.
package transform

import (
	"html"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// Number coerces v to a float64. Empty, unparsable, NaN and infinite values
// yield 0.
func Number(v any) float64 {
	f, ok := domain.Number(v)
	if !ok {
		return 0
	}
	return f
}

// Int coerces v like Number and truncates toward zero.
func Int(v any) int {
	return int(math.Trunc(Number(v)))
}

// Money rounds Number(v) to cents.
func Money(v any) float64 {
	return math.Round(Number(v)*100) / 100
}

// Bool coerces v with the FieldSet truthiness rules.
func Bool(v any) bool {
	return domain.FieldSet{"v": v}.Bool("v")
}

// NullIfEmpty returns nil for absent or blank values and the trimmed text
// otherwise. Used for optional relational fields.
func NullIfEmpty(v any) any {
	s := strings.TrimSpace(domain.Text(v))
	if s == "" {
		return nil
	}
	return s
}

// Text trims v and strips any markup.
func Text(v any) string {
	s := strings.TrimSpace(domain.Text(v))
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(policy().Sanitize(s)))
}

// NullableText is Text returning nil for blank results.
func NullableText(v any) any {
	if s := Text(v); s != "" {
		return s
	}
	return nil
}

// Date normalises a DateLayout value. Invalid dates yield nil.
func Date(v any) any {
	s := strings.TrimSpace(domain.Text(v))
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return nil
	}
	return t.Format(domain.DateLayout)
}

func policy() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
