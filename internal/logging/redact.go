package logging

import (
	"log/slog"
	"regexp"
)

// Mask replaces redacted values.
const Mask = "***"

// DefaultPIIPatterns match the customer identity fields of the wizards in
// both FieldSet (camelCase) and payload (snake_case) spelling.
var DefaultPIIPatterns = []string{`(?i)phone`, `(?i)id_?number`, `(?i)license`}

// Redactor masks values whose key matches one of its patterns.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor compiles patterns. It panics on an invalid pattern, like
// regexp.MustCompile.
func NewRedactor(patterns []string) *Redactor {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return &Redactor{patterns: compiled}
}

var defaultRedactor = NewRedactor(DefaultPIIPatterns)

// Redact returns a masked copy of m using DefaultPIIPatterns. m is not
// modified.
func Redact[M ~map[string]any](m M) map[string]any {
	return defaultRedactor.Apply(map[string]any(m))
}

// Apply returns a masked deep copy of m.
func (r *Redactor) Apply(m map[string]any) map[string]any {
	out := deepCopyMap(m)
	r.mask(out)
	return out
}

// Attr is slog.Any(key, Redact(m)).
func Attr[M ~map[string]any](key string, m M) slog.Attr {
	return slog.Any(key, Redact(m))
}

func (r *Redactor) mask(m map[string]any) {
	for k, v := range m {
		matched := false
		for _, p := range r.patterns {
			if p.MatchString(k) {
				m[k] = Mask
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			r.mask(sub)
		}
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(sub)
		} else {
			out[k] = v
		}
	}
	return out
}
