// Package hydrate seeds wizard field sets from defaults or fetched records.
package hydrate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// TotalityError reports FieldSet keys left undefined by a hydration.
type TotalityError struct {
	Wizard  string
	Missing []string
}

func (e *TotalityError) Error() string {
	return fmt.Sprintf("hydrate %s: no source or default for %s", e.Wizard, strings.Join(e.Missing, ", "))
}

// Check returns a *TotalityError when a key of keys is absent or nil in fs.
func Check(wizard string, fs domain.FieldSet, keys []string) error {
	var missing []string
	for _, k := range keys {
		if v, ok := fs[k]; !ok || v == nil {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &TotalityError{Wizard: wizard, Missing: missing}
}

// Decode maps a wire record (snake_case keys, nested relations) onto out,
// which must be a pointer to a struct with mapstructure tags. Scalars are
// weakly typed: "150" decodes into a float64 field and vice versa.
func Decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("hydrate: build decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("hydrate: decode record: %w", err)
	}
	return nil
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(domain.DateLayout)
}

// AddDays shifts a DateLayout date by n days. Invalid input yields "".
func AddDays(date string, n int) string {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(date))
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, n).Format(domain.DateLayout)
}

// DaysBetween returns the whole days from start to end, or false when either
// date is invalid.
func DaysBetween(start, end string) (int, bool) {
	s, err := time.Parse(domain.DateLayout, strings.TrimSpace(start))
	if err != nil {
		return 0, false
	}
	e, err := time.Parse(domain.DateLayout, strings.TrimSpace(end))
	if err != nil {
		return 0, false
	}
	return int(e.Sub(s).Hours() / 24), true
}

// DateOnly normalises a wire date or timestamp to DateLayout. Empty or
// unparsable input yields "".
func DateOnly(s string, loc *time.Location) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{domain.DateLayout, time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			if layout == domain.DateLayout {
				return t.Format(domain.DateLayout)
			}
			return t.In(loc).Format(domain.DateLayout)
		}
	}
	return ""
}

// OrDefault returns s, or def when s is blank.
func OrDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
