package schema

import (
	"time"

	"github.com/aretw0/rentdesk/pkg/domain"
)

// View is a read-only window on a FieldSet restricted to the keys a
// validator owns or declares as dependencies. Other keys read as absent.
type View struct {
	fs      domain.FieldSet
	allowed map[string]struct{}
}

func newView(fs domain.FieldSet, keys ...[]string) View {
	allowed := make(map[string]struct{})
	for _, group := range keys {
		for _, k := range group {
			allowed[k] = struct{}{}
		}
	}
	return View{fs: fs, allowed: allowed}
}

// Get returns the raw value, or nil if the key is outside the view.
func (v View) Get(key string) any {
	if _, ok := v.allowed[key]; !ok {
		return nil
	}
	return v.fs[key]
}

// Visible reports whether key is readable through this view.
func (v View) Visible(key string) bool {
	_, ok := v.allowed[key]
	return ok
}

func (v View) String(key string) string {
	return domain.Text(v.Get(key))
}

func (v View) Float(key string) (float64, bool) {
	return domain.Number(v.Get(key))
}

func (v View) Bool(key string) bool {
	return domain.FieldSet{key: v.Get(key)}.Bool(key)
}

func (v View) IsEmpty(key string) bool {
	return domain.FieldSet{key: v.Get(key)}.IsEmpty(key)
}

// Date parses the value as a calendar date in loc.
func (v View) Date(key string, loc *time.Location) (time.Time, bool) {
	s := v.String(key)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(domain.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
