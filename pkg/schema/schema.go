package schema

import (
	"sort"
	"strings"
	"time"

	"github.com/aretw0/rentdesk/pkg/domain"
)

// CheckFunc is a cross-field constraint. It returns errors keyed by the field
// the user is expected to fix.
type CheckFunc func(v View, now time.Time) domain.FieldErrors

type fieldRules struct {
	key   string
	rules []Rule
}

// Schema is a declarative step validator. It implements domain.StepValidator.
type Schema struct {
	name    string
	fields  []fieldRules
	deps    []string
	forward []string

	unionTag string
	cases    map[string]*Schema

	checks []CheckFunc
}

var _ domain.StepValidator = (*Schema)(nil)

// New creates an empty schema.
func New(name string) *Schema {
	return &Schema{name: name}
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Field declares an owned key and its rules. Rules run in order and the first
// failure wins. Calling Field twice for the same key appends rules.
func (s *Schema) Field(key string, rules ...Rule) *Schema {
	for i := range s.fields {
		if s.fields[i].key == key {
			s.fields[i].rules = append(s.fields[i].rules, rules...)
			return s
		}
	}
	s.fields = append(s.fields, fieldRules{key: key, rules: rules})
	return s
}

// Depends declares keys owned by earlier steps that this schema reads.
func (s *Schema) Depends(keys ...string) *Schema {
	s.deps = appendUnique(s.deps, keys...)
	return s
}

// DependsAhead declares keys owned by later steps that this schema reads.
// Definitions reject forward reads that are not declared here.
func (s *Schema) DependsAhead(keys ...string) *Schema {
	s.forward = appendUnique(s.forward, keys...)
	s.deps = appendUnique(s.deps, keys...)
	return s
}

// Union makes tag a discriminator: exactly one of cases applies, selected by
// the current tag value. Fields of the inactive cases are neither validated
// nor required.
func (s *Schema) Union(tag string, cases map[string]*Schema) *Schema {
	s.unionTag = tag
	s.cases = cases
	tags := make([]string, 0, len(cases))
	for t := range cases {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return s.Field(tag, Required(), OneOf(tags...))
}

// Check attaches a cross-field constraint.
func (s *Schema) Check(fn CheckFunc) *Schema {
	s.checks = append(s.checks, fn)
	return s
}

// Fields returns the owned keys, including the keys of every union case.
func (s *Schema) Fields() []string {
	var keys []string
	for _, f := range s.fields {
		keys = appendUnique(keys, f.key)
	}
	for _, tag := range s.caseTags() {
		keys = appendUnique(keys, s.cases[tag].Fields()...)
	}
	return keys
}

// DependsOn returns the declared foreign keys.
func (s *Schema) DependsOn() []string {
	deps := append([]string(nil), s.deps...)
	for _, tag := range s.caseTags() {
		deps = appendUnique(deps, s.cases[tag].DependsOn()...)
	}
	return deps
}

// ForwardDeps returns the keys declared with DependsAhead.
func (s *Schema) ForwardDeps() []string {
	return append([]string(nil), s.forward...)
}

// Validate runs every rule against fs and returns the failing fields.
// A nil result means valid.
func (s *Schema) Validate(fs domain.FieldSet, now time.Time) domain.FieldErrors {
	view := newView(fs, s.Fields(), s.DependsOn())
	errs := domain.FieldErrors{}
	s.validate(view, now, errs)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Verify is Validate returning an error (*AggregateError) instead of a map.
func (s *Schema) Verify(fs domain.FieldSet, now time.Time) error {
	return toAggregate(fs, s.Validate(fs, now))
}

func (s *Schema) validate(view View, now time.Time, errs domain.FieldErrors) {
	for _, f := range s.fields {
		if _, failed := errs[f.key]; failed {
			continue
		}
		if msg, ok := runRules(view, f, now); !ok {
			errs[f.key] = msg
		}
	}

	if s.unionTag != "" {
		if active, ok := s.cases[view.String(s.unionTag)]; ok {
			active.validate(view, now, errs)
		}
	}

	for _, check := range s.checks {
		errs.Merge(check(view, now))
	}
}

func runRules(view View, f fieldRules, now time.Time) (string, bool) {
	empty := view.IsEmpty(f.key)
	for _, r := range f.rules {
		if empty {
			if ea, ok := r.(emptyAware); !ok || !ea.appliesToEmpty() {
				continue
			}
		}
		if err := r.Check(view, f.key, now); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				return ve.Reason, false
			}
			return err.Error(), false
		}
	}
	return "", true
}

func (s *Schema) caseTags() []string {
	tags := make([]string, 0, len(s.cases))
	for t := range s.cases {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func appendUnique(dst []string, keys ...string) []string {
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		dup := false
		for _, existing := range dst {
			if existing == k {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, k)
		}
	}
	return dst
}
