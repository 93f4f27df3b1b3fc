package resolver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/rentdesk/pkg/domain"
)

// ExpandFunc maps a selected entity to the values of its dependent cluster.
type ExpandFunc func(e domain.Entity) (domain.FieldSet, error)

// DeriveFunc computes derived values from the current field set. It returns
// only the keys it owns; returning nil means "no opinion".
type DeriveFunc func(fs domain.FieldSet) domain.FieldSet

// OptionsFunc fetches an option list. parent is empty for root lists.
type OptionsFunc func(ctx context.Context, parent string) ([]domain.Option, error)

// SearchFunc runs an entity search for a picker.
type SearchFunc func(ctx context.Context, query string) ([]domain.Entity, error)

// Registry maps trigger fields to their side effects. It is built once per
// wizard definition and shared read-only by every session.
type Registry struct {
	mu          sync.RWMutex
	expansions  map[string]*Expansion
	derivations []*Derivation
	options     map[string]*OptionSource // by options key
	pickers     map[string]*Picker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		expansions: make(map[string]*Expansion),
		options:    make(map[string]*OptionSource),
		pickers:    make(map[string]*Picker),
	}
}

// Expand registers a selection expansion. defaults holds the reset value of
// every cluster key; its keys define the cluster.
func (r *Registry) Expand(trigger string, defaults domain.FieldSet, fn ExpandFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expansions[trigger] = &Expansion{Trigger: trigger, Defaults: defaults.Clone(), Fill: fn}
	return r
}

// Derive registers a synchronous derivation fired by any of triggers.
func (r *Registry) Derive(name string, triggers []string, fn DeriveFunc) *Registry {
	return r.addDerivation(&Derivation{Name: name, Triggers: triggers, Fn: fn})
}

// Suggest registers a derivation whose targets stop following their triggers
// once the user edits them.
func (r *Registry) Suggest(name string, triggers []string, fn DeriveFunc) *Registry {
	return r.addDerivation(&Derivation{Name: name, Triggers: triggers, Fn: fn, Suggest: true})
}

func (r *Registry) addDerivation(d *Derivation) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.derivations = append(r.derivations, d)
	return r
}

// Options registers a root option list loaded when a session opens.
func (r *Registry) Options(key string, fetch OptionsFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options[key] = &OptionSource{Key: key, Fetch: fetch}
	return r
}

// Cascade registers a child option list refetched whenever parent changes.
// child is the field holding the selected option; it is cleared when its
// value is not among the options of the new parent.
func (r *Registry) Cascade(parent, child, key string, fetch OptionsFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options[key] = &OptionSource{Key: key, Parent: parent, Child: child, Fetch: fetch}
	return r
}

// Picker registers a search-driven picker for field.
func (r *Registry) Picker(field string, search SearchFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pickers[field] = &Picker{Field: field, Search: search}
	return r
}

// Expansion returns the expansion triggered by field, if any.
func (r *Registry) Expansion(field string) (*Expansion, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.expansions[field]
	return e, ok
}

// PickerFor returns the picker bound to field.
func (r *Registry) PickerFor(field string) (*Picker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pickers[field]
	if !ok {
		return nil, fmt.Errorf("no picker for field %q: %w", field, domain.ErrUnknownField)
	}
	return p, nil
}

// Roots returns the option sources without a parent, ordered by key.
func (r *Registry) Roots() []*OptionSource {
	return r.sources(func(s *OptionSource) bool { return s.Parent == "" })
}

// CascadesOf returns the option sources whose parent is field.
func (r *Registry) CascadesOf(field string) []*OptionSource {
	return r.sources(func(s *OptionSource) bool { return s.Parent != "" && s.Parent == field })
}

// Cascades returns every option source with a parent.
func (r *Registry) Cascades() []*OptionSource {
	return r.sources(func(s *OptionSource) bool { return s.Parent != "" })
}

func (r *Registry) sources(keep func(*OptionSource) bool) []*OptionSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*OptionSource
	for _, s := range r.options {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Triggers lists every field that fires a side effect, for introspection.
func (r *Registry) Triggers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := make(map[string]bool)
	for k := range r.expansions {
		set[k] = true
	}
	for _, d := range r.derivations {
		for _, t := range d.Triggers {
			set[t] = true
		}
	}
	for _, s := range r.options {
		if s.Parent != "" {
			set[s.Parent] = true
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Written lists every key a resolver may write, for definition checks.
func (r *Registry) Written() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := make(map[string]bool)
	for _, e := range r.expansions {
		for k := range e.Defaults {
			set[k] = true
		}
	}
	for _, s := range r.options {
		if s.Child != "" {
			set[s.Child] = true
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
