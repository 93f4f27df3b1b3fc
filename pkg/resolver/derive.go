package resolver

import (
	"sort"

	"github.com/aretw0/rentdesk/pkg/domain"
)

// Derivation recomputes dependent values whenever one of its triggers
// changes.
type Derivation struct {
	Name     string
	Triggers []string
	Fn       DeriveFunc
	// Suggest leaves targets alone once the user edited them.
	Suggest bool
}

func (d *Derivation) firedBy(changed map[string]bool) bool {
	for _, t := range d.Triggers {
		if changed[t] {
			return true
		}
	}
	return false
}

// Settle runs every derivation fired by changed, then every derivation fired
// by what those wrote, until nothing changes. Passes are bounded by the
// number of registered derivations, so a cycle cannot spin forever.
// edited reports keys the user wrote directly; it may be nil.
// Settle mutates fs and returns the keys it wrote, sorted.
func (r *Registry) Settle(fs domain.FieldSet, changed []string, edited func(string) bool) []string {
	r.mu.RLock()
	derivations := append([]*Derivation(nil), r.derivations...)
	r.mu.RUnlock()

	if edited == nil {
		edited = func(string) bool { return false }
	}

	affected := make(map[string]bool)
	pending := toSet(changed)
	for pass := 0; pass <= len(derivations) && len(pending) > 0; pass++ {
		next := make(map[string]bool)
		for _, d := range derivations {
			if !d.firedBy(pending) {
				continue
			}
			patch := d.Fn(fs.Clone())
			if d.Suggest {
				for k := range patch {
					if edited(k) {
						delete(patch, k)
					}
				}
			}
			for _, k := range write(fs, patch) {
				next[k] = true
				affected[k] = true
			}
		}
		pending = next
	}

	out := make([]string, 0, len(affected))
	for k := range affected {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SettleAll runs every derivation once as if all its triggers changed. Used
// after hydration.
func (r *Registry) SettleAll(fs domain.FieldSet, edited func(string) bool) []string {
	r.mu.RLock()
	var triggers []string
	for _, d := range r.derivations {
		triggers = append(triggers, d.Triggers...)
	}
	r.mu.RUnlock()
	return r.Settle(fs, triggers, edited)
}

func toSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
