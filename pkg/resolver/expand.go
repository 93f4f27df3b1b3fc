package resolver

import (
	"fmt"
	"sort"

	"github.com/aretw0/rentdesk/pkg/domain"
)

// Expansion populates a cluster of read-mostly fields from a selected entity.
type Expansion struct {
	Trigger  string
	Defaults domain.FieldSet
	Fill     ExpandFunc
}

// Cluster returns the dependent keys in lexical order.
func (e *Expansion) Cluster() []string {
	return e.Defaults.Keys()
}

// Apply resets the whole cluster to its defaults and overlays the values of
// entity. A nil entity clears the cluster. On error fs is left untouched.
// It returns the keys whose value changed.
func (e *Expansion) Apply(fs domain.FieldSet, entity domain.Entity) ([]string, error) {
	patch := e.Defaults.Clone()
	if entity != nil {
		values, err := e.Fill(entity)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", e.Trigger, err)
		}
		for k, v := range values {
			if _, inCluster := e.Defaults[k]; !inCluster {
				return nil, fmt.Errorf("expand %s: key %q is outside the cluster: %w", e.Trigger, k, domain.ErrUnknownField)
			}
			patch[k] = v
		}
	}
	return write(fs, patch), nil
}

// write copies patch into fs and returns the keys whose value changed.
func write(fs, patch domain.FieldSet) []string {
	var changed []string
	for k, v := range patch {
		old, exists := fs[k]
		if exists && domain.SameValue(old, v) {
			continue
		}
		fs[k] = v
		changed = append(changed, k)
	}
	sort.Strings(changed)
	return changed
}
