package domain

import (
	"reflect"
	"sort"
)

// FieldDelta holds the changed, added or deleted keys between two field
// sets. Deleted keys are present with a nil value so clients can merge it
// into their local copy.
type FieldDelta map[string]any

// Keys returns the changed keys in lexical order.
func (d FieldDelta) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Diff calculates the difference between oldSet and newSet.
// If oldSet is nil, the whole newSet is returned (initial load).
// Returns nil when nothing changed.
func Diff(oldSet, newSet FieldSet) FieldDelta {
	delta := make(FieldDelta)

	if oldSet == nil {
		for k, v := range newSet {
			delta[k] = v
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	for k, newVal := range newSet {
		oldVal, exists := oldSet[k]
		if !exists || !SameValue(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range oldSet {
		if _, exists := newSet[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// SameValue reports whether two field values are equal. "150" and 150.0
// are equal so a round trip through a text input does not mark a field dirty.
func SameValue(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aok := Number(a)
	bf, bok := Number(b)
	if aok && bok {
		return af == bf
	}
	return false
}
