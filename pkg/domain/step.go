package domain

import (
	"sort"
	"time"
)

// StepID identifies a step inside one wizard definition.
type StepID string

// FieldErrors maps a field name to the message shown next to it.
type FieldErrors map[string]string

// Keys returns the failing field names in lexical order.
func (fe FieldErrors) Keys() []string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge copies other into fe without overwriting existing messages.
func (fe FieldErrors) Merge(other FieldErrors) {
	for k, v := range other {
		if _, exists := fe[k]; !exists {
			fe[k] = v
		}
	}
}

// StepValidator gates advancement past one step.
type StepValidator interface {
	// Fields returns the keys owned by the step.
	Fields() []string
	// DependsOn returns the keys owned by other steps that the validator reads.
	DependsOn() []string
	// Validate checks fs against the step rules. now is the validation time,
	// never the time a value was entered. An empty result means valid.
	Validate(fs FieldSet, now time.Time) FieldErrors
}

// Step describes one page of a wizard. The render slot is the ordered
// Fields list; shells decide how each field is drawn.
type Step struct {
	ID          StepID
	DisplayName string
	Fields      []string
	Validator   StepValidator
}

// FieldKind tells shells which input to render for a key.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindNumber   FieldKind = "number"
	KindDate     FieldKind = "date"
	KindBool     FieldKind = "bool"
	KindChoice   FieldKind = "choice"   // static choices
	KindOptions  FieldKind = "options"  // fetched option set
	KindPicker   FieldKind = "picker"   // search-driven entity picker
	KindReadOnly FieldKind = "readonly" // populated by the resolver
)

// FieldSpec is the presentation metadata of one field.
type FieldSpec struct {
	Key        string    `json:"key" yaml:"key"`
	Label      string    `json:"label" yaml:"label"`
	Kind       FieldKind `json:"kind" yaml:"kind"`
	Choices    []string  `json:"choices,omitempty" yaml:"choices,omitempty"`
	OptionsKey string    `json:"options_key,omitempty" yaml:"options_key,omitempty"`
}
