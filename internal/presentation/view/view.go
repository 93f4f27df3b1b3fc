// Package view builds the shell-neutral rendering of a session: the step
// indicator and the fields of the active step with their values, visible
// errors and option lists.
package view

import (
	"github.com/aretw0/rentdesk/internal/runtime"
	"github.com/aretw0/rentdesk/pkg/domain"
)

// Field is one input of the active step.
type Field struct {
	Key      string           `json:"key"`
	Label    string           `json:"label"`
	Kind     domain.FieldKind `json:"kind"`
	Value    any              `json:"value"`
	Error    string           `json:"error,omitempty"`
	Choices  []string         `json:"choices,omitempty"`
	Options  []domain.Option  `json:"options,omitempty"`
	ReadOnly bool             `json:"read_only,omitempty"`
	Dirty    bool             `json:"dirty,omitempty"`
}

// Step identifies the active step.
type Step struct {
	Index       int           `json:"index"`
	ID          domain.StepID `json:"id"`
	DisplayName string        `json:"display_name"`
	Last        bool          `json:"last"`
}

// View is the rendering of one session at one point in time.
type View struct {
	SessionID string                 `json:"session_id"`
	Wizard    string                 `json:"wizard"`
	Mode      domain.Mode            `json:"mode"`
	EntityID  string                 `json:"entity_id,omitempty"`
	Status    domain.Status          `json:"status"`
	Step      Step                   `json:"step"`
	Steps     []domain.StepIndicator `json:"steps"`
	Fields    []Field                `json:"fields"`
	// Errors holds the errors of touched fields on any step.
	Errors domain.FieldErrors `json:"errors,omitempty"`
	Dirty  []string           `json:"dirty,omitempty"`
	// Delta lists the values changed since the previous view sent to the
	// same client. Omitted on the first view.
	Delta domain.FieldDelta `json:"delta,omitempty"`

	values domain.FieldSet
}

// Values returns the full FieldSet the view was built from.
func (v View) Values() domain.FieldSet { return v.values }

// Build renders s. prev is the FieldSet of the previous view (nil for the
// first one) and only feeds Delta.
func Build(s *runtime.Session, prev domain.FieldSet) View {
	st := s.State()
	def := s.Definition()

	idx := st.StepIndex
	if idx >= len(def.Steps) {
		idx = len(def.Steps) - 1
	}
	step := def.Steps[idx]

	dirty := make(map[string]bool, len(st.Dirty))
	for _, k := range st.Dirty {
		dirty[k] = true
	}

	v := View{
		SessionID: st.SessionID,
		Wizard:    st.Wizard,
		Mode:      st.Mode,
		EntityID:  st.EntityID,
		Status:    st.Status,
		Step: Step{
			Index:       idx,
			ID:          step.ID,
			DisplayName: step.DisplayName,
			Last:        idx == len(def.Steps)-1,
		},
		Steps:  s.Indicators(),
		Errors: domain.FieldErrors{},
		Dirty:  st.Dirty,
		values: st.Fields,
	}

	for k, msg := range st.Errors {
		if st.Touched[k] {
			v.Errors[k] = msg
		}
	}
	if len(v.Errors) == 0 {
		v.Errors = nil
	}

	for _, key := range step.Fields {
		spec := def.Spec(key)
		f := Field{
			Key:      key,
			Label:    spec.Label,
			Kind:     spec.Kind,
			Value:    st.Fields[key],
			Choices:  spec.Choices,
			ReadOnly: spec.Kind == domain.KindReadOnly,
			Dirty:    dirty[key],
		}
		if st.Touched[key] {
			f.Error = st.Errors[key]
		}
		if spec.OptionsKey != "" {
			f.Options = st.Options[spec.OptionsKey]
		}
		v.Fields = append(v.Fields, f)
	}

	if prev != nil {
		v.Delta = domain.Diff(prev, st.Fields)
	}
	return v
}
