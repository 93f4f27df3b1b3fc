// Package wizard describes a wizard: its ordered steps, validators, field
// side effects, hydration and submission transform.
package wizard

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/hydrate"
	"github.com/aretw0/rentdesk/pkg/resolver"
	"github.com/aretw0/rentdesk/pkg/schema"
)

// DefaultsFunc returns the create-mode FieldSet. now is the opening time in
// the session location.
type DefaultsFunc func(now time.Time) domain.FieldSet

// RecordFunc maps a fetched wire record onto the flat FieldSet.
type RecordFunc func(raw map[string]any, loc *time.Location) (domain.FieldSet, error)

// TransformFunc builds the server payload from the final FieldSet.
type TransformFunc func(fs domain.FieldSet) domain.Payload

// Definition is the compiled, immutable description of one wizard.
type Definition struct {
	Name        string
	DisplayName string
	// Resource is the collection used by the record service.
	Resource string

	Steps     []domain.Step
	Specs     []domain.FieldSpec
	Resolvers *resolver.Registry

	Defaults   DefaultsFunc
	FromRecord RecordFunc
	Transform  TransformFunc
}

// forwardDeclarer is implemented by validators allowed to read later steps.
type forwardDeclarer interface {
	ForwardDeps() []string
}

// DefinitionError lists every integrity problem of a definition.
type DefinitionError struct {
	Wizard   string
	Problems []string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("wizard %q: %d problem(s):\n- %s", e.Wizard, len(e.Problems), strings.Join(e.Problems, "\n- "))
}

// Validate checks that step IDs and field names are unique, that every
// validator only reads keys owned by its own or an earlier step (unless the
// forward read is declared), and that resolvers write owned keys.
func (d *Definition) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(d.Steps) == 0 {
		add("no steps")
	}
	if d.Defaults == nil {
		add("no create-mode defaults")
	}
	if d.Transform == nil {
		add("no submission transform")
	}

	owner := make(map[string]int)
	stepIDs := make(map[domain.StepID]bool)
	for i, step := range d.Steps {
		if step.ID == "" {
			add("step %d has no id", i)
		}
		if stepIDs[step.ID] {
			add("duplicate step id %q", step.ID)
		}
		stepIDs[step.ID] = true

		for _, key := range step.Fields {
			if prev, taken := owner[key]; taken {
				add("field %q owned by steps %q and %q", key, d.Steps[prev].ID, step.ID)
				continue
			}
			owner[key] = i
		}
	}

	for i, step := range d.Steps {
		if step.Validator == nil {
			add("step %q has no validator", step.ID)
			continue
		}
		for _, key := range step.Validator.Fields() {
			if j, ok := owner[key]; !ok || j != i {
				add("step %q validates %q which it does not own", step.ID, key)
			}
		}
		forward := map[string]bool{}
		if fd, ok := step.Validator.(forwardDeclarer); ok {
			for _, k := range fd.ForwardDeps() {
				forward[k] = true
			}
		}
		for _, dep := range step.Validator.DependsOn() {
			j, ok := owner[dep]
			switch {
			case !ok:
				add("step %q depends on unknown field %q", step.ID, dep)
			case j > i && !forward[dep]:
				add("step %q reads %q of later step %q without declaring it", step.ID, dep, d.Steps[j].ID)
			}
		}
	}

	if d.Resolvers != nil {
		for _, key := range d.Resolvers.Triggers() {
			if _, ok := owner[key]; !ok {
				add("resolver trigger %q is not a field", key)
			}
		}
		for _, key := range d.Resolvers.Written() {
			if _, ok := owner[key]; !ok {
				add("resolver writes %q which no step owns", key)
			}
		}
	}

	seenSpec := make(map[string]bool)
	for _, spec := range d.Specs {
		if _, ok := owner[spec.Key]; !ok {
			add("field spec for unknown field %q", spec.Key)
		}
		if seenSpec[spec.Key] {
			add("duplicate field spec %q", spec.Key)
		}
		seenSpec[spec.Key] = true
	}

	if d.Defaults != nil {
		if err := hydrate.Check(d.Name, d.Defaults(time.Now()), d.Keys()); err != nil {
			add("%v", err)
		}
	}

	if len(problems) > 0 {
		return &DefinitionError{Wizard: d.Name, Problems: problems}
	}
	return nil
}

// Keys returns every owned field in step order.
func (d *Definition) Keys() []string {
	var keys []string
	for _, s := range d.Steps {
		keys = append(keys, s.Fields...)
	}
	return keys
}

// Owner returns the index of the step owning key.
func (d *Definition) Owner(key string) (int, bool) {
	for i, s := range d.Steps {
		for _, k := range s.Fields {
			if k == key {
				return i, true
			}
		}
	}
	return 0, false
}

// Guard composes every step validator into the aggregate pre-submit check.
func (d *Definition) Guard() *schema.Composite {
	validators := make([]domain.StepValidator, 0, len(d.Steps))
	for _, s := range d.Steps {
		validators = append(validators, s.Validator)
	}
	return schema.Compose(validators...)
}

// Spec returns the presentation metadata of key. Fields without a declared
// spec render as plain text labelled by their key.
func (d *Definition) Spec(key string) domain.FieldSpec {
	for _, s := range d.Specs {
		if s.Key == key {
			return s
		}
	}
	return domain.FieldSpec{Key: key, Label: key, Kind: domain.KindText}
}

// Hydrate builds the initial FieldSet. raw is ignored in create mode.
// The result is checked for totality.
func (d *Definition) Hydrate(mode domain.Mode, raw map[string]any, now time.Time, loc *time.Location) (domain.FieldSet, error) {
	if loc == nil {
		loc = time.Local
	}
	var fs domain.FieldSet
	switch mode {
	case domain.ModeCreate:
		fs = d.Defaults(now.In(loc))
	case domain.ModeEdit:
		if d.FromRecord == nil {
			return nil, fmt.Errorf("wizard %q does not support edit mode", d.Name)
		}
		var err error
		fs, err = d.FromRecord(raw, loc)
		if err != nil {
			return nil, fmt.Errorf("hydrate %s: %w", d.Name, err)
		}
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	if err := hydrate.Check(d.Name, fs, d.Keys()); err != nil {
		return nil, err
	}
	return fs, nil
}

// Indicators returns the step indicator for a session at current with the
// given completed steps.
func (d *Definition) Indicators(current int, completed map[int]bool) []domain.StepIndicator {
	out := make([]domain.StepIndicator, len(d.Steps))
	for i, s := range d.Steps {
		status := domain.StepPending
		switch {
		case i == current:
			status = domain.StepCurrent
		case completed[i]:
			status = domain.StepCompleted
		}
		out[i] = domain.StepIndicator{
			Index:       i,
			ID:          s.ID,
			DisplayName: s.DisplayName,
			Status:      status,
			Reachable:   i <= current || completed[i],
		}
	}
	return out
}
