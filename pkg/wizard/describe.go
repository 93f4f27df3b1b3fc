package wizard

import (
	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/schema"
)

// Description is the serialisable layout of a wizard.
type Description struct {
	Name        string            `json:"name" yaml:"name"`
	DisplayName string            `json:"display_name" yaml:"display_name"`
	Resource    string            `json:"resource" yaml:"resource"`
	Steps       []StepDescription `json:"steps" yaml:"steps"`
}

// StepDescription lists the fields of one step and, for declarative
// validators, their rules.
type StepDescription struct {
	ID          domain.StepID      `json:"id" yaml:"id"`
	DisplayName string             `json:"display_name" yaml:"display_name"`
	Fields      []domain.FieldSpec `json:"fields" yaml:"fields"`
	Rules       *schema.Descriptor `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Describe returns the layout of d.
func (d *Definition) Describe() Description {
	desc := Description{Name: d.Name, DisplayName: d.DisplayName, Resource: d.Resource}
	for _, step := range d.Steps {
		sd := StepDescription{ID: step.ID, DisplayName: step.DisplayName}
		for _, key := range step.Fields {
			sd.Fields = append(sd.Fields, d.Spec(key))
		}
		if s, ok := step.Validator.(*schema.Schema); ok {
			rules := s.Describe()
			sd.Rules = &rules
		}
		desc.Steps = append(desc.Steps, sd)
	}
	return desc
}
