package schema

import (
	"encoding/json"
)

// Descriptor is the introspection form of a Schema, used by the shells and
// the steps command.
type Descriptor struct {
	Name      string                `json:"name" yaml:"name"`
	Fields    map[string][]string   `json:"fields" yaml:"fields"`
	DependsOn []string              `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	UnionTag  string                `json:"union_tag,omitempty" yaml:"union_tag,omitempty"`
	Cases     map[string]Descriptor `json:"cases,omitempty" yaml:"cases,omitempty"`
	Checks    int                   `json:"checks,omitempty" yaml:"checks,omitempty"`
}

// Describe returns the rule names of every field.
func (s *Schema) Describe() Descriptor {
	d := Descriptor{
		Name:      s.name,
		Fields:    make(map[string][]string, len(s.fields)),
		DependsOn: append([]string(nil), s.deps...),
		UnionTag:  s.unionTag,
		Checks:    len(s.checks),
	}
	for _, f := range s.fields {
		names := make([]string, 0, len(f.rules))
		for _, r := range f.rules {
			names = append(names, r.Name())
		}
		d.Fields[f.key] = names
	}
	if len(s.cases) > 0 {
		d.Cases = make(map[string]Descriptor, len(s.cases))
		for tag, c := range s.cases {
			d.Cases[tag] = c.Describe()
		}
	}
	return d
}

// MarshalJSON serializes the schema as its Descriptor.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.Describe())
}

// MarshalYAML implements yaml.Marshaler.
func (s *Schema) MarshalYAML() (any, error) {
	if s == nil {
		return nil, nil
	}
	return s.Describe(), nil
}
