package schema

import (
	"time"

	"github.com/aretw0/rentdesk/pkg/domain"
)

// Composite runs several step validators as one. Each member still sees only
// its own scoped view.
type Composite struct {
	members []domain.StepValidator
}

var _ domain.StepValidator = (*Composite)(nil)

// Compose builds the aggregate validator used as the final guard before
// submission. Nil members are skipped.
func Compose(validators ...domain.StepValidator) *Composite {
	c := &Composite{}
	for _, v := range validators {
		if v != nil {
			c.members = append(c.members, v)
		}
	}
	return c
}

func (c *Composite) Fields() []string {
	var keys []string
	for _, m := range c.members {
		keys = appendUnique(keys, m.Fields()...)
	}
	return keys
}

// DependsOn returns dependencies not satisfied by any member.
func (c *Composite) DependsOn() []string {
	owned := make(map[string]bool)
	for _, k := range c.Fields() {
		owned[k] = true
	}
	var deps []string
	for _, m := range c.members {
		for _, d := range m.DependsOn() {
			if !owned[d] {
				deps = appendUnique(deps, d)
			}
		}
	}
	return deps
}

// Validate merges the errors of every member. Earlier members win on
// conflicting keys.
func (c *Composite) Validate(fs domain.FieldSet, now time.Time) domain.FieldErrors {
	errs := domain.FieldErrors{}
	for _, m := range c.members {
		errs.Merge(m.Validate(fs, now))
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Verify is Validate returning an *AggregateError.
func (c *Composite) Verify(fs domain.FieldSet, now time.Time) error {
	return toAggregate(fs, c.Validate(fs, now))
}

// FirstFailing returns the index of the first member reporting errors, or -1.
func (c *Composite) FirstFailing(fs domain.FieldSet, now time.Time) int {
	for i, m := range c.members {
		if len(m.Validate(fs, now)) > 0 {
			return i
		}
	}
	return -1
}
