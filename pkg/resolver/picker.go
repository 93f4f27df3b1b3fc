package resolver

import (
	"fmt"

	"github.com/aretw0/rentdesk/pkg/domain"
)

// Picker is a search-driven entity picker bound to one field.
type Picker struct {
	Field  string
	Search SearchFunc
}

// Find returns the entity with id among results.
func (p *Picker) Find(results []domain.Entity, id string) (domain.Entity, error) {
	for _, e := range results {
		if e.EntityID() == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%s %q: %w", p.Field, id, domain.ErrEntityNotFound)
}
