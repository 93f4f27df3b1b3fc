package ports

import (
	"context"

	"github.com/aretw0/rentdesk/pkg/domain"
)

// RecordService reads and writes composite records (contracts, vehicles).
// resource is the collection name, e.g. "contracts".
type RecordService interface {
	// Fetch returns the wire record (snake_case keys, nested relations).
	// Returns domain.ErrEntityNotFound if the record does not exist.
	Fetch(ctx context.Context, resource, id string) (map[string]any, error)

	// Create stores a new record and returns its identifier.
	Create(ctx context.Context, resource string, payload domain.Payload) (string, error)

	// Update replaces the record identified by id.
	Update(ctx context.Context, resource, id string, payload domain.Payload) error
}

// RefreshFunc is supplied by the caller and invoked once after a successful
// submission so the surrounding screen can reload its list.
type RefreshFunc func(ctx context.Context, resource, id string)

// Backend bundles every port the engine consumes.
type Backend interface {
	Directory
	Catalog
	RecordService
}
