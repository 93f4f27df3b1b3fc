package ports

import (
	"context"

	"github.com/aretw0/rentdesk/pkg/domain"
)

// Directory searches the entities offered by selection pickers.
// An empty query returns the first page of entities.
type Directory interface {
	SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error)
	SearchVehicles(ctx context.Context, query string) ([]domain.Vehicle, error)
	SearchInspectors(ctx context.Context, query string) ([]domain.Inspector, error)
}

// Catalog serves reference option lists.
type Catalog interface {
	Colors(ctx context.Context) ([]domain.Option, error)
	Makes(ctx context.Context) ([]domain.Option, error)
	// Models returns the models of one make. An unknown make yields an
	// empty list, not an error.
	Models(ctx context.Context, makeID string) ([]domain.Option, error)
}
