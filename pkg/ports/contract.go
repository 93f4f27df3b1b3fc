package ports

import (
	"context"
	"testing"

	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBackendContract runs a suite of tests to verify that a Backend
// implementation adheres to the port contract. The backend must hold at
// least one customer, vehicle, inspector, color and make, and the first make
// must have at least one model.
func RunBackendContract(t *testing.T, backend Backend) {
	ctx := context.Background()

	t.Run("Search With Empty Query", func(t *testing.T) {
		customers, err := backend.SearchCustomers(ctx, "")
		require.NoError(t, err)
		assert.NotEmpty(t, customers)

		vehicles, err := backend.SearchVehicles(ctx, "")
		require.NoError(t, err)
		assert.NotEmpty(t, vehicles)

		inspectors, err := backend.SearchInspectors(ctx, "")
		require.NoError(t, err)
		assert.NotEmpty(t, inspectors)
	})

	t.Run("Search Without Match", func(t *testing.T) {
		customers, err := backend.SearchCustomers(ctx, "zz-no-such-customer-zz")
		require.NoError(t, err)
		assert.Empty(t, customers)
	})

	t.Run("Cascading Options", func(t *testing.T) {
		colors, err := backend.Colors(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, colors)

		makes, err := backend.Makes(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, makes)

		models, err := backend.Models(ctx, makes[0].ID)
		require.NoError(t, err)
		assert.NotEmpty(t, models)

		none, err := backend.Models(ctx, "no-such-make")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Create Fetch Update", func(t *testing.T) {
		id, err := backend.Create(ctx, "contracts", domain.Payload{"status": "active", "total_amount": 300.0})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		rec, err := backend.Fetch(ctx, "contracts", id)
		require.NoError(t, err)
		assert.Equal(t, "active", rec["status"])
		assert.EqualValues(t, 300, rec["total_amount"])

		require.NoError(t, backend.Update(ctx, "contracts", id, domain.Payload{"status": "closed"}))
		rec, err = backend.Fetch(ctx, "contracts", id)
		require.NoError(t, err)
		assert.Equal(t, "closed", rec["status"])
	})

	t.Run("Fetch Non-Existent", func(t *testing.T) {
		_, err := backend.Fetch(ctx, "contracts", "non-existent")
		assert.Error(t, err)
	})
}
