package vehicle_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/vehicle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type stubCatalog struct{}

func (stubCatalog) Colors(context.Context) ([]domain.Option, error) {
	return []domain.Option{{ID: "red", Name: "Red"}}, nil
}
func (stubCatalog) Makes(context.Context) ([]domain.Option, error) {
	return []domain.Option{{ID: "toyota", Name: "Toyota"}}, nil
}
func (stubCatalog) Models(_ context.Context, makeID string) ([]domain.Option, error) {
	if makeID == "toyota" {
		return []domain.Option{{ID: "yaris", Name: "Yaris"}}, nil
	}
	return nil, nil
}

func validFieldSet() domain.FieldSet {
	fs := vehicle.Defaults(now)
	fs.Merge(domain.FieldSet{
		vehicle.PlateNumber:        "abc-1234",
		vehicle.MakeID:             "toyota",
		vehicle.ModelID:            "yaris",
		vehicle.Year:               "2024",
		vehicle.DailyRentalRate:    "95",
		vehicle.PermittedDailyKm:   "250",
		vehicle.ExtraKmRate:        "0.4",
		vehicle.CurrentMileage:     "1500",
		vehicle.RegistrationExpiry: "2027-01-01",
		vehicle.InsuranceExpiry:    "2026-12-31",
	})
	return fs
}

func TestDefinition_IsConsistent(t *testing.T) {
	def := vehicle.New(stubCatalog{})
	require.NoError(t, def.Validate())

	roots := def.Resolvers.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, vehicle.OptionsColors, roots[0].Key)

	cascades := def.Resolvers.CascadesOf(vehicle.MakeID)
	require.Len(t, cascades, 1)
	opts, err := cascades[0].Fetch(context.Background(), "toyota")
	require.NoError(t, err)
	assert.Equal(t, "yaris", opts[0].ID)
}

func TestSteps(t *testing.T) {
	steps := vehicle.Steps()
	fs := validFieldSet()
	for _, s := range steps {
		assert.Empty(t, s.Validator.Validate(fs, now), "step %s", s.ID)
	}

	tests := []struct {
		name  string
		step  int
		patch domain.FieldSet
		field string
	}{
		{"bad plate", 0, domain.FieldSet{vehicle.PlateNumber: "!!"}, vehicle.PlateNumber},
		{"short vin", 0, domain.FieldSet{vehicle.VIN: "123"}, vehicle.VIN},
		{"vin with O", 0, domain.FieldSet{vehicle.VIN: "1HGCM82633A00O352"}, vehicle.VIN},
		{"future year", 0, domain.FieldSet{vehicle.Year: "2030"}, vehicle.Year},
		{"no model", 0, domain.FieldSet{vehicle.ModelID: ""}, vehicle.ModelID},
		{"zero rate", 1, domain.FieldSet{vehicle.DailyRentalRate: "0"}, vehicle.DailyRentalRate},
		{"bad fuel", 1, domain.FieldSet{vehicle.FuelType: "coal"}, vehicle.FuelType},
		{"expired registration", 2, domain.FieldSet{vehicle.RegistrationExpiry: "2026-03-10"}, vehicle.RegistrationExpiry},
		{"bad status", 2, domain.FieldSet{vehicle.Status: "sold"}, vehicle.Status},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := validFieldSet()
			fs.Merge(tt.patch)
			assert.Contains(t, steps[tt.step].Validator.Validate(fs, now), tt.field)
		})
	}

	// VIN is optional.
	fs[vehicle.VIN] = ""
	assert.Empty(t, steps[0].Validator.Validate(fs, now))
	fs[vehicle.VIN] = "1HGCM82633A004352"
	assert.Empty(t, steps[0].Validator.Validate(fs, now))
}

func TestFromRecord(t *testing.T) {
	def := vehicle.New(nil)

	fs, err := def.Hydrate(domain.ModeEdit, map[string]any{}, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "petrol", fs[vehicle.FuelType])
	assert.Equal(t, "", fs[vehicle.MakeID])

	fs, err = vehicle.FromRecord(map[string]any{
		"plate_number":        "AB-123",
		"make":                map[string]any{"id": "toyota", "name": "Toyota"},
		"model_id":            "yaris",
		"year":                "2021",
		"daily_rental_rate":   80,
		"registration_expiry": "2027-05-01T00:00:00Z",
	}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "toyota", fs[vehicle.MakeID])
	assert.Equal(t, "yaris", fs[vehicle.ModelID])
	assert.Equal(t, 2021.0, fs[vehicle.Year])
	assert.Equal(t, 80.0, fs[vehicle.DailyRentalRate])
	assert.Equal(t, "2027-05-01", fs[vehicle.RegistrationExpiry])
}

func TestTransform(t *testing.T) {
	p := vehicle.Transform(validFieldSet())
	assert.Equal(t, "ABC-1234", p["plate_number"])
	assert.Nil(t, p["vin"])
	assert.Nil(t, p["color_id"])
	assert.Equal(t, 2024, p["year"])
	assert.Equal(t, 95.0, p["daily_rental_rate"])
	assert.Equal(t, 0.4, p["extra_km_rate"])
	assert.Equal(t, "2027-01-01", p["registration_expiry"])
	assert.Nil(t, p["notes"])
}
