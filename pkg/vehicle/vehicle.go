// Package vehicle defines the three-step fleet vehicle wizard.
//
// The make and model selectors form a cascading option set: changing the
// make refetches the models and drops a model that does not belong to it.
package vehicle

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/hydrate"
	"github.com/aretw0/rentdesk/pkg/ports"
	"github.com/aretw0/rentdesk/pkg/resolver"
	"github.com/aretw0/rentdesk/pkg/schema"
	"github.com/aretw0/rentdesk/pkg/transform"
	"github.com/aretw0/rentdesk/pkg/wizard"
)

const (
	Name     = "vehicle"
	Resource = "vehicles"
)

// FieldSet keys.
const (
	PlateNumber = "plateNumber"
	VIN         = "vin"
	MakeID      = "makeId"
	ModelID     = "modelId"
	Year        = "year"
	ColorID     = "colorId"

	DailyRentalRate  = "dailyRentalRate"
	PermittedDailyKm = "permittedDailyKm"
	ExtraKmRate      = "extraKmRate"
	CurrentMileage   = "currentMileage"
	FuelType         = "fuelType"
	Transmission     = "transmission"

	RegistrationExpiry = "registrationExpiry"
	InsuranceExpiry    = "insuranceExpiry"
	Status             = "status"
	Notes              = "notes"
)

// Option list keys.
const (
	OptionsMakes  = "makes"
	OptionsModels = "models"
	OptionsColors = "colors"
)

var (
	platePattern = regexp.MustCompile(`(?i)^[A-Z0-9]{2,4}[- ]?[A-Z0-9]{2,5}$`)
	vinPattern   = regexp.MustCompile(`(?i)^[A-HJ-NPR-Z0-9]{17}$`)

	fuelTypes     = []string{"petrol", "diesel", "hybrid", "electric"}
	transmissions = []string{"manual", "automatic"}
	statuses      = []string{"available", "maintenance", "retired"}
)

// New builds the vehicle wizard. cat backs the make, model and color lists.
func New(cat ports.Catalog) *wizard.Definition {
	return &wizard.Definition{
		Name:        Name,
		DisplayName: "Fleet vehicle",
		Resource:    Resource,
		Steps:       Steps(),
		Specs:       specs(),
		Resolvers:   resolvers(cat),
		Defaults:    Defaults,
		FromRecord:  FromRecord,
		Transform:   Transform,
	}
}

// Steps returns the ordered step descriptors.
func Steps() []domain.Step {
	identity := schema.New("identity").
		Field(PlateNumber, schema.Required(), schema.Pattern(platePattern, "must look like a plate number (e.g. ABC-1234)")).
		Field(VIN, schema.Length(17), schema.Pattern(vinPattern, "must be a valid VIN")).
		Field(MakeID, schema.Required()).
		Field(ModelID, schema.Required()).
		Field(Year, schema.Required(), schema.MinInt(1950), schema.Custom("not_after_next_year", notAfterNextYear)).
		Field(ColorID)

	rates := schema.New("rates").
		Field(DailyRentalRate, schema.Required(), schema.Positive()).
		Field(PermittedDailyKm, schema.Required(), schema.NonNegative()).
		Field(ExtraKmRate, schema.Required(), schema.NonNegative()).
		Field(CurrentMileage, schema.Required(), schema.NonNegative()).
		Field(FuelType, schema.Required(), schema.OneOf(fuelTypes...)).
		Field(Transmission, schema.Required(), schema.OneOf(transmissions...))

	registration := schema.New("registration").
		Field(RegistrationExpiry, schema.Required(), schema.Date(), schema.Future()).
		Field(InsuranceExpiry, schema.Required(), schema.Date(), schema.Future()).
		Field(Status, schema.Required(), schema.OneOf(statuses...)).
		Field(Notes, schema.MaxLength(1000))

	return []domain.Step{
		{ID: "identity", DisplayName: "Identity", Validator: identity,
			Fields: []string{PlateNumber, VIN, MakeID, ModelID, Year, ColorID}},
		{ID: "rates", DisplayName: "Rates and condition", Validator: rates,
			Fields: []string{DailyRentalRate, PermittedDailyKm, ExtraKmRate, CurrentMileage, FuelType, Transmission}},
		{ID: "registration", DisplayName: "Registration", Validator: registration,
			Fields: []string{RegistrationExpiry, InsuranceExpiry, Status, Notes}},
	}
}

func notAfterNextYear(v schema.View, key string, now time.Time) error {
	y, _ := v.Float(key)
	if int(y) > now.Year()+1 {
		return schema.ErrCustomValidation(fmt.Sprintf("must not be after %d", now.Year()+1))
	}
	return nil
}

func resolvers(cat ports.Catalog) *resolver.Registry {
	reg := resolver.NewRegistry()
	if cat == nil {
		return reg
	}
	reg.Options(OptionsMakes, func(ctx context.Context, _ string) ([]domain.Option, error) {
		return cat.Makes(ctx)
	})
	reg.Options(OptionsColors, func(ctx context.Context, _ string) ([]domain.Option, error) {
		return cat.Colors(ctx)
	})
	reg.Cascade(MakeID, ModelID, OptionsModels, func(ctx context.Context, makeID string) ([]domain.Option, error) {
		return cat.Models(ctx, makeID)
	})
	return reg
}

// Defaults is the create-mode FieldSet.
func Defaults(time.Time) domain.FieldSet {
	return domain.FieldSet{
		PlateNumber: "",
		VIN:         "",
		MakeID:      "",
		ModelID:     "",
		Year:        0.0,
		ColorID:     "",

		DailyRentalRate:  0.0,
		PermittedDailyKm: 0.0,
		ExtraKmRate:      0.0,
		CurrentMileage:   0.0,
		FuelType:         "petrol",
		Transmission:     "manual",

		RegistrationExpiry: "",
		InsuranceExpiry:    "",
		Status:             "available",
		Notes:              "",
	}
}

type wireVehicle struct {
	PlateNumber string         `mapstructure:"plate_number"`
	VIN         string         `mapstructure:"vin"`
	MakeID      string         `mapstructure:"make_id"`
	Make        *domain.Option `mapstructure:"make"`
	ModelID     string         `mapstructure:"model_id"`
	Model       *domain.Option `mapstructure:"model"`
	ColorID     string         `mapstructure:"color_id"`
	Color       *domain.Option `mapstructure:"color"`
	Year        int            `mapstructure:"year"`

	DailyRentalRate  float64 `mapstructure:"daily_rental_rate"`
	PermittedDailyKm float64 `mapstructure:"permitted_daily_km"`
	ExtraKmRate      float64 `mapstructure:"extra_km_rate"`
	CurrentMileage   float64 `mapstructure:"current_mileage"`
	FuelType         string  `mapstructure:"fuel_type"`
	Transmission     string  `mapstructure:"transmission"`

	RegistrationExpiry string `mapstructure:"registration_expiry"`
	InsuranceExpiry    string `mapstructure:"insurance_expiry"`
	Status             string `mapstructure:"status"`
	Notes              string `mapstructure:"notes"`
}

// relationID prefers the flat foreign key and falls back to the nested
// relation.
func relationID(id string, rel *domain.Option) string {
	if id == "" && rel != nil {
		return rel.ID
	}
	return id
}

// FromRecord maps a fetched vehicle onto the flat FieldSet.
func FromRecord(raw map[string]any, loc *time.Location) (domain.FieldSet, error) {
	var w wireVehicle
	if err := hydrate.Decode(raw, &w); err != nil {
		return nil, err
	}
	return domain.FieldSet{
		PlateNumber: w.PlateNumber,
		VIN:         w.VIN,
		MakeID:      relationID(w.MakeID, w.Make),
		ModelID:     relationID(w.ModelID, w.Model),
		Year:        float64(w.Year),
		ColorID:     relationID(w.ColorID, w.Color),

		DailyRentalRate:  w.DailyRentalRate,
		PermittedDailyKm: w.PermittedDailyKm,
		ExtraKmRate:      w.ExtraKmRate,
		CurrentMileage:   w.CurrentMileage,
		FuelType:         hydrate.OrDefault(w.FuelType, "petrol"),
		Transmission:     hydrate.OrDefault(w.Transmission, "manual"),

		RegistrationExpiry: hydrate.DateOnly(w.RegistrationExpiry, loc),
		InsuranceExpiry:    hydrate.DateOnly(w.InsuranceExpiry, loc),
		Status:             hydrate.OrDefault(w.Status, "available"),
		Notes:              w.Notes,
	}, nil
}

// Transform builds the vehicle payload.
func Transform(fs domain.FieldSet) domain.Payload {
	return domain.Payload{
		"plate_number": strings.ToUpper(strings.TrimSpace(fs.String(PlateNumber))),
		"vin":          transform.NullIfEmpty(strings.ToUpper(fs.String(VIN))),
		"make_id":      fs.String(MakeID),
		"model_id":     fs.String(ModelID),
		"color_id":     transform.NullIfEmpty(fs[ColorID]),
		"year":         transform.Int(fs[Year]),

		"daily_rental_rate":  transform.Money(fs[DailyRentalRate]),
		"permitted_daily_km": transform.Number(fs[PermittedDailyKm]),
		"extra_km_rate":      transform.Money(fs[ExtraKmRate]),
		"current_mileage":    transform.Number(fs[CurrentMileage]),
		"fuel_type":          fs.String(FuelType),
		"transmission":       fs.String(Transmission),

		"registration_expiry": transform.Date(fs[RegistrationExpiry]),
		"insurance_expiry":    transform.Date(fs[InsuranceExpiry]),
		"status":              fs.String(Status),
		"notes":               transform.NullableText(fs[Notes]),
	}
}

func specs() []domain.FieldSpec {
	return []domain.FieldSpec{
		{Key: PlateNumber, Label: "Plate number", Kind: domain.KindText},
		{Key: VIN, Label: "VIN", Kind: domain.KindText},
		{Key: MakeID, Label: "Make", Kind: domain.KindOptions, OptionsKey: OptionsMakes},
		{Key: ModelID, Label: "Model", Kind: domain.KindOptions, OptionsKey: OptionsModels},
		{Key: Year, Label: "Year", Kind: domain.KindNumber},
		{Key: ColorID, Label: "Color", Kind: domain.KindOptions, OptionsKey: OptionsColors},
		{Key: DailyRentalRate, Label: "Daily rate", Kind: domain.KindNumber},
		{Key: PermittedDailyKm, Label: "Permitted km per day", Kind: domain.KindNumber},
		{Key: ExtraKmRate, Label: "Extra km rate", Kind: domain.KindNumber},
		{Key: CurrentMileage, Label: "Current mileage", Kind: domain.KindNumber},
		{Key: FuelType, Label: "Fuel type", Kind: domain.KindChoice, Choices: fuelTypes},
		{Key: Transmission, Label: "Transmission", Kind: domain.KindChoice, Choices: transmissions},
		{Key: RegistrationExpiry, Label: "Registration expiry", Kind: domain.KindDate},
		{Key: InsuranceExpiry, Label: "Insurance expiry", Kind: domain.KindDate},
		{Key: Status, Label: "Status", Kind: domain.KindChoice, Choices: statuses},
		{Key: Notes, Label: "Notes", Kind: domain.KindText},
	}
}
