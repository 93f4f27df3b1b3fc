package contract

import (
	"time"

	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/hydrate"
	"github.com/aretw0/rentdesk/pkg/transform"
)

// wireContract is the record shape returned by GET /contracts/{id}.
// Relations are nested and may be absent.
type wireContract struct {
	ID          string            `mapstructure:"id"`
	CustomerID  string            `mapstructure:"customer_id"`
	Customer    *domain.Customer  `mapstructure:"customer"`
	VehicleID   string            `mapstructure:"vehicle_id"`
	Vehicle     *domain.Vehicle   `mapstructure:"vehicle"`
	InspectorID string            `mapstructure:"inspector_id"`
	Inspector   *domain.Inspector `mapstructure:"inspector"`

	DurationType   string  `mapstructure:"duration_type"`
	DurationInDays float64 `mapstructure:"duration_in_days"`
	TotalFees      float64 `mapstructure:"total_fees"`
	StartDate      string  `mapstructure:"start_date"`
	EndDate        string  `mapstructure:"end_date"`
	PickupLocation string  `mapstructure:"pickup_location"`
	ReturnLocation string  `mapstructure:"return_location"`
	Notes          string  `mapstructure:"notes"`

	DailyRentalRate         *float64 `mapstructure:"daily_rental_rate"`
	RentalDays              float64  `mapstructure:"rental_days"`
	InsuranceEnabled        bool     `mapstructure:"insurance_enabled"`
	InsuranceDailyRate      float64  `mapstructure:"insurance_daily_rate"`
	AdditionalDriverEnabled bool     `mapstructure:"additional_driver_enabled"`
	AdditionalDriverFee     float64  `mapstructure:"additional_driver_fee"`
	TotalAmount             float64  `mapstructure:"total_amount"`
	DepositAmount           float64  `mapstructure:"deposit_amount"`
	PaymentMethod           string   `mapstructure:"payment_method"`

	MileageOut      *float64 `mapstructure:"mileage_out"`
	FuelLevel       string   `mapstructure:"fuel_level"`
	InspectionNotes string   `mapstructure:"inspection_notes"`
	Status          string   `mapstructure:"status"`
}

// FromRecord maps a fetched contract onto the flat FieldSet. Every key has
// an explicit fallback, so a minimal record still yields a total FieldSet.
func FromRecord(raw map[string]any, loc *time.Location) (domain.FieldSet, error) {
	var w wireContract
	if err := hydrate.Decode(raw, &w); err != nil {
		return nil, err
	}

	customer := domain.Customer{ID: w.CustomerID}
	if w.Customer != nil {
		customer = *w.Customer
		customer.ID = hydrate.OrDefault(w.CustomerID, customer.ID)
	}
	vehicle := domain.Vehicle{ID: w.VehicleID}
	if w.Vehicle != nil {
		vehicle = *w.Vehicle
		vehicle.ID = hydrate.OrDefault(w.VehicleID, vehicle.ID)
	}
	inspector := domain.Inspector{ID: w.InspectorID}
	if w.Inspector != nil {
		inspector = *w.Inspector
		inspector.ID = hydrate.OrDefault(w.InspectorID, inspector.ID)
	}

	// The contract keeps the rate agreed at signing; the vehicle's current
	// rate is only a fallback.
	rate := vehicle.DailyRentalRate
	if w.DailyRentalRate != nil {
		rate = *w.DailyRentalRate
	}
	mileageOut := vehicle.CurrentMileage
	if w.MileageOut != nil {
		mileageOut = *w.MileageOut
	}

	durationType := w.DurationType
	if durationType != ModeFees {
		durationType = ModeDuration
	}

	return domain.FieldSet{
		SelectedCustomerID:    customer.ID,
		CustomerName:          customer.FullName,
		CustomerPhone:         customer.Phone,
		CustomerIDNumber:      customer.IDNumber,
		CustomerLicenseNumber: customer.LicenseNumber,

		SelectedVehicleID:  vehicle.ID,
		VehiclePlateNumber: vehicle.PlateNumber,
		VehicleMake:        vehicle.Make,
		VehicleModel:       vehicle.Model,
		VehicleYear:        float64(vehicle.Year),
		DailyRentalRate:    rate,
		PermittedDailyKm:   vehicle.PermittedDailyKm,
		ExtraKmRate:        vehicle.ExtraKmRate,
		CurrentMileage:     vehicle.CurrentMileage,

		DurationType:   durationType,
		DurationInDays: w.DurationInDays,
		TotalFees:      w.TotalFees,
		StartDate:      hydrate.DateOnly(w.StartDate, loc),
		EndDate:        hydrate.DateOnly(w.EndDate, loc),
		PickupLocation: w.PickupLocation,
		ReturnLocation: w.ReturnLocation,
		Notes:          w.Notes,

		RentalDays:              w.RentalDays,
		InsuranceEnabled:        w.InsuranceEnabled,
		InsuranceDailyRate:      w.InsuranceDailyRate,
		AdditionalDriverEnabled: w.AdditionalDriverEnabled,
		AdditionalDriverFee:     w.AdditionalDriverFee,
		TotalAmount:             w.TotalAmount,
		DepositAmount:           w.DepositAmount,
		PaymentMethod:           hydrate.OrDefault(w.PaymentMethod, "cash"),

		SelectedInspectorID: inspector.ID,
		InspectorName:       inspector.FullName,
		MileageOut:          mileageOut,
		FuelLevel:           hydrate.OrDefault(w.FuelLevel, "full"),
		InspectionNotes:     w.InspectionNotes,
		Status:              hydrate.OrDefault(w.Status, "active"),
	}, nil
}

// Transform builds the contract payload. Only the amount matching the
// duration mode is sent; the other one is left out entirely.
func Transform(fs domain.FieldSet) domain.Payload {
	vehicleID := fs.String(SelectedVehicleID)
	p := domain.Payload{
		"customer_id":         fs.String(SelectedCustomerID),
		"vehicle_id":          vehicleID,
		"selected_vehicle_id": vehicleID,
		"duration_type":       fs.String(DurationType),
		"start_date":          transform.Date(fs[StartDate]),
		"end_date":            transform.Date(fs[EndDate]),
		"pickup_location":     transform.NullableText(fs[PickupLocation]),
		"return_location":     transform.NullableText(fs[ReturnLocation]),

		"daily_rental_rate":         transform.Money(fs[DailyRentalRate]),
		"rental_days":               transform.Int(fs[RentalDays]),
		"insurance_enabled":         transform.Bool(fs[InsuranceEnabled]),
		"insurance_daily_rate":      transform.Money(fs[InsuranceDailyRate]),
		"additional_driver_enabled": transform.Bool(fs[AdditionalDriverEnabled]),
		"additional_driver_fee":     transform.Money(fs[AdditionalDriverFee]),
		"total_amount":              transform.Money(fs[TotalAmount]),
		"deposit_amount":            transform.Money(fs[DepositAmount]),
		"payment_method":            fs.String(PaymentMethod),

		"inspector_id":     transform.NullIfEmpty(fs[SelectedInspectorID]),
		"mileage_out":      transform.Number(fs[MileageOut]),
		"fuel_level":       fs.String(FuelLevel),
		"notes":            transform.NullableText(fs[Notes]),
		"inspection_notes": transform.NullableText(fs[InspectionNotes]),
		"status":           fs.String(Status),
	}
	if fs.String(DurationType) == ModeFees {
		p["total_fees"] = transform.Money(fs[TotalFees])
	} else {
		p["duration_in_days"] = transform.Int(fs[DurationInDays])
	}
	return p
}
