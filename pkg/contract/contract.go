// Package contract defines the five-step rental contract wizard.
//
// Steps: customer, vehicle, details, pricing and inspection. Selecting a
// customer, vehicle or inspector fills the read-only cluster of its step;
// the rental days, end date and suggested total follow the details step.
package contract

import (
	"time"

	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/ports"
	"github.com/aretw0/rentdesk/pkg/schema"
	"github.com/aretw0/rentdesk/pkg/wizard"
)

// Name is the registry name of the wizard.
const Name = "contract"

// Resource is the record service collection.
const Resource = "contracts"

// New builds the contract wizard. dir backs the three entity pickers.
func New(dir ports.Directory) *wizard.Definition {
	return &wizard.Definition{
		Name:        Name,
		DisplayName: "Rental contract",
		Resource:    Resource,
		Steps:       Steps(),
		Specs:       specs(),
		Resolvers:   resolvers(dir),
		Defaults:    Defaults,
		FromRecord:  FromRecord,
		Transform:   Transform,
	}
}

// Steps returns the ordered step descriptors.
func Steps() []domain.Step {
	return []domain.Step{
		{
			ID:          "customer",
			DisplayName: "Customer",
			Fields:      []string{SelectedCustomerID, CustomerName, CustomerPhone, CustomerIDNumber, CustomerLicenseNumber},
			Validator:   customerSchema(),
		},
		{
			ID:          "vehicle",
			DisplayName: "Vehicle",
			Fields: []string{SelectedVehicleID, VehiclePlateNumber, VehicleMake, VehicleModel, VehicleYear,
				DailyRentalRate, PermittedDailyKm, ExtraKmRate, CurrentMileage},
			Validator: vehicleSchema(),
		},
		{
			ID:          "details",
			DisplayName: "Contract details",
			Fields: []string{DurationType, DurationInDays, TotalFees, StartDate, EndDate,
				PickupLocation, ReturnLocation, Notes},
			Validator: detailsSchema(),
		},
		{
			ID:          "pricing",
			DisplayName: "Pricing",
			Fields: []string{RentalDays, InsuranceEnabled, InsuranceDailyRate, AdditionalDriverEnabled,
				AdditionalDriverFee, TotalAmount, DepositAmount, PaymentMethod},
			Validator: pricingSchema(),
		},
		{
			ID:          "inspection",
			DisplayName: "Inspection",
			Fields:      []string{SelectedInspectorID, InspectorName, MileageOut, FuelLevel, InspectionNotes, Status},
			Validator:   inspectionSchema(),
		},
	}
}

func customerSchema() *schema.Schema {
	return schema.New("customer").
		Field(SelectedCustomerID, schema.Required()).
		Field(CustomerName).
		Field(CustomerPhone).
		Field(CustomerIDNumber).
		Field(CustomerLicenseNumber)
}

func vehicleSchema() *schema.Schema {
	return schema.New("vehicle").
		Field(SelectedVehicleID, schema.Required()).
		Field(VehiclePlateNumber).
		Field(VehicleMake).
		Field(VehicleModel).
		Field(VehicleYear).
		Field(DailyRentalRate, schema.Required(), schema.Positive()).
		Field(PermittedDailyKm, schema.NonNegative()).
		Field(ExtraKmRate, schema.NonNegative()).
		Field(CurrentMileage, schema.NonNegative())
}

func detailsSchema() *schema.Schema {
	return schema.New("details").
		Union(DurationType, map[string]*schema.Schema{
			ModeDuration: schema.New(ModeDuration).Field(DurationInDays, schema.Required(), schema.MinInt(1)),
			ModeFees:     schema.New(ModeFees).Field(TotalFees, schema.Required(), schema.Positive()),
		}).
		Field(StartDate, schema.Required(), schema.Date(), schema.NotPast()).
		Field(EndDate, schema.Required(), schema.Date(), schema.After(StartDate)).
		Field(PickupLocation, schema.MaxLength(120)).
		Field(ReturnLocation, schema.MaxLength(120)).
		Field(Notes, schema.MaxLength(1000))
}

func pricingSchema() *schema.Schema {
	insured := func(v schema.View) bool { return v.Bool(InsuranceEnabled) }
	extraDriver := func(v schema.View) bool { return v.Bool(AdditionalDriverEnabled) }

	return schema.New("pricing").
		Field(RentalDays, schema.Required(), schema.MinInt(1)).
		Field(InsuranceEnabled).
		Field(InsuranceDailyRate, schema.RequiredIf(InsuranceEnabled, insured), schema.NonNegative()).
		Field(AdditionalDriverEnabled).
		Field(AdditionalDriverFee, schema.RequiredIf(AdditionalDriverEnabled, extraDriver), schema.NonNegative()).
		Field(TotalAmount, schema.Required(), schema.NonNegative()).
		Field(DepositAmount, schema.Required(), schema.NonNegative(),
			schema.EqualsAmount("total_amount", func(v schema.View) (float64, bool) {
				return v.Float(TotalAmount)
			}, "deposit must equal the total amount")).
		Field(PaymentMethod, schema.Required(), schema.OneOf(paymentMethods...))
}

func inspectionSchema() *schema.Schema {
	return schema.New("inspection").
		Depends(CurrentMileage).
		Field(SelectedInspectorID).
		Field(InspectorName).
		Field(MileageOut, schema.Required(), schema.NonNegative(), schema.AtLeastField(CurrentMileage)).
		Field(FuelLevel, schema.Required(), schema.OneOf(fuelLevels...)).
		Field(InspectionNotes, schema.MaxLength(1000)).
		Field(Status, schema.Required(), schema.OneOf(statuses...))
}

// Defaults is the create-mode FieldSet: empty text, zero numbers, today as
// start date and the duration mode.
func Defaults(now time.Time) domain.FieldSet {
	return domain.FieldSet{
		SelectedCustomerID:    "",
		CustomerName:          "",
		CustomerPhone:         "",
		CustomerIDNumber:      "",
		CustomerLicenseNumber: "",

		SelectedVehicleID:  "",
		VehiclePlateNumber: "",
		VehicleMake:        "",
		VehicleModel:       "",
		VehicleYear:        0.0,
		DailyRentalRate:    0.0,
		PermittedDailyKm:   0.0,
		ExtraKmRate:        0.0,
		CurrentMileage:     0.0,

		DurationType:   ModeDuration,
		DurationInDays: 0.0,
		TotalFees:      0.0,
		StartDate:      now.Format(domain.DateLayout),
		EndDate:        "",
		PickupLocation: "",
		ReturnLocation: "",
		Notes:          "",

		RentalDays:              0.0,
		InsuranceEnabled:        false,
		InsuranceDailyRate:      0.0,
		AdditionalDriverEnabled: false,
		AdditionalDriverFee:     0.0,
		TotalAmount:             0.0,
		DepositAmount:           0.0,
		PaymentMethod:           "cash",

		SelectedInspectorID: "",
		InspectorName:       "",
		MileageOut:          0.0,
		FuelLevel:           "full",
		InspectionNotes:     "",
		Status:              "active",
	}
}

func specs() []domain.FieldSpec {
	text := func(key, label string) domain.FieldSpec {
		return domain.FieldSpec{Key: key, Label: label, Kind: domain.KindText}
	}
	number := func(key, label string) domain.FieldSpec {
		return domain.FieldSpec{Key: key, Label: label, Kind: domain.KindNumber}
	}
	readonly := func(key, label string) domain.FieldSpec {
		return domain.FieldSpec{Key: key, Label: label, Kind: domain.KindReadOnly}
	}
	choice := func(key, label string, choices ...string) domain.FieldSpec {
		return domain.FieldSpec{Key: key, Label: label, Kind: domain.KindChoice, Choices: choices}
	}
	return []domain.FieldSpec{
		{Key: SelectedCustomerID, Label: "Customer", Kind: domain.KindPicker},
		readonly(CustomerName, "Name"),
		readonly(CustomerPhone, "Phone"),
		readonly(CustomerIDNumber, "ID number"),
		readonly(CustomerLicenseNumber, "License number"),

		{Key: SelectedVehicleID, Label: "Vehicle", Kind: domain.KindPicker},
		readonly(VehiclePlateNumber, "Plate number"),
		readonly(VehicleMake, "Make"),
		readonly(VehicleModel, "Model"),
		readonly(VehicleYear, "Year"),
		number(DailyRentalRate, "Daily rate"),
		number(PermittedDailyKm, "Permitted km per day"),
		number(ExtraKmRate, "Extra km rate"),
		number(CurrentMileage, "Current mileage"),

		choice(DurationType, "Contract terms", ModeDuration, ModeFees),
		number(DurationInDays, "Duration (days)"),
		number(TotalFees, "Total fees"),
		{Key: StartDate, Label: "Start date", Kind: domain.KindDate},
		{Key: EndDate, Label: "End date", Kind: domain.KindDate},
		text(PickupLocation, "Pickup location"),
		text(ReturnLocation, "Return location"),
		text(Notes, "Notes"),

		readonly(RentalDays, "Rental days"),
		{Key: InsuranceEnabled, Label: "Insurance", Kind: domain.KindBool},
		number(InsuranceDailyRate, "Insurance daily rate"),
		{Key: AdditionalDriverEnabled, Label: "Additional driver", Kind: domain.KindBool},
		number(AdditionalDriverFee, "Additional driver fee"),
		number(TotalAmount, "Total amount"),
		number(DepositAmount, "Deposit"),
		choice(PaymentMethod, "Payment method", paymentMethods...),

		{Key: SelectedInspectorID, Label: "Inspector", Kind: domain.KindPicker},
		readonly(InspectorName, "Inspector name"),
		number(MileageOut, "Mileage out"),
		choice(FuelLevel, "Fuel level", fuelLevels...),
		text(InspectionNotes, "Inspection notes"),
		choice(Status, "Status", statuses...),
	}
}
