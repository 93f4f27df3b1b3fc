package contract_test

import (
	"testing"
	"time"

	"github.com/aretw0/rentdesk/pkg/contract"
	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/hydrate"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// validFieldSet satisfies every step validator at now.
func validFieldSet() domain.FieldSet {
	fs := contract.Defaults(now)
	fs.Merge(domain.FieldSet{
		contract.SelectedCustomerID: "c-1",
		contract.CustomerName:       "Ana Lima",
		contract.SelectedVehicleID:  "v-1",
		contract.DailyRentalRate:    100.0,
		contract.CurrentMileage:     12000.0,
		contract.DurationInDays:     3.0,
		contract.EndDate:            "2026-03-13",
		contract.RentalDays:         3.0,
		contract.TotalAmount:        300.0,
		contract.DepositAmount:      "300",
		contract.MileageOut:         12000.0,
	})
	return fs
}

func TestDefinition_IsConsistent(t *testing.T) {
	def := contract.New(nil)
	require.NoError(t, def.Validate())
	assert.Len(t, def.Steps, 5)
}

func TestSteps_ValidFieldSetAdvancesEveryStep(t *testing.T) {
	fs := validFieldSet()
	for i, step := range contract.Steps() {
		t.Run(string(step.ID), func(t *testing.T) {
			assert.Empty(t, step.Validator.Validate(fs, now), "step %d", i)
			// Re-running against the same FieldSet gives the same answer.
			assert.Empty(t, step.Validator.Validate(fs, now))
		})
	}
}

func TestSteps_Violations(t *testing.T) {
	steps := contract.Steps()
	tests := []struct {
		name  string
		step  int
		patch domain.FieldSet
		field string
	}{
		{"no customer", 0, domain.FieldSet{contract.SelectedCustomerID: ""}, contract.SelectedCustomerID},
		{"no vehicle", 1, domain.FieldSet{contract.SelectedVehicleID: ""}, contract.SelectedVehicleID},
		{"zero rate", 1, domain.FieldSet{contract.DailyRentalRate: 0.0}, contract.DailyRentalRate},
		{"past start", 2, domain.FieldSet{contract.StartDate: "2026-03-09"}, contract.StartDate},
		{"end before start", 2, domain.FieldSet{contract.EndDate: "2026-03-10"}, contract.EndDate},
		{"zero days", 2, domain.FieldSet{contract.DurationInDays: 0.0}, contract.DurationInDays},
		{"bad payment", 3, domain.FieldSet{contract.PaymentMethod: "cheque"}, contract.PaymentMethod},
		{"insurance without rate", 3, domain.FieldSet{contract.InsuranceEnabled: true, contract.InsuranceDailyRate: ""}, contract.InsuranceDailyRate},
		{"mileage below odometer", 4, domain.FieldSet{contract.MileageOut: 11999.0}, contract.MileageOut},
		{"bad fuel", 4, domain.FieldSet{contract.FuelLevel: "brimming"}, contract.FuelLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := validFieldSet()
			fs.Merge(tt.patch)
			errs := steps[tt.step].Validator.Validate(fs, now)
			assert.Contains(t, errs, tt.field)
		})
	}
}

func TestDetails_MutualExclusivity(t *testing.T) {
	details := contract.Steps()[2].Validator

	fs := validFieldSet()
	fs.Merge(domain.FieldSet{contract.DurationType: "duration", contract.TotalFees: "500", contract.DurationInDays: ""})
	errs := details.Validate(fs, now)
	assert.Contains(t, errs, contract.DurationInDays)
	assert.NotContains(t, errs, contract.TotalFees)

	fs = validFieldSet()
	fs.Merge(domain.FieldSet{contract.DurationType: "fees", contract.DurationInDays: "5", contract.TotalFees: ""})
	errs = details.Validate(fs, now)
	assert.Contains(t, errs, contract.TotalFees)
	assert.NotContains(t, errs, contract.DurationInDays)
}

func TestPricing_DepositReconciliation(t *testing.T) {
	pricing := contract.Steps()[3].Validator

	fs := validFieldSet()
	fs.Merge(domain.FieldSet{
		contract.DailyRentalRate:         100.0,
		contract.RentalDays:              3.0,
		contract.InsuranceEnabled:        false,
		contract.AdditionalDriverEnabled: false,
	})

	total, ok := contract.Total(fs)
	require.True(t, ok)
	assert.Equal(t, 300.0, total)

	fs[contract.DepositAmount] = "300"
	assert.Empty(t, pricing.Validate(fs, now))

	fs[contract.DepositAmount] = "299.99"
	errs := pricing.Validate(fs, now)
	assert.Contains(t, errs[contract.DepositAmount], "deposit must equal the total amount")
}

func TestPricing_DepositFollowsEditedTotal(t *testing.T) {
	pricing := contract.Steps()[3].Validator

	fs := validFieldSet()
	// Rate 100 for 3 days suggests 300; the agent agreed on 280.
	fs[contract.TotalAmount] = "280"

	fs[contract.DepositAmount] = "280"
	assert.Empty(t, pricing.Validate(fs, now))

	fs[contract.DepositAmount] = "300"
	errs := pricing.Validate(fs, now)
	assert.Contains(t, errs[contract.DepositAmount], "deposit must equal the total amount")
	assert.NotContains(t, errs, contract.TotalAmount)
}

func TestTotal_AddOnsAndFees(t *testing.T) {
	fs := domain.FieldSet{
		contract.DurationType:            contract.ModeDuration,
		contract.DailyRentalRate:         "100",
		contract.RentalDays:              4.0,
		contract.InsuranceEnabled:        true,
		contract.InsuranceDailyRate:      "12.5",
		contract.AdditionalDriverEnabled: "on",
		contract.AdditionalDriverFee:     30.0,
	}
	total, ok := contract.Total(fs)
	require.True(t, ok)
	assert.Equal(t, 480.0, total)

	fs[contract.DurationType] = contract.ModeFees
	fs[contract.TotalFees] = 250.0
	total, ok = contract.Total(fs)
	require.True(t, ok)
	assert.Equal(t, 330.0, total)

	_, ok = contract.Total(domain.FieldSet{contract.DurationType: contract.ModeDuration})
	assert.False(t, ok)
}

func TestResolvers_ScheduleAndTotal(t *testing.T) {
	def := contract.New(nil)
	fs := contract.Defaults(now)

	exp, ok := def.Resolvers.Expansion(contract.SelectedVehicleID)
	require.True(t, ok)
	changed, err := exp.Apply(fs, domain.Vehicle{ID: "v-9", PlateNumber: "XYZ-9", DailyRentalRate: 150, CurrentMileage: 500})
	require.NoError(t, err)
	def.Resolvers.Settle(fs, changed, nil)
	assert.Equal(t, 500.0, fs[contract.MileageOut])

	fs[contract.DurationInDays] = "5"
	affected := def.Resolvers.Settle(fs, []string{contract.DurationInDays}, nil)
	assert.Subset(t, affected, []string{contract.RentalDays, contract.EndDate, contract.TotalAmount})
	assert.Equal(t, 5.0, fs[contract.RentalDays])
	assert.Equal(t, "2026-03-15", fs[contract.EndDate])
	assert.Equal(t, 750.0, fs[contract.TotalAmount])

	// Fees mode counts days between the dates and keeps the end date.
	fs[contract.DurationType] = contract.ModeFees
	fs[contract.EndDate] = "2026-03-12"
	fs[contract.TotalFees] = 90.0
	def.Resolvers.Settle(fs, []string{contract.DurationType, contract.EndDate, contract.TotalFees}, nil)
	assert.Equal(t, 2.0, fs[contract.RentalDays])
	assert.Equal(t, "2026-03-12", fs[contract.EndDate])
	assert.Equal(t, 90.0, fs[contract.TotalAmount])
}

func TestResolvers_EditedTotalIsKept(t *testing.T) {
	def := contract.New(nil)
	fs := validFieldSet()
	fs[contract.TotalAmount] = 280.0

	edited := func(k string) bool { return k == contract.TotalAmount }
	fs[contract.DailyRentalRate] = 120.0
	def.Resolvers.Settle(fs, []string{contract.DailyRentalRate}, edited)
	assert.Equal(t, 280.0, fs[contract.TotalAmount])
}

func TestFromRecord_MinimalRecordIsTotal(t *testing.T) {
	def := contract.New(nil)
	fs, err := def.Hydrate(domain.ModeEdit, map[string]any{"id": "k-1"}, now, time.UTC)
	require.NoError(t, err)
	require.NoError(t, hydrate.Check(contract.Name, fs, def.Keys()))

	assert.Equal(t, "", fs[contract.SelectedCustomerID])
	assert.Equal(t, "", fs[contract.InspectorName])
	assert.Equal(t, contract.ModeDuration, fs[contract.DurationType])
	assert.Equal(t, 0.0, fs[contract.DailyRentalRate])
	assert.Equal(t, "", fs[contract.StartDate])
	assert.Equal(t, "cash", fs[contract.PaymentMethod])
	assert.Equal(t, false, fs[contract.InsuranceEnabled])
}

func TestFromRecord_NestedRelations(t *testing.T) {
	fs, err := contract.FromRecord(map[string]any{
		"id":          "k-2",
		"customer_id": "c-7",
		"customer": map[string]any{
			"full_name": "Rui Costa", "phone": "555-0101", "id_number": "ID-1", "license_number": "L-1",
		},
		"vehicle": map[string]any{
			"id": "v-3", "plate_number": "AB-12", "make": "Toyota", "model": "Yaris", "year": 2022,
			"daily_rental_rate": 90, "current_mileage": "41000",
		},
		"daily_rental_rate": "85",
		"duration_type":     "fees",
		"total_fees":        "400",
		"start_date":        "2026-04-01T00:00:00Z",
		"end_date":          "2026-04-05",
		"insurance_enabled": "true",
		"inspector":         nil,
		"status":            "completed",
	}, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "c-7", fs[contract.SelectedCustomerID])
	assert.Equal(t, "Rui Costa", fs[contract.CustomerName])
	assert.Equal(t, "v-3", fs[contract.SelectedVehicleID])
	assert.Equal(t, 2022.0, fs[contract.VehicleYear])
	assert.Equal(t, 85.0, fs[contract.DailyRentalRate])
	assert.Equal(t, 41000.0, fs[contract.MileageOut])
	assert.Equal(t, contract.ModeFees, fs[contract.DurationType])
	assert.Equal(t, 400.0, fs[contract.TotalFees])
	assert.Equal(t, "2026-04-01", fs[contract.StartDate])
	assert.Equal(t, true, fs[contract.InsuranceEnabled])
	assert.Equal(t, "", fs[contract.SelectedInspectorID])
	assert.Equal(t, "completed", fs[contract.Status])
}

func TestTransform(t *testing.T) {
	fs := validFieldSet()
	fs.Merge(domain.FieldSet{
		contract.DailyRentalRate: "150",
		contract.RentalDays:      5.0,
		contract.TotalAmount:     "750",
		contract.DepositAmount:   "abc",
		contract.Notes:           "  ",
		contract.InspectionNotes: "<b>dent</b> left door",
	})

	got := contract.Transform(fs)

	want := domain.Payload{
		"customer_id":               "c-1",
		"vehicle_id":                "v-1",
		"selected_vehicle_id":       "v-1",
		"duration_type":             "duration",
		"duration_in_days":          3,
		"start_date":                "2026-03-10",
		"end_date":                  "2026-03-13",
		"pickup_location":           nil,
		"return_location":           nil,
		"daily_rental_rate":         150.0,
		"rental_days":               5,
		"insurance_enabled":         false,
		"insurance_daily_rate":      0.0,
		"additional_driver_enabled": false,
		"additional_driver_fee":     0.0,
		"total_amount":              750.0,
		"deposit_amount":            0.0, // NaN policy: unparsable becomes 0
		"payment_method":            "cash",
		"inspector_id":              nil,
		"mileage_out":               12000.0,
		"fuel_level":                "full",
		"notes":                     nil,
		"inspection_notes":          "dent left door",
		"status":                    "active",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	fs[contract.DurationType] = contract.ModeFees
	fs[contract.TotalFees] = "420.5"
	got = contract.Transform(fs)
	assert.Equal(t, 420.5, got["total_fees"])
	assert.NotContains(t, got, "duration_in_days")
}
