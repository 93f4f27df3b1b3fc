package contract

import (
	"context"
	"fmt"
	"math"

	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/hydrate"
	"github.com/aretw0/rentdesk/pkg/ports"
	"github.com/aretw0/rentdesk/pkg/resolver"
)

// Reader is the read access shared by domain.FieldSet and schema.View.
type Reader interface {
	String(key string) string
	Float(key string) (float64, bool)
	Bool(key string) bool
}

// Total computes the contract amount: the daily rate times the rental days
// (or the fixed fees in fees mode), plus the insurance rate times the days
// when insured, plus the additional driver fee when enabled. ok is false
// while the base amount cannot be computed.
func Total(r Reader) (float64, bool) {
	days, haveDays := r.Float(RentalDays)

	var total float64
	if r.String(DurationType) == ModeFees {
		fees, ok := r.Float(TotalFees)
		if !ok {
			return 0, false
		}
		total = fees
	} else {
		rate, ok := r.Float(DailyRentalRate)
		if !ok || !haveDays {
			return 0, false
		}
		total = rate * days
	}

	if r.Bool(InsuranceEnabled) && haveDays {
		if rate, ok := r.Float(InsuranceDailyRate); ok {
			total += rate * days
		}
	}
	if r.Bool(AdditionalDriverEnabled) {
		if fee, ok := r.Float(AdditionalDriverFee); ok {
			total += fee
		}
	}
	return math.Round(total*100) / 100, true
}

func resolvers(dir ports.Directory) *resolver.Registry {
	reg := resolver.NewRegistry()

	reg.Expand(SelectedCustomerID, domain.FieldSet{
		CustomerName: "", CustomerPhone: "", CustomerIDNumber: "", CustomerLicenseNumber: "",
	}, func(e domain.Entity) (domain.FieldSet, error) {
		c, ok := e.(domain.Customer)
		if !ok {
			return nil, fmt.Errorf("expected customer, got %T", e)
		}
		return domain.FieldSet{
			CustomerName:          c.FullName,
			CustomerPhone:         c.Phone,
			CustomerIDNumber:      c.IDNumber,
			CustomerLicenseNumber: c.LicenseNumber,
		}, nil
	})

	reg.Expand(SelectedVehicleID, domain.FieldSet{
		VehiclePlateNumber: "", VehicleMake: "", VehicleModel: "", VehicleYear: 0.0,
		DailyRentalRate: 0.0, PermittedDailyKm: 0.0, ExtraKmRate: 0.0, CurrentMileage: 0.0,
	}, func(e domain.Entity) (domain.FieldSet, error) {
		v, ok := e.(domain.Vehicle)
		if !ok {
			return nil, fmt.Errorf("expected vehicle, got %T", e)
		}
		return domain.FieldSet{
			VehiclePlateNumber: v.PlateNumber,
			VehicleMake:        v.Make,
			VehicleModel:       v.Model,
			VehicleYear:        float64(v.Year),
			DailyRentalRate:    v.DailyRentalRate,
			PermittedDailyKm:   v.PermittedDailyKm,
			ExtraKmRate:        v.ExtraKmRate,
			CurrentMileage:     v.CurrentMileage,
		}, nil
	})

	reg.Expand(SelectedInspectorID, domain.FieldSet{InspectorName: ""},
		func(e domain.Entity) (domain.FieldSet, error) {
			i, ok := e.(domain.Inspector)
			if !ok {
				return nil, fmt.Errorf("expected inspector, got %T", e)
			}
			return domain.FieldSet{InspectorName: i.FullName}, nil
		})

	reg.Derive("schedule", []string{DurationType, DurationInDays, StartDate, EndDate}, schedule)

	reg.Suggest("total", []string{
		DailyRentalRate, RentalDays, DurationType, TotalFees,
		InsuranceEnabled, InsuranceDailyRate, AdditionalDriverEnabled, AdditionalDriverFee,
	}, func(fs domain.FieldSet) domain.FieldSet {
		total, ok := Total(fs)
		if !ok {
			return nil
		}
		return domain.FieldSet{TotalAmount: total}
	})

	reg.Suggest("mileage_out", []string{CurrentMileage}, func(fs domain.FieldSet) domain.FieldSet {
		if m, ok := fs.Float(CurrentMileage); ok {
			return domain.FieldSet{MileageOut: m}
		}
		return nil
	})

	if dir != nil {
		reg.Picker(SelectedCustomerID, func(ctx context.Context, q string) ([]domain.Entity, error) {
			found, err := dir.SearchCustomers(ctx, q)
			return entities(found), err
		})
		reg.Picker(SelectedVehicleID, func(ctx context.Context, q string) ([]domain.Entity, error) {
			found, err := dir.SearchVehicles(ctx, q)
			return entities(found), err
		})
		reg.Picker(SelectedInspectorID, func(ctx context.Context, q string) ([]domain.Entity, error) {
			found, err := dir.SearchInspectors(ctx, q)
			return entities(found), err
		})
	}

	return reg
}

// schedule keeps rentalDays and endDate consistent with the contract terms.
// In duration mode the end date follows start + days; in fees mode the days
// are counted between the two dates.
func schedule(fs domain.FieldSet) domain.FieldSet {
	start := fs.String(StartDate)

	if fs.String(DurationType) == ModeFees {
		days, ok := hydrate.DaysBetween(start, fs.String(EndDate))
		if !ok || days < 1 {
			return domain.FieldSet{RentalDays: 0.0}
		}
		return domain.FieldSet{RentalDays: float64(days)}
	}

	n, ok := fs.Float(DurationInDays)
	if !ok || n < 1 || n != math.Trunc(n) {
		return domain.FieldSet{RentalDays: 0.0}
	}
	out := domain.FieldSet{RentalDays: n}
	if end := hydrate.AddDays(start, int(n)); end != "" {
		out[EndDate] = end
	}
	return out
}

func entities[T domain.Entity](in []T) []domain.Entity {
	out := make([]domain.Entity, len(in))
	for i, e := range in {
		out[i] = e
	}
	return out
}
