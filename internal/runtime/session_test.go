package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/rentdesk/internal/runtime"
	"github.com/aretw0/rentdesk/pkg/contract"
	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/vehicle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	s     *runtime.Session
	recs  *records
	dir   *directory
	clock *clock

	mu        sync.Mutex
	refreshed []string
	steps     []domain.StepEvent
	fetches   []domain.FetchEvent
	changes   []domain.FieldEvent
}

func (f *fixture) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.steps = append(f.steps, *e)
		},
		OnFetch: func(_ context.Context, e *domain.FetchEvent) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.fetches = append(f.fetches, *e)
		},
		OnFieldChanged: func(_ context.Context, e *domain.FieldEvent) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.changes = append(f.changes, *e)
		},
	}
}

func (f *fixture) lastChange() domain.FieldEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.changes) == 0 {
		return domain.FieldEvent{}
	}
	return f.changes[len(f.changes)-1]
}

func (f *fixture) options() []runtime.Option {
	return []runtime.Option{
		runtime.WithClock(f.clock.Now),
		runtime.WithLocation(time.UTC),
		runtime.WithLifecycleHooks(f.hooks()),
		runtime.WithRefresh(func(_ context.Context, resource, id string) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.refreshed = append(f.refreshed, resource+"/"+id)
		}),
	}
}

func (f *fixture) fetchOutcomes(trigger string) []domain.FetchOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FetchOutcome
	for _, e := range f.fetches {
		if e.Trigger == trigger {
			out = append(out, e.Outcome)
		}
	}
	return out
}

func newContractFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{recs: newRecords(), dir: newDirectory(), clock: newClock(opened)}
	f.s = runtime.NewSession(contract.New(f.dir), f.recs, f.options()...)
	require.NoError(t, f.s.Open(context.Background(), ""))
	t.Cleanup(func() { _ = f.s.Close() })
	return f
}

// pick searches a picker field and selects id among the results.
func pick(t *testing.T, s *runtime.Session, field, id string) {
	t.Helper()
	_, err := s.Search(context.Background(), field, "")
	require.NoError(t, err)
	require.NoError(t, s.Select(context.Background(), field, id))
}

// driveToInspection walks the create flow up to the last step: customer
// c-1, vehicle V, five days from today and a matching deposit.
func driveToInspection(t *testing.T, s *runtime.Session) {
	t.Helper()
	ctx := context.Background()

	found, err := s.Search(ctx, contract.SelectedCustomerID, "ana")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NoError(t, s.Select(ctx, contract.SelectedCustomerID, "c-1"))
	require.NoError(t, s.Next(ctx))

	found, err = s.Search(ctx, contract.SelectedVehicleID, "")
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.NoError(t, s.SetField(ctx, contract.SelectedVehicleID, vehicleV.ID))
	require.NoError(t, s.Next(ctx))

	require.NoError(t, s.SetField(ctx, contract.DurationInDays, "5"))
	require.NoError(t, s.Next(ctx))

	st := s.State()
	require.Equal(t, 3, st.StepIndex)
	require.Equal(t, 750.0, st.Fields[contract.TotalAmount])
	require.NoError(t, s.SetField(ctx, contract.DepositAmount, "750"))
	require.NoError(t, s.Next(ctx))
	require.Equal(t, 4, s.State().StepIndex)
}

func TestSession_EndToEndContract(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	driveToInspection(t, f.s)

	st := f.s.State()
	assert.Equal(t, "2026-03-15", st.Fields[contract.EndDate])
	assert.Equal(t, 5.0, st.Fields[contract.RentalDays])
	assert.Equal(t, 42000.0, st.Fields[contract.MileageOut])
	assert.Equal(t, "RNT-150", st.Fields[contract.VehiclePlateNumber])

	_, err := f.s.Search(ctx, contract.SelectedInspectorID, "")
	require.NoError(t, err)
	require.NoError(t, f.s.Select(ctx, contract.SelectedInspectorID, "i-1"))
	assert.Equal(t, "Marta Reis", f.s.State().Fields[contract.InspectorName])

	require.NoError(t, f.s.Submit(ctx))

	creates, updates := f.recs.Counts()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 0, updates)

	p := f.recs.LastPayload()
	assert.Equal(t, 150.0, p["daily_rental_rate"])
	assert.Equal(t, 5, p["rental_days"])
	assert.Equal(t, 750.0, p["total_amount"])
	assert.Equal(t, vehicleV.ID, p["selected_vehicle_id"])
	assert.Equal(t, "i-1", p["inspector_id"])
	assert.Equal(t, 5, p["duration_in_days"])
	assert.NotContains(t, p, "total_fees")

	st = f.s.State()
	assert.Equal(t, domain.StatusClosed, st.Status)
	assert.Equal(t, "contracts-1", st.EntityID)
	assert.Equal(t, []string{"contracts/contracts-1"}, f.refreshed)

	assert.ErrorIs(t, f.s.SetField(ctx, contract.Notes, "late"), domain.ErrSessionClosed)
	assert.ErrorIs(t, f.s.Submit(ctx), domain.ErrSessionClosed)
}

func TestSession_NextFailureStaysAndTouchesStep(t *testing.T) {
	f := newContractFixture(t)

	err := f.s.Next(context.Background())
	var sve *domain.StepValidationError
	require.ErrorAs(t, err, &sve)
	assert.Equal(t, domain.StepID("customer"), sve.StepID)

	st := f.s.State()
	assert.Equal(t, 0, st.StepIndex)
	assert.Contains(t, st.Errors, contract.SelectedCustomerID)
	for _, k := range contract.Steps()[0].Fields {
		assert.True(t, st.Touched[k], "%s touched", k)
	}

	// Writing the field clears its error; validation itself waits for Next.
	pick(t, f.s, contract.SelectedCustomerID, "c-2")
	assert.NotContains(t, f.s.State().Errors, contract.SelectedCustomerID)
}

func TestSession_BackNeverValidates(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.s.Back(), domain.ErrNoPreviousStep)

	pick(t, f.s, contract.SelectedCustomerID, "c-1")
	require.NoError(t, f.s.Next(ctx))
	require.Equal(t, 1, f.s.State().StepIndex)

	// Step 1 is invalid (no vehicle); Back still goes through.
	require.NoError(t, f.s.SetField(ctx, contract.DailyRentalRate, "-3"))
	require.NoError(t, f.s.Back())
	st := f.s.State()
	assert.Equal(t, 0, st.StepIndex)
	assert.Empty(t, st.Errors)
	assert.Equal(t, "-3", st.Fields[contract.DailyRentalRate])
}

func TestSession_JumpTo(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.s.JumpTo(2), domain.ErrStepLocked)
	assert.Error(t, f.s.JumpTo(9))

	pick(t, f.s, contract.SelectedCustomerID, "c-1")
	require.NoError(t, f.s.Next(ctx))
	require.NoError(t, f.s.JumpTo(0))
	assert.Equal(t, 0, f.s.State().StepIndex)

	// Step 1 was visited but never completed.
	assert.ErrorIs(t, f.s.JumpTo(1), domain.ErrStepLocked)

	ind := f.s.Indicators()
	require.Len(t, ind, 5)
	assert.Equal(t, domain.StepCurrent, ind[0].Status)
	assert.False(t, ind[1].Reachable)

	// Completed steps stay reachable from anywhere.
	driveToInspection(t, f.s)
	require.NoError(t, f.s.JumpTo(1))
	require.NoError(t, f.s.JumpTo(3))
	// The last step is only completed by submitting.
	assert.ErrorIs(t, f.s.JumpTo(4), domain.ErrStepLocked)
}

func TestSession_DatesValidatedAtSubmitTime(t *testing.T) {
	f := newContractFixture(t)
	driveToInspection(t, f.s)

	// The session stays open over two nights: today's start date is now past.
	f.clock.Advance(48 * time.Hour)

	err := f.s.Submit(context.Background())
	var sve *domain.StepValidationError
	require.ErrorAs(t, err, &sve)
	assert.Equal(t, 2, sve.Index)
	assert.Contains(t, sve.Fields, contract.StartDate)

	st := f.s.State()
	assert.Equal(t, 2, st.StepIndex)
	assert.Equal(t, domain.StatusEditing, st.Status)
	creates, _ := f.recs.Counts()
	assert.Zero(t, creates)
}

func TestSession_SubmissionFailurePreservesFieldSet(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	driveToInspection(t, f.s)

	f.recs.Fail(&domain.ServiceError{Op: "create contracts", Message: "vehicle already rented"})
	err := f.s.Submit(ctx)
	var se *domain.SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "vehicle already rented", se.Message)

	st := f.s.State()
	assert.Equal(t, domain.StatusEditing, st.Status)
	assert.Equal(t, 4, st.StepIndex)
	assert.Equal(t, "750", st.Fields[contract.DepositAmount])
	assert.Equal(t, vehicleV.ID, st.Fields[contract.SelectedVehicleID])
	assert.Empty(t, f.refreshed)

	f.recs.Fail(nil)
	require.NoError(t, f.s.Submit(ctx))
	creates, _ := f.recs.Counts()
	assert.Equal(t, 2, creates)
	assert.Len(t, f.refreshed, 1)
}

func TestSession_ReentrantSubmitIsRejected(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	driveToInspection(t, f.s)

	started, release := f.recs.Hold()
	first := make(chan error, 1)
	go func() { first <- f.s.Submit(ctx) }()
	<-started

	assert.Equal(t, domain.StatusSubmitting, f.s.State().Status)
	assert.ErrorIs(t, f.s.Submit(ctx), domain.ErrSubmitInFlight)
	assert.ErrorIs(t, f.s.Next(ctx), domain.ErrSubmitInFlight)
	assert.ErrorIs(t, f.s.SetField(ctx, contract.Notes, "x"), domain.ErrSubmitInFlight)

	release()
	require.NoError(t, <-first)

	creates, _ := f.recs.Counts()
	assert.Equal(t, 1, creates)
	assert.Equal(t, domain.StatusClosed, f.s.State().Status)
}

func TestSession_EditModeUpdatesRecord(t *testing.T) {
	recs := newRecords()
	recs.stored["contracts/k-1"] = map[string]any{
		"id":          "k-1",
		"customer_id": "c-1",
		"customer":    map[string]any{"full_name": "Ana Lima"},
		"vehicle": map[string]any{
			"id": "v-90", "plate_number": "RNT-090", "daily_rental_rate": 90, "current_mileage": 98000,
		},
		"daily_rental_rate": 100,
		"duration_type":     "duration",
		"duration_in_days":  3,
		"start_date":        "2026-03-12",
		"end_date":          "2026-03-15",
		"rental_days":       3,
		"total_amount":      300,
		"deposit_amount":    "300",
		"payment_method":    "card",
		"mileage_out":       98000,
		"fuel_level":        "half",
	}
	f := &fixture{recs: recs, dir: newDirectory(), clock: newClock(opened)}
	s := runtime.NewSession(contract.New(f.dir), recs, f.options()...)
	ctx := context.Background()

	require.ErrorIs(t, s.Open(ctx, "missing"), domain.ErrEntityNotFound)
	require.NoError(t, s.Open(ctx, "k-1"))

	st := s.State()
	assert.Equal(t, domain.ModeEdit, st.Mode)
	assert.Equal(t, "k-1", st.EntityID)
	assert.Equal(t, 100.0, st.Fields[contract.DailyRentalRate])
	assert.Equal(t, "active", st.Fields[contract.Status])
	assert.Empty(t, st.Dirty)

	require.NoError(t, s.SetField(ctx, contract.Notes, "returning at noon"))
	assert.Equal(t, []string{contract.Notes}, s.State().Dirty)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Next(ctx), "step %d", i)
	}

	creates, updates := recs.Counts()
	assert.Zero(t, creates)
	assert.Equal(t, 1, updates)
	p := recs.LastPayload()
	assert.Equal(t, 300.0, p["total_amount"])
	assert.Equal(t, 100.0, p["daily_rental_rate"])
	assert.Equal(t, "returning at noon", p["notes"])
	assert.Equal(t, []string{"contracts/k-1"}, f.refreshed)
}

func TestSession_SearchErrorDegradesToEmpty(t *testing.T) {
	f := newContractFixture(t)
	f.dir.err = errors.New("directory unavailable")

	found, err := f.s.Search(context.Background(), contract.SelectedVehicleID, "")
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, []domain.FetchOutcome{domain.FetchError}, f.fetchOutcomes(contract.SelectedVehicleID))

	_, err = f.s.Search(context.Background(), contract.DailyRentalRate, "")
	assert.ErrorIs(t, err, domain.ErrUnknownField)
}

func TestSession_UnknownFieldAndSelection(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.s.SetField(ctx, "nope", 1), domain.ErrUnknownField)
	assert.ErrorIs(t, f.s.Select(ctx, contract.SelectedVehicleID, "v-150"), domain.ErrEntityNotFound)
	assert.ErrorIs(t, f.s.Select(ctx, contract.Notes, "x"), domain.ErrUnknownField)

	_, err := f.s.Get("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownField)
}

func TestSession_ReselectOverwritesCluster(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	_, err := f.s.Search(ctx, contract.SelectedVehicleID, "")
	require.NoError(t, err)
	require.NoError(t, f.s.Select(ctx, contract.SelectedVehicleID, "v-150"))
	require.NoError(t, f.s.Select(ctx, contract.SelectedVehicleID, "v-90"))

	st := f.s.State()
	assert.Equal(t, 90.0, st.Fields[contract.DailyRentalRate])
	assert.Equal(t, 0.0, st.Fields[contract.PermittedDailyKm])
	assert.Equal(t, 98000.0, st.Fields[contract.MileageOut])

	require.NoError(t, f.s.Select(ctx, contract.SelectedVehicleID, ""))
	st = f.s.State()
	assert.Equal(t, "", st.Fields[contract.SelectedVehicleID])
	assert.Equal(t, "", st.Fields[contract.VehiclePlateNumber])
	assert.Equal(t, 0.0, st.Fields[contract.DailyRentalRate])
}

func TestSession_StepHooks(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	pick(t, f.s, contract.SelectedCustomerID, "c-1")
	require.NoError(t, f.s.Next(ctx))
	require.NoError(t, f.s.Back())

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.steps, 3)
	assert.Equal(t, domain.StepID("customer"), f.steps[0].StepID)
	assert.Equal(t, domain.StepID("vehicle"), f.steps[1].StepID)
	assert.Equal(t, "next", f.steps[1].Direction)
	assert.Equal(t, "back", f.steps[2].Direction)
}

func newVehicleFixture(t *testing.T, cat *gatedCatalog) *fixture {
	t.Helper()
	f := &fixture{recs: newRecords(), clock: newClock(opened)}
	f.s = runtime.NewSession(vehicle.New(cat), f.recs, f.options()...)
	require.NoError(t, f.s.Open(context.Background(), ""))
	f.s.WaitIdle()
	t.Cleanup(func() { _ = f.s.Close() })
	return f
}

func TestSession_OpenLoadsRootOptions(t *testing.T) {
	f := newVehicleFixture(t, newGatedCatalog())

	makes, ok := f.s.Options(vehicle.OptionsMakes)
	require.True(t, ok)
	assert.Len(t, makes, 2)
	_, ok = f.s.Options(vehicle.OptionsModels)
	assert.False(t, ok, "models wait for a make")
}

func TestSession_StaleCascadeIsDiscarded(t *testing.T) {
	cat := newGatedCatalog()
	f := newVehicleFixture(t, cat)
	ctx := context.Background()

	require.NoError(t, f.s.SetField(ctx, vehicle.MakeID, "toyota"))
	require.NoError(t, f.s.SetField(ctx, vehicle.MakeID, "honda"))

	// B resolves first, then A arrives late.
	cat.Release("honda")
	require.Eventually(t, func() bool {
		_, ok := f.s.Options(vehicle.OptionsModels)
		return ok
	}, time.Second, 5*time.Millisecond)
	cat.Release("toyota")
	f.s.WaitIdle()

	models, ok := f.s.Options(vehicle.OptionsModels)
	require.True(t, ok)
	assert.Equal(t, []domain.Option{{ID: "civic", Name: "Civic"}, {ID: "jazz", Name: "Jazz"}}, models)
	assert.ElementsMatch(t, []string{"toyota", "honda"}, cat.Calls())
	assert.Equal(t, []domain.FetchOutcome{domain.FetchApplied, domain.FetchStale}, f.fetchOutcomes(vehicle.OptionsModels))
}

func TestSession_CascadeClearsInvalidChild(t *testing.T) {
	cat := newGatedCatalog()
	f := newVehicleFixture(t, cat)
	ctx := context.Background()

	require.NoError(t, f.s.SetField(ctx, vehicle.MakeID, "toyota"))
	cat.Release("toyota")
	f.s.WaitIdle()
	require.NoError(t, f.s.SetField(ctx, vehicle.ModelID, "yaris"))

	require.NoError(t, f.s.SetField(ctx, vehicle.MakeID, "honda"))
	_, ok := f.s.Options(vehicle.OptionsModels)
	assert.False(t, ok, "models invalidated while honda loads")
	cat.Release("honda")
	f.s.WaitIdle()

	st := f.s.State()
	assert.Equal(t, "", st.Fields[vehicle.ModelID])
	// The child was touched, so it is re-validated as soon as it is cleared.
	assert.Contains(t, st.Errors, vehicle.ModelID)

	// Clearing the parent clears the child without fetching.
	require.NoError(t, f.s.SetField(ctx, vehicle.ModelID, "civic"))
	require.NoError(t, f.s.SetField(ctx, vehicle.MakeID, ""))
	f.s.WaitIdle()
	st = f.s.State()
	assert.Equal(t, "", st.Fields[vehicle.ModelID])
	assert.Contains(t, st.Errors, vehicle.ModelID)
	change := f.lastChange()
	assert.Equal(t, vehicle.MakeID, change.Field)
	assert.Contains(t, change.Affected, vehicle.ModelID)
	assert.Len(t, cat.Calls(), 2)
}

// chooseToyotaYaris sets make and model and waits for the toyota models.
func chooseToyotaYaris(t *testing.T, f *fixture, cat *gatedCatalog) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.s.SetField(ctx, vehicle.MakeID, "toyota"))
	cat.Release("toyota")
	f.s.WaitIdle()
	require.NoError(t, f.s.SetField(ctx, vehicle.ModelID, "yaris"))
}

func TestSession_ParentChangeClearsChildBeforeOptionsArrive(t *testing.T) {
	cat := newGatedCatalog()
	f := newVehicleFixture(t, cat)
	ctx := context.Background()
	chooseToyotaYaris(t, f, cat)

	require.NoError(t, f.s.SetField(ctx, vehicle.MakeID, "honda"))

	// The honda models are still loading.
	st := f.s.State()
	assert.Equal(t, "honda", st.Fields[vehicle.MakeID])
	assert.Equal(t, "", st.Fields[vehicle.ModelID])
	_, ok := f.s.Options(vehicle.OptionsModels)
	assert.False(t, ok)
	assert.Contains(t, f.lastChange().Affected, vehicle.ModelID)

	var stepErr *domain.StepValidationError
	require.ErrorAs(t, f.s.Next(ctx), &stepErr)
	assert.Contains(t, stepErr.Fields, vehicle.ModelID)
	assert.Equal(t, 0, f.s.State().StepIndex)

	cat.Release("honda")
	f.s.WaitIdle()
	assert.Equal(t, "", f.s.State().Fields[vehicle.ModelID])
}

func TestSession_FailedCascadeLeavesChildCleared(t *testing.T) {
	cat := newGatedCatalog()
	f := newVehicleFixture(t, cat)
	ctx := context.Background()
	chooseToyotaYaris(t, f, cat)

	cat.Fail("honda", errors.New("catalog unavailable"))
	require.NoError(t, f.s.SetField(ctx, vehicle.MakeID, "honda"))
	cat.Release("honda")
	f.s.WaitIdle()

	st := f.s.State()
	assert.Equal(t, "honda", st.Fields[vehicle.MakeID])
	assert.Equal(t, "", st.Fields[vehicle.ModelID])
	models, ok := f.s.Options(vehicle.OptionsModels)
	require.True(t, ok)
	assert.Empty(t, models)
	outcomes := f.fetchOutcomes(vehicle.OptionsModels)
	require.NotEmpty(t, outcomes)
	assert.Equal(t, domain.FetchError, outcomes[len(outcomes)-1])

	var stepErr *domain.StepValidationError
	require.ErrorAs(t, f.s.Next(ctx), &stepErr)
	assert.Contains(t, stepErr.Fields, vehicle.ModelID)
}

func TestSession_WaitIdleCoversFetchesIssuedWhileWaiting(t *testing.T) {
	cat := newGatedCatalog()
	f := newVehicleFixture(t, cat)
	ctx := context.Background()

	waited := make(chan struct{})
	require.NoError(t, f.s.SetField(ctx, vehicle.MakeID, "toyota"))
	go func() {
		f.s.WaitIdle()
		close(waited)
	}()
	require.NoError(t, f.s.SetField(ctx, vehicle.MakeID, "honda"))
	cat.Release("toyota")

	select {
	case <-waited:
		t.Fatal("WaitIdle returned while the honda fetch was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	cat.Release("honda")
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("WaitIdle did not return")
	}
}

func TestSession_CloseAbandonsInFlightFetches(t *testing.T) {
	cat := newGatedCatalog()
	f := newVehicleFixture(t, cat)
	ctx := context.Background()

	require.NoError(t, f.s.SetField(ctx, vehicle.MakeID, "toyota"))
	before := f.s.State().Fields.Clone()

	require.NoError(t, f.s.Close())
	f.s.WaitIdle()

	st := f.s.State()
	assert.Equal(t, domain.StatusClosed, st.Status)
	assert.Equal(t, before, st.Fields)
	_, ok := f.s.Options(vehicle.OptionsModels)
	assert.False(t, ok)
	assert.NotContains(t, f.fetchOutcomes(vehicle.OptionsModels), domain.FetchApplied)

	assert.ErrorIs(t, f.s.SetField(ctx, vehicle.MakeID, "honda"), domain.ErrSessionClosed)
	assert.NoError(t, f.s.Close())
	select {
	case <-f.s.Done():
	default:
		t.Fatal("Done not closed")
	}
}
