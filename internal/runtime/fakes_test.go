package runtime_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/rentdesk/pkg/domain"
)

var opened = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// directory serves a fixed set of entities.
type directory struct {
	customers  []domain.Customer
	vehicles   []domain.Vehicle
	inspectors []domain.Inspector
	err        error
}

var vehicleV = domain.Vehicle{
	ID: "v-150", PlateNumber: "RNT-150", Make: "Toyota", Model: "Corolla", Year: 2023,
	DailyRentalRate: 150, PermittedDailyKm: 200, ExtraKmRate: 0.5, CurrentMileage: 42000,
}

func newDirectory() *directory {
	return &directory{
		customers: []domain.Customer{
			{ID: "c-1", FullName: "Ana Lima", Phone: "555-0100", IDNumber: "ID-77", LicenseNumber: "LIC-1"},
			{ID: "c-2", FullName: "Rui Costa", Phone: "555-0101"},
		},
		vehicles: []domain.Vehicle{
			vehicleV,
			{ID: "v-90", PlateNumber: "RNT-090", Make: "Fiat", Model: "Uno", Year: 2019, DailyRentalRate: 90, CurrentMileage: 98000},
		},
		inspectors: []domain.Inspector{{ID: "i-1", FullName: "Marta Reis"}},
	}
}

func match[T domain.Entity](in []T, q string) []T {
	var out []T
	for _, e := range in {
		if q == "" || strings.Contains(strings.ToLower(e.Label()), strings.ToLower(q)) {
			out = append(out, e)
		}
	}
	return out
}

func (d *directory) SearchCustomers(_ context.Context, q string) ([]domain.Customer, error) {
	return match(d.customers, q), d.err
}

func (d *directory) SearchVehicles(_ context.Context, q string) ([]domain.Vehicle, error) {
	return match(d.vehicles, q), d.err
}

func (d *directory) SearchInspectors(_ context.Context, q string) ([]domain.Inspector, error) {
	return match(d.inspectors, q), d.err
}

// gatedCatalog blocks Models until the make is released.
type gatedCatalog struct {
	mu     sync.Mutex
	gates  map[string]chan struct{}
	models map[string][]domain.Option
	errs   map[string]error
	calls  []string
}

func newGatedCatalog() *gatedCatalog {
	return &gatedCatalog{
		gates: make(map[string]chan struct{}),
		errs:  make(map[string]error),
		models: map[string][]domain.Option{
			"toyota": {{ID: "yaris", Name: "Yaris"}, {ID: "corolla", Name: "Corolla"}},
			"honda":  {{ID: "civic", Name: "Civic"}, {ID: "jazz", Name: "Jazz"}},
		},
	}
}

func (c *gatedCatalog) gate(makeID string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.gates[makeID]
	if !ok {
		g = make(chan struct{})
		c.gates[makeID] = g
	}
	return g
}

func (c *gatedCatalog) Release(makeID string) { close(c.gate(makeID)) }

// Fail makes Models of makeID return err once released.
func (c *gatedCatalog) Fail(makeID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[makeID] = err
}

func (c *gatedCatalog) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *gatedCatalog) Colors(context.Context) ([]domain.Option, error) {
	return []domain.Option{{ID: "white", Name: "White"}}, nil
}

func (c *gatedCatalog) Makes(context.Context) ([]domain.Option, error) {
	return []domain.Option{{ID: "toyota", Name: "Toyota"}, {ID: "honda", Name: "Honda"}}, nil
}

func (c *gatedCatalog) Models(ctx context.Context, makeID string) ([]domain.Option, error) {
	c.mu.Lock()
	c.calls = append(c.calls, makeID)
	c.mu.Unlock()

	select {
	case <-c.gate(makeID):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.errs[makeID]; err != nil {
		return nil, err
	}
	return c.models[makeID], nil
}

// records counts calls and can hold Create/Update until released.
type records struct {
	mu       sync.Mutex
	stored   map[string]map[string]any
	creates  int
	updates  int
	payloads []domain.Payload
	err      error

	gate    chan struct{}
	started chan struct{}
}

func newRecords() *records {
	return &records{stored: make(map[string]map[string]any)}
}

// Hold makes the next writes block until the returned func is called.
func (r *records) Hold() (started <-chan struct{}, release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
	r.started = make(chan struct{}, 8)
	gate := r.gate
	return r.started, func() { close(gate) }
}

func (r *records) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *records) Counts() (creates, updates int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates, r.updates
}

func (r *records) LastPayload() domain.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.payloads) == 0 {
		return nil
	}
	return r.payloads[len(r.payloads)-1]
}

func (r *records) wait() {
	r.mu.Lock()
	gate, started := r.gate, r.started
	r.mu.Unlock()
	if gate == nil {
		return
	}
	started <- struct{}{}
	<-gate
}

func (r *records) Fetch(_ context.Context, resource, id string) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.stored[resource+"/"+id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", resource, id, domain.ErrEntityNotFound)
	}
	return rec, nil
}

func (r *records) Create(_ context.Context, resource string, payload domain.Payload) (string, error) {
	r.wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	r.payloads = append(r.payloads, payload)
	if r.err != nil {
		return "", r.err
	}
	return fmt.Sprintf("%s-%d", resource, r.creates), nil
}

func (r *records) Update(_ context.Context, resource, id string, payload domain.Payload) error {
	r.wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	r.payloads = append(r.payloads, payload)
	return r.err
}
