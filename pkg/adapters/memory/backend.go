// Package memory provides an in-memory implementation of every driven port.
// It is seeded from YAML and backs the demo binary and the tests.
package memory

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the initial content of a Backend.
type Seed struct {
	Customers  []domain.Customer           `yaml:"customers"`
	Vehicles   []domain.Vehicle            `yaml:"vehicles"`
	Inspectors []domain.Inspector          `yaml:"inspectors"`
	Colors     []domain.Option             `yaml:"colors"`
	Makes      []domain.Option             `yaml:"makes"`
	Models     map[string][]domain.Option  `yaml:"models"`
	Records    map[string][]map[string]any `yaml:"records"`
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return &s, nil
}

// DefaultSeed returns the embedded demo data.
func DefaultSeed() *Seed {
	s, err := ParseSeed(defaultSeed)
	if err != nil {
		panic(err)
	}
	return s
}

// Backend implements ports.Backend in memory.
// Safe for concurrent use.
type Backend struct {
	mu      sync.RWMutex
	seed    *Seed
	records map[string]map[string]map[string]any // resource -> id -> record
}

// New creates a backend holding a copy of seed. A nil seed yields an empty
// backend.
func New(seed *Seed) *Backend {
	if seed == nil {
		seed = &Seed{}
	}
	b := &Backend{seed: seed, records: make(map[string]map[string]map[string]any)}
	for resource, recs := range seed.Records {
		for _, rec := range recs {
			id := domain.Text(rec["id"])
			if id == "" {
				continue
			}
			b.put(resource, id, rec)
		}
	}
	return b
}

// NewDefault creates a backend seeded with the embedded demo data.
func NewDefault() *Backend {
	return New(DefaultSeed())
}

func (b *Backend) put(resource, id string, rec map[string]any) {
	coll, ok := b.records[resource]
	if !ok {
		coll = make(map[string]map[string]any)
		b.records[resource] = coll
	}
	stored := copyRecord(rec)
	stored["id"] = id
	coll[id] = stored
}

func matches(label, query string) bool {
	query = strings.TrimSpace(strings.ToLower(query))
	return query == "" || strings.Contains(strings.ToLower(label), query)
}

func search[T domain.Entity](all []T, query string) []T {
	out := make([]T, 0, len(all))
	for _, e := range all {
		if matches(e.Label(), query) {
			out = append(out, e)
		}
	}
	return out
}

// SearchCustomers matches query against name and phone.
func (b *Backend) SearchCustomers(_ context.Context, query string) ([]domain.Customer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return search(b.seed.Customers, query), nil
}

// SearchVehicles matches query against make, model, year and plate.
func (b *Backend) SearchVehicles(_ context.Context, query string) ([]domain.Vehicle, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return search(b.seed.Vehicles, query), nil
}

// SearchInspectors matches query against the inspector name.
func (b *Backend) SearchInspectors(_ context.Context, query string) ([]domain.Inspector, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return search(b.seed.Inspectors, query), nil
}

func (b *Backend) Colors(context.Context) ([]domain.Option, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.Option{}, b.seed.Colors...), nil
}

func (b *Backend) Makes(context.Context) ([]domain.Option, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.Option{}, b.seed.Makes...), nil
}

func (b *Backend) Models(_ context.Context, makeID string) ([]domain.Option, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.Option{}, b.seed.Models[makeID]...), nil
}

// Fetch returns a copy of the stored record.
func (b *Backend) Fetch(_ context.Context, resource, id string) (map[string]any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.records[resource][id]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", resource, id, domain.ErrEntityNotFound)
	}
	return copyRecord(rec), nil
}

// Create stores payload under a new identifier.
func (b *Backend) Create(_ context.Context, resource string, payload domain.Payload) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.put(resource, id, payload)
	return id, nil
}

// Update replaces the record identified by id.
func (b *Backend) Update(_ context.Context, resource, id string, payload domain.Payload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.records[resource][id]; !ok {
		return fmt.Errorf("%s %q: %w", resource, id, domain.ErrEntityNotFound)
	}
	b.put(resource, id, payload)
	return nil
}

// IDs lists the identifiers stored in resource, sorted.
func (b *Backend) IDs(resource string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.records[resource]))
	for id := range b.records[resource] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// copyRecord deep-copies nested maps so callers cannot mutate stored state.
func copyRecord[M ~map[string]any](rec M) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if nested, ok := v.(map[string]any); ok {
			out[k] = copyRecord(nested)
			continue
		}
		out[k] = v
	}
	return out
}
