package rentdesk

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/rentdesk/internal/logging"
	"github.com/aretw0/rentdesk/internal/runtime"
	"github.com/aretw0/rentdesk/pkg/contract"
	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/ports"
	"github.com/aretw0/rentdesk/pkg/vehicle"
	"github.com/aretw0/rentdesk/pkg/wizard"
)

// Version is the release of the library and binary, set with -ldflags at
// build time.
var Version = "0.1.0-dev"

// Session is an open wizard. See the runtime package for its state machine.
type Session = runtime.Session

// Engine is the high-level entry point of the library. It owns the wizard
// definitions and opens sessions against a backend.
type Engine struct {
	backend ports.Backend
	catalog ports.Catalog
	defs    map[string]*wizard.Definition
	extra   []*wizard.Definition

	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	clock   func() time.Time
	loc     *time.Location
	refresh ports.RefreshFunc
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks on every session.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock replaces time.Now in every session.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLocation sets the zone used for "today" (default time.Local).
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		e.loc = loc
	}
}

// WithRefresh sets the list-refresh callback fired after a submission.
func WithRefresh(fn ports.RefreshFunc) Option {
	return func(e *Engine) {
		e.refresh = fn
	}
}

// WithCatalog serves option lists from c instead of the backend, typically
// a cache in front of it.
func WithCatalog(c ports.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithDefinition registers an additional wizard.
func WithDefinition(def *wizard.Definition) Option {
	return func(e *Engine) {
		e.extra = append(e.extra, def)
	}
}

// New builds an engine serving the contract and vehicle wizards on backend.
// Every definition is checked for integrity.
func New(backend ports.Backend, opts ...Option) (*Engine, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	e := &Engine{
		backend: backend,
		catalog: backend,
		defs:    make(map[string]*wizard.Definition),
		logger:  logging.NewNop(),
		clock:   time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}

	defs := append([]*wizard.Definition{contract.New(backend), vehicle.New(e.catalog)}, e.extra...)
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := e.defs[def.Name]; dup {
			return nil, fmt.Errorf("wizard %q registered twice", def.Name)
		}
		e.defs[def.Name] = def
	}
	return e, nil
}

// Wizards lists the registered wizard names, sorted.
func (e *Engine) Wizards() []string {
	names := make([]string, 0, len(e.defs))
	for name := range e.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the named wizard.
func (e *Engine) Definition(name string) (*wizard.Definition, error) {
	def, ok := e.defs[name]
	if !ok {
		return nil, fmt.Errorf("wizard %q: %w", name, domain.ErrUnknownWizard)
	}
	return def, nil
}

// Open starts a session of the named wizard. An empty entityID creates a
// new record; otherwise the record is fetched and edited.
func (e *Engine) Open(ctx context.Context, name, entityID string, opts ...runtime.Option) (*Session, error) {
	def, err := e.Definition(name)
	if err != nil {
		return nil, err
	}
	base := []runtime.Option{
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithClock(e.clock),
		runtime.WithLocation(e.loc),
		runtime.WithRefresh(e.refresh),
	}
	s := runtime.NewSession(def, e.backend, append(base, opts...)...)
	if err := s.Open(ctx, entityID); err != nil {
		_ = s.Close()
		return nil, err
	}
	e.logger.Info("session opened", "session_id", s.ID(), "wizard", name, "entity_id", entityID)
	return s, nil
}
