package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/rentdesk/internal/logging"
	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/ports"
	"github.com/aretw0/rentdesk/pkg/resolver"
	"github.com/aretw0/rentdesk/pkg/wizard"
	"github.com/google/uuid"
)

// Session is the wizard state machine of one open wizard. It owns the
// FieldSet exclusively; every read and write goes through its methods.
//
// States are Editing(step), Submitting and Closed. All methods are safe for
// concurrent use. Option and search fetches run in the background and never
// hold the lock while waiting on I/O.
type Session struct {
	mu sync.Mutex

	def     *wizard.Definition
	records ports.RecordService
	refresh ports.RefreshFunc
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	clock   func() time.Time
	loc     *time.Location

	id       string
	mode     domain.Mode
	entityID string

	status    domain.Status
	step      int
	fields    domain.FieldSet
	original  domain.FieldSet
	touched   map[string]bool
	edited    map[string]bool
	errors    domain.FieldErrors
	completed map[int]bool
	options   map[string][]domain.Option
	results   map[string][]domain.Entity

	tracker *resolver.Tracker
	ctx     context.Context
	cancel  context.CancelFunc

	// inflight counts background fetches and searches; idle is signalled
	// when it drops to zero. Both are guarded by mu.
	inflight int
	idle     *sync.Cond
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Session) {
		s.hooks = hooks
	}
}

// WithClock replaces time.Now. Validation always uses the clock at the
// moment of validation.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		s.clock = clock
	}
}

// WithLocation sets the zone used for "today" (default time.Local).
func WithLocation(loc *time.Location) Option {
	return func(s *Session) {
		s.loc = loc
	}
}

// WithRefresh sets the list-refresh callback invoked after a successful
// submission.
func WithRefresh(fn ports.RefreshFunc) Option {
	return func(s *Session) {
		s.refresh = fn
	}
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// NewSession creates an unopened session for def. Call Open before use.
func NewSession(def *wizard.Definition, records ports.RecordService, opts ...Option) *Session {
	s := &Session{
		def:       def,
		records:   records,
		logger:    logging.NewNop(),
		clock:     time.Now,
		loc:       time.Local,
		status:    domain.StatusClosed,
		touched:   make(map[string]bool),
		edited:    make(map[string]bool),
		errors:    domain.FieldErrors{},
		completed: make(map[int]bool),
		options:   make(map[string][]domain.Option),
		results:   make(map[string][]domain.Entity),
		tracker:   resolver.NewTracker(),
	}
	s.idle = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	s.logger = s.logger.With("session_id", s.id, "wizard", def.Name)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Open hydrates the FieldSet and starts loading option lists. An empty
// entityID opens a create session; otherwise the record is fetched and the
// session edits it.
func (s *Session) Open(ctx context.Context, entityID string) error {
	mode := domain.ModeCreate
	var raw map[string]any
	if entityID != "" {
		mode = domain.ModeEdit
		var err error
		raw, err = s.records.Fetch(ctx, s.def.Resource, entityID)
		if err != nil {
			return fmt.Errorf("fetch %s %s: %w", s.def.Resource, entityID, err)
		}
	}

	fields, err := s.def.Hydrate(mode, raw, s.now(), s.loc)
	if err != nil {
		return err
	}

	var after []func()
	defer func() { run(after) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return domain.ErrSessionClosed
	}

	s.mode = mode
	s.entityID = entityID
	s.fields = fields
	if mode == domain.ModeCreate && s.def.Resolvers != nil {
		s.def.Resolvers.SettleAll(s.fields, nil)
	}
	s.original = s.fields.Clone()
	s.status = domain.StatusEditing
	s.step = 0

	if s.def.Resolvers != nil {
		for _, src := range s.def.Resolvers.Roots() {
			s.fetchOptions(src, "")
		}
		for _, src := range s.def.Resolvers.Cascades() {
			if parent := s.fields.String(src.Parent); parent != "" {
				s.fetchOptions(src, parent)
			}
		}
	}

	s.logger.Debug("session opened", "mode", mode, "entity_id", entityID, logging.Attr("fields", s.fields))
	after = append(after, s.stepEvent(s.hooks.OnStepEnter, domain.EventStepEnter, 0, "open", nil))
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Definition returns the wizard definition.
func (s *Session) Definition() *wizard.Definition { return s.def }

// State returns a snapshot. Mutating it does not affect the session.
func (s *Session) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.State{
		SessionID: s.id,
		Wizard:    s.def.Name,
		Mode:      s.mode,
		EntityID:  s.entityID,
		StepIndex: s.step,
		Status:    s.status,
		Fields:    s.fields.Clone(),
		Touched:   copyBools(s.touched),
		Errors:    domain.FieldErrors{},
		Completed: make(map[int]bool, len(s.completed)),
		Options:   make(map[string][]domain.Option, len(s.options)),
		Results:   make(map[string][]domain.Entity, len(s.results)),
	}
	for k, v := range s.errors {
		st.Errors[k] = v
	}
	for k, v := range s.completed {
		st.Completed[k] = v
	}
	for k, v := range s.options {
		st.Options[k] = append([]domain.Option(nil), v...)
	}
	for k, v := range s.results {
		st.Results[k] = append([]domain.Entity(nil), v...)
	}
	if delta := domain.Diff(s.original, s.fields); delta != nil {
		st.Dirty = delta.Keys()
	}
	return st
}

// Indicators returns the step indicator for the current position.
func (s *Session) Indicators() []domain.StepIndicator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def.Indicators(s.step, s.completed)
}

// Get returns the current value of key.
func (s *Session) Get(key string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.def.Owner(key); !ok {
		return nil, fmt.Errorf("%q: %w", key, domain.ErrUnknownField)
	}
	return s.fields[key], nil
}

// SetField writes one field and runs its side effects before returning:
// selection clusters, derived values and cascading option fetches. It does
// not validate. Writing a picker field selects among the latest search
// results (see Select).
func (s *Session) SetField(ctx context.Context, key string, value any) error {
	if s.selectable(key) {
		return s.Select(ctx, key, domain.Text(value))
	}

	var after []func()
	defer func() { run(after) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable(); err != nil {
		return err
	}
	if _, ok := s.def.Owner(key); !ok {
		return fmt.Errorf("%q: %w", key, domain.ErrUnknownField)
	}

	var changed []string
	if old, exists := s.fields[key]; !exists || !domain.SameValue(old, value) {
		s.fields[key] = value
		changed = append(changed, key)
	}
	s.touched[key] = true
	s.edited[key] = true
	delete(s.errors, key)

	affected := s.settle(changed)
	after = append(after, s.fieldEvent(key, affected))
	return nil
}

// Select sets a picker field to the entity with entityID from the latest
// search results and overwrites the dependent cluster. An empty entityID
// clears the selection and the cluster.
func (s *Session) Select(_ context.Context, field, entityID string) error {
	var after []func()
	defer func() { run(after) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable(); err != nil {
		return err
	}
	if s.def.Resolvers == nil {
		return fmt.Errorf("%q: %w", field, domain.ErrUnknownField)
	}
	exp, ok := s.def.Resolvers.Expansion(field)
	if !ok {
		return fmt.Errorf("%q is not a selection: %w", field, domain.ErrUnknownField)
	}

	var entity domain.Entity
	if entityID != "" {
		if s.fields.String(field) == entityID {
			s.touched[field] = true
			return nil
		}
		picker, err := s.def.Resolvers.PickerFor(field)
		if err != nil {
			return err
		}
		entity, err = picker.Find(s.results[field], entityID)
		if err != nil {
			return err
		}
	}

	// Apply leaves the FieldSet untouched on error.
	changed, err := exp.Apply(s.fields, entity)
	if err != nil {
		return err
	}
	if s.fields.String(field) != entityID {
		s.fields[field] = entityID
		changed = append(changed, field)
	}
	s.touched[field] = true
	s.edited[field] = true
	delete(s.errors, field)

	affected := s.settle(changed)
	after = append(after, s.fieldEvent(field, affected))
	return nil
}

// settle runs derivations and cascades for changed keys and returns every
// key written besides them. Cascade children cleared on the way are settled
// in turn. Caller holds the lock.
func (s *Session) settle(changed []string) []string {
	if s.def.Resolvers == nil || len(changed) == 0 {
		return changed
	}
	derived := s.def.Resolvers.Settle(s.fields, changed, s.isEdited)
	all := mergeKeys(changed, derived)

	var cleared []string
	for _, key := range all {
		for _, src := range s.def.Resolvers.CascadesOf(key) {
			cleared = append(cleared, s.invalidateOptions(src)...)
		}
	}
	if len(cleared) == 0 {
		return all
	}
	all = mergeKeys(all, s.settle(cleared))
	for _, key := range cleared {
		s.revalidate(key)
	}
	return all
}

// invalidateOptions drops the option set of src, clears its child and
// refetches the options for the new parent value. An empty parent does not
// fetch. Returns the cleared keys. Caller holds the lock.
func (s *Session) invalidateOptions(src *resolver.OptionSource) []string {
	delete(s.options, src.Key)

	var cleared []string
	if src.Child != "" && !s.fields.IsEmpty(src.Child) {
		s.fields[src.Child] = ""
		cleared = append(cleared, src.Child)
	}

	parent := s.fields.String(src.Parent)
	if parent == "" {
		s.tracker.Invalidate(src.Key)
		return cleared
	}
	s.fetchOptions(src, parent)
	return cleared
}

func (s *Session) isEdited(key string) bool { return s.edited[key] }

// selectable reports whether key is a picker field with a selection cluster.
func (s *Session) selectable(key string) bool {
	if s.def.Resolvers == nil {
		return false
	}
	if _, ok := s.def.Resolvers.Expansion(key); !ok {
		return false
	}
	_, err := s.def.Resolvers.PickerFor(key)
	return err == nil
}

// writable reports whether the FieldSet may change. Caller holds the lock.
func (s *Session) writable() error {
	switch s.status {
	case domain.StatusClosed:
		return domain.ErrSessionClosed
	case domain.StatusSubmitting:
		return domain.ErrSubmitInFlight
	}
	return nil
}

// Next validates the current step. On success it advances, or submits when
// the current step is the last one. On failure it stays, records the errors
// and marks every field of the step as touched.
func (s *Session) Next(ctx context.Context) error {
	s.mu.Lock()
	if err := s.writable(); err != nil {
		s.mu.Unlock()
		return err
	}
	last := s.step == len(s.def.Steps)-1
	after, err := s.advance()
	s.mu.Unlock()
	run(after)

	if err != nil || !last {
		return err
	}
	return s.Submit(ctx)
}

// advance runs the step validator. Caller holds the lock.
func (s *Session) advance() ([]func(), error) {
	idx := s.step
	step := s.def.Steps[idx]
	errs := step.Validator.Validate(s.fields, s.now())

	if len(errs) > 0 {
		s.failStep(idx, errs)
		s.logger.Debug("step blocked", "step", step.ID, "fields", errs.Keys())
		return []func(){s.stepEvent(s.hooks.OnValidationFailed, domain.EventValidationFailed, idx, "next", errs)},
			&domain.StepValidationError{StepID: step.ID, Index: idx, Fields: errs}
	}

	for _, k := range step.Fields {
		delete(s.errors, k)
	}
	s.completed[idx] = true
	if idx == len(s.def.Steps)-1 {
		return nil, nil
	}
	s.step = idx + 1
	return []func(){
		s.stepEvent(s.hooks.OnStepLeave, domain.EventStepLeave, idx, "next", nil),
		s.stepEvent(s.hooks.OnStepEnter, domain.EventStepEnter, s.step, "next", nil),
	}, nil
}

// failStep records errs and touches every field of step idx. Caller holds
// the lock.
func (s *Session) failStep(idx int, errs domain.FieldErrors) {
	for _, k := range s.def.Steps[idx].Fields {
		s.touched[k] = true
		delete(s.errors, k)
	}
	for k, msg := range errs {
		s.errors[k] = msg
		s.touched[k] = true
	}
}

// Back moves to the previous step without validating.
func (s *Session) Back() error {
	var after []func()
	defer func() { run(after) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable(); err != nil {
		return err
	}
	if s.step == 0 {
		return domain.ErrNoPreviousStep
	}
	from := s.step
	s.step--
	after = append(after,
		s.stepEvent(s.hooks.OnStepLeave, domain.EventStepLeave, from, "back", nil),
		s.stepEvent(s.hooks.OnStepEnter, domain.EventStepEnter, s.step, "back", nil))
	return nil
}

// JumpTo moves to index when it is not ahead of the current step or was
// completed before. It never validates.
func (s *Session) JumpTo(index int) error {
	var after []func()
	defer func() { run(after) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.def.Steps) {
		return fmt.Errorf("step index %d out of range [0, %d)", index, len(s.def.Steps))
	}
	if index > s.step && !s.completed[index] {
		return fmt.Errorf("step %q: %w", s.def.Steps[index].ID, domain.ErrStepLocked)
	}
	if index == s.step {
		return nil
	}
	from := s.step
	s.step = index
	after = append(after,
		s.stepEvent(s.hooks.OnStepLeave, domain.EventStepLeave, from, "jump", nil),
		s.stepEvent(s.hooks.OnStepEnter, domain.EventStepEnter, index, "jump", nil))
	return nil
}

// Validate runs the aggregate validator of every step against the current
// FieldSet without changing the session.
func (s *Session) Validate() domain.FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def.Guard().Validate(s.fields, s.now())
}

// Close abandons the session. In-flight fetches are cancelled and their
// results are dropped. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == domain.StatusClosed && s.ctx.Err() != nil {
		return nil
	}
	s.status = domain.StatusClosed
	s.cancel()
	s.logger.Debug("session closed")
	return nil
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// WaitIdle blocks until no background fetch or search is in flight,
// including those issued while it waits.
func (s *Session) WaitIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inflight > 0 {
		s.idle.Wait()
	}
}

// begin registers a background fetch. Caller holds the lock.
func (s *Session) begin() {
	s.inflight++
}

// finish ends a fetch registered with begin.
func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		s.idle.Broadcast()
	}
}

func (s *Session) now() time.Time {
	return s.clock().In(s.loc)
}

func (s *Session) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: s.clock(), Type: t, SessionID: s.id, Wizard: s.def.Name}
}

func (s *Session) stepEvent(hook func(context.Context, *domain.StepEvent), t domain.EventType, idx int, dir string, errs domain.FieldErrors) func() {
	if hook == nil {
		return nil
	}
	ev := &domain.StepEvent{EventBase: s.base(t), StepID: s.def.Steps[idx].ID, Index: idx, Direction: dir, Errors: errs}
	ctx := s.ctx
	return func() { hook(ctx, ev) }
}

func (s *Session) fieldEvent(field string, affected []string) func() {
	hook := s.hooks.OnFieldChanged
	if hook == nil {
		return nil
	}
	ev := &domain.FieldEvent{EventBase: s.base(domain.EventFieldChanged), Field: field, Affected: affected}
	ctx := s.ctx
	return func() { hook(ctx, ev) }
}

func run(fns []func()) {
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

func copyBools(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeKeys(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	for _, k := range a {
		set[k] = true
	}
	for _, k := range b {
		set[k] = true
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
