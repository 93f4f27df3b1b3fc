package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/rentdesk/internal/logging"
	"github.com/aretw0/rentdesk/internal/runtime"
	"github.com/aretw0/rentdesk/pkg/domain"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

type entry struct {
	session  *runtime.Session
	lastSeen time.Time
}

// Manager tracks live sessions by ID. Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	locks    map[string]*lockEntry

	idleTTL time.Duration
	clock   func() time.Time
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithIdleTTL closes sessions untouched for longer than ttl on Sweep.
// Zero disables idle expiry.
func WithIdleTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.idleTTL = ttl
	}
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*entry),
		locks:    make(map[string]*lockEntry),
		clock:    time.Now,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add registers an opened session.
func (m *Manager) Add(s *runtime.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = &entry{session: s, lastSeen: m.clock()}
}

// Get returns the session and marks it as seen.
func (m *Manager) Get(id string) (*runtime.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrSessionNotFound)
	}
	e.lastSeen = m.clock()
	return e.session, nil
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[id]
	if !ok {
		l = &lockEntry{}
		m.locks[id] = l
	}
	l.refs++
	return l
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[id]
	if !ok {
		return
	}
	l.refs--
	if l.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock runs fn with the session while holding its shell lock, so that
// an operation and the view rendered after it are not interleaved with
// another request on the same session.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context, *runtime.Session) error) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}

	l := m.acquire(id)
	l.mu.Lock()
	defer func() {
		l.mu.Unlock()
		m.release(id)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, s)
}

// Remove closes the session and forgets it.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %q: %w", id, domain.ErrSessionNotFound)
	}
	return e.session.Close()
}

// List returns the IDs of the tracked sessions, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sweep forgets closed sessions and closes idle ones. It returns how many
// sessions were dropped.
func (m *Manager) Sweep() int {
	now := m.clock()
	var idle []*runtime.Session

	m.mu.Lock()
	dropped := 0
	for id, e := range m.sessions {
		switch {
		case isDone(e.session):
			delete(m.sessions, id)
			dropped++
		case m.idleTTL > 0 && now.Sub(e.lastSeen) > m.idleTTL:
			delete(m.sessions, id)
			idle = append(idle, e.session)
			dropped++
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		m.logger.Info("closing idle session", "session_id", s.ID())
		_ = s.Close()
	}
	return dropped
}

// Run sweeps every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("session sweep", "dropped", n)
			}
		}
	}
}

// Shutdown closes every tracked session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range all {
		_ = e.session.Close()
	}
}

func isDone(s *runtime.Session) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}
