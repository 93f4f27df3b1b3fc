package resolver

import (
	"fmt"
	"sync"

	"github.com/aretw0/rentdesk/pkg/domain"
)

// OptionSource is a fetched option list. Root sources have no Parent;
// cascading sources are refetched when Parent changes and own Child.
type OptionSource struct {
	Key    string
	Parent string
	Child  string
	Fetch  OptionsFunc
}

// Reconcile clears the child value when it is not among opts and returns
// the changed keys.
func (s *OptionSource) Reconcile(fs domain.FieldSet, opts []domain.Option) []string {
	if s.Child == "" || fs.IsEmpty(s.Child) {
		return nil
	}
	current := fs.String(s.Child)
	for _, o := range opts {
		if o.ID == current {
			return nil
		}
	}
	return write(fs, domain.FieldSet{s.Child: ""})
}

// Ticket identifies one issued request.
type Ticket struct {
	Trigger string
	Token   uint64
	// Value is the trigger value the request was issued for.
	Value string
}

// Tracker hands out monotonically increasing tokens per trigger. Only the
// result of the most recent ticket of a trigger may be applied.
type Tracker struct {
	mu     sync.Mutex
	tokens map[string]uint64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{tokens: make(map[string]uint64)}
}

// Issue supersedes every earlier ticket of trigger.
func (t *Tracker) Issue(trigger, value string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens[trigger]++
	return Ticket{Trigger: trigger, Token: t.tokens[trigger], Value: value}
}

// Invalidate supersedes every in-flight ticket of trigger without issuing a
// new one.
func (t *Tracker) Invalidate(trigger string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens[trigger]++
}

// Current reports whether tk is the latest ticket of its trigger.
func (t *Tracker) Current(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokens[tk.Trigger] == tk.Token
}

// Check returns ErrSuperseded when tk is no longer current or the trigger
// value moved away from the one the request was issued for.
func (t *Tracker) Check(tk Ticket, currentValue string) error {
	if !t.Current(tk) {
		return fmt.Errorf("%s token %d: %w", tk.Trigger, tk.Token, domain.ErrSuperseded)
	}
	if tk.Value != currentValue {
		return fmt.Errorf("%s value %q != %q: %w", tk.Trigger, tk.Value, currentValue, domain.ErrSuperseded)
	}
	return nil
}
