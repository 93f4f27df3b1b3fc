package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/resolver"
)

// fetchOptions issues a fetch for src and applies the result when it
// arrives, unless a newer request or a close got there first. Caller holds
// the lock.
func (s *Session) fetchOptions(src *resolver.OptionSource, parent string) {
	tk := s.tracker.Issue(src.Key, parent)
	ctx := s.ctx

	s.begin()
	go func() {
		defer s.finish()
		opts, err := src.Fetch(ctx, parent)
		s.applyOptions(src, tk, opts, err)
	}()
}

func (s *Session) applyOptions(src *resolver.OptionSource, tk resolver.Ticket, opts []domain.Option, err error) {
	var after []func()
	defer func() { run(after) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	// A resolved fetch racing a closed session is a no-op.
	if s.ctx.Err() != nil || s.status == domain.StatusClosed {
		return
	}

	current := ""
	if src.Parent != "" {
		current = s.fields.String(src.Parent)
	}
	if stale := s.tracker.Check(tk, current); stale != nil {
		s.logger.Debug("discarding stale options", "trigger", src.Key, "reason", stale)
		after = append(after, s.fetchEvent(src.Key, domain.FetchStale, nil))
		return
	}

	if err != nil {
		s.logger.Warn("option fetch failed", "trigger", src.Key, "parent", tk.Value, "error", err)
		s.options[src.Key] = []domain.Option{}
		after = append(after, s.fetchEvent(src.Key, domain.FetchError, err))
		return
	}

	if opts == nil {
		opts = []domain.Option{}
	}
	s.options[src.Key] = opts
	after = append(after, s.fetchEvent(src.Key, domain.FetchApplied, nil))

	if s.status != domain.StatusEditing {
		return
	}
	changed := src.Reconcile(s.fields, opts)
	affected := s.settle(changed)
	if src.Child != "" {
		s.revalidate(src.Child)
		if len(affected) > 0 {
			after = append(after, s.fieldEvent(src.Child, affected))
		}
	}
}

// revalidate refreshes the error of a touched field against the validator
// of its step. Caller holds the lock.
func (s *Session) revalidate(key string) {
	if !s.touched[key] {
		return
	}
	idx, ok := s.def.Owner(key)
	if !ok {
		return
	}
	errs := s.def.Steps[idx].Validator.Validate(s.fields, s.now())
	if msg, failed := errs[key]; failed {
		s.errors[key] = msg
	} else {
		delete(s.errors, key)
	}
}

// Search runs the entity search of a picker field. Only the latest search
// of a field stores its results; an older one that resolves later returns
// ErrSuperseded. A failing service degrades to an empty result.
func (s *Session) Search(ctx context.Context, field, query string) ([]domain.Entity, error) {
	s.mu.Lock()
	if s.status == domain.StatusClosed {
		s.mu.Unlock()
		return nil, domain.ErrSessionClosed
	}
	if s.def.Resolvers == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("no picker for field %q: %w", field, domain.ErrUnknownField)
	}
	picker, err := s.def.Resolvers.PickerFor(field)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	tk := s.tracker.Issue(searchTrigger(field), query)
	s.begin()
	s.mu.Unlock()
	defer s.finish()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	found, ferr := picker.Search(ctx, query)

	var after []func()
	defer func() { run(after) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return nil, domain.ErrSessionClosed
	}
	if !s.tracker.Current(tk) {
		s.logger.Debug("discarding stale search", "trigger", field, "query", query)
		after = append(after, s.fetchEvent(field, domain.FetchStale, nil))
		return nil, fmt.Errorf("search %s %q: %w", field, query, domain.ErrSuperseded)
	}
	if ferr != nil {
		s.logger.Warn("search failed", "trigger", field, "error", ferr)
		s.results[field] = []domain.Entity{}
		after = append(after, s.fetchEvent(field, domain.FetchError, ferr))
		return []domain.Entity{}, nil
	}

	s.results[field] = append([]domain.Entity(nil), found...)
	after = append(after, s.fetchEvent(field, domain.FetchApplied, nil))
	return append([]domain.Entity(nil), found...), nil
}

// Options returns the current option list of key. A list still loading
// reads as absent.
func (s *Session) Options(key string) ([]domain.Option, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts, ok := s.options[key]
	return append([]domain.Option(nil), opts...), ok
}

func searchTrigger(field string) string {
	return "search:" + field
}

func (s *Session) fetchEvent(trigger string, outcome domain.FetchOutcome, err error) func() {
	hook := s.hooks.OnFetch
	if hook == nil {
		return nil
	}
	ev := &domain.FetchEvent{EventBase: s.base(domain.EventFetch), Trigger: trigger, Outcome: outcome}
	if err != nil {
		ev.Err = err.Error()
	}
	ctx := s.ctx
	return func() { hook(ctx, ev) }
}
