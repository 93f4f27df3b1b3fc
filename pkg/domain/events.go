package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter        EventType = "step_enter"
	EventStepLeave        EventType = "step_leave"
	EventValidationFailed EventType = "validation_failed"
	EventFieldChanged     EventType = "field_changed"
	EventFetch            EventType = "fetch"
	EventSubmit           EventType = "submit"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Wizard    string    `json:"wizard"`
}

// StepEvent represents entering, leaving or failing a step.
type StepEvent struct {
	EventBase
	StepID    StepID      `json:"step_id"`
	Index     int         `json:"index"`
	Direction string      `json:"direction,omitempty"` // next, back, jump
	Errors    FieldErrors `json:"errors,omitempty"`
}

// FieldEvent represents a user write and the keys the resolver touched.
type FieldEvent struct {
	EventBase
	Field    string   `json:"field"`
	Affected []string `json:"affected,omitempty"`
}

// FetchOutcome classifies the fate of an asynchronous fetch.
type FetchOutcome string

const (
	FetchApplied FetchOutcome = "applied"
	FetchStale   FetchOutcome = "stale"
	FetchError   FetchOutcome = "error"
)

// FetchEvent represents the arrival of an option or search result.
type FetchEvent struct {
	EventBase
	Trigger string       `json:"trigger"`
	Outcome FetchOutcome `json:"outcome"`
	Err     string       `json:"error,omitempty"`
}

// SubmitEvent represents the end of a submission attempt.
type SubmitEvent struct {
	EventBase
	Mode     Mode          `json:"mode"`
	EntityID string        `json:"entity_id,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepEnter        func(context.Context, *StepEvent)
	OnStepLeave        func(context.Context, *StepEvent)
	OnValidationFailed func(context.Context, *StepEvent)
	OnFieldChanged     func(context.Context, *FieldEvent)
	OnFetch            func(context.Context, *FetchEvent)
	OnSubmit           func(context.Context, *SubmitEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepEnter:        chain(h.OnStepEnter, other.OnStepEnter),
		OnStepLeave:        chain(h.OnStepLeave, other.OnStepLeave),
		OnValidationFailed: chain(h.OnValidationFailed, other.OnValidationFailed),
		OnFieldChanged:     chain(h.OnFieldChanged, other.OnFieldChanged),
		OnFetch:            chain(h.OnFetch, other.OnFetch),
		OnSubmit:           chain(h.OnSubmit, other.OnSubmit),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
