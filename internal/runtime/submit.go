package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/rentdesk/internal/logging"
	"github.com/aretw0/rentdesk/pkg/domain"
)

// Submit runs the aggregate guard, transforms the FieldSet and sends it to
// the record service: Create in create mode, Update of the entity in edit
// mode.
//
// Only one submission may be in flight. A concurrent Submit returns
// ErrSubmitInFlight without reaching the service. When the guard fails the
// session jumps to the first failing step. When the service fails the
// session returns to editing the last step with its FieldSet intact and the
// error is a *domain.SubmissionError. On success the session closes and the
// refresh callback runs once.
func (s *Session) Submit(ctx context.Context) error {
	payload, mode, entityID, err := s.beginSubmit()
	if err != nil {
		return err
	}

	start := s.clock()
	s.logger.Debug("submitting", "mode", mode, "entity_id", entityID, logging.Attr("payload", payload))

	var serr error
	switch mode {
	case domain.ModeEdit:
		serr = s.records.Update(ctx, s.def.Resource, entityID, payload)
	default:
		entityID, serr = s.records.Create(ctx, s.def.Resource, payload)
	}
	elapsed := s.clock().Sub(start)

	if serr != nil {
		return s.failSubmit(mode, entityID, elapsed, serr)
	}
	s.finishSubmit(ctx, mode, entityID, elapsed)
	return nil
}

// beginSubmit moves the session to Submitting and builds the payload.
func (s *Session) beginSubmit() (domain.Payload, domain.Mode, string, error) {
	var after []func()
	defer func() { run(after) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable(); err != nil {
		return nil, "", "", err
	}
	last := len(s.def.Steps) - 1
	if s.step != last {
		return nil, "", "", domain.ErrNotLastStep
	}

	guard := s.def.Guard()
	now := s.now()
	if errs := guard.Validate(s.fields, now); len(errs) > 0 {
		idx := guard.FirstFailing(s.fields, now)
		if idx < 0 {
			idx = last
		}
		stepErrs := s.def.Steps[idx].Validator.Validate(s.fields, now)
		if len(stepErrs) == 0 {
			stepErrs = errs
		}
		s.failStep(idx, stepErrs)
		for k := range s.completed {
			if k >= idx {
				delete(s.completed, k)
			}
		}
		from := s.step
		s.step = idx
		s.logger.Debug("submit blocked", "step", s.def.Steps[idx].ID, "fields", errs.Keys())
		after = append(after, s.stepEvent(s.hooks.OnValidationFailed, domain.EventValidationFailed, idx, "submit", stepErrs))
		if from != idx {
			after = append(after,
				s.stepEvent(s.hooks.OnStepLeave, domain.EventStepLeave, from, "jump", nil),
				s.stepEvent(s.hooks.OnStepEnter, domain.EventStepEnter, idx, "jump", nil))
		}
		return nil, "", "", &domain.StepValidationError{StepID: s.def.Steps[idx].ID, Index: idx, Fields: stepErrs}
	}

	s.completed[last] = true
	s.status = domain.StatusSubmitting
	return s.def.Transform(s.fields.Clone()), s.mode, s.entityID, nil
}

func (s *Session) failSubmit(mode domain.Mode, entityID string, elapsed time.Duration, cause error) error {
	var after []func()
	defer func() { run(after) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusSubmitting {
		s.status = domain.StatusEditing
	}
	s.logger.Warn("submission failed", "mode", mode, "entity_id", entityID, "error", cause)
	after = append(after, s.submitEvent(mode, entityID, elapsed, cause))
	return &domain.SubmissionError{Message: submissionMessage(cause), Cause: cause}
}

func (s *Session) finishSubmit(ctx context.Context, mode domain.Mode, entityID string, elapsed time.Duration) {
	var after []func()
	s.mu.Lock()
	s.status = domain.StatusClosed
	s.entityID = entityID
	s.cancel()
	s.logger.Info("submitted", "mode", mode, "entity_id", entityID, "duration", elapsed)
	after = append(after, s.submitEvent(mode, entityID, elapsed, nil))
	refresh := s.refresh
	s.mu.Unlock()

	if refresh != nil {
		refresh(ctx, s.def.Resource, entityID)
	}
	run(after)
}

func (s *Session) submitEvent(mode domain.Mode, entityID string, elapsed time.Duration, err error) func() {
	hook := s.hooks.OnSubmit
	if hook == nil {
		return nil
	}
	ev := &domain.SubmitEvent{
		EventBase: s.base(domain.EventSubmit),
		Mode:      mode,
		EntityID:  entityID,
		Duration:  elapsed,
	}
	if err != nil {
		ev.Err = err.Error()
	}
	return func() { hook(context.WithoutCancel(s.ctx), ev) }
}

// submissionMessage extracts the human-readable part of a service failure.
func submissionMessage(err error) string {
	var svc *domain.ServiceError
	if errors.As(err, &svc) && svc.Message != "" {
		return svc.Message
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("request aborted: %v", err)
	}
	return err.Error()
}
