package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aretw0/rentdesk/internal/presentation/view"
	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/runner"
)

// badRequest marks malformed client input detected by a handler.
type badRequest struct{ err error }

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

type errorResponse struct {
	Error  string             `json:"error"`
	Fields domain.FieldErrors `json:"fields,omitempty"`
	View   *view.View         `json:"view,omitempty"`
}

// StatusOf maps an engine error to its HTTP status code.
func StatusOf(err error) int {
	var (
		stepErr   *domain.StepValidationError
		submitErr *domain.SubmissionError
		badReq    *badRequest
	)
	switch {
	case errors.As(err, &stepErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &submitErr):
		return http.StatusBadGateway
	case errors.As(err, &badReq),
		errors.Is(err, domain.ErrUnknownField),
		errors.Is(err, runner.ErrInputTooLarge),
		errors.Is(err, runner.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrUnknownWizard),
		errors.Is(err, domain.ErrEntityNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSubmitInFlight),
		errors.Is(err, domain.ErrStepLocked),
		errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, domain.ErrNoPreviousStep),
		errors.Is(err, domain.ErrNotLastStep),
		errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error, v *view.View) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeError(w, status, err, v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error, v *view.View) {
	resp := errorResponse{Error: err.Error(), View: v}

	var stepErr *domain.StepValidationError
	var submitErr *domain.SubmissionError
	switch {
	case errors.As(err, &stepErr):
		resp.Fields = stepErr.Fields
	case errors.As(err, &submitErr):
		resp.Error = submitErr.Message
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("response encode failed", "err", err)
	}
}
