package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/rentdesk/pkg/domain"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Key    string // Field name
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %v)", e.Key, e.Reason, e.Value)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// FieldErrors flattens an AggregateError into a field -> message map.
func FieldErrors(err error) domain.FieldErrors {
	out := domain.FieldErrors{}
	for _, e := range ValidationErrors(err) {
		var ve *ValidationError
		if errors.As(e, &ve) {
			if _, exists := out[ve.Key]; !exists {
				out[ve.Key] = ve.Reason
			}
		}
	}
	return out
}

// toAggregate converts a FieldErrors map into an AggregateError ordered by key.
func toAggregate(fs domain.FieldSet, errs domain.FieldErrors) error {
	if len(errs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	aggr := &AggregateError{}
	for _, k := range keys {
		aggr.Errors = append(aggr.Errors, &ValidationError{Key: k, Reason: errs[k], Value: fs[k]})
	}
	return aggr
}

// ErrCustomValidation builds the error a Custom rule returns.
func ErrCustomValidation(reason string) error {
	return &ValidationError{Reason: reason}
}
