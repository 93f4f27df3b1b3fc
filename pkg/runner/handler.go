package runner

import (
	"context"

	"github.com/aretw0/rentdesk/internal/presentation/view"
	"github.com/aretw0/rentdesk/pkg/domain"
)

// IOHandler is the strategy for talking to the operator.
// TextHandler drives a terminal; JSONHandler speaks JSON Lines for scripts.
type IOHandler interface {
	// Output presents the current step.
	Output(ctx context.Context, v view.View) error

	// Results presents the entities found by a picker search.
	Results(ctx context.Context, field string, found []domain.Entity) error

	// Input reads the next command line.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (errors, help, confirmations).
	SystemOutput(ctx context.Context, msg string) error
}
