package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/rentdesk/internal/logging"
	"github.com/aretw0/rentdesk/internal/presentation/view"
	"github.com/aretw0/rentdesk/internal/runtime"
	"github.com/aretw0/rentdesk/pkg/domain"
)

var (
	// ErrAbandoned is returned when the operator quits or input ends before
	// the wizard is submitted.
	ErrAbandoned = errors.New("wizard abandoned")
	// ErrInterrupted is returned when a signal stops the prompt loop.
	ErrInterrupted = errors.New("interrupted")
)

// Runner drives one wizard session from a prompt.
type Runner struct {
	Handler IOHandler
	Logger  *slog.Logger

	signals bool
	// results keeps the latest search per picker field for :pick.
	results map[string][]domain.Entity
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		Logger:  logging.NewNop(),
		results: make(map[string][]domain.Entity),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r
}

// Run loops until sess is submitted, abandoned or ctx ends. The session is
// closed on every exit path other than a successful submit.
func (r *Runner) Run(ctx context.Context, sess *runtime.Session) error {
	var signals *SignalManager
	if r.signals {
		signals = NewSignalManager(ctx)
		defer signals.Stop()
		ctx = signals.Context()
	}

	show := true
	for {
		if show {
			sess.WaitIdle()
			v := view.Build(sess, nil)
			if err := r.Handler.Output(ctx, v); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
			if v.Status == domain.StatusClosed {
				return nil
			}
		}

		line, err := r.Handler.Input(ctx)
		if err != nil {
			if signals != nil {
				signals.CheckRace()
			}
			_ = sess.Close()
			if ctx.Err() != nil {
				r.Logger.Debug("prompt cancelled", "session_id", sess.ID(), "err", ctx.Err())
				return ErrInterrupted
			}
			if errors.Is(err, io.EOF) {
				return ErrAbandoned
			}
			return fmt.Errorf("input error: %w", err)
		}

		cmd, err := ParseCommand(line)
		if errors.Is(err, ErrEmptyCommand) {
			show = false
			continue
		}
		if err != nil {
			_ = r.Handler.SystemOutput(ctx, err.Error())
			show = false
			continue
		}

		show, err = r.apply(ctx, sess, cmd)
		if errors.Is(err, ErrAbandoned) {
			return err
		}
		if err != nil {
			r.report(ctx, err)
		}
	}
}

// apply runs cmd and reports whether the step should be shown again.
func (r *Runner) apply(ctx context.Context, sess *runtime.Session, cmd Command) (bool, error) {
	r.Logger.Debug("command", "session_id", sess.ID(), "kind", cmd.Kind, "field", cmd.Field)

	switch cmd.Kind {
	case CmdSet:
		spec := sess.Definition().Spec(cmd.Field)
		return true, sess.SetField(ctx, cmd.Field, coerce(spec, cmd.Value))
	case CmdSearch:
		found, err := sess.Search(ctx, cmd.Field, cmd.Value)
		if err != nil {
			return false, err
		}
		r.results[cmd.Field] = found
		return false, r.Handler.Results(ctx, cmd.Field, found)
	case CmdPick:
		found := r.results[cmd.Field]
		if cmd.Index > len(found) {
			return false, fmt.Errorf("no result %d for %s (run :search first)", cmd.Index, cmd.Field)
		}
		return true, sess.Select(ctx, cmd.Field, found[cmd.Index-1].EntityID())
	case CmdNext:
		return true, sess.Next(ctx)
	case CmdBack:
		return true, sess.Back()
	case CmdJump:
		return true, sess.JumpTo(cmd.Index)
	case CmdSubmit:
		return true, sess.Submit(ctx)
	case CmdView:
		return true, nil
	case CmdHelp:
		return false, r.Handler.SystemOutput(ctx, Help)
	case CmdQuit:
		_ = sess.Close()
		return false, ErrAbandoned
	}
	return false, fmt.Errorf("unsupported command %q", cmd.Kind)
}

func (r *Runner) report(ctx context.Context, err error) {
	var stepErr *domain.StepValidationError
	var submitErr *domain.SubmissionError
	msg := "Error: " + err.Error()
	switch {
	case errors.As(err, &stepErr):
		msg = fmt.Sprintf("Step %q has %d invalid field(s).", stepErr.StepID, len(stepErr.Fields))
	case errors.As(err, &submitErr):
		msg = "Not saved: " + submitErr.Message
	}
	if outErr := r.Handler.SystemOutput(ctx, msg); outErr != nil {
		r.Logger.Warn("could not write message", "err", outErr)
	}
}

// coerce converts prompt text to the value type the field expects. Numbers
// and dates stay textual; the rules parse them.
func coerce(spec domain.FieldSpec, text string) any {
	if text == "" {
		return nil
	}
	if spec.Kind == domain.KindBool {
		return domain.FieldSet{spec.Key: text}.Bool(spec.Key)
	}
	return text
}
