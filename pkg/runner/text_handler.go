package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/rentdesk/internal/presentation/view"
	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ContentRenderer turns markdown into terminal output.
type ContentRenderer func(string) (string, error)

// TextHandler drives an interactive terminal.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	out         *termenv.Output
	interactive bool

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption configures a TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer sets the markdown renderer used for the review step.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for r and w. Nil values default to the
// process standard streams. Colour is enabled only when w is a terminal.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader:      bufio.NewReader(r),
		Writer:      w,
		interactive: isTerminal(w),
	}
	profile := termenv.Ascii
	if h.interactive {
		profile = termenv.EnvColorProfile()
	}
	h.out = termenv.NewOutput(w, termenv.WithProfile(profile))
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines so Input can honour context cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			time.Sleep(50 * time.Millisecond)
		}
	}
}

func (h *TextHandler) style(s, color string) string {
	return h.out.String(s).Foreground(h.out.Color(color)).String()
}

func (h *TextHandler) Output(_ context.Context, v view.View) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s  ", h.out.String(v.Wizard).Bold())
	for _, ind := range v.Steps {
		label := fmt.Sprintf("%d %s", ind.Index, ind.DisplayName)
		switch ind.Status {
		case domain.StepCurrent:
			label = h.out.String("[" + label + "]").Bold().Underline().String()
		case domain.StepCompleted:
			label = h.style("✓ "+label, "#22c55e")
		default:
			label = h.style(label, "#6b7280")
		}
		b.WriteString(label + "  ")
	}
	b.WriteString("\n\n")

	if v.Step.Last {
		md := reviewMarkdown(v)
		if h.Renderer != nil {
			if rendered, err := h.Renderer(md); err == nil {
				md = rendered
			}
		}
		b.WriteString(strings.TrimSpace(md) + "\n\n")
	}

	for _, f := range v.Fields {
		value := domain.Text(f.Value)
		if value == "" {
			value = h.style("-", "#6b7280")
		}
		line := fmt.Sprintf("  %-24s %s", f.Label, value)
		if f.ReadOnly {
			line = h.style(line, "#9ca3af")
		}
		b.WriteString(line)
		if f.Kind != domain.KindReadOnly {
			b.WriteString(h.style("  ("+f.Key+")", "#6b7280"))
		}
		b.WriteString("\n")
		if hint := optionHint(f); hint != "" {
			b.WriteString(h.style("      "+hint, "#6b7280") + "\n")
		}
		if f.Error != "" {
			b.WriteString(h.style("      ! "+f.Error, "#ef4444") + "\n")
		}
	}

	if v.Status == domain.StatusClosed {
		msg := "Saved."
		if v.EntityID != "" {
			msg = fmt.Sprintf("Saved as %s.", v.EntityID)
		}
		b.WriteString("\n" + h.style(msg, "#22c55e") + "\n")
	}

	_, err := io.WriteString(h.Writer, b.String())
	return err
}

func optionHint(f view.Field) string {
	switch {
	case len(f.Choices) > 0:
		return "one of: " + strings.Join(f.Choices, ", ")
	case len(f.Options) > 0:
		ids := make([]string, 0, len(f.Options))
		for _, o := range f.Options {
			ids = append(ids, o.ID)
		}
		return "one of: " + strings.Join(ids, ", ")
	case f.Kind == domain.KindPicker:
		return ":search " + f.Key + " <query>, then :pick " + f.Key + " <n>"
	case f.Kind == domain.KindDate:
		return "YYYY-MM-DD"
	}
	return ""
}

// reviewMarkdown summarises every non-empty value of the wizard.
func reviewMarkdown(v view.View) string {
	values := v.Values()
	keys := make([]string, 0, len(values))
	for k := range values {
		if !values.IsEmpty(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("## Review\n\n| Field | Value |\n| --- | --- |\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "| %s | %s |\n", k, strings.ReplaceAll(domain.Text(values[k]), "|", "\\|"))
	}
	return b.String()
}

func (h *TextHandler) Results(_ context.Context, field string, found []domain.Entity) error {
	if len(found) == 0 {
		_, err := fmt.Fprintf(h.Writer, "No matches for %s.\n", field)
		return err
	}
	var b strings.Builder
	for i, e := range found {
		fmt.Fprintf(&b, "  %2d. %s %s\n", i+1, e.Label(), h.style("("+e.EntityID()+")", "#6b7280"))
	}
	_, err := io.WriteString(h.Writer, b.String())
	return err
}

func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			fmt.Fprint(h.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

func (h *TextHandler) SystemOutput(_ context.Context, msg string) error {
	_, err := fmt.Fprintln(h.Writer, h.style(msg, "#f59e0b"))
	return err
}
