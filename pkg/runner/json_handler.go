package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/rentdesk/internal/presentation/view"
	"github.com/aretw0/rentdesk/pkg/domain"
)

// Message is one JSON line written by JSONHandler.
type Message struct {
	Type    string       `json:"type"` // view, results, system
	View    *view.View   `json:"view,omitempty"`
	Field   string       `json:"field,omitempty"`
	Results []resultItem `json:"results,omitempty"`
	Text    string       `json:"text,omitempty"`
}

type resultItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// JSONHandler speaks JSON Lines: one Message per output line and one
// command per input line. Input lines may be bare commands or JSON strings.
type JSONHandler struct {
	Reader *bufio.Reader
	Writer io.Writer

	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		enc:    json.NewEncoder(w),
	}
}

func (h *JSONHandler) emit(m Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enc.Encode(m)
}

func (h *JSONHandler) Output(_ context.Context, v view.View) error {
	return h.emit(Message{Type: "view", View: &v})
}

func (h *JSONHandler) Results(_ context.Context, field string, found []domain.Entity) error {
	items := make([]resultItem, 0, len(found))
	for _, e := range found {
		items = append(items, resultItem{ID: e.EntityID(), Label: e.Label()})
	}
	return h.emit(Message{Type: "results", Field: field, Results: items})
}

func (h *JSONHandler) Input(_ context.Context) (string, error) {
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	if json.Unmarshal([]byte(text), &val) == nil {
		text = val
	}
	return SanitizeInput(text)
}

func (h *JSONHandler) SystemOutput(_ context.Context, msg string) error {
	return h.emit(Message{Type: "system", Text: msg})
}
