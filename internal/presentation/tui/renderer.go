package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a markdown renderer for the terminal, styled for the
// detected background. If glamour cannot be initialised, markdown is passed
// through unchanged.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}
