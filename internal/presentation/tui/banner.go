package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the rentdesk banner to w, coloured when w supports it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{"                 _      _           _    ", "#0ea5e9"},
		{"  _ __ ___ _ __ | |_ __| | ___  ___| | __", "#06b6d4"},
		{" | '__/ _ \\ '_ \\| __/ _` |/ _ \\/ __| |/ /", "#14b8a6"},
		{" | | |  __/ | | | || (_| |  __/\\__ \\   < ", "#10b981"},
		{" |_|  \\___|_| |_|\\__\\__,_|\\___||___/_|\\_\\", "#22c55e"},
	}
	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
