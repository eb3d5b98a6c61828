package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour,
// word-wrapped to the terminal width. When stdout is not a terminal the
// text passes through untouched, keeping piped output clean.
func NewRenderer() func(string) (string, error) {
	passthrough := func(markdown string) (string, error) {
		return markdown, nil
	}

	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return passthrough
	}

	width := 100
	if w, _, err := term.GetSize(fd); err == nil && w > 0 && w < width {
		width = w
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Detect light/dark background
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return passthrough
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
