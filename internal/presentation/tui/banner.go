package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the switchback banner, colored with a subtle
// gradient when the profile supports it.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []string{
		`               _ __       __    __             __  `,
		`  ___ _    __ (_) /______/ /   / /  ___ ______/ /__`,
		` (_-<| |/|/ / / / __/ __/ _ \ / _ \/ _ '/ __/ '_/ /`,
		`/___/|__,__/_/_/\__/\__/_//_//_.__/\_,_/\__/_/\_\_/`,
	}
	colors := []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9"}

	fmt.Fprintln(w)
	for i, line := range lines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(colors[i])))
	}
	fmt.Fprintf(w, "  %s\n\n", version)
}
