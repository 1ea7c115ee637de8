// Package ui renders CLI output. Output is styled through lipgloss when
// stdout is a terminal and falls back to plain text otherwise, so piped
// output stays machine-readable.
package ui

import (
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// accentPalette holds the candidate colors for a run's accent. One is picked
// per Printer from the injected random source; the choice is cosmetic only.
var accentPalette = []lipgloss.Color{
	lipgloss.Color("2"), // green
	lipgloss.Color("3"), // yellow
	lipgloss.Color("4"), // blue
	lipgloss.Color("5"), // magenta
	lipgloss.Color("6"), // cyan
}

// Printer writes run output with consistent styling.
type Printer struct {
	out    io.Writer
	styled bool

	header lipgloss.Style
	accent lipgloss.Style
	dim    lipgloss.Style
}

// New builds a Printer for out, styling only when out is a terminal.
func New(out *os.File, rng *rand.Rand) *Printer {
	return NewWriter(out, isatty.IsTerminal(out.Fd()), rng)
}

// NewWriter is the injectable constructor used by tests.
func NewWriter(out io.Writer, styled bool, rng *rand.Rand) *Printer {
	accent := accentPalette[rng.Intn(len(accentPalette))]
	return &Printer{
		out:    out,
		styled: styled,
		header: lipgloss.NewStyle().Bold(true).Foreground(accent),
		accent: lipgloss.NewStyle().Foreground(accent),
		dim:    lipgloss.NewStyle().Faint(true),
	}
}

// Header prints the result heading.
func (p *Printer) Header(msg string) {
	if p.styled {
		fmt.Fprintln(p.out, p.header.Render(msg))
		return
	}
	fmt.Fprintln(p.out, msg)
}

// Port prints one suggested port as a list item.
func (p *Printer) Port(port uint16) {
	if p.styled {
		fmt.Fprintf(p.out, "- %s\n", p.accent.Render(fmt.Sprintf("%d", port)))
		return
	}
	fmt.Fprintf(p.out, "- %d\n", port)
}

// DockerPort prints one suggested port in docker-compose "port:" form.
func (p *Printer) DockerPort(port uint16) {
	if p.styled {
		fmt.Fprintf(p.out, "%s:\n", p.accent.Render(fmt.Sprintf("%d", port)))
		return
	}
	fmt.Fprintf(p.out, "%d:\n", port)
}

// Infof prints informational progress lines.
func (p *Printer) Infof(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.styled {
		msg = p.dim.Render(msg)
	}
	fmt.Fprintln(p.out, msg)
}
