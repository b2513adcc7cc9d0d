// Package ui renders CLI output: styled when stdout is a terminal, plain
// when piped or when color is disabled.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const (
	colorCyan   = "86"
	colorWhite  = "255"
	colorGray   = "245"
	colorDim    = "238"
	colorRed    = "196"
	colorYellow = "220"
	colorGreen  = "78"
)

// Styles holds the output styles.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Label   lipgloss.Style
	Score   lipgloss.Style
	Path    lipgloss.Style
}

func defaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorWhite)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Score:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorCyan)),
		Path:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorCyan)),
	}
}

func plainStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
		Path:    lipgloss.NewStyle(),
	}
}

// Printer writes styled output to a stream.
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter creates a printer for w. Styling is enabled only when w is a
// terminal and noColor is false.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	styled := false
	if f, ok := w.(*os.File); ok && !noColor {
		styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	styles := plainStyles()
	if styled {
		styles = defaultStyles()
	}
	return &Printer{out: w, styles: styles}
}

// Styles exposes the active style set.
func (p *Printer) Styles() Styles {
	return p.styles
}

func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *Printer) Println(args ...any) {
	fmt.Fprintln(p.out, args...)
}

// Header prints a bold section header.
func (p *Printer) Header(text string) {
	fmt.Fprintln(p.out, p.styles.Header.Render(text))
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Success.Render(fmt.Sprintf(format, args...)))
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Warning.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// Result prints one search result: score, location, and a content preview.
func (p *Printer) Result(rank int, score float64, path string, startLine, endLine int, name, content string) {
	location := fmt.Sprintf("%s:%d-%d", path, startLine, endLine)
	header := fmt.Sprintf("%2d. %s  %s",
		rank,
		p.styles.Score.Render(fmt.Sprintf("%.3f", score)),
		p.styles.Path.Render(location))
	if name != "" {
		header += "  " + p.styles.Label.Render(name)
	}
	fmt.Fprintln(p.out, header)

	for _, line := range previewLines(content, 3) {
		fmt.Fprintln(p.out, p.styles.Dim.Render("    "+line))
	}
}

// Duration formats an elapsed time for display.
func Duration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// previewLines returns up to n trimmed, non-empty lines of content.
func previewLines(content string, n int) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
		if len(out) == n {
			break
		}
	}
	return out
}
