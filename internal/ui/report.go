package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/wahlandcase/commitgate/internal/policy"
)

// Printer renders reports to a writer, with colors when the writer supports them
type Printer struct {
	w        io.Writer
	renderer *lipgloss.Renderer
}

// NewPrinter creates a Printer for w. noColor forces plain text.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	renderer := lipgloss.NewRenderer(w)
	if noColor {
		renderer.SetColorProfile(termenv.Ascii)
	}
	return &Printer{w: w, renderer: renderer}
}

// Result prints the outcome of a push evaluation
func (p *Printer) Result(result policy.Result) {
	if policy.IsAccepted(result) {
		p.println(p.StatusLine("accepted", "All commits comply with repository requirements"))
		return
	}

	summary, messages := policy.GetRejection(result)
	p.println(p.SectionHeader("PUSH REJECTED", ColorRed))
	p.println("")
	p.println(p.StatusLine("rejected", summary))
	p.println("")
	for _, msg := range messages {
		p.println(p.Bullet(msg, RefColor(msg)))
	}
	p.println("")
}

// FieldErrors prints configuration problems, or a success line when there are none
func (p *Printer) FieldErrors(path string, errs []policy.FieldError) {
	if len(errs) == 0 {
		p.println(p.StatusLine("success", fmt.Sprintf("%s is valid", path)))
		return
	}

	p.println(p.SectionHeader("INVALID CONFIG", ColorYellow))
	p.println("")
	p.println(p.StatusLine("error", fmt.Sprintf("%s has %d %s", path, len(errs), plural(len(errs), "problem", "problems"))))
	p.println("")
	for _, e := range errs {
		p.println(p.Bullet(e.String(), ColorCyan))
	}
	p.println("")
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.w, strings.TrimRight(s, " "))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
