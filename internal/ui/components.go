package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SectionHeader creates a styled section header with a title and color
// Example: "─── TITLE ───────────"
func (p *Printer) SectionHeader(title string, color lipgloss.Color) string {
	dashes := strings.Repeat("─", max(25-len(title), 0))
	headerStyle := p.renderer.NewStyle().Foreground(color)
	titleStyle := p.renderer.NewStyle().Foreground(color).Bold(true)

	return fmt.Sprintf("%s%s%s",
		headerStyle.Render("  ─── "),
		titleStyle.Render(title),
		headerStyle.Render(" "+dashes),
	)
}

// StatusIcon returns the appropriate status icon and color
func StatusIcon(status string) (string, lipgloss.Color) {
	switch status {
	case "accepted", "success":
		return "✓", ColorGreen
	case "rejected", "error":
		return "✗", ColorRed
	case "warning":
		return "!", ColorYellow
	default:
		return "·", ColorWhite
	}
}

// StatusLine renders an icon followed by text in the status color
func (p *Printer) StatusLine(status, text string) string {
	icon, color := StatusIcon(status)
	iconStyle := p.renderer.NewStyle().Foreground(color).Bold(true)
	textStyle := p.renderer.NewStyle().Foreground(color)
	return "  " + iconStyle.Render(icon) + " " + textStyle.Render(text)
}

// Bullet renders an indented list item; the prefix before the first ": " is highlighted
func (p *Printer) Bullet(text string, color lipgloss.Color) string {
	bulletStyle := p.renderer.NewStyle().Foreground(ColorDarkGray)
	prefixStyle := p.renderer.NewStyle().Foreground(color)

	prefix, rest, found := strings.Cut(text, ": ")
	if !found {
		return "    " + bulletStyle.Render("•") + " " + text
	}
	return "    " + bulletStyle.Render("•") + " " + prefixStyle.Render(prefix+":") + " " + rest
}
