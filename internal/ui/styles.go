package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorCyan     = lipgloss.Color("#00FFFF")
	ColorGreen    = lipgloss.Color("#00FF00")
	ColorYellow   = lipgloss.Color("#FFFF00")
	ColorRed      = lipgloss.Color("#FF0000")
	ColorMagenta  = lipgloss.Color("#FF00FF")
	ColorWhite    = lipgloss.Color("#FFFFFF")
	ColorDarkGray = lipgloss.Color("8") // ANSI 8
)

// RefColor picks a color by the kind of ref a message belongs to
func RefColor(refID string) lipgloss.Color {
	switch {
	case strings.HasPrefix(refID, "refs/tags/"):
		return ColorMagenta
	case strings.HasPrefix(refID, "refs/heads/main"), strings.HasPrefix(refID, "refs/heads/master"):
		return ColorRed
	case strings.HasPrefix(refID, "refs/heads/"):
		return ColorYellow
	default:
		return ColorWhite
	}
}

