package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary lipgloss.Color // Main accent color
	Dim     lipgloss.Color // Dimmed/secondary text color
	Success lipgloss.Color // Completed work
	Error   lipgloss.Color // Failed work
	Busy    lipgloss.Color // Work in flight
}

// DefaultTheme is the default violet theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#a78bfa"),
	Dim:     lipgloss.Color("#6e7681"),
	Success: lipgloss.Color("#00ff9f"),
	Error:   lipgloss.Color("#ff5c57"),
	Busy:    lipgloss.Color("#f4b860"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Help    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Busy    lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Help:    lipgloss.NewStyle().Foreground(t.Dim),
		Success: lipgloss.NewStyle().Foreground(t.Success),
		Error:   lipgloss.NewStyle().Foreground(t.Error),
		Busy:    lipgloss.NewStyle().Foreground(t.Busy),
	}
}

// StatusBadge renders an artifact status as a colored badge.
func (s Styles) StatusBadge(status string) string {
	switch status {
	case "complete":
		return s.Success.Render("● complete")
	case "error":
		return s.Error.Render("✗ error")
	case "streaming", "thinking":
		return s.Busy.Render("◌ " + status)
	default:
		return s.Help.Render("○ " + status)
	}
}

// Header renders a bold section header with a dim rule to the given width.
func (s Styles) Header(title string, width int) string {
	t := s.Title.Render(title)
	pad := width - lipgloss.Width(t) - 1
	if pad < 0 {
		pad = 0
	}
	return t + " " + s.Help.Render(strings.Repeat("─", pad))
}

// TranscriptLine renders a live-session transcript line with a speaker tag.
func (s Styles) TranscriptLine(speaker, text string) string {
	return s.Label.Render(speaker+":") + " " + text
}
