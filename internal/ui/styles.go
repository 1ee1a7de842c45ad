// Package ui renders the tools' terminal report and confirmation prompt.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Accent highlights note and attachment paths.
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))

	// Muted is for hints and secondary info.
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	// Bold is for emphasis.
	Bold = lipgloss.NewStyle().Bold(true)

	// Warning marks skipped notes and failed markers.
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
)

// Path renders a vault path.
func Path(p string) string {
	return Accent.Render(p)
}

// Hint renders secondary text.
func Hint(s string) string {
	return Muted.Render(s)
}
