package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style of the credential form.
type Theme struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Focused lipgloss.Style
	Blurred lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}

// DefaultTheme is the default theme.
var DefaultTheme = Theme{
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00A7E1")).
		MarginBottom(1),
	Label: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a3a3a3")),
	Focused: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00A7E1")),
	Blurred: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#737373")),
	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E4572E")),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		Padding(1, 2),
}
