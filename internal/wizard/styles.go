package wizard

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	colorPrimary = lipgloss.Color("86")  // Cyan
	colorSuccess = lipgloss.Color("42")  // Green
	colorError   = lipgloss.Color("196") // Red
	colorMuted   = lipgloss.Color("240") // Gray
)

// Style definitions
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(1, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)
)
