package tui

import "github.com/charmbracelet/lipgloss"

const (
	accentColor = "#8BC34A"
	mutedColor  = "240"
	errorColor  = "#e53935"
)

var (
	appStyle   = lipgloss.NewStyle().Margin(1, 2)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentColor))
	paneStyle  = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(mutedColor)).
			Padding(0, 1)
	activePaneStyle = paneStyle.BorderForeground(lipgloss.Color(accentColor))
	countStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color(mutedColor))
	emptyStyle      = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(mutedColor)).Padding(1, 0)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(accentColor))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color(errorColor))
)
