package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("4")
	colorSecondary = lipgloss.Color("6")
	colorMuted     = lipgloss.Color("8")
	colorDanger    = lipgloss.Color("1")
	colorWarning   = lipgloss.Color("3")
	colorSuccess   = lipgloss.Color("2")
	colorSurface   = lipgloss.Color("236")
	colorBright    = lipgloss.Color("15")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	subtitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSecondary)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorDanger)
	noticeStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorWarning)
	okStyle       = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBright).Background(colorSurface)

	formBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)

	modalBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDanger).
			Padding(1, 2)
)
