package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// confirmModal asks a yes/no question before a destructive action.
type confirmModal struct {
	message string
	details string
	width   int
}

// confirmResultMsg carries the user's answer.
type confirmResultMsg struct {
	confirmed bool
}

func newConfirmModal(message, details string, width int) *confirmModal {
	return &confirmModal{message: message, details: details, width: width}
}

func (m *confirmModal) Update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "enter":
		return func() tea.Msg { return confirmResultMsg{confirmed: true} }
	case "n", "esc":
		return func() tea.Msg { return confirmResultMsg{confirmed: false} }
	}
	return nil
}

func (m *confirmModal) View() string {
	content := titleStyle.Render(m.message) + "\n"
	if m.details != "" {
		content += "\n" + m.details + "\n"
	}
	content += "\n" + okStyle.Render("[y]") + " Yes  " + errorStyle.Render("[n/esc]") + " No"

	width := m.width
	if width <= 0 {
		width = 50
	}
	return modalBoxStyle.Width(width).Render(content)
}
