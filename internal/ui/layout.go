package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Form width limits.
const (
	minFormWidth = 20
	maxFormWidth = 64
)

// formWidth returns the input width for a terminal width.
func formWidth(termWidth int) int {
	return min(max(termWidth-16, minFormWidth), maxFormWidth)
}

// resizeInputs applies the form width to every input.
func (m *Model) resizeInputs() {
	w := formWidth(m.width)
	m.login.setWidth(w)
	m.register.setWidth(w)
	m.create.setWidth(w)
}

// renderBox draws a bordered panel with a title line. Content taller than
// the panel is cut off at the bottom.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	border := m.theme.Border
	if focused {
		border = m.theme.BorderFocus
	}
	styles := m.theme.Styles()

	inner := lipgloss.JoinVertical(lipgloss.Left,
		styles.AccentText.Bold(true).Render(title),
		content,
	)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Padding(0, 1).
		Width(max(width-2, 1)).
		Height(max(height-2, 1)).
		MaxHeight(max(height, 1)).
		Render(inner)
}
