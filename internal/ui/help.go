package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

var helpTitles = []string{"Books", "Actions", "Forms", "Logs", "General"}

// renderHelp renders the help overlay from the key map.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(14)

	groups := m.keys.FullHelp()
	for i, group := range groups {
		if i < len(helpTitles) {
			b.WriteString(styles.AccentText.Bold(true).Render(helpTitles[i]))
			b.WriteString("\n")
		}
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(keyStyle.Render(h.Key))
			b.WriteString(styles.Text.Render(h.Desc))
			b.WriteString("\n")
		}
		if i < len(groups)-1 {
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(44)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

// commandHints returns the command bar bindings for a view.
func (k keyMap) commandHints(v View) []key.Binding {
	switch v {
	case ViewLogin:
		return []key.Binding{k.NextField, k.Submit, k.SwitchForm, k.ForceQuit}
	case ViewRegister:
		return []key.Binding{k.NextField, k.Submit, k.Back, k.ForceQuit}
	case ViewCreate:
		return []key.Binding{k.NextField, k.SubmitAll, k.Back}
	case ViewLogs:
		return []key.Binding{k.ToggleFollow, k.Top, k.Bottom, k.Back, k.CycleTheme, k.Help}
	default:
		return []key.Binding{k.Refresh, k.Create, k.NextPage, k.ViewLogs, k.Logout, k.CycleTheme, k.Help, k.Quit}
	}
}
