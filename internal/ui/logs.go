package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/bookdesk/internal/logtail"
)

// logTailLines is how much of the log file the view keeps.
const logTailLines = 500

// logView holds the log tail state.
type logView struct {
	viewport viewport.Model
	entries  []logtail.Entry
	follow   bool
	err      string
}

func newLogView() logView {
	return logView{
		viewport: viewport.New(0, 0),
		follow:   true,
	}
}

// handleLogsKey processes keyboard input for the logs view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.ViewLogs):
		if m.signedIn() {
			return m, m.switchTo(ViewBooks)
		}
		return m, m.switchTo(ViewLogin)
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logs.follow = !m.logs.follow
		if m.logs.follow {
			m.logs.viewport.GotoBottom()
			return m, tailLogsCmd(m.logPath)
		}
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.logs.follow = false
		m.logs.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logs.follow = true
		m.logs.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.logs.viewport, cmd = m.logs.viewport.Update(msg)
	if !m.logs.viewport.AtBottom() {
		m.logs.follow = false
	}
	return m, cmd
}

// handleLogs stores a freshly read tail.
func (m *Model) handleLogs(msg logsMsg) {
	if msg.err != nil {
		m.logs.err = msg.err.Error()
		return
	}
	m.logs.err = ""
	m.logs.entries = msg.entries
	m.updateLogViewport()
}

// updateLogViewport sizes the viewport and re-renders its content.
func (m *Model) updateLogViewport() {
	// Box borders take two rows and columns, the title and status line one
	// row each.
	m.logs.viewport.Width = max(m.width-4, 1)
	m.logs.viewport.Height = max(m.contentHeight()-4, 1)
	m.logs.viewport.SetContent(m.renderLogContent())
	if m.logs.follow {
		m.logs.viewport.GotoBottom()
	}
}

// renderLogContent colors each entry by level.
func (m Model) renderLogContent() string {
	styles := m.theme.Styles()
	if len(m.logs.entries) == 0 {
		if m.logPath == "" {
			return styles.MutedText.Render("Logging to a file is not configured.")
		}
		return styles.MutedText.Render("No log entries yet.")
	}

	lines := make([]string, 0, len(m.logs.entries))
	for _, e := range m.logs.entries {
		lines = append(lines, m.formatLogEntry(styles, e))
	}
	return strings.Join(lines, "\n")
}

func (m Model) formatLogEntry(styles Styles, e logtail.Entry) string {
	if !e.HasLevel {
		return styles.Text.Render(e.Raw)
	}

	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(styles.FaintText.Render(e.Time.Local().Format("15:04:05")))
		b.WriteString(" ")
	}
	level := strings.ToUpper(e.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	b.WriteString(styles.LevelStyle(e.Level.String()).Bold(true).Render(fmt.Sprintf("%-4s", level)))
	b.WriteString(" ")
	b.WriteString(styles.Text.Render(e.Message))
	for _, f := range e.Fields {
		b.WriteString(" ")
		b.WriteString(styles.MutedText.Render(f.Key + "="))
		b.WriteString(styles.InfoText.Render(f.Value))
	}
	return b.String()
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()

	title := "Logs"
	if m.logPath != "" {
		title += "  " + styles.FaintText.Render(truncateMiddle(m.logPath, max(m.width/2, 20)))
	}

	status := styles.SuccessText.Render("following")
	if !m.logs.follow {
		status = styles.WarningText.Render("paused")
	}
	status += styles.FaintText.Render(fmt.Sprintf("  ·  %d lines", len(m.logs.entries)))
	if m.logs.err != "" {
		status += "  " + styles.DangerText.Render(m.logs.err)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, m.logs.viewport.View(), status)
	return m.renderBox(title, content, m.width, m.contentHeight(), true)
}

// Messages

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

// Commands

func tailLogsCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.Tail(path, logTailLines)
		return logsMsg{entries: entries, err: err}
	}
}
