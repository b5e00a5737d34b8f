package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/bookdesk/internal/query"
)

// renderHeader renders the status bar: logo, view, identity and list state.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < 80

	parts := []string{
		bg.Render("bookdesk", styles.Logo),
		bg.Render(m.currentView.String(), styles.Text.Bold(true)),
	}

	if who := m.identity(); who != "" {
		parts = append(parts, bg.Render("● "+truncate(who, 24), styles.SuccessText))
	} else {
		parts = append(parts, bg.Render("○ signed out", styles.MutedText))
	}

	if m.currentView == ViewBooks && !compact {
		parts = append(parts, m.listBadge(styles, bg))
	}

	if m.notice != "" {
		parts = append(parts, bg.Render(truncate(m.notice, max(m.width/3, 16)), styles.InfoText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(bg.Join(parts, "  "))
}

// listBadge summarises the books query state.
func (m Model) listBadge(styles Styles, bg BgStyle) string {
	label := bg.Render("Books:", styles.MutedText) + bg.Space()
	switch status := m.listStatus(); status {
	case query.Error:
		return label + bg.Render(status.String(), styles.DangerText)
	case query.LoadingNoData, query.LoadingStale:
		return label + bg.Render(status.String(), styles.WarningText)
	default:
		return label + bg.Render(strconv.Itoa(len(m.snapshot.Data)), styles.Text)
	}
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	colon := bg.Render(":", styles.FaintText)

	hints := m.keys.commandHints(m.currentView)
	segments := make([]string, 0, len(hints))
	for _, h := range hints {
		help := h.Help()
		segments = append(segments,
			bg.Render(help.Key, styles.AccentText)+colon+bg.Render(help.Desc, styles.MutedText))
	}

	return bg.FillLine(bg.Join(segments, "  "), m.width)
}
