package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/five82/bookdesk/internal/bookapi"
	"github.com/five82/bookdesk/internal/query"
)

const (
	defaultPageSize = 10
	skeletonRows    = 5
)

// bookList is the cursor over the paginated book table.
type bookList struct {
	page     int
	selected int // row within the page
}

// clamp keeps the cursor inside the data after the list changes.
func (l *bookList) clamp(total, size int) {
	pages := pageCount(total, size)
	l.page = min(max(l.page, 0), pages-1)
	start, end := pageBounds(total, l.page, size)
	l.selected = min(max(l.selected, 0), max(end-start-1, 0))
}

// pageCount returns the number of pages, at least one.
func pageCount(total, size int) int {
	if size <= 0 {
		size = defaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// pageBounds returns the half-open index range of page.
func pageBounds(total, page, size int) (start, end int) {
	if size <= 0 {
		size = defaultPageSize
	}
	if total <= 0 || page < 0 {
		return 0, 0
	}
	start = min(page*size, total)
	end = min(start+size, total)
	return start, end
}

// pageSummary renders the pagination footer.
func pageSummary(total, page, size int) string {
	start, end := pageBounds(total, page, size)
	if start == end {
		return fmt.Sprintf("Showing 0 of %d books", total)
	}
	return fmt.Sprintf("Showing %d-%d of %d books", start+1, end, total)
}

// listStatus classifies the current snapshot.
func (m Model) listStatus() query.Status {
	s := m.snapshot
	return query.Classify(s.Fetching, s.HasData, len(s.Data) == 0, s.Err)
}

// handleBooksKey processes keyboard input for the books view.
func (m Model) handleBooksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	total := len(m.snapshot.Data)

	switch {
	case key.Matches(msg, m.keys.Refresh):
		m.notice = ""
		if m.books != nil {
			m.books.Invalidate()
		}
		return m, readBooksCmd(m.ctx, m.books)
	case key.Matches(msg, m.keys.Create):
		m.notice = ""
		return m, m.openCreate()
	case key.Matches(msg, m.keys.Logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.ViewLogs):
		return m, m.switchTo(ViewLogs)
	case key.Matches(msg, m.keys.Up):
		m.list.selected--
	case key.Matches(msg, m.keys.Down):
		m.list.selected++
	case key.Matches(msg, m.keys.PrevPage):
		m.list.page--
		m.list.selected = 0
	case key.Matches(msg, m.keys.NextPage):
		if m.list.page < pageCount(total, m.pageSize)-1 {
			m.list.page++
			m.list.selected = 0
		}
	case key.Matches(msg, m.keys.Back):
		m.notice = ""
	}

	m.list.clamp(total, m.pageSize)
	return m, nil
}

// selectedBook returns the highlighted book, if any.
func (m Model) selectedBook() (bookapi.Book, bool) {
	start, end := pageBounds(len(m.snapshot.Data), m.list.page, m.pageSize)
	i := start + m.list.selected
	if i < start || i >= end {
		return bookapi.Book{}, false
	}
	return m.snapshot.Data[i], true
}

// renderBooks renders the books view for each query status.
func (m Model) renderBooks() string {
	styles := m.theme.Styles()
	status := m.listStatus()

	title := "Books"
	switch status {
	case query.LoadingStale:
		title += "  " + styles.WarningText.Render("↻ refreshing")
	case query.LoadingNoData:
		title += "  " + styles.WarningText.Render("loading")
	}

	var body string
	switch status {
	case query.LoadingNoData:
		body = m.renderSkeleton(styles)
	case query.Error:
		body = m.renderListError(styles)
	case query.LoadedEmpty:
		body = renderEmpty(styles)
	case query.LoadingStale, query.LoadedNonEmpty:
		if len(m.snapshot.Data) == 0 {
			body = renderEmpty(styles)
			break
		}
		body = m.renderBookTable(styles) + "\n" + m.renderBookDetail(styles)
	}

	footer := m.renderListFooter(styles, status)
	return m.renderBox(title, body+"\n"+footer, m.width, m.contentHeight(), true)
}

func renderEmpty(styles Styles) string {
	return styles.MutedText.Render("No books found") + "\n\n" +
		styles.FaintText.Render("Press c to add the first one.")
}

func (m Model) renderSkeleton(styles Styles) string {
	width := max(m.width-8, 10)
	bar := styles.Skeleton.Render(strings.Repeat("░", width))
	rows := make([]string, 0, skeletonRows+1)
	rows = append(rows, styles.MutedText.Render("Loading books..."))
	for range skeletonRows {
		rows = append(rows, bar)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderListError(styles Styles) string {
	msg := "Could not load books."
	if err := m.snapshot.Err; err != nil {
		msg = "Could not load books: " + err.Error()
	}
	out := styles.DangerText.Render(truncate(msg, max(m.width-8, 20))) + "\n" +
		styles.FaintText.Render("Press r to retry.")
	if m.snapshot.HasData && len(m.snapshot.Data) > 0 {
		out += "\n\n" + styles.MutedText.Render("Last loaded books:") + "\n" + m.renderBookTable(styles)
	}
	return out
}

func (m Model) renderBookTable(styles Styles) string {
	books := m.snapshot.Data
	start, end := pageBounds(len(books), m.list.page, m.pageSize)

	titleWidth := max((m.width-40)/2, 12)
	rows := make([][]string, 0, end-start)
	for _, b := range books[start:end] {
		rows = append(rows, []string{
			truncate(b.Title, titleWidth),
			truncate(b.Genre, 16),
			truncate(b.Author.Name, 20),
			formatCreated(b),
		})
	}

	headerStyle := styles.AccentText.Bold(true).Padding(0, 1)
	cellStyle := styles.Text.Padding(0, 1)
	selectedStyle := styles.Selected.Padding(0, 1)
	selected := m.list.selected

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Border))).
		Headers("TITLE", "GENRE", "AUTHOR", "CREATED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == selected:
				return selectedStyle
			default:
				return cellStyle
			}
		})
	return t.Render()
}

func (m Model) renderBookDetail(styles Styles) string {
	b, ok := m.selectedBook()
	if !ok {
		return ""
	}
	width := max(m.width-8, 20)
	lines := []string{
		styles.Text.Bold(true).Render(truncate(b.Title, width)),
	}
	if b.Description != "" {
		lines = append(lines, styles.MutedText.Render(truncate(b.Description, width)))
	}
	if b.CoverImageURL != "" {
		lines = append(lines, styles.FaintText.Render("cover ")+styles.InfoText.Render(truncateMiddle(b.CoverImageURL, width-6)))
	}
	if b.DocumentURL != "" {
		lines = append(lines, styles.FaintText.Render("file  ")+styles.InfoText.Render(truncateMiddle(b.DocumentURL, width-6)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderListFooter(styles Styles, status query.Status) string {
	total := len(m.snapshot.Data)
	parts := []string{}
	if status == query.LoadingStale || status == query.LoadedNonEmpty || (status == query.Error && total > 0) {
		parts = append(parts, styles.Text.Render(pageSummary(total, m.list.page, m.pageSize)))
		parts = append(parts, styles.MutedText.Render(fmt.Sprintf("page %d/%d", m.list.page+1, pageCount(total, m.pageSize))))
	}
	if !m.snapshot.UpdatedAt.IsZero() {
		parts = append(parts, styles.FaintText.Render("updated "+sinceLabel(time.Since(m.snapshot.UpdatedAt))))
	}
	if m.snapshot.IsOffline() {
		parts = append(parts, styles.DangerText.Render("offline"))
	}
	return strings.Join(parts, styles.FaintText.Render("  ·  "))
}

func formatCreated(b bookapi.Book) string {
	t := b.ParsedCreatedAt()
	if t.IsZero() {
		return b.CreatedAt
	}
	return t.Local().Format("2006-01-02 15:04")
}
