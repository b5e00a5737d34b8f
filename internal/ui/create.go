package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/bookdesk/internal/bookapi"
	"github.com/five82/bookdesk/internal/form"
	"github.com/five82/bookdesk/internal/mutation"
)

// Input positions in the create form.
const (
	inputTitle = iota
	inputGenre
	inputDescription
	inputCover
	inputDocument
	inputCount
)

var createLabels = [inputCount]string{
	"Title",
	"Genre",
	"Description",
	"Cover image (path)",
	"Document (path, comma separated for several)",
}

// createFields maps inputs to validation field names.
var createFields = [inputCount]string{
	form.FieldTitle,
	form.FieldGenre,
	form.FieldDescription,
	form.FieldCoverImage,
	form.FieldDocument,
}

// createForm backs the create book view. Each visit gets its own pipeline;
// gen changes whenever the visit ends so late results are dropped.
type createForm struct {
	title       textinput.Model
	genre       textinput.Model
	description textarea.Model
	cover       textinput.Model
	document    textinput.Model
	focus       int

	spinner    spinner.Model
	pipeline   *mutation.Pipeline
	gen        int
	submitting bool
	stop       context.CancelFunc

	err         string
	fieldErrors map[string]string
}

func newCreateForm() createForm {
	desc := textarea.New()
	desc.Placeholder = "What is the book about?"
	desc.ShowLineNumbers = false
	desc.Prompt = ""
	desc.CharLimit = 2000
	desc.SetHeight(4)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	f := createForm{
		title:       newTextInput("Dune", 200),
		genre:       newTextInput("Science fiction", 60),
		description: desc,
		cover:       newTextInput("~/covers/dune.png", 1024),
		document:    newTextInput("~/books/dune.pdf", 1024),
		spinner:     sp,
	}
	return f
}

// draft collects the current input as a book draft.
func (f *createForm) draft() form.BookDraft {
	return form.BookDraft{
		Title:       f.title.Value(),
		Genre:       f.genre.Value(),
		Description: f.description.Value(),
		CoverImage:  form.ParsePaths(f.cover.Value()),
		Document:    form.ParsePaths(f.document.Value()),
	}
}

// resetDraft clears every input and message.
func (f *createForm) resetDraft() {
	f.title.Reset()
	f.genre.Reset()
	f.description.Reset()
	f.cover.Reset()
	f.document.Reset()
	f.focus = inputTitle
	f.err = ""
	f.fieldErrors = nil
}

// cancel ends the visit: the in-flight request is cancelled, the pipeline
// stops calling back and any result still on its way is ignored.
func (f *createForm) cancel() {
	f.release()
	if f.pipeline != nil {
		f.pipeline.Close()
		f.pipeline = nil
	}
	f.gen++
	f.submitting = false
}

// release drops the request context.
func (f *createForm) release() {
	if f.stop != nil {
		f.stop()
		f.stop = nil
	}
}

func (f *createForm) focusFirst() tea.Cmd {
	f.focus = inputTitle
	return f.applyFocus()
}

func (f *createForm) move(delta int) tea.Cmd {
	f.focus = ((f.focus+delta)%inputCount + inputCount) % inputCount
	return f.applyFocus()
}

func (f *createForm) applyFocus() tea.Cmd {
	inputs := []*textinput.Model{&f.title, &f.genre, nil, &f.cover, &f.document}
	var cmd tea.Cmd
	for i, in := range inputs {
		if in == nil {
			continue
		}
		if i == f.focus {
			cmd = in.Focus()
		} else {
			in.Blur()
		}
	}
	if f.focus == inputDescription {
		cmd = f.description.Focus()
	} else {
		f.description.Blur()
	}
	return cmd
}

func (f *createForm) update(msg tea.Msg) tea.Cmd {
	if f.submitting {
		return nil
	}
	var cmd tea.Cmd
	switch f.focus {
	case inputTitle:
		f.title, cmd = f.title.Update(msg)
	case inputGenre:
		f.genre, cmd = f.genre.Update(msg)
	case inputDescription:
		f.description, cmd = f.description.Update(msg)
	case inputCover:
		f.cover, cmd = f.cover.Update(msg)
	case inputDocument:
		f.document, cmd = f.document.Update(msg)
	}
	return cmd
}

func (f *createForm) setWidth(w int) {
	f.title.Width = w
	f.genre.Width = w
	f.cover.Width = w
	f.document.Width = w
	f.description.SetWidth(w)
}

func (f *createForm) inputView(i int) string {
	switch i {
	case inputTitle:
		return f.title.View()
	case inputGenre:
		return f.genre.View()
	case inputDescription:
		return f.description.View()
	case inputCover:
		return f.cover.View()
	case inputDocument:
		return f.document.View()
	}
	return ""
}

// openCreate starts a create visit with a fresh pipeline. The pipeline
// reports success through the event channel tagged with this visit.
func (m *Model) openCreate() tea.Cmd {
	m.create.cancel()
	m.create.err = ""
	m.create.fieldErrors = nil

	gen := m.create.gen
	events := m.events
	if m.newPipeline != nil {
		m.create.pipeline = m.newPipeline(func(b bookapi.Book) {
			select {
			case events <- bookCreatedMsg{gen: gen, book: b}:
			default:
			}
		})
	}
	return m.switchTo(ViewCreate)
}

// submitCreate runs the pipeline off the UI goroutine. Submit is disabled
// while a submission is pending.
func (m *Model) submitCreate() tea.Cmd {
	f := &m.create
	if f.submitting {
		return nil
	}
	if f.pipeline == nil {
		f.err = "Creating books is unavailable."
		return nil
	}
	if f.pipeline.Pending() {
		return nil
	}

	ctx, stop := context.WithCancel(m.ctx)
	f.release()
	f.stop = stop
	f.submitting = true
	f.err = ""
	f.fieldErrors = nil

	p, gen, draft := f.pipeline, f.gen, f.draft()
	return tea.Batch(f.spinner.Tick, func() tea.Msg {
		st, err := p.Submit(ctx, draft)
		return submitDoneMsg{gen: gen, state: st, err: err}
	})
}

// handleCreateKey processes keyboard input for the create view.
func (m Model) handleCreateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.create
	switch {
	case key.Matches(msg, m.keys.Back):
		f.cancel()
		return m, m.switchTo(ViewBooks)
	case key.Matches(msg, m.keys.SubmitAll):
		return m, m.submitCreate()
	case key.Matches(msg, m.keys.NextField):
		return m, f.move(1)
	case key.Matches(msg, m.keys.PrevField):
		return m, f.move(-1)
	case key.Matches(msg, m.keys.Submit) && f.focus != inputDescription:
		if f.focus == inputDocument {
			return m, m.submitCreate()
		}
		return m, f.move(1)
	}
	return m, f.update(msg)
}

// handleSubmitDone shows a failed submission. Success is handled by
// handleBookCreated.
func (m Model) handleSubmitDone(msg submitDoneMsg) (tea.Model, tea.Cmd) {
	f := &m.create
	if msg.gen != f.gen {
		return m, nil
	}
	f.submitting = false
	f.release()

	if msg.err == nil || errors.Is(msg.err, mutation.ErrSubmitInFlight) {
		return m, nil
	}
	if d := msg.state.Err; d != nil {
		f.err = d.Message
		f.fieldErrors = d.FieldErrors
		if d.Kind == mutation.ValidationError {
			f.focusFirstInvalid()
		}
	} else {
		f.err = msg.err.Error()
	}
	return m, f.applyFocus()
}

// handleBookCreated navigates to the list with a clean draft.
func (m Model) handleBookCreated(msg bookCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.create.gen {
		return m, nil
	}
	m.create.submitting = false
	m.create.release()
	m.create.resetDraft()
	m.notice = fmt.Sprintf("Created %q", msg.book.Title)
	m.list = bookList{}
	return m, m.switchTo(ViewBooks)
}

func (f *createForm) focusFirstInvalid() {
	for i, field := range createFields {
		if _, bad := f.fieldErrors[field]; bad {
			f.focus = i
			return
		}
	}
}

// renderCreate renders the create book form.
func (m Model) renderCreate() string {
	styles := m.theme.Styles()
	f := &m.create

	var b strings.Builder
	for i := range inputCount {
		label := styles.MutedText
		if i == f.focus {
			label = styles.AccentText
		}
		b.WriteString(label.Render(createLabels[i]))
		b.WriteString("\n")
		b.WriteString(f.inputView(i))
		b.WriteString("\n")
		if msg := f.fieldErrors[createFields[i]]; msg != "" {
			b.WriteString(styles.DangerText.Render(msg))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	button := lipgloss.NewStyle().Padding(0, 2)
	if f.submitting {
		b.WriteString(button.Inherit(styles.FaintText).Render("Create book"))
		b.WriteString(" ")
		b.WriteString(f.spinner.View())
		b.WriteString(styles.WarningText.Render(" Creating book..."))
	} else {
		b.WriteString(button.
			Background(lipgloss.Color(m.theme.Accent)).
			Foreground(lipgloss.Color(m.theme.Background)).
			Render("Create book"))
		b.WriteString(styles.FaintText.Render("  ctrl+s"))
	}
	if f.err != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.DangerText.Render(f.err))
	}

	return m.renderBox("Create book", b.String(), m.width, m.contentHeight(), true)
}

// Messages

type submitDoneMsg struct {
	gen   int
	state mutation.State
	err   error
}

type bookCreatedMsg struct {
	gen  int
	book bookapi.Book
}
