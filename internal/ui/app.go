package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/bookdesk/internal/auth"
	"github.com/five82/bookdesk/internal/bookapi"
	"github.com/five82/bookdesk/internal/config"
	"github.com/five82/bookdesk/internal/mutation"
	"github.com/five82/bookdesk/internal/prefs"
	"github.com/five82/bookdesk/internal/query"
	"github.com/five82/bookdesk/internal/session"
)

// View represents the current view mode.
type View int

const (
	ViewLogin View = iota
	ViewRegister
	ViewBooks
	ViewCreate
	ViewLogs
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "Sign in"
	case ViewRegister:
		return "Register"
	case ViewBooks:
		return "Books"
	case ViewCreate:
		return "Create book"
	case ViewLogs:
		return "Logs"
	default:
		return "Unknown"
	}
}

// Options configure the UI.
type Options struct {
	Context context.Context
	Auth    *auth.Service
	Session *session.Store
	Books   *query.Query[[]bookapi.Book]

	// NewPipeline returns a fresh create-book pipeline that calls onSuccess
	// after a book is created.
	NewPipeline func(onSuccess func(bookapi.Book)) *mutation.Pipeline

	Config    *config.Config
	PollTick  time.Duration
	ThemeName string
	LastEmail string
	PrefsPath string
	LogPath   string
}

// Model is the Bubble Tea model for bookdesk.
type Model struct {
	// Configuration
	ctx         context.Context
	auth        *auth.Service
	session     *session.Store
	books       *query.Query[[]bookapi.Book]
	newPipeline func(func(bookapi.Book)) *mutation.Pipeline
	prefsPath   string
	logPath     string
	pollTick    time.Duration
	pageSize    int
	keys        keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	notice      string

	// Data state
	snapshot query.Snapshot[[]bookapi.Book]

	// events delivers pipeline callbacks to Update.
	events chan tea.Msg

	// Views
	login    authForm
	register authForm
	list     bookList
	create   createForm
	logs     logView
}

// New creates a new Model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = time.Second
	}
	pageSize := 0
	if opts.Config != nil {
		pageSize = opts.Config.PageSize
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.Defaults().Theme
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	sess := opts.Session
	if sess == nil && opts.Auth != nil {
		sess = opts.Auth.Session()
	}

	m := Model{
		ctx:         ctx,
		auth:        opts.Auth,
		session:     sess,
		books:       opts.Books,
		newPipeline: opts.NewPipeline,
		prefsPath:   prefsPath,
		logPath:     opts.LogPath,
		pollTick:    pollTick,
		pageSize:    pageSize,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewLogin,
		events:      make(chan tea.Msg, 4),
		login:       newLoginForm(opts.LastEmail),
		register:    newRegisterForm(),
		create:      newCreateForm(),
		logs:        newLogView(),
	}
	if m.signedIn() {
		m.currentView = ViewBooks
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.pollTick),
		waitForEvent(m.ctx, m.events),
	}
	if m.currentView == ViewBooks {
		cmds = append(cmds, readBooksCmd(m.ctx, m.books))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeInputs()
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = query.Snapshot[[]bookapi.Book](msg)
		m.list.clamp(len(m.snapshot.Data), m.pageSize)
		return m, nil

	case authDoneMsg:
		return m.handleAuthDone(msg)

	case submitDoneMsg:
		return m.handleSubmitDone(msg)

	case bookCreatedMsg:
		next, cmd := m.handleBookCreated(msg)
		return next, tea.Batch(cmd, waitForEvent(m.ctx, m.events))

	case logsMsg:
		m.handleLogs(msg)
		return m, nil
	}

	return m.updateFocusedInput(msg)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if msg.String() == "ctrl+c" {
		m.create.cancel()
		return m, tea.Quit
	}

	switch m.currentView {
	case ViewLogin:
		return m.handleLoginKey(msg)
	case ViewRegister:
		return m.handleRegisterKey(msg)
	case ViewCreate:
		return m.handleCreateKey(msg)
	}

	// Letter shortcuts are only safe outside the forms.
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
		return m, nil
	case "T":
		m.cycleTheme()
		return m, nil
	}

	switch m.currentView {
	case ViewBooks:
		return m.handleBooksKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

// cycleTheme switches to the next theme and remembers it.
func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	name := m.theme.Name
	if _, err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name }); err != nil {
		m.notice = "Could not save theme: " + err.Error()
	}
	m.updateLogViewport()
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.currentView == ViewBooks {
		cmds = append(cmds, readBooksCmd(m.ctx, m.books))
	}
	if m.currentView == ViewLogs && m.logs.follow {
		cmds = append(cmds, tailLogsCmd(m.logPath))
	}

	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// updateFocusedInput forwards non-key messages, such as cursor blinks and
// spinner ticks, to the active components.
func (m Model) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if _, ok := msg.(spinner.TickMsg); ok {
		// The spinner only runs while a book is being created.
		if !m.create.submitting {
			return m, nil
		}
		m.create.spinner, cmd = m.create.spinner.Update(msg)
		return m, cmd
	}

	switch m.currentView {
	case ViewLogin:
		cmd = m.login.update(msg)
	case ViewRegister:
		cmd = m.register.update(msg)
	case ViewCreate:
		cmd = m.create.update(msg)
	case ViewLogs:
		m.logs.viewport, cmd = m.logs.viewport.Update(msg)
	}
	return m, cmd
}

// switchTo changes view and returns the command that loads its data.
func (m *Model) switchTo(v View) tea.Cmd {
	m.currentView = v
	m.showHelp = false
	switch v {
	case ViewBooks:
		return readBooksCmd(m.ctx, m.books)
	case ViewLogs:
		m.updateLogViewport()
		return tailLogsCmd(m.logPath)
	case ViewLogin:
		return m.login.focusFirst()
	case ViewRegister:
		return m.register.focusFirst()
	case ViewCreate:
		return m.create.focusFirst()
	}
	return nil
}

func (m Model) signedIn() bool {
	if m.session == nil {
		return false
	}
	_, ok := m.session.Token()
	return ok
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.renderAuthForm(&m.login)
	case ViewRegister:
		return m.renderAuthForm(&m.register)
	case ViewBooks:
		return m.renderBooks()
	case ViewCreate:
		return m.renderCreate()
	case ViewLogs:
		return m.renderLogs()
	default:
		return ""
	}
}

// contentHeight is the height left below the header and command bar.
func (m Model) contentHeight() int {
	return max(m.height-2, 1)
}

// Messages

type tickMsg time.Time

type snapshotMsg query.Snapshot[[]bookapi.Book]

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// readBooksCmd reads the books query. Read never blocks; a stale or missing
// value starts a background fetch that a later tick picks up.
func readBooksCmd(ctx context.Context, q *query.Query[[]bookapi.Book]) tea.Cmd {
	if q == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(q.Read(ctx))
	}
}

// waitForEvent blocks until a pipeline callback or shutdown.
func waitForEvent(ctx context.Context, events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-events:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.create.cancel()
	}
	return err
}
