package ui

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/five82/bookdesk/internal/auth"
	"github.com/five82/bookdesk/internal/bookapi"
	"github.com/five82/bookdesk/internal/mockapi"
	"github.com/five82/bookdesk/internal/mutation"
	"github.com/five82/bookdesk/internal/prefs"
	"github.com/five82/bookdesk/internal/query"
	"github.com/five82/bookdesk/internal/session"
)

type harness struct {
	model     Model
	client    *bookapi.Client
	books     *query.Query[[]bookapi.Book]
	prefsPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	srv := httptest.NewServer(mockapi.New(mockapi.WithFastHashing(), mockapi.WithLogger(quiet)))
	t.Cleanup(srv.Close)

	client, err := bookapi.NewClient(srv.URL, bookapi.WithLogger(quiet))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	store, writer := session.New()
	queries := query.NewClient(query.WithLogger(quiet))
	t.Cleanup(queries.Close)
	books := query.Books(queries, client)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	m := New(Options{
		Context: ctx,
		Auth:    auth.NewService(client, writer, quiet),
		Session: store,
		Books:   books,
		NewPipeline: func(onSuccess func(bookapi.Book)) *mutation.Pipeline {
			return mutation.New(mutation.Config{
				API:       client,
				Tokens:    store,
				Cache:     queries,
				Logger:    quiet,
				OnSuccess: onSuccess,
			})
		},
		PrefsPath: prefsPath,
	})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 48})
	return &harness{model: m, client: client, books: books, prefsPath: prefsPath}
}

func (h *harness) signup(t *testing.T, name, email, password string) {
	t.Helper()
	_, err := h.client.Signup(context.Background(), bookapi.Registration{Name: name, Email: email, Password: password})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm, cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(t *testing.T, m Model, s string) Model {
	t.Helper()
	m, _ = update(t, m, keyMsg(s))
	return m
}

// collect runs cmd and any batched commands and returns their messages.
// Only use it on commands that do not wait on timers or events.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func find[T tea.Msg](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("no %T among %d messages", zero, len(msgs))
	return zero
}

func (h *harness) signIn(t *testing.T, email, password string) {
	t.Helper()
	m := h.model
	m.login.inputs[loginEmail].SetValue(email)
	m.login.inputs[loginPassword].SetValue(password)
	m.login.focus = loginPassword

	m, cmd := update(t, m, keyMsg("enter"))
	if !m.login.busy {
		t.Fatalf("login form not busy after submit")
	}
	m, _ = update(t, m, find[authDoneMsg](t, collect(cmd)))
	if m.currentView != ViewBooks {
		t.Fatalf("view after login = %v, want Books (err %q)", m.currentView, m.login.err)
	}
	h.model = m
}

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoginNavigatesToBooksAndRemembersEmail(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "Ada", "ada@example.com", "pw")

	if h.model.currentView != ViewLogin {
		t.Fatalf("initial view = %v, want Login", h.model.currentView)
	}
	h.signIn(t, "ada@example.com", "pw")

	if !strings.Contains(h.model.View(), "Ada") {
		t.Fatalf("header does not show the signed-in user:\n%s", h.model.View())
	}
	if got := h.model.login.value(loginPassword); got != "" {
		t.Fatalf("password kept after login: %q", got)
	}
	p, err := prefs.Load(h.prefsPath)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if p.Email != "ada@example.com" {
		t.Fatalf("remembered email = %q, want ada@example.com", p.Email)
	}
}

func TestLoginFailureStaysOnForm(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "Ada", "ada@example.com", "pw")

	m := h.model
	m.login.inputs[loginEmail].SetValue("ada@example.com")
	m.login.inputs[loginPassword].SetValue("wrong")
	m.login.focus = loginPassword
	m, cmd := update(t, m, keyMsg("enter"))
	m, _ = update(t, m, find[authDoneMsg](t, collect(cmd)))

	if m.currentView != ViewLogin {
		t.Fatalf("view = %v, want Login", m.currentView)
	}
	if m.login.err != "Email or password incorrect" {
		t.Fatalf("login error = %q, want the server message", m.login.err)
	}
	if m.login.busy {
		t.Fatalf("form still busy after failure")
	}
}

func TestLoginBlankFieldsNeverLeaveForm(t *testing.T) {
	h := newHarness(t)
	m := h.model
	m.login.focus = loginPassword
	m, cmd := update(t, m, keyMsg("enter"))
	m, _ = update(t, m, find[authDoneMsg](t, collect(cmd)))
	if m.login.err != "Missing required field: email." {
		t.Fatalf("login error = %q", m.login.err)
	}
}

func TestRegisterSignsIn(t *testing.T) {
	h := newHarness(t)
	m := press(t, h.model, "ctrl+r")
	if m.currentView != ViewRegister {
		t.Fatalf("view = %v, want Register", m.currentView)
	}
	m.register.inputs[registerName].SetValue("Grace")
	m.register.inputs[registerEmail].SetValue("grace@example.com")
	m.register.inputs[registerPassword].SetValue("pw")
	m.register.focus = registerPassword

	m, cmd := update(t, m, keyMsg("enter"))
	m, _ = update(t, m, find[authDoneMsg](t, collect(cmd)))
	if m.currentView != ViewBooks {
		t.Fatalf("view = %v, want Books (err %q)", m.currentView, m.register.err)
	}
	if got := m.identity(); got != "Grace" {
		t.Fatalf("identity = %q, want Grace", got)
	}
}

func TestCreateBookNavigatesToListWithResetDraft(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "Ada", "ada@example.com", "pw")
	h.signIn(t, "ada@example.com", "pw")

	m := press(t, h.model, "c")
	if m.currentView != ViewCreate || m.create.pipeline == nil {
		t.Fatalf("create view not opened with a pipeline")
	}
	m.create.title.SetValue("Dune")
	m.create.genre.SetValue("Sci-Fi")
	m.create.description.SetValue("A desert planet saga of politics and prophecy.")
	m.create.cover.SetValue(writeTemp(t, "dune.png", "PNG"))
	m.create.document.SetValue(writeTemp(t, "dune.pdf", "PDF"))

	m, cmd := update(t, m, keyMsg("ctrl+s"))
	if !m.create.submitting {
		t.Fatalf("form not submitting after ctrl+s")
	}
	if !strings.Contains(m.View(), "Creating book...") {
		t.Fatalf("pending view missing spinner text:\n%s", m.View())
	}
	if _, again := update(t, m, keyMsg("ctrl+s")); again != nil {
		t.Fatalf("second submit while pending produced a command")
	}

	done := find[submitDoneMsg](t, collect(cmd))
	if done.err != nil {
		t.Fatalf("submit: %v", done.err)
	}
	m, _ = update(t, m, done)

	var created bookCreatedMsg
	select {
	case msg := <-m.events:
		created = msg.(bookCreatedMsg)
	case <-time.After(time.Second):
		t.Fatalf("no navigation event after success")
	}
	m, _ = update(t, m, created)

	if m.currentView != ViewBooks {
		t.Fatalf("view after create = %v, want Books", m.currentView)
	}
	if m.notice != `Created "Dune"` {
		t.Fatalf("notice = %q", m.notice)
	}
	if m.create.title.Value() != "" || m.create.cover.Value() != "" {
		t.Fatalf("draft not reset after success")
	}

	books, err := h.books.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(books) != 1 || books[0].Title != "Dune" {
		t.Fatalf("books = %+v, want Dune", books)
	}
}

func TestCreateValidationShowsFieldErrors(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "Ada", "ada@example.com", "pw")
	h.signIn(t, "ada@example.com", "pw")

	m := press(t, h.model, "c")
	m.create.title.SetValue("D")
	m.create.genre.SetValue("Sci-Fi")
	m.create.description.SetValue("long enough text")

	m, cmd := update(t, m, keyMsg("ctrl+s"))
	m, _ = update(t, m, find[submitDoneMsg](t, collect(cmd)))

	if m.currentView != ViewCreate {
		t.Fatalf("view = %v, want Create", m.currentView)
	}
	out := m.View()
	for _, want := range []string{
		"Title must be at least 2 characters.",
		"Cover image is required",
		"Book document is required",
		mutation.MsgValidation,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
	if m.create.focus != inputTitle {
		t.Fatalf("focus = %d, want first invalid input", m.create.focus)
	}

	books, err := h.books.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(books) != 0 {
		t.Fatalf("invalid draft reached the API: %+v", books)
	}
}

func TestCreateEscDiscardsLateResult(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "Ada", "ada@example.com", "pw")
	h.signIn(t, "ada@example.com", "pw")

	m := press(t, h.model, "c")
	m.create.title.SetValue("Emma")
	m.create.genre.SetValue("Classic")
	m.create.description.SetValue("Matchmaking in a small English village.")
	m.create.cover.SetValue(writeTemp(t, "emma.png", "PNG"))
	m.create.document.SetValue(writeTemp(t, "emma.pdf", "PDF"))

	m, cmd := update(t, m, keyMsg("ctrl+s"))
	m = press(t, m, "esc")
	m = press(t, m, "l")
	if m.currentView != ViewLogs {
		t.Fatalf("view = %v, want Logs", m.currentView)
	}

	for _, msg := range collect(cmd) {
		m, _ = update(t, m, msg)
	}
	select {
	case msg := <-m.events:
		t.Fatalf("closed pipeline still signalled %T", msg)
	default:
	}
	if m.currentView != ViewLogs {
		t.Fatalf("late result navigated to %v", m.currentView)
	}
	if m.create.title.Value() != "Emma" {
		t.Fatalf("draft changed by a discarded result")
	}
}

func TestLogoutReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "Ada", "ada@example.com", "pw")
	h.signIn(t, "ada@example.com", "pw")

	m := press(t, h.model, "L")
	if m.currentView != ViewLogin {
		t.Fatalf("view = %v, want Login", m.currentView)
	}
	if m.signedIn() {
		t.Fatalf("session still holds a token")
	}
	if got := m.login.value(loginEmail); got != "ada@example.com" {
		t.Fatalf("email = %q, want it kept for the next sign-in", got)
	}
}

func TestThemeCyclePersists(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "Ada", "ada@example.com", "pw")
	h.signIn(t, "ada@example.com", "pw")

	m := press(t, h.model, "T")
	if m.theme.Name != "Kanagawa" {
		t.Fatalf("theme = %q, want Kanagawa", m.theme.Name)
	}
	p, err := prefs.Load(h.prefsPath)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if p.Theme != "Kanagawa" || p.Email != "ada@example.com" {
		t.Fatalf("prefs = %+v, want Kanagawa and the remembered email", p)
	}
}

func TestLettersTypeIntoFormsInsteadOfShortcuts(t *testing.T) {
	h := newHarness(t)
	m := h.model
	m.login.focus = loginEmail
	_ = m.login.applyFocus()
	m.login.inputs[loginEmail].SetValue("")

	for _, r := range "qT?" {
		m = press(t, m, string(r))
	}
	if got := m.login.value(loginEmail); got != "qT?" {
		t.Fatalf("email = %q, want typed letters", got)
	}
	if m.theme.Name != "Nightfox" || m.showHelp {
		t.Fatalf("shortcut fired while typing")
	}
}

func TestLogsViewRendersTail(t *testing.T) {
	path := writeTemp(t, "bookdesk.log",
		`time="2024-05-01T12:00:00Z" level=info msg="book created" id=01HX title=Dune`+"\n"+
			`time="2024-05-01T12:00:01Z" level=warning msg="create book failed" status=400`+"\n"+
			"plain line\n")

	m := New(Options{PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"), LogPath: path})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m.currentView = ViewBooks

	m, cmd := update(t, m, keyMsg("l"))
	if m.currentView != ViewLogs {
		t.Fatalf("view = %v, want Logs", m.currentView)
	}
	m, _ = update(t, m, find[logsMsg](t, collect(cmd)))

	out := m.View()
	for _, want := range []string{"book created", "title=", "Dune", "WARN", "plain line", "following", "3 lines"} {
		if !strings.Contains(out, want) {
			t.Fatalf("logs view missing %q:\n%s", want, out)
		}
	}

	m = press(t, m, " ")
	if m.logs.follow {
		t.Fatalf("space did not pause following")
	}
	m = press(t, m, "esc")
	if m.currentView != ViewLogin {
		t.Fatalf("esc from logs while signed out = %v, want Login", m.currentView)
	}
}
