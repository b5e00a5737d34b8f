package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/bookdesk/internal/auth"
	"github.com/five82/bookdesk/internal/bookapi"
	"github.com/five82/bookdesk/internal/mutation"
	"github.com/five82/bookdesk/internal/prefs"
)

// Input positions in the sign-in and registration forms.
const (
	loginEmail = iota
	loginPassword
)

const (
	registerName = iota
	registerEmail
	registerPassword
)

const msgBadCredentials = "Invalid email or password."

// authForm backs the sign-in and registration views.
type authForm struct {
	view   View
	title  string
	labels []string
	inputs []textinput.Model
	focus  int

	busy bool
	gen  int
	err  string
}

func newTextInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	return ti
}

func newPasswordInput() textinput.Model {
	ti := newTextInput("password", 128)
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	return ti
}

func newLoginForm(lastEmail string) authForm {
	email := newTextInput("you@example.com", 254)
	email.SetValue(lastEmail)
	f := authForm{
		view:   ViewLogin,
		title:  "Sign in",
		labels: []string{"Email", "Password"},
		inputs: []textinput.Model{email, newPasswordInput()},
	}
	f.focusFirst()
	return f
}

func newRegisterForm() authForm {
	f := authForm{
		view:   ViewRegister,
		title:  "Create an account",
		labels: []string{"Name", "Email", "Password"},
		inputs: []textinput.Model{
			newTextInput("Ada Lovelace", 100),
			newTextInput("you@example.com", 254),
			newPasswordInput(),
		},
	}
	f.focusFirst()
	return f
}

// focusFirst focuses the first empty input.
func (f *authForm) focusFirst() tea.Cmd {
	f.focus = len(f.inputs) - 1
	for i, in := range f.inputs {
		if in.Value() == "" {
			f.focus = i
			break
		}
	}
	return f.applyFocus()
}

func (f *authForm) move(delta int) tea.Cmd {
	n := len(f.inputs)
	f.focus = ((f.focus+delta)%n + n) % n
	return f.applyFocus()
}

func (f *authForm) applyFocus() tea.Cmd {
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == f.focus {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

func (f *authForm) update(msg tea.Msg) tea.Cmd {
	if f.busy || len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *authForm) value(i int) string {
	return f.inputs[i].Value()
}

// clearPassword empties the password input, which is always last.
func (f *authForm) clearPassword() {
	f.inputs[len(f.inputs)-1].Reset()
}

func (f *authForm) setWidth(w int) {
	for i := range f.inputs {
		f.inputs[i].Width = w
	}
}

// handleLoginKey processes keyboard input for the sign-in view.
func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.login
	switch {
	case key.Matches(msg, m.keys.SwitchForm):
		f.err = ""
		return m, m.switchTo(ViewRegister)
	case key.Matches(msg, m.keys.NextField):
		return m, f.move(1)
	case key.Matches(msg, m.keys.PrevField):
		return m, f.move(-1)
	case key.Matches(msg, m.keys.Submit):
		if f.busy {
			return m, nil
		}
		if f.focus < len(f.inputs)-1 {
			return m, f.move(1)
		}
		f.busy = true
		f.err = ""
		f.gen++
		return m, loginCmd(m.ctx, m.auth, f.gen, f.value(loginEmail), f.value(loginPassword))
	}
	return m, f.update(msg)
}

// handleRegisterKey processes keyboard input for the registration view.
func (m Model) handleRegisterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.register
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.SwitchForm):
		f.gen++
		f.busy = false
		f.err = ""
		return m, m.switchTo(ViewLogin)
	case key.Matches(msg, m.keys.NextField):
		return m, f.move(1)
	case key.Matches(msg, m.keys.PrevField):
		return m, f.move(-1)
	case key.Matches(msg, m.keys.Submit):
		if f.busy {
			return m, nil
		}
		if f.focus < len(f.inputs)-1 {
			return m, f.move(1)
		}
		f.busy = true
		f.err = ""
		f.gen++
		return m, registerCmd(m.ctx, m.auth, f.gen,
			f.value(registerName), f.value(registerEmail), f.value(registerPassword))
	}
	return m, f.update(msg)
}

// handleAuthDone applies a sign-in or registration result.
func (m Model) handleAuthDone(msg authDoneMsg) (tea.Model, tea.Cmd) {
	f := &m.login
	if msg.view == ViewRegister {
		f = &m.register
	}
	if msg.gen != f.gen {
		return m, nil
	}
	f.busy = false
	if msg.err != nil {
		f.err = authErrorMessage(msg.err)
		return m, nil
	}

	f.clearPassword()
	if msg.view == ViewRegister {
		m.register = newRegisterForm()
		m.login.inputs[loginEmail].SetValue(strings.TrimSpace(msg.email))
	}
	email := strings.TrimSpace(msg.email)
	if _, err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Email = email }); err != nil {
		m.notice = "Could not save preferences: " + err.Error()
	} else {
		m.notice = "Signed in as " + m.identity()
	}
	m.list = bookList{}
	return m, m.switchTo(ViewBooks)
}

// logout clears the session and returns to the sign-in view.
func (m *Model) logout() tea.Cmd {
	m.create.cancel()
	if m.auth != nil {
		m.auth.Logout()
	}
	m.login.clearPassword()
	m.login.err = ""
	m.notice = "Signed out"
	return m.switchTo(ViewLogin)
}

// identity is the signed-in user's display label.
func (m Model) identity() string {
	if m.session == nil {
		return ""
	}
	if claims, ok := m.session.Claims(); ok {
		return claims.Label()
	}
	if _, ok := m.session.Token(); ok {
		return "signed in"
	}
	return ""
}

// authErrorMessage turns a sign-in failure into one line for the form.
func authErrorMessage(err error) string {
	if errors.Is(err, auth.ErrMissingField) || errors.Is(err, auth.ErrInvalidEmail) {
		msg := err.Error()
		return strings.ToUpper(msg[:1]) + msg[1:] + "."
	}
	var apiErr *bookapi.Error
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.Canceled) {
			return mutation.MsgCancelled
		}
		return err.Error()
	}
	switch apiErr.Kind {
	case bookapi.KindUnreachable:
		return mutation.MsgUnreachable
	case bookapi.KindTimeout:
		return mutation.MsgTimeout
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	if apiErr.Kind == bookapi.KindAuth {
		return msgBadCredentials
	}
	return apiErr.Error()
}

// renderAuthForm renders a sign-in or registration form in a centered box.
func (m Model) renderAuthForm(f *authForm) string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(f.title))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		label := styles.MutedText
		if i == f.focus {
			label = styles.AccentText
		}
		b.WriteString(label.Render(f.labels[i]))
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}

	switch {
	case f.busy:
		b.WriteString(styles.WarningText.Render("Contacting server..."))
	case f.err != "":
		b.WriteString(styles.DangerText.Render(f.err))
	}
	b.WriteString("\n\n")

	if f.view == ViewLogin {
		b.WriteString(styles.FaintText.Render("No account? ctrl+r to register"))
	} else {
		b.WriteString(styles.FaintText.Render("esc to go back to sign in"))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
		Padding(1, 2).
		Width(formWidth(m.width) + 6).
		Render(b.String())

	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center, box)
}

// Messages

type authDoneMsg struct {
	view  View
	gen   int
	email string
	err   error
}

// Commands

func loginCmd(ctx context.Context, svc *auth.Service, gen int, email, password string) tea.Cmd {
	return func() tea.Msg {
		if svc == nil {
			return authDoneMsg{view: ViewLogin, gen: gen, email: email, err: errors.New("sign-in is unavailable")}
		}
		err := svc.Login(ctx, email, password)
		return authDoneMsg{view: ViewLogin, gen: gen, email: email, err: err}
	}
}

func registerCmd(ctx context.Context, svc *auth.Service, gen int, name, email, password string) tea.Cmd {
	return func() tea.Msg {
		if svc == nil {
			return authDoneMsg{view: ViewRegister, gen: gen, email: email, err: errors.New("registration is unavailable")}
		}
		err := svc.Register(ctx, name, email, password)
		return authDoneMsg{view: ViewRegister, gen: gen, email: email, err: err}
	}
}
