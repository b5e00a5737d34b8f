package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the keyboard bindings. Single-letter bindings only apply
// outside the form views, where letters are typed into inputs.
type keyMap struct {
	// Global
	Quit       key.Binding
	ForceQuit  key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Back       key.Binding

	// Forms
	NextField  key.Binding
	PrevField  key.Binding
	Submit     key.Binding
	SubmitAll  key.Binding
	SwitchForm key.Binding

	// Books
	Refresh  key.Binding
	Create   key.Binding
	Logout   key.Binding
	ViewLogs key.Binding
	Up       key.Binding
	Down     key.Binding
	PrevPage key.Binding
	NextPage key.Binding

	// Logs
	ToggleFollow key.Binding
	Top          key.Binding
	Bottom       key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "Quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back / cancel"),
		),

		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Submit / next field"),
		),
		SubmitAll: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Submit from any field"),
		),
		SwitchForm: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "Sign in / register"),
		),

		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh books"),
		),
		Create: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Create book"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Log out"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Logs"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("p", "left", "pgup"),
			key.WithHelp("p/left", "Previous page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n", "right", "pgdown"),
			key.WithHelp("n/right", "Next page"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevPage, k.NextPage},
		{k.Refresh, k.Create, k.Logout, k.ViewLogs},
		{k.NextField, k.PrevField, k.Submit, k.SubmitAll, k.SwitchForm, k.Back},
		{k.ToggleFollow, k.Top, k.Bottom},
		{k.CycleTheme, k.Help, k.Quit, k.ForceQuit},
	}
}
