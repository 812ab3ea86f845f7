package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	// Navigation
	Dashboard key.Binding
	Clients   key.Binding
	Invoices  key.Binding
	Settings  key.Binding

	// Actions
	Select key.Binding
	New    key.Binding
	Delete key.Binding
	Search key.Binding

	// Movement
	Up   key.Binding
	Down key.Binding
}

var DefaultKeyMap = KeyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Back:      key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Dashboard: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dashboard")),
	Clients:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clients")),
	Invoices:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "invoices")),
	Settings:  key.NewBinding(key.WithKeys(","), key.WithHelp(",", "settings")),
	Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
	Delete:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
	Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
}
