package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up         key.Binding
	down       key.Binding
	enter      key.Binding
	back       key.Binding
	focus      key.Binding
	search     key.Binding
	searchType key.Binding
	login      key.Binding
	logout     key.Binding
	add        key.Binding
	remove     key.Binding
	refresh    key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		focus:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
		search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		searchType: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "search by")),
		login:      key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "log in")),
		logout:     key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		add:        key.NewBinding(key.WithKeys("a", "enter"), key.WithHelp("a", "add to shelf")),
		remove:     key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "remove")),
		refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.focus, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.focus, k.search, k.searchType},
		{k.login, k.logout, k.add, k.remove, k.refresh},
		{k.quit},
	}
}
