package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the review screen's keyboard shortcuts.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Approve  key.Binding
	Rename   key.Binding
	Category key.Binding
	Merge    key.Binding
	Skip     key.Binding
	Confirm  key.Binding
	Cancel   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		Approve: key.NewBinding(
			key.WithKeys("a", "y"),
			key.WithHelp("a/y", "approve as-is"),
		),
		Rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename"),
		),
		Category: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "change category"),
		),
		Merge: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "merge into selection"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s", "space"),
			key.WithHelp("s/Space", "skip"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Approve, k.Rename, k.Category, k.Merge, k.Skip, k.Help, k.Quit}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Approve, k.Rename, k.Category, k.Merge},
		{k.Skip, k.Confirm, k.Cancel, k.Quit},
	}
}
