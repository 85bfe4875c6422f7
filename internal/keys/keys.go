// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the reader.
type KeyMap struct {
	// Page navigation
	NextPage  key.Binding
	PrevPage  key.Binding
	FirstPage key.Binding
	LastPage  key.Binding

	// Chapter navigation
	NextChapter key.Binding
	PrevChapter key.Binding

	// Layout toggles
	ToggleSplit     key.Binding
	ToggleNumbering key.Binding
	ToggleImages    key.Binding

	// Selection
	Yank     key.Binding
	ClearSel key.Binding

	// General
	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextPage: key.NewBinding(
			key.WithKeys("l", "right", "pgdown", " "),
			key.WithHelp("l/→/space", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("h", "left", "pgup"),
			key.WithHelp("h/←", "previous page"),
		),
		FirstPage: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "first page"),
		),
		LastPage: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "last page"),
		),
		NextChapter: key.NewBinding(
			key.WithKeys("]", "J"),
			key.WithHelp("]", "next chapter"),
		),
		PrevChapter: key.NewBinding(
			key.WithKeys("[", "K"),
			key.WithHelp("[", "previous chapter"),
		),
		ToggleSplit: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "toggle split view"),
		),
		ToggleNumbering: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "toggle page numbering mode"),
		),
		ToggleImages: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "toggle images"),
		),
		Yank: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy selection"),
		),
		ClearSel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear selection"),
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
