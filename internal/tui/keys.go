package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up, Down, PageUp, PageDown key.Binding
	NextFile, PrevFile         key.Binding
	NextView, PrevView         key.Binding
	NextAdded, PrevAdded       key.Binding
	ChangedOnly                key.Binding
	Help, Quit                 key.Binding
}

func bind(label, desc string, ks ...string) key.Binding {
	return key.NewBinding(key.WithKeys(ks...), key.WithHelp(label, desc))
}

var keys = keyMap{
	Up:          bind("↑/k", "up", "up", "k"),
	Down:        bind("↓/j", "down", "down", "j"),
	PageUp:      bind("PgUp", "page up", "pgup", "ctrl+u"),
	PageDown:    bind("PgDn", "page down", "pgdown", "ctrl+d"),
	NextFile:    bind("n/tab", "next file", "n", "tab"),
	PrevFile:    bind("N/S-tab", "prev file", "N", "shift+tab"),
	NextView:    bind("v/→", "next view", "v", "right", "l"),
	PrevView:    bind("V/←", "prev view", "V", "left", "h"),
	NextAdded:   bind("]", "next addition", "]"),
	PrevAdded:   bind("[", "prev addition", "["),
	ChangedOnly: bind("c", "changed files only", "c"),
	Help:        bind("?", "help", "?"),
	Quit:        bind("q", "quit", "q", "ctrl+c"),
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextFile, k.NextView, k.NextAdded, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap, one column per concern.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.NextFile, k.PrevFile, k.ChangedOnly},
		{k.NextView, k.PrevView, k.NextAdded, k.PrevAdded},
		{k.Help, k.Quit},
	}
}
