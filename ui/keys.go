package ui

import "github.com/charmbracelet/bubbles/key"

type readerKeyMap struct {
	Play     key.Binding
	Toggle   key.Binding
	Next     key.Binding
	Prev     key.Binding
	Up       key.Binding
	Down     key.Binding
	Stop     key.Binding
	Copy     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Back     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k readerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Play, k.Next, k.Prev, k.Help, k.Quit}
}

func (k readerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Toggle, k.Stop, k.Next, k.Prev},
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Copy, k.Back, k.Help, k.Quit},
	}
}

var readerKeys = readerKeyMap{
	Play:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "read from selection")),
	Toggle:   key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "play/stop")),
	Next:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next paragraph")),
	Prev:     key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "previous paragraph")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "select up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "select down")),
	Stop:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
	Copy:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy paragraph")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "b", "u"), key.WithHelp("b/pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "f", "d"), key.WithHelp("f/pgdn", "page down")),
	Back:     key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back to files")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type pickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Filter key.Binding
	Clear  key.Binding
	Reload key.Binding
	Quit   key.Binding
}

func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Filter, k.Quit}
}

func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Open}, {k.Filter, k.Clear, k.Reload, k.Quit}}
}

var pickerKeys = pickerKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Filter: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Clear:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),
	Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}
