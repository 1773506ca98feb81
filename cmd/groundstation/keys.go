package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Connect key.Binding
	Rescan  key.Binding
	Clear   key.Binding
	Restart key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Connect, k.Rescan, k.Clear, k.Restart, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Connect, k.Rescan},
		{k.Clear, k.Restart},
		{k.Help, k.Quit},
	}
}

// forScreen enables only the bindings that do something on s.
func (k keyMap) forScreen(s screen) keyMap {
	picking := s == screenPicker
	k.Up.SetEnabled(picking)
	k.Down.SetEnabled(picking)
	k.Connect.SetEnabled(picking)
	k.Rescan.SetEnabled(picking)
	k.Clear.SetEnabled(s == screenLive)
	k.Restart.SetEnabled(s == screenLive)
	return k
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Connect: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "connect"),
	),
	Rescan: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "rescan ports"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear trail"),
	),
	Restart: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "restart at origin"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
}
