package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Compare    key.Binding
	Back       key.Binding
	SelectRepo key.Binding
	SelectBase key.Binding
	Apply      key.Binding
	Explain    key.Binding
	Layout     key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Compare: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "diff"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		SelectRepo: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "repo"),
		),
		SelectBase: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "base"),
		),
		Apply: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "apply"),
		),
		Explain: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "explain"),
		),
		Layout: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "layout"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
