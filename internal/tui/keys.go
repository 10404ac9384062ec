package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Submit key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Clear:  key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func (k keyMap) help() string {
	var out string
	for i, b := range []key.Binding{k.Submit, k.Clear, k.Quit} {
		if i > 0 {
			out += " • "
		}
		out += b.Help().Key + " " + b.Help().Desc
	}
	return out
}
