package tui

import "github.com/charmbracelet/bubbles/key"

// Keymap lists the bindings of the selector screen.
type Keymap struct {
	Quit      key.Binding
	Open      key.Binding
	Toggle    key.Binding
	Back      key.Binding
	Focus     key.Binding
	Clear     key.Binding
	ExportCSV key.Binding
	ExportPNG key.Binding
	LowerDown key.Binding
	LowerUp   key.Binding
	UpperDown key.Binding
	UpperUp   key.Binding
}

var Keys = Keymap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "pick values / apply"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "x"),
		key.WithHelp("space", "toggle value"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Focus: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "filters/results"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear filters"),
	),
	ExportCSV: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "save CSV"),
	),
	ExportPNG: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "save PNG"),
	),
	LowerDown: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[/]", "lower bound"),
	),
	LowerUp: key.NewBinding(
		key.WithKeys("]"),
	),
	UpperDown: key.NewBinding(
		key.WithKeys("{"),
		key.WithHelp("{/}", "upper bound"),
	),
	UpperUp: key.NewBinding(
		key.WithKeys("}"),
	),
}

// ShortHelp implements help.KeyMap.
func (k Keymap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Toggle, k.LowerDown, k.UpperDown, k.Clear, k.ExportCSV, k.ExportPNG, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k Keymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Open, k.Toggle, k.Back, k.Focus},
		{k.LowerDown, k.UpperDown, k.Clear},
		{k.ExportCSV, k.ExportPNG, k.Quit},
	}
}
