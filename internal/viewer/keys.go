package viewer

import "github.com/charmbracelet/bubbles/key"

// viewKeys holds key bindings for the main view.
type viewKeys struct {
	NextCase   key.Binding
	PrevCase   key.Binding
	JumpCase   key.Binding
	PrevResult key.Binding
	NextResult key.Binding
	Pick       key.Binding
	Focus      key.Binding
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Reload     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// ShortHelp returns the main bindings for the help bar.
func (k viewKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.NextCase, k.PrevResult, k.NextResult, k.Pick, k.Focus, k.Help, k.Quit}
}

// FullHelp returns all bindings grouped for expanded help.
func (k viewKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextCase, k.PrevCase, k.JumpCase},
		{k.PrevResult, k.NextResult, k.Pick},
		{k.Focus, k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Reload, k.Help, k.Quit},
	}
}

// pickerKeys holds key bindings while the result picker is open.
type pickerKeys struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Cancel key.Binding
}

// ShortHelp returns the picker bindings for the help bar.
func (k pickerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Cancel}
}

// FullHelp returns the picker bindings grouped for expanded help.
func (k pickerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Select, k.Cancel}}
}

// ViewKeyMap returns the key bindings for the main view.
func ViewKeyMap() viewKeys {
	return viewKeys{
		NextCase: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next case"),
		),
		PrevCase: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev case"),
		),
		JumpCase: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "jump to case"),
		),
		PrevResult: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev result"),
		),
		NextResult: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next result"),
		),
		Pick: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "pick result"),
		),
		Focus: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "focus pane"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "b"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", " "),
			key.WithHelp("pgdn", "page down"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// PickerKeyMap returns the key bindings for the result picker.
func PickerKeyMap() pickerKeys {
	return pickerKeys{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
