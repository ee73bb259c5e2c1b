package personaselector

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Find       key.Binding
	Clear      key.Binding
	Left       key.Binding
	Right      key.Binding
	Up         key.Binding
	Down       key.Binding
	Select     key.Binding
	EditMode   key.Binding
	RunExample key.Binding
	EditCustom key.Binding
	Leave      key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Find:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Clear:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Left:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:     key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
		EditMode:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit tiles")),
		RunExample: key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "run example")),
		EditCustom: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "edit prompt")),
		Leave:      key.NewBinding(key.WithKeys("esc", "tab"), key.WithHelp("esc", "back")),
	}
}

// ShortHelp lists the bindings shown in the picker's footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Find, k.Select, k.EditMode, k.RunExample}
}
