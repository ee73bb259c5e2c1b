// Package dropdown is a compact single-select control for page bars.
//
// The control is driven by its Props: the selected key lives with the caller
// and every change is reported through OnChange. The only state kept here is
// the listbox's open flag and highlighted row.
package dropdown

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Item is one entry of the ordered item list. A Separator renders as a
// divider and can never be selected.
type Item struct {
	Key       string
	Title     string
	Symbol    string
	Icon      string
	Separator bool
}

// Option is an extra entry rendered before or after the items block.
type Option struct {
	Key   string
	Title string
}

// Props configure the control. Value "" means nothing is selected, and
// OnChange receives "" when the selection is cleared.
type Props struct {
	Items       []Item
	Value       string
	OnChange    func(key string) tea.Cmd
	Placeholder string
	ShowSymbols bool
	Prepend     []Option
	Append      []Option
	Style       lipgloss.Style
}

type KeyMap struct {
	Open   key.Binding
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Clear  key.Binding
	Close  key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Open:   key.NewBinding(key.WithKeys("enter", " ", "down"), key.WithHelp("enter", "open")),
		Up:     key.NewBinding(key.WithKeys("up", "k", "shift+tab"), key.WithHelp("↑", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j", "tab"), key.WithHelp("↓", "down")),
		Choose: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "choose")),
		Clear:  key.NewBinding(key.WithKeys("delete", "backspace"), key.WithHelp("del", "clear")),
		Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

var (
	controlStyle  = lipgloss.NewStyle().Bold(true)
	indicator     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(" ▾")
	placeholder   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	listboxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlighted   = lipgloss.NewStyle().Reverse(true)
	dividerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	minOptionCols = 16
)

type rowKind int

const (
	rowOption rowKind = iota
	rowDivider
)

type row struct {
	kind  rowKind
	key   string
	label string
}

// Model is the dropdown control.
type Model struct {
	Props
	KeyMap KeyMap

	open   bool
	cursor int
}

func New(p Props) Model {
	return Model{Props: p, KeyMap: DefaultKeyMap()}
}

// SetProps replaces the caller-controlled props, keeping the listbox state.
func (m *Model) SetProps(p Props) {
	m.Props = p
	m.clampCursor()
}

func (m Model) IsOpen() bool { return m.open }

// OpenList expands the listbox with the selected row highlighted.
func (m *Model) OpenList() { m.openAtValue() }

// Close collapses the listbox without selecting anything.
func (m *Model) Close() { m.open = false }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if !m.open {
		switch {
		case key.Matches(km, m.KeyMap.Open):
			m.openAtValue()
		case key.Matches(km, m.KeyMap.Clear):
			return m, m.change("")
		}
		return m, nil
	}
	switch {
	case key.Matches(km, m.KeyMap.Close):
		m.open = false
	case key.Matches(km, m.KeyMap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, m.KeyMap.Down):
		if m.cursor < len(m.selectable())-1 {
			m.cursor++
		}
	case key.Matches(km, m.KeyMap.Choose):
		m.open = false
		if r, ok := m.highlighted(); ok {
			return m, m.change(r.key)
		}
	case key.Matches(km, m.KeyMap.Clear):
		m.open = false
		return m, m.change("")
	}
	return m, nil
}

func (m Model) change(k string) tea.Cmd {
	if k == m.Value || m.OnChange == nil {
		return nil
	}
	return m.OnChange(k)
}

func (m *Model) openAtValue() {
	m.open = true
	m.cursor = 0
	for i, r := range m.selectable() {
		if r.key == m.Value {
			m.cursor = i
			break
		}
	}
}

func (m *Model) clampCursor() {
	if n := len(m.selectable()); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m Model) highlighted() (row, bool) {
	rows := m.selectable()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return row{}, false
	}
	return rows[m.cursor], true
}

func (m Model) rows() []row {
	regular := 0
	for _, it := range m.Items {
		if !it.Separator {
			regular++
		}
	}
	out := make([]row, 0, len(m.Items)+len(m.Prepend)+len(m.Append)+2)
	for _, o := range m.Prepend {
		out = append(out, row{kind: rowOption, key: o.Key, label: o.Title})
	}
	if len(m.Prepend) > 0 && regular > 0 {
		out = append(out, row{kind: rowDivider})
	}
	for _, it := range m.Items {
		if it.Separator {
			out = append(out, row{kind: rowDivider})
			continue
		}
		out = append(out, row{kind: rowOption, key: it.Key, label: m.itemLabel(it)})
	}
	if len(m.Append) > 0 && regular > 0 {
		out = append(out, row{kind: rowDivider})
	}
	for _, o := range m.Append {
		out = append(out, row{kind: rowOption, key: o.Key, label: o.Title})
	}
	return out
}

func (m Model) selectable() []row {
	all := m.rows()
	out := all[:0]
	for _, r := range all {
		if r.kind == rowOption {
			out = append(out, r)
		}
	}
	return out
}

func (m Model) itemLabel(it Item) string {
	if !m.ShowSymbols {
		return it.Title
	}
	switch {
	case it.Icon != "":
		return it.Icon + " " + it.Title
	case it.Symbol != "":
		return it.Symbol + " " + it.Title
	}
	return it.Title
}

// selectedLabel returns the label of the selected key, or "" when the key is
// unknown (including separators) or empty.
func (m Model) selectedLabel() string {
	if m.Value == "" {
		return ""
	}
	for _, r := range m.rows() {
		if r.kind == rowOption && r.key == m.Value {
			return r.label
		}
	}
	return ""
}

func (m Model) View() string {
	label := m.selectedLabel()
	if label == "" {
		label = placeholder.Render(m.Placeholder)
	}
	control := m.Style.Inherit(controlStyle).Render(label) + indicator
	if !m.open {
		return control
	}

	rows := m.rows()
	width := minOptionCols
	for _, r := range rows {
		width = max(width, lipgloss.Width(r.label)+2)
	}
	current, _ := m.highlighted()
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.kind == rowDivider {
			lines = append(lines, dividerStyle.Render(strings.Repeat("─", width)))
			continue
		}
		marker := "  "
		if r.key == m.Value {
			marker = "✓ "
		}
		line := marker + r.label
		if r.key == current.key {
			line = highlighted.Render(line)
		}
		lines = append(lines, line)
	}
	return control + "\n" + listboxStyle.Render(strings.Join(lines, "\n"))
}
