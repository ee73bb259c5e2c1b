package personaselector

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/personachat/internal/catalog"
)

const notFoundText = "Oops! No AI persona found for your search."

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	tileStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	activeTile    = tileStyle.BorderForeground(lipgloss.Color("63")).Bold(true)
	cursorTile    = tileStyle.BorderForeground(lipgloss.Color("212"))
	hiddenTile    = tileStyle.Foreground(lipgloss.Color("243"))
	badgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	exampleStyle  = lipgloss.NewStyle().Italic(true)
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	notFoundStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

func (m Model) View() string {
	active, ok := m.ActivePersona()
	if !ok || m.opts.Chat == nil {
		return ""
	}

	var b strings.Builder
	header := "AI Persona"
	if m.editMode {
		header += subtleStyle.Render("  editing visibility, e to finish")
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")
	if m.showFinder {
		b.WriteString(m.finder.View())
		b.WriteString("\n")
	}
	b.WriteString(m.viewTiles())
	b.WriteString("\n")

	switch {
	case m.NotFound():
		msg := notFoundText
		if s, ok := m.opts.Catalog.Suggest(m.finder.Value()); ok {
			msg += " Did you mean " + s.Title + "?"
		}
		b.WriteString(notFoundStyle.Render(msg))
	case m.example != "":
		b.WriteString(exampleStyle.Render("Example: " + m.example))
		b.WriteString(subtleStyle.Render("  [r] run"))
	default:
		b.WriteString(subtleStyle.Render(active.Description))
	}
	b.WriteString("\n")
	if active.ID == catalog.CustomID && !m.NotFound() {
		b.WriteString(subtleStyle.Render("System message (tab to edit, not saved across restarts)"))
		b.WriteString("\n")
		b.WriteString(m.editor.View())
		b.WriteString("\n")
	}
	b.WriteString(m.help.ShortHelpView(m.KeyMap.ShortHelp()))
	return b.String()
}

func (m Model) viewTiles() string {
	tiles := m.Tiles()
	cols := m.columns()
	var rows []string
	for start := 0; start < len(tiles); start += cols {
		end := min(start+cols, len(tiles))
		cells := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			cells = append(cells, m.viewTile(i, tiles[i]))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) viewTile(i int, id string) string {
	var label string
	if id == catalog.CreatorTileID {
		label = "✨ Persona Creator"
	} else {
		p, _ := m.opts.Catalog.Lookup(id)
		label = strings.TrimSpace(p.Symbol + " " + p.Title)
		if p.Highlighted {
			label += badgeStyle.Render(" •")
		}
	}
	if m.editMode {
		box := "[x] "
		if m.isHidden(id) {
			box = "[ ] "
		}
		label = box + label
	}

	style := tileStyle
	switch {
	case i == m.cursor && m.focus == focusTiles:
		style = cursorTile
	case id == m.binding.PurposeID:
		style = activeTile
	case m.editMode && m.isHidden(id):
		style = hiddenTile
	}
	return style.Width(m.opts.TileWidth).Render(label)
}
