package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/personachat/internal/database/repository"
)

// styles
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	barStyle      = lipgloss.NewStyle().Padding(0, 1)
	personaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	userStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	systemStyle   = lipgloss.NewStyle().Faint(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
)

func (a *App) View() string {
	var body string
	switch a.state {
	case viewPersonas:
		body = a.renderPersonas()
	default:
		body = a.renderChat()
	}
	return strings.Join([]string{a.renderBar(), body, a.renderStatus()}, "\n\n")
}

func (a *App) renderBar() string {
	persona := ""
	if b := a.stores.Chat.PurposeBinding(a.convID); b.Found {
		if p, ok := a.cat.Lookup(b.PurposeID); ok {
			persona = personaStyle.Render(strings.TrimSpace(p.Symbol + " " + p.Title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		barStyle.Render(titleStyle.Render("personachat")),
		barStyle.Render(a.convPicker.View()),
		barStyle.Render(persona),
	)
}

func (a *App) renderChat() string {
	if len(a.transcript) == 0 {
		return a.selector.View()
	}
	var b strings.Builder
	for _, m := range a.transcript {
		b.WriteString(renderMessage(m))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(a.composer.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("[enter] send  [ctrl+l] clear  [ctrl+n] new  [ctrl+o] conversations"))
	return b.String()
}

func renderMessage(m repository.Message) string {
	switch m.Role {
	case repository.RoleUser:
		return userStyle.Render("you") + "  " + m.Text
	case repository.RoleAssistant:
		return assistStyle.Render("assistant") + "  " + m.Text
	}
	return systemStyle.Render(m.Text)
}

func (a *App) renderPersonas() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Personas"))
	b.WriteString("\n")
	personas := a.cat.Personas()
	for i, p := range personas {
		mark := "  "
		if a.stores.Purposes.IsHidden(p.ID) {
			mark = "× "
		}
		line := fmt.Sprintf("%s%-3s %-22s %s", mark, p.Symbol, p.Title, p.Description)
		if i == a.personaCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if a.personaCursor < len(personas) {
		p := personas[a.personaCursor]
		b.WriteString("\n")
		b.WriteString(systemStyle.Render(strings.TrimSpace(p.SystemMessage)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("[enter] use for conversation  [space] hide/show  [esc] back"))
	return b.String()
}

func (a *App) renderStatus() string {
	if strings.HasPrefix(a.status, "error:") {
		return errorStyle.Render(a.status)
	}
	return statusStyle.Render(a.status)
}
