package tui

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"pkt.systems/pslog"

	"github.com/jask/personachat/internal/catalog"
	"github.com/jask/personachat/internal/database/repository"
	"github.com/jask/personachat/internal/state"
	"github.com/jask/personachat/internal/tui/dropdown"
	"github.com/jask/personachat/internal/tui/personaselector"
)

const newConversationKey = "__new__"

// App ties together views.
type App struct {
	ctx    context.Context
	log    pslog.Logger
	cat    *catalog.Catalog
	stores Stores
	opts   Options

	state      appState
	convID     string
	convs      []repository.Conversation
	transcript []repository.Message

	convPicker    dropdown.Model
	selector      personaselector.Model
	composer      textinput.Model
	personaCursor int
	status        string
	width         int
	height        int

	convFeed       *feed[[]repository.Conversation]
	transcriptFeed *feed[[]repository.Message]
}

type Stores struct {
	Chat     *state.ChatStore
	Purposes *state.PurposeStore
	Prefs    *state.PrefsStore
	Messages *state.MessageLog
}

type Options struct {
	// ConversationID is opened first; empty or unknown opens the first one.
	ConversationID string
	DefaultPersona string
	Rand           *rand.Rand
	TileWidth      int
}

type appState string

const (
	viewChat     appState = "chat"
	viewPersonas appState = "personas"
)

type (
	statusMsg string
	errMsg    struct{ error }

	switchConversationMsg string
	newConversationMsg    struct{}
	navigatePersonasMsg   struct{}

	conversationsMsg struct {
		src  *feed[[]repository.Conversation]
		list []repository.Conversation
	}
	transcriptMsg struct {
		src  *feed[[]repository.Message]
		msgs []repository.Message
	}
)

func New(ctx context.Context, cat *catalog.Catalog, stores Stores, opts Options) *App {
	if opts.DefaultPersona == "" {
		opts.DefaultPersona = "Generic"
	}
	composer := textinput.New()
	composer.Placeholder = "Type a message"
	composer.Prompt = "> "
	composer.CharLimit = 4000

	a := &App{
		ctx:      ctx,
		log:      pslog.Ctx(ctx).With("component", "tui"),
		cat:      cat,
		stores:   stores,
		opts:     opts,
		state:    viewChat,
		composer: composer,
		width:    80,
	}
	a.convs = stores.Chat.Conversations()
	a.convID = opts.ConversationID
	if _, ok := stores.Chat.Conversation(a.convID); !ok {
		a.convID = ""
		if len(a.convs) > 0 {
			a.convID = a.convs[0].ID
		}
	}
	if a.convID == "" {
		conv, err := stores.Chat.Create(ctx, "", opts.DefaultPersona)
		if err != nil {
			a.status = "error: " + err.Error()
		} else {
			a.convID = conv.ID
			a.convs = stores.Chat.Conversations()
		}
	}
	a.convPicker = dropdown.New(a.conversationProps())
	return a
}

func (a *App) Init() tea.Cmd {
	ch, cancel := a.stores.Chat.WatchConversations()
	a.convFeed = newFeed(ch, cancel)
	return tea.Batch(a.waitConversations(), a.openConversation(a.convID))
}

func (a *App) waitConversations() tea.Cmd {
	return a.convFeed.next(func(f *feed[[]repository.Conversation], list []repository.Conversation) tea.Msg {
		return conversationsMsg{src: f, list: list}
	})
}

func (a *App) waitTranscript() tea.Cmd {
	return a.transcriptFeed.next(func(f *feed[[]repository.Message], msgs []repository.Message) tea.Msg {
		return transcriptMsg{src: f, msgs: msgs}
	})
}

// openConversation rebinds the picker and transcript to id.
func (a *App) openConversation(id string) tea.Cmd {
	a.selector.Close()
	a.transcriptFeed.stop()
	a.convID = id
	a.transcript = nil
	a.state = viewChat
	a.composer.Reset()
	a.convPicker.SetProps(a.conversationProps())
	if id == "" {
		return nil
	}

	a.selector = personaselector.New(personaselector.Options{
		Context:        a.ctx,
		ConversationID: id,
		RunExample:     a.runExample,
		Navigate:       func() tea.Cmd { return func() tea.Msg { return navigatePersonasMsg{} } },
		Catalog:        a.cat,
		Chat:           a.stores.Chat,
		Purposes:       a.stores.Purposes,
		Prefs:          a.stores.Prefs,
		Rand:           a.opts.Rand,
		TileWidth:      a.opts.TileWidth,
	})
	a.selector, _ = a.selector.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
	cmds := []tea.Cmd{a.selector.Init()}

	ch, cancel := a.stores.Messages.WatchTranscript(id)
	a.transcriptFeed = newFeed(ch, cancel)
	cmds = append(cmds, a.waitTranscript(), a.loadTranscript(id))
	a.log.Debug("conversation opened", "conversation", id)
	return tea.Batch(cmds...)
}

func (a *App) loadTranscript(id string) tea.Cmd {
	return func() tea.Msg {
		if _, err := a.stores.Messages.List(a.ctx, id); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (a *App) conversationProps() dropdown.Props {
	items := make([]dropdown.Item, 0, len(a.convs))
	for i, c := range a.convs {
		items = append(items, dropdown.Item{
			Key:    c.ID,
			Title:  conversationTitle(c, i),
			Symbol: a.personaSymbol(c.SystemPurposeID),
		})
	}
	return dropdown.Props{
		Items:       items,
		Value:       a.convID,
		Placeholder: "Select a conversation",
		ShowSymbols: true,
		Prepend:     []dropdown.Option{{Key: newConversationKey, Title: "+ New conversation"}},
		OnChange: func(k string) tea.Cmd {
			switch k {
			case "":
				return nil
			case newConversationKey:
				return func() tea.Msg { return newConversationMsg{} }
			}
			return func() tea.Msg { return switchConversationMsg(k) }
		},
	}
}

func (a *App) personaSymbol(id string) string {
	if p, ok := a.cat.Lookup(id); ok {
		return p.Symbol
	}
	return ""
}

func conversationTitle(c repository.Conversation, i int) string {
	if t := strings.TrimSpace(c.Title); t != "" {
		return t
	}
	return fmt.Sprintf("Conversation %d", i+1)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(m)
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.composer.Width = max(10, m.Width-4)
		var cmd tea.Cmd
		a.selector, cmd = a.selector.Update(m)
		return a, cmd
	case conversationsMsg:
		if m.src != a.convFeed {
			return a, nil
		}
		a.convs = m.list
		if _, ok := a.stores.Chat.Conversation(a.convID); !ok && len(a.convs) > 0 {
			return a, tea.Batch(a.waitConversations(), a.openConversation(a.convs[0].ID))
		}
		a.convPicker.SetProps(a.conversationProps())
		return a, a.waitConversations()
	case transcriptMsg:
		if m.src != a.transcriptFeed {
			return a, nil
		}
		hadMessages := len(a.transcript) > 0
		a.transcript = m.msgs
		if !hadMessages && len(a.transcript) > 0 {
			return a, tea.Batch(a.waitTranscript(), a.composer.Focus())
		}
		return a, a.waitTranscript()
	case switchConversationMsg:
		return a, a.openConversation(string(m))
	case newConversationMsg:
		return a, a.newConversation()
	case navigatePersonasMsg:
		a.log.Debug("persona management opened")
		a.state = viewPersonas
		a.personaCursor = 0
		return a, nil
	case statusMsg:
		a.status = string(m)
	case errMsg:
		a.log.Error("operation failed", "err", m.error)
		a.status = "error: " + m.Error()
	case personaselector.ErrorMsg:
		a.log.Error("persona update failed", "err", m.Err)
		a.status = "error: " + m.Error()
	default:
		var cmd tea.Cmd
		a.selector, cmd = a.selector.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.String() == "ctrl+c" {
		a.selector.Close()
		a.transcriptFeed.stop()
		a.convFeed.stop()
		return a, tea.Quit
	}
	if a.convPicker.IsOpen() {
		var cmd tea.Cmd
		a.convPicker, cmd = a.convPicker.Update(m)
		return a, cmd
	}
	switch m.String() {
	case "ctrl+o":
		a.convPicker.OpenList()
		return a, nil
	case "ctrl+n":
		return a, a.newConversation()
	case "ctrl+f":
		if err := a.stores.Prefs.ToggleFinder(); err != nil {
			return a, func() tea.Msg { return errMsg{fmt.Errorf("save preferences: %w", err)} }
		}
		return a, nil
	case "ctrl+g":
		return a, func() tea.Msg { return navigatePersonasMsg{} }
	}
	if a.state == viewPersonas {
		return a.handlePersonasKey(m)
	}
	if len(a.transcript) == 0 {
		var cmd tea.Cmd
		a.selector, cmd = a.selector.Update(m)
		return a, cmd
	}
	return a.handleComposerKey(m)
}

func (a *App) handleComposerKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "enter":
		text := strings.TrimSpace(a.composer.Value())
		if text == "" {
			return a, nil
		}
		a.composer.Reset()
		return a, a.send(a.convID, text)
	case "ctrl+l":
		return a, a.clearTranscript(a.convID)
	}
	var cmd tea.Cmd
	a.composer, cmd = a.composer.Update(m)
	return a, cmd
}

func (a *App) handlePersonasKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	personas := a.cat.Personas()
	switch m.String() {
	case "esc", "q":
		a.state = viewChat
	case "up", "k":
		if a.personaCursor > 0 {
			a.personaCursor--
		}
	case "down", "j":
		if a.personaCursor < len(personas)-1 {
			a.personaCursor++
		}
	case " ", "h":
		if a.personaCursor < len(personas) {
			id := personas[a.personaCursor].ID
			return a, a.toggleHidden(id)
		}
	case "enter":
		if a.personaCursor < len(personas) {
			id := personas[a.personaCursor].ID
			a.state = viewChat
			return a, a.selectPersona(a.convID, id)
		}
	}
	return a, nil
}

// runExample is the picker's example runner: the prompt becomes the first
// user message of the conversation.
func (a *App) runExample(example string) tea.Cmd {
	a.log.Info("example run", "conversation", a.convID, "example", example)
	return a.send(a.convID, example)
}

func (a *App) send(convID, text string) tea.Cmd {
	return func() tea.Msg {
		if _, err := a.stores.Messages.Append(a.ctx, convID, repository.RoleUser, text); err != nil {
			return errMsg{err}
		}
		if conv, ok := a.stores.Chat.Conversation(convID); ok && strings.TrimSpace(conv.Title) == "" {
			if err := a.stores.Chat.Rename(a.ctx, convID, autoTitle(text)); err != nil {
				return errMsg{err}
			}
		}
		return statusMsg("")
	}
}

func (a *App) clearTranscript(convID string) tea.Cmd {
	return func() tea.Msg {
		if err := a.stores.Messages.Clear(a.ctx, convID); err != nil {
			return errMsg{err}
		}
		return statusMsg("conversation cleared")
	}
}

func (a *App) newConversation() tea.Cmd {
	persona := a.opts.DefaultPersona
	if b := a.stores.Chat.PurposeBinding(a.convID); b.Found {
		persona = b.PurposeID
	}
	conv, err := a.stores.Chat.Create(a.ctx, "", persona)
	if err != nil {
		return func() tea.Msg { return errMsg{err} }
	}
	a.convs = a.stores.Chat.Conversations()
	return a.openConversation(conv.ID)
}

func (a *App) toggleHidden(id string) tea.Cmd {
	return func() tea.Msg {
		if err := a.stores.Purposes.ToggleHidden(a.ctx, id); err != nil {
			return errMsg{err}
		}
		if a.stores.Purposes.IsHidden(id) {
			return statusMsg("hidden " + id)
		}
		return statusMsg("showing " + id)
	}
}

func (a *App) selectPersona(convID, id string) tea.Cmd {
	return func() tea.Msg {
		if err := a.stores.Chat.SetSystemPurposeID(a.ctx, convID, id); err != nil {
			return errMsg{err}
		}
		return statusMsg("persona: " + id)
	}
}

func autoTitle(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	const limit = 40
	if r := []rune(text); len(r) > limit {
		return strings.TrimSpace(string(r[:limit-1])) + "…"
	}
	return text
}
