// Package personaselector renders the persona tiles of one conversation.
//
// The picker reads the conversation's persona binding, the hidden persona set
// and the finder preference from stores it does not own, and only subscribes
// to those derived values. Its own state is limited to the search query, the
// filtered id list, the edit-mode flag and keyboard focus.
package personaselector

import (
	"context"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/personachat/internal/catalog"
	"github.com/jask/personachat/internal/state"
)

// ChatStore is the conversation store as seen by the picker.
type ChatStore interface {
	PurposeBinding(conversationID string) state.PurposeBinding
	SetSystemPurposeID(ctx context.Context, conversationID, purposeID string) error
	WatchPurposeBinding(conversationID string) (<-chan state.PurposeBinding, func())
}

// PurposeStore is the hidden persona set as seen by the picker.
type PurposeStore interface {
	HiddenIDs() []string
	ToggleHidden(ctx context.Context, id string) error
	WatchHidden() (<-chan []string, func())
}

// PrefsStore exposes the finder preference.
type PrefsStore interface {
	ShowFinder() bool
	WatchShowFinder() (<-chan bool, func())
}

// Options wires the picker to its conversation and stores.
type Options struct {
	Context        context.Context
	ConversationID string
	// RunExample receives the literal example prompt.
	RunExample func(example string) tea.Cmd
	// Navigate opens the persona management view.
	Navigate func() tea.Cmd

	Catalog  *catalog.Catalog
	Chat     ChatStore
	Purposes PurposeStore
	Prefs    PrefsStore

	// Rand picks example prompts. Nil seeds one from the clock.
	Rand      *rand.Rand
	TileWidth int
}

// ErrorMsg reports a failed store mutation to the parent model.
type ErrorMsg struct{ Err error }

func (e ErrorMsg) Error() string { return e.Err.Error() }

type focus int

const (
	focusTiles focus = iota
	focusFinder
	focusEditor
)

type subscriptions struct {
	binding <-chan state.PurposeBinding
	hidden  <-chan []string
	finder  <-chan bool
	cancels []func()
}

type (
	bindingMsg struct {
		src *subscriptions
		b   state.PurposeBinding
	}
	hiddenMsg struct {
		src *subscriptions
		ids []string
	}
	finderMsg struct {
		src *subscriptions
		on  bool
	}
)

// Model is the persona tile picker.
type Model struct {
	opts   Options
	KeyMap KeyMap
	help   help.Model

	binding    state.PurposeBinding
	hidden     []string
	showFinder bool

	finder   textinput.Model
	filtered []string
	editMode bool
	editor   textarea.Model
	focus    focus
	cursor   int
	width    int

	exampleFor string
	example    string

	subs *subscriptions
}

// New reads the stores once and returns a picker for opts.ConversationID.
func New(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if opts.TileWidth <= 0 {
		opts.TileWidth = 18
	}

	fi := textinput.New()
	fi.Prompt = "🔍 "
	fi.Placeholder = "Search personas"
	fi.CharLimit = 64

	ed := textarea.New()
	ed.Placeholder = "Craft your custom system message here"
	ed.ShowLineNumbers = false
	ed.CharLimit = 0
	ed.SetHeight(4)

	m := Model{
		opts:   opts,
		KeyMap: DefaultKeyMap(),
		help:   help.New(),
		finder: fi,
		editor: ed,
		width:  80,
	}
	if opts.Chat != nil {
		m.binding = opts.Chat.PurposeBinding(opts.ConversationID)
	}
	if opts.Purposes != nil {
		m.hidden = opts.Purposes.HiddenIDs()
	}
	if opts.Prefs != nil {
		m.showFinder = opts.Prefs.ShowFinder()
	}
	m.syncActive()
	return m
}

// Init subscribes to the stores. Call Close when the picker is discarded.
func (m *Model) Init() tea.Cmd {
	if m.subs != nil {
		return nil
	}
	s := &subscriptions{}
	if m.opts.Chat != nil {
		ch, cancel := m.opts.Chat.WatchPurposeBinding(m.opts.ConversationID)
		s.binding, s.cancels = ch, append(s.cancels, cancel)
	}
	if m.opts.Purposes != nil {
		ch, cancel := m.opts.Purposes.WatchHidden()
		s.hidden, s.cancels = ch, append(s.cancels, cancel)
	}
	if m.opts.Prefs != nil {
		ch, cancel := m.opts.Prefs.WatchShowFinder()
		s.finder, s.cancels = ch, append(s.cancels, cancel)
	}
	m.subs = s
	return tea.Batch(s.waitBinding(), s.waitHidden(), s.waitFinder())
}

// Close cancels the store subscriptions.
func (m *Model) Close() {
	if m.subs == nil {
		return
	}
	for _, cancel := range m.subs.cancels {
		cancel()
	}
	m.subs = nil
}

func (s *subscriptions) waitBinding() tea.Cmd {
	if s.binding == nil {
		return nil
	}
	return func() tea.Msg {
		b, ok := <-s.binding
		if !ok {
			return nil
		}
		return bindingMsg{src: s, b: b}
	}
}

func (s *subscriptions) waitHidden() tea.Cmd {
	if s.hidden == nil {
		return nil
	}
	return func() tea.Msg {
		ids, ok := <-s.hidden
		if !ok {
			return nil
		}
		return hiddenMsg{src: s, ids: ids}
	}
}

func (s *subscriptions) waitFinder() tea.Cmd {
	if s.finder == nil {
		return nil
	}
	return func() tea.Msg {
		on, ok := <-s.finder
		if !ok {
			return nil
		}
		return finderMsg{src: s, on: on}
	}
}

// Typing reports whether a text field has focus, so the parent should not
// interpret printable keys.
func (m Model) Typing() bool { return m.focus != focusTiles }

// Example returns the example prompt currently offered.
func (m Model) Example() string { return m.example }

// ActivePersona resolves the conversation's persona.
func (m Model) ActivePersona() (catalog.Persona, bool) {
	if !m.binding.Found || m.opts.Catalog == nil {
		return catalog.Persona{}, false
	}
	return m.opts.Catalog.Lookup(m.binding.PurposeID)
}

// syncActive re-chooses the example and reseeds the Custom editor when the
// active persona changed.
func (m *Model) syncActive() {
	id := m.binding.PurposeID
	if id == m.exampleFor {
		return
	}
	m.exampleFor = id
	m.example = ""
	p, ok := m.ActivePersona()
	if !ok {
		return
	}
	if n := len(p.Examples); n > 0 {
		m.example = p.Examples[m.opts.Rand.IntN(n)]
	}
	if id == catalog.CustomID {
		m.editor.SetValue(p.SystemMessage)
	}
	if m.focus == focusEditor && id != catalog.CustomID {
		m.editor.Blur()
		m.focus = focusTiles
	}
}

func (m Model) isHidden(id string) bool { return slices.Contains(m.hidden, id) }

// VisibleIDs returns the persona ids to render as tiles, in catalog order.
func (m Model) VisibleIDs() []string {
	if m.opts.Catalog == nil {
		return nil
	}
	base := m.opts.Catalog.IDs()
	if m.filtered != nil && m.showFinder {
		base = m.filtered
	}
	if m.editMode {
		return slices.Clone(base)
	}
	out := make([]string, 0, len(base))
	for _, id := range base {
		if !m.isHidden(id) {
			out = append(out, id)
		}
	}
	return out
}

// Tiles returns VisibleIDs followed by the creator tile when it is shown.
func (m Model) Tiles() []string {
	tiles := m.VisibleIDs()
	if m.editMode || !m.isHidden(catalog.CreatorTileID) {
		tiles = append(tiles, catalog.CreatorTileID)
	}
	return tiles
}

// NotFound reports an active search that matches no visible persona.
func (m Model) NotFound() bool {
	return m.filtered != nil && m.showFinder && len(m.VisibleIDs()) == 0
}

func (m Model) Filtered() []string { return slices.Clone(m.filtered) }
func (m Model) EditMode() bool     { return m.editMode }
func (m Model) Query() string      { return m.finder.Value() }

func (m *Model) setQuery(q string) {
	m.finder.SetValue(q)
	m.applyQuery()
}

func (m *Model) applyQuery() {
	m.filtered = m.opts.Catalog.Filter(m.finder.Value())
	m.clampCursor()
}

func (m *Model) clearSearch() {
	m.finder.Reset()
	m.filtered = nil
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if n := len(m.Tiles()); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m Model) columns() int {
	return max(1, m.width/(m.opts.TileWidth+2))
}

func (m Model) usable() bool {
	_, ok := m.ActivePersona()
	return ok && m.opts.Chat != nil
}

// Update handles keys and store deliveries; mutations come back as commands.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.opts.Catalog == nil {
		return m, nil
	}
	switch msg := msg.(type) {
	case bindingMsg:
		if msg.src != m.subs {
			return m, nil
		}
		m.binding = msg.b
		m.syncActive()
		return m, m.subs.waitBinding()
	case hiddenMsg:
		if msg.src != m.subs {
			return m, nil
		}
		m.hidden = msg.ids
		m.clampCursor()
		return m, m.subs.waitHidden()
	case finderMsg:
		if msg.src != m.subs {
			return m, nil
		}
		m.showFinder = msg.on
		if !m.showFinder && m.focus == focusFinder {
			m.finder.Blur()
			m.focus = focusTiles
		}
		m.clampCursor()
		return m, m.subs.waitFinder()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.finder.Width = max(10, msg.Width-6)
		m.editor.SetWidth(max(20, msg.Width-4))
		return m, nil
	case tea.KeyMsg:
		if !m.usable() {
			return m, nil
		}
		switch m.focus {
		case focusFinder:
			return m.updateFinder(msg)
		case focusEditor:
			return m.updateEditor(msg)
		}
		return m.updateTiles(msg)
	}
	return m, nil
}

func (m Model) updateFinder(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.KeyMap.Clear):
		m.clearSearch()
		m.finder.Blur()
		m.focus = focusTiles
		return m, nil
	case msg.Type == tea.KeyEnter, msg.Type == tea.KeyDown, msg.Type == tea.KeyTab:
		m.finder.Blur()
		m.focus = focusTiles
		return m, nil
	}
	var cmd tea.Cmd
	m.finder, cmd = m.finder.Update(msg)
	m.applyQuery()
	return m, cmd
}

func (m Model) updateEditor(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.KeyMap.Leave) {
		m.editor.Blur()
		m.focus = focusTiles
		return m, nil
	}
	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if after := m.editor.Value(); after != before {
		if err := m.opts.Catalog.SetSystemMessage(catalog.CustomID, after); err != nil {
			return m, tea.Batch(cmd, errorCmd(err))
		}
	}
	return m, cmd
}

func (m Model) updateTiles(msg tea.KeyMsg) (Model, tea.Cmd) {
	tiles := m.Tiles()
	switch {
	case key.Matches(msg, m.KeyMap.Find):
		if !m.showFinder {
			return m, nil
		}
		m.focus = focusFinder
		return m, m.finder.Focus()
	case key.Matches(msg, m.KeyMap.Clear):
		if m.filtered != nil || m.finder.Value() != "" {
			m.clearSearch()
		} else if m.editMode {
			m.editMode = false
			m.clampCursor()
		}
	case key.Matches(msg, m.KeyMap.Left):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.KeyMap.Right):
		if m.cursor < len(tiles)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.KeyMap.Up):
		if m.cursor-m.columns() >= 0 {
			m.cursor -= m.columns()
		}
	case key.Matches(msg, m.KeyMap.Down):
		if m.cursor+m.columns() < len(tiles) {
			m.cursor += m.columns()
		}
	case key.Matches(msg, m.KeyMap.Select):
		if m.cursor < len(tiles) {
			return m, m.activate(tiles[m.cursor])
		}
	case key.Matches(msg, m.KeyMap.EditMode):
		m.editMode = !m.editMode
		m.clampCursor()
	case key.Matches(msg, m.KeyMap.RunExample):
		if m.example != "" && m.opts.RunExample != nil {
			return m, m.opts.RunExample(m.example)
		}
	case key.Matches(msg, m.KeyMap.EditCustom):
		if m.binding.PurposeID == catalog.CustomID {
			m.focus = focusEditor
			return m, m.editor.Focus()
		}
	}
	return m, nil
}

// activate handles a tile press.
func (m Model) activate(id string) tea.Cmd {
	if id == "" {
		return nil
	}
	if m.editMode {
		return m.toggleHidden(id)
	}
	if id == catalog.CreatorTileID {
		if m.opts.Navigate == nil {
			return nil
		}
		return m.opts.Navigate()
	}
	if id == m.binding.PurposeID {
		return nil
	}
	ctx, chat, conv := m.opts.Context, m.opts.Chat, m.opts.ConversationID
	return func() tea.Msg {
		if err := chat.SetSystemPurposeID(ctx, conv, id); err != nil {
			return ErrorMsg{err}
		}
		return nil
	}
}

func (m Model) toggleHidden(id string) tea.Cmd {
	if m.opts.Purposes == nil {
		return nil
	}
	ctx, purposes := m.opts.Context, m.opts.Purposes
	return func() tea.Msg {
		if err := purposes.ToggleHidden(ctx, id); err != nil {
			return ErrorMsg{err}
		}
		return nil
	}
}

func errorCmd(err error) tea.Cmd {
	return func() tea.Msg { return ErrorMsg{err} }
}
