package personaselector

import (
	"context"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jask/personachat/internal/catalog"
	"github.com/jask/personachat/internal/state"
)

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
)

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// countingChat records every persona mutation it forwards.
type countingChat struct {
	*state.ChatStore
	calls []string
}

func (c *countingChat) SetSystemPurposeID(ctx context.Context, conv, id string) error {
	c.calls = append(c.calls, id)
	return c.ChatStore.SetSystemPurposeID(ctx, conv, id)
}

type countingSource struct {
	rand.Source
	n int
}

func (c *countingSource) Uint64() uint64 {
	c.n++
	return c.Source.Uint64()
}

type fixture struct {
	cat       *catalog.Catalog
	chat      *countingChat
	purposes  *state.PurposeStore
	prefs     *state.PrefsStore
	conv      string
	ran       []string
	navigated int
}

func newFixture(t *testing.T, persona string) *fixture {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	chat := state.NewChatStore(nil, cat, "Generic", nil)
	conv, err := chat.Create(context.Background(), "test", persona)
	require.NoError(t, err)
	return &fixture{
		cat:      cat,
		chat:     &countingChat{ChatStore: chat},
		purposes: state.NewPurposeStore(nil, nil),
		prefs:    state.NewPrefsStore(state.PrefsState{ShowFinder: true}, nil, nil),
		conv:     conv.ID,
	}
}

func (f *fixture) options() Options {
	return Options{
		ConversationID: f.conv,
		RunExample: func(example string) tea.Cmd {
			f.ran = append(f.ran, example)
			return nil
		},
		Navigate: func() tea.Cmd {
			f.navigated++
			return nil
		},
		Catalog:  f.cat,
		Chat:     f.chat,
		Purposes: f.purposes,
		Prefs:    f.prefs,
		Rand:     rand.New(rand.NewPCG(1, 2)),
	}
}

func (f *fixture) picker() Model { return New(f.options()) }

func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if e, ok := msg.(ErrorMsg); ok {
		t.Fatalf("command failed: %v", e.Err)
	}
	return msg
}

func cursorTo(t *testing.T, m *Model, id string) {
	t.Helper()
	i := slices.Index(m.Tiles(), id)
	require.GreaterOrEqual(t, i, 0, "tile %s not visible", id)
	m.cursor = i
}

func search(m Model, q string) Model {
	m, _ = m.Update(runes("/"))
	m, _ = m.Update(runes(q))
	return m
}

func TestSearchMatchesTitleOrDescription(t *testing.T) {
	for _, q := range []string{"dev", "DEV", "helps", "🚀", "x", "zzz"} {
		f := newFixture(t, "Generic")
		m := search(f.picker(), q)
		require.True(t, m.Typing())

		var want []string
		for _, p := range f.cat.Personas() {
			lq := strings.ToLower(q)
			if strings.Contains(strings.ToLower(p.Title), lq) || strings.Contains(strings.ToLower(p.Description), lq) {
				want = append(want, p.ID)
			}
		}
		require.NotNil(t, m.Filtered(), q)
		require.ElementsMatch(t, want, m.Filtered(), q)
		require.Equal(t, want, nilIfEmpty(m.VisibleIDs()), q)
	}
}

func nilIfEmpty(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return ids
}

func TestEscapeRestoresCatalogOrder(t *testing.T) {
	f := newFixture(t, "Generic")
	require.NoError(t, f.purposes.ToggleHidden(context.Background(), "Scientist"))
	m := search(f.picker(), "dev")
	require.NotEqual(t, f.cat.IDs(), m.VisibleIDs())

	m, _ = m.Update(keyEsc)
	require.False(t, m.Typing())
	require.Nil(t, m.Filtered())
	require.Empty(t, m.Query())

	want := slices.DeleteFunc(f.cat.IDs(), func(id string) bool { return id == "Scientist" })
	require.Equal(t, want, m.VisibleIDs())
}

func TestEscapeFromTilesClearsKeptSearch(t *testing.T) {
	f := newFixture(t, "Generic")
	m := search(f.picker(), "dev")
	m, _ = m.Update(keyEnter)
	require.False(t, m.Typing())
	require.NotNil(t, m.Filtered())

	m, _ = m.Update(keyEsc)
	require.Nil(t, m.Filtered())
	require.Equal(t, f.cat.IDs(), m.VisibleIDs())
}

func TestBackspaceToEmptyClearsFilter(t *testing.T) {
	f := newFixture(t, "Generic")
	m := search(f.picker(), "d")
	require.NotNil(t, m.Filtered())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	require.Nil(t, m.Filtered())
}

func TestFilterIgnoredWhenFinderDisabled(t *testing.T) {
	f := newFixture(t, "Generic")
	m := search(f.picker(), "dev")
	m, _ = m.Update(keyEnter)

	m.Init()
	defer m.Close()
	m, _ = m.Update(finderMsg{src: m.subs, on: false})
	require.Equal(t, f.cat.IDs(), m.VisibleIDs())
	require.False(t, m.NotFound())

	m, _ = m.Update(runes("/"))
	require.False(t, m.Typing())
}

func TestEditModeToggleKeepsActivePersona(t *testing.T) {
	f := newFixture(t, "Generic")
	m := f.picker()
	m.Init()
	defer m.Close()

	m, _ = m.Update(runes("e"))
	require.True(t, m.EditMode())
	cursorTo(t, &m, "Developer")
	m, cmd := m.Update(keyEnter)
	run(t, cmd)

	require.True(t, f.purposes.IsHidden("Developer"))
	require.Empty(t, f.chat.calls)
	require.Equal(t, "Generic", f.chat.PurposeBinding(f.conv).PurposeID)

	m, _ = m.Update(hiddenMsg{src: m.subs, ids: f.purposes.HiddenIDs()})
	require.Contains(t, m.VisibleIDs(), "Developer")
	require.Contains(t, m.View(), "[ ]")

	m, _ = m.Update(runes("e"))
	require.NotContains(t, m.VisibleIDs(), "Developer")
}

func TestSelectIssuesOneMutation(t *testing.T) {
	f := newFixture(t, "Generic")
	m := f.picker()

	cursorTo(t, &m, "Generic")
	m, cmd := m.Update(keyEnter)
	require.Nil(t, cmd)

	cursorTo(t, &m, "Developer")
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeySpace})
	run(t, cmd)
	require.Equal(t, []string{"Developer"}, f.chat.calls)
	require.Equal(t, "Developer", f.chat.PurposeBinding(f.conv).PurposeID)
}

func TestCreatorTile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "Generic")
	m := f.picker()
	require.Equal(t, catalog.CreatorTileID, m.Tiles()[len(m.Tiles())-1])

	cursorTo(t, &m, catalog.CreatorTileID)
	m, _ = m.Update(keyEnter)
	require.Equal(t, 1, f.navigated)

	require.NoError(t, f.purposes.ToggleHidden(ctx, catalog.CreatorTileID))
	m = f.picker()
	require.NotContains(t, m.Tiles(), catalog.CreatorTileID)

	m, _ = m.Update(runes("e"))
	require.Contains(t, m.Tiles(), catalog.CreatorTileID)
	cursorTo(t, &m, catalog.CreatorTileID)
	m, cmd := m.Update(keyEnter)
	run(t, cmd)
	require.False(t, f.purposes.IsHidden(catalog.CreatorTileID))
	require.Equal(t, 1, f.navigated)
	require.Empty(t, f.chat.calls)
}

func TestCustomEditorChangesOnlyCustom(t *testing.T) {
	f := newFixture(t, catalog.CustomID)
	require.NoError(t, f.cat.SetSystemMessage(catalog.CustomID, "base"))
	before := f.cat.Personas()

	m := f.picker()
	require.Contains(t, m.View(), "System message")
	m, _ = m.Update(keyTab)
	require.True(t, m.Typing())
	m, _ = m.Update(runes("xy"))

	for _, p := range f.cat.Personas() {
		if p.ID == catalog.CustomID {
			require.Equal(t, "basexy", p.SystemMessage)
			continue
		}
		i := slices.IndexFunc(before, func(b catalog.Persona) bool { return b.ID == p.ID })
		require.Equal(t, before[i], p)
	}

	m, _ = m.Update(keyEsc)
	require.False(t, m.Typing())
}

func TestCustomShowsDescriptionAndEditor(t *testing.T) {
	f := newFixture(t, catalog.CustomID)
	custom, _ := f.cat.Lookup(catalog.CustomID)
	view := f.picker().View()
	require.Contains(t, view, custom.Description)
	require.Contains(t, view, "System message")

	withExamples, err := catalog.New([]catalog.Persona{
		{ID: "Generic", Title: "Default"},
		{ID: catalog.CustomID, Title: "Custom", Description: "Define the persona", Examples: []string{"write a haiku"}},
	})
	require.NoError(t, err)
	f.cat = withExamples
	m := f.picker()
	view = m.View()
	require.Contains(t, view, "Example: write a haiku")
	require.Contains(t, view, "System message")

	_, _ = m.Update(runes("r"))
	require.Equal(t, []string{"write a haiku"}, f.ran)
}

func TestTabIgnoredForOtherPersonas(t *testing.T) {
	f := newFixture(t, "Developer")
	m := f.picker()
	m, _ = m.Update(keyTab)
	require.False(t, m.Typing())
}

func TestExampleChosenOnPersonaChange(t *testing.T) {
	f := newFixture(t, "Generic")
	src := &countingSource{Source: rand.NewPCG(7, 9)}
	opts := f.options()
	opts.Rand = rand.New(src)
	m := New(opts)
	m.Init()
	defer m.Close()

	generic, _ := f.cat.Lookup("Generic")
	require.Contains(t, generic.Examples, m.Example())
	draws := src.n
	require.Positive(t, draws)

	m, _ = m.Update(hiddenMsg{src: m.subs, ids: []string{"Scientist"}})
	m, _ = m.Update(finderMsg{src: m.subs, on: false})
	m, _ = m.Update(bindingMsg{src: m.subs, b: state.PurposeBinding{Found: true, PurposeID: "Generic"}})
	require.Equal(t, draws, src.n)

	m, _ = m.Update(bindingMsg{src: m.subs, b: state.PurposeBinding{Found: true, PurposeID: "Scientist"}})
	require.Greater(t, src.n, draws)
	scientist, _ := f.cat.Lookup("Scientist")
	require.Contains(t, scientist.Examples, m.Example())

	m, _ = m.Update(runes("r"))
	require.Equal(t, []string{m.Example()}, f.ran)
}

func TestSameSeedSameExample(t *testing.T) {
	f := newFixture(t, "DeveloperPreview")
	a := f.picker()
	b := f.picker()
	require.Equal(t, a.Example(), b.Example())
}

func TestDescriptionWithoutExamples(t *testing.T) {
	f := newFixture(t, "YouTubeTranscriber")
	m := f.picker()
	require.Empty(t, m.Example())
	p, _ := f.cat.Lookup("YouTubeTranscriber")
	require.Contains(t, m.View(), p.Description)

	m, cmd := m.Update(runes("r"))
	require.Nil(t, cmd)
	require.Empty(t, f.ran)
}

func TestNotFoundMessage(t *testing.T) {
	f := newFixture(t, "Generic")
	m := search(f.picker(), "Scientst")
	require.True(t, m.NotFound())
	view := m.View()
	require.Contains(t, view, notFoundText)
	require.Contains(t, view, "Did you mean Scientist?")

	m, _ = m.Update(keyEsc)
	require.False(t, m.NotFound())
	require.NotContains(t, m.View(), notFoundText)
}

func TestGuardRendersNothing(t *testing.T) {
	f := newFixture(t, "Generic")
	opts := f.options()
	opts.ConversationID = "missing"
	m := New(opts)
	require.Empty(t, m.View())
	m, cmd := m.Update(keyEnter)
	require.Nil(t, cmd)
	m, _ = m.Update(runes("e"))
	require.False(t, m.EditMode())

	small, err := catalog.New([]catalog.Persona{{ID: catalog.CustomID, Title: "Custom"}})
	require.NoError(t, err)
	opts = f.options()
	opts.Catalog = small
	require.Empty(t, New(opts).View())
}

func TestStaleSubscriptionMessagesIgnored(t *testing.T) {
	f := newFixture(t, "Generic")
	m := f.picker()
	m.Init()
	old := m.subs
	m.Close()
	m.Init()
	defer m.Close()

	m, cmd := m.Update(hiddenMsg{src: old, ids: []string{"Generic"}})
	require.Nil(t, cmd)
	require.Contains(t, m.VisibleIDs(), "Generic")
}
