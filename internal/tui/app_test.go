package tui

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/personachat/internal/catalog"
	"github.com/jask/personachat/internal/state"
)

func newTestApp(t *testing.T) (*App, Stores) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	stores := Stores{
		Chat:     state.NewChatStore(nil, cat, "Generic", nil),
		Purposes: state.NewPurposeStore(nil, nil),
		Prefs:    state.NewPrefsStore(state.PrefsState{ShowFinder: true}, nil, nil),
		Messages: state.NewMessageLog(nil, nil),
	}
	a := New(context.Background(), cat, stores, Options{Rand: rand.New(rand.NewPCG(3, 4))})
	_ = a.Init()
	t.Cleanup(func() { a.Update(tea.KeyMsg{Type: tea.KeyCtrlC}) })
	return a, stores
}

func key(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// step feeds msg to the app and then feeds back whatever message the
// returned command produces.
func step(t *testing.T, a *App, msg tea.Msg) {
	t.Helper()
	_, cmd := a.Update(msg)
	if cmd == nil {
		return
	}
	if out := cmd(); out != nil {
		if _, ok := out.(tea.BatchMsg); ok {
			return
		}
		a.Update(out)
	}
}

func TestNewCreatesConversation(t *testing.T) {
	a, stores := newTestApp(t)
	if n := len(stores.Chat.Conversations()); n != 1 {
		t.Fatalf("conversations = %d, want 1", n)
	}
	if a.convID == "" {
		t.Fatalf("no conversation opened")
	}
	if v := a.View(); !strings.Contains(v, "AI Persona") {
		t.Fatalf("expected persona picker in view:\n%s", v)
	}
}

func TestExampleBecomesFirstMessage(t *testing.T) {
	a, stores := newTestApp(t)
	example := a.selector.Example()
	if example == "" {
		t.Fatalf("default persona offers no example")
	}

	step(t, a, key("r"))
	msgs, err := stores.Messages.List(context.Background(), a.convID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != example {
		t.Fatalf("messages = %+v", msgs)
	}
	conv, _ := stores.Chat.Conversation(a.convID)
	if conv.Title != autoTitle(example) {
		t.Fatalf("title = %q", conv.Title)
	}

	a.Update(a.waitTranscript()())
	if len(a.transcript) != 1 {
		t.Fatalf("transcript not delivered")
	}
	if v := a.View(); strings.Contains(v, "AI Persona") || !strings.Contains(v, example) {
		t.Fatalf("expected transcript view:\n%s", v)
	}

	a.Update(key("thanks"))
	step(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	msgs, _ = stores.Messages.List(context.Background(), a.convID)
	if len(msgs) != 2 || msgs[1].Text != "thanks" {
		t.Fatalf("messages after send = %+v", msgs)
	}
}

func TestPersonasScreen(t *testing.T) {
	a, stores := newTestApp(t)
	step(t, a, tea.KeyMsg{Type: tea.KeyCtrlG})
	if a.state != viewPersonas {
		t.Fatalf("state = %s", a.state)
	}
	if v := a.View(); !strings.Contains(v, "Personas") {
		t.Fatalf("view:\n%s", v)
	}

	a.Update(key("j"))
	step(t, a, key(" "))
	second := a.cat.Personas()[1].ID
	if !stores.Purposes.IsHidden(second) {
		t.Fatalf("%s not hidden", second)
	}

	step(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	if a.state != viewChat {
		t.Fatalf("enter should return to chat")
	}
	if got := stores.Chat.PurposeBinding(a.convID).PurposeID; got != second {
		t.Fatalf("persona = %s, want %s", got, second)
	}
}

func TestNewConversationFromDropdown(t *testing.T) {
	a, stores := newTestApp(t)
	first := a.convID

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	if !a.convPicker.IsOpen() {
		t.Fatalf("dropdown not open")
	}
	a.Update(tea.KeyMsg{Type: tea.KeyUp})
	step(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	if n := len(stores.Chat.Conversations()); n != 2 {
		t.Fatalf("conversations = %d, want 2", n)
	}
	if a.convID == first || a.convID == "" {
		t.Fatalf("new conversation not opened: %q", a.convID)
	}
	if a.convPicker.Value != a.convID {
		t.Fatalf("dropdown value = %q", a.convPicker.Value)
	}

	step(t, a, switchConversationMsg(first))
	if a.convID != first {
		t.Fatalf("switch failed")
	}
}

func TestToggleFinderPreference(t *testing.T) {
	a, stores := newTestApp(t)
	a.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	if stores.Prefs.ShowFinder() {
		t.Fatalf("finder still enabled")
	}
}

func TestAutoTitle(t *testing.T) {
	if got := autoTitle("  hello \n world "); got != "hello world" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("a", 60)
	if got := []rune(autoTitle(long)); len(got) != 40 || got[39] != '…' {
		t.Fatalf("got %q", string(got))
	}
}
