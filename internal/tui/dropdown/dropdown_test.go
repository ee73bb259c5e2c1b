package dropdown

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	keyEnter  = tea.KeyMsg{Type: tea.KeyEnter}
	keyDown   = tea.KeyMsg{Type: tea.KeyDown}
	keyEsc    = tea.KeyMsg{Type: tea.KeyEsc}
	keyDelete = tea.KeyMsg{Type: tea.KeyDelete}
)

func recorder(got *[]string) func(string) tea.Cmd {
	return func(k string) tea.Cmd {
		*got = append(*got, k)
		return nil
	}
}

func TestSeparatorIsNeverSelectable(t *testing.T) {
	var got []string
	m := New(Props{
		Items: []Item{
			{Key: "a", Title: "Alpha"},
			{Key: "sep", Separator: true},
			{Key: "b", Title: "Beta"},
		},
		OnChange: recorder(&got),
	})
	if n := len(m.selectable()); n != 2 {
		t.Fatalf("selectable rows = %d, want 2", n)
	}

	for i := 0; i < 4; i++ {
		m, _ = m.Update(keyEnter)
		for j := 0; j < i; j++ {
			m, _ = m.Update(keyDown)
		}
		m, _ = m.Update(keyEnter)
		if m.IsOpen() {
			t.Fatalf("listbox still open after choosing")
		}
	}
	for _, k := range got {
		if k == "sep" {
			t.Fatalf("OnChange called with separator key: %v", got)
		}
	}
	if strings.Join(got, ",") != "a,b,b,b" {
		t.Fatalf("choices = %v", got)
	}
}

func TestDividersAroundExtraOptions(t *testing.T) {
	m := New(Props{
		Items:   []Item{{Key: "a", Title: "Alpha"}},
		Prepend: []Option{{Key: "new", Title: "New"}},
		Append:  []Option{{Key: "more", Title: "More"}},
	})
	kinds := func(rows []row) string {
		var b strings.Builder
		for _, r := range rows {
			if r.kind == rowDivider {
				b.WriteString("-")
			} else {
				b.WriteString(r.key)
			}
			b.WriteString(" ")
		}
		return strings.TrimSpace(b.String())
	}
	if got := kinds(m.rows()); got != "new - a - more" {
		t.Fatalf("rows = %q", got)
	}

	m.SetProps(Props{
		Items:   []Item{{Key: "sep", Separator: true}},
		Prepend: []Option{{Key: "new", Title: "New"}},
		Append:  []Option{{Key: "more", Title: "More"}},
	})
	if got := kinds(m.rows()); got != "new - more" {
		t.Fatalf("rows without regular items = %q", got)
	}
}

func TestItemLabelDecorations(t *testing.T) {
	items := []Item{
		{Key: "i", Title: "Icon", Icon: "@", Symbol: "#"},
		{Key: "s", Title: "Symbol", Symbol: "#"},
		{Key: "p", Title: "Plain"},
	}
	m := New(Props{Items: items})
	for _, it := range items {
		if got := m.itemLabel(it); got != it.Title {
			t.Fatalf("label without symbols = %q", got)
		}
	}
	m.ShowSymbols = true
	want := []string{"@ Icon", "# Symbol", "Plain"}
	for i, it := range items {
		if got := m.itemLabel(it); got != want[i] {
			t.Fatalf("label = %q, want %q", got, want[i])
		}
	}
}

func TestClearReportsEmptyKey(t *testing.T) {
	var got []string
	m := New(Props{
		Items:    []Item{{Key: "a", Title: "Alpha"}},
		Value:    "a",
		OnChange: recorder(&got),
	})
	m, _ = m.Update(keyDelete)
	if len(got) != 1 || got[0] != "" {
		t.Fatalf("clear = %v", got)
	}

	m.Value = ""
	m, _ = m.Update(keyDelete)
	if len(got) != 1 {
		t.Fatalf("clearing an empty selection reported %v", got)
	}
}

func TestChoosingCurrentValueIsSilent(t *testing.T) {
	var got []string
	m := New(Props{
		Items:    []Item{{Key: "a", Title: "Alpha"}, {Key: "b", Title: "Beta"}},
		Value:    "b",
		OnChange: recorder(&got),
	})
	m, _ = m.Update(keyEnter)
	if c, _ := m.highlighted(); c.key != "b" {
		t.Fatalf("open highlight = %q, want current value", c.key)
	}
	m, _ = m.Update(keyEnter)
	if len(got) != 0 {
		t.Fatalf("unexpected change %v", got)
	}

	m, _ = m.Update(keyEnter)
	m, _ = m.Update(keyEsc)
	if m.IsOpen() || len(got) != 0 {
		t.Fatalf("esc should close without change")
	}
}

func TestViewFallsBackToPlaceholder(t *testing.T) {
	m := New(Props{
		Items:       []Item{{Key: "a", Title: "Alpha"}, {Key: "sep", Separator: true}},
		Value:       "unknown",
		Placeholder: "Pick one",
	})
	if v := m.View(); !strings.Contains(v, "Pick one") {
		t.Fatalf("view = %q", v)
	}
	m.Value = "sep"
	if v := m.View(); !strings.Contains(v, "Pick one") {
		t.Fatalf("separator rendered as selection: %q", v)
	}
	m.Value = "a"
	if v := m.View(); !strings.Contains(v, "Alpha") {
		t.Fatalf("view = %q", v)
	}
}
