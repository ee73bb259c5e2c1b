package tui

import tea "github.com/charmbracelet/bubbletea"

// feed adapts a store subscription to Bubble Tea commands. Each message
// carries its feed so values from a replaced subscription can be dropped.
type feed[T any] struct {
	ch     <-chan T
	cancel func()
}

func newFeed[T any](ch <-chan T, cancel func()) *feed[T] {
	return &feed[T]{ch: ch, cancel: cancel}
}

// next waits for one value. It yields no message once the feed is stopped.
func (f *feed[T]) next(wrap func(*feed[T], T) tea.Msg) tea.Cmd {
	if f == nil || f.ch == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-f.ch
		if !ok {
			return nil
		}
		return wrap(f, v)
	}
}

func (f *feed[T]) stop() {
	if f == nil || f.cancel == nil {
		return
	}
	f.cancel()
}
