package state

import (
	"context"

	"pkt.systems/pslog"
)

// PrefsState holds UI preferences.
type PrefsState struct {
	ShowFinder bool
}

// PrefsStore owns UI preferences; save persists them after every change.
type PrefsStore struct {
	store *Store[PrefsState]
	save  func(PrefsState) error
	log   pslog.Logger
}

func NewPrefsStore(initial PrefsState, save func(PrefsState) error, logger pslog.Logger) *PrefsStore {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	logger = logger.With("store", "prefs")
	return &PrefsStore{store: NewStore(initial, logger), save: save, log: logger}
}

func (p *PrefsStore) ShowFinder() bool { return p.store.Get().ShowFinder }

// SetShowFinder updates the preference in memory even when saving fails;
// the save error is returned so the caller can report it.
func (p *PrefsStore) SetShowFinder(on bool) error {
	st := p.store.Update(func(st PrefsState) PrefsState {
		st.ShowFinder = on
		return st
	})
	p.log.Debug("finder preference changed", "show_finder", on)
	if p.save == nil {
		return nil
	}
	return p.save(st)
}

func (p *PrefsStore) ToggleFinder() error {
	return p.SetShowFinder(!p.ShowFinder())
}

func (p *PrefsStore) WatchShowFinder() (<-chan bool, func()) {
	return Select(p.store, func(st PrefsState) bool { return st.ShowFinder }, Same[bool])
}
