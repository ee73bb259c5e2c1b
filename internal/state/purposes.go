package state

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"pkt.systems/pslog"
)

// HiddenRepo persists the hidden persona set.
type HiddenRepo interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
}

// PurposeState lists hidden persona ids in the order they were hidden.
type PurposeState struct {
	Hidden []string
}

// PurposeStore owns the set of personas hidden from the tile picker.
type PurposeStore struct {
	// mu serializes toggles so the read, write and publish happen as one step.
	mu    sync.Mutex
	store *Store[PurposeState]
	repo  HiddenRepo
	log   pslog.Logger
}

// NewPurposeStore builds an empty store. A nil repo keeps the set in memory.
func NewPurposeStore(repo HiddenRepo, logger pslog.Logger) *PurposeStore {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	logger = logger.With("store", "purposes")
	return &PurposeStore{store: NewStore(PurposeState{}, logger), repo: repo, log: logger}
}

func (p *PurposeStore) Load(ctx context.Context) error {
	if p.repo == nil {
		return nil
	}
	ids, err := p.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load hidden personas: %w", err)
	}
	p.store.Set(PurposeState{Hidden: ids})
	return nil
}

// HiddenIDs returns a copy of the hidden set.
func (p *PurposeStore) HiddenIDs() []string {
	return slices.Clone(p.store.Get().Hidden)
}

func (p *PurposeStore) IsHidden(id string) bool {
	return slices.Contains(p.store.Get().Hidden, id)
}

// ToggleHidden flips id's membership in the hidden set.
func (p *PurposeStore) ToggleHidden(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	hide := !p.IsHidden(id)
	if p.repo != nil {
		var err error
		if hide {
			err = p.repo.Add(ctx, id)
		} else {
			err = p.repo.Remove(ctx, id)
		}
		if err != nil {
			return fmt.Errorf("toggle hidden %s: %w", id, err)
		}
	}
	p.store.Update(func(st PurposeState) PurposeState {
		i := slices.Index(st.Hidden, id)
		switch {
		case hide && i < 0:
			next := make([]string, 0, len(st.Hidden)+1)
			return PurposeState{Hidden: append(append(next, st.Hidden...), id)}
		case !hide && i >= 0:
			return PurposeState{Hidden: slices.Delete(slices.Clone(st.Hidden), i, i+1)}
		}
		return st
	})
	p.log.Debug("persona visibility toggled", "persona", id, "hidden", hide)
	return nil
}

// WatchHidden wakes when the hidden set changes.
func (p *PurposeStore) WatchHidden() (<-chan []string, func()) {
	return Select(p.store, func(st PurposeState) []string { return st.Hidden }, slices.Equal[[]string, string])
}
