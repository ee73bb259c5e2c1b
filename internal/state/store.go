// Package state holds the application's reactive stores.
//
// Each store owns one slice of state behind a mutex and fans changes out to
// subscribers. Subscribers select the part of the state they render and
// supply an equality check; they are only woken when that part changes.
package state

import (
	"context"
	"sync"

	"pkt.systems/pslog"
)

// Store is a publish/subscribe state container.
type Store[S any] struct {
	mu    sync.Mutex
	state S
	subs  map[*subscriber[S]]struct{}
	log   pslog.Logger
}

type subscriber[S any] struct {
	notify func(S)
	close  func()
}

// NewStore constructs a Store holding initial.
func NewStore[S any](initial S, logger pslog.Logger) *Store[S] {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Store[S]{
		state: initial,
		subs:  make(map[*subscriber[S]]struct{}),
		log:   logger,
	}
}

// Get returns the current state. Callers must treat slices and maps inside it as read-only.
func (s *Store[S]) Get() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set replaces the state and notifies subscribers.
func (s *Store[S]) Set(next S) {
	s.Update(func(S) S { return next })
}

// Update applies fn to the current state, stores the result and notifies subscribers.
// fn must not mutate its argument in place; copy slices and maps it changes.
func (s *Store[S]) Update(fn func(S) S) S {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	for sub := range s.subs {
		sub.notify(s.state)
	}
	return s.state
}

// Subscribe delivers every state change.
func (s *Store[S]) Subscribe() (<-chan S, func()) {
	return Select(s, func(st S) S { return st }, func(S, S) bool { return false })
}

func (s *Store[S]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Select subscribes to the slice of state returned by pick. The current slice
// is delivered immediately; later ones only when equal reports a difference.
// Only the latest undelivered value is kept, so publishing never blocks.
func Select[S, T any](s *Store[S], pick func(S) T, equal func(a, b T) bool) (<-chan T, func()) {
	if s == nil {
		return nil, func() {}
	}
	ch := make(chan T, 1)
	sub := &subscriber[S]{}

	s.mu.Lock()
	last := pick(s.state)
	ch <- last
	sub.notify = func(st S) {
		next := pick(st)
		if equal(last, next) {
			return
		}
		last = next
		offerLatest(ch, next)
	}
	sub.close = func() { close(ch) }
	s.subs[sub] = struct{}{}
	count := len(s.subs)
	s.mu.Unlock()
	s.log.Debug("store subscribe", "subs", count)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, sub)
			sub.close()
			s.mu.Unlock()
			s.log.Debug("store unsubscribe")
		})
	}
}

// offerLatest replaces any pending value with v. Callers hold the store lock,
// so no other sender competes for the buffer slot.
func offerLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}

// Same is the equality check for comparable slices of state.
func Same[T comparable](a, b T) bool { return a == b }
