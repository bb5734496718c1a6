// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhepay

import (
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/log"
)

// Store tracks the latest on-chain handle and its decrypted counterpart for
// each Kind. It enforces at most one valid decryption per handle: overwriting
// a handle invalidates the paired clear value in the same critical section,
// and clear values referencing a superseded handle are rejected.
type Store struct {
	log log.Logger

	mu       sync.Mutex
	slots    [numKinds]slot
	observer func(Kind)
}

type slot struct {
	tracked TrackedValue
	clear   *ClearValue
}

// NewStore returns an empty store.
func NewStore(logger log.Logger) *Store {
	return &Store{log: logger}
}

// SetObserver registers a callback invoked after every accepted mutation.
// The callback runs outside the store lock and must not assume the state it
// observes is the one that triggered it.
func (s *Store) SetObserver(fn func(Kind)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

// SetHandle records a fresh handle for kind. If the handle differs from the
// current one, the paired clear value is dropped atomically with the update.
func (s *Store) SetHandle(kind Kind, h Handle) {
	s.mu.Lock()
	sl := &s.slots[kind]
	changed := !sl.tracked.Set || sl.tracked.Handle != h
	if changed && sl.clear != nil {
		s.log.Debug(
			"invalidating clear value on handle change",
			log.Stringer("kind", kind),
			log.Stringer("prev", sl.tracked.Handle),
			log.Stringer("next", h),
		)
		sl.clear = nil
	}
	sl.tracked = TrackedValue{Handle: h, Set: true}
	observer := s.observer
	s.mu.Unlock()

	if changed && observer != nil {
		observer(kind)
	}
}

// SetClear records a decryption result for kind. The write is accepted only
// if h still equals the current tracked handle, which discards results of
// decrypt attempts that lost a race with a handle update.
func (s *Store) SetClear(kind Kind, h Handle, clear *uint256.Int) bool {
	s.mu.Lock()
	sl := &s.slots[kind]
	if !sl.tracked.Set || sl.tracked.Handle != h {
		s.log.Debug(
			"rejecting stale clear value",
			log.Stringer("kind", kind),
			log.Stringer("handle", h),
		)
		s.mu.Unlock()
		return false
	}
	sl.clear = &ClearValue{Handle: h, Clear: clear}
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer(kind)
	}
	return true
}

// Reset forgets both the tracked handle and any clear value for kind.
func (s *Store) Reset(kind Kind) {
	s.mu.Lock()
	sl := &s.slots[kind]
	changed := sl.tracked.Set
	s.slots[kind] = slot{}
	observer := s.observer
	s.mu.Unlock()

	if changed && observer != nil {
		observer(kind)
	}
}

// Tracked returns the current tracked value for kind.
func (s *Store) Tracked(kind Kind) TrackedValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[kind].tracked
}

// Clear returns the current clear value for kind, if one is recorded.
func (s *Store) Clear(kind Kind) (ClearValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.slots[kind].clear; c != nil {
		return *c, true
	}
	return ClearValue{}, false
}

// IsDecrypted reports whether the tracked handle for kind has a matching
// clear value.
func (s *Store) IsDecrypted(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := &s.slots[kind]
	return sl.tracked.Set && sl.clear != nil && sl.clear.Handle == sl.tracked.Handle
}
