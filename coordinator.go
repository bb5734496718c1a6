// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhepay

import (
	"sync"

	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
)

// coordinator reconciles the session's derived state with store mutations.
// It keeps its own last-observed copy of each tracked handle and diffs on
// every notification, so a handle update that supersedes a valid decryption
// is announced exactly once.
type coordinator struct {
	s *Session

	mu        sync.Mutex
	last      [numKinds]TrackedValue
	decrypted set.Set[Kind]
}

func newCoordinator(s *Session) *coordinator {
	return &coordinator{
		s:         s,
		decrypted: set.NewSet[Kind](int(numKinds)),
	}
}

// storeChanged is the store observer. It runs after every accepted store
// mutation, outside the store lock.
func (c *coordinator) storeChanged(kind Kind) {
	cur := c.s.store.Tracked(kind)
	nowDecrypted := c.s.store.IsDecrypted(kind)

	c.mu.Lock()
	prev := c.last[kind]
	wasDecrypted := c.decrypted.Contains(kind)
	c.last[kind] = cur
	if nowDecrypted {
		c.decrypted.Add(kind)
	} else {
		c.decrypted.Remove(kind)
	}
	c.mu.Unlock()

	superseded := prev.Set && (!cur.Set || cur.Handle != prev.Handle)
	if wasDecrypted && superseded {
		c.s.log.Info(
			"tracked handle superseded a valid decryption",
			log.Stringer("kind", kind),
			log.Stringer("prev", prev.Handle),
			log.Stringer("next", cur.Handle),
		)
		c.s.statusf("Encrypted %s updated, previous decryption cleared", kind)
	}
}
