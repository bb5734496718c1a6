// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhepay

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// DecryptSalary decrypts the tracked salary handle.
func (s *Session) DecryptSalary(ctx context.Context) error {
	return s.decrypt(ctx, KindSalary, OpDecryptSalary)
}

// DecryptComparison decrypts the tracked comparison result handle.
func (s *Session) DecryptComparison(ctx context.Context) error {
	return s.decrypt(ctx, KindComparison, OpDecryptComparison)
}

func (s *Session) decrypt(ctx context.Context, kind Kind, op Op) error {
	if !s.ready() {
		s.setStatus(msgNotReady)
		return ErrNotReady
	}
	if s.creds == nil || s.credSigner == nil {
		s.setStatus("Decryption requires a credential signer")
		return ErrNotReady
	}
	tracked := s.store.Tracked(kind)
	if !tracked.Set {
		s.statusf("No %s to decrypt yet", kind)
		return ErrNothingToDecrypt
	}
	if s.store.IsDecrypted(kind) {
		// Informational, not an error: the value is already available.
		s.statusf("The %s is already decrypted", kind)
		return nil
	}

	snap, ok := s.begin(op)
	if !ok {
		return nil
	}
	defer s.end(op)
	s.metrics.Started(op.String())
	s.statusf("Decrypting %s...", kind)

	return s.decryptAttempt(ctx, kind, op, snap)
}

// decryptAttempt runs one full decrypt flow. On oracle failure it re-enters
// itself, bounded by the per-kind retry counter; the busy flag and snapshot
// stay held across attempts.
func (s *Session) decryptAttempt(ctx context.Context, kind Kind, op Op, snap Snapshot) error {
	tracked := s.store.Tracked(kind)
	if !tracked.Set {
		s.setStatus(msgCancelled)
		return ErrNothingToDecrypt
	}

	// The zero handle marks a value the contract never wrote. Its
	// decryption is zero by definition; skip the gateway.
	if tracked.Handle.IsEmpty() {
		s.store.SetClear(kind, EmptyHandle, uint256.NewInt(0))
		s.resetDecryptAttempts(kind)
		s.metrics.Succeeded(op.String())
		s.announceClear(kind, uint256.NewInt(0))
		return nil
	}

	cred, err := s.creds.Obtain(ctx, []common.Address{snap.Contract}, s.credSigner)
	if err != nil {
		// Credential denial is terminal: the user said no, or signing
		// broke. Retrying would just prompt again.
		s.resetDecryptAttempts(kind)
		s.metrics.Failed(op.String())
		s.setStatus("Decryption not authorized: " + err.Error())
		return err
	}
	if s.staleAbort(snap, op.String()) {
		return ErrStaleContext
	}

	requests := []HandleRequest{{Handle: tracked.Handle, Contract: snap.Contract}}
	results, err := s.oracle.UserDecrypt(ctx, requests, cred)

	var clear *uint256.Int
	if err == nil {
		var found bool
		clear, found = results[tracked.Handle]
		if !found {
			err = fmt.Errorf("decryption result missing handle %s", tracked.Handle)
		}
	}
	if err != nil {
		retries := s.bumpDecryptAttempts(kind)
		if retries < decryptMaxAttempts {
			s.metrics.Retried(op.String())
			s.statusf("Decryption failed, retrying (attempt %d/%d)", retries+1, decryptMaxAttempts)
			if serr := s.sleep(ctx, decryptRetryDelay); serr != nil {
				s.resetDecryptAttempts(kind)
				return serr
			}
			return s.decryptAttempt(ctx, kind, op, snap)
		}
		s.resetDecryptAttempts(kind)
		s.metrics.Failed(op.String())
		s.statusf("Decryption failed after %d attempts: %s", decryptMaxAttempts, err)
		return err
	}

	if s.staleAbort(snap, op.String()) {
		return ErrStaleContext
	}
	if !s.store.SetClear(kind, tracked.Handle, clear) {
		// The tracked handle moved while the gateway round trip was in
		// flight; the result belongs to a superseded ciphertext.
		s.setStatus(msgCancelled)
		return ErrStaleContext
	}

	s.resetDecryptAttempts(kind)
	s.metrics.Succeeded(op.String())
	s.announceClear(kind, clear)
	return nil
}

func (s *Session) announceClear(kind Kind, clear *uint256.Int) {
	switch kind {
	case KindSalary:
		s.statusf("Salary decrypted: %s", clear.Dec())
	case KindComparison:
		other := s.Counterpart()
		if !clear.IsZero() {
			s.statusf("You earn MORE than %s", other.Hex())
		} else {
			s.statusf("You earn LESS than or the same as %s", other.Hex())
		}
	}
}

// bumpDecryptAttempts records a failed attempt for kind and returns the new
// total of failed attempts.
func (s *Session) bumpDecryptAttempts(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decryptAttempts[kind]++
	return s.decryptAttempts[kind]
}

func (s *Session) resetDecryptAttempts(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decryptAttempts[kind] = 0
}
