// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhepay

import (
	"context"
	"errors"

	"github.com/luxfi/log"
)

// Submit encrypts amount, binds it to the current contract and signer, and
// stores it on chain. Failures surface the underlying error message and are
// never retried automatically; the user resubmits.
func (s *Session) Submit(ctx context.Context, amount uint32) error {
	if amount == 0 {
		s.setStatus(msgInvalidAmount)
		return ErrInvalidAmount
	}
	if !s.ready() {
		s.setStatus(msgNotReady)
		return ErrNotReady
	}

	snap, ok := s.begin(OpSubmit)
	if !ok {
		return nil
	}
	defer s.end(OpSubmit)
	s.metrics.Started(OpSubmit.String())

	s.setStatus("Encrypting salary...")
	input := s.encryptor.CreateEncryptedInput(snap.Contract, snap.Signer)
	handle, proof, err := input.Add32(amount).Encrypt(ctx)
	if err != nil {
		s.metrics.Failed(OpSubmit.String())
		s.setStatus("Submission failed: " + err.Error())
		return err
	}

	// Encryption can block on user interaction; the chain or account may
	// have changed underneath. Never submit a ciphertext bound to a stale
	// context.
	if s.staleAbort(snap, OpSubmit.String()) {
		return ErrStaleContext
	}

	s.setStatus("Submitting salary...")
	if _, err := s.contract.SubmitSalary(ctx, handle, proof); err != nil {
		s.metrics.Failed(OpSubmit.String())
		s.setStatus("Submission failed: " + err.Error())
		return err
	}
	if s.staleAbort(snap, OpSubmit.String()) {
		return ErrStaleContext
	}

	s.setHasSalary(true)
	s.metrics.Succeeded(OpSubmit.String())
	s.setStatus("Salary submitted")

	// The confirmed transaction produced a fresh on-chain handle; pick it
	// up immediately. The refresh surfaces its own status on failure.
	if err := s.refreshSalary(ctx, snap); err != nil && !errors.Is(err, ErrStaleContext) {
		s.log.Warn("salary refresh after submit failed", log.Err(err))
	}
	return nil
}

// Compare validates the counterpart address, requests an encrypted
// comparison on chain, and tracks the resulting ciphertext handle. Input
// validation short-circuits at the first failure with a distinct message
// and never contacts the network.
func (s *Session) Compare(ctx context.Context, counterpart string) error {
	if !s.ready() {
		s.setStatus(msgNotReady)
		return ErrNotReady
	}

	snap, ok := s.begin(OpCompare)
	if !ok {
		return nil
	}
	defer s.end(OpCompare)
	s.metrics.Started(OpCompare.String())

	other, err := ValidateCounterpart(counterpart, snap.Signer)
	if err != nil {
		s.setStatus(validationMessage(err))
		return err
	}

	s.setStatus("Comparing salaries...")
	if _, err := s.contract.CompareSalaries(ctx, other); err != nil {
		s.metrics.Failed(OpCompare.String())
		s.setStatus("Comparison failed: " + err.Error())
		return err
	}
	if s.staleAbort(snap, OpCompare.String()) {
		return ErrStaleContext
	}

	handle, err := s.contract.ComparisonResult(ctx, snap.Signer, other)
	if err != nil {
		s.metrics.Failed(OpCompare.String())
		s.setStatus("Failed to fetch comparison result: " + err.Error())
		return err
	}
	if s.staleAbort(snap, OpCompare.String()) {
		return ErrStaleContext
	}

	s.store.SetHandle(KindComparison, handle)
	s.mu.Lock()
	s.counterpart = other
	s.mu.Unlock()

	s.metrics.Succeeded(OpCompare.String())
	s.setStatus("Comparison complete, result ready to decrypt")
	return nil
}

// validationMessage maps counterpart validation errors to the user-facing
// message each one deserves.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyAddress):
		return "Enter the address to compare with"
	case errors.Is(err, ErrMissingHexPrefix):
		return "Address must start with 0x"
	case errors.Is(err, ErrBadAddressLength):
		return "Address must be 42 characters long"
	case errors.Is(err, ErrBadChecksum):
		return "Address is not a valid Ethereum address"
	case errors.Is(err, ErrSelfComparison):
		return "You cannot compare your salary with your own address"
	default:
		return "Invalid address: " + err.Error()
	}
}
