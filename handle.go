// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhepay

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Handle is the 256-bit identifier of a ciphertext held by the salary
// contract. Handles are opaque: the coprocessor resolves them to ciphertext
// material, clients only track and compare them.
type Handle common.Hash

// EmptyHandle is the well-known all-zero handle. The contract returns it for
// slots that were never written; decrypting it is defined as zero and never
// reaches the decryption gateway.
var EmptyHandle = Handle{}

// IsEmpty reports whether h is the all-zero sentinel.
func (h Handle) IsEmpty() bool {
	return h == EmptyHandle
}

// Hex returns the 0x-prefixed hex encoding of the handle.
func (h Handle) Hex() string {
	return common.Hash(h).Hex()
}

func (h Handle) String() string {
	return h.Hex()
}

// Bytes returns the handle as a byte slice.
func (h Handle) Bytes() []byte {
	return common.Hash(h).Bytes()
}

// HexToHandle parses a 0x-prefixed hex string into a Handle.
func HexToHandle(s string) Handle {
	return Handle(common.HexToHash(s))
}

// Kind identifies one of the encrypted quantities a session tracks.
type Kind int

const (
	// KindSalary is the caller's own encrypted salary.
	KindSalary Kind = iota
	// KindComparison is the encrypted result of the last salary comparison.
	KindComparison

	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindSalary:
		return "salary"
	case KindComparison:
		return "comparison"
	default:
		return "unknown"
	}
}

// TrackedValue is the latest known on-chain handle for one tracked kind.
// Set distinguishes "never read from the contract" from the zero handle,
// which the contract legitimately returns for unwritten slots.
type TrackedValue struct {
	Handle Handle
	Set    bool
}

// HasHandle reports whether a real (non-sentinel) handle is tracked.
func (t TrackedValue) HasHandle() bool {
	return t.Set && !t.Handle.IsEmpty()
}

// ClearValue is the decrypted counterpart of a TrackedValue. It is valid only
// while Handle still equals the tracked handle it was decrypted from.
type ClearValue struct {
	Handle Handle
	Clear  *uint256.Int
}

// Bool interprets the clear value as a boolean, used for comparison results.
func (c ClearValue) Bool() bool {
	return c.Clear != nil && !c.Clear.IsZero()
}
