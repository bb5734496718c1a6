// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhepay

import (
	"github.com/luxfi/geth/common"
)

// ContextSource exposes the ambient context an operation runs under: the
// current chain, the current signer, and the contract registry. The host
// environment owns it; the session only reads it.
type ContextSource interface {
	// ChainID returns the EVM chain id currently connected to.
	ChainID() uint64

	// Signer returns the address of the currently selected account, or the
	// zero address if no account is connected.
	Signer() common.Address

	// ContractAddress resolves the salary contract address for chainID.
	// The second return is false if the contract is not deployed there.
	ContractAddress(chainID uint64) (common.Address, bool)
}

// Snapshot is the ambient context captured when an operation starts. It is
// never mutated afterwards; comparing it against the live ContextSource
// detects chain or account switches that happened across a suspension point.
type Snapshot struct {
	Contract common.Address
	ChainID  uint64
	Signer   common.Address
}

// Capture records the current ambient context.
func Capture(src ContextSource) Snapshot {
	chainID := src.ChainID()
	contract, _ := src.ContractAddress(chainID)
	return Snapshot{
		Contract: contract,
		ChainID:  chainID,
		Signer:   src.Signer(),
	}
}

// Stale reports whether the ambient context has drifted from the snapshot.
// Operations must check this after every external call returns and before
// committing any state derived from the call's result.
func (s Snapshot) Stale(src ContextSource) bool {
	chainID := src.ChainID()
	if chainID != s.ChainID {
		return true
	}
	if src.Signer() != s.Signer {
		return true
	}
	contract, _ := src.ContractAddress(chainID)
	return contract != s.Contract
}
