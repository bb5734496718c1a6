// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package credentials manages the short-lived signed authorizations the
// decryption gateway requires before re-encrypting ciphertexts for a user.
package credentials

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"sort"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/ids"
)

var (
	ErrNoContracts = errors.New("credential must authorize at least one contract")
	ErrNoSigner    = errors.New("no signer available")
)

// Credential authorizes decryption of handles owned by User on the listed
// contracts for the validity window. The ephemeral keypair is generated
// locally; the gateway re-encrypts decryption shares to PublicKey, and
// Signature proves the user approved that keypair for this scope.
type Credential struct {
	SecretKey hexutil.Bytes    `json:"secretKey"`
	PublicKey hexutil.Bytes    `json:"publicKey"`
	Signature hexutil.Bytes    `json:"signature"`
	Contracts []common.Address `json:"contracts"`
	User      common.Address   `json:"user"`
	IssuedAt  time.Time        `json:"issuedAt"`
	Validity  time.Duration    `json:"validity"`
}

// Expiry returns the instant the credential stops being accepted.
func (c *Credential) Expiry() time.Time {
	return c.IssuedAt.Add(c.Validity)
}

// Valid reports whether the credential is usable at now: complete material
// and inside its validity window.
func (c *Credential) Valid(now time.Time) bool {
	if c == nil {
		return false
	}
	if len(c.SecretKey) == 0 || len(c.PublicKey) == 0 || len(c.Signature) == 0 {
		return false
	}
	if len(c.Contracts) == 0 || c.User == (common.Address{}) {
		return false
	}
	return !now.Before(c.IssuedAt) && now.Before(c.Expiry())
}

// ID identifies the scope of a credential: one user and one contract set.
// Credentials with the same scope are interchangeable while valid, so the
// ID doubles as the cache and persistence key.
func (c *Credential) ID() ids.ID {
	return ScopeID(c.User, c.Contracts)
}

// ScopeID derives the credential identity for a (user, contract set) pair.
// The contract list is order-insensitive.
func ScopeID(user common.Address, contracts []common.Address) ids.ID {
	sorted := make([]common.Address, len(contracts))
	copy(sorted, contracts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Cmp(sorted[j]) < 0
	})

	seed := make([]byte, 0, common.AddressLength*(len(sorted)+1))
	seed = append(seed, user.Bytes()...)
	for _, contract := range sorted {
		seed = append(seed, contract.Bytes()...)
	}
	return ids.ID(sha256.Sum256(seed))
}

// AuthorizationDigest is the message the user signs to approve an ephemeral
// decryption keypair for a contract scope and validity window.
func AuthorizationDigest(
	publicKey []byte,
	contracts []common.Address,
	user common.Address,
	issuedAt time.Time,
	validity time.Duration,
) common.Hash {
	var window [16]byte
	binary.BigEndian.PutUint64(window[:8], uint64(issuedAt.Unix()))
	binary.BigEndian.PutUint64(window[8:], uint64(validity/time.Second))

	parts := make([][]byte, 0, len(contracts)+3)
	parts = append(parts, publicKey, user.Bytes(), window[:])
	for _, contract := range contracts {
		parts = append(parts, contract.Bytes())
	}
	return common.Keccak256Hash(parts...)
}
