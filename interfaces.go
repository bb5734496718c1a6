// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhepay

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"

	"github.com/luxfi/fhepay/credentials"
)

// SalaryContract is the on-chain collaborator. Implementations submit
// transactions under the session's signer and perform reads as that signer.
type SalaryContract interface {
	// HasSalary reports whether addr has submitted a salary.
	HasSalary(ctx context.Context, addr common.Address) (bool, error)

	// MySalary returns the caller's encrypted salary handle.
	MySalary(ctx context.Context) (Handle, error)

	// SubmitSalary stores an encrypted salary, proving knowledge of the
	// plaintext with the coprocessor-issued input proof. Blocks until the
	// transaction is mined.
	SubmitSalary(ctx context.Context, handle Handle, proof []byte) (*types.Receipt, error)

	// CompareSalaries requests an encrypted comparison between the caller's
	// salary and other's. Blocks until the transaction is mined.
	CompareSalaries(ctx context.Context, other common.Address) (*types.Receipt, error)

	// ComparisonResult returns the handle of the encrypted comparison result
	// between a and b.
	ComparisonResult(ctx context.Context, a, b common.Address) (Handle, error)
}

// EncryptedInput accumulates plaintext values and encrypts them into
// ciphertext handles bound to a (contract, user) pair.
type EncryptedInput interface {
	// Add32 appends a 32-bit unsigned value to the input.
	Add32(value uint32) EncryptedInput

	// Encrypt produces the ciphertext handle of the first added value and
	// the input proof the contract verifies. May block on user interaction
	// or coprocessor round trips.
	Encrypt(ctx context.Context) (Handle, []byte, error)
}

// InputEncryptor creates encrypted inputs. It stands in for the FHE runtime
// instance; the binding to contract and user addresses is part of the proof.
type InputEncryptor interface {
	CreateEncryptedInput(contract, user common.Address) EncryptedInput
}

// HandleRequest names one handle to decrypt and the contract it belongs to.
type HandleRequest struct {
	Handle   Handle
	Contract common.Address
}

// DecryptionOracle performs authenticated user decryption through the
// off-chain gateway. The credential proves the user is authorized to read
// the requested handles.
type DecryptionOracle interface {
	UserDecrypt(
		ctx context.Context,
		requests []HandleRequest,
		cred *credentials.Credential,
	) (map[Handle]*uint256.Int, error)
}
