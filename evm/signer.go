// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
)

// Signer signs transactions for the salary contract.
type Signer interface {
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	Address() common.Address
}

// TxSigner signs with a local private key. It also implements the credential
// signer contract by producing EIP-191 personal signatures, so one key can
// drive both transactions and decryption authorizations.
type TxSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewTxSigner parses a hex-encoded secp256k1 private key.
func NewTxSigner(hexKey string) (*TxSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &TxSigner{
		key:     key,
		address: common.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *TxSigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

func (s *TxSigner) Address() common.Address {
	return s.address
}

// SignAuthorization signs a credential digest with the EIP-191 personal
// message prefix, matching what wallet providers produce for the same
// authorization.
func (s *TxSigner) SignAuthorization(_ context.Context, digest common.Hash) ([]byte, error) {
	prefixed := common.Keccak256Hash(
		[]byte("\x19Ethereum Signed Message:\n32"),
		digest.Bytes(),
	)
	return crypto.Sign(prefixed.Bytes(), s.key)
}
