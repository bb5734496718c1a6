// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package evm implements the on-chain salary contract client.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/accounts/abi/bind"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/geth/ethclient"
	"github.com/luxfi/log"

	"github.com/luxfi/fhepay"
	"github.com/luxfi/fhepay/utils"
)

const (
	defaultRPCTimeout         = 10 * time.Second
	defaultTxInclusionTimeout = 30 * time.Second
)

var ErrTxReverted = errors.New("transaction reverted")

// ChainID dials the endpoint just long enough to read its chain id. Used to
// resolve which contract deployment to bind before building a full client.
func ChainID(ctx context.Context, rpcEndpoint string) (uint64, error) {
	client, err := ethclient.DialContext(ctx, rpcEndpoint)
	if err != nil {
		return 0, fmt.Errorf("failed to dial rpc endpoint: %w", err)
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain id: %w", err)
	}
	return chainID.Uint64(), nil
}

const salaryContractABI = `[
	{"type":"function","name":"hasSalary","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getMySalary","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"submitSalary","stateMutability":"nonpayable","inputs":[{"name":"encryptedSalary","type":"bytes32"},{"name":"inputProof","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"compareSalaries","stateMutability":"nonpayable","inputs":[{"name":"other","type":"address"}],"outputs":[]},
	{"type":"function","name":"getComparisonResult","stateMutability":"view","inputs":[{"name":"a","type":"address"},{"name":"b","type":"address"}],"outputs":[{"name":"","type":"bytes32"}]}
]`

// ContractClient implements fhepay.SalaryContract against a deployed salary
// contract over JSON-RPC.
type ContractClient struct {
	log                log.Logger
	client             *ethclient.Client
	signer             Signer
	chainID            *big.Int
	contract           common.Address
	bound              *bind.BoundContract
	txInclusionTimeout time.Duration
}

var _ fhepay.SalaryContract = (*ContractClient)(nil)

// NewContractClient dials the RPC endpoint and binds the salary contract at
// the given address.
func NewContractClient(
	ctx context.Context,
	logger log.Logger,
	rpcEndpoint string,
	contract common.Address,
	signer Signer,
) (*ContractClient, error) {
	client, err := ethclient.DialContext(ctx, rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc endpoint: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(salaryContractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}

	logger.Info(
		"initialized salary contract client",
		log.Stringer("contract", contract),
		log.Stringer("chainID", chainID),
		log.Stringer("sender", signer.Address()),
	)
	return &ContractClient{
		log:                logger,
		client:             client,
		signer:             signer,
		chainID:            chainID,
		contract:           contract,
		bound:              bind.NewBoundContract(contract, parsed, client, client, client),
		txInclusionTimeout: defaultTxInclusionTimeout,
	}, nil
}

// ChainID returns the chain id of the connected endpoint.
func (c *ContractClient) ChainID() uint64 {
	return c.chainID.Uint64()
}

// SenderAddress returns the transaction sender.
func (c *ContractClient) SenderAddress() common.Address {
	return c.signer.Address()
}

func (c *ContractClient) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: c.signer.Address()}
}

func (c *ContractClient) transactOpts(ctx context.Context) *bind.TransactOpts {
	return &bind.TransactOpts{
		From:    c.signer.Address(),
		Context: ctx,
		Signer: func(_ common.Address, tx *types.Transaction) (*types.Transaction, error) {
			return c.signer.SignTx(tx, c.chainID)
		},
	}
}

func (c *ContractClient) HasSalary(ctx context.Context, addr common.Address) (bool, error) {
	var out []interface{}
	if err := c.bound.Call(c.callOpts(ctx), &out, "hasSalary", addr); err != nil {
		return false, fmt.Errorf("hasSalary call: %w", err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (c *ContractClient) MySalary(ctx context.Context) (fhepay.Handle, error) {
	var out []interface{}
	if err := c.bound.Call(c.callOpts(ctx), &out, "getMySalary"); err != nil {
		return fhepay.EmptyHandle, fmt.Errorf("getMySalary call: %w", err)
	}
	raw := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	return fhepay.Handle(raw), nil
}

func (c *ContractClient) SubmitSalary(
	ctx context.Context,
	handle fhepay.Handle,
	proof []byte,
) (*types.Receipt, error) {
	tx, err := c.bound.Transact(c.transactOpts(ctx), "submitSalary", [32]byte(handle), proof)
	if err != nil {
		return nil, fmt.Errorf("submitSalary transaction: %w", err)
	}
	return c.waitForReceipt(ctx, tx.Hash())
}

func (c *ContractClient) CompareSalaries(
	ctx context.Context,
	other common.Address,
) (*types.Receipt, error) {
	tx, err := c.bound.Transact(c.transactOpts(ctx), "compareSalaries", other)
	if err != nil {
		return nil, fmt.Errorf("compareSalaries transaction: %w", err)
	}
	return c.waitForReceipt(ctx, tx.Hash())
}

func (c *ContractClient) ComparisonResult(
	ctx context.Context,
	a, b common.Address,
) (fhepay.Handle, error) {
	var out []interface{}
	if err := c.bound.Call(c.callOpts(ctx), &out, "getComparisonResult", a, b); err != nil {
		return fhepay.EmptyHandle, fmt.Errorf("getComparisonResult call: %w", err)
	}
	raw := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	return fhepay.Handle(raw), nil
}

// waitForReceipt polls for the transaction receipt until the inclusion
// timeout elapses, then checks the execution status.
func (c *ContractClient) waitForReceipt(
	ctx context.Context,
	txHash common.Hash,
) (*types.Receipt, error) {
	var receipt *types.Receipt
	operation := func() (err error) {
		callCtx, cancel := context.WithTimeout(ctx, defaultRPCTimeout)
		defer cancel()
		receipt, err = c.client.TransactionReceipt(callCtx, txHash)
		return err
	}
	if err := utils.WithRetriesTimeout(c.log, operation, c.txInclusionTimeout, "waitForReceipt"); err != nil {
		c.log.Error(
			"failed to get transaction receipt",
			log.Stringer("txID", txHash),
			log.Err(err),
		)
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, txHash)
	}
	c.log.Debug(
		"transaction confirmed",
		log.Stringer("txID", txHash),
		log.Uint64("block", receipt.BlockNumber.Uint64()),
	)
	return receipt, nil
}
