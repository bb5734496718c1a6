// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"context"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/log"

	"github.com/luxfi/fhepay"
)

const inputProofPath = "/v1/input-proof"

// Encryptor builds encrypted inputs through the gateway's input-proof
// endpoint. Each input is bound to a (contract, user) pair; the proof the
// gateway returns is what the contract verifies on submission.
type Encryptor struct {
	client *Client
}

var _ fhepay.InputEncryptor = (*Encryptor)(nil)

// NewEncryptor creates an input encryptor sharing the gateway client.
func NewEncryptor(client *Client) *Encryptor {
	return &Encryptor{client: client}
}

func (e *Encryptor) CreateEncryptedInput(contract, user common.Address) fhepay.EncryptedInput {
	return &encryptedInput{
		client:   e.client,
		contract: contract,
		user:     user,
	}
}

type encryptedInput struct {
	client   *Client
	contract common.Address
	user     common.Address
	values   []uint32
}

func (in *encryptedInput) Add32(value uint32) fhepay.EncryptedInput {
	in.values = append(in.values, value)
	return in
}

type inputProofRequest struct {
	Contract string   `json:"contractAddress"`
	User     string   `json:"userAddress"`
	Values   []uint32 `json:"values"`
}

type inputProofResponse struct {
	Handles []string      `json:"handles"`
	Proof   hexutil.Bytes `json:"inputProof"`
	Error   string        `json:"error,omitempty"`
}

func (in *encryptedInput) Encrypt(ctx context.Context) (fhepay.Handle, []byte, error) {
	if len(in.values) == 0 {
		return fhepay.EmptyHandle, nil, fmt.Errorf("no values added to encrypted input")
	}

	body := inputProofRequest{
		Contract: in.contract.Hex(),
		User:     in.user.Hex(),
		Values:   in.values,
	}
	var parsed inputProofResponse
	resp, err := in.client.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&parsed).
		Post(inputProofPath)
	if err != nil {
		return fhepay.EmptyHandle, nil, fmt.Errorf("input proof request: %w", err)
	}
	if resp.IsError() {
		return fhepay.EmptyHandle, nil, fmt.Errorf("gateway returned %s: %s", resp.Status(), resp.String())
	}
	if parsed.Error != "" {
		return fhepay.EmptyHandle, nil, fmt.Errorf("gateway rejected input: %s", parsed.Error)
	}
	if len(parsed.Handles) == 0 {
		return fhepay.EmptyHandle, nil, fmt.Errorf("gateway returned no handles")
	}

	in.client.log.Debug(
		"encrypted input created",
		log.Stringer("contract", in.contract),
		log.Int("values", len(in.values)),
	)
	return fhepay.HexToHandle(parsed.Handles[0]), parsed.Proof, nil
}
