// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oracle implements the HTTP client for the off-chain decryption
// gateway. The gateway verifies the user's credential and re-encrypts the
// requested ciphertexts to the credential's ephemeral keypair.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/log"

	"github.com/luxfi/fhepay"
	"github.com/luxfi/fhepay/credentials"
)

const (
	defaultTimeout  = 30 * time.Second
	userDecryptPath = "/v1/user-decrypt"
)

var (
	ErrNoCredential = errors.New("no decryption credential")
	ErrNoRequests   = errors.New("no handles requested")
)

// Client talks to the decryption gateway. It performs a single attempt per
// call; retry policy belongs to the session driving it.
type Client struct {
	log  log.Logger
	http *resty.Client
}

// NewClient creates a gateway client for baseURL.
func NewClient(logger log.Logger, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		log: logger,
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout),
	}
}

type decryptRequestEntry struct {
	Handle   string `json:"handle"`
	Contract string `json:"contractAddress"`
}

type userDecryptRequest struct {
	Requests  []decryptRequestEntry `json:"handleContractPairs"`
	PublicKey hexutil.Bytes         `json:"publicKey"`
	Signature hexutil.Bytes         `json:"signature"`
	User      string                `json:"userAddress"`
	IssuedAt  int64                 `json:"startTimestamp"`
	Validity  int64                 `json:"durationSeconds"`
	Contracts []string              `json:"contractAddresses"`
}

type userDecryptResponse struct {
	Results map[string]string `json:"results"`
	Error   string            `json:"error,omitempty"`
}

// UserDecrypt decrypts the requested handles under cred. The returned map is
// keyed by handle; a handle missing from the gateway response is an error.
func (c *Client) UserDecrypt(
	ctx context.Context,
	requests []fhepay.HandleRequest,
	cred *credentials.Credential,
) (map[fhepay.Handle]*uint256.Int, error) {
	if len(requests) == 0 {
		return nil, ErrNoRequests
	}
	if !cred.Valid(time.Now()) {
		return nil, ErrNoCredential
	}

	body := userDecryptRequest{
		Requests:  make([]decryptRequestEntry, 0, len(requests)),
		PublicKey: cred.PublicKey,
		Signature: cred.Signature,
		User:      cred.User.Hex(),
		IssuedAt:  cred.IssuedAt.Unix(),
		Validity:  int64(cred.Validity / time.Second),
		Contracts: make([]string, 0, len(cred.Contracts)),
	}
	for _, req := range requests {
		body.Requests = append(body.Requests, decryptRequestEntry{
			Handle:   req.Handle.Hex(),
			Contract: req.Contract.Hex(),
		})
	}
	for _, contract := range cred.Contracts {
		body.Contracts = append(body.Contracts, contract.Hex())
	}

	var parsed userDecryptResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&parsed).
		Post(userDecryptPath)
	if err != nil {
		return nil, fmt.Errorf("user decrypt request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("gateway returned %s: %s", resp.Status(), resp.String())
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("gateway rejected decryption: %s", parsed.Error)
	}

	out := make(map[fhepay.Handle]*uint256.Int, len(requests))
	for _, req := range requests {
		raw, ok := parsed.Results[req.Handle.Hex()]
		if !ok {
			return nil, fmt.Errorf("gateway response missing handle %s", req.Handle)
		}
		value, err := parseClear(raw)
		if err != nil {
			return nil, fmt.Errorf("gateway returned malformed value for %s: %w", req.Handle, err)
		}
		out[req.Handle] = value
	}

	c.log.Debug("user decrypt complete", log.Int("handles", len(out)))
	return out, nil
}

// parseClear accepts hex or decimal cleartext encodings.
func parseClear(raw string) (*uint256.Int, error) {
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		return uint256.FromHex(raw)
	}
	return uint256.FromDecimal(raw)
}
