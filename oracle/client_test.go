// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fhepay"
	"github.com/luxfi/fhepay/credentials"
)

var (
	testUser     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testContract = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func testCredential() *credentials.Credential {
	return &credentials.Credential{
		SecretKey: []byte{1},
		PublicKey: []byte{2, 3},
		Signature: []byte{4, 5},
		Contracts: []common.Address{testContract},
		User:      testUser,
		IssuedAt:  time.Now().Add(-time.Minute),
		Validity:  time.Hour,
	}
}

func TestUserDecrypt(t *testing.T) {
	handleA := fhepay.HexToHandle("0x0a")
	handleB := fhepay.HexToHandle("0x0b")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/user-decrypt", r.URL.Path)

		var req userDecryptRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Requests, 2)
		require.Equal(t, handleA.Hex(), req.Requests[0].Handle)
		require.Equal(t, testContract.Hex(), req.Requests[0].Contract)
		require.Equal(t, testUser.Hex(), req.User)
		require.Equal(t, int64(3600), req.Validity)
		require.Equal(t, []string{testContract.Hex()}, req.Contracts)
		require.NotEmpty(t, req.PublicKey)
		require.NotEmpty(t, req.Signature)

		// Hex and decimal encodings are both accepted.
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(userDecryptResponse{
			Results: map[string]string{
				handleA.Hex(): "0x1388",
				handleB.Hex(): "1",
			},
		})
	}))
	defer server.Close()

	client := NewClient(log.NewNoOpLogger(), server.URL, time.Second)
	results, err := client.UserDecrypt(
		context.Background(),
		[]fhepay.HandleRequest{
			{Handle: handleA, Contract: testContract},
			{Handle: handleB, Contract: testContract},
		},
		testCredential(),
	)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, uint64(5000), results[handleA].Uint64())
	require.Equal(t, uint64(1), results[handleB].Uint64())
}

func TestUserDecryptGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(userDecryptResponse{Error: "credential not accepted"})
	}))
	defer server.Close()

	client := NewClient(log.NewNoOpLogger(), server.URL, time.Second)
	_, err := client.UserDecrypt(
		context.Background(),
		[]fhepay.HandleRequest{{Handle: fhepay.HexToHandle("0x0a"), Contract: testContract}},
		testCredential(),
	)
	require.ErrorContains(t, err, "credential not accepted")
}

func TestUserDecryptHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(log.NewNoOpLogger(), server.URL, time.Second)
	_, err := client.UserDecrypt(
		context.Background(),
		[]fhepay.HandleRequest{{Handle: fhepay.HexToHandle("0x0a"), Contract: testContract}},
		testCredential(),
	)
	require.Error(t, err)
}

func TestUserDecryptMissingHandle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(userDecryptResponse{Results: map[string]string{}})
	}))
	defer server.Close()

	client := NewClient(log.NewNoOpLogger(), server.URL, time.Second)
	_, err := client.UserDecrypt(
		context.Background(),
		[]fhepay.HandleRequest{{Handle: fhepay.HexToHandle("0x0a"), Contract: testContract}},
		testCredential(),
	)
	require.ErrorContains(t, err, "missing handle")
}

func TestUserDecryptRejectsBadInput(t *testing.T) {
	client := NewClient(log.NewNoOpLogger(), "http://localhost:0", time.Second)

	_, err := client.UserDecrypt(context.Background(), nil, testCredential())
	require.ErrorIs(t, err, ErrNoRequests)

	expired := testCredential()
	expired.IssuedAt = time.Now().Add(-2 * time.Hour)
	_, err = client.UserDecrypt(
		context.Background(),
		[]fhepay.HandleRequest{{Handle: fhepay.HexToHandle("0x0a"), Contract: testContract}},
		expired,
	)
	require.ErrorIs(t, err, ErrNoCredential)
}

func TestParseClear(t *testing.T) {
	v, err := parseClear("0x1388")
	require.NoError(t, err)
	require.Equal(t, uint64(5000), v.Uint64())

	v, err = parseClear("5000")
	require.NoError(t, err)
	require.Equal(t, uint64(5000), v.Uint64())

	v, err = parseClear("0")
	require.NoError(t, err)
	require.True(t, v.IsZero())

	_, err = parseClear("not-a-number")
	require.Error(t, err)
}

func TestEncryptor(t *testing.T) {
	proof := []byte{0xde, 0xad, 0xbe, 0xef}
	handle := fhepay.HexToHandle("0x07")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/input-proof", r.URL.Path)

		var req inputProofRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, testContract.Hex(), req.Contract)
		require.Equal(t, testUser.Hex(), req.User)
		require.Equal(t, []uint32{5000}, req.Values)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(inputProofResponse{
			Handles: []string{handle.Hex()},
			Proof:   proof,
		})
	}))
	defer server.Close()

	client := NewClient(log.NewNoOpLogger(), server.URL, time.Second)
	enc := NewEncryptor(client)

	gotHandle, gotProof, err := enc.
		CreateEncryptedInput(testContract, testUser).
		Add32(5000).
		Encrypt(context.Background())
	require.NoError(t, err)
	require.Equal(t, handle, gotHandle)
	require.Equal(t, proof, gotProof)
}

func TestEncryptorNoValues(t *testing.T) {
	client := NewClient(log.NewNoOpLogger(), "http://localhost:0", time.Second)
	enc := NewEncryptor(client)

	_, _, err := enc.CreateEncryptedInput(testContract, testUser).Encrypt(context.Background())
	require.ErrorContains(t, err, "no values")
}

func TestEncryptorGatewayRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(inputProofResponse{Error: "proof generation failed"})
	}))
	defer server.Close()

	client := NewClient(log.NewNoOpLogger(), server.URL, time.Second)
	_, _, err := NewEncryptor(client).
		CreateEncryptedInput(testContract, testUser).
		Add32(1).
		Encrypt(context.Background())
	require.ErrorContains(t, err, "proof generation failed")
}
