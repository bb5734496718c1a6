// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhepay

import (
	"strings"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

// Canonical EIP-55 test vector.
const checksummed = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestValidateCounterpart(t *testing.T) {
	self := testUser

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "empty",
			input:   "",
			wantErr: ErrEmptyAddress,
		},
		{
			name:    "whitespace only",
			input:   "   ",
			wantErr: ErrEmptyAddress,
		},
		{
			name:    "missing prefix",
			input:   "5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
			wantErr: ErrMissingHexPrefix,
		},
		{
			// Prefix is checked before length: a bare hex string of the
			// right length still fails on the prefix.
			name:    "missing prefix with full length",
			input:   "5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed00",
			wantErr: ErrMissingHexPrefix,
		},
		{
			name:    "too short",
			input:   "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeA",
			wantErr: ErrBadAddressLength,
		},
		{
			name:    "too long",
			input:   checksummed + "00",
			wantErr: ErrBadAddressLength,
		},
		{
			name:    "non-hex characters",
			input:   "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAzz",
			wantErr: ErrBadChecksum,
		},
		{
			name:    "bad checksum",
			input:   "0x5Aaeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
			wantErr: ErrBadChecksum,
		},
		{
			name:    "self comparison",
			input:   self.Hex(),
			wantErr: ErrSelfComparison,
		},
		{
			name:  "valid checksummed",
			input: checksummed,
		},
		{
			// All-lowercase carries no checksum to verify.
			name:  "valid lowercase",
			input: strings.ToLower(checksummed),
		},
		{
			name:  "valid with surrounding whitespace",
			input: "  " + checksummed + "  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ValidateCounterpart(tt.input, self)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, common.HexToAddress(checksummed), addr)
		})
	}
}

func TestValidateCounterpartSelfCaseInsensitive(t *testing.T) {
	// Self detection works on the parsed address, not the raw string, so a
	// lowercase rendition of the caller's own address is still rejected.
	self := common.HexToAddress(checksummed)
	_, err := ValidateCounterpart(strings.ToLower(checksummed), self)
	require.ErrorIs(t, err, ErrSelfComparison)
}
