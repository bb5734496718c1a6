// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhepay

import (
	"errors"
	"strings"

	"github.com/luxfi/geth/common"
)

var (
	ErrEmptyAddress     = errors.New("address is empty")
	ErrMissingHexPrefix = errors.New("address must start with 0x")
	ErrBadAddressLength = errors.New("address must be 42 characters long")
	ErrBadChecksum      = errors.New("address failed checksum validation")
	ErrSelfComparison   = errors.New("cannot compare salary with yourself")
)

const addressLength = 2 + 2*common.AddressLength

// ValidateCounterpart validates the address the user wants to compare
// salaries with. Checks run in a fixed order and short-circuit at the first
// failure so each malformed input yields one specific error: presence, 0x
// prefix, length, checksum, and finally a self-comparison check against the
// caller's own address.
func ValidateCounterpart(raw string, self common.Address) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return common.Address{}, ErrEmptyAddress
	}
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return common.Address{}, ErrMissingHexPrefix
	}
	if len(raw) != addressLength {
		return common.Address{}, ErrBadAddressLength
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, ErrBadChecksum
	}
	if mixedCase(raw[2:]) {
		mixed, err := common.NewMixedcaseAddressFromString(raw)
		if err != nil || !mixed.ValidChecksum() {
			return common.Address{}, ErrBadChecksum
		}
	}
	addr := common.HexToAddress(raw)
	if addr == self {
		return common.Address{}, ErrSelfComparison
	}
	return addr, nil
}

// mixedCase reports whether s contains both upper and lower case hex letters.
// All-lowercase and all-uppercase addresses carry no checksum to verify.
func mixedCase(s string) bool {
	var hasUpper, hasLower bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'f':
			hasLower = true
		case r >= 'A' && r <= 'F':
			hasUpper = true
		}
	}
	return hasUpper && hasLower
}
