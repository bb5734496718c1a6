// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhepay

import "fmt"

// Error codes for the session surface.
const (
	CodeNotReady int32 = iota + 1
	CodeInvalidAmount
	CodeStaleContext
	CodeNothingToDecrypt
)

// Error is a coded session error. Hosts embedding the session switch on
// Code; Message is diagnostic, not user-facing (user-facing text goes
// through the status message).
type Error struct {
	Code    int32
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("fhepay error %d: %s", e.Code, e.Message)
}

var (
	ErrNotReady         = &Error{Code: CodeNotReady, Message: "contract or signer not available"}
	ErrInvalidAmount    = &Error{Code: CodeInvalidAmount, Message: "salary must be a positive amount"}
	ErrStaleContext     = &Error{Code: CodeStaleContext, Message: "ambient context changed during operation"}
	ErrNothingToDecrypt = &Error{Code: CodeNothingToDecrypt, Message: "no encrypted value to decrypt"}
)
