/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vcxerror holds the error taxonomy shared by the connection engine, the codec and the message service.
//
// Errors are returned wrapped with context; callers classify them with errors.Is.
package vcxerror

import "errors"

var (
	// ErrInvalidHandle is returned when a handle is not present in the registry.
	ErrInvalidHandle = errors.New("invalid connection handle")

	// ErrInvalidState is returned when an inbound message does not fit the connection's current state.
	// The connection is left unchanged.
	ErrInvalidState = errors.New("invalid connection state")

	// ErrSignatureVerificationFailed is returned when a signed block does not verify against its expected signer.
	ErrSignatureVerificationFailed = errors.New("signature verification failed")

	// ErrDecode is returned for malformed wire payloads and unpack failures.
	ErrDecode = errors.New("decode error")

	// ErrOrderingAnomaly is returned when an inbound thread order is not newer than the last one recorded.
	ErrOrderingAnomaly = errors.New("thread ordering anomaly")

	// ErrTransport is returned when the relay or the key provider fails. It is retryable.
	ErrTransport = errors.New("transport error")

	// ErrNotFound is returned when a message is not known to the relay.
	ErrNotFound = errors.New("not found")
)

// IsRetryable reports whether err is a transient failure the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport)
}
