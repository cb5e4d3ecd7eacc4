/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

// Envelope holds message data and metadata for inbound and outbound messaging.
type Envelope struct {
	Message []byte
	// FromVerKey is the base58 verification key of the sender
	FromVerKey string
	// ToVerKeys stores base58 verification keys for an outbound message
	ToVerKeys []string
	// ToVerKey holds the key that was used to decrypt an inbound message
	ToVerKey string
}
