/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

// Packager manages the building and parsing of encrypted envelopes exchanged through the agency.
type Packager interface {
	// PackMessage encrypts envelope.Message from envelope.FromVerKey to every key in envelope.ToVerKeys.
	PackMessage(envelope *Envelope) ([]byte, error)

	// UnpackMessage decrypts an envelope addressed to one of the local keys.
	UnpackMessage(encMessage []byte) (*Envelope, error)
}
