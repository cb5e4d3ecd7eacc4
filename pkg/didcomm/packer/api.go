/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package packer

import (
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/kms"
)

// Provider interface for Packer ctx.
type Provider interface {
	KMS() *kms.BaseKMS
}

// Creator method to create new Packer service.
type Creator func(prov Provider) (Packer, error)

// Packer is an Aries envelope packer/unpacker to support
// secure DIDComm exchange of envelopes between Aries agents.
type Packer interface {
	// Pack a payload in an Aries compliant format using the sender verkey
	// and a list of recipients public verkeys
	// returns:
	// 		[]byte containing the encrypted envelope
	//		error if encryption failed
	Pack(payload []byte, senderKey []byte, recipients [][]byte) ([]byte, error)
	// Unpack an envelope in an Aries compliant format.
	// 		The recipient's key will be the one found in KMS that matches one of the list of recipients in the envelope
	//
	// returns:
	// 		Envelope containing the message, decryption key, and sender key
	//		error if decryption failed
	Unpack(envelope []byte) (*transport.Envelope, error)

	// EncodingType returns the type of the encoding, as found in the header `Typ` field
	EncodingType() string
}
