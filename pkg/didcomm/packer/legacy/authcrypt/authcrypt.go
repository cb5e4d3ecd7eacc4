/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package authcrypt

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/packer"
	"github.com/hyperledger/aries-vcx-go/pkg/kms"
)

// Packer represents an Authcrypt Pack/Unpacker that outputs/reads legacy Aries envelopes.
type Packer struct {
	randSource io.Reader
	kms        *kms.BaseKMS
	cryptoBox  *kms.CryptoBox
}

// encodingType is the `typ` string identifier in a message that identifies the format as being legacy.
const encodingType string = "JWM/1.0"

const (
	algAuthcrypt = "Authcrypt"
	encChacha    = "chacha20poly1305_ietf"
)

// Opt configures the packer.
type Opt func(*Packer)

// WithRandSource sets the entropy for content keys and nonces.
func WithRandSource(r io.Reader) Opt {
	return func(p *Packer) {
		p.randSource = r
	}
}

// New will create a Packer that encrypts messages using the legacy Aries format.
// Note: legacy Packer does not support XChacha20Poly1035 (XC20P), only Chacha20Poly1035 (C20P).
func New(ctx packer.Provider, opts ...Opt) *Packer {
	k := ctx.KMS()

	p := &Packer{
		randSource: rand.Reader,
		kms:        k,
		cryptoBox:  kms.NewCryptoBox(k),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// legacyEnvelope is the full payload envelope for the JSON message.
type legacyEnvelope struct {
	Protected  string `json:"protected,omitempty"`
	IV         string `json:"iv,omitempty"`
	CipherText string `json:"ciphertext,omitempty"`
	Tag        string `json:"tag,omitempty"`
}

// protected is the protected header of the JSON envelope.
type protected struct {
	Enc        string      `json:"enc,omitempty"`
	Typ        string      `json:"typ,omitempty"`
	Alg        string      `json:"alg,omitempty"`
	Recipients []recipient `json:"recipients,omitempty"`
}

// recipient holds the data for a recipient in the envelope header.
type recipient struct {
	EncryptedKey string          `json:"encrypted_key,omitempty"`
	Header       recipientHeader `json:"header,omitempty"`
}

// recipientHeader holds the header data for a recipient.
type recipientHeader struct {
	KID    string `json:"kid,omitempty"`
	Sender string `json:"sender,omitempty"`
	IV     string `json:"iv,omitempty"`
}

// EncodingType returns the type of the encoding, as in the `Typ` field of the envelope header.
func (p *Packer) EncodingType() string {
	return encodingType
}

// RecipientKIDs lists the base58 recipient verkeys named in an envelope's protected header,
// without decrypting anything. The relay files envelopes by these keys.
func RecipientKIDs(envelope []byte) ([]string, error) {
	var envelopeData legacyEnvelope

	if err := json.Unmarshal(envelope, &envelopeData); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}

	protectedData, err := decodeProtected(envelopeData.Protected)
	if err != nil {
		return nil, err
	}

	kids := make([]string, 0, len(protectedData.Recipients))

	for _, r := range protectedData.Recipients {
		kids = append(kids, r.Header.KID)
	}

	return kids, nil
}

func decodeProtected(b64 string) (*protected, error) {
	protectedBytes, err := base64.URLEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode protected header: %w", err)
	}

	var protectedData protected

	err = json.Unmarshal(protectedBytes, &protectedData)
	if err != nil {
		return nil, fmt.Errorf("parse protected header: %w", err)
	}

	return &protectedData, nil
}
