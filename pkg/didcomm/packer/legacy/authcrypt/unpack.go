/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package authcrypt

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	chacha "golang.org/x/crypto/chacha20poly1305"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/internal/cryptoutil"
)

// Unpack will decode the envelope using the legacy format
// Using (X)Chacha20 encryption algorithm and Poly1035 authenticator.
func (p *Packer) Unpack(envelope []byte) (*transport.Envelope, error) {
	var envelopeData legacyEnvelope

	err := json.Unmarshal(envelope, &envelopeData)
	if err != nil {
		return nil, err
	}

	protectedData, err := decodeProtected(envelopeData.Protected)
	if err != nil {
		return nil, err
	}

	if protectedData.Typ != encodingType {
		return nil, fmt.Errorf("message type %s not supported", protectedData.Typ)
	}

	if protectedData.Alg != algAuthcrypt {
		return nil, fmt.Errorf("message format %s not supported", protectedData.Alg)
	}

	keys, err := p.getCEK(protectedData.Recipients)
	if err != nil {
		return nil, err
	}

	data, err := p.decodeCipherText(keys.cek, &envelopeData)
	if err != nil {
		return nil, err
	}

	return &transport.Envelope{
		Message:    data,
		FromVerKey: base58.Encode(keys.theirKey),
		ToVerKey:   base58.Encode(keys.myKey),
	}, nil
}

type keys struct {
	cek      *[chacha.KeySize]byte
	theirKey []byte
	myKey    []byte
}

func (p *Packer) getCEK(recipients []recipient) (*keys, error) {
	var candidateKeys []string

	for _, candidate := range recipients {
		candidateKeys = append(candidateKeys, candidate.Header.KID)
	}

	recKeyIdx, err := p.kms.FindVerKey(candidateKeys)
	if err != nil {
		return nil, fmt.Errorf("no key accessible %w", err)
	}

	recip := recipients[recKeyIdx]
	recKey := base58.Decode(recip.Header.KID)

	recCurvePub, err := p.kms.GetEncryptionKey(recKey)
	if err != nil {
		return nil, err
	}

	senderPub, senderPubCurve, err := p.decodeSender(recip.Header.Sender, recCurvePub)
	if err != nil {
		return nil, err
	}

	nonceSlice, err := base64.URLEncoding.DecodeString(recip.Header.IV)
	if err != nil {
		return nil, err
	}

	encCEK, err := base64.URLEncoding.DecodeString(recip.EncryptedKey)
	if err != nil {
		return nil, err
	}

	cekSlice, err := p.cryptoBox.EasyOpen(encCEK, nonceSlice, senderPubCurve, recCurvePub)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt CEK: %w", err)
	}

	var cek [chacha.KeySize]byte

	copy(cek[:], cekSlice)

	return &keys{
		cek:      &cek,
		theirKey: senderPub,
		myKey:    recKey,
	}, nil
}

func (p *Packer) decodeSender(b64Sender string, pk []byte) ([]byte, []byte, error) {
	encSender, err := base64.URLEncoding.DecodeString(b64Sender)
	if err != nil {
		return nil, nil, err
	}

	senderPub, err := p.cryptoBox.SealOpen(encSender, pk)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt sender key: %w", err)
	}

	senderData := base58.Decode(string(senderPub))

	senderPubCurve, err := cryptoutil.PublicEd25519toCurve25519(senderData)

	return senderData, senderPubCurve, err
}

// decodeCipherText decodes (from base64) and decrypts the ciphertext using chacha20poly1305.
func (p *Packer) decodeCipherText(cek *[chacha.KeySize]byte, envelope *legacyEnvelope) ([]byte, error) {
	var cipherText, nonce, tag, aad, message []byte
	aad = []byte(envelope.Protected)

	cipherText, err := base64.URLEncoding.DecodeString(envelope.CipherText)
	if err != nil {
		return nil, err
	}

	nonce, err = base64.URLEncoding.DecodeString(envelope.IV)
	if err != nil {
		return nil, err
	}

	tag, err = base64.URLEncoding.DecodeString(envelope.Tag)
	if err != nil {
		return nil, err
	}

	chachaCipher, err := chacha.New(cek[:])
	if err != nil {
		return nil, err
	}

	payload := append(cipherText, tag...)

	message, err = chachaCipher.Open(nil, nonce, payload, aad)
	if err != nil {
		return nil, err
	}

	return message, nil
}
