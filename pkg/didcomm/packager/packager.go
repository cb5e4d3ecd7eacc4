/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package packager

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/packer"
	"github.com/hyperledger/aries-vcx-go/pkg/doc/did"
)

// Provider contains dependencies for the base packager.
type Provider interface {
	Packers() []packer.Packer
	PrimaryPacker() packer.Packer
}

// Creator method to create new packager service.
type Creator func(prov Provider) (transport.Packager, error)

// Packager is the basic implementation of Packager.
type Packager struct {
	primaryPacker packer.Packer
	packers       map[string]packer.Packer
}

// New return new instance of Packager implementation of transport.Packager.
func New(ctx Provider) (*Packager, error) {
	basePackager := Packager{
		primaryPacker: nil,
		packers:       map[string]packer.Packer{},
	}

	for _, packerType := range ctx.Packers() {
		basePackager.addPacker(packerType)
	}

	basePackager.primaryPacker = ctx.PrimaryPacker()
	if basePackager.primaryPacker == nil {
		return nil, fmt.Errorf("need primary packer to initialize packager")
	}

	basePackager.addPacker(basePackager.primaryPacker)

	return &basePackager, nil
}

func (bp *Packager) addPacker(pack packer.Packer) {
	packerID := pack.EncodingType()

	if bp.packers[packerID] == nil {
		bp.packers[packerID] = pack
	}
}

// PackMessage Pack a message for one or more recipients.
func (bp *Packager) PackMessage(messageEnvelope *transport.Envelope) ([]byte, error) {
	if messageEnvelope == nil {
		return nil, errors.New("packMessage: envelope argument is nil")
	}

	senderKey, recipients, err := prepareSenderAndRecipientKeys(messageEnvelope)
	if err != nil {
		return nil, fmt.Errorf("packMessage: %w", err)
	}

	marshalledEnvelope, err := bp.primaryPacker.Pack(messageEnvelope.Message, senderKey, recipients)
	if err != nil {
		return nil, fmt.Errorf("packMessage: failed to pack: %w", err)
	}

	return marshalledEnvelope, nil
}

// prepareSenderAndRecipientKeys turns base58 or did:key verkeys into raw key bytes.
func prepareSenderAndRecipientKeys(envelope *transport.Envelope) ([]byte, [][]byte, error) {
	recipients := make([][]byte, 0, len(envelope.ToVerKeys))

	for i, receiverKey := range envelope.ToVerKeys {
		recKey, err := rawKey(receiverKey)
		if err != nil {
			return nil, nil, fmt.Errorf("prepareSenderAndRecipientKeys: recipient %d: %w", i+1, err)
		}

		recipients = append(recipients, recKey)
	}

	senderKey, err := rawKey(envelope.FromVerKey)
	if err != nil {
		return nil, nil, fmt.Errorf("prepareSenderAndRecipientKeys: sender: %w", err)
	}

	return senderKey, recipients, nil
}

func rawKey(key string) ([]byte, error) {
	if strings.HasPrefix(key, "did:key") {
		verKey, err := did.VerKeyFromDIDKey(key)
		if err != nil {
			return nil, err
		}

		key = verKey
	}

	raw := base58.Decode(key)
	if len(raw) == 0 {
		return nil, fmt.Errorf("invalid verkey %q", key)
	}

	return raw, nil
}

type envelopeStub struct {
	Protected string `json:"protected,omitempty"`
}

type headerStub struct {
	Type string `json:"typ,omitempty"`
}

func getEncodingType(encMessage []byte) (string, error) {
	env := &envelopeStub{}

	err := json.Unmarshal(encMessage, env)
	if err != nil {
		return "", fmt.Errorf("parse envelope: %w", err)
	}

	var protBytes []byte

	protBytes1, err1 := base64.URLEncoding.DecodeString(env.Protected)
	protBytes2, err2 := base64.RawURLEncoding.DecodeString(env.Protected)

	switch {
	case err1 == nil:
		protBytes = protBytes1
	case err2 == nil:
		protBytes = protBytes2
	default:
		return "", fmt.Errorf("decode header: %w", err1)
	}

	prot := &headerStub{}

	err = json.Unmarshal(protBytes, prot)
	if err != nil {
		return "", fmt.Errorf("parse header: %w", err)
	}

	return prot.Type, nil
}

// UnpackMessage Unpack a message.
func (bp *Packager) UnpackMessage(encMessage []byte) (*transport.Envelope, error) {
	encType, err := getEncodingType(encMessage)
	if err != nil {
		return nil, fmt.Errorf("getEncodingType: %w", err)
	}

	p, ok := bp.packers[encType]
	if !ok {
		return nil, fmt.Errorf("message Type not recognized")
	}

	envelope, err := p.Unpack(encMessage)
	if err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}

	return envelope, nil
}
