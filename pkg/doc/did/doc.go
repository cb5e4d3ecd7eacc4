/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

// Package did holds the DID document shape exchanged in the connection protocol's connection block.
package did

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

const (
	// ContextV1 of the DID document.
	ContextV1 = "https://w3id.org/did/v1"
	// Ed25519VerificationKey2018 public key type.
	Ed25519VerificationKey2018 = "Ed25519VerificationKey2018"
	// Ed25519SignatureAuthentication2018 authentication type.
	Ed25519SignatureAuthentication2018 = "Ed25519SignatureAuthentication2018"
	// LegacyServiceType is the service type used by legacy agents.
	LegacyServiceType = "IndyAgent"
	// DIDCommServiceType is the DIDComm v1 service type.
	DIDCommServiceType = "did-communication"

	keyFragment     = "#1"
	serviceFragment = ";indy"
)

// ErrInvalidDoc is returned for documents missing an id or a usable service.
var ErrInvalidDoc = errors.New("invalid did document")

// Doc is a DID document in the form carried by connection requests and responses.
type Doc struct {
	Context        interface{}      `json:"@context,omitempty" mapstructure:"@context"`
	ID             string           `json:"id" mapstructure:"id"`
	PublicKey      []PublicKey      `json:"publicKey,omitempty" mapstructure:"publicKey"`
	Authentication []Authentication `json:"authentication,omitempty" mapstructure:"authentication"`
	Service        []Service        `json:"service,omitempty" mapstructure:"service"`
}

// PublicKey entry of a DID document.
type PublicKey struct {
	ID              string `json:"id" mapstructure:"id"`
	Type            string `json:"type" mapstructure:"type"`
	Controller      string `json:"controller,omitempty" mapstructure:"controller"`
	PublicKeyBase58 string `json:"publicKeyBase58,omitempty" mapstructure:"publicKeyBase58"`
}

// Authentication entry referencing a public key.
type Authentication struct {
	Type      string `json:"type" mapstructure:"type"`
	PublicKey string `json:"publicKey" mapstructure:"publicKey"`
}

// Service is a DIDComm service endpoint entry.
type Service struct {
	ID              string   `json:"id" mapstructure:"id"`
	Type            string   `json:"type" mapstructure:"type"`
	Priority        int      `json:"priority" mapstructure:"priority"`
	RecipientKeys   []string `json:"recipientKeys" mapstructure:"recipientKeys"`
	RoutingKeys     []string `json:"routingKeys" mapstructure:"routingKeys"`
	ServiceEndpoint string   `json:"serviceEndpoint" mapstructure:"serviceEndpoint"`
}

// NewDoc builds the pairwise document for did with a single ed25519 key and one agent service.
func NewDoc(did, verKey, endpoint string, routingKeys []string) *Doc {
	keyID := did + keyFragment

	if routingKeys == nil {
		routingKeys = []string{}
	}

	return &Doc{
		Context: ContextV1,
		ID:      did,
		PublicKey: []PublicKey{{
			ID:              keyID,
			Type:            Ed25519VerificationKey2018,
			Controller:      did,
			PublicKeyBase58: verKey,
		}},
		Authentication: []Authentication{{
			Type:      Ed25519SignatureAuthentication2018,
			PublicKey: keyID,
		}},
		Service: []Service{{
			ID:              did + serviceFragment,
			Type:            LegacyServiceType,
			RecipientKeys:   []string{verKey},
			RoutingKeys:     routingKeys,
			ServiceEndpoint: endpoint,
		}},
	}
}

// ParseDocument parses a DID document. Numeric fields encoded as strings and a single
// string where a list is expected are tolerated.
func ParseDocument(data []byte) (*Doc, error) {
	var raw map[string]interface{}

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal did document: %w", err)
	}

	return DecodeDocument(raw)
}

// DecodeDocument decodes a DID document from its generic JSON representation.
func DecodeDocument(raw map[string]interface{}) (*Doc, error) {
	doc := &Doc{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           doc,
	})
	if err != nil {
		return nil, err
	}

	if err = decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode did document: %w", err)
	}

	if doc.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidDoc)
	}

	return doc, nil
}

// Copy returns a deep copy of the document.
func (doc *Doc) Copy() *Doc {
	if doc == nil {
		return nil
	}

	c := &Doc{
		Context:        doc.Context,
		ID:             doc.ID,
		PublicKey:      append([]PublicKey(nil), doc.PublicKey...),
		Authentication: append([]Authentication(nil), doc.Authentication...),
		Service:        make([]Service, len(doc.Service)),
	}

	for i, s := range doc.Service {
		s.RecipientKeys = append(make([]string, 0, len(s.RecipientKeys)), s.RecipientKeys...)
		s.RoutingKeys = append(make([]string, 0, len(s.RoutingKeys)), s.RoutingKeys...)
		c.Service[i] = s
	}

	return c
}
