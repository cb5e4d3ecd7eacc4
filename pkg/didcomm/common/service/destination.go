/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"fmt"
	"strings"

	diddoc "github.com/hyperledger/aries-vcx-go/pkg/doc/did"
)

// Destination provides the recipientKeys, routingKeys, and serviceEndpoint for an outbound message.
type Destination struct {
	RecipientKeys   []string `json:"recipientKeys"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
}

// CreateDestination makes a Destination from a DID Doc's agent service block.
// Recipient and routing keys are normalized to base58 verkeys.
func CreateDestination(didDoc *diddoc.Doc) (*Destination, error) {
	didCommService, ok := diddoc.LookupAgentService(didDoc)
	if !ok {
		return nil, fmt.Errorf("create destination: missing DID doc service")
	}

	if didCommService.ServiceEndpoint == "" {
		return nil, fmt.Errorf("create destination: no service endpoint on didcomm service block in diddoc: %s",
			didDoc.ID)
	}

	if len(didCommService.RecipientKeys) == 0 {
		return nil, fmt.Errorf("create destination: no recipient keys on didcomm service block in diddoc: %s",
			didDoc.ID)
	}

	recipientKeys, err := resolveKeys(didDoc, didCommService.RecipientKeys)
	if err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	routingKeys, err := resolveKeys(didDoc, didCommService.RoutingKeys)
	if err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	return &Destination{
		RecipientKeys:   recipientKeys,
		ServiceEndpoint: didCommService.ServiceEndpoint,
		RoutingKeys:     routingKeys,
	}, nil
}

// NormalizeKeys converts any did:key entries to base58 verkeys.
func NormalizeKeys(keys []string) ([]string, error) {
	var out []string

	for _, key := range keys {
		if !strings.HasPrefix(key, "did:key:") {
			out = append(out, key)
			continue
		}

		verKey, err := diddoc.VerKeyFromDIDKey(key)
		if err != nil {
			return nil, err
		}

		out = append(out, verKey)
	}

	return out, nil
}

func resolveKeys(didDoc *diddoc.Doc, keys []string) ([]string, error) {
	var out []string

	for _, key := range keys {
		verKey, err := diddoc.ResolveKey(didDoc, key)
		if err != nil {
			return nil, err
		}

		out = append(out, verKey)
	}

	return out, nil
}
