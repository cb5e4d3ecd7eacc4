/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"fmt"
	"strings"
)

// LookupService returns the service from the given DIDDoc matching the given service type.
func LookupService(didDoc *Doc, serviceType string) (*Service, bool) {
	const notFound = -1
	index := notFound

	for i := range didDoc.Service {
		if didDoc.Service[i].Type == serviceType {
			if index == notFound || didDoc.Service[index].Priority > didDoc.Service[i].Priority {
				index = i
			}
		}
	}

	if index == notFound {
		return nil, false
	}

	return &didDoc.Service[index], true
}

// LookupAgentService returns the DIDComm service of the document, falling back to the legacy service type.
func LookupAgentService(didDoc *Doc) (*Service, bool) {
	if s, ok := LookupService(didDoc, DIDCommServiceType); ok {
		return s, true
	}

	return LookupService(didDoc, LegacyServiceType)
}

// LookupPublicKey returns the public key with the given id from the given DID Doc.
func LookupPublicKey(id string, didDoc *Doc) (*PublicKey, bool) {
	for _, key := range didDoc.PublicKey {
		if key.ID == id {
			return &key, true
		}
	}

	return nil, false
}

// ResolveKey returns the base58 verkey for a service key entry, which may be a raw base58 key,
// a did:key, or a reference to one of the document's public keys.
func ResolveKey(didDoc *Doc, key string) (string, error) {
	switch {
	case strings.HasPrefix(key, "did:key:"):
		return VerKeyFromDIDKey(key)
	case strings.Contains(key, "#"):
		pk, ok := LookupPublicKey(key, didDoc)
		if !ok && strings.HasPrefix(key, "#") {
			pk, ok = LookupPublicKey(didDoc.ID+key, didDoc)
		}

		if !ok {
			return "", fmt.Errorf("%w: public key %s not found", ErrInvalidDoc, key)
		}

		return pk.PublicKeyBase58, nil
	default:
		return key, nil
	}
}

// RecipientKey returns the first recipient verkey of the document's agent service.
func RecipientKey(didDoc *Doc) (string, error) {
	s, ok := LookupAgentService(didDoc)
	if !ok || len(s.RecipientKeys) == 0 {
		return "", fmt.Errorf("%w: no agent service recipient keys", ErrInvalidDoc)
	}

	return ResolveKey(didDoc, s.RecipientKeys[0])
}
