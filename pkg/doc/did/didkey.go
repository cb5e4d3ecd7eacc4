/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/multiformats/go-multibase"
)

const didKeyPrefix = "did:key:"

// ed25519-pub multicodec, varint encoded.
var ed25519Codec = []byte{0xed, 0x01}

// DIDKeyFromVerKey returns the did:key form of a base58 ed25519 verkey.
func DIDKeyFromVerKey(verKey string) (string, error) {
	raw := base58.Decode(verKey)
	if len(raw) != ed25519.PublicKeySize {
		return "", fmt.Errorf("invalid ed25519 verkey length %d", len(raw))
	}

	enc, err := multibase.Encode(multibase.Base58BTC, append(append([]byte{}, ed25519Codec...), raw...))
	if err != nil {
		return "", err
	}

	return didKeyPrefix + enc, nil
}

// VerKeyFromDIDKey returns the base58 verkey embedded in an ed25519 did:key.
func VerKeyFromDIDKey(didKey string) (string, error) {
	if !strings.HasPrefix(didKey, didKeyPrefix) {
		return "", fmt.Errorf("not a did:key: %s", didKey)
	}

	id := strings.TrimPrefix(didKey, didKeyPrefix)
	if i := strings.Index(id, "#"); i >= 0 {
		id = id[:i]
	}

	_, raw, err := multibase.Decode(id)
	if err != nil {
		return "", fmt.Errorf("decode did:key: %w", err)
	}

	if len(raw) != len(ed25519Codec)+ed25519.PublicKeySize || raw[0] != ed25519Codec[0] || raw[1] != ed25519Codec[1] {
		return "", fmt.Errorf("did:key %s is not an ed25519 key", didKey)
	}

	return base58.Encode(raw[len(ed25519Codec):]), nil
}
