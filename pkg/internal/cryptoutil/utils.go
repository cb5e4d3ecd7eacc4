/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptoutil

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/teserakt-io/golang-ed25519/extra25519"
	"golang.org/x/crypto/blake2b"
	chacha "golang.org/x/crypto/chacha20poly1305"
)

// Curve25519KeySize number of bytes in a Curve25519 public or private key.
const Curve25519KeySize = 32

// NonceSize size of a nonce used by Box encryption (Xsalsa20Poly1305).
const NonceSize = 24

var errEmptyRecipients = errors.New("empty recipients")

var errInvalidKeypair = errors.New("invalid keypair")

// ErrKeyNotFound is returned when key not found.
var ErrKeyNotFound = errors.New("key not found")

// ErrInvalidKey is used when a key is invalid.
var ErrInvalidKey = errors.New("invalid key")

// KeyPair represents a private/public key pair.
type KeyPair struct {
	Priv []byte `json:"priv,omitempty"`
	Pub  []byte `json:"pub,omitempty"`
}

// IsKeyPairValid is a utility function that validates a KeyPair.
func IsKeyPairValid(kp KeyPair) bool {
	if kp.Priv == nil || kp.Pub == nil {
		return false
	}

	return true
}

// VerifyKeys is a utility function that verifies if sender key pair and recipients keys are valid (not empty).
func VerifyKeys(sender KeyPair, recipients [][]byte) error {
	if len(recipients) == 0 {
		return errEmptyRecipients
	}

	if !IsKeyPairValid(sender) {
		return errInvalidKeypair
	}

	if !IsChachaKeyValid(sender.Priv) || !IsChachaKeyValid(sender.Pub) {
		return ErrInvalidKey
	}

	for _, r := range recipients {
		if !IsChachaKeyValid(r) {
			return ErrInvalidKey
		}
	}

	return nil
}

// IsChachaKeyValid will return true if key size is the same as chacha20poly1305.keySize
// false otherwise.
func IsChachaKeyValid(key []byte) bool {
	return len(key) == chacha.KeySize
}

// Nonce makes a nonce using blake2b, to match the format expected by libsodium.
func Nonce(pub1, pub2 []byte) (*[NonceSize]byte, error) {
	var nonce [NonceSize]byte
	// generate an equivalent nonce to libsodium's (see link above)
	nonceWriter, err := blake2b.New(NonceSize, nil)
	if err != nil {
		return nil, err
	}

	_, err = nonceWriter.Write(pub1)
	if err != nil {
		return nil, err
	}

	_, err = nonceWriter.Write(pub2)
	if err != nil {
		return nil, err
	}

	nonceOut := nonceWriter.Sum(nil)
	copy(nonce[:], nonceOut)

	return &nonce, nil
}

// PublicEd25519toCurve25519 takes an Ed25519 public key and provides the corresponding Curve25519 public key.
func PublicEd25519toCurve25519(pub []byte) ([]byte, error) {
	if len(pub) == 0 {
		return nil, errors.New("key is nil")
	}

	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%d-byte key size is invalid", len(pub))
	}

	pkOut := new([Curve25519KeySize]byte)
	pKIn := new([Curve25519KeySize]byte)
	copy(pKIn[:], pub)

	success := extra25519.PublicKeyToCurve25519(pkOut, pKIn)
	if !success {
		return nil, errors.New("error converting public key")
	}

	return pkOut[:], nil
}

// SecretEd25519toCurve25519 converts a secret key from Ed25519 to curve25519 format.
func SecretEd25519toCurve25519(priv []byte) ([]byte, error) {
	if len(priv) == 0 {
		return nil, errors.New("key is nil")
	}

	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%d-byte key size is invalid", len(priv))
	}

	sKIn := new([ed25519.PrivateKeySize]byte)
	copy(sKIn[:], priv)

	sKOut := new([Curve25519KeySize]byte)
	extra25519.PrivateKeyToCurve25519(sKOut, sKIn)

	return sKOut[:], nil
}
