/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wallet is the key and signing provider: pairwise keys, signatures and envelope packing.
package wallet

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	spistorage "github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/packager"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/packer"
	legacy "github.com/hyperledger/aries-vcx-go/pkg/didcomm/packer/legacy/authcrypt"
	"github.com/hyperledger/aries-vcx-go/pkg/kms"
)

// pairwiseDIDLength is the number of verkey bytes that make up an unqualified pairwise DID.
const pairwiseDIDLength = 16

// ErrInvalidSignature is returned by Verify when the signature does not match.
var ErrInvalidSignature = errors.New("invalid signature")

// BaseWallet wallet implementation.
type BaseWallet struct {
	kms      *kms.BaseKMS
	packager *packager.Packager
}

type storageProvider struct {
	sp spistorage.Provider
}

func (p storageProvider) StorageProvider() spistorage.Provider {
	return p.sp
}

type packerProvider struct {
	km *kms.BaseKMS
}

func (p packerProvider) KMS() *kms.BaseKMS {
	return p.km
}

func (p packerProvider) Packers() []packer.Packer {
	return nil
}

func (p packerProvider) PrimaryPacker() packer.Packer {
	return legacy.New(p)
}

// New return new instance of wallet implementation.
func New(storeProvider spistorage.Provider, opts ...kms.Opt) (*BaseWallet, error) {
	km, err := kms.New(storageProvider{sp: storeProvider}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kms: %w", err)
	}

	p, err := packager.New(packerProvider{km: km})
	if err != nil {
		return nil, fmt.Errorf("failed to create packager: %w", err)
	}

	return &BaseWallet{kms: km, packager: p}, nil
}

// CreateKey creates a new signing key pair and returns the pairwise DID derived from it with the base58 verkey.
func (w *BaseWallet) CreateKey() (string, string, error) {
	_, verKey, err := w.kms.CreateKeySet()
	if err != nil {
		return "", "", fmt.Errorf("failed to create key: %w", err)
	}

	return PairwiseDID(verKey), verKey, nil
}

// CreateKeyFromSeed is CreateKey with a deterministic 32 byte seed.
func (w *BaseWallet) CreateKeyFromSeed(seed []byte) (string, string, error) {
	_, verKey, err := w.kms.CreateKeySetFromSeed(seed)
	if err != nil {
		return "", "", fmt.Errorf("failed to create key: %w", err)
	}

	return PairwiseDID(verKey), verKey, nil
}

// PairwiseDID is the unqualified DID of a verkey: the base58 of its first 16 bytes.
func PairwiseDID(verKey string) string {
	raw := base58.Decode(verKey)
	if len(raw) > pairwiseDIDLength {
		raw = raw[:pairwiseDIDLength]
	}

	return base58.Encode(raw)
}

// Sign signs data with the private key behind verKey.
func (w *BaseWallet) Sign(data []byte, verKey string) ([]byte, error) {
	return w.kms.SignMessage(data, verKey)
}

// Verify checks an ed25519 signature of data against verKey. No private key is needed.
func (w *BaseWallet) Verify(signature, data []byte, verKey string) error {
	pub := base58.Decode(verKey)
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid verkey %q", verKey)
	}

	if !ed25519.Verify(pub, data, signature) {
		return ErrInvalidSignature
	}

	return nil
}

// PackMessage Pack a message for one or more recipients.
func (w *BaseWallet) PackMessage(envelope *transport.Envelope) ([]byte, error) {
	return w.packager.PackMessage(envelope)
}

// UnpackMessage Unpack a message addressed to one of the wallet's keys.
func (w *BaseWallet) UnpackMessage(encMessage []byte) (*transport.Envelope, error) {
	return w.packager.UnpackMessage(encMessage)
}

// Close wallet.
func (w *BaseWallet) Close() error {
	return w.kms.Close()
}
