/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kms

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bluele/gcache"
	"github.com/btcsuite/btcutil/base58"
	"github.com/hyperledger/aries-framework-go/component/log"
	spistorage "github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-vcx-go/pkg/internal/cryptoutil"
)

const (
	keyStoreNamespace = "keystore"
	defaultCacheSize  = 100
)

var logger = log.New("vcx/kms")

// provider contains dependencies for the base KMS.
type provider interface {
	StorageProvider() spistorage.Provider
}

// keyPairSet is the stored form of a signing key pair and its curve25519 conversion.
type keyPairSet struct {
	Sig cryptoutil.KeyPair `json:"sig"`
	Enc cryptoutil.KeyPair `json:"enc"`
}

// Opt configures the base KMS.
type Opt func(*BaseKMS)

// WithCacheSize sets how many key pair sets are kept in memory.
func WithCacheSize(size int) Opt {
	return func(k *BaseKMS) {
		k.cacheSize = size
	}
}

// WithRandSource sets the entropy used for key generation.
func WithRandSource(r io.Reader) Opt {
	return func(k *BaseKMS) {
		k.randSource = r
	}
}

// BaseKMS Base Key Management Service implementation.
type BaseKMS struct {
	keystore   spistorage.Store
	cache      gcache.Cache
	cacheSize  int
	randSource io.Reader
}

// New return new instance of KMS implementation.
func New(ctx provider, opts ...Opt) (*BaseKMS, error) {
	ks, err := ctx.StorageProvider().OpenStore(keyStoreNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to OpenStore for '%s', cause: %w", keyStoreNamespace, err)
	}

	k := &BaseKMS{
		keystore:   ks,
		cacheSize:  defaultCacheSize,
		randSource: rand.Reader,
	}

	for _, opt := range opts {
		opt(k)
	}

	k.cache = gcache.New(k.cacheSize).LRU().Build()

	return k, nil
}

// CreateKeySet creates a new ed25519 signing key pair and its curve25519 encryption counterpart.
// returns:
//
//	string: base58 encoded public encryption key
//	string: base58 encoded public signature key (the verkey)
//	error: in case of errors
func (w *BaseKMS) CreateKeySet() (string, string, error) {
	sigPub, sigPriv, err := ed25519.GenerateKey(w.randSource)
	if err != nil {
		return "", "", fmt.Errorf("failed to Generate SigKeyPair: %w", err)
	}

	return w.storeKeySet(sigPub, sigPriv)
}

// CreateKeySetFromSeed is CreateKeySet with the signing key derived from a 32 byte seed.
func (w *BaseKMS) CreateKeySetFromSeed(seed []byte) (string, string, error) {
	if len(seed) != ed25519.SeedSize {
		return "", "", fmt.Errorf("%w: seed must be %d bytes", cryptoutil.ErrInvalidKey, ed25519.SeedSize)
	}

	sigPriv := ed25519.NewKeyFromSeed(seed)

	return w.storeKeySet(sigPriv.Public().(ed25519.PublicKey), sigPriv)
}

func (w *BaseKMS) storeKeySet(sigPub ed25519.PublicKey, sigPriv ed25519.PrivateKey) (string, string, error) {
	encPub, err := cryptoutil.PublicEd25519toCurve25519(sigPub)
	if err != nil {
		return "", "", fmt.Errorf("failed to create encPub: %w", err)
	}

	encPriv, err := cryptoutil.SecretEd25519toCurve25519(sigPriv)
	if err != nil {
		return "", "", fmt.Errorf("failed to create encPriv: %w", err)
	}

	kps := &keyPairSet{
		Sig: cryptoutil.KeyPair{Pub: sigPub, Priv: sigPriv},
		Enc: cryptoutil.KeyPair{Pub: encPub, Priv: encPriv},
	}

	encBase58Pub := base58.Encode(encPub)
	sigBase58Pub := base58.Encode(sigPub)

	// the set is stored under both public keys so either one finds it
	for _, id := range []string{encBase58Pub, sigBase58Pub} {
		if err = persist(w.keystore, id, kps); err != nil {
			return "", "", err
		}

		w.cachePut(id, kps)
	}

	logger.Debugf("created key set for verkey %s", sigBase58Pub)

	return encBase58Pub, sigBase58Pub, nil
}

// SignMessage sign a message using the private key associated with a given verification key.
func (w *BaseKMS) SignMessage(message []byte, fromVerKey string) ([]byte, error) {
	kps, err := w.getKeyPairSet(fromVerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	return ed25519.Sign(kps.Sig.Priv, message), nil
}

// FindVerKey selects a signing key which is present in candidateKeys that is present in the KMS.
func (w *BaseKMS) FindVerKey(candidateKeys []string) (int, error) {
	for i, key := range candidateKeys {
		_, err := w.getKeyPairSet(key)
		if err != nil {
			if errors.Is(err, cryptoutil.ErrKeyNotFound) {
				continue
			}

			return -1, fmt.Errorf("failed from getKeyPairSet: %w", err)
		}

		return i, nil
	}

	return -1, cryptoutil.ErrKeyNotFound
}

// GetEncryptionKey will return the public encryption key corresponding to the public verKey argument.
func (w *BaseKMS) GetEncryptionKey(verKey []byte) ([]byte, error) {
	kps, err := w.getKeyPairSet(base58.Encode(verKey))
	if err != nil {
		return nil, err
	}

	return kps.Enc.Pub, nil
}

// Close the KMS.
func (w *BaseKMS) Close() error {
	w.cache.Purge()

	return nil
}

// getKeyPairSet get encryption & signature key pairs combo.
func (w *BaseKMS) getKeyPairSet(pubKey string) (*keyPairSet, error) {
	if cached, err := w.cache.Get(pubKey); err == nil {
		return cached.(*keyPairSet), nil
	}

	bytes, err := w.keystore.Get(pubKey)
	if err != nil {
		if errors.Is(err, spistorage.ErrDataNotFound) {
			return nil, cryptoutil.ErrKeyNotFound
		}

		return nil, err
	}

	var kps keyPairSet

	err = json.Unmarshal(bytes, &kps)
	if err != nil {
		return nil, fmt.Errorf("failed unmarshal to key struct: %w", err)
	}

	w.cachePut(pubKey, &kps)

	return &kps, nil
}

func (w *BaseKMS) cachePut(id string, kps *keyPairSet) {
	if err := w.cache.Set(id, kps); err != nil {
		logger.Warnf("failed to cache key set %s: %s", id, err)
	}
}

// persist marshals value and saves it in store for given key.
func persist(store spistorage.Store, key string, value interface{}) error {
	bytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal : %w", err)
	}

	err = store.Put(key, bytes)
	if err != nil {
		return fmt.Errorf("failed to save in store: %w", err)
	}

	return nil
}
