/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptoutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/curve25519"
)

func TestIsKeyPairValid(t *testing.T) {
	require.False(t, IsKeyPairValid(KeyPair{}))
	pubKey := []byte("testpublickey")
	privKey := []byte("testprivatekey")
	validChachaKey, err := base64.RawURLEncoding.DecodeString("c8CSJr_27PN9xWCpzXNmepRndD6neQcnO9DS0YWjhNs")
	require.NoError(t, err)

	require.False(t, IsKeyPairValid(KeyPair{Priv: privKey, Pub: nil}))
	require.False(t, IsKeyPairValid(KeyPair{Priv: nil, Pub: pubKey}))
	require.True(t, IsKeyPairValid(KeyPair{Priv: privKey, Pub: pubKey}))

	require.EqualError(t,
		VerifyKeys(
			KeyPair{Priv: privKey, Pub: pubKey},
			[][]byte{[]byte("abc"), []byte("def")}),
		ErrInvalidKey.Error())
	require.EqualError(t,
		VerifyKeys(
			KeyPair{Priv: privKey, Pub: pubKey},
			[][]byte{}),
		errEmptyRecipients.Error())
	require.EqualError(t, VerifyKeys(KeyPair{}, [][]byte{[]byte("abc"), []byte("def")}), errInvalidKeypair.Error())
	require.NoError(t, VerifyKeys(KeyPair{Priv: validChachaKey, Pub: validChachaKey}, [][]byte{validChachaKey}))
}

func TestNonce(t *testing.T) {
	a := []byte("first public key")
	b := []byte("second public key")

	n1, err := Nonce(a, b)
	require.NoError(t, err)

	n2, err := Nonce(a, b)
	require.NoError(t, err)
	require.Equal(t, n1, n2)

	n3, err := Nonce(b, a)
	require.NoError(t, err)
	require.NotEqual(t, n1, n3)
}

func TestEd25519toCurve25519(t *testing.T) {
	t.Run("converted keys form a curve25519 pair", func(t *testing.T) {
		edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		curvePub, err := PublicEd25519toCurve25519(edPub)
		require.NoError(t, err)
		require.Len(t, curvePub, Curve25519KeySize)

		curvePriv, err := SecretEd25519toCurve25519(edPriv)
		require.NoError(t, err)

		derived, err := curve25519.X25519(curvePriv, curve25519.Basepoint)
		require.NoError(t, err)
		require.Equal(t, curvePub, derived)
	})

	t.Run("invalid keys", func(t *testing.T) {
		_, err := PublicEd25519toCurve25519(nil)
		require.EqualError(t, err, "key is nil")

		_, err = PublicEd25519toCurve25519([]byte("short"))
		require.EqualError(t, err, "5-byte key size is invalid")

		_, err = SecretEd25519toCurve25519(nil)
		require.EqualError(t, err, "key is nil")

		_, err = SecretEd25519toCurve25519([]byte("short"))
		require.EqualError(t, err, "5-byte key size is invalid")
	})
}
