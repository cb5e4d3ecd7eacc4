/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/doc/did"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
)

type edKeys struct {
	keys map[string]ed25519.PrivateKey
}

func newEdKeys() *edKeys {
	return &edKeys{keys: map[string]ed25519.PrivateKey{}}
}

func (k *edKeys) create(t *testing.T) string {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	verKey := base58.Encode(pub)
	k.keys[verKey] = priv

	return verKey
}

func (k *edKeys) Sign(data []byte, verKey string) ([]byte, error) {
	priv, ok := k.keys[verKey]
	if !ok {
		return nil, errors.New("key not found")
	}

	return ed25519.Sign(priv, data), nil
}

func (k *edKeys) Verify(signature, data []byte, verKey string) error {
	if !ed25519.Verify(base58.Decode(verKey), data, signature) {
		return errors.New("invalid signature")
	}

	return nil
}

func TestSignConnection(t *testing.T) {
	keys := newEdKeys()
	verKey := keys.create(t)

	conn := &Connection{
		DID:    "did:sov:faber",
		DIDDoc: did.NewDoc("did:sov:faber", verKey, "http://agency/msg", nil),
	}

	t.Run("sign then verify", func(t *testing.T) {
		now := time.Unix(1600000000, 0)

		sig, err := signConnectionAt(keys, conn, verKey, now)
		require.NoError(t, err)
		require.Equal(t, signatureType, sig.Type)
		require.Equal(t, verKey, sig.SignVerKey)

		signedAt, err := sig.SignedAt()
		require.NoError(t, err)
		require.Equal(t, now, signedAt)

		parsed, err := VerifyConnection(keys, sig, verKey)
		require.NoError(t, err)
		require.Equal(t, conn, parsed)
	})

	t.Run("signing key unknown", func(t *testing.T) {
		_, err := SignConnection(keys, conn, "unknown")
		require.Error(t, err)
		require.Contains(t, err.Error(), "signing data")
	})

	t.Run("signed data is independent of field order", func(t *testing.T) {
		a, err := signConnectionAt(keys, conn, verKey, time.Unix(1, 0))
		require.NoError(t, err)

		b, err := signConnectionAt(keys, &Connection{DIDDoc: conn.DIDDoc.Copy(), DID: conn.DID}, verKey, time.Unix(1, 0))
		require.NoError(t, err)
		require.Equal(t, a.SignedData, b.SignedData)
	})
}

func TestVerifyConnection(t *testing.T) {
	keys := newEdKeys()
	invitationKey := keys.create(t)
	otherKey := keys.create(t)

	conn := &Connection{DID: "did:sov:faber", DIDDoc: did.NewDoc("did:sov:faber", otherKey, "http://agency/msg", nil)}

	valid, err := SignConnection(keys, conn, invitationKey)
	require.NoError(t, err)

	t.Run("signed by a different key than expected", func(t *testing.T) {
		sig, err := SignConnection(keys, conn, otherKey)
		require.NoError(t, err)

		_, err = VerifyConnection(keys, sig, invitationKey)
		require.ErrorIs(t, err, vcxerror.ErrSignatureVerificationFailed)
	})

	t.Run("signer claims expected key but signature is from another key", func(t *testing.T) {
		sig, err := SignConnection(keys, conn, otherKey)
		require.NoError(t, err)

		sig.SignVerKey = invitationKey

		_, err = VerifyConnection(keys, sig, invitationKey)
		require.ErrorIs(t, err, vcxerror.ErrSignatureVerificationFailed)
	})

	t.Run("tampered signed data", func(t *testing.T) {
		sig := *valid
		data, err := base64.URLEncoding.DecodeString(sig.SignedData)
		require.NoError(t, err)

		data[len(data)-2] ^= 0x01
		sig.SignedData = base64.URLEncoding.EncodeToString(data)

		_, err = VerifyConnection(keys, &sig, invitationKey)
		require.ErrorIs(t, err, vcxerror.ErrSignatureVerificationFailed)
	})

	t.Run("malformed fields", func(t *testing.T) {
		for _, mutate := range []func(s *ConnectionSignature){
			func(s *ConnectionSignature) { s.Signature = "!!!" },
			func(s *ConnectionSignature) { s.SignedData = "!!!" },
			func(s *ConnectionSignature) { s.SignedData = "" },
			func(s *ConnectionSignature) { s.Type = "unknown" },
		} {
			sig := *valid
			mutate(&sig)

			_, err := VerifyConnection(keys, &sig, invitationKey)
			require.ErrorIs(t, err, vcxerror.ErrSignatureVerificationFailed)
		}
	})

	t.Run("missing signature", func(t *testing.T) {
		_, err := VerifyConnection(keys, nil, invitationKey)
		require.ErrorIs(t, err, vcxerror.ErrSignatureVerificationFailed)
	})

	t.Run("signed data without connection", func(t *testing.T) {
		sig, err := keys.Sign(make([]byte, timestampLength), invitationKey)
		require.NoError(t, err)

		_, err = VerifyConnection(keys, &ConnectionSignature{
			Type:       signatureType,
			SignVerKey: invitationKey,
			SignedData: base64.URLEncoding.EncodeToString(make([]byte, timestampLength)),
			Signature:  base64.URLEncoding.EncodeToString(sig),
		}, invitationKey)
		require.ErrorIs(t, err, vcxerror.ErrSignatureVerificationFailed)
		require.Contains(t, err.Error(), "missing connection attribute bytes")
	})

	t.Run("unpadded base64 is accepted", func(t *testing.T) {
		data, err := base64.URLEncoding.DecodeString(valid.SignedData)
		require.NoError(t, err)

		signature, err := base64.URLEncoding.DecodeString(valid.Signature)
		require.NoError(t, err)

		sig := *valid
		sig.Type = legacySignatureType
		sig.SignedData = base64.RawURLEncoding.EncodeToString(data)
		sig.Signature = base64.RawURLEncoding.EncodeToString(signature)

		parsed, err := VerifyConnection(keys, &sig, invitationKey)
		require.NoError(t, err)
		require.Equal(t, conn.DID, parsed.DID)
	})
}
