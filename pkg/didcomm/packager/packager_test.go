/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package packager

import (
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	spistorage "github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/packer"
	legacy "github.com/hyperledger/aries-vcx-go/pkg/didcomm/packer/legacy/authcrypt"
	"github.com/hyperledger/aries-vcx-go/pkg/doc/did"
	"github.com/hyperledger/aries-vcx-go/pkg/kms"
)

type kmsProvider struct {
	km *kms.BaseKMS
}

func (p *kmsProvider) KMS() *kms.BaseKMS {
	return p.km
}

func (p *kmsProvider) StorageProvider() spistorage.Provider {
	return mem.NewProvider()
}

type packagerProvider struct {
	packers []packer.Packer
	primary packer.Packer
}

func (p *packagerProvider) Packers() []packer.Packer {
	return p.packers
}

func (p *packagerProvider) PrimaryPacker() packer.Packer {
	return p.primary
}

type party struct {
	packager *Packager
	verKey   string
}

func newParty(t *testing.T) *party {
	t.Helper()

	prov := &kmsProvider{}

	km, err := kms.New(prov)
	require.NoError(t, err)

	prov.km = km

	_, verKey, err := km.CreateKeySet()
	require.NoError(t, err)

	p, err := New(&packagerProvider{primary: legacy.New(prov)})
	require.NoError(t, err)

	return &party{packager: p, verKey: verKey}
}

func TestNewPackagerMissingPrimaryPacker(t *testing.T) {
	_, err := New(&packagerProvider{})
	require.EqualError(t, err, "need primary packer to initialize packager")
}

func TestPackager_PackUnpack(t *testing.T) {
	alice := newParty(t)
	bob := newParty(t)

	msg := []byte(`{"@type":"https://didcomm.org/trust_ping/1.0/ping"}`)

	t.Run("base58 keys", func(t *testing.T) {
		env, err := alice.packager.PackMessage(&transport.Envelope{
			Message:    msg,
			FromVerKey: alice.verKey,
			ToVerKeys:  []string{bob.verKey},
		})
		require.NoError(t, err)

		out, err := bob.packager.UnpackMessage(env)
		require.NoError(t, err)
		require.Equal(t, msg, out.Message)
		require.Equal(t, alice.verKey, out.FromVerKey)
		require.Equal(t, bob.verKey, out.ToVerKey)
	})

	t.Run("did:key recipient", func(t *testing.T) {
		didKey, err := did.DIDKeyFromVerKey(bob.verKey)
		require.NoError(t, err)

		env, err := alice.packager.PackMessage(&transport.Envelope{
			Message:    msg,
			FromVerKey: alice.verKey,
			ToVerKeys:  []string{didKey},
		})
		require.NoError(t, err)

		out, err := bob.packager.UnpackMessage(env)
		require.NoError(t, err)
		require.Equal(t, msg, out.Message)
	})
}

func TestPackager_Errors(t *testing.T) {
	alice := newParty(t)

	t.Run("nil envelope", func(t *testing.T) {
		_, err := alice.packager.PackMessage(nil)
		require.EqualError(t, err, "packMessage: envelope argument is nil")
	})

	t.Run("bad keys", func(t *testing.T) {
		_, err := alice.packager.PackMessage(&transport.Envelope{FromVerKey: alice.verKey, ToVerKeys: []string{""}})
		require.ErrorContains(t, err, "recipient 1")

		_, err = alice.packager.PackMessage(&transport.Envelope{FromVerKey: alice.verKey, ToVerKeys: []string{"did:key:zz"}})
		require.ErrorContains(t, err, "recipient 1")

		_, err = alice.packager.PackMessage(&transport.Envelope{ToVerKeys: []string{alice.verKey}})
		require.ErrorContains(t, err, "sender")
	})

	t.Run("unpack garbage", func(t *testing.T) {
		_, err := alice.packager.UnpackMessage([]byte("{"))
		require.ErrorContains(t, err, "parse envelope")

		_, err = alice.packager.UnpackMessage([]byte(`{"protected":"!!"}`))
		require.ErrorContains(t, err, "decode header")

		_, err = alice.packager.UnpackMessage([]byte(`{"protected":"bm9wZQ"}`))
		require.ErrorContains(t, err, "parse header")

		_, err = alice.packager.UnpackMessage([]byte(`{"protected":"eyJ0eXAiOiJKV00vMi4wIn0"}`))
		require.EqualError(t, err, "message Type not recognized")
	})
}
