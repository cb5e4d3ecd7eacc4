/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package context

import (
	"errors"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/agency"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/thread"
	connectionstore "github.com/hyperledger/aries-vcx-go/pkg/store/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/wallet"
)

func TestNewProvider(t *testing.T) {
	t.Run("test new with default", func(t *testing.T) {
		prov, err := New()
		require.NoError(t, err)
		require.Empty(t, prov.OutboundDispatcher())
		require.Nil(t, prov.Relay())
		require.NotNil(t, prov.ConnectionRegistry())
		require.Equal(t, thread.StrictlyIncreasing, prov.OrderingPolicy())
	})

	t.Run("test error return from options", func(t *testing.T) {
		_, err := New(func(opts *Provider) error {
			return errors.New("error creating the framework option")
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "option failed")
	})

	t.Run("test new with all options", func(t *testing.T) {
		store := mem.NewProvider()

		w, err := wallet.New(store)
		require.NoError(t, err)

		mb, err := agency.NewMailbox(store)
		require.NoError(t, err)

		ob, err := dispatcher.NewOutbound(&Provider{packager: w, relay: mb})
		require.NoError(t, err)

		registry := connectionstore.NewRegistry()

		prov, err := New(
			WithStorageProvider(store),
			WithKeyManager(w),
			WithPackager(w),
			WithRelay(mb),
			WithOutboundDispatcher(ob),
			WithConnectionRegistry(registry),
			WithLabel("faber"),
			WithServiceEndpoint("http://agency.example.com/agency/msg"),
			WithRoutingKeys("routing-1", "routing-2"),
			WithOrderingPolicy(thread.NonDecreasing),
		)
		require.NoError(t, err)

		require.Equal(t, store, prov.StorageProvider())
		require.Equal(t, w, prov.KeyManager())
		require.Equal(t, w, prov.Packager())
		require.Equal(t, mb, prov.Relay())
		require.Equal(t, ob, prov.OutboundDispatcher())
		require.Same(t, registry, prov.ConnectionRegistry())
		require.Equal(t, "faber", prov.Label())
		require.Equal(t, "http://agency.example.com/agency/msg", prov.ServiceEndpoint())
		require.Equal(t, []string{"routing-1", "routing-2"}, prov.RoutingKeys())
		require.Equal(t, thread.NonDecreasing, prov.OrderingPolicy())
	})

	t.Run("test unknown ordering policy", func(t *testing.T) {
		_, err := New(WithOrderingPolicy(thread.Policy(7)))
		require.Error(t, err)
		require.Contains(t, err.Error(), "unknown ordering policy")
	})
}
