/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/agency"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	commontransport "github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
	"github.com/hyperledger/aries-vcx-go/pkg/wallet"
)

type mockProvider struct {
	packager commontransport.Packager
	relay    agency.Client
}

func (p *mockProvider) Packager() commontransport.Packager {
	return p.packager
}

func (p *mockProvider) Relay() agency.Client {
	return p.relay
}

type failingRelay struct {
	agency.Client
	err error
}

func (r *failingRelay) Send(context.Context, []byte, *service.Destination) error {
	return r.err
}

type failingPackager struct {
	commontransport.Packager
}

func (failingPackager) PackMessage(*commontransport.Envelope) ([]byte, error) {
	return nil, errors.New("pack error")
}

func TestNewOutbound(t *testing.T) {
	w, err := wallet.New(mem.NewProvider())
	require.NoError(t, err)

	_, err = NewOutbound(&mockProvider{relay: &failingRelay{}})
	require.EqualError(t, err, "outbound dispatcher requires a packager")

	_, err = NewOutbound(&mockProvider{packager: w})
	require.EqualError(t, err, "outbound dispatcher requires a relay client")
}

func TestOutboundDispatcher_Send(t *testing.T) {
	ctx := context.Background()

	w, err := wallet.New(mem.NewProvider())
	require.NoError(t, err)

	_, sender, err := w.CreateKey()
	require.NoError(t, err)

	_, recipient, err := w.CreateKey()
	require.NoError(t, err)

	dest := &service.Destination{RecipientKeys: []string{recipient}, ServiceEndpoint: "http://agency"}

	t.Run("test success", func(t *testing.T) {
		mb, err := agency.NewMailbox(mem.NewProvider())
		require.NoError(t, err)

		o, err := NewOutbound(&mockProvider{packager: w, relay: mb})
		require.NoError(t, err)

		require.NoError(t, o.Send(ctx, map[string]string{"@type": "data"}, sender, dest))
		require.NoError(t, o.Send(ctx, []byte(`{"@type":"raw"}`), sender, dest))

		msgs, err := mb.Poll(ctx, &agency.Filter{RecipientKeys: []string{recipient}})
		require.NoError(t, err)
		require.Len(t, msgs, 2)

		env, err := w.UnpackMessage(msgs[0].Payload)
		require.NoError(t, err)
		require.JSONEq(t, `{"@type":"data"}`, string(env.Message))
		require.Equal(t, sender, env.FromVerKey)

		env, err = w.UnpackMessage(msgs[1].Payload)
		require.NoError(t, err)
		require.Equal(t, `{"@type":"raw"}`, string(env.Message))
	})

	t.Run("test no recipient keys", func(t *testing.T) {
		o, err := NewOutbound(&mockProvider{packager: w, relay: &failingRelay{}})
		require.NoError(t, err)

		err = o.Send(ctx, "data", sender, &service.Destination{ServiceEndpoint: "url"})
		require.ErrorContains(t, err, "no recipient keys for destination")

		err = o.Send(ctx, "data", sender, nil)
		require.Error(t, err)
	})

	t.Run("test marshal failure", func(t *testing.T) {
		o, err := NewOutbound(&mockProvider{packager: w, relay: &failingRelay{}})
		require.NoError(t, err)

		err = o.Send(ctx, make(chan int), sender, dest)
		require.ErrorContains(t, err, "failed marshal to bytes")
	})

	t.Run("test pack msg failure", func(t *testing.T) {
		o, err := NewOutbound(&mockProvider{packager: failingPackager{}, relay: &failingRelay{}})
		require.NoError(t, err)

		err = o.Send(ctx, "data", sender, dest)
		require.ErrorIs(t, err, vcxerror.ErrTransport)
		require.ErrorContains(t, err, "pack error")
	})

	t.Run("test relay failure", func(t *testing.T) {
		o, err := NewOutbound(&mockProvider{packager: w, relay: &failingRelay{err: vcxerror.ErrTransport}})
		require.NoError(t, err)

		err = o.Send(ctx, "data", sender, dest)
		require.ErrorIs(t, err, vcxerror.ErrTransport)
		require.True(t, vcxerror.IsRetryable(err))
	})
}
