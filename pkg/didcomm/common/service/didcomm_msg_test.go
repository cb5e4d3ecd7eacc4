/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
)

func TestParseDIDCommMsgMap(t *testing.T) {
	t.Run("threaded message", func(t *testing.T) {
		msg, err := ParseDIDCommMsgMap([]byte(`{
			"@id": "msg-1",
			"@type": "https://didcomm.org/notification/1.0/ack",
			"~thread": {"thid": "req-1", "sender_order": 2, "received_orders": {"alice": 1}},
			"~please_ack": {"on": ["RECEIPT"]}
		}`))
		require.NoError(t, err)
		require.Equal(t, "msg-1", msg.ID())
		require.Equal(t, "https://didcomm.org/notification/1.0/ack", msg.Type())
		require.Equal(t, "req-1", msg.ThreadID())

		thread, err := msg.Thread()
		require.NoError(t, err)
		require.Equal(t, &decorator.Thread{ID: "req-1", SenderOrder: 2, ReceivedOrders: map[string]int{"alice": 1}},
			thread)

		ack, err := msg.PleaseAck()
		require.NoError(t, err)
		require.Equal(t, []string{decorator.PleaseAckOnReceipt}, ack.On)
	})

	t.Run("no decorators", func(t *testing.T) {
		msg, err := ParseDIDCommMsgMap([]byte(`{"@id": "msg-1", "@type": "type"}`))
		require.NoError(t, err)
		require.Equal(t, "msg-1", msg.ThreadID())

		thread, err := msg.Thread()
		require.NoError(t, err)
		require.Nil(t, thread)

		ack, err := msg.PleaseAck()
		require.NoError(t, err)
		require.Nil(t, ack)
	})

	t.Run("malformed thread", func(t *testing.T) {
		msg, err := ParseDIDCommMsgMap([]byte(`{"@type": "type", "~thread": "thid"}`))
		require.NoError(t, err)

		_, err = msg.Thread()
		require.Error(t, err)
	})

	t.Run("no type", func(t *testing.T) {
		_, err := ParseDIDCommMsgMap([]byte(`{"@id": "msg-1"}`))
		require.ErrorIs(t, err, ErrNoType)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseDIDCommMsgMap([]byte(`nope`))
		require.Error(t, err)
	})
}

func TestDIDCommMsgMap_Decode(t *testing.T) {
	msg, err := ParseDIDCommMsgMap([]byte(`{"@type": "type", "@id": "msg-1", "~thread": {"thid": "th"}}`))
	require.NoError(t, err)

	var v struct {
		ID     string            `json:"@id"`
		Thread *decorator.Thread `json:"~thread"`
	}

	require.NoError(t, msg.Decode(&v))
	require.Equal(t, "msg-1", v.ID)
	require.Equal(t, "th", v.Thread.ID)

	var wrong struct {
		ID int `json:"@id"`
	}

	require.Error(t, msg.Decode(&wrong))
}

func TestNormalizeType(t *testing.T) {
	require.Equal(t, "https://didcomm.org/connections/1.0/request",
		NormalizeType("did:sov:BzCbsNYhMrjHiqZDTUASHg;spec/connections/1.0/request"))
	require.Equal(t, "https://didcomm.org/trust_ping/1.0/ping", NormalizeType("https://didcomm.org/trust_ping/1.0/ping"))

	msg := DIDCommMsgMap{"@type": "did:sov:BzCbsNYhMrjHiqZDTUASHg;spec/notification/1.0/ack"}
	require.Equal(t, "https://didcomm.org/notification/1.0/ack", msg.Type())
}
