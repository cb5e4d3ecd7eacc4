/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvitation_Builders(t *testing.T) {
	base := NewInvitation("inv-1")

	inv := base.WithLabel("Faber").
		WithRecipientKeys("key1").
		WithRoutingKeys("routing1").
		WithServiceEndpoint("http://agency/msg")

	require.Empty(t, base.Label)
	require.Empty(t, base.RecipientKeys)
	require.Equal(t, InvitationMsgType, inv.Type)
	require.Equal(t, "inv-1", inv.ID)
	require.Equal(t, "Faber", inv.Label)
	require.Equal(t, []string{"key1"}, inv.RecipientKeys)
	require.Equal(t, []string{"routing1"}, inv.RoutingKeys)
	require.Equal(t, "http://agency/msg", inv.ServiceEndpoint)

	keys := []string{"key2"}
	other := inv.WithRecipientKeys(keys...)
	keys[0] = "mutated"
	require.Equal(t, []string{"key2"}, other.RecipientKeys)
	require.Equal(t, []string{"key1"}, inv.RecipientKeys)

	c := inv.Copy()
	c.RecipientKeys[0] = "changed"
	require.Equal(t, []string{"key1"}, inv.RecipientKeys)

	var nilInv *Invitation
	require.Nil(t, nilInv.Copy())
}

func TestInvitation_WireForm(t *testing.T) {
	inv := NewInvitation("inv-1").WithLabel("Faber").WithRecipientKeys("key1").
		WithServiceEndpoint("http://agency/msg")

	b, err := json.Marshal(inv)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"@type": "https://didcomm.org/connections/1.0/invitation",
		"@id": "inv-1",
		"label": "Faber",
		"recipientKeys": ["key1"],
		"serviceEndpoint": "http://agency/msg"
	}`, string(b))
}

func TestConnection_UnmarshalJSON(t *testing.T) {
	t.Run("loosely typed document", func(t *testing.T) {
		conn := &Connection{}
		err := json.Unmarshal([]byte(`{"DID":"did:sov:a","DIDDoc":{"id":"did:sov:a","service":[{"priority":"1"}]}}`),
			conn)
		require.NoError(t, err)
		require.Equal(t, "did:sov:a", conn.DID)
		require.Equal(t, 1, conn.DIDDoc.Service[0].Priority)
	})

	t.Run("document without id", func(t *testing.T) {
		err := json.Unmarshal([]byte(`{"DID":"did:sov:a","DIDDoc":{}}`), &Connection{})
		require.Error(t, err)
	})

	t.Run("no document", func(t *testing.T) {
		conn := &Connection{}
		require.NoError(t, json.Unmarshal([]byte(`{"DID":"did:sov:a"}`), conn))
		require.Nil(t, conn.DIDDoc)
	})
}
