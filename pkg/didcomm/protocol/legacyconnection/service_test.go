/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/agency"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/model"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	commontransport "github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/thread"
	"github.com/hyperledger/aries-vcx-go/pkg/doc/did"
	connectionstore "github.com/hyperledger/aries-vcx-go/pkg/store/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
	"github.com/hyperledger/aries-vcx-go/pkg/wallet"
)

const agencyEndpoint = "http://agency.example.com/agency/msg"

type relayProvider struct {
	packager commontransport.Packager
	relay    agency.Client
}

func (p *relayProvider) Packager() commontransport.Packager {
	return p.packager
}

func (p *relayProvider) Relay() agency.Client {
	return p.relay
}

type protocolProvider struct {
	registry *connectionstore.Registry
	keys     KeyManager
	outbound dispatcher.Outbound
}

func (p *protocolProvider) ConnectionRegistry() *connectionstore.Registry {
	return p.registry
}

func (p *protocolProvider) KeyManager() KeyManager {
	return p.keys
}

func (p *protocolProvider) OutboundDispatcher() dispatcher.Outbound {
	return p.outbound
}

type brokenRelay struct {
	agency.Client
}

func (brokenRelay) Send(context.Context, []byte, *service.Destination) error {
	return vcxerror.ErrTransport
}

type agent struct {
	registry *connectionstore.Registry
	wallet   *wallet.BaseWallet
	svc      *Service
	mailbox  *agency.Mailbox
}

func newAgent(t *testing.T, mb *agency.Mailbox, label string, opts ...Opt) *agent {
	t.Helper()

	return newAgentWithRelay(t, mb, mb, label, opts...)
}

func newAgentWithRelay(t *testing.T, mb *agency.Mailbox, relay agency.Client, label string, opts ...Opt) *agent {
	t.Helper()

	w, err := wallet.New(mem.NewProvider())
	require.NoError(t, err)

	outbound, err := dispatcher.NewOutbound(&relayProvider{packager: w, relay: relay})
	require.NoError(t, err)

	registry := connectionstore.NewRegistry()

	svc, err := New(&protocolProvider{registry: registry, keys: w, outbound: outbound},
		append([]Opt{WithLabel(label), WithServiceEndpoint(agencyEndpoint)}, opts...)...)
	require.NoError(t, err)

	return &agent{registry: registry, wallet: w, svc: svc, mailbox: mb}
}

func (a *agent) record(t *testing.T, handle uint32) *connectionstore.Record {
	t.Helper()

	rec, err := a.registry.Get(handle)
	require.NoError(t, err)

	return rec
}

// receive returns the single unread message for the connection's pairwise key and marks it reviewed.
func (a *agent) receive(t *testing.T, handle uint32) service.DIDCommMsgMap {
	t.Helper()

	ctx := context.Background()

	msgs, err := a.mailbox.Poll(ctx, &agency.Filter{
		RecipientKeys: []string{a.record(t, handle).PairwiseVerKey},
		Statuses:      []agency.Status{agency.StatusReceived},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, a.mailbox.UpdateStatus(ctx, msgs[0].UID, agency.StatusReviewed))

	env, err := a.wallet.UnpackMessage(msgs[0].Payload)
	require.NoError(t, err)

	msg, err := service.ParseDIDCommMsgMap(env.Message)
	require.NoError(t, err)

	return msg
}

func (a *agent) invitation(t *testing.T, handle uint32) *Invitation {
	t.Helper()

	inv := &Invitation{}
	require.NoError(t, a.record(t, handle).DecodeInvitation(inv))

	return inv
}

func newMailbox(t *testing.T) *agency.Mailbox {
	t.Helper()

	mb, err := agency.NewMailbox(mem.NewProvider())
	require.NoError(t, err)

	return mb
}

func toMsgMap(t *testing.T, v interface{}) service.DIDCommMsgMap {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	msg, err := service.ParseDIDCommMsgMap(raw)
	require.NoError(t, err)

	return msg
}

func TestNew(t *testing.T) {
	_, err := New(&protocolProvider{})
	require.Error(t, err)
}

func TestService_Accept(t *testing.T) {
	svc := newAgent(t, newMailbox(t), "faber").svc

	require.Equal(t, LegacyConnection, svc.Name())
	require.True(t, svc.Accept(RequestMsgType))
	require.True(t, svc.Accept("did:sov:BzCbsNYhMrjHiqZDTUASHg;spec/connections/1.0/response"))
	require.True(t, svc.Accept(AckMsgType))
	require.False(t, svc.Accept("https://didcomm.org/basicmessage/1.0/message"))
}

func TestService_Connect(t *testing.T) {
	ctx := context.Background()
	mb := newMailbox(t)

	t.Run("inviter moves to invited and holds the invitation", func(t *testing.T) {
		faber := newAgent(t, mb, "faber", WithRoutingKeys("routing"))

		handle, err := faber.registry.Create("faber")
		require.NoError(t, err)

		state, err := faber.svc.Connect(ctx, handle)
		require.NoError(t, err)
		require.Equal(t, connectionstore.StateInvited, state)
		require.Equal(t, connectionstore.CodeInvited, state.Code())

		rec := faber.record(t, handle)
		require.Equal(t, connectionstore.RoleInviter, rec.Role)
		require.NotEmpty(t, rec.PairwiseDID)
		require.Empty(t, rec.TheirVerKey)

		inv := faber.invitation(t, handle)
		require.Equal(t, InvitationMsgType, inv.Type)
		require.Equal(t, "faber", inv.Label)
		require.Equal(t, []string{rec.PairwiseVerKey}, inv.RecipientKeys)
		require.Equal(t, []string{"routing"}, inv.RoutingKeys)
		require.Equal(t, agencyEndpoint, inv.ServiceEndpoint)

		msgs, err := mb.Poll(ctx, nil)
		require.NoError(t, err)
		require.Empty(t, msgs)

		_, err = faber.svc.Connect(ctx, handle)
		require.ErrorIs(t, err, vcxerror.ErrInvalidState)
	})

	t.Run("invitee sends a request and moves to requested", func(t *testing.T) {
		faber := newAgent(t, mb, "faber")
		alice := newAgent(t, mb, "alice")

		fh, err := faber.registry.Create("faber")
		require.NoError(t, err)

		_, err = faber.svc.Connect(ctx, fh)
		require.NoError(t, err)

		ah, err := alice.registry.CreateWithInvitation("alice", faber.invitation(t, fh))
		require.NoError(t, err)

		state, err := alice.svc.Connect(ctx, ah)
		require.NoError(t, err)
		require.Equal(t, connectionstore.StateRequested, state)
		require.Equal(t, uint32(3), state.Code())

		rec := alice.record(t, ah)
		require.NotEmpty(t, rec.RequestID)
		require.Empty(t, rec.TheirVerKey)

		msg := faber.receive(t, fh)
		require.Equal(t, RequestMsgType, msg.Type())

		request := &Request{}
		require.NoError(t, msg.Decode(request))
		require.Equal(t, rec.RequestID, request.ID)
		require.Equal(t, "alice", request.Label)
		require.Equal(t, faber.invitation(t, fh).ID, request.Thread.PID)
		require.Equal(t, rec.PairwiseDID, request.Connection.DID)
	})

	t.Run("relay failure leaves the connection in null", func(t *testing.T) {
		faber := newAgent(t, mb, "faber")
		alice := newAgentWithRelay(t, mb, brokenRelay{}, "alice")

		fh, err := faber.registry.Create("faber")
		require.NoError(t, err)

		_, err = faber.svc.Connect(ctx, fh)
		require.NoError(t, err)

		ah, err := alice.registry.CreateWithInvitation("alice", faber.invitation(t, fh))
		require.NoError(t, err)

		_, err = alice.svc.Connect(ctx, ah)
		require.ErrorIs(t, err, vcxerror.ErrTransport)
		require.True(t, vcxerror.IsRetryable(err))

		rec := alice.record(t, ah)
		require.Equal(t, connectionstore.StateNull, rec.State)
		require.Empty(t, rec.RequestID)
	})

	t.Run("invitation without recipient keys", func(t *testing.T) {
		alice := newAgent(t, mb, "alice")

		inv := NewInvitation("inv").WithServiceEndpoint(agencyEndpoint)

		ah, err := alice.registry.CreateWithInvitation("alice", &inv)
		require.NoError(t, err)

		_, err = alice.svc.Connect(ctx, ah)
		require.ErrorIs(t, err, vcxerror.ErrDecode)
	})

	t.Run("invalid handle", func(t *testing.T) {
		_, err := newAgent(t, mb, "faber").svc.Connect(ctx, 7)
		require.ErrorIs(t, err, vcxerror.ErrInvalidHandle)
	})
}

func TestService_Handshake(t *testing.T) {
	ctx := context.Background()
	mb := newMailbox(t)

	faber := newAgent(t, mb, "faber")
	alice := newAgent(t, mb, "alice")

	fh, err := faber.registry.Create("faber")
	require.NoError(t, err)

	_, err = faber.svc.Connect(ctx, fh)
	require.NoError(t, err)

	ah, err := alice.registry.CreateWithInvitation("alice", faber.invitation(t, fh))
	require.NoError(t, err)

	_, err = alice.svc.Connect(ctx, ah)
	require.NoError(t, err)

	state, err := faber.svc.HandleInbound(ctx, fh, faber.receive(t, fh))
	require.NoError(t, err)
	require.Equal(t, connectionstore.StateResponded, state)

	inviter := faber.record(t, fh)
	invitee := alice.record(t, ah)
	require.Equal(t, invitee.PairwiseDID, inviter.TheirDID)
	require.Equal(t, invitee.PairwiseVerKey, inviter.TheirVerKey)
	require.Equal(t, "alice", inviter.TheirLabel)
	require.Equal(t, invitee.RequestID, inviter.RequestID)

	response := alice.receive(t, ah)
	require.Equal(t, ResponseMsgType, response.Type())

	pleaseAck, err := response.PleaseAck()
	require.NoError(t, err)
	require.Equal(t, []string{decorator.PleaseAckOnReceipt}, pleaseAck.On)

	state, err = alice.svc.HandleInbound(ctx, ah, response)
	require.NoError(t, err)
	require.Equal(t, connectionstore.StateCompleted, state)
	require.Equal(t, connectionstore.CodeCompleted, state.Code())

	invitee = alice.record(t, ah)
	require.Equal(t, inviter.PairwiseDID, invitee.TheirDID)
	require.Equal(t, inviter.PairwiseVerKey, invitee.TheirVerKey)
	require.NotNil(t, invitee.TheirDIDDoc)
	require.Equal(t, 1, invitee.Thread.SenderOrder)

	ackMsg := faber.receive(t, fh)
	require.Equal(t, AckMsgType, ackMsg.Type())

	ack := &model.Ack{}
	require.NoError(t, ackMsg.Decode(ack))
	require.Equal(t, invitee.RequestID, ack.Thread.ID)
	require.Equal(t, 1, ack.Thread.SenderOrder)
	require.Equal(t, map[string]int{inviter.PairwiseDID: 1}, ack.Thread.ReceivedOrders)

	state, err = faber.svc.HandleInbound(ctx, fh, ackMsg)
	require.NoError(t, err)
	require.Equal(t, connectionstore.StateCompleted, state)

	inviter = faber.record(t, fh)
	last, ok := inviter.Thread.LastReceived(invitee.PairwiseDID)
	require.True(t, ok)
	require.Equal(t, 1, last)

	t.Run("completed accepts any message", func(t *testing.T) {
		state, err := faber.svc.HandleInbound(ctx, fh, service.DIDCommMsgMap{
			"@type":   "https://didcomm.org/basicmessage/1.0/message",
			"@id":     "msg-1",
			"content": "Hi there",
		})
		require.NoError(t, err)
		require.Equal(t, connectionstore.StateCompleted, state)
	})

	t.Run("replayed ack is an ordering anomaly", func(t *testing.T) {
		_, err := faber.svc.HandleInbound(ctx, fh, ackMsg)
		require.ErrorIs(t, err, vcxerror.ErrOrderingAnomaly)

		rec := faber.record(t, fh)
		require.Equal(t, connectionstore.StateCompleted, rec.State)
		require.Equal(t, inviter.Thread, rec.Thread)
	})

	t.Run("newer order on the handshake thread is recorded", func(t *testing.T) {
		_, err := faber.svc.HandleInbound(ctx, fh, service.DIDCommMsgMap{
			"@type": "https://didcomm.org/trust_ping/1.0/ping",
			"@id":   "ping-1",
			"~thread": map[string]interface{}{
				"thid":         invitee.RequestID,
				"sender_order": 2,
			},
		})
		require.NoError(t, err)

		last, ok := faber.record(t, fh).Thread.LastReceived(invitee.PairwiseDID)
		require.True(t, ok)
		require.Equal(t, 2, last)
	})
}

func TestService_InboundRequest(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, relay agency.Client) (*agent, uint32, *agent, uint32) {
		t.Helper()

		mb := newMailbox(t)

		var faber *agent
		if relay == nil {
			faber = newAgent(t, mb, "faber")
		} else {
			faber = newAgentWithRelay(t, mb, relay, "faber")
		}

		alice := newAgent(t, mb, "alice")

		fh, err := faber.registry.Create("faber")
		require.NoError(t, err)

		_, err = faber.svc.Connect(ctx, fh)
		require.NoError(t, err)

		ah, err := alice.registry.CreateWithInvitation("alice", faber.invitation(t, fh))
		require.NoError(t, err)

		_, err = alice.svc.Connect(ctx, ah)
		require.NoError(t, err)

		return faber, fh, alice, ah
	}

	t.Run("request for another invitation", func(t *testing.T) {
		faber, fh, _, _ := setup(t, nil)

		request := faber.receive(t, fh)
		request["~thread"] = map[string]interface{}{"pthid": "other-invitation"}

		_, err := faber.svc.HandleInbound(ctx, fh, request)
		require.ErrorIs(t, err, vcxerror.ErrInvalidState)
		require.Equal(t, connectionstore.StateInvited, faber.record(t, fh).State)
	})

	t.Run("request without thread is accepted", func(t *testing.T) {
		faber, fh, _, _ := setup(t, nil)

		request := faber.receive(t, fh)
		delete(request, "~thread")

		state, err := faber.svc.HandleInbound(ctx, fh, request)
		require.NoError(t, err)
		require.Equal(t, connectionstore.StateResponded, state)
	})

	t.Run("request without connection", func(t *testing.T) {
		faber, fh, _, _ := setup(t, nil)

		request := faber.receive(t, fh)
		delete(request, "connection")

		_, err := faber.svc.HandleInbound(ctx, fh, request)
		require.ErrorIs(t, err, vcxerror.ErrDecode)
		require.Equal(t, connectionstore.StateInvited, faber.record(t, fh).State)
	})

	t.Run("relay failure rolls back to invited", func(t *testing.T) {
		faber, fh, _, _ := setup(t, brokenRelay{})

		_, err := faber.svc.HandleInbound(ctx, fh, faber.receive(t, fh))
		require.ErrorIs(t, err, vcxerror.ErrTransport)

		rec := faber.record(t, fh)
		require.Equal(t, connectionstore.StateInvited, rec.State)
		require.Empty(t, rec.TheirVerKey)
		require.Empty(t, rec.RequestID)
	})

	t.Run("response is not valid for an inviter", func(t *testing.T) {
		faber, fh, _, _ := setup(t, nil)

		_, err := faber.svc.HandleInbound(ctx, fh, service.DIDCommMsgMap{"@type": ResponseMsgType, "@id": "r"})
		require.ErrorIs(t, err, vcxerror.ErrInvalidState)
	})

	t.Run("null connection rejects messages", func(t *testing.T) {
		faber, _, _, _ := setup(t, nil)

		h, err := faber.registry.Create("other")
		require.NoError(t, err)

		_, err = faber.svc.HandleInbound(ctx, h, service.DIDCommMsgMap{"@type": RequestMsgType, "@id": "r"})
		require.ErrorIs(t, err, vcxerror.ErrInvalidState)
	})

	t.Run("responded inviter rejects unrelated messages", func(t *testing.T) {
		faber, fh, _, _ := setup(t, nil)

		_, err := faber.svc.HandleInbound(ctx, fh, faber.receive(t, fh))
		require.NoError(t, err)

		_, err = faber.svc.HandleInbound(ctx, fh, service.DIDCommMsgMap{
			"@type":   AckMsgType,
			"@id":     "ack",
			"~thread": map[string]interface{}{"thid": "unrelated"},
		})
		require.ErrorIs(t, err, vcxerror.ErrInvalidState)
		require.Equal(t, connectionstore.StateResponded, faber.record(t, fh).State)
	})

	t.Run("any message on the handshake thread completes the inviter", func(t *testing.T) {
		faber, fh, alice, ah := setup(t, nil)

		_, err := faber.svc.HandleInbound(ctx, fh, faber.receive(t, fh))
		require.NoError(t, err)

		state, err := faber.svc.HandleInbound(ctx, fh, service.DIDCommMsgMap{
			"@type":   "https://didcomm.org/basicmessage/1.0/message",
			"@id":     "msg",
			"~thread": map[string]interface{}{"thid": alice.record(t, ah).RequestID},
		})
		require.NoError(t, err)
		require.Equal(t, connectionstore.StateCompleted, state)
	})

	t.Run("problem report on the handshake thread", func(t *testing.T) {
		faber, fh, alice, ah := setup(t, nil)

		_, err := faber.svc.HandleInbound(ctx, fh, faber.receive(t, fh))
		require.NoError(t, err)

		_, err = faber.svc.HandleInbound(ctx, fh, toMsgMap(t, &model.ProblemReport{
			Type:   ProblemReportMsgType,
			ID:     "problem",
			Thread: &decorator.Thread{ID: alice.record(t, ah).RequestID},
		}))
		require.ErrorIs(t, err, vcxerror.ErrInvalidState)
		require.Equal(t, connectionstore.StateResponded, faber.record(t, fh).State)
	})
}

func TestService_InboundResponse(t *testing.T) {
	ctx := context.Background()

	// the invitee holds an invitation whose recipient key is K
	setup := func(t *testing.T) (*agent, uint32, *edKeys, string) {
		t.Helper()

		keys := newEdKeys()
		k := keys.create(t)

		alice := newAgent(t, newMailbox(t), "alice")

		inv := NewInvitation("invitation-id").
			WithLabel("faber").
			WithRecipientKeys(k).
			WithServiceEndpoint(agencyEndpoint)

		ah, err := alice.registry.CreateWithInvitation("alice", &inv)
		require.NoError(t, err)

		state, err := alice.svc.Connect(ctx, ah)
		require.NoError(t, err)
		require.Equal(t, connectionstore.StateRequested, state)

		return alice, ah, keys, k
	}

	response := func(t *testing.T, keys *edKeys, signKey, thid string) service.DIDCommMsgMap {
		t.Helper()

		theirDID := wallet.PairwiseDID(signKey)
		doc := did.NewDoc(theirDID, signKey, agencyEndpoint, nil)

		sig, err := SignConnection(keys, &Connection{DID: theirDID, DIDDoc: doc}, signKey)
		require.NoError(t, err)

		return toMsgMap(t, &Response{
			Type:                ResponseMsgType,
			ID:                  "response-id",
			Thread:              &decorator.Thread{ID: thid},
			ConnectionSignature: sig,
		})
	}

	t.Run("response signed with the invitation key completes the connection", func(t *testing.T) {
		alice, ah, keys, k := setup(t)
		rec := alice.record(t, ah)

		state, err := alice.svc.HandleInbound(ctx, ah, response(t, keys, k, rec.RequestID))
		require.NoError(t, err)
		require.Equal(t, connectionstore.StateCompleted, state)

		rec = alice.record(t, ah)
		require.Equal(t, k, rec.TheirVerKey)
		require.Equal(t, wallet.PairwiseDID(k), rec.TheirDID)

		// the ack went to the responder's key
		msgs, err := alice.mailbox.Poll(ctx, &agency.Filter{RecipientKeys: []string{k}})
		require.NoError(t, err)
		require.Len(t, msgs, 1)
	})

	t.Run("response signed with another key is rejected", func(t *testing.T) {
		alice, ah, keys, _ := setup(t)
		other := keys.create(t)
		rec := alice.record(t, ah)

		_, err := alice.svc.HandleInbound(ctx, ah, response(t, keys, other, rec.RequestID))
		require.ErrorIs(t, err, vcxerror.ErrSignatureVerificationFailed)

		rec = alice.record(t, ah)
		require.Equal(t, connectionstore.StateRequested, rec.State)
		require.Empty(t, rec.TheirVerKey)
		require.Nil(t, rec.TheirDIDDoc)
	})

	t.Run("tampered signature is rejected", func(t *testing.T) {
		alice, ah, keys, k := setup(t)
		rec := alice.record(t, ah)

		msg := response(t, keys, k, rec.RequestID)
		sig := msg["connection~sig"].(map[string]interface{})
		sig["signature"] = "AAAA" + sig["signature"].(string)[4:]

		_, err := alice.svc.HandleInbound(ctx, ah, msg)
		require.ErrorIs(t, err, vcxerror.ErrSignatureVerificationFailed)
		require.Equal(t, connectionstore.StateRequested, alice.record(t, ah).State)
	})

	t.Run("response for another request is an invalid state", func(t *testing.T) {
		alice, ah, keys, k := setup(t)

		_, err := alice.svc.HandleInbound(ctx, ah, response(t, keys, k, "another-request"))
		require.ErrorIs(t, err, vcxerror.ErrInvalidState)
		require.Equal(t, connectionstore.StateRequested, alice.record(t, ah).State)

		// the connection is not poisoned
		state, err := alice.svc.HandleInbound(ctx, ah, response(t, keys, k, alice.record(t, ah).RequestID))
		require.NoError(t, err)
		require.Equal(t, connectionstore.StateCompleted, state)
	})

	t.Run("request is not valid for an invitee", func(t *testing.T) {
		alice, ah, _, _ := setup(t)

		_, err := alice.svc.HandleInbound(ctx, ah, service.DIDCommMsgMap{"@type": RequestMsgType, "@id": "r"})
		require.ErrorIs(t, err, vcxerror.ErrInvalidState)
	})

	t.Run("ack cannot skip the response", func(t *testing.T) {
		alice, ah, _, _ := setup(t)

		_, err := alice.svc.HandleInbound(ctx, ah, service.DIDCommMsgMap{
			"@type":   AckMsgType,
			"@id":     "ack",
			"~thread": map[string]interface{}{"thid": alice.record(t, ah).RequestID},
		})
		require.ErrorIs(t, err, vcxerror.ErrInvalidState)
		require.Equal(t, connectionstore.StateRequested, alice.record(t, ah).State)
	})
}

func TestService_OrderingPolicy(t *testing.T) {
	ctx := context.Background()
	mb := newMailbox(t)

	faber := newAgent(t, mb, "faber", WithOrderingPolicy(thread.NonDecreasing))
	alice := newAgent(t, mb, "alice")

	fh, err := faber.registry.Create("faber")
	require.NoError(t, err)

	_, err = faber.svc.Connect(ctx, fh)
	require.NoError(t, err)

	ah, err := alice.registry.CreateWithInvitation("alice", faber.invitation(t, fh))
	require.NoError(t, err)

	_, err = alice.svc.Connect(ctx, ah)
	require.NoError(t, err)

	_, err = faber.svc.HandleInbound(ctx, fh, faber.receive(t, fh))
	require.NoError(t, err)

	_, err = alice.svc.HandleInbound(ctx, ah, alice.receive(t, ah))
	require.NoError(t, err)

	ack := faber.receive(t, fh)

	_, err = faber.svc.HandleInbound(ctx, fh, ack)
	require.NoError(t, err)

	// an equal order is tolerated, a lower one is not
	_, err = faber.svc.HandleInbound(ctx, fh, ack)
	require.NoError(t, err)

	_, err = faber.svc.HandleInbound(ctx, fh, service.DIDCommMsgMap{
		"@type": "https://didcomm.org/trust_ping/1.0/ping",
		"@id":   "ping",
		"~thread": map[string]interface{}{
			"thid":         alice.record(t, ah).RequestID,
			"sender_order": 3,
		},
	})
	require.NoError(t, err)

	_, err = faber.svc.HandleInbound(ctx, fh, ack)
	require.ErrorIs(t, err, vcxerror.ErrOrderingAnomaly)
}
