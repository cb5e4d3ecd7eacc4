/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/agency"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/a2a"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/messaging"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/messaging/service/basic"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/legacyconnection"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/trustping"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/thread"
	connectionstore "github.com/hyperledger/aries-vcx-go/pkg/store/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
)

var logger = log.New("vcx/client/connection")

const threadDecorator = "~thread"

// provider contains dependencies for the connection client and is typically created by using aries.Context().
type provider interface {
	ConnectionRegistry() *connectionstore.Registry
	KeyManager() legacyconnection.KeyManager
	Packager() transport.Packager
	Relay() agency.Client
	OutboundDispatcher() dispatcher.Outbound
	Label() string
	ServiceEndpoint() string
	RoutingKeys() []string
	OrderingPolicy() thread.Policy
}

// Client drives connections through the handshake and exchanges messages over them.
type Client struct {
	registry *connectionstore.Registry
	protocol *legacyconnection.Service
	messages *messaging.Service
	outbound dispatcher.Outbound
	policy   thread.Policy
	newID    func() string
}

// New return new instance of connection client.
func New(prov provider) (*Client, error) {
	protocol, err := legacyconnection.New(prov,
		legacyconnection.WithLabel(prov.Label()),
		legacyconnection.WithServiceEndpoint(prov.ServiceEndpoint()),
		legacyconnection.WithRoutingKeys(prov.RoutingKeys()...),
		legacyconnection.WithOrderingPolicy(prov.OrderingPolicy()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize connection service : %w", err)
	}

	messages, err := messaging.New(prov)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize message service : %w", err)
	}

	return &Client{
		registry: prov.ConnectionRegistry(),
		protocol: protocol,
		messages: messages,
		outbound: prov.OutboundDispatcher(),
		policy:   prov.OrderingPolicy(),
		newID:    func() string { return uuid.New().String() },
	}, nil
}

// ParseInvitation decodes a connection invitation.
func ParseInvitation(data []byte) (*legacyconnection.Invitation, error) {
	msg, err := a2a.Decode(data)
	if err != nil {
		return nil, err
	}

	if msg.Kind != a2a.KindInvitation {
		return nil, fmt.Errorf("%w: expected an invitation, got %s", vcxerror.ErrDecode, msg.Kind)
	}

	return msg.Invitation, nil
}

// Create creates a connection in state Null for the inviter side.
func (c *Client) Create(sourceID string) (uint32, error) {
	return c.registry.Create(sourceID)
}

// CreateWithInvitation creates a connection in state Null for the invitee side. The invitation is consumed
// by Connect.
func (c *Client) CreateWithInvitation(sourceID string, invitation *legacyconnection.Invitation) (uint32, error) {
	if invitation == nil {
		return 0, fmt.Errorf("%w: missing invitation", vcxerror.ErrDecode)
	}

	if invitation.Type != "" && service.NormalizeType(invitation.Type) != legacyconnection.InvitationMsgType {
		return 0, fmt.Errorf("%w: %s is not an invitation", vcxerror.ErrDecode, invitation.Type)
	}

	if len(invitation.RecipientKeys) == 0 {
		return 0, fmt.Errorf("%w: invitation has no recipient keys", vcxerror.ErrDecode)
	}

	return c.registry.CreateWithInvitation(sourceID, invitation)
}

// Connect starts the handshake: the inviter gets an invitation to share, the invitee sends its request.
func (c *Client) Connect(ctx context.Context, handle uint32) error {
	_, err := c.protocol.Connect(ctx, handle)

	return err
}

// GetState returns the numeric state code of the connection.
func (c *Client) GetState(handle uint32) (uint32, error) {
	rec, err := c.registry.Get(handle)
	if err != nil {
		return 0, err
	}

	return rec.Code(), nil
}

// UpdateState fetches the unread messages of the connection from the agency and applies them in arrival order.
// Handshake messages are marked reviewed once applied and rejected when the connection refuses them, in which
// case the refusal is returned. Application messages stay unread for GetMessages.
func (c *Client) UpdateState(ctx context.Context, handle uint32) (uint32, error) {
	rec, err := c.registry.Get(handle)
	if err != nil {
		return 0, err
	}

	if rec.State == connectionstore.StateNull || rec.PairwiseVerKey == "" {
		return rec.Code(), nil
	}

	items, err := c.messages.Received(ctx, handle)
	if err != nil {
		return 0, err
	}

	for _, item := range items {
		if err = c.process(ctx, handle, item); err != nil {
			return 0, err
		}
	}

	return c.GetState(handle)
}

func (c *Client) process(ctx context.Context, handle uint32, item *messaging.Item) error {
	if item.Err != nil {
		return nil
	}

	rec, err := c.registry.Get(handle)
	if err != nil {
		return err
	}

	msg, err := service.ParseDIDCommMsgMap(item.Payload)
	if err != nil {
		return nil
	}

	handshake := c.protocol.Accept(msg.Type())
	completed := rec.State == connectionstore.StateCompleted

	switch {
	case completed && item.Message.Kind == a2a.KindPing:
		if err = c.answerPing(ctx, handle, item.Message.Ping); err != nil {
			return err
		}
	case handshake, !completed && rec.RequestID != "" && msg.ThreadID() == rec.RequestID:
		if _, err = c.protocol.HandleInbound(ctx, handle, msg); err != nil {
			return c.reject(ctx, handle, item, handshake, err)
		}

		if !handshake {
			return nil
		}
	default:
		return nil
	}

	return c.messages.UpdateMessageStatus(ctx, handle, item.UID, agency.StatusReviewed)
}

func (c *Client) reject(ctx context.Context, handle uint32, item *messaging.Item, handshake bool, cause error) error {
	if vcxerror.IsRetryable(cause) || !handshake {
		return cause
	}

	logger.Warnf("handle %d: rejected message %s: %s", handle, item.UID, cause)

	if err := c.messages.UpdateMessageStatus(ctx, handle, item.UID, agency.StatusRejected); err != nil {
		return fmt.Errorf("%s; mark message rejected: %w", cause, err)
	}

	return cause
}

// UpdateStateWithMessage applies one message to the connection and returns the resulting state code.
func (c *Client) UpdateStateWithMessage(ctx context.Context, handle uint32, message []byte) (uint32, error) {
	rec, err := c.registry.Get(handle)
	if err != nil {
		return 0, err
	}

	msg, err := service.ParseDIDCommMsgMap(message)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", vcxerror.ErrDecode, err)
	}

	if rec.State == connectionstore.StateCompleted && msg.Type() == trustping.PingMsgType {
		ping := &trustping.Ping{}
		if err = msg.Decode(ping); err != nil {
			return 0, fmt.Errorf("%w: %s", vcxerror.ErrDecode, err)
		}

		if err = c.answerPing(ctx, handle, ping); err != nil {
			return 0, err
		}

		return rec.Code(), nil
	}

	state, err := c.protocol.HandleInbound(ctx, handle, msg)
	if err != nil {
		return 0, err
	}

	return state.Code(), nil
}

// SendGenericMessage sends message over a completed connection and returns the id of the sent message.
// A JSON message with an @type is sent as it is; anything else is sent as the content of a basic message.
// Messages that do not carry a ~thread get the connection's thread with the next sender order.
func (c *Client) SendGenericMessage(ctx context.Context, handle uint32, message string) (string, error) {
	msg, err := service.ParseDIDCommMsgMap([]byte(message))
	if err != nil {
		return c.SendMessage(ctx, handle, message)
	}

	if msg.ID() == "" {
		msg["@id"] = c.newID()
	}

	_, threaded := msg[threadDecorator]

	err = c.send(ctx, handle, !threaded, func(th *decorator.Thread) interface{} {
		if th != nil {
			msg[threadDecorator] = th
		}

		return msg
	})
	if err != nil {
		return "", err
	}

	return msg.ID(), nil
}

// SendMessage sends content as a basic message and returns the message id.
func (c *Client) SendMessage(ctx context.Context, handle uint32, content string) (string, error) {
	msg := basic.NewMessage(c.newID(), content)

	err := c.send(ctx, handle, true, func(th *decorator.Thread) interface{} {
		return msg.WithThread(th)
	})
	if err != nil {
		return "", err
	}

	return msg.ID, nil
}

// SendPing sends a trust ping asking for a response and returns its id. The ping starts its own thread.
func (c *Client) SendPing(ctx context.Context, handle uint32, comment string) (string, error) {
	ping := trustping.NewPing(c.newID(), comment)

	err := c.send(ctx, handle, false, func(*decorator.Thread) interface{} {
		return &ping
	})
	if err != nil {
		return "", err
	}

	return ping.ID, nil
}

func (c *Client) answerPing(ctx context.Context, handle uint32, ping *trustping.Ping) error {
	if !ping.ResponseRequested {
		return nil
	}

	response := ping.Respond(c.newID())

	return c.send(ctx, handle, false, func(*decorator.Thread) interface{} {
		return &response
	})
}

// send builds a message with build and sends it to the counterparty of a completed connection. With attach,
// build gets the connection's thread with the next sender order, which is kept only when the send succeeds.
func (c *Client) send(ctx context.Context, handle uint32, attach bool, build func(th *decorator.Thread) interface{}) error {
	return c.registry.Update(handle, func(rec *connectionstore.Record) error {
		if rec.State != connectionstore.StateCompleted {
			return fmt.Errorf("%w: connection %q is %s", vcxerror.ErrInvalidState, rec.SourceID, rec.State)
		}

		dest, err := service.CreateDestination(rec.TheirDIDDoc)
		if err != nil {
			return fmt.Errorf("%w: counterparty destination: %s", vcxerror.ErrInvalidState, err)
		}

		var th *decorator.Thread

		if attach {
			if rec.Thread == nil {
				rec.Thread = thread.New(rec.RequestID, c.policy)
			}

			th = rec.Thread.Attach()
		}

		err = c.outbound.Send(ctx, build(th), rec.PairwiseVerKey, dest)
		if err != nil && !errors.Is(err, vcxerror.ErrTransport) {
			return fmt.Errorf("%w: %s", vcxerror.ErrTransport, err)
		}

		return err
	})
}

// InviteDetails returns the invitation of the connection: the one to share for an inviter, the one consumed
// for an invitee.
func (c *Client) InviteDetails(handle uint32) (*legacyconnection.Invitation, error) {
	rec, err := c.registry.Get(handle)
	if err != nil {
		return nil, err
	}

	if len(rec.Invitation) == 0 {
		return nil, fmt.Errorf("%w: connection %q has no invitation yet", vcxerror.ErrInvalidState, rec.SourceID)
	}

	invitation := &legacyconnection.Invitation{}
	if err = rec.DecodeInvitation(invitation); err != nil {
		return nil, err
	}

	return invitation, nil
}

// GetPwDID returns the local pairwise DID.
func (c *Client) GetPwDID(handle uint32) (string, error) {
	return c.field(handle, func(rec *connectionstore.Record) string { return rec.PairwiseDID })
}

// GetPwVerkey returns the local pairwise verkey.
func (c *Client) GetPwVerkey(handle uint32) (string, error) {
	return c.field(handle, func(rec *connectionstore.Record) string { return rec.PairwiseVerKey })
}

// GetTheirPwDID returns the counterparty's pairwise DID, empty until the handshake exchanged it.
func (c *Client) GetTheirPwDID(handle uint32) (string, error) {
	return c.field(handle, func(rec *connectionstore.Record) string { return rec.TheirDID })
}

// GetTheirPwVerkey returns the counterparty's pairwise verkey, empty until the handshake exchanged it.
func (c *Client) GetTheirPwVerkey(handle uint32) (string, error) {
	return c.field(handle, func(rec *connectionstore.Record) string { return rec.TheirVerKey })
}

// GetSourceID returns the caller's identifier of the connection.
func (c *Client) GetSourceID(handle uint32) (string, error) {
	return c.field(handle, func(rec *connectionstore.Record) string { return rec.SourceID })
}

func (c *Client) field(handle uint32, get func(rec *connectionstore.Record) string) (string, error) {
	rec, err := c.registry.Get(handle)
	if err != nil {
		return "", err
	}

	return get(rec), nil
}

// GetMessages returns the unread messages of the connection, keyed by agency uid.
func (c *Client) GetMessages(ctx context.Context, handle uint32) (map[string]*messaging.Item, error) {
	return c.messages.GetMessages(ctx, handle)
}

// GetMessageByID returns one message of the connection.
func (c *Client) GetMessageByID(ctx context.Context, handle uint32, uid string) (*messaging.Item, error) {
	return c.messages.GetMessageByID(ctx, handle, uid)
}

// UpdateMessageStatus sets the agency status of a message of the connection.
func (c *Client) UpdateMessageStatus(ctx context.Context, handle uint32, uid string, status agency.Status) error {
	return c.messages.UpdateMessageStatus(ctx, handle, uid, status)
}

// DownloadMessages returns the messages of every connection matching filter.
func (c *Client) DownloadMessages(ctx context.Context, filter *messaging.Filter) ([]*messaging.Batch, error) {
	return c.messages.DownloadMessages(ctx, filter)
}

// Serialize returns the versioned JSON form of the connection.
func (c *Client) Serialize(handle uint32) ([]byte, error) {
	return c.registry.Serialize(handle)
}

// Deserialize restores a serialized connection under a new handle.
func (c *Client) Deserialize(data []byte) (uint32, error) {
	return c.registry.Deserialize(data)
}

// Restore registers the last recorded state of the connection created with sourceID under a new handle.
// It needs a framework created with aries.WithConnectionRecorder.
func (c *Client) Restore(sourceID string) (uint32, error) {
	return c.registry.Restore(sourceID)
}

// Release frees the handle.
func (c *Client) Release(handle uint32) error {
	return c.registry.Delete(handle)
}

// ReleaseAll frees every handle.
func (c *Client) ReleaseAll() {
	c.registry.ReleaseAll()
}
