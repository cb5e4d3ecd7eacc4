/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/model"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/thread"
	"github.com/hyperledger/aries-vcx-go/pkg/doc/did"
	connectionstore "github.com/hyperledger/aries-vcx-go/pkg/store/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
)

const stateNameNoop = "noop"

// state action for network call.
type stateAction func() error

// The connection protocol's state.
type state interface {
	// Name of this state.
	Name() connectionstore.State

	// CanTransitionTo Whether this state allows transitioning into the next state.
	CanTransitionTo(next state) bool

	// ExecuteInbound this state on rec, returning a followup state to be immediately executed as well
	// and the network call to make before the transition is committed.
	// The 'noOp' state should be returned if the state has no followup.
	ExecuteInbound(ctx context.Context, msg service.DIDCommMsgMap, rec *connectionstore.Record,
		sc *stateContext) (followup state, action stateAction, err error)
}

// Returns the state towards which the protocol will transition to if the msgType is processed.
// Any other message can only complete a Responded connection.
func stateFromMsgType(msgType string) state {
	switch msgType {
	case RequestMsgType:
		return &requested{}
	case ResponseMsgType:
		return &responded{}
	default:
		return &completed{}
	}
}

// Returns the state representing the name.
func stateFromName(name connectionstore.State) (state, error) {
	switch name {
	case connectionstore.StateNull:
		return &null{}, nil
	case connectionstore.StateInvited:
		return &invited{}, nil
	case connectionstore.StateRequested:
		return &requested{}, nil
	case connectionstore.StateResponded:
		return &responded{}, nil
	case connectionstore.StateCompleted:
		return &completed{}, nil
	default:
		return nil, fmt.Errorf("%w: invalid state name %s", vcxerror.ErrInvalidState, name)
	}
}

type noOp struct{}

func (s *noOp) Name() connectionstore.State {
	return stateNameNoop
}

func (s *noOp) CanTransitionTo(_ state) bool {
	return false
}

func (s *noOp) ExecuteInbound(context.Context, service.DIDCommMsgMap, *connectionstore.Record,
	*stateContext) (state, stateAction, error) {
	return nil, nil, errors.New("cannot execute no-op")
}

// null state.
type null struct{}

func (s *null) Name() connectionstore.State {
	return connectionstore.StateNull
}

func (s *null) CanTransitionTo(next state) bool {
	return connectionstore.StateInvited == next.Name() || connectionstore.StateRequested == next.Name()
}

func (s *null) ExecuteInbound(context.Context, service.DIDCommMsgMap, *connectionstore.Record,
	*stateContext) (state, stateAction, error) {
	return &noOp{}, nil, nil
}

// invited state.
type invited struct{}

func (s *invited) Name() connectionstore.State {
	return connectionstore.StateInvited
}

func (s *invited) CanTransitionTo(next state) bool {
	return connectionstore.StateRequested == next.Name()
}

func (s *invited) ExecuteInbound(_ context.Context, msg service.DIDCommMsgMap, _ *connectionstore.Record,
	_ *stateContext) (state, stateAction, error) {
	return nil, nil, fmt.Errorf("%w: illegal msg type %s for state %s", vcxerror.ErrInvalidState, msg.Type(), s.Name())
}

// requested state.
type requested struct{}

func (s *requested) Name() connectionstore.State {
	return connectionstore.StateRequested
}

func (s *requested) CanTransitionTo(next state) bool {
	return connectionstore.StateResponded == next.Name()
}

func (s *requested) ExecuteInbound(_ context.Context, msg service.DIDCommMsgMap, rec *connectionstore.Record,
	sc *stateContext) (state, stateAction, error) {
	if msg.Type() != RequestMsgType {
		return nil, nil, fmt.Errorf("%w: illegal msg type %s for state %s",
			vcxerror.ErrInvalidState, msg.Type(), s.Name())
	}

	request := &Request{}

	if err := msg.Decode(request); err != nil {
		return nil, nil, fmt.Errorf("%w: JSON unmarshalling of request: %s", vcxerror.ErrDecode, err)
	}

	if err := sc.handleInboundRequest(request, rec); err != nil {
		return nil, nil, fmt.Errorf("handle inbound request: %w", err)
	}

	return &responded{}, nil, nil
}

// responded state.
type responded struct{}

func (s *responded) Name() connectionstore.State {
	return connectionstore.StateResponded
}

func (s *responded) CanTransitionTo(next state) bool {
	return connectionstore.StateCompleted == next.Name()
}

func (s *responded) ExecuteInbound(ctx context.Context, msg service.DIDCommMsgMap, rec *connectionstore.Record,
	sc *stateContext) (state, stateAction, error) {
	switch msg.Type() {
	case RequestMsgType:
		action, err := sc.sendResponse(ctx, rec)
		if err != nil {
			return nil, nil, fmt.Errorf("send response: %w", err)
		}

		return &noOp{}, action, nil
	case ResponseMsgType:
		response := &Response{}

		if err := msg.Decode(response); err != nil {
			return nil, nil, fmt.Errorf("%w: JSON unmarshalling of response: %s", vcxerror.ErrDecode, err)
		}

		if err := sc.handleInboundResponse(response, rec); err != nil {
			return nil, nil, fmt.Errorf("handle inbound response: %w", err)
		}

		return &completed{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: illegal msg type %s for state %s",
			vcxerror.ErrInvalidState, msg.Type(), s.Name())
	}
}

// completed state.
type completed struct{}

func (s *completed) Name() connectionstore.State {
	return connectionstore.StateCompleted
}

func (s *completed) CanTransitionTo(_ state) bool {
	return false
}

func (s *completed) ExecuteInbound(ctx context.Context, msg service.DIDCommMsgMap, rec *connectionstore.Record,
	sc *stateContext) (state, stateAction, error) {
	if msg.Type() == ResponseMsgType && rec.Role == connectionstore.RoleInvitee {
		action, err := sc.sendAck(ctx, rec)
		if err != nil {
			return nil, nil, fmt.Errorf("send ack: %w", err)
		}

		return &noOp{}, action, nil
	}

	if msg.ThreadID() != rec.RequestID {
		return nil, nil, fmt.Errorf("%w: message thread %q does not match request %q",
			vcxerror.ErrInvalidState, msg.ThreadID(), rec.RequestID)
	}

	if err := sc.checkOrder(msg, rec); err != nil {
		return nil, nil, err
	}

	return &noOp{}, nil, nil
}

func (sc *stateContext) createInvitation(rec *connectionstore.Record) error {
	pwDID, verKey, err := sc.keys.CreateKey()
	if err != nil {
		return fmt.Errorf("%w: create pairwise key: %s", vcxerror.ErrTransport, err)
	}

	invitation := NewInvitation(sc.newID()).
		WithLabel(sc.label).
		WithRecipientKeys(verKey).
		WithServiceEndpoint(sc.serviceEndpoint)

	if len(sc.routingKeys) > 0 {
		invitation = invitation.WithRoutingKeys(sc.routingKeys...)
	}

	if err = rec.SetInvitation(&invitation); err != nil {
		return err
	}

	rec.Role = connectionstore.RoleInviter
	rec.PairwiseDID = pwDID
	rec.PairwiseVerKey = verKey
	rec.ServiceEndpoint = sc.serviceEndpoint

	return nil
}

func (sc *stateContext) createConnectionRequest(ctx context.Context, rec *connectionstore.Record) (stateAction,
	error) {
	invitation := &Invitation{}

	if err := rec.DecodeInvitation(invitation); err != nil {
		return nil, fmt.Errorf("%w: stored invitation: %s", vcxerror.ErrDecode, err)
	}

	destination, err := getDestination(invitation)
	if err != nil {
		return nil, err
	}

	pwDID, verKey, err := sc.keys.CreateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: create pairwise key: %s", vcxerror.ErrTransport, err)
	}

	myDIDDoc := did.NewDoc(pwDID, verKey, sc.serviceEndpoint, sc.routingKeys)

	request := &Request{
		Type:  RequestMsgType,
		ID:    sc.newID(),
		Label: sc.label,
		Thread: &decorator.Thread{
			PID: invitation.ID,
		},
		Connection: &Connection{
			DID:    myDIDDoc.ID,
			DIDDoc: myDIDDoc,
		},
	}

	rec.PairwiseDID = pwDID
	rec.PairwiseVerKey = verKey
	rec.ServiceEndpoint = sc.serviceEndpoint
	rec.RequestID = request.ID
	rec.Thread = thread.New(request.ID, sc.policy)

	return func() error {
		return sc.outboundDispatcher.Send(ctx, request, verKey, destination)
	}, nil
}

func (sc *stateContext) handleInboundRequest(request *Request, rec *connectionstore.Record) error {
	logger.Debugf("handling request: %s", request.ID)

	invitation := &Invitation{}

	if err := rec.DecodeInvitation(invitation); err != nil {
		return fmt.Errorf("%w: stored invitation: %s", vcxerror.ErrDecode, err)
	}

	if request.Thread != nil && request.Thread.PID != "" && request.Thread.PID != invitation.ID {
		return fmt.Errorf("%w: request parent thread %q does not match invitation %q",
			vcxerror.ErrInvalidState, request.Thread.PID, invitation.ID)
	}

	if request.ID == "" {
		return fmt.Errorf("%w: request has no @id", vcxerror.ErrDecode)
	}

	if request.Connection == nil || request.Connection.DIDDoc == nil {
		return fmt.Errorf("%w: missing connection field", vcxerror.ErrDecode)
	}

	theirVerKey, err := did.RecipientKey(request.Connection.DIDDoc)
	if err != nil {
		return fmt.Errorf("%w: requester did doc: %s", vcxerror.ErrDecode, err)
	}

	theirDID := request.Connection.DID
	if theirDID == "" {
		theirDID = request.Connection.DIDDoc.ID
	}

	rec.TheirDID = theirDID
	rec.TheirVerKey = theirVerKey
	rec.TheirDIDDoc = request.Connection.DIDDoc
	rec.TheirLabel = request.Label
	rec.RequestID = request.ID
	rec.Thread = thread.New(request.ID, sc.policy)

	return rec.Thread.Check(theirDID, request.Thread)
}

func (sc *stateContext) sendResponse(ctx context.Context, rec *connectionstore.Record) (stateAction, error) {
	destination, err := service.CreateDestination(rec.TheirDIDDoc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", vcxerror.ErrDecode, err)
	}

	myDIDDoc := did.NewDoc(rec.PairwiseDID, rec.PairwiseVerKey, rec.ServiceEndpoint, sc.routingKeys)

	// the invitation key signs; it is the pairwise key of the inviter
	connectionSignature, err := SignConnection(sc.keys, &Connection{DID: myDIDDoc.ID, DIDDoc: myDIDDoc},
		rec.PairwiseVerKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", vcxerror.ErrTransport, err)
	}

	response := &Response{
		Type:                ResponseMsgType,
		ID:                  sc.newID(),
		Thread:              rec.Thread.Attach(),
		ConnectionSignature: connectionSignature,
		PleaseAck: &decorator.PleaseAck{
			On: []string{decorator.PleaseAckOnReceipt},
		},
	}

	return func() error {
		return sc.outboundDispatcher.Send(ctx, response, rec.PairwiseVerKey, destination)
	}, nil
}

func (sc *stateContext) handleInboundResponse(response *Response, rec *connectionstore.Record) error {
	if response.Thread == nil || response.Thread.ID != rec.RequestID {
		return fmt.Errorf("%w: response does not answer request %q", vcxerror.ErrInvalidState, rec.RequestID)
	}

	invitation := &Invitation{}

	if err := rec.DecodeInvitation(invitation); err != nil {
		return fmt.Errorf("%w: stored invitation: %s", vcxerror.ErrDecode, err)
	}

	invitationKeys, err := service.NormalizeKeys(invitation.RecipientKeys)
	if err != nil || len(invitationKeys) == 0 {
		return fmt.Errorf("%w: invitation has no usable recipient key", vcxerror.ErrDecode)
	}

	conn, err := VerifyConnection(sc.keys, response.ConnectionSignature, invitationKeys[0])
	if err != nil {
		return err
	}

	if conn.DIDDoc == nil {
		return fmt.Errorf("%w: signed connection has no did doc", vcxerror.ErrSignatureVerificationFailed)
	}

	theirVerKey, err := did.RecipientKey(conn.DIDDoc)
	if err != nil {
		return fmt.Errorf("%w: responder did doc: %s", vcxerror.ErrDecode, err)
	}

	theirDID := conn.DID
	if theirDID == "" {
		theirDID = conn.DIDDoc.ID
	}

	if err = rec.Thread.Check(theirDID, response.Thread); err != nil {
		return err
	}

	rec.TheirDID = theirDID
	rec.TheirVerKey = theirVerKey
	rec.TheirDIDDoc = conn.DIDDoc

	return nil
}

func (sc *stateContext) sendAck(ctx context.Context, rec *connectionstore.Record) (stateAction, error) {
	destination, err := service.CreateDestination(rec.TheirDIDDoc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", vcxerror.ErrDecode, err)
	}

	ack := &model.Ack{
		Type:   AckMsgType,
		ID:     sc.newID(),
		Status: model.AckStatusOK,
		Thread: rec.Thread.Attach(),
	}

	return func() error {
		return sc.outboundDispatcher.Send(ctx, ack, rec.PairwiseVerKey, destination)
	}, nil
}

func (sc *stateContext) checkOrder(msg service.DIDCommMsgMap, rec *connectionstore.Record) error {
	th, err := msg.Thread()
	if err != nil {
		return fmt.Errorf("%w: %s", vcxerror.ErrDecode, err)
	}

	if rec.Thread == nil {
		rec.Thread = thread.New(rec.RequestID, sc.policy)
	}

	return rec.Thread.Check(rec.TheirDID, th)
}

func getDestination(invitation *Invitation) (*service.Destination, error) {
	recipientKeys, err := service.NormalizeKeys(invitation.RecipientKeys)
	if err != nil {
		return nil, fmt.Errorf("%w: invitation recipient keys: %s", vcxerror.ErrDecode, err)
	}

	if len(recipientKeys) == 0 {
		return nil, fmt.Errorf("%w: invitation has no recipient keys", vcxerror.ErrDecode)
	}

	routingKeys, err := service.NormalizeKeys(invitation.RoutingKeys)
	if err != nil {
		return nil, fmt.Errorf("%w: invitation routing keys: %s", vcxerror.ErrDecode, err)
	}

	return &service.Destination{
		RecipientKeys:   recipientKeys,
		ServiceEndpoint: invitation.ServiceEndpoint,
		RoutingKeys:     routingKeys,
	}, nil
}
