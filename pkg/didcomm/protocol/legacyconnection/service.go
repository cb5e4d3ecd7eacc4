/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/thread"
	connectionstore "github.com/hyperledger/aries-vcx-go/pkg/store/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
)

var logger = log.New("vcx/legacyconnection")

// KeyManager creates pairwise keys and signs and verifies with them.
type KeyManager interface {
	Signer
	Verifier
	// CreateKey returns a new pairwise DID and its base58 verkey.
	CreateKey() (string, string, error)
}

// provider contains dependencies for the connection protocol.
type provider interface {
	ConnectionRegistry() *connectionstore.Registry
	KeyManager() KeyManager
	OutboundDispatcher() dispatcher.Outbound
}

// stateContext is what the states need to execute.
type stateContext struct {
	keys               KeyManager
	outboundDispatcher dispatcher.Outbound
	label              string
	serviceEndpoint    string
	routingKeys        []string
	policy             thread.Policy
	newID              func() string
}

// Opt configures the connection Service.
type Opt func(sc *stateContext)

// WithLabel sets the label sent in invitations and requests.
func WithLabel(label string) Opt {
	return func(sc *stateContext) {
		sc.label = label
	}
}

// WithServiceEndpoint sets the agency endpoint advertised in invitations and DID docs.
func WithServiceEndpoint(endpoint string) Opt {
	return func(sc *stateContext) {
		sc.serviceEndpoint = endpoint
	}
}

// WithRoutingKeys sets the routing keys advertised in invitations and DID docs.
func WithRoutingKeys(keys ...string) Opt {
	return func(sc *stateContext) {
		sc.routingKeys = append([]string(nil), keys...)
	}
}

// WithOrderingPolicy sets how inbound thread orders are validated.
func WithOrderingPolicy(policy thread.Policy) Opt {
	return func(sc *stateContext) {
		sc.policy = policy
	}
}

// Service drives connections in the registry through the connection protocol.
type Service struct {
	registry *connectionstore.Registry
	sc       *stateContext
}

// New returns the connection protocol service.
func New(prov provider, opts ...Opt) (*Service, error) {
	if prov.ConnectionRegistry() == nil || prov.KeyManager() == nil || prov.OutboundDispatcher() == nil {
		return nil, errors.New("connection service requires a registry, a key manager and an outbound dispatcher")
	}

	sc := &stateContext{
		keys:               prov.KeyManager(),
		outboundDispatcher: prov.OutboundDispatcher(),
		policy:             thread.StrictlyIncreasing,
		newID:              func() string { return uuid.New().String() },
	}

	for _, opt := range opts {
		opt(sc)
	}

	return &Service{registry: prov.ConnectionRegistry(), sc: sc}, nil
}

// Name of the protocol.
func (s *Service) Name() string {
	return LegacyConnection
}

// Accept reports whether msgType belongs to the connection handshake.
func (s *Service) Accept(msgType string) bool {
	switch service.NormalizeType(msgType) {
	case InvitationMsgType, RequestMsgType, ResponseMsgType, AckMsgType, ProblemReportMsgType:
		return true
	default:
		return false
	}
}

// Connect starts the handshake of a Null connection. An inviter gets an Invitation, held until the caller
// shares it, and moves to Invited. An invitee sends a Request to the invitation's endpoint and moves to Requested.
func (s *Service) Connect(ctx context.Context, handle uint32) (connectionstore.State, error) {
	var next connectionstore.State

	err := s.registry.Update(handle, func(rec *connectionstore.Record) error {
		current, err := stateFromName(rec.State)
		if err != nil {
			return err
		}

		var (
			to     state
			action stateAction
		)

		if rec.Role == connectionstore.RoleInvitee {
			to = &requested{}
		} else {
			to = &invited{}
		}

		if !current.CanTransitionTo(to) {
			return fmt.Errorf("%w: invalid state transition: %s -> %s",
				vcxerror.ErrInvalidState, current.Name(), to.Name())
		}

		if rec.Role == connectionstore.RoleInvitee {
			action, err = s.sc.createConnectionRequest(ctx, rec)
		} else {
			err = s.sc.createInvitation(rec)
		}

		if err != nil {
			return err
		}

		if err = execute(action); err != nil {
			return err
		}

		rec.State = to.Name()
		next = rec.State

		return nil
	})
	if err != nil {
		return "", err
	}

	return next, nil
}

// HandleInbound applies an inbound message to the connection behind handle and returns its state.
// The connection is left unchanged when the message is rejected or a send fails.
func (s *Service) HandleInbound(ctx context.Context, handle uint32, msg service.DIDCommMsgMap) (
	connectionstore.State, error) {
	var next connectionstore.State

	err := s.registry.Update(handle, func(rec *connectionstore.Record) error {
		current, err := stateFromName(rec.State)
		if err != nil {
			return err
		}

		switch current.Name() {
		case connectionstore.StateNull:
			return fmt.Errorf("%w: connection %q has not started the handshake", vcxerror.ErrInvalidState,
				rec.SourceID)
		case connectionstore.StateCompleted:
			next = rec.State

			return s.sc.acceptMessage(msg, rec)
		}

		if msg.Type() == ProblemReportMsgType && msg.ThreadID() == rec.RequestID {
			return fmt.Errorf("%w: counterparty reported a problem on thread %q", vcxerror.ErrInvalidState,
				rec.RequestID)
		}

		if err = s.handle(ctx, current, msg, rec); err != nil {
			return err
		}

		next = rec.State

		return nil
	})
	if err != nil {
		return "", err
	}

	return next, nil
}

func (s *Service) handle(ctx context.Context, current state, msg service.DIDCommMsgMap,
	rec *connectionstore.Record) error {
	next := stateFromMsgType(msg.Type())

	if !current.CanTransitionTo(next) {
		return fmt.Errorf("%w: invalid state transition: %s -> %s on %s",
			vcxerror.ErrInvalidState, current.Name(), next.Name(), msg.Type())
	}

	for !isNoOp(next) {
		followup, action, err := next.ExecuteInbound(ctx, msg, rec, s.sc)
		if err != nil {
			return fmt.Errorf("failed to execute state %s: %w", next.Name(), err)
		}

		if err = execute(action); err != nil {
			return err
		}

		logger.Debugf("connection %q: %s -> %s", rec.SourceID, rec.State, next.Name())

		rec.State = next.Name()
		next = followup
	}

	return nil
}

// acceptMessage takes any message on a Completed connection. Messages on the handshake thread have their
// order checked.
func (sc *stateContext) acceptMessage(msg service.DIDCommMsgMap, rec *connectionstore.Record) error {
	if msg.ThreadID() != rec.RequestID {
		return nil
	}

	return sc.checkOrder(msg, rec)
}

func execute(action stateAction) error {
	if action == nil {
		return nil
	}

	if err := action(); err != nil {
		if errors.Is(err, vcxerror.ErrTransport) {
			return err
		}

		return fmt.Errorf("%w: %s", vcxerror.ErrTransport, err)
	}

	return nil
}

func isNoOp(s state) bool {
	_, ok := s.(*noOp)
	return ok
}
