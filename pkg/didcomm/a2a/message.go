/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package a2a classifies agent-to-agent messages by their @type into a closed set of kinds.
package a2a

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/model"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/messaging/service/basic"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/inviteaction"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/legacyconnection"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/trustping"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
)

// Kind is the message kind.
type Kind int

// Message kinds.
const (
	KindUnknown Kind = iota
	KindInvitation
	KindRequest
	KindResponse
	KindAck
	KindProblemReport
	KindBasicMessage
	KindInvite
	KindPing
	KindPingResponse
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindInvitation:    "invitation",
	KindRequest:       "request",
	KindResponse:      "response",
	KindAck:           "ack",
	KindProblemReport: "problem-report",
	KindBasicMessage:  "basic-message",
	KindInvite:        "invite",
	KindPing:          "ping",
	KindPingResponse:  "ping-response",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

var kindByType = map[string]Kind{
	legacyconnection.InvitationMsgType:    KindInvitation,
	legacyconnection.RequestMsgType:       KindRequest,
	legacyconnection.ResponseMsgType:      KindResponse,
	legacyconnection.AckMsgType:           KindAck,
	legacyconnection.ProblemReportMsgType: KindProblemReport,
	basic.MessageType:                     KindBasicMessage,
	inviteaction.InviteMsgType:            KindInvite,
	trustping.PingMsgType:                 KindPing,
	trustping.PingResponseMsgType:         KindPingResponse,
}

// Message is a decoded message. Exactly one of the variant fields matching Kind is set.
type Message struct {
	Kind Kind

	Invitation    *legacyconnection.Invitation
	Request       *legacyconnection.Request
	Response      *legacyconnection.Response
	Ack           *model.Ack
	ProblemReport *model.ProblemReport
	BasicMessage  *basic.Message
	Invite        *inviteaction.Invite
	Ping          *trustping.Ping
	PingResponse  *trustping.PingResponse
	Generic       *Generic
}

// NormalizeType maps the legacy did:sov message family prefix to https://didcomm.org/.
func NormalizeType(t string) string {
	return service.NormalizeType(t)
}

// KindOf returns the kind of a message type.
func KindOf(msgType string) Kind {
	return kindByType[NormalizeType(msgType)]
}

// Decode classifies payload by @type and unmarshals it into the matching variant.
// Payloads of an unrecognized type decode into Generic.
func Decode(payload []byte) (*Message, error) {
	var header struct {
		Type string `json:"@type"`
	}

	if err := json.Unmarshal(payload, &header); err != nil {
		return nil, fmt.Errorf("%w: %s", vcxerror.ErrDecode, err)
	}

	if header.Type == "" {
		return nil, fmt.Errorf("%w: message has no @type", vcxerror.ErrDecode)
	}

	msg := &Message{Kind: KindOf(header.Type)}

	var target interface{}

	switch msg.Kind {
	case KindInvitation:
		msg.Invitation = &legacyconnection.Invitation{}
		target = msg.Invitation
	case KindRequest:
		msg.Request = &legacyconnection.Request{}
		target = msg.Request
	case KindResponse:
		msg.Response = &legacyconnection.Response{}
		target = msg.Response
	case KindAck:
		msg.Ack = &model.Ack{}
		target = msg.Ack
	case KindProblemReport:
		msg.ProblemReport = &model.ProblemReport{}
		target = msg.ProblemReport
	case KindBasicMessage:
		msg.BasicMessage = &basic.Message{}
		target = msg.BasicMessage
	case KindInvite:
		msg.Invite = &inviteaction.Invite{}
		target = msg.Invite
	case KindPing:
		msg.Ping = &trustping.Ping{}
		target = msg.Ping
	case KindPingResponse:
		msg.PingResponse = &trustping.PingResponse{}
		target = msg.PingResponse
	default:
		msg.Generic = &Generic{}
		target = msg.Generic
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return nil, fmt.Errorf("%w: %s message: %s", vcxerror.ErrDecode, msg.Kind, err)
	}

	msg.normalize()

	return msg, nil
}

// Encode marshals the variant selected by Kind.
func Encode(msg *Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", vcxerror.ErrDecode)
	}

	v := msg.variant()
	if v == nil {
		return nil, fmt.Errorf("%w: %s message has no body", vcxerror.ErrDecode, msg.Kind)
	}

	return json.Marshal(v)
}

func (m *Message) variant() interface{} {
	switch m.Kind {
	case KindInvitation:
		return nilOr(m.Invitation)
	case KindRequest:
		return nilOr(m.Request)
	case KindResponse:
		return nilOr(m.Response)
	case KindAck:
		return nilOr(m.Ack)
	case KindProblemReport:
		return nilOr(m.ProblemReport)
	case KindBasicMessage:
		return nilOr(m.BasicMessage)
	case KindInvite:
		return nilOr(m.Invite)
	case KindPing:
		return nilOr(m.Ping)
	case KindPingResponse:
		return nilOr(m.PingResponse)
	default:
		return nilOr(m.Generic)
	}
}

// nilOr turns a typed nil pointer into an untyped nil.
func nilOr[T any](v *T) interface{} {
	if v == nil {
		return nil
	}

	return v
}

func (m *Message) normalize() {
	switch m.Kind {
	case KindInvitation:
		m.Invitation.Type = NormalizeType(m.Invitation.Type)
	case KindRequest:
		m.Request.Type = NormalizeType(m.Request.Type)
	case KindResponse:
		m.Response.Type = NormalizeType(m.Response.Type)
	case KindAck:
		m.Ack.Type = NormalizeType(m.Ack.Type)
	case KindProblemReport:
		m.ProblemReport.Type = NormalizeType(m.ProblemReport.Type)
	case KindBasicMessage:
		m.BasicMessage.Type = NormalizeType(m.BasicMessage.Type)
	case KindInvite:
		m.Invite.Type = NormalizeType(m.Invite.Type)
	case KindPing:
		m.Ping.Type = NormalizeType(m.Ping.Type)
	case KindPingResponse:
		m.PingResponse.Type = NormalizeType(m.PingResponse.Type)
	}
}

// ID returns the message @id.
func (m *Message) ID() string {
	id, _, _ := m.header()

	return id
}

// Thread returns the ~thread decorator, nil when absent. Invitations never carry one.
func (m *Message) Thread() *decorator.Thread {
	_, th, _ := m.header()

	return th
}

// ThreadID returns the thid, or the message id for a message that starts its own thread.
func (m *Message) ThreadID() string {
	if th := m.Thread(); th != nil && th.ID != "" {
		return th.ID
	}

	return m.ID()
}

// PleaseAck returns the ~please_ack decorator, nil when absent.
func (m *Message) PleaseAck() *decorator.PleaseAck {
	_, _, ack := m.header()

	return ack
}

// header returns the decorators shared by all kinds, zero values when the variant of Kind is unset.
func (m *Message) header() (string, *decorator.Thread, *decorator.PleaseAck) { //nolint:gocyclo
	switch m.Kind {
	case KindInvitation:
		if m.Invitation != nil {
			return m.Invitation.ID, nil, nil
		}
	case KindRequest:
		if m.Request != nil {
			return m.Request.ID, m.Request.Thread, m.Request.PleaseAck
		}
	case KindResponse:
		if m.Response != nil {
			return m.Response.ID, m.Response.Thread, m.Response.PleaseAck
		}
	case KindAck:
		if m.Ack != nil {
			return m.Ack.ID, m.Ack.Thread, m.Ack.PleaseAck
		}
	case KindProblemReport:
		if m.ProblemReport != nil {
			return m.ProblemReport.ID, m.ProblemReport.Thread, nil
		}
	case KindBasicMessage:
		if m.BasicMessage != nil {
			return m.BasicMessage.ID, m.BasicMessage.Thread, m.BasicMessage.PleaseAck
		}
	case KindInvite:
		if m.Invite != nil {
			return m.Invite.ID, m.Invite.Thread, m.Invite.PleaseAck
		}
	case KindPing:
		if m.Ping != nil {
			return m.Ping.ID, m.Ping.Thread, nil
		}
	case KindPingResponse:
		if m.PingResponse != nil {
			return m.PingResponse.ID, m.PingResponse.Thread, nil
		}
	default:
		if m.Generic != nil {
			return m.Generic.ID, m.Generic.Thread, m.Generic.PleaseAck
		}
	}

	return "", nil, nil
}
