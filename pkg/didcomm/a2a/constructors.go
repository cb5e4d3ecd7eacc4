/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package a2a

import (
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/model"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/messaging/service/basic"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/inviteaction"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/legacyconnection"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/trustping"
)

// FromInvitation wraps an invitation.
func FromInvitation(v *legacyconnection.Invitation) *Message {
	return &Message{Kind: KindInvitation, Invitation: v}
}

// FromRequest wraps a connection request.
func FromRequest(v *legacyconnection.Request) *Message {
	return &Message{Kind: KindRequest, Request: v}
}

// FromResponse wraps a connection response.
func FromResponse(v *legacyconnection.Response) *Message {
	return &Message{Kind: KindResponse, Response: v}
}

// FromAck wraps an ack.
func FromAck(v *model.Ack) *Message {
	return &Message{Kind: KindAck, Ack: v}
}

// FromProblemReport wraps a problem report.
func FromProblemReport(v *model.ProblemReport) *Message {
	return &Message{Kind: KindProblemReport, ProblemReport: v}
}

// FromBasicMessage wraps a basic message.
func FromBasicMessage(v *basic.Message) *Message {
	return &Message{Kind: KindBasicMessage, BasicMessage: v}
}

// FromInvite wraps an invite-action invite.
func FromInvite(v *inviteaction.Invite) *Message {
	return &Message{Kind: KindInvite, Invite: v}
}

// FromPing wraps a trust ping.
func FromPing(v *trustping.Ping) *Message {
	return &Message{Kind: KindPing, Ping: v}
}

// FromPingResponse wraps a trust ping response.
func FromPingResponse(v *trustping.PingResponse) *Message {
	return &Message{Kind: KindPingResponse, PingResponse: v}
}

// FromGeneric wraps a message of an unmodelled type.
func FromGeneric(v *Generic) *Message {
	return &Message{Kind: KindUnknown, Generic: v}
}
