/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package trustping holds the trust ping protocol messages.
package trustping

import "github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"

const (
	// PIURI is the trust ping protocol identifier URI.
	PIURI = "https://didcomm.org/trust_ping/1.0"
	// PingMsgType defines the ping message type.
	PingMsgType = PIURI + "/ping"
	// PingResponseMsgType defines the ping response message type.
	PingResponseMsgType = PIURI + "/ping_response"
)

// Ping https://github.com/hyperledger/aries-rfcs/tree/main/features/0048-trust-ping#messages
type Ping struct {
	Type              string            `json:"@type"`
	ID                string            `json:"@id"`
	ResponseRequested bool              `json:"response_requested"`
	Comment           string            `json:"comment,omitempty"`
	Thread            *decorator.Thread `json:"~thread,omitempty"`
}

// PingResponse answers a ping; its thid is the ping's id.
type PingResponse struct {
	Type    string            `json:"@type"`
	ID      string            `json:"@id"`
	Comment string            `json:"comment,omitempty"`
	Thread  *decorator.Thread `json:"~thread,omitempty"`
}

// NewPing returns a ping asking for a response.
func NewPing(id, comment string) Ping {
	return Ping{Type: PingMsgType, ID: id, ResponseRequested: true, Comment: comment}
}

// ThreadID is the id a response must reference.
func (p *Ping) ThreadID() string {
	if p.Thread != nil && p.Thread.ID != "" {
		return p.Thread.ID
	}

	return p.ID
}

// Respond builds the response to p with the given message id.
func (p *Ping) Respond(id string) PingResponse {
	return PingResponse{
		Type:   PingResponseMsgType,
		ID:     id,
		Thread: &decorator.Thread{ID: p.ThreadID()},
	}
}
