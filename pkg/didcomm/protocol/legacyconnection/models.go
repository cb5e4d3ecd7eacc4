/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection

import (
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-vcx-go/pkg/doc/did"
)

const (
	// LegacyConnection connection protocol.
	LegacyConnection = "legacyconnection"
	// PIURI is the connection protocol identifier URI.
	PIURI = "https://didcomm.org/connections/1.0"
	// InvitationMsgType defines the legacy-connection invite message type.
	InvitationMsgType = PIURI + "/invitation"
	// RequestMsgType defines the legacy-connection request message type.
	RequestMsgType = PIURI + "/request"
	// ResponseMsgType defines the legacy-connection response message type.
	ResponseMsgType = PIURI + "/response"
	// AckMsgType defines the legacy-connection ack message type.
	AckMsgType = "https://didcomm.org/notification/1.0/ack"
	// ProblemReportMsgType defines the connection protocol problem-report message type.
	ProblemReportMsgType = PIURI + "/problem_report"
)

// Invitation model
//
// Invitation defines Connection protocol invitation message
// https://github.com/hyperledger/aries-rfcs/tree/main/features/0160-connection-protocol#0-invitation-to-connect
type Invitation struct {
	// the Type of the connection invitation
	Type string `json:"@type,omitempty"`

	// the ID of the connection invitation
	ID string `json:"@id,omitempty"`

	// the Label of the connection invitation
	Label string `json:"label,omitempty"`

	// the RecipientKeys for the connection invitation
	RecipientKeys []string `json:"recipientKeys,omitempty"`

	// the Service endpoint of the connection invitation
	ServiceEndpoint string `json:"serviceEndpoint,omitempty"`

	// the RoutingKeys of the connection invitation
	RoutingKeys []string `json:"routingKeys,omitempty"`

	// the DID of the connection invitation
	DID string `json:"did,omitempty"`
}

// NewInvitation returns an invitation with the given id and the protocol's type.
func NewInvitation(id string) Invitation {
	return Invitation{Type: InvitationMsgType, ID: id}
}

// WithLabel returns a copy of the invitation with label set.
func (i Invitation) WithLabel(label string) Invitation {
	i.Label = label
	return i
}

// WithRecipientKeys returns a copy of the invitation with the recipient keys replaced.
func (i Invitation) WithRecipientKeys(keys ...string) Invitation {
	i.RecipientKeys = append([]string(nil), keys...)
	return i
}

// WithRoutingKeys returns a copy of the invitation with the routing keys replaced.
func (i Invitation) WithRoutingKeys(keys ...string) Invitation {
	i.RoutingKeys = append([]string(nil), keys...)
	return i
}

// WithServiceEndpoint returns a copy of the invitation with the endpoint set.
func (i Invitation) WithServiceEndpoint(endpoint string) Invitation {
	i.ServiceEndpoint = endpoint
	return i
}

// Copy returns a copy that shares no slices with i.
func (i *Invitation) Copy() *Invitation {
	if i == nil {
		return nil
	}

	c := i.WithRecipientKeys(i.RecipientKeys...)
	if i.RoutingKeys != nil {
		c = c.WithRoutingKeys(i.RoutingKeys...)
	}

	return &c
}

// Request defines a2a Connection request
// https://github.com/hyperledger/aries-rfcs/tree/main/features/0160-connection-protocol#1-connection-request
type Request struct {
	Type       string               `json:"@type,omitempty"`
	ID         string               `json:"@id,omitempty"`
	Label      string               `json:"label"`
	Thread     *decorator.Thread    `json:"~thread,omitempty"`
	Connection *Connection          `json:"connection,omitempty"`
	PleaseAck  *decorator.PleaseAck `json:"~please_ack,omitempty"`
}

// Response defines a2a Connection response
// https://github.com/hyperledger/aries-rfcs/tree/main/features/0160-connection-protocol#2-connection-response
type Response struct {
	Type                string               `json:"@type,omitempty"`
	ID                  string               `json:"@id,omitempty"`
	ConnectionSignature *ConnectionSignature `json:"connection~sig,omitempty"`
	Thread              *decorator.Thread    `json:"~thread,omitempty"`
	PleaseAck           *decorator.PleaseAck `json:"~please_ack,omitempty"`
}

// ConnectionSignature connection signature.
type ConnectionSignature struct {
	Type       string `json:"@type,omitempty"`
	Signature  string `json:"signature,omitempty"`
	SignedData string `json:"sig_data,omitempty"`
	SignVerKey string `json:"signer,omitempty"`
}

// Connection defines connection body of connection request.
type Connection struct {
	DID    string   `json:"DID,omitempty"`
	DIDDoc *did.Doc `json:"DIDDoc,omitempty"`
}
