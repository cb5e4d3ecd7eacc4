/*
 *
 * Copyright SecureKey Technologies Inc. All Rights Reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 * /
 *
 */

package connection

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/thread"
	"github.com/hyperledger/aries-vcx-go/pkg/doc/did"
)

// State of a connection's handshake.
type State string

// Handshake states. Requested and Responded are distinct here but share a numeric code.
const (
	StateNull      State = "null"
	StateInvited   State = "invited"
	StateRequested State = "requested"
	StateResponded State = "responded"
	StateCompleted State = "completed"
)

// Numeric state codes reported to callers.
const (
	CodeNull      uint32 = 1
	CodeInvited   uint32 = 2
	CodeRequested uint32 = 3
	CodeResponded uint32 = 3
	CodeCompleted uint32 = 4
)

// Code returns the numeric code of the state, 0 for an unknown state.
func (s State) Code() uint32 {
	switch s {
	case StateNull:
		return CodeNull
	case StateInvited:
		return CodeInvited
	case StateRequested:
		return CodeRequested
	case StateResponded:
		return CodeResponded
	case StateCompleted:
		return CodeCompleted
	default:
		return 0
	}
}

// Valid reports whether s is one of the handshake states.
func (s State) Valid() bool {
	return s.Code() != 0
}

// Role of the local agent in the handshake.
type Role string

// Roles.
const (
	RoleInviter Role = "inviter"
	RoleInvitee Role = "invitee"
)

// Record contains the state of one pairwise connection.
type Record struct {
	// Handle is assigned by the registry and is not serialized.
	Handle   uint32 `json:"-"`
	SourceID string `json:"source_id"`
	State    State  `json:"state"`
	Role     Role   `json:"role,omitempty"`

	PairwiseDID    string `json:"pw_did,omitempty"`
	PairwiseVerKey string `json:"pw_verkey,omitempty"`

	TheirDID    string   `json:"their_pw_did,omitempty"`
	TheirVerKey string   `json:"their_pw_verkey,omitempty"`
	TheirDIDDoc *did.Doc `json:"their_did_doc,omitempty"`
	TheirLabel  string   `json:"their_label,omitempty"`

	// Invitation is the outstanding (inviter) or consumed (invitee) invitation, as received on the wire.
	Invitation      json.RawMessage `json:"invitation,omitempty"`
	ServiceEndpoint string          `json:"service_endpoint,omitempty"`
	RequestID       string          `json:"request_id,omitempty"`
	Thread          *thread.Tracker `json:"thread,omitempty"`
}

// Code returns the numeric state code reported for the record. An invitee holding a consumed invitation
// reports CodeInvited until it connects.
func (r *Record) Code() uint32 {
	if r.State == StateNull && r.Role == RoleInvitee && len(r.Invitation) > 0 {
		return CodeInvited
	}

	return r.State.Code()
}

// NewRecord creates a record in the Null state.
func NewRecord(sourceID string) *Record {
	return &Record{SourceID: sourceID, State: StateNull}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	c := *r

	if r.Invitation != nil {
		c.Invitation = append(json.RawMessage(nil), r.Invitation...)
	}

	if r.TheirDIDDoc != nil {
		c.TheirDIDDoc = r.TheirDIDDoc.Copy()
	}

	c.Thread = r.Thread.Copy()

	return &c
}

// DecodeInvitation unmarshals the stored invitation into target.
func (r *Record) DecodeInvitation(target interface{}) error {
	if len(r.Invitation) == 0 {
		return fmt.Errorf("connection %q has no invitation", r.SourceID)
	}

	return json.Unmarshal(r.Invitation, target)
}

// SetInvitation stores the wire form of invitation.
func (r *Record) SetInvitation(invitation interface{}) error {
	raw, err := json.Marshal(invitation)
	if err != nil {
		return fmt.Errorf("marshal invitation: %w", err)
	}

	r.Invitation = raw

	return nil
}
