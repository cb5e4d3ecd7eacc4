/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package inviteaction

import "github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"

// InviteMsgType is the invite-action invite message type.
const InviteMsgType = "https://didcomm.org/invite-action/0.9/invite"

// Invite asks the counterparty to take the action named by the goal code.
type Invite struct {
	Type      string               `json:"@type"`
	ID        string               `json:"@id"`
	GoalCode  string               `json:"goal_code"`
	Thread    *decorator.Thread    `json:"~thread,omitempty"`
	PleaseAck *decorator.PleaseAck `json:"~please_ack,omitempty"`
}

// NewInvite returns an invite with the given id and no goal code.
func NewInvite(id string) Invite {
	return Invite{Type: InviteMsgType, ID: id}
}

// SetGoalCode returns a copy of the invite with the goal code set.
func (i Invite) SetGoalCode(code string) Invite {
	i.GoalCode = code
	return i
}

// RequestAck returns a copy of the invite asking for an ack on the given events.
func (i Invite) RequestAck(on ...string) Invite {
	if len(on) == 0 {
		on = []string{decorator.PleaseAckOnReceipt}
	}

	i.PleaseAck = &decorator.PleaseAck{On: append([]string(nil), on...)}

	return i
}
