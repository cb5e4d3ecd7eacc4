/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package model

import "github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"

const (
	// AckStatusOK ack status for a successfully processed message.
	AckStatusOK = "OK"
	// AckStatusPending ack status for a message that is still being processed.
	AckStatusPending = "PENDING"
)

// Ack acknowledgement struct.
type Ack struct {
	Type      string               `json:"@type,omitempty"`
	ID        string               `json:"@id,omitempty"`
	Status    string               `json:"status,omitempty"`
	Thread    *decorator.Thread    `json:"~thread,omitempty"`
	PleaseAck *decorator.PleaseAck `json:"~please_ack,omitempty"`
}
