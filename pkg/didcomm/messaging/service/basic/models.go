/*
 *
 * Copyright SecureKey Technologies Inc. All Rights Reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 * /
 *
 */

package basic

import (
	"time"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
)

// MessageType is the basic message protocol message type.
const MessageType = "https://didcomm.org/basicmessage/1.0/message"

// Message is message model for basic message protocol
// Reference:
//  https://github.com/hyperledger/aries-rfcs/tree/master/features/0095-basic-message#reference
type Message struct {
	ID        string               `json:"@id"`
	Type      string               `json:"@type"`
	L10n      *decorator.L10n      `json:"~l10n,omitempty"`
	SentTime  time.Time            `json:"sent_time"`
	Content   string               `json:"content"`
	Thread    *decorator.Thread    `json:"~thread,omitempty"`
	PleaseAck *decorator.PleaseAck `json:"~please_ack,omitempty"`
}

// NewMessage returns a basic message with the given id and content, sent now.
func NewMessage(id, content string) Message {
	return Message{
		ID:       id,
		Type:     MessageType,
		L10n:     &decorator.L10n{Locale: "en"},
		SentTime: time.Now().UTC().Truncate(time.Second),
		Content:  content,
	}
}

// WithThread returns a copy of the message with the thread decorator set.
func (m Message) WithThread(thread *decorator.Thread) Message {
	m.Thread = thread.Copy()
	return m
}
