/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package agency is the store-and-forward relay boundary: envelopes are filed per recipient
// key and polled by the agent that owns the key.
package agency

import (
	"context"
	"time"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
)

// Status is a relay message status code.
type Status string

// Message status codes.
const (
	StatusCreated  Status = "MS-101"
	StatusSent     Status = "MS-102"
	StatusReceived Status = "MS-103"
	StatusAccepted Status = "MS-104"
	StatusRejected Status = "MS-105"
	StatusReviewed Status = "MS-106"
)

// Message is an envelope held by the relay for one recipient key.
type Message struct {
	UID       string    `json:"uid"`
	Recipient string    `json:"recipient"`
	Status    Status    `json:"statusCode"`
	AddedTime time.Time `json:"added_time"`
	Payload   []byte    `json:"payload"`
}

// Filter selects relay messages. Empty fields match everything; set fields must all match.
type Filter struct {
	RecipientKeys []string `json:"recipientKeys,omitempty"`
	UIDs          []string `json:"uids,omitempty"`
	Statuses      []Status `json:"statuses,omitempty"`
}

// Match reports whether m passes the filter.
func (f *Filter) Match(m *Message) bool {
	return matchAny(f.RecipientKeys, m.Recipient) && matchAny(f.UIDs, m.UID) && matchAny(f.Statuses, m.Status)
}

func matchAny[T comparable](set []T, v T) bool {
	if len(set) == 0 {
		return true
	}

	for _, s := range set {
		if s == v {
			return true
		}
	}

	return false
}

// Client is the relay as seen by an agent. Failures wrap vcxerror.ErrTransport.
type Client interface {
	// Send delivers an envelope to the destination's endpoint.
	Send(ctx context.Context, envelope []byte, dest *service.Destination) error
	// Poll returns the messages matching filter, oldest first.
	Poll(ctx context.Context, filter *Filter) ([]*Message, error)
	// UpdateStatus sets the status of a held message.
	UpdateStatus(ctx context.Context, uid string, status Status) error
}
