/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package thread keeps the per-connection sender order and the orders received from each counterparty.
package thread

import (
	"fmt"

	"golang.org/x/exp/maps"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
)

// Policy decides which inbound orders count as anomalies.
type Policy int

const (
	// StrictlyIncreasing flags any order not greater than the last one received (replays and reordering).
	StrictlyIncreasing Policy = iota
	// NonDecreasing flags only orders lower than the last one received.
	NonDecreasing
)

func (p Policy) String() string {
	switch p {
	case StrictlyIncreasing:
		return "strictly-increasing"
	case NonDecreasing:
		return "non-decreasing"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Tracker is the causal-order state of one thread. The zero value is ready to use.
type Tracker struct {
	ThreadID       string         `json:"thid,omitempty"`
	SenderOrder    int            `json:"sender_order"`
	ReceivedOrders map[string]int `json:"received_orders,omitempty"`
	Policy         Policy         `json:"policy,omitempty"`
}

// New returns a tracker for thid.
func New(thid string, policy Policy) *Tracker {
	return &Tracker{ThreadID: thid, Policy: policy}
}

// Next advances and returns the sender order for the next outbound message. The first call returns 1.
func (t *Tracker) Next() int {
	t.SenderOrder++

	return t.SenderOrder
}

// Attach advances the sender order and returns the ~thread decorator for the next outbound message.
func (t *Tracker) Attach() *decorator.Thread {
	order := t.Next()

	th := &decorator.Thread{ID: t.ThreadID, SenderOrder: order}

	if len(t.ReceivedOrders) > 0 {
		th.ReceivedOrders = maps.Clone(t.ReceivedOrders)
	}

	return th
}

// Validate checks order from sender against the last order recorded for that sender and records it
// on success. An anomaly returns an error wrapping vcxerror.ErrOrderingAnomaly and records nothing.
func (t *Tracker) Validate(sender string, order int) error {
	last, seen := t.ReceivedOrders[sender]

	if seen {
		switch t.Policy {
		case NonDecreasing:
			if order < last {
				return fmt.Errorf("%w: order %d from %s is lower than %d", vcxerror.ErrOrderingAnomaly, order, sender, last)
			}
		default:
			if order <= last {
				return fmt.Errorf("%w: order %d from %s is not greater than %d", vcxerror.ErrOrderingAnomaly,
					order, sender, last)
			}
		}
	}

	if t.ReceivedOrders == nil {
		t.ReceivedOrders = map[string]int{}
	}

	t.ReceivedOrders[sender] = order

	return nil
}

// Check validates the ~thread decorator of an inbound message. Messages without a sender order
// carry no ordering information and are accepted without being recorded.
func (t *Tracker) Check(sender string, th *decorator.Thread) error {
	if th == nil || th.SenderOrder == 0 {
		return nil
	}

	return t.Validate(sender, th.SenderOrder)
}

// LastReceived returns the highest order recorded for sender.
func (t *Tracker) LastReceived(sender string) (int, bool) {
	order, ok := t.ReceivedOrders[sender]

	return order, ok
}

// Copy returns a deep copy of the tracker, nil safe.
func (t *Tracker) Copy() *Tracker {
	if t == nil {
		return nil
	}

	c := *t
	c.ReceivedOrders = maps.Clone(t.ReceivedOrders)

	return &c
}
