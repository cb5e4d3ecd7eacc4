/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package decorator

import "time"

const (
	// PleaseAckOnReceipt asks the recipient to ack as soon as the message is received.
	PleaseAckOnReceipt = "RECEIPT"
	// PleaseAckOnOutcome asks the recipient to ack once the message has been processed.
	PleaseAckOnOutcome = "OUTCOME"
)

// Thread thread data.
// https://github.com/hyperledger/aries-rfcs/tree/main/concepts/0008-message-id-and-threading
type Thread struct {
	ID             string         `json:"thid,omitempty"`
	PID            string         `json:"pthid,omitempty"`
	SenderOrder    int            `json:"sender_order,omitempty"`
	ReceivedOrders map[string]int `json:"received_orders,omitempty"`
}

// Copy returns a deep copy of the thread, nil safe.
func (t *Thread) Copy() *Thread {
	if t == nil {
		return nil
	}

	c := &Thread{ID: t.ID, PID: t.PID, SenderOrder: t.SenderOrder}

	if t.ReceivedOrders != nil {
		c.ReceivedOrders = make(map[string]int, len(t.ReceivedOrders))

		for k, v := range t.ReceivedOrders {
			c.ReceivedOrders[k] = v
		}
	}

	return c
}

// PleaseAck requests an acknowledgement from the recipient.
type PleaseAck struct {
	On []string `json:"on,omitempty"`
}

// L10n localization decorator.
type L10n struct {
	Locale string `json:"locale,omitempty"`
}

// Timing keeps expiration time.
type Timing struct {
	OutTime     time.Time `json:"out_time,omitempty"`
	ExpiresTime time.Time `json:"expires_time,omitempty"`
}
