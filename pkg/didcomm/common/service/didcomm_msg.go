/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
)

const (
	jsonID        = "@id"
	jsonType      = "@type"
	jsonThread    = "~thread"
	jsonPleaseAck = "~please_ack"

	sovPrefix     = "did:sov:BzCbsNYhMrjHiqZDTUASHg;spec/"
	didcommPrefix = "https://didcomm.org/"
)

// ErrNoType is returned when a message has no @type.
var ErrNoType = errors.New("message has no @type")

// DIDCommMsgMap is the generic representation of an inbound DIDComm v1 message.
type DIDCommMsgMap map[string]interface{}

// ParseDIDCommMsgMap returns a message map from raw JSON. The message must carry an @type.
func ParseDIDCommMsgMap(payload []byte) (DIDCommMsgMap, error) {
	var msg DIDCommMsgMap

	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("invalid payload data format: %w", err)
	}

	if msg.Type() == "" {
		return nil, ErrNoType
	}

	return msg, nil
}

// ID returns the message @id.
func (m DIDCommMsgMap) ID() string {
	return m.str(jsonID)
}

// Type returns the message @type with the legacy did:sov family prefix mapped to https://didcomm.org/.
func (m DIDCommMsgMap) Type() string {
	return NormalizeType(m.str(jsonType))
}

// NormalizeType maps the legacy did:sov message family prefix to https://didcomm.org/.
func NormalizeType(t string) string {
	if strings.HasPrefix(t, sovPrefix) {
		return didcommPrefix + strings.TrimPrefix(t, sovPrefix)
	}

	return t
}

// Thread decodes the ~thread decorator. A message without one returns nil.
func (m DIDCommMsgMap) Thread() (*decorator.Thread, error) {
	raw, ok := m[jsonThread]
	if !ok || raw == nil {
		return nil, nil
	}

	thread := &decorator.Thread{}
	if err := decodeJSONTagged(raw, thread); err != nil {
		return nil, fmt.Errorf("decode ~thread: %w", err)
	}

	return thread, nil
}

// ThreadID returns the thid, falling back to the message @id when no thread is attached.
func (m DIDCommMsgMap) ThreadID() string {
	thread, err := m.Thread()
	if err == nil && thread != nil && thread.ID != "" {
		return thread.ID
	}

	return m.ID()
}

// PleaseAck decodes the ~please_ack decorator. A message without one returns nil.
func (m DIDCommMsgMap) PleaseAck() (*decorator.PleaseAck, error) {
	raw, ok := m[jsonPleaseAck]
	if !ok || raw == nil {
		return nil, nil
	}

	ack := &decorator.PleaseAck{}
	if err := decodeJSONTagged(raw, ack); err != nil {
		return nil, fmt.Errorf("decode ~please_ack: %w", err)
	}

	return ack, nil
}

// Decode unmarshals the message into v through its JSON form, so custom unmarshalers on v apply.
func (m DIDCommMsgMap) Decode(v interface{}) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return json.Unmarshal(raw, v)
}

func (m DIDCommMsgMap) str(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}

	return ""
}

func decodeJSONTagged(input, result interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}
