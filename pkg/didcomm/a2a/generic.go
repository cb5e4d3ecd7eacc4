/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package a2a

import (
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
	jsonutil "github.com/hyperledger/aries-vcx-go/pkg/doc/util/json"
)

// Generic is a message of a type this package does not model. Fields outside the
// common ones are kept in Fields and written back on encode.
type Generic struct {
	Type      string                 `json:"@type"`
	ID        string                 `json:"@id,omitempty"`
	Thread    *decorator.Thread      `json:"~thread,omitempty"`
	PleaseAck *decorator.PleaseAck   `json:"~please_ack,omitempty"`
	Fields    map[string]interface{} `json:"-"`
}

type rawGeneric Generic

// MarshalJSON writes the common fields merged with Fields.
func (g Generic) MarshalJSON() ([]byte, error) {
	return jsonutil.MarshalWithCustomFields(rawGeneric(g), g.Fields)
}

// UnmarshalJSON reads the common fields and collects everything else into Fields.
func (g *Generic) UnmarshalJSON(data []byte) error {
	cf := map[string]interface{}{}

	raw := rawGeneric{}
	if err := jsonutil.UnmarshalWithCustomFields(data, &raw, cf); err != nil {
		return err
	}

	*g = Generic(raw)

	if len(cf) > 0 {
		g.Fields = cf
	}

	return nil
}
