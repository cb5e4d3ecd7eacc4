/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package model

import "github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"

// ProblemReport problem report definition.
type ProblemReport struct {
	Type        string            `json:"@type"`
	ID          string            `json:"@id"`
	Description Code              `json:"description"`
	Comment     string            `json:"comment,omitempty"`
	Thread      *decorator.Thread `json:"~thread,omitempty"`
}

// Code represents a problem report code.
type Code struct {
	Code string `json:"code"`
	EN   string `json:"en,omitempty"`
}
