/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vcx enables Go developers to connect agents with the Aries RFC 0160 connection protocol and to
// exchange messages over the connections through a relaying agency.
//
// Packages for end developer usage
//
// pkg/framework/aries: The main package of the framework. This package enables creation of context based on
// provider options. This context is used by the client package listed below.
//
// pkg/client/connection: Creates connections, drives them through the handshake and exchanges messages over them.
//
// cmd/vcx-agency: The agency server that holds packed messages until their recipients poll for them.
//
// Basic workflow
//
//      1) Instantiate an aries instance using provider options.
//      2) Create a context using your aries instance.
//      3) Create a connection client using its New func, passing the context.
//      4) Create, connect and update connections, then send and read messages over them.
//      5) Call aries.Close() to release resources.
package vcx
