/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package connection enables relationship between two agents via Connection RFC-0160 Protocol.
// Connections are addressed by handles. The connection request message is used to communicate the DID document
// of the invitee to the inviter using the provisional service information present in the invitation message.
// The connection response message is used to complete the connection and communicate the DID document of the
// inviter to the invitee. The invitee sends an ACK message to inviter to confirm the connection.
//
//  Basic Flow:
//  1) Prepare client context
//  2) Create client
//  3) Create a connection and Connect it to get an invitation (inviter)
//  4) Create a connection with the invitation and Connect it (invitee)
//  5) Call UpdateState on both sides until GetState reports completed
//  6) Use connection
//
package connection
