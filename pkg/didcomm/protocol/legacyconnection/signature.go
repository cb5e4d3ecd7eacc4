/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/aries-vcx-go/pkg/doc/did"
	jsonutil "github.com/hyperledger/aries-vcx-go/pkg/doc/util/json"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
)

const (
	signatureType       = "https://didcomm.org/signature/1.0/ed25519Sha512_single"
	legacySignatureType = "did:sov:BzCbsNYhMrjHiqZDTUASHg;spec/signature/1.0/ed25519Sha512_single"
	timestampLength     = 8
)

// Signer signs data with the private key behind a base58 verkey.
type Signer interface {
	Sign(data []byte, verKey string) ([]byte, error)
}

// Verifier checks an ed25519 signature against a base58 verkey.
type Verifier interface {
	Verify(signature, data []byte, verKey string) error
}

// UnmarshalJSON decodes the connection block, tolerating loosely typed DID documents.
func (c *Connection) UnmarshalJSON(b []byte) error {
	raw := struct {
		DID    string                 `json:"DID"`
		DIDDoc map[string]interface{} `json:"DIDDoc"`
	}{}

	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	c.DID = raw.DID
	c.DIDDoc = nil

	if raw.DIDDoc != nil {
		doc, err := did.DecodeDocument(raw.DIDDoc)
		if err != nil {
			return err
		}

		c.DIDDoc = doc
	}

	return nil
}

// SignConnection produces the connection~sig block: the signed data is an 8 byte big-endian unix
// timestamp followed by the connection block encoded with sorted keys.
func SignConnection(signer Signer, connection *Connection, verKey string) (*ConnectionSignature, error) {
	return signConnectionAt(signer, connection, verKey, time.Now())
}

func signConnectionAt(signer Signer, connection *Connection, verKey string,
	now time.Time) (*ConnectionSignature, error) {
	connAttributeBytes, err := jsonutil.Canonical(connection)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal connection : %w", err)
	}

	timestampBuf := make([]byte, timestampLength)
	binary.BigEndian.PutUint64(timestampBuf, uint64(now.Unix()))

	concatenateSignData := append(timestampBuf, connAttributeBytes...)

	signature, err := signer.Sign(concatenateSignData, verKey)
	if err != nil {
		return nil, fmt.Errorf("signing data: %w", err)
	}

	return &ConnectionSignature{
		Type:       signatureType,
		SignedData: base64.URLEncoding.EncodeToString(concatenateSignData),
		SignVerKey: verKey,
		Signature:  base64.URLEncoding.EncodeToString(signature),
	}, nil
}

// VerifyConnection verifies connSignature against expectedVerKey and returns the embedded connection.
// Every failure wraps vcxerror.ErrSignatureVerificationFailed.
func VerifyConnection(verifier Verifier, connSignature *ConnectionSignature, expectedVerKey string) (*Connection,
	error) {
	conn, err := verifyConnection(verifier, connSignature, expectedVerKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", vcxerror.ErrSignatureVerificationFailed, err.Error())
	}

	return conn, nil
}

func verifyConnection(verifier Verifier, connSignature *ConnectionSignature, expectedVerKey string) (*Connection,
	error) {
	if connSignature == nil {
		return nil, fmt.Errorf("missing connection signature")
	}

	if connSignature.Type != signatureType && connSignature.Type != legacySignatureType {
		return nil, fmt.Errorf("unsupported signature type %q", connSignature.Type)
	}

	// the signer must be the key the counterparty was reached with.
	if connSignature.SignVerKey != expectedVerKey {
		return nil, fmt.Errorf("signer %s does not match expected key %s", connSignature.SignVerKey, expectedVerKey)
	}

	sigData, err := decodeBase64URL(connSignature.SignedData)
	if err != nil {
		return nil, fmt.Errorf("decode signature data: %w", err)
	}

	if len(sigData) == 0 {
		return nil, fmt.Errorf("missing or invalid signature data")
	}

	signature, err := decodeBase64URL(connSignature.Signature)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}

	err = verifier.Verify(signature, sigData, expectedVerKey)
	if err != nil {
		return nil, fmt.Errorf("verify signature: %w", err)
	}

	// trimming the timestamp - only taking out connection attribute bytes
	if len(sigData) <= timestampLength {
		return nil, fmt.Errorf("missing connection attribute bytes")
	}

	conn := &Connection{}

	err = json.Unmarshal(sigData[timestampLength:], conn)
	if err != nil {
		return nil, fmt.Errorf("JSON unmarshalling of connection: %w", err)
	}

	return conn, nil
}

// SignedAt returns the timestamp carried in the signed data.
func (s *ConnectionSignature) SignedAt() (time.Time, error) {
	sigData, err := decodeBase64URL(s.SignedData)
	if err != nil {
		return time.Time{}, err
	}

	if len(sigData) < timestampLength {
		return time.Time{}, fmt.Errorf("signed data too short")
	}

	return time.Unix(int64(binary.BigEndian.Uint64(sigData[:timestampLength])), 0), nil
}

// some agents strip the base64 padding.
func decodeBase64URL(s string) ([]byte, error) {
	b, err := base64.URLEncoding.DecodeString(s)
	if err == nil {
		return b, nil
	}

	return base64.RawURLEncoding.DecodeString(s)
}
