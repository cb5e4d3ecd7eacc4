/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/agency"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	commontransport "github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
)

var logger = log.New("vcx/dispatcher")

// Outbound sends messages to a destination through the relay.
type Outbound interface {
	Send(ctx context.Context, msg interface{}, senderVerKey string, des *service.Destination) error
}

// provider interface for outbound ctx.
type provider interface {
	Packager() commontransport.Packager
	Relay() agency.Client
}

// OutboundDispatcher dispatch msgs to destination.
type OutboundDispatcher struct {
	packager commontransport.Packager
	relay    agency.Client
}

// NewOutbound return new dispatcher outbound instance.
func NewOutbound(prov provider) (*OutboundDispatcher, error) {
	if prov.Packager() == nil {
		return nil, errors.New("outbound dispatcher requires a packager")
	}

	if prov.Relay() == nil {
		return nil, errors.New("outbound dispatcher requires a relay client")
	}

	return &OutboundDispatcher{
		packager: prov.Packager(),
		relay:    prov.Relay(),
	}, nil
}

// Send packs msg from senderVerKey to the destination's recipient keys and hands the envelope to the relay.
// A []byte msg is sent as is, anything else is marshalled to JSON.
func (o *OutboundDispatcher) Send(ctx context.Context, msg interface{}, senderVerKey string,
	des *service.Destination) error {
	if des == nil || len(des.RecipientKeys) == 0 {
		return fmt.Errorf("outboundDispatcher.Send: no recipient keys for destination")
	}

	req, ok := msg.([]byte)
	if !ok {
		var err error

		req, err = json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed marshal to bytes: %w", err)
		}
	}

	packedMsg, err := o.packager.PackMessage(
		&commontransport.Envelope{Message: req, FromVerKey: senderVerKey, ToVerKeys: des.RecipientKeys})
	if err != nil {
		return fmt.Errorf("%w: failed to pack msg: %s", vcxerror.ErrTransport, err)
	}

	if len(des.RoutingKeys) > 0 {
		logger.Debugf("destination %s has routing keys, sending directly to the relay", des.ServiceEndpoint)
	}

	if err = o.relay.Send(ctx, packedMsg, des); err != nil {
		return fmt.Errorf("outboundDispatcher.Send: %w", err)
	}

	return nil
}
