/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package messaging reads the messages the agency holds for established connections.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-vcx-go/pkg/agency"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/a2a"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/thread"
	connectionstore "github.com/hyperledger/aries-vcx-go/pkg/store/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
)

var logger = log.New("vcx/messaging")

type provider interface {
	ConnectionRegistry() *connectionstore.Registry
	Relay() agency.Client
	Packager() transport.Packager
	OrderingPolicy() thread.Policy
}

// Item is a relay message unpacked and classified for a connection.
// Err is set, wrapping vcxerror.ErrDecode, when the envelope could not be opened or its payload decoded,
// and wrapping vcxerror.ErrOrderingAnomaly when a message on the connection thread is out of order.
type Item struct {
	UID          string
	Status       agency.Status
	SenderVerKey string
	Payload      json.RawMessage
	Message      *a2a.Message
	Err          error
}

// Batch holds the messages of one connection.
type Batch struct {
	Handle      uint32
	PairwiseDID string
	Items       []*Item
}

// Filter selects messages across connections. Empty fields match everything.
type Filter struct {
	PairwiseDIDs []string
	UIDs         []string
	Statuses     []agency.Status
}

// Service reads and updates relay messages addressed to the pairwise keys of registry connections.
type Service struct {
	registry *connectionstore.Registry
	relay    agency.Client
	packager transport.Packager
	policy   thread.Policy
}

// New returns the message service.
func New(prov provider) (*Service, error) {
	if prov.ConnectionRegistry() == nil || prov.Relay() == nil || prov.Packager() == nil {
		return nil, errors.New("message service requires a registry, a relay and a packager")
	}

	return &Service{
		registry: prov.ConnectionRegistry(),
		relay:    prov.Relay(),
		packager: prov.Packager(),
		policy:   prov.OrderingPolicy(),
	}, nil
}

// Received returns the messages of the connection that have not been reviewed yet, oldest first.
func (s *Service) Received(ctx context.Context, handle uint32) ([]*Item, error) {
	rec, err := s.registry.Get(handle)
	if err != nil {
		return nil, err
	}

	return s.fetch(ctx, rec, &agency.Filter{Statuses: []agency.Status{agency.StatusReceived}})
}

// GetMessages returns the messages of the connection that have not been reviewed yet, keyed by uid.
func (s *Service) GetMessages(ctx context.Context, handle uint32) (map[string]*Item, error) {
	items, err := s.Received(ctx, handle)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*Item, len(items))
	for _, item := range items {
		result[item.UID] = item
	}

	return result, nil
}

// GetMessageByID returns one message of the connection.
func (s *Service) GetMessageByID(ctx context.Context, handle uint32, uid string) (*Item, error) {
	rec, err := s.registry.Get(handle)
	if err != nil {
		return nil, err
	}

	items, err := s.fetch(ctx, rec, &agency.Filter{UIDs: []string{uid}})
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: message %s for connection %q", vcxerror.ErrNotFound, uid, rec.SourceID)
	}

	if items[0].Err != nil {
		return nil, items[0].Err
	}

	return items[0], nil
}

// UpdateMessageStatus sets the relay status of a message addressed to the connection.
// Reviewing or accepting a received message on the connection thread records its sender order.
func (s *Service) UpdateMessageStatus(ctx context.Context, handle uint32, uid string, status agency.Status) error {
	rec, err := s.registry.Get(handle)
	if err != nil {
		return err
	}

	items, err := s.fetch(ctx, rec, &agency.Filter{UIDs: []string{uid}})
	if err != nil {
		return err
	}

	if len(items) == 0 {
		return fmt.Errorf("%w: message %s for connection %q", vcxerror.ErrNotFound, uid, rec.SourceID)
	}

	if err = s.relay.UpdateStatus(ctx, uid, status); err != nil {
		return err
	}

	if status != agency.StatusReviewed && status != agency.StatusAccepted {
		return nil
	}

	return s.recordOrder(handle, items[0])
}

// recordOrder commits the sender order of a consumed message to the connection's tracker.
// A message whose order was already recorded, or is out of order, leaves the tracker as it is.
func (s *Service) recordOrder(handle uint32, item *Item) error {
	if item.Err != nil || item.Status != agency.StatusReceived {
		return nil
	}

	err := s.registry.Update(handle, func(rec *connectionstore.Record) error {
		if !ordered(rec, item) {
			return errNotOrdered
		}

		if rec.Thread == nil {
			rec.Thread = thread.New(rec.RequestID, s.policy)
		}

		return rec.Thread.Check(rec.TheirDID, item.Message.Thread())
	})
	if errors.Is(err, errNotOrdered) || errors.Is(err, vcxerror.ErrOrderingAnomaly) {
		return nil
	}

	return err
}

// DownloadMessages returns one batch per connection with a pairwise key, in handle order.
// Failures to open individual messages are reported on their items and do not abort the download.
func (s *Service) DownloadMessages(ctx context.Context, filter *Filter) ([]*Batch, error) {
	if filter == nil {
		filter = &Filter{}
	}

	var batches []*Batch

	for _, handle := range s.registry.Handles() {
		rec, err := s.registry.Get(handle)
		if errors.Is(err, vcxerror.ErrInvalidHandle) {
			// released since Handles
			continue
		}

		if err != nil {
			return nil, err
		}

		if rec.PairwiseVerKey == "" {
			continue
		}

		if len(filter.PairwiseDIDs) > 0 && !slices.Contains(filter.PairwiseDIDs, rec.PairwiseDID) {
			continue
		}

		items, err := s.fetch(ctx, rec, &agency.Filter{UIDs: filter.UIDs, Statuses: filter.Statuses})
		if err != nil {
			return nil, err
		}

		batches = append(batches, &Batch{Handle: handle, PairwiseDID: rec.PairwiseDID, Items: items})
	}

	return batches, nil
}

func (s *Service) fetch(ctx context.Context, rec *connectionstore.Record, filter *agency.Filter) ([]*Item, error) {
	if rec.PairwiseVerKey == "" {
		return nil, errNoKey(rec)
	}

	filter.RecipientKeys = []string{rec.PairwiseVerKey}

	msgs, err := s.relay.Poll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("poll messages for connection %q: %w", rec.SourceID, err)
	}

	items := make([]*Item, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, s.open(m, rec))
	}

	s.checkOrder(rec, items)

	return items, nil
}

// checkOrder flags received messages on the connection thread whose sender order is out of sequence.
// Items are checked oldest first against a copy of the connection's tracker; nothing is recorded.
func (s *Service) checkOrder(rec *connectionstore.Record, items []*Item) {
	tracker := rec.Thread.Copy()
	if tracker == nil {
		tracker = thread.New(rec.RequestID, s.policy)
	}

	for _, item := range items {
		if item.Err != nil || item.Status != agency.StatusReceived || !ordered(rec, item) {
			continue
		}

		if err := tracker.Check(rec.TheirDID, item.Message.Thread()); err != nil {
			item.Err = fmt.Errorf("message %s: %w", item.UID, err)
			logger.Warnf("connection %q: %s", rec.SourceID, item.Err)
		}
	}
}

// ordered reports whether item is an application message on the thread of a completed connection.
// Handshake messages are ordered by the connection protocol.
func ordered(rec *connectionstore.Record, item *Item) bool {
	if rec.State != connectionstore.StateCompleted || rec.RequestID == "" || item.Message == nil {
		return false
	}

	switch item.Message.Kind {
	case a2a.KindInvitation, a2a.KindRequest, a2a.KindResponse, a2a.KindAck, a2a.KindProblemReport:
		return false
	}

	return item.Message.ThreadID() == rec.RequestID
}

func (s *Service) open(m *agency.Message, rec *connectionstore.Record) *Item {
	item := &Item{UID: m.UID, Status: m.Status}

	env, err := s.packager.UnpackMessage(m.Payload)
	if err != nil {
		item.Err = fmt.Errorf("%w: unpack message %s: %s", vcxerror.ErrDecode, m.UID, err)
		logger.Warnf("connection %q: %s", rec.SourceID, item.Err)

		return item
	}

	item.SenderVerKey = env.FromVerKey
	item.Payload = env.Message

	if rec.TheirVerKey != "" && env.FromVerKey != rec.TheirVerKey {
		item.Err = fmt.Errorf("%w: message %s was not sent by the counterparty", vcxerror.ErrDecode, m.UID)
		logger.Warnf("connection %q: %s", rec.SourceID, item.Err)

		return item
	}

	msg, err := a2a.Decode(env.Message)
	if err != nil {
		item.Err = fmt.Errorf("message %s: %w", m.UID, err)
		logger.Warnf("connection %q: %s", rec.SourceID, item.Err)

		return item
	}

	item.Message = msg

	return item
}

var errNotOrdered = errors.New("message is not ordered on the connection thread")

func errNoKey(rec *connectionstore.Record) error {
	return fmt.Errorf("%w: connection %q has no pairwise key", vcxerror.ErrInvalidState, rec.SourceID)
}
