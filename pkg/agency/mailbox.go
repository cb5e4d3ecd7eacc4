/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package agency

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"
	spistorage "github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/packer/legacy/authcrypt"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
)

const (
	// Namespace is the mailbox store name.
	Namespace = "agency"

	tagRecipient = "recipient"
	tagStatus    = "status"
)

var logger = log.New("vcx/agency")

// Mailbox is an in-process relay holding envelopes in spi storage, one record per recipient key.
type Mailbox struct {
	msgStore  spistorage.Store
	inboxLock sync.Mutex
	now       func() time.Time
	lastAdded time.Time
}

// NewMailbox opens the mailbox store.
func NewMailbox(p spistorage.Provider) (*Mailbox, error) {
	store, err := p.OpenStore(Namespace)
	if err != nil {
		return nil, errors.Wrapf(err, "open store %s", Namespace)
	}

	err = p.SetStoreConfig(Namespace, spistorage.StoreConfiguration{TagNames: []string{tagRecipient, tagStatus}})
	if err != nil {
		return nil, errors.Wrapf(err, "set store config %s", Namespace)
	}

	return &Mailbox{msgStore: store, now: time.Now}, nil
}

// Send files the envelope for every recipient key named in its header. The endpoint and
// routing keys of dest are not used; the mailbox is its own endpoint.
func (m *Mailbox) Send(ctx context.Context, envelope []byte, _ *service.Destination) error {
	_, err := m.Deliver(ctx, envelope)

	return err
}

// Deliver files the envelope and returns the uids assigned to it, one per recipient.
func (m *Mailbox) Deliver(ctx context.Context, envelope []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(vcxerror.ErrTransport, "deliver: %s", err)
	}

	recipients, err := authcrypt.RecipientKIDs(envelope)
	if err != nil {
		return nil, errors.Wrapf(vcxerror.ErrDecode, "deliver: %s", err)
	}

	if len(recipients) == 0 {
		return nil, errors.Wrap(vcxerror.ErrDecode, "deliver: envelope has no recipients")
	}

	m.inboxLock.Lock()
	defer m.inboxLock.Unlock()

	uids := make([]string, 0, len(recipients))

	for _, recipient := range recipients {
		msg := &Message{
			UID:       uuid.New().String(),
			Recipient: recipient,
			Status:    StatusReceived,
			AddedTime: m.addedTime(),
			Payload:   envelope,
		}

		if err = m.put(msg); err != nil {
			return nil, err
		}

		logger.Debugf("filed message %s for %s", msg.UID, recipient)

		uids = append(uids, msg.UID)
	}

	return uids, nil
}

// addedTime returns a filing time later than any given before, so delivery order survives equal clock readings.
func (m *Mailbox) addedTime() time.Time {
	t := m.now().UTC().Round(0)
	if !t.After(m.lastAdded) {
		t = m.lastAdded.Add(time.Nanosecond)
	}

	m.lastAdded = t

	return t
}

// Poll returns the messages matching filter, oldest first.
func (m *Mailbox) Poll(ctx context.Context, filter *Filter) ([]*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(vcxerror.ErrTransport, "poll: %s", err)
	}

	if filter == nil {
		filter = &Filter{}
	}

	m.inboxLock.Lock()
	defer m.inboxLock.Unlock()

	var msgs []*Message

	for _, expression := range queries(filter) {
		found, err := m.query(expression, filter)
		if err != nil {
			return nil, err
		}

		msgs = append(msgs, found...)
	}

	slices.SortStableFunc(msgs, func(a, b *Message) int {
		return a.AddedTime.Compare(b.AddedTime)
	})

	return msgs, nil
}

// queries picks one tag query per recipient key, or a single match-all query.
func queries(filter *Filter) []string {
	if len(filter.RecipientKeys) == 0 {
		return []string{tagRecipient}
	}

	keys := append([]string(nil), filter.RecipientKeys...)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	expressions := make([]string, 0, len(keys))

	for _, k := range keys {
		expressions = append(expressions, tagRecipient+":"+k)
	}

	return expressions
}

func (m *Mailbox) query(expression string, filter *Filter) ([]*Message, error) {
	iter, err := m.msgStore.Query(expression)
	if err != nil {
		return nil, errors.Wrapf(vcxerror.ErrTransport, "query %s: %s", expression, err)
	}

	defer spistorage.Close(iter, logger)

	var msgs []*Message

	for {
		ok, err := iter.Next()
		if err != nil {
			return nil, errors.Wrapf(vcxerror.ErrTransport, "iterate %s: %s", expression, err)
		}

		if !ok {
			break
		}

		raw, err := iter.Value()
		if err != nil {
			return nil, errors.Wrapf(vcxerror.ErrTransport, "read %s: %s", expression, err)
		}

		msg := &Message{}
		if err = json.Unmarshal(raw, msg); err != nil {
			return nil, errors.Wrapf(vcxerror.ErrTransport, "decode stored message: %s", err)
		}

		if filter.Match(msg) {
			msgs = append(msgs, msg)
		}
	}

	return msgs, nil
}

// UpdateStatus sets the status of a held message.
func (m *Mailbox) UpdateStatus(ctx context.Context, uid string, status Status) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(vcxerror.ErrTransport, "update status: %s", err)
	}

	m.inboxLock.Lock()
	defer m.inboxLock.Unlock()

	raw, err := m.msgStore.Get(uid)
	if errors.Is(err, spistorage.ErrDataNotFound) {
		return errors.Wrapf(vcxerror.ErrNotFound, "message %s", uid)
	}

	if err != nil {
		return errors.Wrapf(vcxerror.ErrTransport, "get message %s: %s", uid, err)
	}

	msg := &Message{}
	if err = json.Unmarshal(raw, msg); err != nil {
		return errors.Wrapf(vcxerror.ErrTransport, "decode stored message: %s", err)
	}

	msg.Status = status

	return m.put(msg)
}

func (m *Mailbox) put(msg *Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}

	err = m.msgStore.Put(msg.UID, raw,
		spistorage.Tag{Name: tagRecipient, Value: msg.Recipient},
		spistorage.Tag{Name: tagStatus, Value: string(msg.Status)})
	if err != nil {
		return errors.Wrapf(vcxerror.ErrTransport, "store message %s: %s", msg.UID, err)
	}

	return nil
}
