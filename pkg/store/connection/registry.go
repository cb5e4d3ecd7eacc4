/*
 *
 * Copyright SecureKey Technologies Inc. All Rights Reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 * /
 *
 */

package connection

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerror"
)

const serializationVersion = "1.0"

var logger = log.New("vcx/store/connection")

type entry struct {
	mu       sync.Mutex
	rec      *Record
	released bool
}

// Registry owns every live connection record and hands out opaque handles for them.
// Handles start at 1 and are never reused during the registry's lifetime.
type Registry struct {
	mu       sync.RWMutex
	last     uint32
	entries  map[uint32]*entry
	recorder *Recorder
}

// RegistryOpt configures a Registry.
type RegistryOpt func(r *Registry)

// WithRecorder persists every committed record through rec.
func WithRecorder(rec *Recorder) RegistryOpt {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOpt) *Registry {
	r := &Registry{entries: map[uint32]*entry{}}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Create allocates a handle for a new Null connection.
func (r *Registry) Create(sourceID string) (uint32, error) {
	return r.add(NewRecord(sourceID))
}

// CreateWithInvitation allocates a handle for a Null invitee connection that has consumed invitation.
func (r *Registry) CreateWithInvitation(sourceID string, invitation interface{}) (uint32, error) {
	rec := NewRecord(sourceID)
	rec.Role = RoleInvitee

	if err := rec.SetInvitation(invitation); err != nil {
		return 0, err
	}

	return r.add(rec)
}

func (r *Registry) add(rec *Record) (uint32, error) {
	if err := r.persist(rec); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.last++
	rec.Handle = r.last
	r.entries[rec.Handle] = &entry{rec: rec}

	logger.Debugf("connection %q registered as handle %d in state %s", rec.SourceID, rec.Handle, rec.State)

	return rec.Handle, nil
}

func (r *Registry) lookup(handle uint32) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %d", vcxerror.ErrInvalidHandle, handle)
	}

	return e, nil
}

// Get returns a copy of the record behind handle.
func (r *Registry) Get(handle uint32) (*Record, error) {
	e, err := r.lookup(handle)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return nil, fmt.Errorf("%w: %d", vcxerror.ErrInvalidHandle, handle)
	}

	return e.rec.Clone(), nil
}

// IsValid reports whether handle refers to a live connection.
func (r *Registry) IsValid(handle uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[handle]

	return ok
}

// Update runs fn on a copy of the record and commits the copy only when fn succeeds.
// Updates of one handle are serialized; different handles do not block each other.
func (r *Registry) Update(handle uint32, fn func(rec *Record) error) error {
	e, err := r.lookup(handle)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return fmt.Errorf("%w: %d", vcxerror.ErrInvalidHandle, handle)
	}

	draft := e.rec.Clone()

	if err = fn(draft); err != nil {
		return err
	}

	if e.rec.TheirVerKey != "" && draft.TheirVerKey != e.rec.TheirVerKey {
		return fmt.Errorf("%w: counterparty verkey of handle %d is already set", vcxerror.ErrInvalidState, handle)
	}

	if !draft.State.Valid() {
		return fmt.Errorf("%w: unknown state %q", vcxerror.ErrInvalidState, draft.State)
	}

	draft.Handle = handle

	if err = r.persist(draft); err != nil {
		return err
	}

	if draft.State != e.rec.State {
		logger.Debugf("handle %d: %s -> %s", handle, e.rec.State, draft.State)
	}

	e.rec = draft

	return nil
}

// Delete releases handle. The handle is never handed out again.
func (r *Registry) Delete(handle uint32) error {
	r.mu.Lock()
	e, ok := r.entries[handle]
	delete(r.entries, handle)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", vcxerror.ErrInvalidHandle, handle)
	}

	// wait for a running Update and fail any that queued behind it
	e.mu.Lock()
	e.released = true
	e.mu.Unlock()

	return nil
}

// ReleaseAll releases every handle.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	released := r.entries
	r.entries = map[uint32]*entry{}
	r.mu.Unlock()

	for _, e := range released {
		e.mu.Lock()
		e.released = true
		e.mu.Unlock()
	}
}

// Handles returns the live handles in ascending order.
func (r *Registry) Handles() []uint32 {
	r.mu.RLock()
	handles := maps.Keys(r.entries)
	r.mu.RUnlock()

	slices.Sort(handles)

	return handles
}

type serialized struct {
	Version string  `json:"version"`
	Data    *Record `json:"data"`
}

// Serialize returns the versioned JSON form of the connection behind handle.
func (r *Registry) Serialize(handle uint32) ([]byte, error) {
	rec, err := r.Get(handle)
	if err != nil {
		return nil, err
	}

	return json.Marshal(&serialized{Version: serializationVersion, Data: rec})
}

// Deserialize registers a connection from its Serialize output under a new handle.
func (r *Registry) Deserialize(data []byte) (uint32, error) {
	s := &serialized{}

	if err := json.Unmarshal(data, s); err != nil {
		return 0, fmt.Errorf("%w: connection: %s", vcxerror.ErrDecode, err)
	}

	if s.Version != serializationVersion {
		return 0, fmt.Errorf("%w: unsupported connection version %q", vcxerror.ErrDecode, s.Version)
	}

	if s.Data == nil || !s.Data.State.Valid() {
		return 0, fmt.Errorf("%w: connection has no valid state", vcxerror.ErrDecode)
	}

	return r.add(s.Data)
}

// Restore registers the last persisted record of sourceID under a new handle.
func (r *Registry) Restore(sourceID string) (uint32, error) {
	if r.recorder == nil {
		return 0, fmt.Errorf("restore %q: registry has no recorder", sourceID)
	}

	rec, err := r.recorder.GetRecord(sourceID)
	if err != nil {
		return 0, err
	}

	return r.add(rec)
}

func (r *Registry) persist(rec *Record) error {
	if r.recorder == nil {
		return nil
	}

	if err := r.recorder.SaveRecord(rec); err != nil {
		return fmt.Errorf("%w: persist connection %q: %s", vcxerror.ErrTransport, rec.SourceID, err)
	}

	return nil
}
