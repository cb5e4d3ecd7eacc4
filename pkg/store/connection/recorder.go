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
	"errors"
	"fmt"
	"strings"

	"github.com/hyperledger/aries-framework-go/spi/storage"
)

const (
	// Namespace is namespace of connection store name.
	Namespace        = "connection"
	keyPattern       = "%s_%s"
	connIDKeyPrefix  = "conn"
	stateTagName     = "state"
	keySeparator     = "_"
	errMsgInvalidKey = "invalid key"
)

// KeyPrefix is prefix builder for storage keys.
type KeyPrefix func(...string) string

// Recorder persists connection records by source id.
type Recorder struct {
	store storage.Store
}

// NewRecorder returns new connection recorder.
func NewRecorder(p storage.Provider) (*Recorder, error) {
	store, err := p.OpenStore(Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to open permanent store to create new connection recorder: %w", err)
	}

	err = p.SetStoreConfig(Namespace, storage.StoreConfiguration{TagNames: []string{connIDKeyPrefix, stateTagName}})
	if err != nil {
		return nil, fmt.Errorf("failed to set store config in permanent store: %w", err)
	}

	return &Recorder{store: store}, nil
}

// SaveRecord saves the record under its source id, replacing any earlier version.
func (c *Recorder) SaveRecord(record *Record) error {
	if record.SourceID == "" {
		return errors.New(errMsgInvalidKey)
	}

	bytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("save connection record: %w", err)
	}

	return c.store.Put(getConnectionKeyPrefix()(record.SourceID), bytes,
		storage.Tag{Name: connIDKeyPrefix},
		storage.Tag{Name: stateTagName, Value: string(record.State)})
}

// GetRecord returns the last saved record of sourceID.
func (c *Recorder) GetRecord(sourceID string) (*Record, error) {
	if sourceID == "" {
		return nil, errors.New(errMsgInvalidKey)
	}

	bytes, err := c.store.Get(getConnectionKeyPrefix()(sourceID))
	if err != nil {
		return nil, fmt.Errorf("get connection record %q: %w", sourceID, err)
	}

	rec := &Record{}

	if err = json.Unmarshal(bytes, rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connection record: %w", err)
	}

	return rec, nil
}

// QueryRecords returns the saved records, all of them when no state is given.
func (c *Recorder) QueryRecords(states ...State) ([]*Record, error) {
	if len(states) == 0 {
		return c.query(connIDKeyPrefix)
	}

	var records []*Record

	for _, state := range states {
		recs, err := c.query(stateTagName + ":" + string(state))
		if err != nil {
			return nil, err
		}

		records = append(records, recs...)
	}

	return records, nil
}

// RemoveRecord deletes the saved record of sourceID.
func (c *Recorder) RemoveRecord(sourceID string) error {
	if sourceID == "" {
		return errors.New(errMsgInvalidKey)
	}

	return c.store.Delete(getConnectionKeyPrefix()(sourceID))
}

func (c *Recorder) query(expression string) ([]*Record, error) {
	itr, err := c.store.Query(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to query permanent store: %w", err)
	}

	defer storage.Close(itr, logger)

	var records []*Record

	more, err := itr.Next()
	if err != nil {
		return nil, fmt.Errorf("failed to get next set of data from permanent storage iterator: %w", err)
	}

	for more {
		value, err := itr.Value()
		if err != nil {
			return nil, fmt.Errorf("failed to get value from iterator: %w", err)
		}

		record := &Record{}

		if err = json.Unmarshal(value, record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connection record: %w", err)
		}

		records = append(records, record)

		more, err = itr.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to get next set of data from permanent storage iterator: %w", err)
		}
	}

	return records, nil
}

// getConnectionKeyPrefix key prefix for connection record persisted.
func getConnectionKeyPrefix() KeyPrefix {
	return func(key ...string) string {
		return fmt.Sprintf(keyPattern, connIDKeyPrefix, strings.Join(key, keySeparator))
	}
}
