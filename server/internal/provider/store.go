// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package provider

import (
	"fmt"
	"path/filepath"

	"github.com/katzenpost/hpqc/rand"
	bolt "go.etcd.io/bbolt"
)

const (
	storeFile = "store.db"

	messageNameLength = 16
)

// store is the durable per-recipient message store.
type store struct {
	db *bolt.DB
}

// storeMessage persists msg under a fresh random name in the recipient's
// bucket.
func (s *store) storeMessage(recipient, msg []byte) error {
	var name [messageNameLength]byte
	if _, err := rand.Reader.Read(name[:]); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(recipient)
		if err != nil {
			return err
		}
		return bkt.Put(name[:], msg)
	})
}

// fetchMessages removes and returns up to limit stored messages for the
// recipient.  The order is arbitrary.
func (s *store) fetchMessages(recipient []byte, limit int) ([][]byte, error) {
	var msgs [][]byte
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(recipient)
		if bkt == nil {
			return nil
		}
		c := bkt.Cursor()
		var names [][]byte
		for k, v := c.First(); k != nil && len(msgs) < limit; k, v = c.Next() {
			msgs = append(msgs, append([]byte(nil), v...))
			names = append(names, append([]byte(nil), k...))
		}
		for _, name := range names {
			if err := bkt.Delete(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *store) close() {
	s.db.Close()
}

func newStore(dataDir string) (*store, error) {
	db, err := bolt.Open(filepath.Join(dataDir, storeFile), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: failed to open store: %v", err)
	}
	return &store{db: db}, nil
}
