// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package pki

import (
	"sync"
)

// Cache holds the most recent topology Document.  It is single writer (the
// directory refresh worker) and multi reader; readers always observe a
// complete snapshot, never a partially applied update.
type Cache struct {
	sync.RWMutex

	doc *Document
}

// Set atomically replaces the cached Document.  In-flight operations that
// hold a pointer to the previous snapshot continue against it unaffected.
func (c *Cache) Set(d *Document) {
	c.Lock()
	defer c.Unlock()
	c.doc = d
}

// Document returns the latest snapshot, or ErrNotYetAvailable if no
// topology has ever been loaded.  An empty network is represented by a
// present-but-unusable Document, not by a nil one.
func (c *Cache) Document() (*Document, error) {
	c.RLock()
	defer c.RUnlock()
	if c.doc == nil {
		return nil, ErrNotYetAvailable
	}
	return c.doc, nil
}

// NewCache creates an empty topology cache.
func NewCache() *Cache {
	return new(Cache)
}
