// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package replay implements the Sphinx replay tag cache.
package replay

import (
	"sync"
	"time"

	"github.com/katzenpost/hpqc/rand"
	"github.com/yawning/bloom"

	"github.com/sahith-narahari/nym/core/worker"
)

// Entries are kept in two generations of bloom filter, each covering the
// replay window.  Probing both and inserting into the current one gives a
// remembered span of at least one window and at most two, and rotation
// discards old tags in O(1) without tracking timestamps.
const (
	filterMln2  = 29 // 2^29 bits, 64 MiB per filter
	filterP     = 0.001
	minInterval = time.Second
)

// Cache is a rotating probabilistic replay tag cache.
type Cache struct {
	worker.Worker
	sync.Mutex

	window time.Duration

	cur  *bloom.Filter
	prev *bloom.Filter
}

// TestAndSet returns true iff the tag has been seen within the replay
// window, remembering it as a side effect.
func (c *Cache) TestAndSet(tag []byte) bool {
	c.Lock()
	defer c.Unlock()

	if c.prev.TestAndSet(tag) {
		return true
	}
	return c.cur.TestAndSet(tag)
}

func (c *Cache) rotateWorker() {
	interval := c.window
	if interval < minInterval {
		interval = minInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.HaltCh():
			return
		case <-t.C:
		}
		f, err := newFilter()
		if err != nil {
			// Allocation of a fresh filter failed; keep the old
			// generations rather than forgetting tags.
			continue
		}
		c.Lock()
		c.prev = c.cur
		c.cur = f
		c.Unlock()
	}
}

func newFilter() (*bloom.Filter, error) {
	// 64 MiB, 37,240,820 entries.
	return bloom.New(rand.Reader, filterMln2, filterP)
}

// New constructs a Cache remembering tags for at least window.
func New(window time.Duration) (*Cache, error) {
	cur, err := newFilter()
	if err != nil {
		return nil, err
	}
	prev, err := newFilter()
	if err != nil {
		return nil, err
	}

	c := &Cache{
		window: window,
		cur:    cur,
		prev:   prev,
	}
	c.Go(c.rotateWorker)
	return c, nil
}
