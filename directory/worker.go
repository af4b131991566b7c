// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package directory

import (
	"context"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/sahith-narahari/nym/core/pki"
	"github.com/sahith-narahari/nym/core/worker"
)

// Refresher periodically fetches the topology from the directory and swaps
// it into the given pki.Cache.
type Refresher struct {
	worker.Worker

	client   *Client
	cache    *pki.Cache
	interval time.Duration
	log      *logging.Logger
}

// NewRefresher creates and starts a topology refresh worker.
func NewRefresher(client *Client, cache *pki.Cache, interval time.Duration, log *logging.Logger) *Refresher {
	r := &Refresher{
		client:   client,
		cache:    cache,
		interval: interval,
		log:      log,
	}
	r.Go(r.worker)
	return r
}

func (r *Refresher) refreshOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	t, err := r.client.Topology(ctx)
	if err != nil {
		r.log.Warningf("Failed to fetch topology: %v", err)
		return
	}
	doc, err := t.Document()
	if err != nil {
		r.log.Warningf("Failed to parse topology: %v", err)
		return
	}
	if err = doc.Validate(); err != nil {
		// Keep serving the previous snapshot rather than replacing it
		// with an unusable one.
		r.log.Warningf("Ignoring unusable topology: %v", err)
		return
	}
	r.cache.Set(doc)
	r.log.Debugf("Topology refreshed: %d layer(s), %d provider(s)", len(doc.Topology), len(doc.Providers))
}

func (r *Refresher) worker() {
	r.refreshOnce()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.HaltCh():
			r.log.Debugf("Terminating gracefully.")
			return
		case <-ticker.C:
			r.refreshOnce()
		}
	}
}
