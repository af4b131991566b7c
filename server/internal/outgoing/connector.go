// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package outgoing implements the mix server outgoing connection manager.
package outgoing

import (
	"sync"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/sahith-narahari/nym/core/worker"
	"github.com/sahith-narahari/nym/server/internal/glue"
	"github.com/sahith-narahari/nym/server/internal/packet"
)

const sweepInterval = 1 * time.Minute

type connector struct {
	worker.Worker
	sync.RWMutex

	glue glue.Glue
	log  *logging.Logger

	conns map[string]*outgoingConn

	closeAllCh chan interface{}
	closeAllWg sync.WaitGroup
}

func (co *connector) Halt() {
	co.Worker.Halt()

	// Close all outgoing connections.
	close(co.closeAllCh)
	co.closeAllWg.Wait()
}

// DispatchPacket hands the packet to the connection for its next hop,
// establishing one if necessary.  Takes ownership of pkt.
func (co *connector) DispatchPacket(pkt *packet.Packet) {
	co.RLock()
	c := co.conns[pkt.NextHop]
	co.RUnlock()

	if c == nil {
		c = co.spawnConn(pkt.NextHop)
	}
	c.dispatchPacket(pkt)
}

func (co *connector) spawnConn(addr string) *outgoingConn {
	co.Lock()
	defer co.Unlock()

	// Lost the race with another dispatch.
	if c := co.conns[addr]; c != nil {
		return c
	}
	c := newOutgoingConn(co, addr)
	co.conns[addr] = c
	return c
}

func (co *connector) onConnClosed(c *outgoingConn) {
	co.Lock()
	defer co.Unlock()

	if co.conns[c.dst] == c {
		delete(co.conns, c.dst)
	}
}

// sweepWorker tears down connections that have been idle for a while, so a
// node does not hold sockets open to every peer it has ever forwarded to.
func (co *connector) sweepWorker() {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-co.HaltCh():
			co.log.Debugf("Terminating gracefully.")
			return
		case <-t.C:
		}

		co.RLock()
		stale := make([]*outgoingConn, 0)
		for _, c := range co.conns {
			if c.isIdle() {
				stale = append(stale, c)
			}
		}
		co.RUnlock()
		for _, c := range stale {
			co.log.Debugf("Closing idle connection: %v", c.dst)
			c.halt()
		}
	}
}

// New constructs a new connector instance.
func New(g glue.Glue) glue.Connector {
	co := &connector{
		glue:       g,
		log:        g.LogBackend().GetLogger("connector"),
		conns:      make(map[string]*outgoingConn),
		closeAllCh: make(chan interface{}),
	}
	co.Go(co.sweepWorker)
	return co
}
