// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package outgoing

import (
	"encoding/binary"
	"net"
	"sync/atomic"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/sahith-narahari/nym/server/internal/instrument"
	"github.com/sahith-narahari/nym/server/internal/packet"
)

const (
	dispatchQueueSize = 64
	dialTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 2 * time.Minute
)

// outgoingConn owns the link to a single next-hop peer.  One worker
// goroutine drains the dispatch queue so that a slow or dead peer never
// blocks the scheduler.
type outgoingConn struct {
	co  *connector
	log *logging.Logger
	dst string

	ch       chan *packet.Packet
	haltCh   chan interface{}
	lastSend int64 // unix nano, atomic
}

func (c *outgoingConn) dispatchPacket(pkt *packet.Packet) {
	select {
	case c.ch <- pkt:
	default:
		// Queue to the peer is full, caller expects best effort.
		c.log.Debugf("Dropping packet: %v (Peer queue full: %v)", pkt.ID, c.dst)
		instrument.PacketDropped()
		pkt.Dispose()
	}
}

func (c *outgoingConn) isIdle() bool {
	last := atomic.LoadInt64(&c.lastSend)
	return time.Since(time.Unix(0, last)) > idleTimeout && len(c.ch) == 0
}

func (c *outgoingConn) halt() {
	select {
	case <-c.haltCh:
	default:
		close(c.haltCh)
	}
}

func (c *outgoingConn) worker() {
	defer func() {
		c.co.onConnClosed(c)
		c.co.closeAllWg.Done()

		// Drain anything still queued.
		for {
			select {
			case pkt := <-c.ch:
				instrument.PacketDropped()
				pkt.Dispose()
			default:
				return
			}
		}
	}()

	var conn net.Conn
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		var pkt *packet.Packet
		select {
		case <-c.co.closeAllCh:
			return
		case <-c.haltCh:
			return
		case pkt = <-c.ch:
		}

		// Lazy dial, reusing the link across packets to the same peer.
		if conn == nil {
			var err error
			conn, err = net.DialTimeout("tcp", c.dst, dialTimeout)
			if err != nil {
				// Forwarding is fire and forget, there is no retry.
				c.log.Debugf("Dropping packet: %v (Dial %v failed: %v)", pkt.ID, c.dst, err)
				instrument.PacketDropped()
				pkt.Dispose()
				continue
			}
		}

		if err := writeFrame(conn, pkt.Payload); err != nil {
			c.log.Debugf("Dropping packet: %v (Write to %v failed: %v)", pkt.ID, c.dst, err)
			instrument.PacketDropped()
			conn.Close()
			conn = nil
		} else {
			atomic.StoreInt64(&c.lastSend, time.Now().UnixNano())
			instrument.PacketForwarded()
		}
		pkt.Dispose()
	}
}

func writeFrame(conn net.Conn, raw []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(raw)))
	if _, err := conn.Write(hdr[:]); err != nil {
		return err
	}
	_, err := conn.Write(raw)
	return err
}

func newOutgoingConn(co *connector, dst string) *outgoingConn {
	c := &outgoingConn{
		co:       co,
		log:      co.glue.LogBackend().GetLogger("outgoing:" + dst),
		dst:      dst,
		ch:       make(chan *packet.Packet, dispatchQueueSize),
		haltCh:   make(chan interface{}),
		lastSend: time.Now().UnixNano(),
	}
	co.closeAllWg.Add(1)
	go c.worker()
	return c
}
