// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package packet provides the internal mix server packet type.
package packet

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	pktPool = sync.Pool{
		New: func() interface{} {
			return new(Packet)
		},
	}
	pktID uint64
)

// Packet is a Sphinx packet traversing the mix pipeline.
type Packet struct {
	// Raw is the packet ciphertext as received off the wire.
	Raw []byte

	ID     uint64
	RecvAt time.Time

	// Fields below are populated by the crypto worker after a successful
	// unwrap.

	// Delay is the mixing delay requested by the sender for this hop.
	Delay time.Duration

	// DispatchAt is the absolute deadline set by the scheduler.
	DispatchAt time.Time

	// NextHop is the address of the next mix, empty for terminal packets.
	NextHop string

	// Payload holds the inner packet for forward hops, or the plaintext
	// message at the terminal hop.
	Payload []byte

	// Recipient is the terminal recipient identifier, nil for forward hops.
	Recipient []byte
}

// New allocates a Packet, taking ownership of raw.
func New(raw []byte) *Packet {
	v := pktPool.Get()
	pkt := v.(*Packet)
	pkt.ID = atomic.AddUint64(&pktID, 1)
	pkt.Raw = raw
	pkt.RecvAt = time.Now()
	return pkt
}

// IsTerminal returns true iff the packet terminates at this node.
func (pkt *Packet) IsTerminal() bool {
	return pkt.NextHop == ""
}

func (pkt *Packet) String() string {
	return fmt.Sprintf("packet:%v", pkt.ID)
}

// Dispose returns the packet to the pool.
func (pkt *Packet) Dispose() {
	pkt.Raw = nil
	pkt.ID = 0
	pkt.RecvAt = time.Time{}
	pkt.Delay = 0
	pkt.DispatchAt = time.Time{}
	pkt.NextHop = ""
	pkt.Payload = nil
	pkt.Recipient = nil
	pktPool.Put(pkt)
}
