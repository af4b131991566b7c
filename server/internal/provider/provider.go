// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package provider implements the store-and-forward provider: terminal
// packets are persisted per recipient and handed out over the client
// listener on demand.
package provider

import (
	"gopkg.in/op/go-logging.v1"

	"github.com/sahith-narahari/nym/core/worker"
	"github.com/sahith-narahari/nym/server/internal/glue"
	"github.com/sahith-narahari/nym/server/internal/instrument"
	"github.com/sahith-narahari/nym/server/internal/packet"
)

const incomingPacketsChannelSize = 256

type provider struct {
	worker.Worker

	glue glue.Glue
	log  *logging.Logger

	store    *store
	ledger   *clientLedger
	listener *clientListener

	inCh chan *packet.Packet
}

func (p *provider) Halt() {
	p.Worker.Halt()
	p.listener.Halt()
	p.store.close()
}

// OnPacket hands a terminal packet to the provider.  Takes ownership.
func (p *provider) OnPacket(pkt *packet.Packet) {
	select {
	case p.inCh <- pkt:
	default:
		p.log.Debugf("Dropping packet: %v (Store queue full)", pkt.ID)
		instrument.PacketDropped()
		pkt.Dispose()
	}
}

func (p *provider) worker() {
	for {
		var pkt *packet.Packet
		select {
		case <-p.HaltCh():
			p.log.Debugf("Terminating gracefully.")
			return
		case pkt = <-p.inCh:
		}

		if len(pkt.Recipient) == 0 || len(pkt.Payload) == 0 {
			p.log.Debugf("Dropping packet: %v (Malformed terminal packet)", pkt.ID)
			instrument.PacketDropped()
			pkt.Dispose()
			continue
		}

		if err := p.store.storeMessage(pkt.Recipient, pkt.Payload); err != nil {
			p.log.Warningf("Failed to store message for %s: %v", pkt.Recipient, err)
			instrument.PacketDropped()
		} else {
			instrument.PacketStored()
		}
		pkt.Dispose()
	}
}

// New constructs a new provider instance, opening the message store and
// starting the client listener.
func New(g glue.Glue) (glue.Provider, error) {
	p := &provider{
		glue:   g,
		log:    g.LogBackend().GetLogger("provider"),
		ledger: newClientLedger(),
		inCh:   make(chan *packet.Packet, incomingPacketsChannelSize),
	}

	var err error
	p.store, err = newStore(g.Config().Server.DataDir)
	if err != nil {
		return nil, err
	}

	p.listener, err = newClientListener(p)
	if err != nil {
		p.store.close()
		return nil, err
	}

	p.Go(p.worker)
	return p, nil
}
