// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package cryptoworker implements the inbound Sphinx packet processing
// workers.
package cryptoworker

import (
	"fmt"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/sahith-narahari/nym/core/sphinx"
	"github.com/sahith-narahari/nym/core/worker"
	"github.com/sahith-narahari/nym/server/internal/glue"
	"github.com/sahith-narahari/nym/server/internal/instrument"
	"github.com/sahith-narahari/nym/server/internal/packet"
)

// Worker is a Sphinx crypto worker instance.
type Worker struct {
	worker.Worker

	glue glue.Glue
	log  *logging.Logger

	ingressCh <-chan *packet.Packet
}

func (w *Worker) doUnwrap(pkt *packet.Packet) error {
	layer, err := sphinx.Unwrap(w.glue.IdentityKey(), pkt.Raw)
	if err != nil {
		return err
	}

	// Sphinx Packet Replay Detection.  The AEAD open has already
	// authenticated the packet, so a tag hit here is a genuine replay and
	// not an attacker probing with garbage.
	if w.glue.ReplayCache().TestAndSet(layer.ReplayTag[:]) {
		instrument.PacketReplayed()
		return fmt.Errorf("sphinx: replay detected")
	}

	pkt.Delay = layer.Delay
	if layer.Terminal {
		pkt.Recipient = layer.Recipient
		pkt.Payload = layer.Payload
		return nil
	}
	pkt.NextHop = layer.NextHop
	pkt.Payload = layer.Packet
	return nil
}

func (w *Worker) worker() {
	for {
		var pkt *packet.Packet
		select {
		case <-w.HaltCh():
			w.log.Debugf("Terminating gracefully.")
			return
		case pkt = <-w.ingressCh:
		}

		// Drop processing on shutdown rather than racing the other
		// subsystems going away.
		select {
		case <-w.HaltCh():
			pkt.Dispose()
			return
		default:
		}

		if err := w.doUnwrap(pkt); err != nil {
			// Malformed or replayed packets are dropped without any
			// feedback to the sender.
			w.log.Debugf("Dropping packet: %v (%v)", pkt.ID, err)
			instrument.PacketDropped()
			pkt.Dispose()
			continue
		}

		if pkt.IsTerminal() && w.glue.Provider() == nil {
			w.log.Debugf("Dropping packet: %v (Terminal packet at a mix)", pkt.ID)
			instrument.PacketDropped()
			pkt.Dispose()
			continue
		}

		// Deduct the processing time spent so far from the mixing delay,
		// so queueing here does not stack on top of what the sender asked
		// for.  Terminal packets mix like any other hop; the scheduler
		// hands them to the provider once their delay elapses.
		pkt.Delay -= time.Since(pkt.RecvAt)
		if pkt.Delay < 0 {
			pkt.Delay = 0
		}

		// Callee takes ownership.
		w.glue.Scheduler().OnPacket(pkt)
	}
}

// New constructs a new Worker instance draining ingressCh.
func New(g glue.Glue, ingressCh <-chan *packet.Packet, id int) *Worker {
	w := &Worker{
		glue:      g,
		log:       g.LogBackend().GetLogger(fmt.Sprintf("crypto:%d", id)),
		ingressCh: ingressCh,
	}
	w.Go(w.worker)
	return w
}
