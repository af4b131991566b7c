// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package scheduler implements the Poisson mix packet scheduler.
package scheduler

import (
	"math"
	mRand "math/rand"
	"time"

	"github.com/katzenpost/hpqc/rand"
	"gopkg.in/op/go-logging.v1"

	"github.com/sahith-narahari/nym/core/queue"
	"github.com/sahith-narahari/nym/core/worker"
	"github.com/sahith-narahari/nym/server/internal/glue"
	"github.com/sahith-narahari/nym/server/internal/instrument"
	"github.com/sahith-narahari/nym/server/internal/packet"
)

const inboundPacketsChannelSize = 1000

type scheduler struct {
	worker.Worker

	glue glue.Glue
	log  *logging.Logger

	q     *queue.PriorityQueue
	mRand *mRand.Rand
	inCh  chan *packet.Packet
}

func (sch *scheduler) Halt() {
	sch.Worker.Halt()
}

// OnPacket hands a decrypted forward packet to the scheduler.  The caller
// relinquishes ownership.
func (sch *scheduler) OnPacket(pkt *packet.Packet) {
	select {
	case sch.inCh <- pkt:
	default:
		// The scheduler is backlogged beyond the inbound channel; better
		// to shed load here than to block the crypto workers.
		sch.log.Debugf("Dropping packet: %v (Scheduler inbound channel full)", pkt.ID)
		instrument.PacketDropped()
		pkt.Dispose()
	}
}

func (sch *scheduler) doEnqueue(pkt *packet.Packet) {
	pkt.DispatchAt = time.Now().Add(pkt.Delay)
	sch.q.Enqueue(uint64(pkt.DispatchAt.UnixNano()), pkt)

	// If queue limitations are enabled, evict a random victim when over
	// capacity so an attacker flooding the node displaces uniformly
	// rather than targeting specific packets.
	maxCapacity := sch.glue.Config().Debug.SchedulerQueueSize
	if maxCapacity > 0 && sch.q.Len() > maxCapacity {
		drop := sch.q.DequeueRandom(sch.mRand).Value.(*packet.Packet)
		sch.log.Debugf("Queue size limit reached, discarding: %v", drop.ID)
		instrument.PacketDropped()
		drop.Dispose()
	}
	instrument.SetMixQueueSize(uint64(sch.q.Len()))
}

func (sch *scheduler) worker() {
	timerSlack := time.Duration(sch.glue.Config().Debug.SchedulerSlackMsec) * time.Millisecond
	maxDelay := time.Duration(sch.glue.Config().Debug.MaxDelayMsec) * time.Millisecond
	timer := time.NewTimer(math.MaxInt64)
	defer timer.Stop()

	for {
		var timerFired bool

		// The vast majority of the time the scheduler is idle waiting on
		// new packets or for the head of the priority queue to become
		// eligible for dispatch.  This is where the actual "mix" part of
		// the mix network happens.  A single goroutine suffices; the
		// performance-relevant work is the crypto, which is parallelized
		// elsewhere.
		select {
		case <-sch.HaltCh():
			sch.log.Debugf("Terminating gracefully.")
			return
		case pkt := <-sch.inCh:
			if pkt.Delay > maxDelay {
				sch.log.Debugf("Dropping packet: %v (Delay %v exceeds max %v)", pkt.ID, pkt.Delay, maxDelay)
				instrument.PacketDropped()
				pkt.Dispose()
			} else {
				sch.doEnqueue(pkt)
			}
		case <-timer.C:
			timerFired = true
		}

		// Dispatch packets if possible and reschedule the next wakeup.
		if !timerFired && !timer.Stop() {
			<-timer.C
		}

		nrBurst, maxBurst := 0, sch.glue.Config().Debug.SchedulerMaxBurst
		for {
			e := sch.q.Peek()
			if e == nil {
				// The queue is empty; sleep until a packet arrives.
				timer.Reset(math.MaxInt64)
				break
			}
			dispatchAt := time.Unix(0, int64(e.Priority))

			now := time.Now()
			if dispatchAt.After(now) {
				// Head of queue is not yet due.
				timer.Reset(dispatchAt.Sub(now))
				break
			}
			if nrBurst = nrBurst + 1; nrBurst > maxBurst {
				// Bound the per-wakeup dispatch burst so a backlog does
				// not starve inbound processing.
				timer.Reset(1 * time.Microsecond)
				break
			}

			sch.q.Pop()
			instrument.SetMixQueueSize(uint64(sch.q.Len()))
			pkt := e.Value.(*packet.Packet)

			if now.Sub(dispatchAt) > timerSlack {
				// The deadline was blown by more than the configured
				// slack, dispatching now would distort the delay the
				// sender asked for.
				sch.log.Debugf("Dropping packet: %v (Deadline blown by %v)", pkt.ID, now.Sub(dispatchAt))
				instrument.PacketDropped()
				pkt.Dispose()
			} else if pkt.IsTerminal() {
				// Terminal packets held their delay here too; hand them
				// to the store-and-forward backend.  Callee takes
				// ownership.
				sch.glue.Provider().OnPacket(pkt)
			} else {
				// Callee takes ownership, and may still drop the packet
				// if no link to the peer can be established.
				sch.glue.Connector().DispatchPacket(pkt)
			}
		}
	}
}

// New constructs a new scheduler instance.
func New(g glue.Glue) glue.Scheduler {
	sch := &scheduler{
		glue:  g,
		log:   g.LogBackend().GetLogger("scheduler"),
		q:     queue.New(),
		mRand: rand.NewMath(),
		inCh:  make(chan *packet.Packet, inboundPacketsChannelSize),
	}
	sch.Go(sch.worker)
	return sch
}
