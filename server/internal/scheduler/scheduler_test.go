// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/katzenpost/hpqc/nike"
	"github.com/stretchr/testify/require"

	"github.com/sahith-narahari/nym/core/log"
	"github.com/sahith-narahari/nym/server/config"
	"github.com/sahith-narahari/nym/server/internal/glue"
	"github.com/sahith-narahari/nym/server/internal/packet"
)

type dispatchRecord struct {
	pkt *packet.Packet
	at  time.Time
}

type testConnector struct {
	sync.Mutex
	dispatched []dispatchRecord
}

func (c *testConnector) Halt() {}

func (c *testConnector) DispatchPacket(pkt *packet.Packet) {
	c.Lock()
	defer c.Unlock()
	c.dispatched = append(c.dispatched, dispatchRecord{pkt, time.Now()})
}

func (c *testConnector) records() []dispatchRecord {
	c.Lock()
	defer c.Unlock()
	return append([]dispatchRecord(nil), c.dispatched...)
}

type testProvider struct {
	sync.Mutex
	delivered []dispatchRecord
}

func (p *testProvider) Halt() {}

func (p *testProvider) OnPacket(pkt *packet.Packet) {
	p.Lock()
	defer p.Unlock()
	p.delivered = append(p.delivered, dispatchRecord{pkt, time.Now()})
}

func (p *testProvider) records() []dispatchRecord {
	p.Lock()
	defer p.Unlock()
	return append([]dispatchRecord(nil), p.delivered...)
}

type testGlue struct {
	cfg       *config.Config
	logB      *log.Backend
	connector *testConnector
	provider  *testProvider
}

func (g *testGlue) Config() *config.Config            { return g.cfg }
func (g *testGlue) LogBackend() *log.Backend          { return g.logB }
func (g *testGlue) IdentityKey() nike.PrivateKey      { return nil }
func (g *testGlue) IdentityPublicKey() nike.PublicKey { return nil }
func (g *testGlue) ReplayCache() glue.ReplayCache     { return nil }
func (g *testGlue) Scheduler() glue.Scheduler         { return nil }
func (g *testGlue) Connector() glue.Connector         { return g.connector }
func (g *testGlue) Provider() glue.Provider           { return g.provider }

func newTestGlue(t *testing.T) *testGlue {
	logB, err := log.New("", "DEBUG", false)
	require.NoError(t, err)
	cfg := &config.Config{
		Server: &config.Server{
			Identifier: "test",
			Address:    "127.0.0.1:0",
			DataDir:    "/tmp",
			Layer:      1,
		},
	}
	require.NoError(t, cfg.FixupAndValidate())
	return &testGlue{
		cfg:       cfg,
		logB:      logB,
		connector: new(testConnector),
		provider:  new(testProvider),
	}
}

func TestSchedulerHonorsDelay(t *testing.T) {
	require := require.New(t)

	g := newTestGlue(t)
	sch := New(g)
	defer sch.Halt()

	const delay = 100 * time.Millisecond
	start := time.Now()
	pkt := packet.New([]byte{0x01})
	pkt.Delay = delay
	pkt.NextHop = "127.0.0.1:4242"
	sch.OnPacket(pkt)

	require.Eventually(func() bool {
		return len(g.connector.records()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	rec := g.connector.records()[0]
	elapsed := rec.at.Sub(start)
	slack := time.Duration(g.cfg.Debug.SchedulerSlackMsec) * time.Millisecond
	require.GreaterOrEqual(elapsed, delay, "never dispatched before the deadline")
	require.Less(elapsed, delay+slack, "dispatched within the slack window")
}

func TestSchedulerOrdersByDeadline(t *testing.T) {
	require := require.New(t)

	g := newTestGlue(t)
	sch := New(g)
	defer sch.Halt()

	// Enqueue out of order; dispatch must follow deadline order.
	delays := []time.Duration{150 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond}
	ids := make(map[time.Duration]uint64)
	for _, d := range delays {
		pkt := packet.New([]byte{0x01})
		pkt.Delay = d
		pkt.NextHop = "127.0.0.1:4242"
		ids[d] = pkt.ID
		sch.OnPacket(pkt)
	}

	require.Eventually(func() bool {
		return len(g.connector.records()) == 3
	}, 2*time.Second, 5*time.Millisecond)

	recs := g.connector.records()
	require.Equal(ids[50*time.Millisecond], recs[0].pkt.ID)
	require.Equal(ids[100*time.Millisecond], recs[1].pkt.ID)
	require.Equal(ids[150*time.Millisecond], recs[2].pkt.ID)
}

func TestSchedulerDeliversTerminalAfterDelay(t *testing.T) {
	require := require.New(t)

	g := newTestGlue(t)
	sch := New(g)
	defer sch.Halt()

	// Terminal packets (no next hop) mix like any other and go to the
	// provider once their delay elapses, never early.
	const delay = 100 * time.Millisecond
	start := time.Now()
	pkt := packet.New([]byte{0x01})
	pkt.Delay = delay
	pkt.Recipient = []byte("alice")
	pkt.Payload = []byte("hello")
	sch.OnPacket(pkt)

	require.Eventually(func() bool {
		return len(g.provider.records()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	rec := g.provider.records()[0]
	elapsed := rec.at.Sub(start)
	slack := time.Duration(g.cfg.Debug.SchedulerSlackMsec) * time.Millisecond
	require.GreaterOrEqual(elapsed, delay, "never delivered before the deadline")
	require.Less(elapsed, delay+slack, "delivered within the slack window")
	require.Equal([]byte("alice"), rec.pkt.Recipient)
	require.Zero(len(g.connector.records()), "terminal packets never reach the connector")
}

func TestSchedulerDropsExcessiveDelay(t *testing.T) {
	require := require.New(t)

	g := newTestGlue(t)
	sch := New(g)
	defer sch.Halt()

	pkt := packet.New([]byte{0x01})
	pkt.Delay = time.Duration(g.cfg.Debug.MaxDelayMsec)*time.Millisecond + time.Second
	pkt.NextHop = "127.0.0.1:4242"
	sch.OnPacket(pkt)

	// A prompt packet enqueued afterwards still goes through, the
	// malformed one never does.
	ok := packet.New([]byte{0x02})
	ok.Delay = 10 * time.Millisecond
	ok.NextHop = "127.0.0.1:4242"
	okID := ok.ID
	sch.OnPacket(ok)

	require.Eventually(func() bool {
		return len(g.connector.records()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(okID, g.connector.records()[0].pkt.ID)
}
