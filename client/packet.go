// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	mrand "math/rand"
	"sync"
	"time"

	"github.com/katzenpost/hpqc/rand"

	"github.com/sahith-narahari/nym/core/pki"
	"github.com/sahith-narahari/nym/core/sphinx"
)

// Packet is a fully constructed mix packet along with the cleartext routing
// metadata needed to get it to the first hop.
type Packet struct {
	// Raw is the onion encrypted packet.
	Raw []byte

	// FirstHop is the first hop's mix listener address.
	FirstHop string

	// TotalDelay is the sum of the per-hop mixing delays, useful for
	// estimating delivery latency.
	TotalDelay time.Duration
}

// PacketFactory builds mix packets: it samples the per-hop mixing delays
// from an exponential distribution and delegates the layered encryption to
// the sphinx codec.
type PacketFactory struct {
	sync.Mutex

	geo *sphinx.Geometry
	rng *mrand.Rand

	// lambda is the exponential rate parameter in 1/milliseconds
	// (1 / mean delay).
	lambda   float64
	maxDelay time.Duration
}

// NewPacketFactory creates a PacketFactory.  meanDelay is the mean per-hop
// mixing delay; maxDelay clamps pathological samples.  rng may be seeded
// deterministically in tests; production callers should pass rand.NewMath().
func NewPacketFactory(geo *sphinx.Geometry, rng *mrand.Rand, meanDelay, maxDelay time.Duration) *PacketFactory {
	return &PacketFactory{
		geo:      geo,
		rng:      rng,
		lambda:   1.0 / float64(meanDelay.Milliseconds()),
		maxDelay: maxDelay,
	}
}

func (f *PacketFactory) sampleDelay() time.Duration {
	d := time.Duration(rand.Exp(f.rng, f.lambda)) * time.Millisecond
	if d > f.maxDelay {
		d = f.maxDelay
	}
	return d
}

// BuildPacket constructs a packet for the given path.  Each hop, the
// terminal provider included, is assigned an independently sampled delay;
// independent randomized holding times at every hop are what decorrelate
// arrival and departure timing.
func (f *PacketFactory) BuildPacket(path []*pki.MixDescriptor, recipient, payload []byte) (*Packet, error) {
	if len(payload) > f.geo.UserForwardPayloadLength {
		// Reject before doing any cryptographic work.
		return nil, sphinx.ErrPayloadTooLarge
	}

	f.Lock()
	hops := make([]*sphinx.PathHop, 0, len(path))
	var total time.Duration
	for _, desc := range path {
		delay := f.sampleDelay()
		total += delay
		hops = append(hops, &sphinx.PathHop{
			Address:   desc.Address,
			PublicKey: desc.IdentityKey,
			Delay:     delay,
		})
	}
	f.Unlock()

	raw, err := sphinx.Encode(f.geo, hops, recipient, payload)
	if err != nil {
		return nil, err
	}
	return &Packet{
		Raw:        raw,
		FirstHop:   path[0].Address,
		TotalDelay: total,
	}, nil
}
