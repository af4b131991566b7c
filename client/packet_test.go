// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	mrand "math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sahith-narahari/nym/core/sphinx"
)

func TestBuildPacket(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	rng := mrand.New(mrand.NewSource(42))
	net := newTestNetwork(t, 2, 2)
	factory := NewPacketFactory(sphinx.DefaultGeometry(), rng, 50*time.Millisecond, time.Second)

	path, err := NewPath(rng, net.doc, net.provider.desc)
	require.NoError(err)

	pkt, err := factory.BuildPacket(path, []byte("alice"), []byte("hello"))
	require.NoError(err)
	require.Equal(path[0].Address, pkt.FirstHop)
	require.NotZero(pkt.TotalDelay)
}

func TestBuildPacketTooLarge(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	rng := mrand.New(mrand.NewSource(42))
	net := newTestNetwork(t, 2, 2)
	geo := sphinx.DefaultGeometry()
	factory := NewPacketFactory(geo, rng, 50*time.Millisecond, time.Second)

	path, err := NewPath(rng, net.doc, net.provider.desc)
	require.NoError(err)

	_, err = factory.BuildPacket(path, []byte("alice"), make([]byte, geo.UserForwardPayloadLength+1))
	require.ErrorIs(err, sphinx.ErrPayloadTooLarge)
}

// TestEndToEndUnwrap walks a constructed packet through every hop of a
// 2x2 + provider network and verifies the payload pops out at the provider
// after exactly 3 unwraps.
func TestEndToEndUnwrap(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	rng := mrand.New(mrand.NewSource(42))
	net := newTestNetwork(t, 2, 2)
	factory := NewPacketFactory(sphinx.DefaultGeometry(), rng, 50*time.Millisecond, time.Second)

	path, err := NewPath(rng, net.doc, net.provider.desc)
	require.NoError(err)
	require.Len(path, 3, "2 mixnodes + provider")

	pkt, err := factory.BuildPacket(path, []byte("alice"), []byte("hello"))
	require.NoError(err)

	hops := 0
	addr := pkt.FirstHop
	raw := pkt.Raw
	for {
		layer, err := sphinx.Unwrap(net.privateKeyFor(t, addr), raw)
		require.NoError(err, "hop %d", hops)
		hops++
		if layer.Terminal {
			require.Equal([]byte("alice"), layer.Recipient)
			require.Equal([]byte("hello"), layer.Payload)
			break
		}
		addr = layer.NextHop
		raw = layer.Packet
	}
	require.Equal(3, hops, "exactly 3 forwarding hops")
	require.Equal(net.provider.desc.Address, addr, "terminal hop is the provider")
}
