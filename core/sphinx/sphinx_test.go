// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package sphinx

import (
	"fmt"
	"testing"
	"time"

	"github.com/katzenpost/hpqc/nike"
	"github.com/stretchr/testify/require"
)

type nodeParams struct {
	privateKey nike.PrivateKey
	hop        *PathHop
}

func newTestPath(t *testing.T, nrHops int) []*nodeParams {
	nodes := make([]*nodeParams, nrHops)
	for i := range nodes {
		pub, priv, err := Scheme.GenerateKeyPair()
		require.NoError(t, err)
		nodes[i] = &nodeParams{
			privateKey: priv,
			hop: &PathHop{
				Address:   fmt.Sprintf("127.0.0.1:%d", 30000+i),
				PublicKey: pub,
				Delay:     time.Duration(i+1) * 17 * time.Millisecond,
			},
		}
	}
	return nodes
}

func pathHops(nodes []*nodeParams) []*PathHop {
	hops := make([]*PathHop, 0, len(nodes))
	for _, n := range nodes {
		hops = append(hops, n.hop)
	}
	return hops
}

func TestForwardRoundTrip(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	g := DefaultGeometry()
	payload := []byte("hello")
	recipient := []byte("alice")

	for _, nrHops := range []int{1, 3, g.NrHops} {
		nodes := newTestPath(t, nrHops)
		pkt, err := Encode(g, pathHops(nodes), recipient, payload)
		require.NoError(err, "Encode()")

		for i, n := range nodes {
			prevLen := len(pkt)
			layer, err := Unwrap(n.privateKey, pkt)
			require.NoError(err, "Unwrap(): hop %d", i)
			require.Equal(n.hop.Delay, layer.Delay, "hop %d: delay", i)

			if i == len(nodes)-1 {
				require.True(layer.Terminal, "terminal hop")
				require.Equal(recipient, layer.Recipient, "recipient")
				require.Equal(payload, layer.Payload, "payload")
			} else {
				require.False(layer.Terminal, "intermediate hop %d", i)
				require.Equal(nodes[i+1].hop.Address, layer.NextHop, "hop %d: next hop", i)
				require.Less(len(layer.Packet), prevLen, "hop %d: packet must shrink", i)
				pkt = layer.Packet
			}
		}
	}
}

func TestPacketLength(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	g := DefaultGeometry()
	nodes := newTestPath(t, g.NrHops)
	pkt, err := Encode(g, pathHops(nodes), []byte("bob"), []byte("x"))
	require.NoError(err)
	require.Equal(g.PacketLength, len(pkt), "full path packet length")
}

func TestPayloadTooLarge(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	g := DefaultGeometry()
	nodes := newTestPath(t, 3)
	oversized := make([]byte, g.UserForwardPayloadLength+1)
	_, err := Encode(g, pathHops(nodes), []byte("bob"), oversized)
	require.ErrorIs(err, ErrPayloadTooLarge)

	// Exactly at the limit is fine.
	_, err = Encode(g, pathHops(nodes), []byte("bob"), oversized[:g.UserForwardPayloadLength])
	require.NoError(err)
}

func TestInvalidPath(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	g := DefaultGeometry()
	_, err := Encode(g, nil, []byte("bob"), []byte("x"))
	require.ErrorIs(err, ErrInvalidPath, "empty path")

	nodes := newTestPath(t, g.NrHops+1)
	_, err = Encode(g, pathHops(nodes), []byte("bob"), []byte("x"))
	require.ErrorIs(err, ErrInvalidPath, "too many hops")
}

func TestMalformedPacket(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	g := DefaultGeometry()
	nodes := newTestPath(t, 3)
	pkt, err := Encode(g, pathHops(nodes), []byte("bob"), []byte("hi"))
	require.NoError(err)

	// A single flipped bit in the ciphertext must be rejected.
	corrupted := append([]byte{}, pkt...)
	corrupted[len(corrupted)/2] ^= 0x01
	_, err = Unwrap(nodes[0].privateKey, corrupted)
	require.ErrorIs(err, ErrInvalidPacket, "bit flip")

	// Truncation.
	_, err = Unwrap(nodes[0].privateKey, pkt[:GroupElementLength+3])
	require.ErrorIs(err, ErrInvalidPacket, "truncated")

	// Wrong key.
	_, err = Unwrap(nodes[1].privateKey, pkt)
	require.ErrorIs(err, ErrInvalidPacket, "wrong key")
}

func TestReplayTag(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	g := DefaultGeometry()
	nodes := newTestPath(t, 2)
	pkt, err := Encode(g, pathHops(nodes), []byte("bob"), []byte("hi"))
	require.NoError(err)

	// Unwrapping the same packet twice yields the same tag.  The filter,
	// not the codec, is what rejects the second copy.
	layerA, err := Unwrap(nodes[0].privateKey, pkt)
	require.NoError(err)
	layerB, err := Unwrap(nodes[0].privateKey, pkt)
	require.NoError(err)
	require.Equal(layerA.ReplayTag, layerB.ReplayTag, "tag determinism")

	// A fresh encode of the same message gets a fresh tag.
	pkt2, err := Encode(g, pathHops(nodes), []byte("bob"), []byte("hi"))
	require.NoError(err)
	layerC, err := Unwrap(nodes[0].privateKey, pkt2)
	require.NoError(err)
	require.NotEqual(layerA.ReplayTag, layerC.ReplayTag, "tag uniqueness")
}
