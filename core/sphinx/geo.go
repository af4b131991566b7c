// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package sphinx

import (
	"fmt"
	"strings"
)

const (
	// GroupElementLength is the length of a X25519 group element in bytes.
	GroupElementLength = 32

	// AddressLength is the length of the per-hop address/recipient field.
	AddressLength = 64

	// ReplayTagLength is the length of the per-hop replay tag in bytes.
	ReplayTagLength = 32

	// aeadOverhead is the length of the Poly1305 authentication tag.
	aeadOverhead = 16

	// routingBlockLength is flags (1) + address length (1) + address
	// (AddressLength - 2 usable) + delay (4).
	routingBlockLength = 1 + 1 + (AddressLength - 2) + 4

	// perHopOverhead is the number of bytes each encrypted layer adds on
	// top of its inner ciphertext.
	perHopOverhead = GroupElementLength + routingBlockLength + aeadOverhead

	// payloadLengthPrefix is the length prefix prepended to the plaintext
	// payload before padding.
	payloadLengthPrefix = 4
)

// Geometry describes the dimensions of packets produced and consumed by
// this codec.  Every node in a given network MUST agree on the geometry.
type Geometry struct {
	// NrHops is the maximum number of hops a packet may traverse,
	// including the terminal provider hop.
	NrHops int

	// ForwardPayloadLength is the length of the padded payload block.
	ForwardPayloadLength int

	// UserForwardPayloadLength is the usable payload length.
	UserForwardPayloadLength int

	// PacketLength is the length of a packet built for a full NrHops path.
	// Packets shrink by perHopOverhead bytes at each hop.
	PacketLength int
}

func (g *Geometry) String() string {
	var b strings.Builder
	b.WriteString("sphinx_geometry:\n")
	fmt.Fprintf(&b, "  nr_hops: %d\n", g.NrHops)
	fmt.Fprintf(&b, "  forward_payload_length: %d\n", g.ForwardPayloadLength)
	fmt.Fprintf(&b, "  user_forward_payload_length: %d\n", g.UserForwardPayloadLength)
	fmt.Fprintf(&b, "  packet_length: %d\n", g.PacketLength)
	return b.String()
}

// Validate returns an error iff the geometry is internally inconsistent.
func (g *Geometry) Validate() error {
	if g == nil {
		return fmt.Errorf("sphinx: no geometry")
	}
	if g.NrHops < 1 {
		return fmt.Errorf("sphinx: invalid NrHops: %d", g.NrHops)
	}
	if g.ForwardPayloadLength <= payloadLengthPrefix {
		return fmt.Errorf("sphinx: invalid ForwardPayloadLength: %d", g.ForwardPayloadLength)
	}
	if g.PacketLength != g.NrHops*perHopOverhead+g.ForwardPayloadLength {
		return fmt.Errorf("sphinx: inconsistent PacketLength: %d", g.PacketLength)
	}
	return nil
}

// NewGeometry constructs a Geometry for the given maximum hop count and
// padded payload length.
func NewGeometry(nrHops, forwardPayloadLength int) *Geometry {
	return &Geometry{
		NrHops:                   nrHops,
		ForwardPayloadLength:     forwardPayloadLength,
		UserForwardPayloadLength: forwardPayloadLength - payloadLengthPrefix,
		PacketLength:             nrHops*perHopOverhead + forwardPayloadLength,
	}
}

// DefaultGeometry returns the geometry used by the deployed network: up to 5
// hops and a 2 KiB payload block.
func DefaultGeometry() *Geometry {
	return NewGeometry(5, 2048)
}
