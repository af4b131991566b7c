// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package sphinx implements the layered-encryption packet format used by the
// mix network.  Each layer consists of an ephemeral X25519 group element
// followed by a ChaCha20-Poly1305 ciphertext whose plaintext is a fixed-size
// routing block and the next (strictly smaller) layer.  The terminal layer
// carries the recipient identifier and the padded payload instead of a
// nested packet.
package sphinx

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/katzenpost/chacha20poly1305"
	"github.com/katzenpost/hpqc/hash"
	"github.com/katzenpost/hpqc/nike"
	"github.com/katzenpost/hpqc/nike/x25519"
	"github.com/katzenpost/hpqc/rand"
	"golang.org/x/crypto/hkdf"
)

const (
	flagForward  = 0x00
	flagTerminal = 0x01

	maxAddressLength = AddressLength - 2
)

var (
	// ErrPayloadTooLarge is returned by Encode when the payload exceeds
	// the geometry's usable payload length.
	ErrPayloadTooLarge = errors.New("sphinx: payload exceeds geometry")

	// ErrInvalidPath is returned by Encode when the path is empty, longer
	// than the geometry allows, or contains an unroutable hop.
	ErrInvalidPath = errors.New("sphinx: invalid path")

	// ErrInvalidPacket is returned by Unwrap on any structural or
	// cryptographic decode failure.  Callers MUST treat this as terminal
	// and drop the packet without notifying the peer.
	ErrInvalidPacket = errors.New("sphinx: invalid packet")

	kdfInfo = []byte("nym-sphinx-layer-v1")

	// Scheme is the NIKE used for the per-hop key exchange.
	Scheme nike.Scheme = x25519.Scheme(rand.Reader)
)

// PathHop describes a single hop of a forward path: where the packet goes
// next, under whose key the layer is sealed, and for how long that hop holds
// the packet before forwarding.
type PathHop struct {
	// Address is the hop's mix network listener, host:port.
	Address string

	// PublicKey is the hop's long term X25519 key.
	PublicKey nike.PublicKey

	// Delay is the mixing delay this hop is instructed to apply.
	Delay time.Duration
}

// DecodedLayer is the result of unwrapping a single packet layer.
type DecodedLayer struct {
	// ReplayTag is derived from the layer's shared secret and is unique
	// per original packet.  It MUST be checked against the replay filter
	// before the packet is acted upon.
	ReplayTag [ReplayTagLength]byte

	// Delay is the mixing delay for this hop.
	Delay time.Duration

	// NextHop is the address of the next hop.  Empty iff Terminal.
	NextHop string

	// Packet is the reduced packet to forward to NextHop.  Nil iff
	// Terminal.
	Packet []byte

	// Terminal indicates the final hop: Recipient and Payload are set,
	// NextHop and Packet are not.
	Terminal  bool
	Recipient []byte
	Payload   []byte
}

func layerKey(sharedSecret []byte) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, sharedSecret, nil, kdfInfo)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Layer keys are strictly single use (a fresh ephemeral keypair per layer
// per packet), so a fixed all-zero nonce is safe.
var zeroNonce [chacha20poly1305.NonceSize]byte

func encodeRoutingBlock(flags byte, addr []byte, delay time.Duration) ([]byte, error) {
	if len(addr) > maxAddressLength {
		return nil, ErrInvalidPath
	}
	blk := make([]byte, routingBlockLength)
	blk[0] = flags
	blk[1] = byte(len(addr))
	copy(blk[2:], addr)
	delayMsec := delay.Milliseconds()
	if delayMsec < 0 || delayMsec > int64(^uint32(0)) {
		return nil, ErrInvalidPath
	}
	binary.BigEndian.PutUint32(blk[routingBlockLength-4:], uint32(delayMsec))
	return blk, nil
}

// Encode wraps payload in one encryption layer per path hop, innermost
// first, and returns the full-size packet to hand to the first hop.  The
// terminal hop receives recipient and the payload; every other hop receives
// the next hop's address.  Per-hop delays are carried inside the layers.
func Encode(g *Geometry, path []*PathHop, recipient []byte, payload []byte) ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if len(path) < 1 || len(path) > g.NrHops {
		return nil, ErrInvalidPath
	}
	if len(recipient) > maxAddressLength {
		return nil, ErrInvalidPath
	}
	if len(payload) > g.UserForwardPayloadLength {
		return nil, ErrPayloadTooLarge
	}

	// Length-prefix and zero-pad the payload to the fixed block size.
	inner := make([]byte, g.ForwardPayloadLength)
	binary.BigEndian.PutUint32(inner[0:payloadLengthPrefix], uint32(len(payload)))
	copy(inner[payloadLengthPrefix:], payload)

	// Build the onion inside out.
	for i := len(path) - 1; i >= 0; i-- {
		hop := path[i]
		if hop.PublicKey == nil {
			return nil, ErrInvalidPath
		}

		var blk []byte
		var err error
		if i == len(path)-1 {
			blk, err = encodeRoutingBlock(flagTerminal, recipient, hop.Delay)
		} else {
			blk, err = encodeRoutingBlock(flagForward, []byte(path[i+1].Address), hop.Delay)
		}
		if err != nil {
			return nil, err
		}

		ephPub, ephPriv, err := Scheme.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		key, err := layerKey(Scheme.DeriveSecret(ephPriv, hop.PublicKey))
		if err != nil {
			return nil, err
		}
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, err
		}

		pt := make([]byte, 0, len(blk)+len(inner))
		pt = append(pt, blk...)
		pt = append(pt, inner...)

		wrapped := make([]byte, 0, GroupElementLength+len(pt)+aeadOverhead)
		wrapped = append(wrapped, ephPub.Bytes()...)
		wrapped = aead.Seal(wrapped, zeroNonce[:], pt, nil)
		aead.Reset()
		ephPriv.Reset()
		inner = wrapped
	}
	return inner, nil
}

// Unwrap strips a single encryption layer off packet using the node's
// private key.  Any failure is reported as ErrInvalidPacket; no detail is
// exposed that would let a prober distinguish failure causes.
func Unwrap(privateKey nike.PrivateKey, packet []byte) (*DecodedLayer, error) {
	if len(packet) < GroupElementLength+routingBlockLength+aeadOverhead {
		return nil, ErrInvalidPacket
	}

	ephPub, err := Scheme.UnmarshalBinaryPublicKey(packet[:GroupElementLength])
	if err != nil {
		return nil, ErrInvalidPacket
	}
	sharedSecret := Scheme.DeriveSecret(privateKey, ephPub)
	key, err := layerKey(sharedSecret)
	if err != nil {
		return nil, ErrInvalidPacket
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, ErrInvalidPacket
	}
	pt, err := aead.Open(nil, zeroNonce[:], packet[GroupElementLength:], nil)
	aead.Reset()
	if err != nil {
		return nil, ErrInvalidPacket
	}
	if len(pt) < routingBlockLength {
		return nil, ErrInvalidPacket
	}

	d := new(DecodedLayer)
	d.ReplayTag = hash.Sum256(sharedSecret)

	flags := pt[0]
	addrLen := int(pt[1])
	if addrLen > maxAddressLength {
		return nil, ErrInvalidPacket
	}
	addr := pt[2 : 2+addrLen]
	delayMsec := binary.BigEndian.Uint32(pt[routingBlockLength-4 : routingBlockLength])
	d.Delay = time.Duration(delayMsec) * time.Millisecond
	rest := pt[routingBlockLength:]

	switch flags {
	case flagForward:
		if len(rest) < GroupElementLength+routingBlockLength+aeadOverhead {
			// A forward layer must contain at least one more layer.
			return nil, ErrInvalidPacket
		}
		d.NextHop = string(addr)
		d.Packet = rest
	case flagTerminal:
		if len(rest) < payloadLengthPrefix {
			return nil, ErrInvalidPacket
		}
		payloadLen := binary.BigEndian.Uint32(rest[:payloadLengthPrefix])
		if int(payloadLen) > len(rest)-payloadLengthPrefix {
			return nil, ErrInvalidPacket
		}
		d.Terminal = true
		d.Recipient = append([]byte{}, addr...)
		d.Payload = rest[payloadLengthPrefix : payloadLengthPrefix+int(payloadLen)]
	default:
		return nil, ErrInvalidPacket
	}
	return d, nil
}
