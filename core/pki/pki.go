// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package pki provides the mix network topology data model.
package pki

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/katzenpost/hpqc/nike"
)

var (
	// ErrNotYetAvailable is the error returned when no topology document
	// has been fetched yet.  Callers can distinguish "not initialized"
	// from "the network is currently empty".
	ErrNotYetAvailable = errors.New("pki: topology not yet available")

	// ErrTopologyUnusable is the error returned when a document cannot be
	// used for path construction, typically because a layer is empty.
	ErrTopologyUnusable = errors.New("pki: topology unusable")

	// ErrUnknownProvider is the error returned when the destination
	// provider is not listed in the topology document.
	ErrUnknownProvider = errors.New("pki: unknown provider")

	// ErrNoSuchNode is the error returned by lookup helpers.
	ErrNoSuchNode = errors.New("pki: no such node")
)

// MixDescriptor describes a single mix or provider node.  Descriptors are
// immutable once constructed; a topology refresh replaces them wholesale.
type MixDescriptor struct {
	// Name is the human readable node identifier.
	Name string

	// IdentityKey is the node's long term X25519 key, used both to
	// identify the node and as its Sphinx unwrap key.
	IdentityKey nike.PublicKey

	// Address is the node's mix network listener, host:port.
	Address string

	// ClientAddress is the provider's client-facing listener, host:port.
	// Empty for plain mixes.
	ClientAddress string

	// Layer is the topology layer the node belongs to.  Meaningless for
	// providers.
	Layer uint32

	// Provider is true iff the node is a store-and-forward provider.
	Provider bool

	// LastSeen is when the directory last saw this node's presence.
	LastSeen time.Time
}

func (d *MixDescriptor) String() string {
	role := fmt.Sprintf("layer %d", d.Layer)
	if d.Provider {
		role = "provider"
	}
	return fmt.Sprintf("%s@%s (%s)", d.Name, d.Address, role)
}

// Document is a complete point-in-time topology snapshot: the ordered mix
// layers plus the provider set.  A Document is never mutated after
// construction; refreshes swap in an entirely new one.
type Document struct {
	// Topology is the mix network topology, excluding providers.  Packets
	// traverse one node per layer, in order.
	Topology [][]*MixDescriptor

	// Providers is the set of store-and-forward providers.
	Providers []*MixDescriptor

	// Generated is when this snapshot was assembled.
	Generated time.Time
}

func (d *Document) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "topology: %d layers (", len(d.Topology))
	for i, l := range d.Topology {
		if i != 0 {
			b.WriteString("/")
		}
		fmt.Fprintf(&b, "%d", len(l))
	}
	fmt.Fprintf(&b, " nodes), %d providers", len(d.Providers))
	return b.String()
}

// Validate returns ErrTopologyUnusable iff the document cannot be used for
// path construction: no layers, an empty layer, or no providers.
func (d *Document) Validate() error {
	if len(d.Topology) == 0 {
		return ErrTopologyUnusable
	}
	for _, layer := range d.Topology {
		if len(layer) == 0 {
			return ErrTopologyUnusable
		}
	}
	if len(d.Providers) == 0 {
		return ErrTopologyUnusable
	}
	return nil
}

// GetProvider returns the named provider descriptor.
func (d *Document) GetProvider(name string) (*MixDescriptor, error) {
	for _, v := range d.Providers {
		if v.Name == name {
			return v, nil
		}
	}
	return nil, ErrNoSuchNode
}

// HasProvider returns true iff the given descriptor's identity key matches a
// member of the document's provider set.
func (d *Document) HasProvider(desc *MixDescriptor) bool {
	if desc == nil || desc.IdentityKey == nil {
		return false
	}
	raw := desc.IdentityKey.Bytes()
	for _, v := range d.Providers {
		if string(v.IdentityKey.Bytes()) == string(raw) {
			return true
		}
	}
	return false
}

// GetMixesInLayer returns the descriptors for the given topology layer.
func (d *Document) GetMixesInLayer(layer uint32) ([]*MixDescriptor, error) {
	if int(layer) >= len(d.Topology) {
		return nil, ErrNoSuchNode
	}
	return d.Topology[layer], nil
}
