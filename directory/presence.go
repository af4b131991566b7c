// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package directory implements the client side of the directory server's
// presence REST API: fetching topology snapshots and announcing this node's
// own presence.
package directory

import (
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"github.com/sahith-narahari/nym/core/pki"
	"github.com/sahith-narahari/nym/core/sphinx"
)

// MixNodePresence is the directory's view of a single mixnode.
type MixNodePresence struct {
	Host     string `json:"host"`
	PubKey   string `json:"pubKey"`
	Layer    uint32 `json:"layer"`
	LastSeen int64  `json:"lastSeen"`
	Version  string `json:"version"`
}

// MixProviderClient is a client registered with a provider.
type MixProviderClient struct {
	PubKey string `json:"pubKey"`
}

// MixProviderPresence is the directory's view of a single provider.
type MixProviderPresence struct {
	ClientListener    string              `json:"clientListener"`
	MixnetListener    string              `json:"mixnetListener"`
	PubKey            string              `json:"pubKey"`
	RegisteredClients []MixProviderClient `json:"registeredClients"`
	LastSeen          int64               `json:"lastSeen"`
	Version           string              `json:"version"`
}

// Topology is the wire representation of the full network state as served
// by the directory.
type Topology struct {
	MixNodes         []MixNodePresence     `json:"mixNodes"`
	MixProviderNodes []MixProviderPresence `json:"mixProviderNodes"`
}

func parseKey(s string) ([]byte, error) {
	return base64.URLEncoding.DecodeString(s)
}

// EncodeKey serializes a public key the way the directory expects it.
func EncodeKey(raw []byte) string {
	return base64.URLEncoding.EncodeToString(raw)
}

// Document converts the wire topology into a pki.Document.  Nodes with
// unparsable keys are skipped rather than failing the whole snapshot, since
// a single broken presence entry must not take down topology refresh.
// Layers are 1-based on the wire.
func (t *Topology) Document() (*pki.Document, error) {
	byLayer := make(map[uint32][]*pki.MixDescriptor)
	var maxLayer uint32
	for _, m := range t.MixNodes {
		if m.Layer == 0 {
			continue
		}
		raw, err := parseKey(m.PubKey)
		if err != nil {
			continue
		}
		pub, err := sphinx.Scheme.UnmarshalBinaryPublicKey(raw)
		if err != nil {
			continue
		}
		if m.Layer > maxLayer {
			maxLayer = m.Layer
		}
		byLayer[m.Layer] = append(byLayer[m.Layer], &pki.MixDescriptor{
			Name:        m.PubKey,
			IdentityKey: pub,
			Address:     m.Host,
			Layer:       m.Layer - 1,
			LastSeen:    time.Unix(m.LastSeen, 0),
		})
	}
	if maxLayer == 0 {
		return nil, fmt.Errorf("directory: topology has no mixnodes")
	}

	doc := &pki.Document{
		Topology:  make([][]*pki.MixDescriptor, maxLayer),
		Generated: time.Now(),
	}
	for layer, nodes := range byLayer {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
		doc.Topology[layer-1] = nodes
	}

	for _, p := range t.MixProviderNodes {
		raw, err := parseKey(p.PubKey)
		if err != nil {
			continue
		}
		pub, err := sphinx.Scheme.UnmarshalBinaryPublicKey(raw)
		if err != nil {
			continue
		}
		doc.Providers = append(doc.Providers, &pki.MixDescriptor{
			Name:          p.PubKey,
			IdentityKey:   pub,
			Address:       p.MixnetListener,
			ClientAddress: p.ClientListener,
			Provider:      true,
			LastSeen:      time.Unix(p.LastSeen, 0),
		})
	}
	return doc, nil
}
