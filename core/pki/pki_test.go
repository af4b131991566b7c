// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package pki

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sahith-narahari/nym/core/sphinx"
)

func genDescriptor(t *testing.T, name string, layer uint32, provider bool) *MixDescriptor {
	pub, _, err := sphinx.Scheme.GenerateKeyPair()
	require.NoError(t, err)
	return &MixDescriptor{
		Name:        name,
		IdentityKey: pub,
		Address:     fmt.Sprintf("127.0.0.1:%d", 20000+layer),
		Layer:       layer,
		Provider:    provider,
		LastSeen:    time.Now(),
	}
}

func genDocument(t *testing.T, layers, width, providers int) *Document {
	d := &Document{Generated: time.Now()}
	for i := 0; i < layers; i++ {
		var l []*MixDescriptor
		for j := 0; j < width; j++ {
			l = append(l, genDescriptor(t, fmt.Sprintf("mix-%d-%d", i, j), uint32(i), false))
		}
		d.Topology = append(d.Topology, l)
	}
	for i := 0; i < providers; i++ {
		d.Providers = append(d.Providers, genDescriptor(t, fmt.Sprintf("provider-%d", i), 0, true))
	}
	return d
}

func TestDocumentValidate(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	require.NoError(genDocument(t, 3, 2, 1).Validate())

	require.ErrorIs((&Document{}).Validate(), ErrTopologyUnusable, "no layers")

	d := genDocument(t, 3, 2, 1)
	d.Topology[1] = nil
	require.ErrorIs(d.Validate(), ErrTopologyUnusable, "empty layer")

	d = genDocument(t, 3, 2, 0)
	require.ErrorIs(d.Validate(), ErrTopologyUnusable, "no providers")
}

func TestDocumentLookup(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	d := genDocument(t, 2, 2, 2)

	p, err := d.GetProvider("provider-1")
	require.NoError(err)
	require.True(d.HasProvider(p))

	_, err = d.GetProvider("nonexistent")
	require.ErrorIs(err, ErrNoSuchNode)

	stranger := genDescriptor(t, "stranger", 0, true)
	require.False(d.HasProvider(stranger))

	l, err := d.GetMixesInLayer(1)
	require.NoError(err)
	require.Len(l, 2)
	_, err = d.GetMixesInLayer(7)
	require.ErrorIs(err, ErrNoSuchNode)
}

func TestCache(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	c := NewCache()
	_, err := c.Document()
	require.ErrorIs(err, ErrNotYetAvailable, "empty cache")

	docA := genDocument(t, 2, 2, 1)
	c.Set(docA)
	got, err := c.Document()
	require.NoError(err)
	require.Same(docA, got)

	// A reader holding the old snapshot is unaffected by a refresh.
	docB := genDocument(t, 3, 1, 1)
	c.Set(docB)
	require.Same(docA, got)
	got, err = c.Document()
	require.NoError(err)
	require.Same(docB, got)
}

func TestCacheConcurrent(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.Set(genDocument(t, 2, 2, 1))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d, err := c.Document()
				require.NoError(t, err)
				require.NoError(t, d.Validate())
			}
		}()
	}
	for i := 0; i < 50; i++ {
		c.Set(genDocument(t, 2, 2, 1))
	}
	wg.Wait()
}
