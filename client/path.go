// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	mrand "math/rand"

	"github.com/sahith-narahari/nym/core/pki"
)

// NewPath selects a route through the mix network: one node sampled
// uniformly at random from every topology layer, terminated by the
// destination provider.  A fresh path MUST be selected for every packet;
// reusing paths across packets links them.
//
// The destination provider must be a member of the document's provider set
// (its sphinx key comes from the same snapshot); otherwise
// pki.ErrUnknownProvider is returned.
func NewPath(rng *mrand.Rand, doc *pki.Document, provider *pki.MixDescriptor) ([]*pki.MixDescriptor, error) {
	if doc == nil {
		return nil, pki.ErrNotYetAvailable
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if !doc.HasProvider(provider) {
		return nil, pki.ErrUnknownProvider
	}

	path := make([]*pki.MixDescriptor, 0, len(doc.Topology)+1)
	for _, layer := range doc.Topology {
		path = append(path, layer[rng.Intn(len(layer))])
	}
	return append(path, provider), nil
}
