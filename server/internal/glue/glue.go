// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package glue implements the glue structure that ties all the internal
// subpackages together.
package glue

import (
	"github.com/katzenpost/hpqc/nike"

	"github.com/sahith-narahari/nym/core/log"
	"github.com/sahith-narahari/nym/server/config"
	"github.com/sahith-narahari/nym/server/internal/packet"
)

// Glue is the structure that binds the internal components together.
type Glue interface {
	Config() *config.Config
	LogBackend() *log.Backend
	IdentityKey() nike.PrivateKey
	IdentityPublicKey() nike.PublicKey

	ReplayCache() ReplayCache
	Scheduler() Scheduler
	Connector() Connector
	Provider() Provider
}

type ReplayCache interface {
	Halt()
	TestAndSet([]byte) bool
}

type Scheduler interface {
	Halt()
	OnPacket(*packet.Packet)
}

type Connector interface {
	Halt()
	DispatchPacket(*packet.Packet)
}

type Listener interface {
	Halt()
}

// Provider handles packets that terminate at this node.  It is nil on a
// plain mix.
type Provider interface {
	Halt()
	OnPacket(*packet.Packet)
}
