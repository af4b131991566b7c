// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package server implements the mix server: a Sphinx packet processing
// pipeline of listener, crypto workers, replay cache, Poisson scheduler and
// outgoing connection manager, optionally carrying the store-and-forward
// provider on top.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/katzenpost/hpqc/nike"
	"gopkg.in/op/go-logging.v1"

	"github.com/sahith-narahari/nym/core/keys"
	"github.com/sahith-narahari/nym/core/log"
	"github.com/sahith-narahari/nym/core/worker"
	"github.com/sahith-narahari/nym/directory"
	"github.com/sahith-narahari/nym/server/config"
	"github.com/sahith-narahari/nym/server/internal/cryptoworker"
	"github.com/sahith-narahari/nym/server/internal/glue"
	"github.com/sahith-narahari/nym/server/internal/incoming"
	"github.com/sahith-narahari/nym/server/internal/instrument"
	"github.com/sahith-narahari/nym/server/internal/outgoing"
	"github.com/sahith-narahari/nym/server/internal/packet"
	"github.com/sahith-narahari/nym/server/internal/provider"
	"github.com/sahith-narahari/nym/server/internal/replay"
	"github.com/sahith-narahari/nym/server/internal/scheduler"
)

// Server is a mix server instance.
type Server struct {
	worker.Worker

	cfg        *config.Config
	logBackend *log.Backend
	log        *logging.Logger

	identityKey       nike.PrivateKey
	identityPublicKey nike.PublicKey

	dirClient     *directory.Client
	replayCache   glue.ReplayCache
	scheduler     glue.Scheduler
	connector     glue.Connector
	provider      glue.Provider
	listener      glue.Listener
	cryptoWorkers []*cryptoworker.Worker

	haltOnce sync.Once
}

// Config returns the server configuration.
func (s *Server) Config() *config.Config { return s.cfg }

// LogBackend returns the logging backend.
func (s *Server) LogBackend() *log.Backend { return s.logBackend }

// IdentityKey returns the node's Sphinx private key.
func (s *Server) IdentityKey() nike.PrivateKey { return s.identityKey }

// IdentityPublicKey returns the node's Sphinx public key.
func (s *Server) IdentityPublicKey() nike.PublicKey { return s.identityPublicKey }

// ReplayCache returns the replay tag cache.
func (s *Server) ReplayCache() glue.ReplayCache { return s.replayCache }

// Scheduler returns the mix scheduler.
func (s *Server) Scheduler() glue.Scheduler { return s.scheduler }

// Connector returns the outgoing connection manager.
func (s *Server) Connector() glue.Connector { return s.connector }

// Provider returns the store-and-forward provider, nil on a plain mix.
func (s *Server) Provider() glue.Provider { return s.provider }

// presenceWorker periodically announces this node to the directory so it
// stays in the active topology.
func (s *Server) presenceWorker() {
	interval := time.Duration(s.cfg.Directory.PresenceIntervalSec) * time.Second
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		s.notifyPresence()
		select {
		case <-s.HaltCh():
			s.log.Debugf("Terminating gracefully.")
			return
		case <-t.C:
		}
	}
}

func (s *Server) notifyPresence() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pubKey := directory.EncodeKey(s.identityPublicKey.Bytes())
	var err error
	if s.cfg.Server.IsProvider {
		err = s.dirClient.PostProviderPresence(ctx, &directory.MixProviderPresence{
			ClientListener: s.cfg.Provider.ClientListener,
			MixnetListener: s.cfg.Server.Address,
			PubKey:         pubKey,
			LastSeen:       time.Now().Unix(),
			Version:        versioninfo.Short(),
		})
	} else {
		err = s.dirClient.PostMixNodePresence(ctx, &directory.MixNodePresence{
			Host:     s.cfg.Server.Address,
			PubKey:   pubKey,
			Layer:    s.cfg.Server.Layer,
			LastSeen: time.Now().Unix(),
			Version:  versioninfo.Short(),
		})
	}
	if err != nil {
		s.log.Warningf("Failed to post presence: %v", err)
	}
}

// Shutdown cleanly shuts down the Server and all its workers.
func (s *Server) Shutdown() {
	s.haltOnce.Do(func() { s.halt() })
}

func (s *Server) halt() {
	s.log.Notice("Starting graceful shutdown.")
	s.Halt()

	// Tear down in reverse order of packet flow so nothing dispatches
	// into a dead component.
	if s.listener != nil {
		s.listener.Halt()
	}
	for _, w := range s.cryptoWorkers {
		w.Halt()
	}
	if s.scheduler != nil {
		s.scheduler.Halt()
	}
	if s.connector != nil {
		s.connector.Halt()
	}
	if s.provider != nil {
		s.provider.Halt()
	}
	if s.replayCache != nil {
		s.replayCache.Halt()
	}
	s.log.Notice("Shutdown complete.")
}

// New returns a new Server instance parameterized with the specified
// configuration.
func New(cfg *config.Config) (*Server, error) {
	logBackend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		logBackend: logBackend,
		log:        logBackend.GetLogger("server"),
	}
	s.log.Noticef("Server %v identifier is: '%v'", versioninfo.Short(), cfg.Server.Identifier)

	s.identityKey, s.identityPublicKey, err = keys.Load(cfg.Server.DataDir)
	if err != nil {
		return nil, err
	}
	s.log.Noticef("Sphinx public key is: %v", directory.EncodeKey(s.identityPublicKey.Bytes()))

	// Bring up subsystems in dependency order; tear down what came up if
	// any of them fail.
	isOk := false
	defer func() {
		if !isOk {
			s.Shutdown()
		}
	}()

	replayCache, err := replay.New(time.Duration(cfg.Debug.ReplayWindowSec) * time.Second)
	if err != nil {
		return nil, err
	}
	s.replayCache = replayCache
	s.connector = outgoing.New(s)
	s.scheduler = scheduler.New(s)
	if cfg.Server.IsProvider {
		s.provider, err = provider.New(s)
		if err != nil {
			return nil, err
		}
	}

	ingressCh := make(chan *packet.Packet, cfg.Debug.IngressQueueSize)
	for i := 0; i < cfg.Debug.NumSphinxWorkers; i++ {
		s.cryptoWorkers = append(s.cryptoWorkers, cryptoworker.New(s, ingressCh, i))
	}

	listener, err := incoming.New(s, ingressCh)
	if err != nil {
		return nil, err
	}
	s.listener = listener

	if cfg.Server.MetricsAddress != "" {
		instrument.StartMetricsEndpoint(cfg.Server.MetricsAddress)
		s.log.Noticef("Metrics endpoint on: %v", cfg.Server.MetricsAddress)
	}

	if cfg.Directory.BaseURL != "" {
		s.dirClient = directory.New(&directory.Config{BaseURL: cfg.Directory.BaseURL})
		s.Go(s.presenceWorker)
	}

	isOk = true
	return s, nil
}
