// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package client implements the mix network client: topology tracking, path
// selection, packet construction and dispatch, loop cover traffic, and
// message retrieval from the store-and-forward provider.
package client

import (
	"encoding/binary"
	"errors"
	"fmt"
	mrand "math/rand"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/katzenpost/hpqc/nike"
	"github.com/katzenpost/hpqc/rand"
	"gopkg.in/op/go-logging.v1"

	"github.com/sahith-narahari/nym/client/config"
	"github.com/sahith-narahari/nym/core/keys"
	"github.com/sahith-narahari/nym/core/log"
	"github.com/sahith-narahari/nym/core/pki"
	"github.com/sahith-narahari/nym/core/poisson"
	"github.com/sahith-narahari/nym/core/sphinx"
	"github.com/sahith-narahari/nym/core/worker"
	"github.com/sahith-narahari/nym/directory"
	"github.com/sahith-narahari/nym/sfw"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second

	coverPayload = "loop cover"
)

// Client is a mix network client instance.
type Client struct {
	worker.Worker

	cfg        *config.Config
	logBackend *log.Backend
	log        *logging.Logger

	privateKey nike.PrivateKey
	publicKey  nike.PublicKey

	cache     *pki.Cache
	refresher *directory.Refresher
	factory   *PacketFactory
	geo       *sphinx.Geometry

	rngLock sync.Mutex
	rng     *mrand.Rand

	haltOnce sync.Once
}

// Identity returns the client's recipient identifier as known to providers.
func (c *Client) Identity() []byte {
	return []byte(directory.EncodeKey(c.publicKey.Bytes()))
}

// LogBackend returns the client's logging backend.
func (c *Client) LogBackend() *log.Backend {
	return c.logBackend
}

// Topology returns the current topology snapshot, or an error if none has
// been fetched yet.
func (c *Client) Topology() (*pki.Document, error) {
	return c.cache.Document()
}

func (c *Client) provider(doc *pki.Document) (*pki.MixDescriptor, error) {
	if name := c.cfg.Client.Provider; name != "" {
		p, err := doc.GetProvider(name)
		if err != nil {
			return nil, pki.ErrUnknownProvider
		}
		return p, nil
	}
	if len(doc.Providers) == 0 {
		return nil, pki.ErrTopologyUnusable
	}
	return doc.Providers[c.rng.Intn(len(doc.Providers))], nil
}

// SendMessage wraps payload for the given recipient and dispatches it into
// the mix network via a freshly selected path.  Topology, provider and
// payload-size failures surface synchronously before any network activity;
// the message is not retried on forward failure.
func (c *Client) SendMessage(recipient, payload []byte) error {
	doc, err := c.cache.Document()
	if err != nil {
		return err
	}
	c.rngLock.Lock()
	provider, err := c.provider(doc)
	if err != nil {
		c.rngLock.Unlock()
		return err
	}
	path, err := NewPath(c.rng, doc, provider)
	c.rngLock.Unlock()
	if err != nil {
		return err
	}
	pkt, err := c.factory.BuildPacket(path, recipient, payload)
	if err != nil {
		return err
	}

	c.log.Debugf("Sending %d byte packet via %v (ETA %v)", len(pkt.Raw), pkt.FirstHop, pkt.TotalDelay)
	return sendFrame(pkt.FirstHop, pkt.Raw)
}

// sendFrame writes a single length-prefixed packet frame to addr.
func sendFrame(addr string, raw []byte) error {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("client: dial %v: %v", addr, err)
	}
	defer conn.Close()
	if err = conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(raw)))
	if _, err = conn.Write(hdr[:]); err != nil {
		return err
	}
	_, err = conn.Write(raw)
	return err
}

// Fetch retrieves stored messages from the client's provider, registering
// on first use.
func (c *Client) Fetch() ([][]byte, error) {
	doc, err := c.cache.Document()
	if err != nil {
		return nil, err
	}
	c.rngLock.Lock()
	provider, err := c.provider(doc)
	c.rngLock.Unlock()
	if err != nil {
		return nil, err
	}
	if provider.ClientAddress == "" {
		return nil, errors.New("client: provider has no client listener")
	}

	conn, err := net.DialTimeout("tcp", provider.ClientAddress, dialTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if err = conn.SetDeadline(time.Now().Add(writeTimeout)); err != nil {
		return nil, err
	}

	// Register to obtain the auth token, then pull.  Registration is
	// idempotent on the provider side.
	if err = sfw.WriteFrame(conn, &sfw.Request{Register: &sfw.RegisterRequest{Recipient: c.Identity()}}); err != nil {
		return nil, err
	}
	var regResp sfw.Response
	if err = sfw.ReadFrame(conn, &regResp); err != nil {
		return nil, err
	}
	if regResp.Error != "" {
		return nil, fmt.Errorf("client: register: %v", regResp.Error)
	}

	if err = sfw.WriteFrame(conn, &sfw.Request{Pull: &sfw.PullRequest{
		AuthToken: regResp.AuthToken,
		Recipient: c.Identity(),
	}}); err != nil {
		return nil, err
	}
	var pullResp sfw.Response
	if err = sfw.ReadFrame(conn, &pullResp); err != nil {
		return nil, err
	}
	if pullResp.Error != "" {
		return nil, fmt.Errorf("client: pull: %v", pullResp.Error)
	}
	return pullResp.Messages, nil
}

// coverWorker emits loop cover packets addressed back to this client on a
// Poisson schedule, so that real traffic is indistinguishable from the
// background send rate.
func (c *Client) coverWorker() {
	lambda := 1.0 / float64(c.cfg.Debug.CoverTrafficRateMsec)
	timer := poisson.NewTimer(&poisson.Descriptor{
		Lambda: lambda,
		Max:    uint64(10 * c.cfg.Debug.CoverTrafficRateMsec),
	})
	timer.Start()
	defer timer.Stop()

	for {
		select {
		case <-c.HaltCh():
			c.log.Debugf("Terminating gracefully.")
			return
		case <-timer.Timer.C:
			if err := c.SendMessage(c.Identity(), []byte(coverPayload)); err != nil {
				c.log.Debugf("Failed to send loop cover packet: %v", err)
			}
			timer.Next()
		}
	}
}

// Shutdown cleanly shuts down the Client.
func (c *Client) Shutdown() {
	c.haltOnce.Do(func() {
		c.refresher.Halt()
		c.Halt()
		c.log.Notice("Shutdown complete.")
	})
}

// New constructs a Client from the provided configuration, loading the
// keypair from the data directory.
func New(cfg *config.Config) (*Client, error) {
	logBackend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		logBackend: logBackend,
		log:        logBackend.GetLogger("client"),
		cache:      pki.NewCache(),
		geo:        sphinx.DefaultGeometry(),
		rng:        rand.NewMath(),
	}

	c.privateKey, c.publicKey, err = keys.Load(filepath.Clean(cfg.Client.DataDir))
	if err != nil {
		return nil, err
	}

	c.factory = NewPacketFactory(
		c.geo,
		rand.NewMath(),
		time.Duration(cfg.Debug.MeanDelayMsec)*time.Millisecond,
		time.Duration(cfg.Debug.MaxDelayMsec)*time.Millisecond,
	)

	dirClient := directory.New(&directory.Config{BaseURL: cfg.Client.Directory})
	c.refresher = directory.NewRefresher(
		dirClient,
		c.cache,
		time.Duration(cfg.Debug.TopologyRefreshSec)*time.Second,
		logBackend.GetLogger("directory"),
	)

	if cfg.Debug.CoverTrafficRateMsec > 0 {
		c.Go(c.coverWorker)
	}
	return c, nil
}
