// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package config provides the mix server configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

const (
	defaultLogLevel = "NOTICE"

	defaultIngressQueueSize  = 1000
	defaultSchedulerSlack    = 150   // ms
	defaultSchedulerMaxBurst = 16
	defaultMaxDelayMsec      = 90000 // 90 sec
	defaultReplayWindowSec   = 600   // 10 min
	defaultPresenceSec       = 10
	defaultTopologySec       = 30
	defaultRetrievalLimit    = 5
)

// Server is the mix server configuration.
type Server struct {
	// Identifier is the human readable node identifier.
	Identifier string

	// Address is the mix network listener, host:port.
	Address string

	// DataDir is where the node's keypair (and provider store) live.
	DataDir string

	// IsProvider indicates that the node is a store-and-forward provider
	// instead of a plain mix.
	IsProvider bool

	// Layer is the 1-based mix layer announced to the directory.  Ignored
	// for providers.
	Layer uint32

	// MetricsAddress, if set, exposes prometheus metrics over HTTP.
	MetricsAddress string
}

func (sCfg *Server) validate() error {
	if sCfg.Identifier == "" {
		return errors.New("config: Server: Identifier is not set")
	}
	if _, _, err := net.SplitHostPort(sCfg.Address); err != nil {
		return fmt.Errorf("config: Server: Address '%v' is invalid: %v", sCfg.Address, err)
	}
	if sCfg.DataDir == "" {
		return errors.New("config: Server: DataDir is not set")
	}
	if !filepath.IsAbs(sCfg.DataDir) {
		return fmt.Errorf("config: Server: DataDir '%v' is not an absolute path", sCfg.DataDir)
	}
	if !sCfg.IsProvider && sCfg.Layer == 0 {
		return errors.New("config: Server: Layer is not set")
	}
	return nil
}

// Directory is the directory server section.
type Directory struct {
	// BaseURL is the directory server base URL.
	BaseURL string

	// PresenceIntervalSec is how often the node announces itself.
	PresenceIntervalSec int

	// TopologyIntervalSec is how often the topology is refreshed.
	TopologyIntervalSec int
}

func (dCfg *Directory) applyDefaults() {
	if dCfg.PresenceIntervalSec <= 0 {
		dCfg.PresenceIntervalSec = defaultPresenceSec
	}
	if dCfg.TopologyIntervalSec <= 0 {
		dCfg.TopologyIntervalSec = defaultTopologySec
	}
}

// Provider is the store-and-forward provider section, required iff
// Server.IsProvider is set.
type Provider struct {
	// ClientListener is the client-facing listener, host:port.
	ClientListener string

	// RetrievalLimit caps the number of messages returned per pull.
	RetrievalLimit int
}

func (pCfg *Provider) validate() error {
	if _, _, err := net.SplitHostPort(pCfg.ClientListener); err != nil {
		return fmt.Errorf("config: Provider: ClientListener '%v' is invalid: %v", pCfg.ClientListener, err)
	}
	return nil
}

func (pCfg *Provider) applyDefaults() {
	if pCfg.RetrievalLimit <= 0 {
		pCfg.RetrievalLimit = defaultRetrievalLimit
	}
}

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stdout will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	switch lCfg.Level {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lCfg.Level = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	return nil
}

// Debug is the debug and tuning configuration.
type Debug struct {
	// NumSphinxWorkers specifies the number of worker instances to use
	// for inbound Sphinx packet processing.
	NumSphinxWorkers int

	// IngressQueueSize bounds the number of packets admitted but not yet
	// decrypted; above it new packets are dropped, not queued.
	IngressQueueSize int

	// SchedulerQueueSize bounds the number of delayed packets; 0 means
	// unbounded.  When over capacity a random victim is discarded.
	SchedulerQueueSize int

	// SchedulerMaxBurst is the maximum number of packets dispatched per
	// scheduler wakeup.
	SchedulerMaxBurst int

	// SchedulerSlackMsec is how far past its deadline a packet may be
	// dispatched before it is dropped instead.
	SchedulerSlackMsec int

	// MaxDelayMsec caps the per-hop delay a packet may request.
	MaxDelayMsec int

	// ReplayWindowSec is how long replay tags are remembered.  It must
	// comfortably exceed the maximum plausible end-to-end delay.
	ReplayWindowSec int
}

func (dCfg *Debug) applyDefaults() {
	if dCfg.NumSphinxWorkers <= 0 {
		// The mix keys are the hot shared resource; pin workers to cores.
		dCfg.NumSphinxWorkers = runtime.NumCPU()
	}
	if dCfg.IngressQueueSize <= 0 {
		dCfg.IngressQueueSize = defaultIngressQueueSize
	}
	if dCfg.SchedulerMaxBurst <= 0 {
		dCfg.SchedulerMaxBurst = defaultSchedulerMaxBurst
	}
	if dCfg.SchedulerSlackMsec <= 0 {
		dCfg.SchedulerSlackMsec = defaultSchedulerSlack
	}
	if dCfg.MaxDelayMsec <= 0 {
		dCfg.MaxDelayMsec = defaultMaxDelayMsec
	}
	if dCfg.ReplayWindowSec <= 0 {
		dCfg.ReplayWindowSec = defaultReplayWindowSec
	}
}

// Config is the top level mix server configuration.
type Config struct {
	Server    *Server
	Directory *Directory
	Provider  *Provider
	Logging   *Logging
	Debug     *Debug
}

// FixupAndValidate applies defaults to config entries and validates the
// supplied configuration.
func (cfg *Config) FixupAndValidate() error {
	if cfg.Server == nil {
		return errors.New("config: No Server block was present")
	}
	if cfg.Logging == nil {
		cfg.Logging = &Logging{}
	}
	if cfg.Debug == nil {
		cfg.Debug = &Debug{}
	}
	if cfg.Directory == nil {
		cfg.Directory = &Directory{}
	}
	cfg.Debug.applyDefaults()
	cfg.Directory.applyDefaults()

	if err := cfg.Server.validate(); err != nil {
		return err
	}
	if cfg.Server.IsProvider {
		if cfg.Provider == nil {
			return errors.New("config: Server is a provider but no Provider block was present")
		}
		cfg.Provider.applyDefaults()
		if err := cfg.Provider.validate(); err != nil {
			return err
		}
	}
	return cfg.Logging.validate()
}

// Load parses and validates the provided buffer b as a config body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
