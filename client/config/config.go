// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package config provides the client configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	defaultLogLevel = "NOTICE"

	defaultMeanDelayMsec   = 50
	defaultMaxDelayMsec    = 30000
	defaultTopologyRefresh = 30 // seconds
)

// Client is the client configuration.
type Client struct {
	// Identifier is the human readable client identifier.
	Identifier string

	// DataDir is where the client's keypair lives.
	DataDir string

	// Directory is the directory server base URL.
	Directory string

	// Provider is the name of the preferred provider; the empty string
	// means a provider is picked at random from the topology.
	Provider string
}

func (cCfg *Client) validate() error {
	if cCfg.Identifier == "" {
		return errors.New("config: Client: Identifier is not set")
	}
	if cCfg.DataDir == "" {
		return errors.New("config: Client: DataDir is not set")
	}
	if !filepath.IsAbs(cCfg.DataDir) {
		return fmt.Errorf("config: Client: DataDir '%v' is not an absolute path", cCfg.DataDir)
	}
	if cCfg.Directory == "" {
		return errors.New("config: Client: Directory is not set")
	}
	return nil
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
	// MeanDelayMsec is the mean per-hop mixing delay in milliseconds.
	MeanDelayMsec int

	// MaxDelayMsec clamps sampled per-hop delays.
	MaxDelayMsec int

	// TopologyRefreshSec is the topology poll interval in seconds.
	TopologyRefreshSec int

	// CoverTrafficRateMsec is the mean interval between loop cover
	// packets in milliseconds.  0 disables cover traffic.
	CoverTrafficRateMsec int
}

func (dCfg *Debug) applyDefaults() {
	if dCfg.MeanDelayMsec <= 0 {
		dCfg.MeanDelayMsec = defaultMeanDelayMsec
	}
	if dCfg.MaxDelayMsec <= 0 {
		dCfg.MaxDelayMsec = defaultMaxDelayMsec
	}
	if dCfg.TopologyRefreshSec <= 0 {
		dCfg.TopologyRefreshSec = defaultTopologyRefresh
	}
}

// Config is the top level client configuration.
type Config struct {
	Client  *Client
	Logging *Logging
	Debug   *Debug
}

// FixupAndValidate applies defaults to config entries and validates the
// supplied configuration.
func (cfg *Config) FixupAndValidate() error {
	if cfg.Client == nil {
		return errors.New("config: No Client block was present")
	}
	if cfg.Logging == nil {
		cfg.Logging = &Logging{}
	}
	if cfg.Debug == nil {
		cfg.Debug = &Debug{}
	}
	cfg.Debug.applyDefaults()

	if err := cfg.Client.validate(); err != nil {
		return err
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
