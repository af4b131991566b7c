// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMixConfig(t *testing.T) {
	require := require.New(t)

	const raw = `
[Server]
Identifier = "mix-1"
Address = "127.0.0.1:30001"
DataDir = "/var/lib/nym-mixnode"
Layer = 2

[Directory]
BaseURL = "https://directory.example.org"

[Logging]
Level = "DEBUG"

[Debug]
NumSphinxWorkers = 4
`
	cfg, err := Load([]byte(raw))
	require.NoError(err)
	require.Equal("mix-1", cfg.Server.Identifier)
	require.Equal(uint32(2), cfg.Server.Layer)
	require.False(cfg.Server.IsProvider)
	require.Equal(4, cfg.Debug.NumSphinxWorkers)
	require.Equal(defaultSchedulerMaxBurst, cfg.Debug.SchedulerMaxBurst, "defaults applied")
	require.Equal(defaultReplayWindowSec, cfg.Debug.ReplayWindowSec)
	require.Equal(defaultPresenceSec, cfg.Directory.PresenceIntervalSec)
}

func TestLoadProviderConfig(t *testing.T) {
	require := require.New(t)

	const raw = `
[Server]
Identifier = "provider-1"
Address = "127.0.0.1:30010"
DataDir = "/var/lib/nym-provider"
IsProvider = true

[Provider]
ClientListener = "127.0.0.1:9001"
`
	cfg, err := Load([]byte(raw))
	require.NoError(err)
	require.True(cfg.Server.IsProvider)
	require.Equal("127.0.0.1:9001", cfg.Provider.ClientListener)
	require.Equal(defaultRetrievalLimit, cfg.Provider.RetrievalLimit)
}

func TestConfigValidation(t *testing.T) {
	require := require.New(t)

	// Missing Server block.
	_, err := Load([]byte(`[Logging]`))
	require.Error(err)

	// Relative DataDir.
	_, err = Load([]byte(`
[Server]
Identifier = "mix-1"
Address = "127.0.0.1:30001"
DataDir = "relative/path"
Layer = 1
`))
	require.Error(err)

	// Mix without a layer.
	_, err = Load([]byte(`
[Server]
Identifier = "mix-1"
Address = "127.0.0.1:30001"
DataDir = "/var/lib/nym-mixnode"
`))
	require.Error(err)

	// Provider without a Provider block.
	_, err = Load([]byte(`
[Server]
Identifier = "provider-1"
Address = "127.0.0.1:30010"
DataDir = "/var/lib/nym-provider"
IsProvider = true
`))
	require.Error(err)

	// Bogus log level.
	_, err = Load([]byte(`
[Server]
Identifier = "mix-1"
Address = "127.0.0.1:30001"
DataDir = "/var/lib/nym-mixnode"
Layer = 1

[Logging]
Level = "LOUD"
`))
	require.Error(err)
}
