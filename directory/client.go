// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	topologyEndpoint     = "/api/presence/topology"
	mixnodesEndpoint     = "/api/presence/mixnodes"
	mixProvidersEndpoint = "/api/presence/mixproviders"

	requestTimeout = 10 * time.Second
)

// Config is the directory client configuration.
type Config struct {
	// BaseURL is the directory server, e.g. "https://directory.example.org".
	BaseURL string
}

// Client talks to the directory server's REST API.
type Client struct {
	cfg  *Config
	http *http.Client
}

// New constructs a directory Client.
func New(cfg *Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: requestTimeout},
	}
}

// Topology fetches the current network topology.
func (c *Client) Topology(ctx context.Context) (*Topology, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+topologyEndpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory: topology fetch failed: %v", resp.Status)
	}
	t := new(Topology)
	if err = json.NewDecoder(resp.Body).Decode(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (c *Client) post(ctx context.Context, endpoint string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("directory: presence post failed: %v", resp.Status)
	}
	return nil
}

// PostMixNodePresence announces a mixnode to the directory.
func (c *Client) PostMixNodePresence(ctx context.Context, p *MixNodePresence) error {
	return c.post(ctx, mixnodesEndpoint, p)
}

// PostProviderPresence announces a provider to the directory.
func (c *Client) PostProviderPresence(ctx context.Context, p *MixProviderPresence) error {
	return c.post(ctx, mixProvidersEndpoint, p)
}
