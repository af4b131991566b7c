// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// nym-client is the mix network client.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"

	"github.com/sahith-narahari/nym/client"
	"github.com/sahith-narahari/nym/client/config"
	"github.com/sahith-narahari/nym/core/keys"
	"github.com/sahith-narahari/nym/core/pki"
)

const topologyWait = 30 * time.Second

var configFile string

func newClient() (*client.Client, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}
	return client.New(cfg)
}

// waitForTopology blocks until the background refresher has produced a
// usable topology snapshot.
func waitForTopology(c *client.Client) error {
	deadline := time.Now().Add(topologyWait)
	for {
		_, err := c.Topology()
		if err == nil {
			return nil
		}
		if !errors.Is(err, pki.ErrNotYetAvailable) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for topology")
		}
		time.Sleep(250 * time.Millisecond)
	}
}

func initKeys() error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if err = os.MkdirAll(cfg.Client.DataDir, 0700); err != nil {
		return err
	}
	_, pub, err := keys.Generate(cfg.Client.DataDir)
	if err != nil {
		return err
	}
	fmt.Printf("Generated identity keypair in %v\npublic key: %x\n", cfg.Client.DataDir, pub.Bytes())
	return nil
}

func send(recipient, message string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Shutdown()

	if err = waitForTopology(c); err != nil {
		return err
	}
	if err = c.SendMessage([]byte(recipient), []byte(message)); err != nil {
		return fmt.Errorf("send failed: %v", err)
	}
	fmt.Println("Message dispatched.")
	return nil
}

func fetch() error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Shutdown()

	if err = waitForTopology(c); err != nil {
		return err
	}
	msgs, err := c.Fetch()
	if err != nil {
		return fmt.Errorf("fetch failed: %v", err)
	}
	fmt.Printf("Retrieved %d message(s).\n", len(msgs))
	for _, msg := range msgs {
		fmt.Printf("  %s\n", msg)
	}
	return nil
}

// run keeps the client alive so cover traffic flows, until interrupted.
func run() error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Shutdown()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "nym-client",
		Short:   "Nym mix network client",
		Version: versioninfo.Short(),
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "client.toml", "path to the config file")

	var recipient, message string
	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message through the mix network",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(recipient, message)
		},
	}
	sendCmd.Flags().StringVarP(&recipient, "recipient", "r", "", "recipient identifier")
	sendCmd.Flags().StringVarP(&message, "message", "m", "", "message body")
	_ = sendCmd.MarkFlagRequired("recipient")
	_ = sendCmd.MarkFlagRequired("message")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "fetch",
		Short: "Retrieve stored messages from the provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fetch()
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the client with loop cover traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Generate the identity keypair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initKeys()
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
