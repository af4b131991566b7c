// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// nym-mixnode is the mix node daemon.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"

	"github.com/sahith-narahari/nym/core/keys"
	"github.com/sahith-narahari/nym/server"
	"github.com/sahith-narahari/nym/server/config"
)

var configFile string

func runServer(requireProvider bool) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if cfg.Server.IsProvider != requireProvider {
		if requireProvider {
			return fmt.Errorf("config does not describe a provider")
		}
		return fmt.Errorf("config describes a provider, use nym-provider")
	}

	svr, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to start server: %v", err)
	}
	defer svr.Shutdown()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	return nil
}

func initKeys() error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if err = os.MkdirAll(cfg.Server.DataDir, 0700); err != nil {
		return err
	}
	_, pub, err := keys.Generate(cfg.Server.DataDir)
	if err != nil {
		return err
	}
	fmt.Printf("Generated identity keypair in %v\npublic key: %x\n", cfg.Server.DataDir, pub.Bytes())
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "nym-mixnode",
		Short:   "Nym mix node",
		Version: versioninfo.Short(),
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "mixnode.toml", "path to the config file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the mix node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(false)
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
