// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package keys loads and stores a node's long term X25519 keypair.  The
// core only ever consumes loaded key material; generation happens once, at
// `init` time.
package keys

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/katzenpost/hpqc/nike"

	"github.com/sahith-narahari/nym/core/sphinx"
)

const (
	privateKeyFile = "identity.private"
	publicKeyFile  = "identity.public"

	keyFileMode = 0600
)

// ErrNoKeypair is returned by Load when the data directory contains no
// keypair.
var ErrNoKeypair = errors.New("keys: no keypair found")

func keyPaths(dataDir string) (string, string) {
	return filepath.Join(dataDir, privateKeyFile), filepath.Join(dataDir, publicKeyFile)
}

func writeKey(path string, raw []byte) error {
	b := base64.StdEncoding.EncodeToString(raw) + "\n"
	return os.WriteFile(path, []byte(b), keyFileMode)
}

func readKey(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(string(b)))
}

// Generate creates a fresh keypair and persists it into dataDir, refusing
// to clobber an existing one.
func Generate(dataDir string) (nike.PrivateKey, nike.PublicKey, error) {
	privPath, pubPath := keyPaths(dataDir)
	if _, err := os.Stat(privPath); err == nil {
		return nil, nil, fmt.Errorf("keys: refusing to overwrite %v", privPath)
	}

	pub, priv, err := sphinx.Scheme.GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}
	if err = writeKey(privPath, priv.Bytes()); err != nil {
		return nil, nil, err
	}
	if err = writeKey(pubPath, pub.Bytes()); err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}

// Load reads the keypair persisted in dataDir.
func Load(dataDir string) (nike.PrivateKey, nike.PublicKey, error) {
	privPath, _ := keyPaths(dataDir)
	raw, err := readKey(privPath)
	if os.IsNotExist(err) {
		return nil, nil, ErrNoKeypair
	} else if err != nil {
		return nil, nil, err
	}

	priv, err := sphinx.Scheme.UnmarshalBinaryPrivateKey(raw)
	if err != nil {
		return nil, nil, err
	}
	return priv, priv.Public(), nil
}
