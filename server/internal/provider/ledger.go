// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package provider

import (
	"crypto/subtle"
	"sync"

	"github.com/katzenpost/hpqc/rand"
)

const authTokenLength = 32

// clientLedger tracks registered clients and their pull auth tokens.
type clientLedger struct {
	sync.Mutex

	tokens map[string][]byte
}

// register returns the auth token for the recipient, minting one on first
// registration.  Re-registration is idempotent.
func (l *clientLedger) register(recipient []byte) ([]byte, error) {
	l.Lock()
	defer l.Unlock()

	if tok, ok := l.tokens[string(recipient)]; ok {
		return tok, nil
	}
	tok := make([]byte, authTokenLength)
	if _, err := rand.Reader.Read(tok); err != nil {
		return nil, err
	}
	l.tokens[string(recipient)] = tok
	return tok, nil
}

// check returns true iff token is the recipient's registered auth token.
func (l *clientLedger) check(recipient, token []byte) bool {
	l.Lock()
	tok, ok := l.tokens[string(recipient)]
	l.Unlock()
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare(tok, token) == 1
}

func newClientLedger() *clientLedger {
	return &clientLedger{tokens: make(map[string][]byte)}
}
