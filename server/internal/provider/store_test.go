// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package provider

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreFetchRemoves(t *testing.T) {
	require := require.New(t)

	s, err := newStore(t.TempDir())
	require.NoError(err)
	defer s.close()

	recipient := []byte("alice")
	require.NoError(s.storeMessage(recipient, []byte("hello")))

	msgs, err := s.fetchMessages(recipient, 5)
	require.NoError(err)
	require.Equal([][]byte{[]byte("hello")}, msgs)

	// Fetched messages are gone.
	msgs, err = s.fetchMessages(recipient, 5)
	require.NoError(err)
	require.Empty(msgs)
}

func TestStoreRetrievalLimit(t *testing.T) {
	require := require.New(t)

	s, err := newStore(t.TempDir())
	require.NoError(err)
	defer s.close()

	recipient := []byte("bob")
	const total, limit = 8, 5
	for i := 0; i < total; i++ {
		require.NoError(s.storeMessage(recipient, []byte(fmt.Sprintf("msg-%d", i))))
	}

	msgs, err := s.fetchMessages(recipient, limit)
	require.NoError(err)
	require.Len(msgs, limit)

	msgs, err = s.fetchMessages(recipient, limit)
	require.NoError(err)
	require.Len(msgs, total-limit, "remainder survives for the next pull")
}

func TestStoreIsolatesRecipients(t *testing.T) {
	require := require.New(t)

	s, err := newStore(t.TempDir())
	require.NoError(err)
	defer s.close()

	require.NoError(s.storeMessage([]byte("alice"), []byte("for alice")))
	require.NoError(s.storeMessage([]byte("bob"), []byte("for bob")))

	msgs, err := s.fetchMessages([]byte("alice"), 5)
	require.NoError(err)
	require.Equal([][]byte{[]byte("for alice")}, msgs)

	msgs, err = s.fetchMessages([]byte("bob"), 5)
	require.NoError(err)
	require.Equal([][]byte{[]byte("for bob")}, msgs)
}

func TestClientLedger(t *testing.T) {
	require := require.New(t)

	l := newClientLedger()

	tok, err := l.register([]byte("alice"))
	require.NoError(err)
	require.Len(tok, authTokenLength)

	again, err := l.register([]byte("alice"))
	require.NoError(err)
	require.Equal(tok, again, "re-registration is idempotent")

	require.True(l.check([]byte("alice"), tok))
	require.False(l.check([]byte("alice"), make([]byte, authTokenLength)))
	require.False(l.check([]byte("mallory"), tok))
}
