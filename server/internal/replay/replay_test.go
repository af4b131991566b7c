// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package replay

import (
	"testing"
	"time"

	"github.com/katzenpost/hpqc/rand"
	"github.com/stretchr/testify/require"
)

func TestCacheTestAndSet(t *testing.T) {
	require := require.New(t)

	c, err := New(time.Minute)
	require.NoError(err)
	defer c.Halt()

	var tag [32]byte
	_, err = rand.Reader.Read(tag[:])
	require.NoError(err)

	require.False(c.TestAndSet(tag[:]), "fresh tag must not be flagged")
	require.True(c.TestAndSet(tag[:]), "second submission must be flagged")
	require.True(c.TestAndSet(tag[:]), "and every one after that")

	var other [32]byte
	_, err = rand.Reader.Read(other[:])
	require.NoError(err)
	require.False(c.TestAndSet(other[:]), "unrelated tag must not be flagged")
}

func TestCacheSurvivesRotation(t *testing.T) {
	require := require.New(t)

	c, err := New(time.Minute)
	require.NoError(err)
	defer c.Halt()

	var tag [32]byte
	_, err = rand.Reader.Read(tag[:])
	require.NoError(err)
	require.False(c.TestAndSet(tag[:]))

	// One rotation moves the current generation to prev; the tag must
	// still be remembered.
	f, err := newFilter()
	require.NoError(err)
	c.Lock()
	c.prev = c.cur
	c.cur = f
	c.Unlock()

	require.True(c.TestAndSet(tag[:]), "tag remembered across one rotation")
}
