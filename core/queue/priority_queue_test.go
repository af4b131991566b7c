// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package queue

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriorityQueue(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	testEntries := []Entry{
		{Value: []byte("the mucky-muck"), Priority: 0},
		{Value: []byte("what's a mook?"), Priority: 1},
		{Value: []byte("I dunno, it's a mook"), Priority: 2},
		{Value: []byte("we can't have mooks"), Priority: 3},
		{Value: []byte("no mooks"), Priority: 4},
	}

	q := New()
	for _, v := range testEntries {
		q.Enqueue(v.Priority, v.Value)
	}
	require.Equal(len(testEntries), q.Len(), "Queue length (full)")

	for i, expected := range testEntries {
		require.Equal(len(testEntries)-i, q.Len(), "Queue length")

		ent := q.Peek()
		require.Equal(expected.Priority, ent.Priority, "Peek(): Priority")

		ent = q.Pop()
		require.Equal(expected.Value, ent.Value, "Pop(): Value")
		require.Equal(expected.Priority, ent.Priority, "Pop(): Priority")
	}

	require.Equal(0, q.Len(), "Queue length (empty)")
	require.Nil(q.Peek(), "Peek() (empty)")
	require.Nil(q.Pop(), "Pop() (empty)")
}

func TestOutOfOrderInsertion(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	q := New()
	prios := []uint64{42, 7, 13, 3, 99, 21, 3}
	for _, p := range prios {
		q.Enqueue(p, p)
	}

	var last uint64
	for q.Len() > 0 {
		ent := q.Pop()
		require.GreaterOrEqual(ent.Priority, last, "Pop(): ordering")
		last = ent.Priority
	}
}

func TestDequeueRandom(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	r := rand.New(rand.NewSource(23))
	q := New()
	for i := uint64(0); i < 10; i++ {
		q.Enqueue(i, i)
	}

	seen := make(map[uint64]bool)
	for q.Len() > 0 {
		ent := q.DequeueRandom(r)
		require.False(seen[ent.Priority], "DequeueRandom(): duplicate entry")
		seen[ent.Priority] = true
	}
	require.Equal(10, len(seen))
	require.Nil(q.DequeueRandom(r), "DequeueRandom() (empty)")
}
