// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package sfw

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	req := &Request{Pull: &PullRequest{
		AuthToken: []byte("token"),
		Recipient: []byte("alice"),
	}}
	require.NoError(WriteFrame(&buf, req))

	var got Request
	require.NoError(ReadFrame(&buf, &got))
	require.Nil(got.Register)
	require.NotNil(got.Pull)
	require.Equal(req.Pull.AuthToken, got.Pull.AuthToken)
	require.Equal(req.Pull.Recipient, got.Pull.Recipient)
}

func TestFrameLengthLimit(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	resp := &Response{Messages: [][]byte{make([]byte, MaxFrameLength)}}
	require.Error(WriteFrame(&buf, resp), "oversized frame refused on write")

	// An oversized length prefix is refused before any allocation.
	buf.Reset()
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff})
	var got Response
	require.Error(ReadFrame(&buf, &got))
}
