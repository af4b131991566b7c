// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package sfw defines the wire protocol spoken between clients and the
// store-and-forward provider's client listener.  Requests and responses are
// CBOR encoded and carried in length-prefixed frames.
package sfw

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// MaxFrameLength bounds a single request/response frame.
const MaxFrameLength = 1 << 20

var errFrameTooLarge = errors.New("sfw: frame exceeds maximum length")

// Request is the envelope for all client to provider requests.  Exactly one
// field is non-nil.
type Request struct {
	Register *RegisterRequest `cbor:"register,omitempty"`
	Pull     *PullRequest     `cbor:"pull,omitempty"`
}

// RegisterRequest registers a recipient identifier with the provider and
// obtains an auth token for subsequent pulls.
type RegisterRequest struct {
	Recipient []byte `cbor:"recipient"`
}

// PullRequest retrieves stored messages for a recipient.
type PullRequest struct {
	AuthToken []byte `cbor:"authToken"`
	Recipient []byte `cbor:"recipient"`
}

// Response is the envelope for all provider to client responses.
type Response struct {
	Error     string   `cbor:"error,omitempty"`
	AuthToken []byte   `cbor:"authToken,omitempty"`
	Messages  [][]byte `cbor:"messages,omitempty"`
}

// WriteFrame writes a single length-prefixed CBOR frame.
func WriteFrame(w io.Writer, v interface{}) error {
	b, err := cbor.Marshal(v)
	if err != nil {
		return err
	}
	if len(b) > MaxFrameLength {
		return errFrameTooLarge
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b)))
	if _, err = w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ReadFrame reads a single length-prefixed CBOR frame into v.
func ReadFrame(r io.Reader, v interface{}) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameLength {
		return errFrameTooLarge
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return err
	}
	return cbor.Unmarshal(b, v)
}
