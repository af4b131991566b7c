// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package incoming implements the mix network listener.
package incoming

import (
	"container/list"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/sahith-narahari/nym/core/sphinx"
	"github.com/sahith-narahari/nym/core/worker"
	"github.com/sahith-narahari/nym/server/internal/glue"
	"github.com/sahith-narahari/nym/server/internal/instrument"
	"github.com/sahith-narahari/nym/server/internal/packet"
)

const readTimeout = 2 * time.Minute

type listener struct {
	worker.Worker
	sync.Mutex

	glue glue.Glue
	log  *logging.Logger

	l     net.Listener
	conns *list.List

	ingressCh  chan<- *packet.Packet
	closeAllCh chan interface{}
	closeAllWg sync.WaitGroup
}

func (l *listener) Halt() {
	l.l.Close()
	l.Worker.Halt()

	close(l.closeAllCh)
	l.closeAllWg.Wait()
}

func (l *listener) worker() {
	addr := l.l.Addr()
	l.log.Noticef("Listening on: %v", addr)
	defer func() {
		l.log.Noticef("Stopping listening on: %v", addr)
		l.l.Close()
	}()
	for {
		conn, err := l.l.Accept()
		if err != nil {
			if e, ok := err.(net.Error); ok && !e.Timeout() && !e.Temporary() {
				return
			}
			continue
		}

		l.log.Debugf("Accepted new connection: %v", conn.RemoteAddr())
		l.onNewConn(conn)
	}
}

func (l *listener) onNewConn(conn net.Conn) {
	l.closeAllWg.Add(1)
	l.Lock()
	e := l.conns.PushFront(conn)
	l.Unlock()
	doneCh := make(chan interface{})
	go func() {
		// Force the blocking read to fail on shutdown.
		select {
		case <-l.closeAllCh:
			conn.Close()
		case <-doneCh:
		}
	}()
	go func() {
		defer func() {
			close(doneCh)
			conn.Close()
			l.Lock()
			l.conns.Remove(e)
			l.Unlock()
			l.closeAllWg.Done()
		}()
		l.connWorker(conn)
	}()
}

// connWorker reads length-prefixed packet frames off the connection and
// admits them into the ingress queue.  Admission never blocks; over
// capacity, the packet is dropped on the floor.
func (l *listener) connWorker(conn net.Conn) {
	geo := sphinx.DefaultGeometry()
	for {
		raw, err := readFrame(conn, uint32(geo.PacketLength))
		if err != nil {
			if !errors.Is(err, io.EOF) {
				l.log.Debugf("Closing connection %v: %v", conn.RemoteAddr(), err)
			}
			return
		}
		instrument.PacketReceived()

		pkt := packet.New(raw)
		select {
		case l.ingressCh <- pkt:
		default:
			instrument.IngressDropped()
			pkt.Dispose()
		}
	}
}

func readFrame(conn net.Conn, maxLen uint32) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return nil, err
	}
	var hdr [4]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 || n > maxLen {
		return nil, fmt.Errorf("incoming: invalid frame length: %d", n)
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(conn, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// New constructs a new listener bound to the configured address, feeding
// admitted packets into ingressCh.
func New(g glue.Glue, ingressCh chan<- *packet.Packet) (glue.Listener, error) {
	l := &listener{
		glue:       g,
		log:        g.LogBackend().GetLogger("listener"),
		conns:      list.New(),
		ingressCh:  ingressCh,
		closeAllCh: make(chan interface{}),
	}

	var err error
	l.l, err = net.Listen("tcp", g.Config().Server.Address)
	if err != nil {
		return nil, err
	}

	l.Go(l.worker)
	return l, nil
}
