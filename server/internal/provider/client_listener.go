// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

package provider

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/sahith-narahari/nym/core/worker"
	"github.com/sahith-narahari/nym/sfw"
)

const clientIOTimeout = 30 * time.Second

// clientListener serves the store-and-forward protocol to clients.
type clientListener struct {
	worker.Worker

	p   *provider
	log *logging.Logger

	l net.Listener

	closeAllCh chan interface{}
	closeAllWg sync.WaitGroup
}

func (cl *clientListener) Halt() {
	cl.l.Close()
	cl.Worker.Halt()

	close(cl.closeAllCh)
	cl.closeAllWg.Wait()
}

func (cl *clientListener) worker() {
	addr := cl.l.Addr()
	cl.log.Noticef("Listening on: %v", addr)
	defer func() {
		cl.log.Noticef("Stopping listening on: %v", addr)
		cl.l.Close()
	}()
	for {
		conn, err := cl.l.Accept()
		if err != nil {
			if e, ok := err.(net.Error); ok && !e.Timeout() && !e.Temporary() {
				return
			}
			continue
		}
		cl.onNewConn(conn)
	}
}

func (cl *clientListener) onNewConn(conn net.Conn) {
	cl.closeAllWg.Add(1)
	doneCh := make(chan interface{})
	go func() {
		select {
		case <-cl.closeAllCh:
			conn.Close()
		case <-doneCh:
		}
	}()
	go func() {
		defer func() {
			close(doneCh)
			conn.Close()
			cl.closeAllWg.Done()
		}()
		cl.connWorker(conn)
	}()
}

func (cl *clientListener) connWorker(conn net.Conn) {
	for {
		if err := conn.SetDeadline(time.Now().Add(clientIOTimeout)); err != nil {
			return
		}
		var req sfw.Request
		if err := sfw.ReadFrame(conn, &req); err != nil {
			if !errors.Is(err, io.EOF) {
				cl.log.Debugf("Closing client connection %v: %v", conn.RemoteAddr(), err)
			}
			return
		}

		resp := cl.handleRequest(&req)
		if err := sfw.WriteFrame(conn, resp); err != nil {
			cl.log.Debugf("Failed to write response to %v: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

func (cl *clientListener) handleRequest(req *sfw.Request) *sfw.Response {
	switch {
	case req.Register != nil:
		return cl.onRegister(req.Register)
	case req.Pull != nil:
		return cl.onPull(req.Pull)
	default:
		return &sfw.Response{Error: "unknown request"}
	}
}

func (cl *clientListener) onRegister(req *sfw.RegisterRequest) *sfw.Response {
	if len(req.Recipient) == 0 {
		return &sfw.Response{Error: "empty recipient"}
	}
	tok, err := cl.p.ledger.register(req.Recipient)
	if err != nil {
		cl.log.Errorf("Failed to register client: %v", err)
		return &sfw.Response{Error: "internal error"}
	}
	return &sfw.Response{AuthToken: tok}
}

func (cl *clientListener) onPull(req *sfw.PullRequest) *sfw.Response {
	if !cl.p.ledger.check(req.Recipient, req.AuthToken) {
		return &sfw.Response{Error: "invalid auth token"}
	}
	limit := cl.p.glue.Config().Provider.RetrievalLimit
	msgs, err := cl.p.store.fetchMessages(req.Recipient, limit)
	if err != nil {
		cl.log.Errorf("Failed to fetch messages: %v", err)
		return &sfw.Response{Error: "internal error"}
	}
	return &sfw.Response{Messages: msgs}
}

func newClientListener(p *provider) (*clientListener, error) {
	cl := &clientListener{
		p:          p,
		log:        p.glue.LogBackend().GetLogger("provider:client"),
		closeAllCh: make(chan interface{}),
	}

	var err error
	cl.l, err = net.Listen("tcp", p.glue.Config().Provider.ClientListener)
	if err != nil {
		return nil, err
	}

	cl.Go(cl.worker)
	return cl, nil
}
