// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// Client finds the server with its name by broadcasting discovery probes
// and sends requests to it.
type Client[Req, Resp any] struct {
	*component
	id       string
	onError  func(req Req, err error) Resp
	mu       sync.RWMutex
	server   ServerInfo
	found    chan struct{}
	once     sync.Once
	notified atomic.Bool
}

// NewClient creates a client for the server named name and starts its
// discovery. onError turns a failed request into a response; when nil Send
// returns the failure instead.
func NewClient[Req, Resp any](name string, onError func(req Req, err error) Resp, opts ...Option) *Client[Req, Resp] {
	c := &Client[Req, Resp]{
		component: newComponent("client", name, opts),
		id:        uuid.NewString(),
		onError:   onError,
		found:     make(chan struct{}),
	}
	level.Debug(c.logger).Log("msg", "Client created", "id", c.id)
	c.start(c.runAuto, c.runUser)
	return c
}

// ID is the unique identification of the client.
func (c *Client[Req, Resp]) ID() string {
	return c.id
}

// Server returns the discovered server. ok is false until discovery
// succeeds.
func (c *Client[Req, Resp]) Server() (info ServerInfo, ok bool) {
	select {
	case <-c.found:
	default:
		return ServerInfo{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.server, true
}

func (c *Client[Req, Resp]) String() string {
	if info, ok := c.Server(); ok {
		return info.String()
	}
	return c.name
}

func (c *Client[Req, Resp]) runAuto(ctx context.Context) {
	if _, ok := c.Server(); ok {
		return
	}
	d := c.set.discovery
	level.Debug(c.logger).Log("msg", "Looking for the server", "port", d.Port, "interface", d.Interface)
	info, err := d.Find(ctx, c.name)
	if err != nil {
		if ctx.Err() == nil {
			level.Error(c.logger).Log("msg", "Auto-discovery ended without finding the server", "err", err)
		}
		return
	}
	c.mu.Lock()
	c.server = info
	c.mu.Unlock()
	c.once.Do(func() { close(c.found) })
	level.Info(c.logger).Log("msg", "Server discovered", "server", info)
}

func (c *Client[Req, Resp]) runUser(ctx context.Context) {
	select {
	case <-c.found:
	case <-ctx.Done():
		return
	}
	fn := c.set.onDiscovered
	if fn == nil || !c.notified.CompareAndSwap(false, true) {
		return
	}
	info, _ := c.Server()
	_, err := call(func() (struct{}, error) {
		fn(info)
		return struct{}{}, nil
	})
	if err != nil {
		level.Error(c.logger).Log("msg", "An error occurred in the server discovered hook", "err", err)
	}
}

// Send encodes req, sends it to the server and decodes the reply. A nil
// request yields the zero response. Send fails with ErrTimeout when the
// server isn't found within the client timeout, with ErrStopped once the
// client is stopped and with the context error when ctx is done. Any other
// failure is turned into a response by the error handler, or returned when
// the client has none.
func (c *Client[Req, Resp]) Send(ctx context.Context, req Req) (Resp, error) {
	var zero Resp
	if isNil(req) {
		return zero, nil
	}
	server, err := c.await(ctx)
	if err != nil {
		return zero, err
	}
	codec := c.set.discovery.Codec
	data := Encode(codec, req, c.logger)
	if len(data) == 0 {
		return c.handleError(req, &OpError{Op: "send", Name: c.name, Err: ErrEmptyRequest})
	}
	reply, err := c.roundTrip(ctx, server, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		return c.handleError(req, err)
	}
	return Decode(codec, reply, zero, c.logger), nil
}

// await blocks until the server is known.
func (c *Client[Req, Resp]) await(ctx context.Context) (ServerInfo, error) {
	if c.Stopping() {
		return ServerInfo{}, &OpError{Op: "send", Name: c.name, Err: ErrStopped}
	}
	if info, ok := c.Server(); ok {
		return info, nil
	}
	if c.set.timeout <= 0 {
		return ServerInfo{}, &OpError{Op: "send", Name: c.name, Err: ErrTimeout}
	}
	timer := time.NewTimer(c.set.timeout)
	defer timer.Stop()
	select {
	case <-c.found:
		info, _ := c.Server()
		return info, nil
	case <-timer.C:
		return ServerInfo{}, &OpError{Op: "send", Name: c.name, Err: ErrTimeout}
	case <-ctx.Done():
		return ServerInfo{}, ctx.Err()
	case <-c.ctx.Done():
		return ServerInfo{}, &OpError{Op: "send", Name: c.name, Err: ErrStopped}
	}
}

// roundTrip sends one datagram from a fresh socket and waits for the
// first reply.
func (c *Client[Req, Resp]) roundTrip(ctx context.Context, server ServerInfo, data []byte) ([]byte, error) {
	conn, release, err := listenUDP(ctx, network(server.Endpoint.Addr()), &net.UDPAddr{}, "request", c.logger)
	if err != nil {
		return nil, &OpError{Op: "send", Name: c.name, Err: err}
	}
	defer release()
	if d := c.set.roundTripTimeout; d > 0 {
		if err := conn.SetDeadline(time.Now().Add(d)); err != nil {
			return nil, &OpError{Op: "send", Name: c.name, Err: err}
		}
	}
	to := net.UDPAddrFromAddrPort(server.Endpoint)
	level.Debug(c.logger).Log("msg", "Sending request", "client", c.id, "to", to, "bytes", len(data))
	if n := SafeSend(conn, data, to, c.logger); n != len(data) {
		return nil, &OpError{Op: "send", Name: c.name, Err: fmt.Errorf("sent %d of %d bytes to %v", n, len(data), to)}
	}
	buf := make([]byte, c.set.discovery.BufSize)
	reply, from, closed := SafeReceive(conn, buf, c.logger)
	if closed {
		return nil, &OpError{Op: "send", Name: c.name, Err: net.ErrClosed}
	}
	if reply == nil {
		return nil, &OpError{Op: "send", Name: c.name, Err: ErrNoReply}
	}
	level.Debug(c.logger).Log("msg", "Reply received", "client", c.id, "from", from, "bytes", len(reply))
	return append([]byte(nil), reply...), nil
}

func (c *Client[Req, Resp]) handleError(req Req, err error) (Resp, error) {
	level.Error(c.logger).Log("msg", "An error occurred sending the request", "client", c.id, "err", err)
	var zero Resp
	if c.onError == nil {
		return zero, err
	}
	resp, herr := call(func() (Resp, error) {
		return c.onError(req, err), nil
	})
	if herr != nil {
		level.Error(c.logger).Log("msg", "An error occurred sending the request and the error handler failed handling it", "err", &HandlerError{Err: herr, Original: err})
		return zero, nil
	}
	return resp, nil
}
