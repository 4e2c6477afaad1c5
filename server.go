// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync/atomic"

	"github.com/go-kit/log/level"
)

// Handler produces the responses of a server. A returned error or a panic
// in ProcessRequest is passed to HandleError, which turns it into a
// response.
type Handler[Req, Resp any] interface {
	ProcessRequest(req Req) (Resp, error)
	HandleError(req Req, err error) (Resp, error)
}

// HandlerFuncs is a Handler made of two functions. A nil Error function
// leaves the error unhandled.
type HandlerFuncs[Req, Resp any] struct {
	Process func(req Req) (Resp, error)
	Error   func(req Req, err error) (Resp, error)
}

var errNoProcessor = errors.New("no request processor")

func (h HandlerFuncs[Req, Resp]) ProcessRequest(req Req) (Resp, error) {
	if h.Process == nil {
		var zero Resp
		return zero, errNoProcessor
	}
	return h.Process(req)
}

func (h HandlerFuncs[Req, Resp]) HandleError(req Req, err error) (Resp, error) {
	if h.Error == nil {
		var zero Resp
		return zero, err
	}
	return h.Error(req, err)
}

// Server answers discovery probes with its name and endpoint and serves
// requests sent to the endpoint, one at a time.
type Server[Req, Resp any] struct {
	*component
	endpoint       netip.AddrPort
	handler        Handler[Req, Resp]
	bound          atomic.Pointer[netip.AddrPort]
	discoveryState atomic.Int32
	servingState   atomic.Int32
}

// NewServer creates a server named name that listens for requests on
// endpoint and starts it. A zero port picks a free one.
func NewServer[Req, Resp any](name string, endpoint netip.AddrPort, h Handler[Req, Resp], opts ...Option) *Server[Req, Resp] {
	if h == nil {
		h = HandlerFuncs[Req, Resp]{}
	}
	if !endpoint.Addr().IsValid() {
		endpoint = netip.AddrPortFrom(netip.IPv4Unspecified(), endpoint.Port())
	}
	s := &Server[Req, Resp]{
		component: newComponent("server", name, opts),
		endpoint:  endpoint,
		handler:   h,
	}
	s.start(s.runAuto, s.runUser)
	return s
}

// DiscoveryState reports whether the server answers discovery probes. A
// server whose discovery port can't be bound stays down.
func (s *Server[Req, Resp]) DiscoveryState() State {
	return State(s.discoveryState.Load())
}

// ServingState reports whether the server accepts requests.
func (s *Server[Req, Resp]) ServingState() State {
	return State(s.servingState.Load())
}

// LocalAddr returns the endpoint the requests are received on. It is the
// configured endpoint until the socket is bound.
func (s *Server[Req, Resp]) LocalAddr() netip.AddrPort {
	if b := s.bound.Load(); b != nil {
		return *b
	}
	return s.endpoint
}

func (s *Server[Req, Resp]) String() string {
	return fmt.Sprintf("%s (%v)", s.name, s.LocalAddr())
}

// announcement is what the server tells to a probe. Without a known port
// it declines to answer.
func (s *Server[Req, Resp]) announcement() (ServerInfo, bool) {
	ep := s.LocalAddr()
	if ep.Port() == 0 {
		return ServerInfo{}, false
	}
	addr := ep.Addr().Unmap()
	if addr.IsUnspecified() {
		addr = localIPv4()
	}
	return ServerInfo{Name: s.name, Endpoint: netip.AddrPortFrom(addr, ep.Port())}, true
}

func (s *Server[Req, Resp]) runAuto(ctx context.Context) {
	d := s.set.discovery
	conn, release, err := d.listen(ctx)
	if err != nil {
		level.Error(s.logger).Log("msg", "An error occurred initializing the auto-discover component of the server", "port", d.Port, "err", err)
		return
	}
	defer release()
	s.discoveryState.Store(int32(StateUp))
	defer s.discoveryState.Store(int32(StateDown))
	level.Info(s.logger).Log("msg", "Answering discovery probes", "port", d.Port)
	d.answer(conn, s.Stopping, s.announcement)
}

func (s *Server[Req, Resp]) runUser(ctx context.Context) {
	conn, release, err := listenUDP(ctx, network(s.endpoint.Addr()), net.UDPAddrFromAddrPort(s.endpoint), "request", s.logger)
	if err != nil {
		level.Error(s.logger).Log("msg", "An error occurred initializing the request component of the server", "addr", s.endpoint, "err", &OpError{Op: "bind", Name: s.name, Err: err})
		return
	}
	defer release()
	local := conn.LocalAddr().(*net.UDPAddr).AddrPort()
	local = netip.AddrPortFrom(local.Addr().Unmap(), local.Port())
	s.bound.Store(&local)
	s.servingState.Store(int32(StateUp))
	defer s.servingState.Store(int32(StateDown))
	level.Info(s.logger).Log("msg", "Serving requests", "addr", local)

	if s.set.mdns {
		if info, ok := s.announcement(); ok {
			a, err := AnnounceMDNS(info, s.logger)
			if err != nil {
				level.Error(s.logger).Log("msg", "Can't announce the server over mDNS", "err", err)
			} else {
				defer a.Close()
			}
		}
	}

	buf := make([]byte, s.set.discovery.BufSize)
	for !s.Stopping() {
		data, from, closed := SafeReceive(conn, buf, s.logger)
		if closed {
			return
		}
		if len(data) == 0 || from == nil {
			continue
		}
		SafeSend(conn, s.serve(data), from, s.logger)
	}
}

// serve runs the request pipeline on one datagram. If the pipeline itself
// breaks down the fallback payload is returned.
func (s *Server[Req, Resp]) serve(data []byte) (reply []byte) {
	defer func() {
		if r := recover(); r != nil {
			err := &PanicError{Value: r}
			level.Error(s.logger).Log("msg", "An error occurred processing a request", "bytes", len(data), "err", err)
			reply = s.set.fallback(err)
		}
	}()
	codec := s.set.discovery.Codec
	var zero Req
	req := Decode(codec, data, zero, s.logger)
	resp, err := call(func() (Resp, error) {
		return s.handler.ProcessRequest(req)
	})
	if err != nil {
		level.Debug(s.logger).Log("msg", "Request failed, handling the error", "err", err)
		handled, herr := call(func() (Resp, error) {
			return s.handler.HandleError(req, err)
		})
		if herr != nil {
			failed := &HandlerError{Err: herr, Original: err}
			level.Error(s.logger).Log("msg", "An error occurred processing a request and HandleError failed handling it", "bytes", len(data), "err", failed)
			if s.set.fallbackSet {
				return s.set.fallback(failed)
			}
		} else {
			resp = handled
		}
	}
	return Encode(codec, resp, s.logger)
}

// call runs fn and turns a panic into an error.
func call[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}

func network(addr netip.Addr) string {
	if addr.Is6() && !addr.Is4In6() {
		return "udp6"
	}
	return "udp4"
}
