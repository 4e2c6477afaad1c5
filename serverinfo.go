// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// ServerInfo describes a server found by discovery.
type ServerInfo struct {
	Name     string
	Endpoint netip.AddrPort
}

func (s ServerInfo) String() string {
	return fmt.Sprintf("%s (%v)", s.Name, s.Endpoint)
}

// announcement is the discovery answer on the wire.
type announcement struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
	Port    int    `json:"port" yaml:"port"`
}

func newAnnouncement(info ServerInfo) announcement {
	return announcement{
		Name:    info.Name,
		Address: info.Endpoint.Addr().Unmap().String(),
		Port:    int(info.Endpoint.Port()),
	}
}

// serverInfo validates a decoded answer.
func (a announcement) serverInfo() (ServerInfo, bool) {
	ip, err := netip.ParseAddr(a.Address)
	if err != nil {
		return ServerInfo{}, false
	}
	if a.Port < 0 || a.Port > 65535 {
		return ServerInfo{}, false
	}
	return ServerInfo{
		Name:     a.Name,
		Endpoint: netip.AddrPortFrom(ip.Unmap(), uint16(a.Port)),
	}, true
}

// parseAnnouncement decodes a discovery answer. Undecodable payloads and
// invalid addresses are reported as not ok.
func parseAnnouncement(c Codec, data []byte, logger log.Logger) (ServerInfo, bool) {
	logger = orNop(logger)
	if len(data) == 0 {
		return ServerInfo{}, false
	}
	var a announcement
	if err := c.Unmarshal(data, &a); err != nil {
		level.Debug(logger).Log("msg", "Discarding undecodable discovery answer", "bytes", len(data), "err", err)
		return ServerInfo{}, false
	}
	info, ok := a.serverInfo()
	if !ok {
		level.Debug(logger).Log("msg", "Discarding discovery answer with invalid endpoint", "address", a.Address, "port", a.Port)
	}
	return info, ok
}

// Discovery probes the network for servers and answers probes. The zero
// value probes once with the default port, token and codec.
type Discovery struct {
	Intface
	// Port is the discovery port.
	Port int
	// Token is the probe payload.
	Token []byte
	// Interval repeats the probe while a stream is open. Zero probes once.
	Interval time.Duration
	// BufSize is the receive buffer size.
	BufSize int
	// Codec encodes the answers.
	Codec Codec
	// Logger receives the discovery events.
	Logger log.Logger
}

func (d Discovery) withDefaults() Discovery {
	if d.Port <= 0 {
		d.Port = DefaultPort
	}
	if len(d.Token) == 0 {
		d.Token = DefaultToken()
	}
	if d.BufSize <= 0 {
		d.BufSize = maxDatagram
	}
	if d.Codec == nil {
		d.Codec = JSON
	}
	d.Logger = orNop(d.Logger)
	return d
}

// Discover sends a probe and streams every server that answers. The stream
// is unbounded: it is closed when ctx is done or the socket fails. Answers
// that can't be decoded or that carry an invalid address are skipped.
func (d Discovery) Discover(ctx context.Context) <-chan ServerInfo {
	d = d.withDefaults()
	out := make(chan ServerInfo)
	go func() {
		defer close(out)
		dst, err := d.broadcast(d.Port)
		if err != nil {
			level.Error(d.Logger).Log("msg", "Can't determine the discovery address", "err", err)
			return
		}
		conn, release, err := listenUDP(ctx, "udp4", &net.UDPAddr{}, "auto-discovery", d.Logger)
		if err != nil {
			level.Error(d.Logger).Log("msg", "Can't open the auto-discovery connection", "err", err)
			return
		}
		defer release()

		level.Debug(d.Logger).Log("msg", "Sending discovery probe", "to", dst, "local", conn.LocalAddr())
		SafeSend(conn, d.Token, dst, d.Logger)
		if d.Interval > 0 {
			var wg sync.WaitGroup
			done := make(chan struct{})
			defer func() {
				close(done)
				wg.Wait()
			}()
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.reprobe(ctx, done, conn, dst)
			}()
		}

		buf := make([]byte, d.BufSize)
		for {
			data, from, _ := SafeReceive(conn, buf, d.Logger)
			if data == nil {
				return
			}
			info, ok := parseAnnouncement(d.Codec, data, d.Logger)
			if !ok {
				continue
			}
			level.Debug(d.Logger).Log("msg", "Discovered server", "server", info, "from", from)
			select {
			case out <- info:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (d Discovery) reprobe(ctx context.Context, done <-chan struct{}, conn *net.UDPConn, dst *net.UDPAddr) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			SafeSend(conn, d.Token, dst, d.Logger)
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Find runs Discover until a server named name answers and stops the
// stream. It fails when ctx is done or the stream ends first.
func (d Discovery) Find(ctx context.Context, name string) (ServerInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for info := range d.Discover(ctx) {
		if info.Name == name {
			return info, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return ServerInfo{}, &OpError{Op: "discover", Name: name, Err: err}
	}
	return ServerInfo{}, &OpError{Op: "discover", Name: name, Err: ErrNotFound}
}

// listen binds the responder socket on every address of the discovery port.
func (d Discovery) listen(ctx context.Context) (*net.UDPConn, func(), error) {
	conn, release, err := listenUDP(ctx, "udp4", &net.UDPAddr{IP: net.IPv4zero, Port: d.Port}, "auto-discovery", d.Logger)
	if err != nil {
		return nil, nil, &OpError{Op: "bind", Err: err}
	}
	return conn, release, nil
}

// answer replies to every probe carrying exactly the token with the
// encoded announcement until stopping reports true or the socket closes.
// announce may decline to answer, e.g. while the server isn't bound yet.
func (d Discovery) answer(conn *net.UDPConn, stopping func() bool, announce func() (ServerInfo, bool)) {
	buf := make([]byte, d.BufSize)
	for !stopping() {
		data, from, closed := SafeReceive(conn, buf, d.Logger)
		if closed {
			return
		}
		if data == nil || from == nil || !bytes.Equal(data, d.Token) {
			continue
		}
		info, ok := announce()
		if !ok {
			level.Debug(d.Logger).Log("msg", "Not answering probe, server isn't ready", "from", from)
			continue
		}
		level.Debug(d.Logger).Log("msg", "Answering probe", "from", from, "server", info)
		SafeSend(conn, Encode(d.Codec, newAnnouncement(info), d.Logger), from, d.Logger)
	}
}
