// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"context"
	"errors"
	"net"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// maxDatagram is the largest UDP payload over IPv4.
const maxDatagram = 65507

// SafeSend writes data to the endpoint and returns the number of bytes sent.
// It never fails: errors are logged and reported as 0 bytes. A nil
// connection, payload or endpoint sends nothing.
func SafeSend(conn *net.UDPConn, data []byte, to *net.UDPAddr, logger log.Logger) int {
	if conn == nil || data == nil || to == nil {
		return 0
	}
	n, err := conn.WriteToUDP(data, to)
	if err != nil {
		level.Error(orNop(logger)).Log("msg", "An error occurred sending data", "bytes", len(data), "to", to, "err", err)
		return 0
	}
	return n
}

// SafeReceive reads one datagram into buf. On failure it logs and returns a
// nil payload; closed reports that the connection was closed, after which
// no further datagram will arrive.
func SafeReceive(conn *net.UDPConn, buf []byte, logger log.Logger) (data []byte, from *net.UDPAddr, closed bool) {
	if conn == nil {
		return nil, nil, true
	}
	n, from, err := conn.ReadFromUDP(buf)
	if errors.Is(err, net.ErrClosed) {
		return nil, nil, true
	} else if err != nil {
		level.Error(orNop(logger)).Log("msg", "An error occurred receiving data", "local", conn.LocalAddr(), "err", err)
		return nil, from, false
	}
	return buf[:n], from, false
}

// listenUDP binds addr and closes the socket when ctx is done, which wakes
// up any blocked read. release must be called once the socket is no longer
// used.
func listenUDP(ctx context.Context, network string, addr *net.UDPAddr, what string, logger log.Logger) (conn *net.UDPConn, release func(), err error) {
	conn, err = net.ListenUDP(network, addr)
	if err != nil {
		return nil, nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	release = func() {
		stop()
		closeLogged(conn, what, logger)
	}
	return conn, release, nil
}

func closeLogged(conn *net.UDPConn, what string, logger log.Logger) {
	err := conn.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		level.Error(orNop(logger)).Log("msg", "An error occurred closing the "+what+" connection", "err", err)
	}
}
