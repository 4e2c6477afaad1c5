// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"net"
	"os"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	Message string `json:"message"`
}

type echoResponse struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func loopback(t *testing.T) string {
	t.Helper()
	in, err := FindInterface(net.FlagLoopback)
	if err != nil {
		t.Skip("no loopback interface, skip the test:", err)
	}
	return in
}

// freePort returns a udp port nobody listens on.
func freePort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	require.NoError(t, err)
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func testLogger(t *testing.T) log.Logger {
	t.Helper()
	if !testing.Verbose() {
		return log.NewNopLogger()
	}
	logger, err := NewLogger(os.Stderr, FormatLogfmt)
	require.NoError(t, err)
	return log.With(logger, "test", t.Name())
}
