// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package cli

import (
	"bytes"
	"net"
	"net/netip"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/Cloudxtreme/netdisco"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	root := NewRootCmd()
	root.SetOut(buf)
	root.SetErr(new(bytes.Buffer))
	args = append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func freePort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	require.NoError(t, err)
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func loopback(t *testing.T) string {
	t.Helper()
	in, err := netdisco.FindInterface(net.FlagLoopback)
	if err != nil {
		t.Skip("no loopback interface, skip the test:", err)
	}
	return in
}

// echoServer runs the echo handler of netdisco serve in process.
func echoServer(t *testing.T, port int) *netdisco.Server[EchoRequest, EchoResponse] {
	t.Helper()
	s := netdisco.NewServer[EchoRequest, EchoResponse]("echo", netip.MustParseAddrPort("127.0.0.1:0"), echoHandler{}, netdisco.WithDiscoveryPort(port))
	t.Cleanup(func() { s.Stop() })
	require.Eventually(t, func() bool {
		return s.ServingState() == netdisco.StateUp && s.DiscoveryState() == netdisco.StateUp
	}, 5*time.Second, 10*time.Millisecond)
	return s
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "netdisco version")
}

func TestSendCommand(t *testing.T) {
	port := freePort(t)
	echoServer(t, port)
	out, err := executeCommand(t, "send", "--port", strconv.Itoa(port), "--interface", loopback(t), "--timeout", "5s", "echo", "hi", "there")
	require.NoError(t, err)
	assert.Equal(t, "got: hi there\n", out)
}

func TestSendCommandTimeout(t *testing.T) {
	_, err := executeCommand(t, "send", "--port", strconv.Itoa(freePort(t)), "--interface", loopback(t), "--timeout", "200ms", "echo", "hi")
	assert.ErrorIs(t, err, netdisco.ErrTimeout)
}

func TestDiscoverCommand(t *testing.T) {
	port := freePort(t)
	s := echoServer(t, port)
	out, err := executeCommand(t, "discover", "--port", strconv.Itoa(port), "--interface", loopback(t), "--wait", "500ms")
	require.NoError(t, err)
	assert.Contains(t, out, "echo")
	assert.Contains(t, out, s.LocalAddr().String())
}

func TestDiscoverCommandNotFound(t *testing.T) {
	_, err := executeCommand(t, "discover", "--port", strconv.Itoa(freePort(t)), "--interface", loopback(t), "--wait", "200ms", "--name", "echo")
	assert.ErrorIs(t, err, netdisco.ErrNotFound)

	out, err := executeCommand(t, "discover", "--port", strconv.Itoa(freePort(t)), "--interface", loopback(t), "--wait", "200ms")
	require.NoError(t, err)
	assert.Contains(t, out, "no servers found")
}

func TestServeCommand(t *testing.T) {
	port := freePort(t)
	out, err := executeCommand(t, "serve", "--port", strconv.Itoa(port), "--addr", "127.0.0.1:0", "--for", "200ms", "echo")
	require.NoError(t, err)
	assert.Contains(t, out, "serving echo")
}

func TestInvalidFlags(t *testing.T) {
	_, err := executeCommand(t, "serve", "--addr", "nowhere", "echo")
	assert.Error(t, err)

	_, err = executeCommand(t, "--codec", "gob", "version")
	assert.Error(t, err)

	_, err = executeCommand(t, "--log-level", "loud", "version")
	assert.Error(t, err)
}

func TestEchoHandler(t *testing.T) {
	resp, err := echoHandler{}.ProcessRequest(EchoRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "got: hi", resp.Result)
	assert.NotEmpty(t, resp.ID)

	_, err = echoHandler{}.ProcessRequest(EchoRequest{})
	require.ErrorIs(t, err, errEmptyMessage)
	resp, err = echoHandler{}.HandleError(EchoRequest{}, err)
	require.NoError(t, err)
	assert.Equal(t, "empty message", resp.Error)
}
