// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnouncementRoundTrip(t *testing.T) {
	info := ServerInfo{Name: "echo", Endpoint: netip.MustParseAddrPort("10.0.0.5:24000")}
	for _, c := range []Codec{JSON, YAML} {
		data := Encode(c, newAnnouncement(info), nil)
		got, ok := parseAnnouncement(c, data, nil)
		require.True(t, ok, c.Name())
		assert.Equal(t, info, got)
	}
}

func TestAnnouncementWire(t *testing.T) {
	info := ServerInfo{Name: "echo", Endpoint: netip.MustParseAddrPort("127.0.0.1:24000")}
	data := Encode(JSON, newAnnouncement(info), nil)
	assert.JSONEq(t, `{"name":"echo","address":"127.0.0.1","port":24000}`, string(data))
}

func TestParseAnnouncementInvalid(t *testing.T) {
	for _, payload := range []string{
		"",
		"garbage",
		`{"name":"echo","address":"not an ip","port":1}`,
		`{"name":"echo","address":"127.0.0.1","port":70000}`,
		`{"name":"echo","address":"127.0.0.1","port":-1}`,
	} {
		_, ok := parseAnnouncement(JSON, []byte(payload), nil)
		assert.False(t, ok, payload)
	}
}

func TestServerInfoString(t *testing.T) {
	info := ServerInfo{Name: "echo", Endpoint: netip.MustParseAddrPort("127.0.0.1:24000")}
	assert.Equal(t, "echo (127.0.0.1:24000)", info.String())
}

// responder answers probes on port with info until the test ends.
func responder(t *testing.T, d Discovery, info ServerInfo) {
	t.Helper()
	d = d.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	conn, release, err := d.listen(ctx)
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.answer(conn, func() bool { return false }, func() (ServerInfo, bool) { return info, true })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		release()
	})
}

func TestFind(t *testing.T) {
	d := Discovery{
		Intface:  Intface{Interface: loopback(t)},
		Port:     freePort(t),
		Interval: 100 * time.Millisecond,
		Logger:   testLogger(t),
	}
	want := ServerInfo{Name: "echo", Endpoint: netip.MustParseAddrPort("127.0.0.1:24000")}
	responder(t, d, want)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := d.Find(ctx, "echo")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFindSkipsOtherNames(t *testing.T) {
	d := Discovery{
		Intface:  Intface{Interface: loopback(t)},
		Port:     freePort(t),
		Interval: 50 * time.Millisecond,
	}
	responder(t, d, ServerInfo{Name: "other", Endpoint: netip.MustParseAddrPort("127.0.0.1:24001")})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	stream := d.Discover(ctx)
	first, ok := <-stream
	require.True(t, ok)
	assert.Equal(t, "other", first.Name)

	_, err := d.Find(ctx, "echo")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResponderIgnoresWrongToken(t *testing.T) {
	port := freePort(t)
	responder(t, Discovery{Port: port}, ServerInfo{Name: "echo", Endpoint: netip.MustParseAddrPort("127.0.0.1:24000")})

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()
	dst := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
	buf := make([]byte, 1024)

	_, err = conn.WriteToUDP([]byte("ADRX"), dst)
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err = conn.ReadFromUDP(buf)
	var nerr net.Error
	require.True(t, errors.As(err, &nerr), "expected a timeout, got %v", err)
	assert.True(t, nerr.Timeout())

	_, err = conn.WriteToUDP([]byte(DefaultTokenString), dst)
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	info, ok := parseAnnouncement(JSON, buf[:n], nil)
	require.True(t, ok)
	assert.Equal(t, "echo", info.Name)
}

func TestDiscoverNoResponders(t *testing.T) {
	d := Discovery{Intface: Intface{Interface: loopback(t)}, Port: freePort(t), Interval: 50 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	n := 0
	for range d.Discover(ctx) {
		n++
	}
	assert.Equal(t, 0, n)
}

func TestFindCanceled(t *testing.T) {
	d := Discovery{Intface: Intface{Interface: loopback(t)}, Port: freePort(t)}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := d.Find(ctx, "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var op *OpError
	require.ErrorAs(t, err, &op)
	assert.Equal(t, "discover", op.Op)
}

func TestDiscoverBadInterface(t *testing.T) {
	d := Discovery{Intface: Intface{Interface: "no-such-interface0"}, Port: freePort(t)}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := d.Find(ctx, "echo")
	assert.ErrorIs(t, err, ErrNotFound)
}
