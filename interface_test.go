// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastDefault(t *testing.T) {
	dst, err := Intface{}.broadcast(DefaultPort)
	require.NoError(t, err)
	assert.True(t, dst.IP.Equal(net.IPv4bcast))
	assert.Equal(t, DefaultPort, dst.Port)
}

func TestBroadcastLoopback(t *testing.T) {
	dst, err := Intface{Interface: loopback(t)}.broadcast(1234)
	require.NoError(t, err)
	assert.True(t, dst.IP.IsLoopback(), dst.IP.String())
	assert.Equal(t, 1234, dst.Port)
}

func TestBroadcastUnknownInterface(t *testing.T) {
	_, err := Intface{Interface: "no-such-interface0"}.broadcast(1234)
	assert.ErrorIs(t, err, ErrNoInterface)
}

func TestDirectedBroadcast(t *testing.T) {
	for cidr, want := range map[string]string{
		"192.168.1.10/24": "192.168.1.255",
		"10.1.2.3/8":      "10.255.255.255",
		"172.16.5.4/30":   "172.16.5.7",
	} {
		ip, n, err := net.ParseCIDR(cidr)
		require.NoError(t, err)
		n.IP = ip
		assert.Equal(t, want, directedBroadcast(n).String(), cidr)
	}
}

func TestFindInterface(t *testing.T) {
	in := loopback(t)
	i, err := net.InterfaceByName(in)
	require.NoError(t, err)
	assert.NotZero(t, i.Flags&net.FlagLoopback)
}

func TestLocalIPv4(t *testing.T) {
	ip := localIPv4()
	assert.True(t, ip.Is4())
}
