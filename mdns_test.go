// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"net"
	"net/netip"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMDNSService(t *testing.T) {
	zone, err := mdnsService(ServerInfo{Name: "echo", Endpoint: netip.MustParseAddrPort("10.0.0.5:24000")})
	require.NoError(t, err)
	assert.Equal(t, "echo", zone.Instance)
	assert.Equal(t, MDNSService, zone.Service)
	assert.Equal(t, 24000, zone.Port)
	assert.Equal(t, []string{"name=echo"}, zone.TXT)
	require.Len(t, zone.IPs, 1)
	assert.Equal(t, "10.0.0.5", zone.IPs[0].String())
}

func TestMDNSServiceInvalid(t *testing.T) {
	_, err := mdnsService(ServerInfo{Endpoint: netip.MustParseAddrPort("10.0.0.5:24000")})
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = mdnsService(ServerInfo{Name: "echo"})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestFromEntry(t *testing.T) {
	got, ok := fromEntry(&mdns.ServiceEntry{
		Name:       "echo._netdisco._udp.local.",
		AddrV4:     net.IPv4(10, 0, 0, 5),
		Port:       24000,
		InfoFields: []string{"name=echo"},
	})
	require.True(t, ok)
	assert.Equal(t, ServerInfo{Name: "echo", Endpoint: netip.MustParseAddrPort("10.0.0.5:24000")}, got)

	got, ok = fromEntry(&mdns.ServiceEntry{
		Name:   "other._netdisco._udp.local.",
		AddrV4: net.IPv4(10, 0, 0, 6),
		Port:   1,
	})
	require.True(t, ok)
	assert.Equal(t, "other", got.Name)

	_, ok = fromEntry(&mdns.ServiceEntry{Name: "x", Port: 1})
	assert.False(t, ok)
	_, ok = fromEntry(nil)
	assert.False(t, ok)
}
