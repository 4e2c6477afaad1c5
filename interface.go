// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"fmt"
	"net"
	"net/netip"
)

// Intface selects the network interface used to send discovery probes.
type Intface struct {
	// Interface is the interface name. When empty probes go to the limited
	// broadcast address 255.255.255.255.
	Interface string
}

// broadcast returns where probes for port are sent: the directed broadcast
// address of the interface, its own address for a loopback interface or the
// limited broadcast address when no interface is set.
func (i Intface) broadcast(port int) (*net.UDPAddr, error) {
	if i.Interface == "" {
		return &net.UDPAddr{IP: net.IPv4bcast, Port: port}, nil
	}
	in, err := net.InterfaceByName(i.Interface)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrNoInterface, i.Interface, err)
	}
	addrs, err := in.Addrs()
	if err != nil {
		return nil, fmt.Errorf("interface %q addresses: %w", i.Interface, err)
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.To4() == nil {
			continue
		}
		if in.Flags&net.FlagLoopback == net.FlagLoopback {
			return &net.UDPAddr{IP: ipnet.IP.To4(), Port: port}, nil
		}
		if in.Flags&net.FlagBroadcast == net.FlagBroadcast {
			return &net.UDPAddr{IP: directedBroadcast(ipnet), Port: port}, nil
		}
	}
	return nil, fmt.Errorf("%w: interface %q has no broadcast capable ipv4 address", ErrInvalidAddress, i.Interface)
}

func directedBroadcast(n *net.IPNet) net.IP {
	ip := n.IP.To4()
	mask := n.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	out := make(net.IP, net.IPv4len)
	for i := range out {
		out[i] = ip[i] | ^mask[i]
	}
	return out
}

// FindInterface returns the name of the first interface that is up, has
// all the flags and at least one address.
func FindInterface(flag net.Flags) (string, error) {
	ints, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	for _, in := range ints {
		if in.Flags&net.FlagUp == 0 || in.Flags&flag != flag {
			continue
		}
		addrs, err := in.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		return in.Name, nil
	}
	return "", ErrNoInterface
}

// localIPv4 returns the first ipv4 address of an interface that is up and
// isn't a loopback, or 127.0.0.1.
func localIPv4() netip.Addr {
	ints, err := net.Interfaces()
	if err != nil {
		return netip.AddrFrom4([4]byte{127, 0, 0, 1})
	}
	for _, in := range ints {
		if in.Flags&net.FlagUp == 0 || in.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := in.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.IsLoopback() {
				continue
			}
			if ip, ok := netip.AddrFromSlice(ipnet.IP.To4()); ok {
				return ip
			}
		}
	}
	return netip.AddrFrom4([4]byte{127, 0, 0, 1})
}
