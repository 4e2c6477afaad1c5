// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/mdns"
)

// MDNSService is the service type servers are published under.
const MDNSService = "_netdisco._udp"

const txtName = "name="

// mdnsService builds the zone published for info.
func mdnsService(info ServerInfo) (*mdns.MDNSService, error) {
	if info.Name == "" {
		return nil, fmt.Errorf("%w: empty server name", ErrInvalidAddress)
	}
	if !info.Endpoint.IsValid() || info.Endpoint.Port() == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, info.Endpoint)
	}
	ip := net.IP(info.Endpoint.Addr().Unmap().AsSlice())
	return mdns.NewMDNSService(
		info.Name,
		MDNSService,
		"",
		"",
		int(info.Endpoint.Port()),
		[]net.IP{ip},
		[]string{txtName + info.Name},
	)
}

// MDNSAnnouncer publishes a server over mDNS until closed.
type MDNSAnnouncer struct {
	server *mdns.Server
	info   ServerInfo
	logger log.Logger
	once   sync.Once
}

// AnnounceMDNS starts answering mDNS queries for info.
func AnnounceMDNS(info ServerInfo, logger log.Logger) (*MDNSAnnouncer, error) {
	logger = orNop(logger)
	zone, err := mdnsService(info)
	if err != nil {
		return nil, &OpError{Op: "mdns", Name: info.Name, Err: err}
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: zone})
	if err != nil {
		return nil, &OpError{Op: "mdns", Name: info.Name, Err: err}
	}
	level.Info(logger).Log("msg", "Announcing over mDNS", "service", MDNSService, "server", info)
	return &MDNSAnnouncer{server: server, info: info, logger: logger}, nil
}

// Close stops the announcement. It is idempotent.
func (a *MDNSAnnouncer) Close() error {
	var err error
	a.once.Do(func() {
		err = a.server.Shutdown()
		if err != nil {
			level.Error(a.logger).Log("msg", "An error occurred stopping the mDNS announcement", "server", a.info, "err", err)
		}
	})
	return err
}

// BrowseMDNS queries mDNS for servers during timeout. When name isn't
// empty only that server is returned.
func BrowseMDNS(name string, timeout time.Duration) ([]ServerInfo, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	var (
		found []ServerInfo
		wg    sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			info, ok := fromEntry(entry)
			if !ok || (name != "" && info.Name != name) {
				continue
			}
			found = append(found, info)
		}
	}()

	params := mdns.DefaultParams(MDNSService)
	params.Entries = entries
	if timeout > 0 {
		params.Timeout = timeout
	}
	err := mdns.Query(params)
	close(entries)
	wg.Wait()
	if err != nil {
		return found, &OpError{Op: "mdns", Name: name, Err: err}
	}
	return found, nil
}

// fromEntry reads a server out of an mDNS answer. The name comes from the
// TXT record, falling back to the instance label.
func fromEntry(e *mdns.ServiceEntry) (ServerInfo, bool) {
	if e == nil || e.AddrV4 == nil || e.Port <= 0 || e.Port > 65535 {
		return ServerInfo{}, false
	}
	addr, ok := netip.AddrFromSlice(e.AddrV4.To4())
	if !ok {
		return ServerInfo{}, false
	}
	name := ""
	for _, field := range e.InfoFields {
		if strings.HasPrefix(field, txtName) {
			name = strings.TrimPrefix(field, txtName)
			break
		}
	}
	if name == "" {
		name, _, _ = strings.Cut(e.Name, ".")
	}
	if name == "" {
		return ServerInfo{}, false
	}
	return ServerInfo{Name: name, Endpoint: netip.AddrPortFrom(addr, uint16(e.Port))}, true
}
