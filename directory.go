// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"context"
	"sort"
	"sync"
	"time"
)

type entry struct {
	info ServerInfo
	ttl  time.Time
}

// Directory remembers the servers seen by discovery. An entry not seen for
// the ttl is forgotten. The zero value keeps its entries forever and has no
// janitor; NewDirectory makes one that expires them.
type Directory struct {
	entries  map[string]*entry
	duration time.Duration
	lck      sync.RWMutex
	chclose  chan chan struct{}
	once     sync.Once
}

// NewDirectory creates a directory whose entries live for ttl. Expired
// entries are swept every interval.
func NewDirectory(ttl, interval time.Duration) *Directory {
	if interval <= 0 {
		interval = ttl
	}
	if interval <= 0 {
		interval = time.Second
	}
	d := &Directory{
		entries:  make(map[string]*entry),
		duration: ttl,
		chclose:  make(chan chan struct{}),
	}
	go d.janitor(interval)
	return d
}

func (d *Directory) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.expire(time.Now())
		case ch := <-d.chclose:
			ch <- struct{}{}
			return
		}
	}
}

func (d *Directory) expire(now time.Time) {
	d.lck.Lock()
	defer d.lck.Unlock()
	for name, e := range d.entries {
		if d.expired(e, now) {
			delete(d.entries, name)
		}
	}
}

func (d *Directory) expired(e *entry, now time.Time) bool {
	return d.duration > 0 && now.After(e.ttl)
}

// Close stops the janitor. It is idempotent.
func (d *Directory) Close() {
	d.once.Do(func() {
		if d.chclose == nil {
			return
		}
		ch := make(chan struct{})
		d.chclose <- ch
		<-ch
	})
}

// Observe records info and renews its ttl. It reports whether the server
// is new or moved to another endpoint.
func (d *Directory) Observe(info ServerInfo) bool {
	d.lck.Lock()
	defer d.lck.Unlock()
	ttl := time.Now().Add(d.duration)
	e, found := d.entries[info.Name]
	if found && e.info == info {
		e.ttl = ttl
		return false
	}
	if d.entries == nil {
		d.entries = make(map[string]*entry)
	}
	d.entries[info.Name] = &entry{info: info, ttl: ttl}
	return true
}

// Get returns the server named name.
func (d *Directory) Get(name string) (ServerInfo, error) {
	d.lck.RLock()
	defer d.lck.RUnlock()
	e, found := d.entries[name]
	if !found || d.expired(e, time.Now()) {
		return ServerInfo{}, &OpError{Op: "lookup", Name: name, Err: ErrNotFound}
	}
	return e.info, nil
}

// Del forgets the server named name.
func (d *Directory) Del(name string) error {
	d.lck.Lock()
	defer d.lck.Unlock()
	if _, found := d.entries[name]; !found {
		return &OpError{Op: "lookup", Name: name, Err: ErrNotFound}
	}
	delete(d.entries, name)
	return nil
}

// List returns the live servers sorted by name.
func (d *Directory) List() []ServerInfo {
	d.lck.RLock()
	defer d.lck.RUnlock()
	now := time.Now()
	list := make([]ServerInfo, 0, len(d.entries))
	for _, e := range d.entries {
		if d.expired(e, now) {
			continue
		}
		list = append(list, e.info)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

// Collect observes every server of the stream until it ends or ctx is done
// and returns how many new servers were seen.
func (d *Directory) Collect(ctx context.Context, stream <-chan ServerInfo) int {
	n := 0
	for {
		select {
		case info, ok := <-stream:
			if !ok {
				return n
			}
			if d.Observe(info) {
				n++
			}
		case <-ctx.Done():
			return n
		}
	}
}
