// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// component runs the two loops shared by clients and servers: the auto
// loop, which takes care of discovery, and the user loop, which serves the
// application. Once stopping is set it is never unset.
type component struct {
	name     string
	set      settings
	logger   log.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	stopping atomic.Bool
	stopOnce sync.Once
	wg       sync.WaitGroup
	auto     loop
	user     loop
}

type loop struct {
	name    string
	run     func(ctx context.Context)
	running atomic.Bool
}

func newComponent(kind, name string, opts []Option) *component {
	set := newSettings(opts)
	ctx, cancel := context.WithCancel(context.Background())
	logger := log.With(set.discovery.Logger, "component", kind, "name", name)
	set.discovery.Logger = logger
	return &component{
		name:   name,
		set:    set,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// start launches both loops.
func (c *component) start(auto, user func(ctx context.Context)) {
	c.auto.name, c.auto.run = "auto", auto
	c.user.name, c.user.run = "user", user
	c.Start()
}

// Start launches the loops that aren't running. It does nothing once the
// component is stopping.
func (c *component) Start() {
	c.launch(&c.user)
	c.launch(&c.auto)
}

func (c *component) launch(l *loop) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l.run == nil || c.stopping.Load() {
		return
	}
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer l.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				level.Error(c.logger).Log("msg", "Loop terminated by a panic", "loop", l.name, "err", &PanicError{Value: r})
			}
		}()
		level.Debug(c.logger).Log("msg", "Loop started", "loop", l.name)
		l.run(c.ctx)
		level.Debug(c.logger).Log("msg", "Loop finished", "loop", l.name)
	}()
}

// Stop cancels both loops, closes their sockets and waits for them to
// return. It is idempotent. Stop must not be called from inside a hook run
// by the component itself.
func (c *component) Stop() error {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopping.Store(true)
		c.mu.Unlock()
		c.cancel()
		level.Debug(c.logger).Log("msg", "Stopping")
	})
	c.wg.Wait()
	return nil
}

// Close is Stop.
func (c *component) Close() error {
	return c.Stop()
}

// Stopping reports whether Stop was called.
func (c *component) Stopping() bool {
	return c.stopping.Load()
}

// Name is the logical name of the component.
func (c *component) Name() string {
	return c.name
}
