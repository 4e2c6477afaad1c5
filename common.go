// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package netdisco

import (
	"time"

	"github.com/go-kit/log"
)

const (
	// DefaultPort is the discovery port.
	DefaultPort = 18500
	// DefaultTokenString is the discovery probe payload.
	DefaultTokenString = "ADR"
	// DefaultTimeout is how long a client waits for discovery before failing a request.
	DefaultTimeout = time.Minute
	// DefaultProbeInterval is how often a client repeats its discovery probe.
	DefaultProbeInterval = time.Second
)

// DefaultToken returns the default discovery probe payload.
func DefaultToken() []byte {
	return []byte(DefaultTokenString)
}

// State of a component capability.
type State int32

const (
	StateDown State = iota
	StateUp
)

func (s State) String() string {
	if s == StateUp {
		return "up"
	}
	return "down"
}

type settings struct {
	discovery        Discovery
	timeout          time.Duration
	roundTripTimeout time.Duration
	roundTripSet     bool
	onDiscovered     func(ServerInfo)
	fallback         func(error) []byte
	fallbackSet      bool
	mdns             bool
}

// Option configures a Client or a Server. Options that only make sense for
// one of them are ignored by the other.
type Option func(*settings)

func newSettings(opts []Option) settings {
	s := settings{
		discovery: Discovery{
			Port:     DefaultPort,
			Token:    DefaultToken(),
			Interval: DefaultProbeInterval,
			Codec:    JSON,
		},
		timeout:  DefaultTimeout,
		fallback: ErrorText,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if !s.roundTripSet {
		s.roundTripTimeout = s.timeout
	}
	s.discovery = s.discovery.withDefaults()
	return s
}

// WithLogger sets the logger of the component. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(s *settings) {
		s.discovery.Logger = logger
	}
}

// WithDiscoveryPort sets the discovery port. It must match on both sides.
func WithDiscoveryPort(port int) Option {
	return func(s *settings) {
		s.discovery.Port = port
	}
}

// WithToken sets the discovery probe payload. It must match on both sides.
func WithToken(token []byte) Option {
	return func(s *settings) {
		s.discovery.Token = append([]byte(nil), token...)
	}
}

// WithInterface restricts discovery probes to the named interface.
func WithInterface(name string) Option {
	return func(s *settings) {
		s.discovery.Interface = name
	}
}

// WithCodec sets the payload codec. It must match on both sides.
func WithCodec(c Codec) Option {
	return func(s *settings) {
		s.discovery.Codec = c
	}
}

// WithBufSize sets the receive buffer size.
func WithBufSize(n int) Option {
	return func(s *settings) {
		s.discovery.BufSize = n
	}
}

// WithProbeInterval sets how often a client repeats its discovery probe.
// Zero probes only once.
func WithProbeInterval(d time.Duration) Option {
	return func(s *settings) {
		s.discovery.Interval = d
	}
}

// WithTimeout sets how long Client.Send waits for discovery. Zero means the
// server must already be known.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

// WithRoundTripTimeout bounds the wait for a reply. It defaults to the
// discovery timeout; zero waits forever.
func WithRoundTripTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.roundTripTimeout = d
		s.roundTripSet = true
	}
}

// OnServerDiscovered registers a hook called by the client once its server is found.
func OnServerDiscovered(fn func(ServerInfo)) Option {
	return func(s *settings) {
		s.onDiscovered = fn
	}
}

// WithFallback sets the server payload sent when the request pipeline
// itself breaks down. Once set it is also sent when both ProcessRequest and
// HandleError fail.
func WithFallback(fn func(error) []byte) Option {
	return func(s *settings) {
		if fn != nil {
			s.fallback = fn
			s.fallbackSet = true
		}
	}
}

// WithMDNS makes the server also publish itself over mDNS.
func WithMDNS(enabled bool) Option {
	return func(s *settings) {
		s.mdns = enabled
	}
}

// ErrorText is the default server fallback: the error text.
func ErrorText(err error) []byte {
	if err == nil {
		return []byte{}
	}
	return []byte(err.Error())
}
