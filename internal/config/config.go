// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

// Package config loads the netdisco command configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Cloudxtreme/netdisco"
	"github.com/go-kit/log"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variables that override the file.
const EnvPrefix = "NETDISCO_"

// Config holds the netdisco command configuration.
type Config struct {
	Port      int           `yaml:"port" json:"port"`
	Token     string        `yaml:"token" json:"token"`
	Interface string        `yaml:"interface" json:"interface"`
	Codec     string        `yaml:"codec" json:"codec"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	Interval  time.Duration `yaml:"interval" json:"interval"`
	LogLevel  string        `yaml:"log_level" json:"log_level"`
	LogFormat string        `yaml:"log_format" json:"log_format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:      netdisco.DefaultPort,
		Token:     netdisco.DefaultTokenString,
		Codec:     netdisco.JSON.Name(),
		Timeout:   10 * time.Second,
		Interval:  netdisco.DefaultProbeInterval,
		LogLevel:  "info",
		LogFormat: netdisco.FormatLogfmt,
	}
}

// DefaultPath returns the default config file path: ~/.netdisco/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".netdisco", "config.yaml")
	}
	return filepath.Join(home, ".netdisco", "config.yaml")
}

// Load reads the configuration from the YAML file at path and applies the
// environment overrides. A missing file gives the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sPORT: %w", EnvPrefix, err)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvPrefix + "TOKEN"); ok {
		c.Token = v
	}
	if v, ok := lookup(EnvPrefix + "INTERFACE"); ok {
		c.Interface = v
	}
	if v, ok := lookup(EnvPrefix + "CODEC"); ok {
		c.Codec = v
	}
	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	if v, ok := lookup(EnvPrefix + "INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sINTERVAL: %w", EnvPrefix, err)
		}
		c.Interval = d
	}
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	return nil
}

// Validate checks the values the library can't default.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Token == "" {
		return fmt.Errorf("empty discovery token")
	}
	if _, err := netdisco.CodecByName(c.Codec); err != nil {
		return err
	}
	return nil
}

// Discovery returns the discovery settings of the configuration.
func (c *Config) Discovery(logger log.Logger) (netdisco.Discovery, error) {
	codec, err := netdisco.CodecByName(c.Codec)
	if err != nil {
		return netdisco.Discovery{}, err
	}
	return netdisco.Discovery{
		Intface:  netdisco.Intface{Interface: c.Interface},
		Port:     c.Port,
		Token:    []byte(c.Token),
		Interval: c.Interval,
		Codec:    codec,
		Logger:   logger,
	}, nil
}

// Options returns the client and server options of the configuration.
func (c *Config) Options(logger log.Logger) ([]netdisco.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	codec, _ := netdisco.CodecByName(c.Codec)
	return []netdisco.Option{
		netdisco.WithLogger(logger),
		netdisco.WithDiscoveryPort(c.Port),
		netdisco.WithToken([]byte(c.Token)),
		netdisco.WithInterface(c.Interface),
		netdisco.WithCodec(codec),
		netdisco.WithTimeout(c.Timeout),
		netdisco.WithProbeInterval(c.Interval),
	}, nil
}
