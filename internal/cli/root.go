// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

// Package cli implements the netdisco command.
package cli

import (
	"fmt"
	"os"

	"github.com/Cloudxtreme/netdisco"
	"github.com/Cloudxtreme/netdisco/internal/config"
	"github.com/go-kit/log"
	"github.com/spf13/cobra"
)

// globals holds the flags shared by every command and the state built from
// them before a command runs.
type globals struct {
	cfgFile   string
	logLevel  string
	logFormat string
	port      int
	token     string
	intface   string
	codec     string

	cfg    *config.Config
	logger log.Logger
}

// NewRootCmd returns the netdisco command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "netdisco",
		Short: "Announce, discover and query named servers on the local network",
		Long: `netdisco finds named request/response servers by broadcasting a discovery
probe on the local network, and talks to them over UDP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.cfgFile, "config", "", "config file (default is ~/.netdisco/config.yaml)")
	flags.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&g.logFormat, "log-format", "", "log format: logfmt, json")
	flags.IntVarP(&g.port, "port", "p", netdisco.DefaultPort, "discovery port")
	flags.StringVar(&g.token, "token", netdisco.DefaultTokenString, "discovery probe token")
	flags.StringVarP(&g.intface, "interface", "i", "", "interface used to send discovery probes")
	flags.StringVar(&g.codec, "codec", "", "payload codec: json, yaml")

	root.AddCommand(
		newServeCmd(g),
		newDiscoverCmd(g),
		newSendCmd(g),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration, applies the flags that were set and builds
// the logger.
func (g *globals) load(cmd *cobra.Command) error {
	path := g.cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = g.logFormat
	}
	if flags.Changed("port") {
		cfg.Port = g.port
	}
	if flags.Changed("token") {
		cfg.Token = g.token
	}
	if flags.Changed("interface") {
		cfg.Interface = g.intface
	}
	if flags.Changed("codec") {
		cfg.Codec = g.codec
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := netdisco.NewLogger(cmd.ErrOrStderr(), cfg.LogFormat)
	if err != nil {
		return err
	}
	logger, err = netdisco.LevelFilter(logger, cfg.LogLevel)
	if err != nil {
		return err
	}
	g.cfg = cfg
	g.logger = logger
	return nil
}

// Execute runs the netdisco command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
