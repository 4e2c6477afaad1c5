// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Cloudxtreme/netdisco"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
)

func newServeCmd(g *globals) *cobra.Command {
	var (
		addr   string
		mdns   bool
		runFor time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve <name>",
		Short: "Run an echo server announced under name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := netip.ParseAddrPort(addr)
			if err != nil {
				return fmt.Errorf("invalid address %q: %w", addr, err)
			}
			opts, err := g.cfg.Options(g.logger)
			if err != nil {
				return err
			}
			opts = append(opts, netdisco.WithMDNS(mdns))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if runFor > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, runFor)
				defer cancel()
			}

			server := netdisco.NewServer[EchoRequest, EchoResponse](args[0], endpoint, echoHandler{}, opts...)
			defer server.Stop()
			fmt.Fprintf(cmd.OutOrStdout(), "serving %s\n", server)

			<-ctx.Done()
			level.Info(g.logger).Log("msg", "Shutting down", "server", server)
			return nil
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "0.0.0.0:24000", "request endpoint")
	cmd.Flags().BoolVar(&mdns, "mdns", false, "also announce the server over mDNS")
	cmd.Flags().DurationVar(&runFor, "for", 0, "stop after this long (default: until interrupted)")
	return cmd
}
