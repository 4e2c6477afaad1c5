// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/Cloudxtreme/netdisco"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
)

func newDiscoverCmd(g *globals) *cobra.Command {
	var (
		wait time.Duration
		name string
		mdns bool
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the servers answering discovery probes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := g.cfg.Discovery(g.logger)
			if err != nil {
				return err
			}
			dir := netdisco.NewDirectory(2*wait, time.Second)
			defer dir.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			dir.Collect(ctx, d.Discover(ctx))

			if mdns {
				found, err := netdisco.BrowseMDNS(name, wait)
				if err != nil {
					level.Warn(g.logger).Log("msg", "mDNS browsing failed", "err", err)
				}
				for _, info := range found {
					dir.Observe(info)
				}
			}

			out := cmd.OutOrStdout()
			n := 0
			for _, info := range dir.List() {
				if name != "" && info.Name != name {
					continue
				}
				fmt.Fprintf(out, "%-24s %v\n", info.Name, info.Endpoint)
				n++
			}
			if n == 0 {
				if name != "" {
					return &netdisco.OpError{Op: "discover", Name: name, Err: netdisco.ErrNotFound}
				}
				fmt.Fprintln(out, "no servers found")
			}
			return nil
		},
	}
	cmd.Flags().DurationVarP(&wait, "wait", "w", 3*time.Second, "how long to collect answers")
	cmd.Flags().StringVarP(&name, "name", "n", "", "only list the server with this name")
	cmd.Flags().BoolVar(&mdns, "mdns", false, "also browse mDNS")
	return cmd
}
