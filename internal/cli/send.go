// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Cloudxtreme/netdisco"
	"github.com/spf13/cobra"
)

func newSendCmd(g *globals) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "send <name> <message...>",
		Short: "Send a message to the echo server named name",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("timeout") {
				g.cfg.Timeout = timeout
			}
			opts, err := g.cfg.Options(g.logger)
			if err != nil {
				return err
			}
			client := netdisco.NewClient[EchoRequest, EchoResponse](args[0], echoError, opts...)
			defer client.Stop()

			resp, err := client.Send(cmd.Context(), EchoRequest{Message: strings.Join(args[1:], " ")})
			if err != nil {
				return err
			}
			if resp.Error != "" {
				return fmt.Errorf("server %s: %s", args[0], resp.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Result)
			return nil
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "how long to wait for discovery (default from config)")
	return cmd
}
