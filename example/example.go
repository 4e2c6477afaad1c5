package main

import (
	"context"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/Cloudxtreme/netdisco"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type request struct {
	Message string `json:"message"`
}

type response struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func main() {
	logger, err := netdisco.NewLogger(os.Stderr, netdisco.FormatLogfmt)
	if err != nil {
		panic(err)
	}
	logger, _ = netdisco.LevelFilter(logger, "info")

	in, err := netdisco.FindInterface(net.FlagLoopback)
	if err != nil {
		level.Error(logger).Log("msg", "No loopback interface", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "Interface", "name", in)

	server := netdisco.NewServer[request, response]("echo", netip.MustParseAddrPort("127.0.0.1:24000"),
		netdisco.HandlerFuncs[request, response]{
			Process: func(req request) (response, error) {
				return response{Result: "got: " + req.Message}, nil
			},
		},
		netdisco.WithLogger(log.With(logger, "side", "server")),
	)
	defer server.Stop()

	client := netdisco.NewClient("echo", func(req request, err error) response {
		return response{Error: err.Error()}
	},
		netdisco.WithInterface(in),
		netdisco.WithTimeout(10*time.Second),
		netdisco.WithLogger(log.With(logger, "side", "client")),
	)
	defer client.Stop()

	resp, err := client.Send(context.Background(), request{Message: "hi"})
	if err != nil {
		level.Error(logger).Log("msg", "Request failed", "err", err)
		return
	}
	level.Info(logger).Log("msg", "Response", "result", resp.Result, "error", resp.Error)
}
