// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

/*
Package netdisco announces and discovers named request/response servers on
a broadcast capable IPv4 network.

A client broadcasts a probe token to the discovery port. Every server
listening on that port answers with its name and request endpoint. The
client keeps the endpoint of the server with the wanted name and sends
its requests there, one datagram per request and one per reply.

See the example:

	package main

	import (
		"context"
		"fmt"
		"log"
		"net"
		"net/netip"

		"github.com/Cloudxtreme/netdisco"
	)

	type Request struct{ Message string }
	type Response struct{ Result, Error string }

	func main() {
		in, err := netdisco.FindInterface(net.FlagLoopback)
		if err != nil {
			log.Fatal(err)
		}

		server := netdisco.NewServer[Request, Response]("echo", netip.MustParseAddrPort("127.0.0.1:24000"),
			netdisco.HandlerFuncs[Request, Response]{
				Process: func(req Request) (Response, error) {
					return Response{Result: "got: " + req.Message}, nil
				},
			})
		defer server.Stop()

		client := netdisco.NewClient("echo", func(req Request, err error) Response {
			return Response{Error: err.Error()}
		}, netdisco.WithInterface(in))
		defer client.Stop()

		resp, err := client.Send(context.Background(), Request{Message: "hi"})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(resp.Result)
	}
*/
package netdisco
