// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package main

import "github.com/Cloudxtreme/netdisco/internal/cli"

func main() {
	cli.Execute()
}
