// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Command goafl-broker runs a standalone broker process: the shared event
// log workers report NewTestcase/UpdateStats/Objective/Log events to,
// optionally meshed with one peer broker via --b2baddr.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/goafl/pkg/event"
	"github.com/google/goafl/pkg/log"
	"github.com/google/goafl/pkg/osutil"
)

var (
	flagAddr    = flag.String("addr", ":0", "address to listen on, e.g. \":9000\"")
	flagB2BAddr = flag.String("b2baddr", "", "optional peer broker to mesh with")
	flagDebug   = flag.Bool("debug", false, "enable verbose logging")
)

func main() {
	flag.Parse()
	if *flagDebug {
		log.SetVerbosity(2)
	}

	broker := event.NewBroker(*flagB2BAddr)
	addr, err := broker.ListenAndServe(*flagAddr)
	if err != nil {
		log.Fatalf("failed to start broker: %v", err)
	}
	defer broker.Close()
	fmt.Fprintf(os.Stdout, "%s\n", addr)
	log.Logf(0, "broker listening on %s", addr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdown := make(chan struct{})
	osutil.HandleInterrupts(shutdown)

	select {
	case <-shutdown:
	case <-ctx.Done():
	}
	log.Logf(0, "broker shutting down")
}
