// Copyright 2020-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package main is the entrypoint for the voipnow-mcp server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.voipnowmcp.dev/internal/plog"
	"go.voipnowmcp.dev/internal/server"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error { // return an error instead of exiting to allow defer statements to run
	defer plog.Setup()()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr).Run(); err != nil {
		plog.Error("voipnow-mcp failed", err)
		return err
	}
	return nil
}
