// Copyright 2020-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package server is the command line entry point for voipnow-mcp.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/utils/clock"

	"go.voipnowmcp.dev/internal/authgate"
	"go.voipnowmcp.dev/internal/config"
	"go.voipnowmcp.dev/internal/here"
	"go.voipnowmcp.dev/internal/hotreload"
	"go.voipnowmcp.dev/internal/httputil/requestlog"
	"go.voipnowmcp.dev/internal/httputil/securityheader"
	"go.voipnowmcp.dev/internal/lifecycle"
	"go.voipnowmcp.dev/internal/mcp"
	"go.voipnowmcp.dev/internal/platform"
	"go.voipnowmcp.dev/internal/plog"
	"go.voipnowmcp.dev/internal/pversion"
	"go.voipnowmcp.dev/internal/tokenissuer"
	"go.voipnowmcp.dev/internal/tokenrefresher"
	"go.voipnowmcp.dev/internal/tools"
)

const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
	TransportSSE            = "sse"

	shutdownTimeout = 5 * time.Second
)

// App is an object that represents the voipnow-mcp application.
type App struct {
	cmd *cobra.Command

	stdin  io.Reader
	stdout io.Writer

	// CLI flags
	configPath   string
	port         int
	address      string
	transport    string
	secure       bool
	logTransport string
	logFormat    string
	version      bool
}

// New constructs a new App with command line args, stdin, stdout and stderr.
func New(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) *App {
	app := &App{stdin: stdin, stdout: stdout}
	app.addServerCommand(ctx, args, stdout, stderr)
	return app
}

// Run the server.
func (a *App) Run() error {
	return a.cmd.Execute()
}

// Create the server command and save it into the App.
func (a *App) addServerCommand(ctx context.Context, args []string, stdout, stderr io.Writer) {
	cmd := &cobra.Command{
		Use: "voipnow-mcp",
		Long: here.Doc(`
			voipnow-mcp serves VoipNow call management tools to MCP clients.

			It keeps a platform access token fresh in the background and reloads
			its configuration file when the file changes or when the process
			receives SIGHUP.
		`),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE:       func(_ *cobra.Command, _ []string) error { return a.validateFlags() },
		RunE:          func(cmd *cobra.Command, _ []string) error { return a.runServer(cmd.Context()) },
	}

	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetContext(ctx)
	addCommandlineFlagsToCommand(cmd, a)

	a.cmd = cmd
}

func addCommandlineFlagsToCommand(cmd *cobra.Command, app *App) {
	cmd.Flags().StringVarP(&app.configPath, "config", "c", "", "path to the configuration file")
	cmd.Flags().IntVarP(&app.port, "port", "p", 8000, "port to listen on for networked transports")
	cmd.Flags().StringVarP(&app.address, "address", "a", "localhost", "address to listen on for networked transports")
	cmd.Flags().StringVarP(&app.transport, "transport", "t", TransportStdio, "one of stdio, streamable-http or sse")
	cmd.Flags().BoolVarP(&app.secure, "secure", "s", false, "require a bearer token on networked transports")
	cmd.Flags().StringVarP(&app.logTransport, "log-transport", "l", string(plog.TransportConsole), "where to send logs, console or syslog")
	cmd.Flags().StringVar(&app.logFormat, "log-format", string(plog.FormatJSON), "log output format, json or text")
	cmd.Flags().BoolVar(&app.version, "version", false, "print the version and exit")
}

func (a *App) validateFlags() error {
	if a.version {
		return nil
	}
	if a.configPath == "" {
		return errors.New("--config is required")
	}
	if !sets.New(TransportStdio, TransportStreamableHTTP, TransportSSE).Has(a.transport) {
		return fmt.Errorf("invalid transport %q, valid choices are stdio, streamable-http and sse", a.transport)
	}
	if a.port < 1 || a.port > 65535 {
		return fmt.Errorf("invalid port %d, must be between 1 and 65535", a.port)
	}
	return nil
}

func (a *App) networked() bool {
	return a.transport != TransportStdio
}

func (a *App) runServer(ctx context.Context) error {
	info := pversion.Get()
	if a.version {
		_, err := fmt.Fprintln(a.stdout, info.String())
		return err
	}

	if err := plog.ValidateAndSetLogLevelAndFormatGlobally(ctx, plog.LogSpec{
		Level:     plog.LevelInfo,
		Format:    plog.LogFormat(a.logFormat),
		Transport: plog.LogTransport(a.logTransport),
	}); err != nil {
		return fmt.Errorf("could not configure logging: %w", err)
	}

	plog.Always("Running voipnow-mcp",
		"version", info.GitVersion,
		"transport", a.transport,
		"config", a.configPath,
	)

	if a.secure && !a.networked() {
		plog.Warning("--secure has no effect on the stdio transport")
	}

	manager, err := lifecycle.NewManager(a.configPath, tokenissuer.New(),
		lifecycle.WithConfigOptions(config.Options{RequireInboundSecret: a.secure && a.networked()}),
	)
	if err != nil {
		return err
	}
	if err := manager.Load(ctx); err != nil {
		return fmt.Errorf("could not start: %w", err)
	}

	registry, err := tools.NewRegistry(tools.Calls(platform.New(manager))...)
	if err != nil {
		return fmt.Errorf("could not register tools: %w", err)
	}
	mcpServer := mcp.NewServer(registry, mcp.WithVersion(info.GitVersion))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		tokenrefresher.New(manager).Start(ctx)
		return nil
	})
	eg.Go(func() error {
		return hotreload.New(manager).Start(ctx)
	})

	if a.networked() {
		if a.transport == TransportSSE {
			plog.Warning("the sse transport is deprecated, serving streamable-http instead")
		}
		handler := a.httpHandler(manager, mcpServer)
		if err := a.serveHTTP(ctx, eg, handler); err != nil {
			cancel()
			return errors.Join(err, eg.Wait())
		}
	} else {
		eg.Go(func() error {
			defer cancel() // the other workers stop once the client closes stdin
			return mcpServer.ServeStdio(ctx, a.stdin, a.stdout)
		})
	}

	err = eg.Wait()
	plog.Info("voipnow-mcp is stopping")
	return err
}

func (a *App) httpHandler(manager *lifecycle.Manager, mcpServer *mcp.Server) http.Handler {
	endpoint := mcpServer.Handler()
	if a.secure {
		gate := authgate.New(authgate.NewFileSecretSource(manager.ConfigPath()), clock.RealClock{})
		endpoint = gate.Middleware(endpoint)
	}

	mux := http.NewServeMux()
	mux.Handle(mcp.EndpointPath, endpoint)

	return requestlog.Wrap(plog.New(), securityheader.Wrap(mux))
}

func (a *App) serveHTTP(ctx context.Context, eg *errgroup.Group, handler http.Handler) error {
	listener, err := net.Listen("tcp", net.JoinHostPort(a.address, strconv.Itoa(a.port)))
	if err != nil {
		return fmt.Errorf("could not listen: %w", err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	eg.Go(func() error {
		plog.Info("serving MCP over HTTP", "address", listener.Addr().String(), "path", mcp.EndpointPath,
			"authenticated", a.secure)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			plog.WarningErr("http server did not shut down cleanly", err)
		}
		return nil
	})
	return nil
}
