package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/sift/internal/compiler"
	"github.com/roach88/sift/internal/server"
	"github.com/roach88/sift/internal/store"
)

// ServeOptions holds flags for the serve command. Non-empty flags override
// the configuration file.
type ServeOptions struct {
	*RootOptions
	Addr       string
	SchemasDir string
	Driver     string
	DSN        string

	// IDGenerator overrides the request id generator (for testing).
	// If nil, defaults to server.UUIDv7Generator.
	IDGenerator server.IDGenerator

	// ready is called with the bound address once the listener is open.
	ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve filters over HTTP",
		Long: `Compile the configured schemas, open the configured database and answer
list requests over HTTP until interrupted.

Configuration is read from sift.yaml (found by walking up from the working
directory, or given with --config) and SIFT_* environment variables such
as SIFT_DATABASE_DSN. Flags take precedence over both.

Example:
  sift serve
  sift serve --addr :9090 --schemas ./schemas --dsn ./app.db
  SIFT_DATABASE_DRIVER=postgres SIFT_DATABASE_DSN=postgres://localhost/app sift serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&opts.SchemasDir, "schemas", "", "schema directory (default from config)")
	cmd.Flags().StringVar(&opts.Driver, "driver", "", "database driver: sqlite3 or postgres (default from config)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "database DSN (default from config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, cfgPath, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	opts.override(cfg)

	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr(), opts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log config", err)
	}
	slog.SetDefault(logger)
	if cfgPath != "" {
		slog.Info("config loaded", "path", cfgPath)
	}

	slog.Info("compiling schemas", "dir", cfg.SchemasDir)
	reg, errs := compiler.Load(cfg.SchemasDir)
	if len(errs) > 0 {
		for _, e := range errs {
			slog.Error("schema error", "error", e)
		}
		return WrapExitError(ExitCommandError, "failed to compile schemas", errors.Join(errs...))
	}
	slog.Info("schemas compiled", "filters", len(reg.Names()), "entities", len(reg.EntityNames()))

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	slog.Info("opening database", "driver", cfg.Database.Driver)
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	srvOpts := []server.Option{
		server.WithLogger(logger),
		server.WithIgnoreUnknown(cfg.Server.IgnoreUnknownParams),
		server.WithMaxRows(cfg.Server.MaxRows),
	}
	if opts.IDGenerator != nil {
		srvOpts = append(srvOpts, server.WithIDGenerator(opts.IDGenerator))
	}
	httpServer := &http.Server{
		Handler:  server.New(reg, st, srvOpts...).Handler(),
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(ln)
	}()

	addr := ln.Addr().String()
	slog.Info("server listening", "addr", addr)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %d filter(s) on %s\n", len(reg.Names()), addr)
	if opts.ready != nil {
		opts.ready(addr)
	}

	select {
	case err := <-serveErr:
		return WrapExitError(ExitFailure, "server error", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// override applies non-empty flags on top of cfg.
func (o *ServeOptions) override(cfg *Config) {
	if o.Addr != "" {
		cfg.Server.Addr = o.Addr
	}
	if o.SchemasDir != "" {
		cfg.SchemasDir = o.SchemasDir
	}
	if o.Driver != "" {
		cfg.Database.Driver = o.Driver
	}
	if o.DSN != "" {
		cfg.Database.DSN = o.DSN
	}
}
