// mcp-postgres-full-access - Postgres MCP server with managed write transactions.
//
// The server speaks MCP over stdio. Read queries run in isolated read-only
// transactions; write statements are held open under a transaction id until
// the caller commits, rolls back, or the monitor times them out.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/syahiidkamil/mcp-postgres-full-access/internal/api"
	"github.com/syahiidkamil/mcp-postgres-full-access/internal/infrastructure/config"
	"github.com/syahiidkamil/mcp-postgres-full-access/internal/infrastructure/logging"
	"github.com/syahiidkamil/mcp-postgres-full-access/internal/infrastructure/postgres"
	"github.com/syahiidkamil/mcp-postgres-full-access/internal/mcpserver"
	"github.com/syahiidkamil/mcp-postgres-full-access/internal/schema"
	"github.com/syahiidkamil/mcp-postgres-full-access/internal/txmanager"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting mcp-postgres-full-access", "version", version, "commit", commit)

	// Config file is optional: a pure-environment deployment (the normal MCP
	// client launch) passes no CONFIG_PATH.
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"transaction_timeout", cfg.TransactionTimeout().String(),
		"monitor_enabled", cfg.Monitor.Enabled,
		"max_concurrent", cfg.Transactions.MaxConcurrent,
	)

	pool, err := postgres.Open(ctx, postgres.Config{
		URL:              cfg.Database.URL,
		MaxConnections:   cfg.Database.MaxConnections,
		IdleTimeout:      cfg.IdleTimeout(),
		StatementTimeout: cfg.StatementTimeout(),
	})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() {
		log.Info("closing connection pool")
		pool.Close()
	}()
	log.Info("database connected", "max_connections", cfg.Database.MaxConnections)

	registry := txmanager.NewRegistry()
	registry.SetLogger(log.With("component", "registry"))

	manager := txmanager.NewManager(txmanager.NewPool(pool), registry, txmanager.Config{
		TransactionTimeout: cfg.TransactionTimeout(),
		MaxConcurrent:      cfg.Transactions.MaxConcurrent,
	})
	manager.SetLogger(log.With("component", "txmanager"))

	// Any transaction still open when we exit is rolled back so no
	// connection is handed back mid-transaction.
	defer func() {
		log.Info("draining open transactions")
		manager.DrainAll(context.Background())
	}()

	if cfg.Monitor.Enabled {
		monitor := txmanager.NewMonitor(registry, cfg.MonitorInterval(), cfg.TransactionTimeout())
		monitor.SetLogger(log.With("component", "monitor"))
		monitor.Start(ctx)
		defer monitor.Stop()
	} else {
		log.Warn("transaction monitor disabled; unresolved transactions will be held until shutdown")
	}

	if cfg.API.Enabled {
		admin, adminErr := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log.With("component", "api"),
			Registry: registry,
			Health:   pool,
			Version:  version,
		})
		if adminErr != nil {
			return fmt.Errorf("creating admin server: %w", adminErr)
		}
		if startErr := admin.Start(ctx); startErr != nil {
			return fmt.Errorf("starting admin server: %w", startErr)
		}
		defer func() {
			if closeErr := admin.Close(); closeErr != nil {
				log.Error("error closing admin server", "error", closeErr)
			}
		}()
	}

	inspector := schema.NewInspector(pool)
	srv := mcpserver.New(manager, inspector, log.With("component", "mcp"), version)

	// ServeStdio blocks until stdin closes; a signal cancels ctx and we fall
	// through to the deferred shutdown chain either way.
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		log.Info("mcp client disconnected")
		return nil
	}
}
