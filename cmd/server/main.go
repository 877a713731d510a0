/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stock ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the zap logger
  3. Open the store (SQLite, MySQL or memory)
  4. Create API handler, metrics and router
  5. Start the audit scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -env     .env file to load (default: .env, optional)
  -port    HTTP server port (PORT, default 8080)
  -driver  sqlite3 | mysql | memory (DB_DRIVER, default sqlite3)
  -db      DSN or SQLite path (DB_DSN, default stock.db)
           Use ":memory:" for an in-memory SQLite database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the audit scheduler
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/stock.db"

  # Run against MySQL
  DB_DRIVER=mysql DB_DSN="user:pass@tcp(localhost:3306)/stock" ./server

  # Run with the in-memory store
  ./server -driver=memory

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
  - store/sqldb/sqldb.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/stock-ledger/api"
	"github.com/warp/stock-ledger/config"
	"github.com/warp/stock-ledger/logging"
	"github.com/warp/stock-ledger/metrics"
	"github.com/warp/stock-ledger/stock"
	memstore "github.com/warp/stock-ledger/stock/store"
	"github.com/warp/stock-ledger/store/sqldb"
)

func main() {
	// Flags
	envFile := flag.String("env", "", ".env file to load")
	port := flag.String("port", "", "HTTP server port (overrides PORT)")
	driver := flag.String("driver", "", "store driver: sqlite3, mysql or memory (overrides DB_DRIVER)")
	dsn := flag.String("db", "", "database DSN or SQLite path (overrides DB_DSN)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *driver != "" {
		cfg.Database.Driver = *driver
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	logger := logging.Must(logging.New(cfg.LogLevel))
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// Initialize store
	store, closeStore, err := openStore(cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer closeStore()

	loc, _ := cfg.Location()

	// Initialize handler
	m := metrics.New("stock_ledger")
	handler := api.NewHandler(store, loc, logger).WithMetrics(m)
	handler.Coordinator.TxTimeout = cfg.Ledger.TxTimeout

	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.Server.CORSOrigins})

	// Audit scheduler
	if cfg.Ledger.AuditSchedule != "" {
		sched, err := api.NewAuditScheduler(handler, cfg.Ledger.AuditSchedule, logging.Named(logger, "scheduler"))
		if err != nil {
			logger.Fatal("failed to create audit scheduler", zap.Error(err))
		}
		sched.Start()
		defer sched.Stop()
	} else {
		logger.Info("audit scheduler disabled")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("driver", cfg.Database.Driver),
			zap.String("timezone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(cfg config.DatabaseConfig) (stock.Store, func(), error) {
	if cfg.Driver == "memory" {
		return memstore.NewMemory(), func() {}, nil
	}
	s, err := sqldb.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}
