package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcclellann/banklend/pkg/config"
	"github.com/mcclellann/banklend/pkg/ledger"
	"github.com/mcclellann/banklend/pkg/logger"
	"github.com/mcclellann/banklend/pkg/metrics"
	"github.com/mcclellann/banklend/pkg/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Service: cfg.App.Name,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
	log.Info("server exited")
}

func run(cfg *config.Config, log *zap.Logger) error {
	// Initialize SQLite Store
	sqliteStore, err := store.NewSQLiteStore(cfg.Database.Path, store.Options{
		BusyTimeout: cfg.Database.BusyTimeout,
		Logger:      log.Named("store"),
	})
	if err != nil {
		return fmt.Errorf("initialize SQLite store: %w", err)
	}
	defer sqliteStore.Close()

	if cfg.Database.SeedSampleData {
		if err := store.SeedSampleCustomers(context.Background(), sqliteStore, log.Named("seed")); err != nil {
			return fmt.Errorf("seed sample customers: %w", err)
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	l := ledger.NewLedger(sqliteStore,
		ledger.WithLogger(log.Named("ledger")),
		ledger.WithMetrics(m),
	)
	server := NewServer(l, sqliteStore, log.Named("http"), cfg.HTTP.MaxBodySize)

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: newRouter(server, routerConfig{
			apiPrefix:    cfg.HTTP.APIPrefix,
			allowOrigins: cfg.HTTP.CORSAllowOrigins,
			metrics:      m,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("api_prefix", cfg.HTTP.APIPrefix),
			zap.String("database", cfg.Database.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
