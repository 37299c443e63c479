package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nimdiido/casino-integration/internal/api"
	"github.com/nimdiido/casino-integration/internal/infra/logging"
	"github.com/nimdiido/casino-integration/internal/infra/metrics"
	"github.com/nimdiido/casino-integration/internal/infra/pgutils"
	"github.com/nimdiido/casino-integration/internal/providerclient"
	"github.com/nimdiido/casino-integration/internal/services/launch"
	"github.com/nimdiido/casino-integration/internal/services/ledger"
	"github.com/nimdiido/casino-integration/pkg/envconf"
	"github.com/nimdiido/casino-integration/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running casino: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(casinoConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	dbConns, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add(func(context.Context) error {
		slog.Info("Close database pool")

		return dbConns.Close()
	})

	m := metrics.New()

	// --- Services ---
	ledgerSrv := ledger.New(dbConns, m)
	provClient := providerclient.New(cfg.CasinoSecret, cfg.ProviderLaunchTimeout)
	launchSrv := launch.New(dbConns, provClient)

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, api.Config{
		ProviderSecret:  cfg.ProviderSecret,
		LaunchJWTSecret: cfg.LaunchJWTSecret,
	}, ledgerSrv, launchSrv, m)

	// Register HTTP server graceful shutdown
	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("Casino API started", "port", cfg.Port)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
