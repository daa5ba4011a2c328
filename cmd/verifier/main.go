package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/attestx/attestx-backend/internal/verifier/api"
	"github.com/attestx/attestx-backend/internal/verifier/config"
	"github.com/attestx/attestx-backend/internal/verifier/core/tally"
	"github.com/attestx/attestx-backend/internal/verifier/core/verification"
	"github.com/attestx/attestx-backend/internal/verifier/janitor"
	"github.com/attestx/attestx-backend/internal/verifier/storage"
	"github.com/attestx/attestx-backend/pkg/client/powerprovider"
	"github.com/attestx/attestx-backend/pkg/client/taskregistry"
	"github.com/attestx/attestx-backend/pkg/database"
	"github.com/attestx/attestx-backend/pkg/logging"
	"github.com/attestx/attestx-backend/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

func main() {
	app := &cli.App{
		Name:   "attestx-verifier",
		Usage:  "Verification and consensus tally engine for operator-submitted task results",
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(_ *cli.Context) error {
	if err := config.Init(); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	if err := logging.InitServiceLogger(logging.LoggerConfig{
		ProcessName:   logging.VerifierProcess,
		IsDevelopment: config.IsDevMode(),
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.Shutdown()
	logger := logging.GetServiceLogger()

	logger.Info("Starting verifier...",
		"mode", config.GetTallyMode(),
		"storage", config.GetStorageBackend(),
		"port", config.GetRPCPort(),
	)

	store, closeStore, err := buildStore(logger)
	if err != nil {
		return err
	}
	defer closeStore()

	registryClient, err := taskregistry.NewClient(logger, taskregistry.Config{
		BaseURL: config.GetTaskRegistryURL(),
	})
	if err != nil {
		return fmt.Errorf("failed to create task registry client: %w", err)
	}

	powerClient, err := powerprovider.NewClient(logger, powerprovider.Config{
		BaseURL: config.GetPowerProviderURL(),
	})
	if err != nil {
		return fmt.Errorf("failed to create power provider client: %w", err)
	}

	strategy, err := buildStrategy()
	if err != nil {
		return err
	}

	collector := metrics.NewCollector("verifier")

	verifier, err := verification.New(
		verification.Config{RequiredPercentage: config.GetRequiredPercentage()},
		strategy, store, registryClient, powerClient, logger, collector.Verifier(),
	)
	if err != nil {
		return fmt.Errorf("failed to create verifier: %w", err)
	}

	sweeper := janitor.New(store, logger, collector.Verifier(), config.GetJanitorInterval())
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}
	defer sweeper.Stop()

	server := api.NewServer(verifier, collector, logger, config.GetRPCPort())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	logger.Info("Verifier stopped")
	return nil
}

func buildStore(logger logging.Logger) (storage.Store, func(), error) {
	switch config.GetStorageBackend() {
	case config.StorageCassandra:
		conn, err := database.NewConnection(database.NewConfig(config.GetDatabaseHost(), config.GetDatabasePort()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.InitSchema(conn.Session()); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		logger.Info("Connected to Cassandra", "host", config.GetDatabaseHost())
		return storage.NewCassandraStore(conn), conn.Close, nil
	default:
		return storage.NewMemoryStore(), func() {}, nil
	}
}

func buildStrategy() (tally.Strategy, error) {
	switch config.GetTallyMode() {
	case config.ModeMedianSpread:
		return tally.NewMedianSpread(tally.MedianSpreadConfig{
			ThresholdPercent: config.GetThresholdPercent(),
			AllowedSpread:    config.GetAllowedSpread(),
			SlashableSpread:  config.GetSlashableSpread(),
		})
	default:
		return tally.NewExactMatch(), nil
	}
}
