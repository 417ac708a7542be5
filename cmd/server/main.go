// Package main provides the API server entry point for the wallet hub
// service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wallet-hub/internal/adapter"
	"github.com/wallet-hub/internal/api"
	"github.com/wallet-hub/internal/config"
	"github.com/wallet-hub/internal/identity"
	"github.com/wallet-hub/internal/logging"
	"github.com/wallet-hub/internal/service"
	"github.com/wallet-hub/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	auditSink, err := storage.NewClickHouseAuditSink(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer auditSink.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	logger.Info("Initializing chain adapters...")
	registry := adapter.NewRegistry()

	if cfg.Chains.Ethereum.RPCPrimary != "" {
		endpoints, err := adapter.NewEndpoints(cfg.Chains.Ethereum.RPCPrimary, cfg.Chains.Ethereum.RPCSecondary)
		if err != nil {
			logger.WithError(err).Fatal("Invalid Ethereum RPC configuration")
		}
		explorer := adapter.NewExplorerClient(cfg.Chains.Ethereum.ExplorerBaseURL, cfg.Chains.Ethereum.ExplorerAPIKey)
		ethAdapter, err := adapter.NewEthereumAdapter(endpoints, explorer)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Ethereum adapter")
		}
		defer ethAdapter.Close()
		registry.Register(ethAdapter)
		logger.WithField("rpc", cfg.Chains.Ethereum.RPCPrimary).Info("Ethereum adapter initialized")
	} else {
		logger.Warn("Ethereum RPC not configured, chain disabled")
	}

	if cfg.Chains.Solana.RPCPrimary != "" {
		endpoints, err := adapter.NewEndpoints(cfg.Chains.Solana.RPCPrimary, cfg.Chains.Solana.RPCSecondary)
		if err != nil {
			logger.WithError(err).Fatal("Invalid Solana RPC configuration")
		}
		registry.Register(adapter.NewSolanaAdapter(endpoints))
		logger.WithField("rpc", cfg.Chains.Solana.RPCPrimary).Info("Solana adapter initialized")
	} else {
		logger.Warn("Solana RPC not configured, chain disabled")
	}

	provider, err := identity.NewHTTPProvider(&identity.HTTPProviderConfig{
		BaseURL: cfg.Identity.BaseURL,
		APIKey:  cfg.Identity.APIKey,
		Timeout: cfg.Identity.Timeout,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create identity provider client")
	}

	logger.Info("Initializing services...")

	ledgerRepo := storage.NewLedgerRepository(postgres)
	snapshotCache := storage.NewSnapshotCache(redis, cfg.Cache.SnapshotTTL)
	notifier := storage.NewRedisNotifier(redis, logger)

	resolver := service.NewAccountResolver(provider, logger)
	aggregator := service.NewAggregator(registry, ledgerRepo, provider, snapshotCache, cfg.Chains.Solana.HistoryLimit, logger)
	recorder := service.NewRecorder(ledgerRepo, auditSink, notifier, logger)
	orchestrator := service.NewTransferOrchestrator(
		service.NewFlowManager(),
		provider,
		recorder,
		aggregator,
		registry,
		ledgerRepo,
		cfg.Transfer.BroadcastGrace,
		cfg.Transfer.FailureDisplayDelay,
		cfg.Transfer.SuccessRetention,
		logger,
	)
	exportGuard := service.NewExportGuard(provider, auditSink, logger)

	logger.Info("Services initialized")

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		PerUserRPS:      cfg.Server.PerUserRPS,
		ExecuteTimeout:  cfg.Transfer.ExecuteTimeout,
	}

	server := api.NewServer(serverConfig, resolver, aggregator, orchestrator, recorder, exportGuard, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
