// Package main provides the API server entry point for the Athena agent.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/athena-agent/internal/agent"
	"github.com/athena-agent/internal/api"
	"github.com/athena-agent/internal/binding"
	"github.com/athena-agent/internal/config"
	"github.com/athena-agent/internal/ledger"
	"github.com/athena-agent/internal/logging"
	"github.com/athena-agent/internal/storage"
	"github.com/athena-agent/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	redisStore, err := storage.NewRedisStore(&cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisStore.Close()
	stateStore := storage.NewStateStore(redisStore)

	ledgerClient, err := ledger.New(ledgerConfig(cfg))
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize ledger client")
	}
	defer ledgerClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orchestrator, err := agent.New(ctx, ledgerClient, stateStore)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize agent")
	}
	if intent := orchestrator.DanglingIntent(); intent != nil {
		logger.WithFields(map[string]interface{}{
			"phase":       string(intent.Phase),
			"destination": intent.Destination,
		}).Warn("Previous SOS attempt did not complete; state kept for inspection")
	}

	bnd := binding.New()
	bnd.SetOnline(orchestrator.IsOnline())

	refresher := worker.NewRefresher(orchestrator, bnd, cfg.Agent.RefreshInterval)
	refresher.Start(ctx)

	server := api.NewServer(
		api.DefaultServerConfig(cfg.Server.Host, cfg.Server.Port, cfg.Server.RateLimitRPS),
		orchestrator,
		bnd,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	case err := <-errCh:
		logger.WithError(err).Error("API server stopped")
	}

	cancel()
	refresher.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
	logger.Info("Server stopped")
}

func ledgerConfig(cfg *config.Config) *ledger.Config {
	return &ledger.Config{
		RPCURL:                 cfg.Ledger.RPCURL,
		Mode:                   cfg.Ledger.Mode,
		Network:                cfg.Ledger.Network,
		VaultContract:          cfg.Ledger.VaultContract,
		BaseTokenContract:      cfg.Ledger.BaseTokenContract,
		SecondaryTokenContract: cfg.Ledger.SecondaryTokenContract,
		AgentAddress:           cfg.Ledger.AgentAddress,
		PrivateKey:             cfg.Ledger.PrivateKey,
		APY:                    cfg.Sim.APY,
		SimStaked:              parseDecimal(cfg.Sim.StakedBalance),
		SimLiquid:              parseDecimal(cfg.Sim.LiquidBalance),
		SimSecondary:           parseDecimal(cfg.Sim.SecondaryBalance),
	}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
