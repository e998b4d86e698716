// Package main provides a one-shot vault inspection tool. It reads the
// current holdings through the same ledger client the server uses and
// prints them as JSON, which makes it handy for checking connectivity
// and contract wiring before starting the agent.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/athena-agent/internal/config"
	"github.com/athena-agent/internal/ledger"
	"github.com/athena-agent/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel("warn"),
		logging.ParseLogFormat(cfg.Logging.Format),
	)

	client, err := ledger.New(&ledger.Config{
		RPCURL:                 cfg.Ledger.RPCURL,
		Mode:                   cfg.Ledger.Mode,
		Network:                cfg.Ledger.Network,
		VaultContract:          cfg.Ledger.VaultContract,
		BaseTokenContract:      cfg.Ledger.BaseTokenContract,
		SecondaryTokenContract: cfg.Ledger.SecondaryTokenContract,
		AgentAddress:           cfg.Ledger.AgentAddress,
		PrivateKey:             cfg.Ledger.PrivateKey,
		APY:                    cfg.Sim.APY,
		SimStaked:              mustDecimal(cfg.Sim.StakedBalance),
		SimLiquid:              mustDecimal(cfg.Sim.LiquidBalance),
		SimSecondary:           mustDecimal(cfg.Sim.SecondaryBalance),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize ledger client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	state := client.GetVaultState(ctx)

	output := map[string]interface{}{
		"mode":  client.Mode(),
		"vault": state,
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		os.Exit(1)
	}

	if !state.IsOnline {
		os.Exit(2)
	}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
