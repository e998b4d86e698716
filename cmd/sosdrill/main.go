// Package main provides an SOS drill tool: it runs the full
// liquidate-and-transfer sequence against the simulated ledger path and
// prints every step, so operators can rehearse the protocol and verify
// the wiring without moving real funds. The connection mode is forced
// to simulated regardless of environment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/athena-agent/internal/config"
	"github.com/athena-agent/internal/ledger"
	"github.com/athena-agent/internal/logging"
)

func main() {
	destination := flag.String("dest", "", "destination address (defaults to EMERGENCY_CONTACT)")
	staked := flag.String("staked", "", "override simulated staked balance")
	liquid := flag.String("liquid", "", "override simulated liquid balance")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel("warn"),
		logging.ParseLogFormat("text"),
	)

	dest := *destination
	if dest == "" {
		dest = cfg.Ledger.EmergencyContact
	}
	if !ledger.ValidAddress(dest) {
		fmt.Fprintln(os.Stderr, "no valid destination address: pass -dest or set EMERGENCY_CONTACT")
		os.Exit(1)
	}

	simStaked := override(*staked, cfg.Sim.StakedBalance)
	simLiquid := override(*liquid, cfg.Sim.LiquidBalance)

	client, err := ledger.New(&ledger.Config{
		Mode:         "simulated",
		Network:      cfg.Ledger.Network,
		APY:          cfg.Sim.APY,
		SimStaked:    simStaked,
		SimLiquid:    simLiquid,
		SimSecondary: decimal.Zero,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize ledger client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Printf("SOS drill: staked=%s liquid=%s dest=%s\n\n", simStaked, simLiquid, dest)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := client.TriggerSOS(ctx, dest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drill failed: %v\n", err)
		os.Exit(1)
	}

	for _, line := range result.Logs {
		fmt.Println("  " + line)
	}
	fmt.Printf("\nsuccess=%v liquidated=%s transferred=%s txs=%d\n",
		result.Success, result.LiquidatedAmount, result.TransferredAmount, len(result.TxIDs))

	if !result.Success {
		os.Exit(1)
	}
}

func override(value, fallback string) decimal.Decimal {
	s := value
	if s == "" {
		s = fallback
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
