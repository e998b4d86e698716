package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	if err := os.Setenv("SERVER_PORT", "9090"); err != nil {
		t.Fatalf("Failed to set SERVER_PORT: %v", err)
	}
	if err := os.Setenv("CONNECTION_MODE", "simulated"); err != nil {
		t.Fatalf("Failed to set CONNECTION_MODE: %v", err)
	}
	if err := os.Setenv("REFRESH_INTERVAL", "10s"); err != nil {
		t.Fatalf("Failed to set REFRESH_INTERVAL: %v", err)
	}
	defer func() {
		_ = os.Unsetenv("SERVER_PORT")
		_ = os.Unsetenv("CONNECTION_MODE")
		_ = os.Unsetenv("REFRESH_INTERVAL")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}
	if cfg.Ledger.Mode != "simulated" {
		t.Errorf("Ledger.Mode = %v, want %v", cfg.Ledger.Mode, "simulated")
	}
	if cfg.Agent.RefreshInterval != 10*time.Second {
		t.Errorf("Agent.RefreshInterval = %v, want %v", cfg.Agent.RefreshInterval, 10*time.Second)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Ledger.Mode != "auto" {
		t.Errorf("Ledger.Mode = %v, want auto", cfg.Ledger.Mode)
	}
	if cfg.Sim.StakedBalance != "500" {
		t.Errorf("Sim.StakedBalance = %v, want 500", cfg.Sim.StakedBalance)
	}
	if cfg.Sim.LiquidBalance != "50" {
		t.Errorf("Sim.LiquidBalance = %v, want 50", cfg.Sim.LiquidBalance)
	}
	if cfg.Sim.APY != 4.2 {
		t.Errorf("Sim.APY = %v, want 4.2", cfg.Sim.APY)
	}
	if cfg.Agent.RefreshInterval != 30*time.Second {
		t.Errorf("Agent.RefreshInterval = %v, want 30s", cfg.Agent.RefreshInterval)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	if err := os.Setenv("TEST_INT", "not-a-number"); err != nil {
		t.Fatalf("Failed to set TEST_INT: %v", err)
	}
	defer func() { _ = os.Unsetenv("TEST_INT") }()

	if got := getEnvAsInt("TEST_INT", 7); got != 7 {
		t.Errorf("getEnvAsInt with invalid value = %v, want default 7", got)
	}
	if got := getEnvAsInt("TEST_INT_MISSING", 3); got != 3 {
		t.Errorf("getEnvAsInt with missing key = %v, want default 3", got)
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	if err := os.Setenv("TEST_FLOAT", "2.5"); err != nil {
		t.Fatalf("Failed to set TEST_FLOAT: %v", err)
	}
	defer func() { _ = os.Unsetenv("TEST_FLOAT") }()

	if got := getEnvAsFloat("TEST_FLOAT", 1.0); got != 2.5 {
		t.Errorf("getEnvAsFloat = %v, want 2.5", got)
	}
}
