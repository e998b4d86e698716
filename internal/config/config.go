// Package config provides configuration management for the Athena agent.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Ledger  LedgerConfig
	Sim     SimConfig
	Redis   RedisConfig
	Agent   AgentConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	RateLimitRPS int
}

// LedgerConfig holds blockchain connection configuration
type LedgerConfig struct {
	// RPCURL is the JSON-RPC endpoint. Empty means simulated mode.
	RPCURL string
	// Mode forces the connection mode: "auto", "live" or "simulated".
	Mode string
	// Network is the human-readable chain label reported in VaultState.
	Network string
	// VaultContract is the ERC-4626 yield vault address.
	VaultContract string
	// BaseTokenContract is the base-currency ERC-20 address.
	BaseTokenContract string
	// SecondaryTokenContract is the secondary ERC-20 address.
	SecondaryTokenContract string
	// AgentAddress is the wallet address the agent operates.
	AgentAddress string
	// PrivateKey is the hex-encoded signing key for the agent address.
	// Only required for live-mode writes.
	PrivateKey string
	// EmergencyContact is the default SOS destination address.
	EmergencyContact string
}

// SimConfig seeds the simulated ledger path
type SimConfig struct {
	StakedBalance    string
	LiquidBalance    string
	SecondaryBalance string
	APY              float64
}

// RedisConfig holds state store configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// AgentConfig holds orchestrator configuration
type AgentConfig struct {
	RefreshInterval time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			RateLimitRPS: getEnvAsInt("RATE_LIMIT_RPS", 20),
		},
		Ledger: LedgerConfig{
			RPCURL:                 getEnv("RPC_URL", ""),
			Mode:                   getEnv("CONNECTION_MODE", "auto"),
			Network:                getEnv("NETWORK", "sepolia"),
			VaultContract:          getEnv("VAULT_CONTRACT", ""),
			BaseTokenContract:      getEnv("BASE_TOKEN_CONTRACT", ""),
			SecondaryTokenContract: getEnv("SECONDARY_TOKEN_CONTRACT", ""),
			AgentAddress:           getEnv("AGENT_ADDRESS", ""),
			PrivateKey:             getEnv("AGENT_PRIVATE_KEY", ""),
			EmergencyContact:       getEnv("EMERGENCY_CONTACT", ""),
		},
		Sim: SimConfig{
			StakedBalance:    getEnv("SIM_STAKED_BALANCE", "500"),
			LiquidBalance:    getEnv("SIM_LIQUID_BALANCE", "50"),
			SecondaryBalance: getEnv("SIM_SECONDARY_BALANCE", "0"),
			APY:              getEnvAsFloat("SIM_APY", 4.2),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Agent: AgentConfig{
			RefreshInterval: getEnvAsDuration("REFRESH_INTERVAL", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
