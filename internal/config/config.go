// Package config provides configuration management for the wallet hub
// application. It loads configuration from environment variables and .env
// files.
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
	Server   ServerConfig
	Database DatabaseConfig
	Chains   ChainsConfig
	Identity IdentityConfig
	Transfer TransferConfig
	Cache    CacheConfig
	Logging  LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port       string
	Host       string
	PerUserRPS int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration for the audit sink
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// ChainsConfig holds per-chain RPC configuration
type ChainsConfig struct {
	Ethereum EthereumConfig
	Solana   SolanaConfig
}

// EthereumConfig holds Ethereum RPC and explorer configuration
type EthereumConfig struct {
	RPCPrimary      string
	RPCSecondary    string
	ExplorerBaseURL string
	ExplorerAPIKey  string
}

// SolanaConfig holds Solana RPC configuration
type SolanaConfig struct {
	RPCPrimary   string
	RPCSecondary string
	HistoryLimit int
}

// IdentityConfig holds the custody/identity provider configuration
type IdentityConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// TransferConfig holds transfer pipeline timing configuration
type TransferConfig struct {
	// BroadcastGrace is the short wait after a signature is obtained,
	// letting the network begin propagating. A UX smoothing delay, not a
	// finality guarantee.
	BroadcastGrace time.Duration

	// FailureDisplayDelay is how long a failed pipeline stage stays visible
	// before the flow returns to the review step.
	FailureDisplayDelay time.Duration

	// SuccessRetention is how long a completed flow stays readable before
	// it is discarded.
	SuccessRetention time.Duration

	// ExecuteTimeout bounds a pipeline run. Zero means unbounded, since the
	// signing stage waits on human approval.
	ExecuteTimeout time.Duration
}

// CacheConfig holds snapshot cache configuration
type CacheConfig struct {
	SnapshotTTL time.Duration
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
			Port:       getEnv("SERVER_PORT", "8080"),
			Host:       getEnv("SERVER_HOST", "0.0.0.0"),
			PerUserRPS: getEnvAsInt("SERVER_PER_USER_RPS", 20),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "wallet_hub"),
				User:           getEnv("POSTGRES_USER", "wallet"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "wallet_hub"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Chains: ChainsConfig{
			Ethereum: EthereumConfig{
				RPCPrimary:      getEnv("ETHEREUM_RPC_PRIMARY", ""),
				RPCSecondary:    getEnv("ETHEREUM_RPC_SECONDARY", ""),
				ExplorerBaseURL: getEnv("ETHEREUM_EXPLORER_URL", "https://api.etherscan.io/api"),
				ExplorerAPIKey:  getEnv("ETHEREUM_EXPLORER_API_KEY", ""),
			},
			Solana: SolanaConfig{
				RPCPrimary:   getEnv("SOLANA_RPC_PRIMARY", ""),
				RPCSecondary: getEnv("SOLANA_RPC_SECONDARY", ""),
				HistoryLimit: getEnvAsInt("SOLANA_HISTORY_LIMIT", 10),
			},
		},
		Identity: IdentityConfig{
			BaseURL: getEnv("IDENTITY_BASE_URL", ""),
			APIKey:  getEnv("IDENTITY_API_KEY", ""),
			Timeout: getEnvAsDuration("IDENTITY_TIMEOUT", 15*time.Second),
		},
		Transfer: TransferConfig{
			BroadcastGrace:      getEnvAsDuration("TRANSFER_BROADCAST_GRACE", 3*time.Second),
			FailureDisplayDelay: getEnvAsDuration("TRANSFER_FAILURE_DISPLAY_DELAY", 2*time.Second),
			SuccessRetention:    getEnvAsDuration("TRANSFER_SUCCESS_RETENTION", 10*time.Minute),
			ExecuteTimeout:      getEnvAsDuration("TRANSFER_EXECUTE_TIMEOUT", 0),
		},
		Cache: CacheConfig{
			SnapshotTTL: getEnvAsDuration("CACHE_SNAPSHOT_TTL", 20*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks cross-field constraints the loaders cannot express.
func (c *Config) Validate() error {
	if c.Database.Postgres.MaxConnections <= 0 {
		return fmt.Errorf("POSTGRES_MAX_CONNECTIONS must be positive")
	}
	if c.Chains.Solana.HistoryLimit <= 0 {
		return fmt.Errorf("SOLANA_HISTORY_LIMIT must be positive")
	}
	if c.Transfer.BroadcastGrace < 0 {
		return fmt.Errorf("TRANSFER_BROADCAST_GRACE must not be negative")
	}
	if c.Transfer.SuccessRetention <= 0 {
		return fmt.Errorf("TRANSFER_SUCCESS_RETENTION must be positive")
	}
	return nil
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
