package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	// Set some test environment variables
	if err := os.Setenv("SERVER_PORT", "9090"); err != nil {
		t.Fatalf("Failed to set SERVER_PORT: %v", err)
	}
	if err := os.Setenv("POSTGRES_HOST", "testhost"); err != nil {
		t.Fatalf("Failed to set POSTGRES_HOST: %v", err)
	}
	if err := os.Setenv("TRANSFER_BROADCAST_GRACE", "5s"); err != nil {
		t.Fatalf("Failed to set TRANSFER_BROADCAST_GRACE: %v", err)
	}
	defer func() {
		_ = os.Unsetenv("SERVER_PORT")
		_ = os.Unsetenv("POSTGRES_HOST")
		_ = os.Unsetenv("TRANSFER_BROADCAST_GRACE")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}

	if cfg.Database.Postgres.Host != "testhost" {
		t.Errorf("Database.Postgres.Host = %v, want %v", cfg.Database.Postgres.Host, "testhost")
	}

	if cfg.Transfer.BroadcastGrace != 5*time.Second {
		t.Errorf("Transfer.BroadcastGrace = %v, want %v", cfg.Transfer.BroadcastGrace, 5*time.Second)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Chains.Solana.HistoryLimit != 10 {
		t.Errorf("Chains.Solana.HistoryLimit = %v, want 10", cfg.Chains.Solana.HistoryLimit)
	}
	if cfg.Transfer.BroadcastGrace != 3*time.Second {
		t.Errorf("Transfer.BroadcastGrace = %v, want 3s", cfg.Transfer.BroadcastGrace)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %v, want info", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	cfg.Database.Postgres.MaxConnections = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for zero max connections")
	}

	cfg.Database.Postgres.MaxConnections = 10
	cfg.Chains.Solana.HistoryLimit = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for negative history limit")
	}
}
