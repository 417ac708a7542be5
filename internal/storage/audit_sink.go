package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/wallet-hub/internal/config"
	"github.com/wallet-hub/internal/models"
)

// AuditSink is the append-only audit log boundary. This subsystem only
// writes; nothing here reads the audit trail back.
type AuditSink interface {
	Write(ctx context.Context, entry models.AuditLogEntry) error
}

// ClickHouseAuditSink writes audit entries to a ClickHouse table, which
// suits the append-only, never-updated shape of the audit trail.
type ClickHouseAuditSink struct {
	conn driver.Conn
}

// NewClickHouseAuditSink opens a ClickHouse connection for the audit sink.
func NewClickHouseAuditSink(cfg *config.ClickHouseConfig) (*ClickHouseAuditSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      10 * time.Second,
		MaxOpenConns:     10,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseAuditSink{conn: conn}, nil
}

// Write appends one audit entry.
func (s *ClickHouseAuditSink) Write(ctx context.Context, entry models.AuditLogEntry) error {
	details := "{}"
	if entry.Details != nil {
		detailsJSON, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
		details = string(detailsJSON)
	}

	timestamp := entry.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_logs (user_id, action, details, ip_address, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`
	if err := s.conn.Exec(ctx, query,
		entry.UserID,
		entry.Action,
		details,
		entry.IPAddress,
		timestamp,
	); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// Close closes the ClickHouse connection
func (s *ClickHouseAuditSink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
