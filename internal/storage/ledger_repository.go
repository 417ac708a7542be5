package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wallet-hub/internal/models"
)

// pgUniqueViolation is the Postgres error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

// ErrTransactionNotFound indicates no ledger row matches the lookup.
var ErrTransactionNotFound = fmt.Errorf("ledger transaction not found")

// LedgerRepository handles ledger transaction persistence. The exactly-once
// guarantee rests on the unique index over idempotency_key: the check is
// enforced in the database, not by check-then-insert in application code,
// because the writer may be a different process instance than the one that
// minted the key.
type LedgerRepository struct {
	db *PostgresDB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *PostgresDB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Record creates a ledger transaction keyed by its idempotency key. When a
// row with the same key already exists the existing row is returned with
// cached=true and no new row is written, closing the race between concurrent
// duplicate submissions.
func (r *LedgerRepository) Record(ctx context.Context, tx *models.LedgerTransaction) (*models.LedgerTransaction, bool, error) {
	if existing, err := r.GetByIdempotencyKey(ctx, tx.IdempotencyKey); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, ErrTransactionNotFound) {
		return nil, false, err
	}

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	tx.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO ledger_transactions
			(id, sender_id, receiver_id, amount, currency, tx_hash, status, idempotency_key, memo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		tx.ID,
		tx.SenderID,
		tx.ReceiverID,
		tx.Amount,
		tx.Currency,
		tx.TxHash,
		tx.Status,
		tx.IdempotencyKey,
		tx.Memo,
		tx.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// A concurrent submission with the same key won the race.
			existing, lookupErr := r.GetByIdempotencyKey(ctx, tx.IdempotencyKey)
			if lookupErr != nil {
				return nil, false, fmt.Errorf("failed to load winning duplicate: %w", lookupErr)
			}
			return existing, true, nil
		}
		return nil, false, fmt.Errorf("failed to record transaction: %w", err)
	}

	return tx, false, nil
}

// GetByIdempotencyKey retrieves a ledger transaction by its idempotency key.
func (r *LedgerRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.LedgerTransaction, error) {
	query := `
		SELECT id, sender_id, receiver_id, amount, currency, tx_hash, status, idempotency_key, memo, created_at
		FROM ledger_transactions
		WHERE idempotency_key = $1
	`

	var tx models.LedgerTransaction
	err := r.db.Pool().QueryRow(ctx, query, key).Scan(
		&tx.ID,
		&tx.SenderID,
		&tx.ReceiverID,
		&tx.Amount,
		&tx.Currency,
		&tx.TxHash,
		&tx.Status,
		&tx.IdempotencyKey,
		&tx.Memo,
		&tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}

// ListForUser returns the user's ledger history, newest first, with
// counterparty display names joined in for the unified history view.
func (r *LedgerRepository) ListForUser(ctx context.Context, userID, currency string, limit int) ([]models.HistoryEntry, error) {
	query := `
		SELECT t.id, t.sender_id, t.receiver_id, t.amount, t.currency, t.tx_hash,
		       t.status, t.idempotency_key, t.memo, t.created_at,
		       counterparty.display_name
		FROM ledger_transactions t
		LEFT JOIN users counterparty
		  ON counterparty.id = CASE WHEN t.sender_id = $1 THEN t.receiver_id ELSE t.sender_id END
		WHERE (t.sender_id = $1 OR t.receiver_id = $1) AND t.currency = $2
		ORDER BY t.created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, currency, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var tx models.LedgerTransaction
		var counterpartyName *string
		if err := rows.Scan(
			&tx.ID,
			&tx.SenderID,
			&tx.ReceiverID,
			&tx.Amount,
			&tx.Currency,
			&tx.TxHash,
			&tx.Status,
			&tx.IdempotencyKey,
			&tx.Memo,
			&tx.CreatedAt,
			&counterpartyName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		entries = append(entries, tx.HistoryEntry(userID, counterpartyName))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return entries, nil
}

// ResolveUserByAddress maps an on-chain address to an internal user id, when
// the address belongs to a registered user. Pure-address sends to unknown
// addresses resolve to ErrTransactionNotFound at recording time.
func (r *LedgerRepository) ResolveUserByAddress(ctx context.Context, address string) (string, error) {
	query := `SELECT user_id FROM user_addresses WHERE LOWER(address) = LOWER($1)`

	var userID string
	err := r.db.Pool().QueryRow(ctx, query, address).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrTransactionNotFound
		}
		return "", fmt.Errorf("failed to resolve address: %w", err)
	}
	return userID, nil
}

// SaveContact stores a recipient as a contact. Called as a non-blocking side
// effect after a successful transfer.
func (r *LedgerRepository) SaveContact(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	contact.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO contacts (id, user_id, name, address, chain_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, chain_type, address) DO UPDATE SET name = EXCLUDED.name
	`

	_, err := r.db.Pool().Exec(ctx, query,
		contact.ID,
		contact.UserID,
		contact.Name,
		contact.Address,
		contact.ChainType,
		contact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	return nil
}

// SaveTemplate stores a transfer shape for reuse. Called as a non-blocking
// side effect after a successful transfer.
func (r *LedgerRepository) SaveTemplate(ctx context.Context, template *models.TransferTemplate) error {
	if template.ID == "" {
		template.ID = uuid.New().String()
	}
	template.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO transfer_templates
			(id, user_id, name, recipient_address, amount, currency, memo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		template.ID,
		template.UserID,
		template.Name,
		template.RecipientAddress,
		template.Amount,
		template.Currency,
		template.Memo,
		template.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}
