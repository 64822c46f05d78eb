package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/paysettle/internal/domain"
)

const walletColumns = `id, manager_id, balance, version, created_at, updated_at`

const walletTransactionColumns = `id, wallet_id, amount, type, status, reference,
	description, created_at`

type WalletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// EnsureForUpdate creates the manager's wallet when missing and returns it
// locked for the rest of tx.
func (r *WalletRepository) EnsureForUpdate(ctx context.Context, tx *sql.Tx, managerID uuid.UUID) (*domain.Wallet, error) {
	now := time.Now().UTC()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (id, manager_id, balance, version, created_at, updated_at)
		VALUES ($1, $2, 0, 0, $3, $3)
		ON CONFLICT (manager_id) DO NOTHING`,
		uuid.New(), managerID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("EnsureForUpdate: upsert: %w", err)
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE manager_id = $1 FOR UPDATE`, managerID,
	)
	w, err := scanWallet(row)
	if err != nil {
		return nil, fmt.Errorf("EnsureForUpdate: lock: %w", err)
	}
	return w, nil
}

// IncrementBalance adds amount to the wallet if its version is still
// expectedVersion and returns the new balance.
func (r *WalletRepository) IncrementBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount decimal.Decimal, expectedVersion int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`UPDATE wallets SET balance = balance + $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3
		RETURNING balance`,
		amount, id, expectedVersion,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("IncrementBalance: %w", domain.ErrVersionConflict)
		}
		return decimal.Zero, fmt.Errorf("IncrementBalance: %w", err)
	}
	return balance, nil
}

func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return w, nil
}

func (r *WalletRepository) GetByManagerID(ctx context.Context, managerID uuid.UUID) (*domain.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE manager_id = $1`, managerID,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByManagerID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByManagerID: %w", err)
	}
	return w, nil
}

func (r *WalletRepository) CreateTransaction(ctx context.Context, tx *sql.Tx, t *domain.WalletTransaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (
			id, wallet_id, amount, type, status, reference, description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.WalletID, t.Amount, t.Type, t.Status, t.Reference, t.Description, t.CreatedAt,
	)
	if err != nil {
		if isConstraintViolation(err, "wallet_transactions_reference_type_key") {
			return fmt.Errorf("CreateTransaction: %w", domain.ErrDuplicateReference)
		}
		return fmt.Errorf("CreateTransaction: %w", err)
	}
	return nil
}

func (r *WalletRepository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.WalletTransaction, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wallet_transactions WHERE wallet_id = $1`, walletID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+walletTransactionColumns+` FROM wallet_transactions
		WHERE wallet_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		walletID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.WalletTransaction
	for rows.Next() {
		t, err := scanWalletTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: rows: %w", err)
	}
	return txns, total, nil
}

// SettledSum is the balance implied by the ledger: successful credits minus
// successful debits.
func (r *WalletRepository) SettledSum(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN type = 'CREDIT' THEN amount ELSE -amount END), 0)
		FROM wallet_transactions
		WHERE wallet_id = $1 AND status = 'SUCCESS'`,
		walletID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("SettledSum: %w", err)
	}
	return sum, nil
}

func scanWallet(s scanner) (*domain.Wallet, error) {
	var w domain.Wallet
	err := s.Scan(
		&w.ID, &w.ManagerID, &w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func scanWalletTransaction(s scanner) (*domain.WalletTransaction, error) {
	var t domain.WalletTransaction
	err := s.Scan(
		&t.ID, &t.WalletID, &t.Amount, &t.Type, &t.Status, &t.Reference,
		&t.Description, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
