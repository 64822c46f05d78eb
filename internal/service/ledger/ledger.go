// Package ledger owns manager wallets. Every balance change is paired with a
// wallet transaction in the same database transaction.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/logging"
)

type walletRepo interface {
	EnsureForUpdate(ctx context.Context, tx *sql.Tx, managerID uuid.UUID) (*domain.Wallet, error)
	IncrementBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount decimal.Decimal, expectedVersion int64) (decimal.Decimal, error)
	CreateTransaction(ctx context.Context, tx *sql.Tx, t *domain.WalletTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByManagerID(ctx context.Context, managerID uuid.UUID) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.WalletTransaction, int, error)
	SettledSum(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
}

type walletCache interface {
	Get(ctx context.Context, managerID uuid.UUID) (*domain.Wallet, bool, error)
	Set(ctx context.Context, w *domain.Wallet) error
}

type Ledger struct {
	wallets walletRepo
	cache   walletCache
}

func New(wallets walletRepo, cache walletCache) *Ledger {
	return &Ledger{wallets: wallets, cache: cache}
}

// Credit adds amount to the manager's wallet inside tx, creating the wallet on
// first credit. reference can credit a wallet at most once.
func (l *Ledger) Credit(ctx context.Context, tx *sql.Tx, managerID uuid.UUID, amount decimal.Decimal, reference, description string) (*domain.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Credit: %w", domain.ErrInvalidAmount)
	}

	wallet, err := l.wallets.EnsureForUpdate(ctx, tx, managerID)
	if err != nil {
		return nil, fmt.Errorf("Credit: %w", err)
	}

	entry := &domain.WalletTransaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		Amount:      amount,
		Type:        domain.TransactionTypeCredit,
		Status:      domain.TransactionStatusSuccess,
		Reference:   reference,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := l.wallets.CreateTransaction(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("Credit: %w", err)
	}

	after, err := l.wallets.IncrementBalance(ctx, tx, wallet.ID, amount, wallet.Version)
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return nil, fmt.Errorf("Credit: wallet %s changed under lock: %w", wallet.ID, domain.ErrLedgerInconsistency)
		}
		return nil, fmt.Errorf("Credit: %w", err)
	}

	if expected := wallet.Balance.Add(amount); !after.Equal(expected) {
		logging.FromContext(ctx).Error("wallet balance drift on credit",
			"wallet_id", wallet.ID,
			"before", wallet.Balance,
			"amount", amount,
			"after", after,
		)
		return nil, fmt.Errorf("Credit: balance %s, expected %s: %w", after, expected, domain.ErrLedgerInconsistency)
	}

	logging.FromContext(ctx).Info("wallet credited",
		"wallet_id", wallet.ID,
		"manager_id", managerID,
		"amount", amount,
		"reference", reference,
		"balance", after,
	)

	return entry, nil
}

// VerifyBalance recomputes the balance from settled transactions and reports
// ErrLedgerInconsistency when it differs from the stored one.
func (l *Ledger) VerifyBalance(ctx context.Context, walletID uuid.UUID) error {
	wallet, err := l.wallets.GetByID(ctx, walletID)
	if err != nil {
		return fmt.Errorf("VerifyBalance: %w", err)
	}

	sum, err := l.wallets.SettledSum(ctx, walletID)
	if err != nil {
		return fmt.Errorf("VerifyBalance: %w", err)
	}

	if !sum.Equal(wallet.Balance) {
		return fmt.Errorf("VerifyBalance: wallet %s balance %s, transactions sum %s: %w",
			walletID, wallet.Balance, sum, domain.ErrLedgerInconsistency)
	}
	return nil
}

// GetWallet reads through the wallet cache. Cache errors fall back to the
// database.
func (l *Ledger) GetWallet(ctx context.Context, managerID uuid.UUID) (*domain.Wallet, error) {
	log := logging.FromContext(ctx)

	cached, ok, err := l.cache.Get(ctx, managerID)
	if err != nil {
		log.Warn("wallet cache read failed", "manager_id", managerID, "error", err)
	}
	if ok {
		return cached, nil
	}

	w, err := l.wallets.GetByManagerID(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("GetWallet: %w", err)
	}

	if err := l.cache.Set(ctx, w); err != nil {
		log.Warn("wallet cache write failed", "manager_id", managerID, "error", err)
	}
	return w, nil
}

func (l *Ledger) ListTransactions(ctx context.Context, managerID uuid.UUID, limit, offset int) ([]domain.WalletTransaction, int, error) {
	w, err := l.wallets.GetByManagerID(ctx, managerID)
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: %w", err)
	}

	txs, total, err := l.wallets.ListTransactions(ctx, w.ID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: %w", err)
	}
	return txs, total, nil
}
