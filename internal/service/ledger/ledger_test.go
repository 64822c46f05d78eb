package ledger_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/paysettle/internal/cache"
	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/repository"
	"github.com/josh-kwaku/paysettle/internal/service/ledger"
	"github.com/josh-kwaku/paysettle/internal/testutil"
)

func credit(t *testing.T, db *sql.DB, l *ledger.Ledger, managerID uuid.UUID, amount, reference string) (*domain.WalletTransaction, error) {
	t.Helper()

	var entry *domain.WalletTransaction
	err := repository.NewDB(db).WithTx(context.Background(), func(tx *sql.Tx) error {
		var err error
		entry, err = l.Credit(context.Background(), tx, managerID, decimal.RequireFromString(amount), reference, "test credit")
		return err
	})
	return entry, err
}

func TestCredit_CreatesWalletOnFirstCredit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := ledger.New(repository.NewWalletRepository(db), cache.Nop{})
	manager := testutil.SeedUser(t, db, "manager@test.com", nil)

	entry, err := credit(t, db, l, manager, "25.50", "ref-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeCredit, entry.Type)
	assert.Equal(t, domain.TransactionStatusSuccess, entry.Status)

	_, err = credit(t, db, l, manager, "4.50", "ref-2")
	require.NoError(t, err)

	w, err := l.GetWallet(context.Background(), manager)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30).Equal(w.Balance))
	assert.Equal(t, int64(2), w.Version)

	require.NoError(t, l.VerifyBalance(context.Background(), w.ID))
}

func TestCredit_RejectsNonPositiveAmount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := ledger.New(repository.NewWalletRepository(db), cache.Nop{})
	manager := testutil.SeedUser(t, db, "manager@test.com", nil)

	for _, amount := range []string{"0", "-5.00"} {
		_, err := credit(t, db, l, manager, amount, "ref-"+amount)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
	assert.Equal(t, 0, testutil.CountRows(t, db, `SELECT COUNT(*) FROM wallets`))
}

func TestCredit_DuplicateReferenceRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := ledger.New(repository.NewWalletRepository(db), cache.Nop{})
	manager := testutil.SeedUser(t, db, "manager@test.com", nil)

	_, err := credit(t, db, l, manager, "10.00", "ref-dup")
	require.NoError(t, err)

	_, err = credit(t, db, l, manager, "10.00", "ref-dup")
	require.ErrorIs(t, err, domain.ErrDuplicateReference)

	assert.Equal(t, "10", testutil.GetWalletBalance(t, db, manager).String())
}

func TestCredit_ConcurrentCreditsKeepBalanceConsistent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := ledger.New(repository.NewWalletRepository(db), cache.Nop{})
	manager := testutil.SeedUser(t, db, "manager@test.com", nil)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = credit(t, db, l, manager, "1.25", fmt.Sprintf("ref-%d", i))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	w, err := repository.NewWalletRepository(db).GetByManagerID(context.Background(), manager)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("25.00").Equal(w.Balance))
	assert.Equal(t, int64(n), w.Version)
	require.NoError(t, l.VerifyBalance(context.Background(), w.ID))
}

func TestVerifyBalance_DetectsDrift(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := ledger.New(repository.NewWalletRepository(db), cache.Nop{})
	manager := testutil.SeedUser(t, db, "manager@test.com", nil)

	entry, err := credit(t, db, l, manager, "10.00", "ref-drift")
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE wallets SET balance = balance + 1 WHERE id = $1`, entry.WalletID)
	require.NoError(t, err)

	err = l.VerifyBalance(context.Background(), entry.WalletID)
	assert.ErrorIs(t, err, domain.ErrLedgerInconsistency)
}

func TestListTransactions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := ledger.New(repository.NewWalletRepository(db), cache.Nop{})
	manager := testutil.SeedUser(t, db, "manager@test.com", nil)

	for i := range 3 {
		_, err := credit(t, db, l, manager, "5.00", fmt.Sprintf("ref-list-%d", i))
		require.NoError(t, err)
	}

	txs, total, err := l.ListTransactions(context.Background(), manager, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, txs, 2)

	_, _, err = l.ListTransactions(context.Background(), uuid.New(), 10, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type stubCache struct {
	wallet *domain.Wallet
	err    error
	sets   int
}

func (c *stubCache) Get(context.Context, uuid.UUID) (*domain.Wallet, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	return c.wallet, c.wallet != nil, nil
}

func (c *stubCache) Set(_ context.Context, w *domain.Wallet) error {
	c.sets++
	c.wallet = w
	return nil
}

func TestGetWallet_ReadsThroughCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := &stubCache{}
	l := ledger.New(repository.NewWalletRepository(db), c)
	manager := testutil.SeedUser(t, db, "manager@test.com", nil)

	_, err := credit(t, db, l, manager, "7.00", "ref-cache")
	require.NoError(t, err)

	first, err := l.GetWallet(context.Background(), manager)
	require.NoError(t, err)
	second, err := l.GetWallet(context.Background(), manager)
	require.NoError(t, err)

	assert.Equal(t, 1, c.sets)
	assert.Equal(t, first.ID, second.ID)

	// A broken cache falls back to the database.
	broken := ledger.New(repository.NewWalletRepository(db), &stubCache{err: fmt.Errorf("redis down")})
	w, err := broken.GetWallet(context.Background(), manager)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(7).Equal(w.Balance))
}
