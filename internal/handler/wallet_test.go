package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/paysettle/internal/domain"
)

type mockWalletService struct {
	wallet        *domain.Wallet
	txs           []domain.WalletTransaction
	err           error
	limit, offset int
}

func (m *mockWalletService) GetWallet(context.Context, uuid.UUID) (*domain.Wallet, error) {
	return m.wallet, m.err
}

func (m *mockWalletService) ListTransactions(_ context.Context, _ uuid.UUID, limit, offset int) ([]domain.WalletTransaction, int, error) {
	m.limit, m.offset = limit, offset
	return m.txs, len(m.txs), m.err
}

func TestWalletGet(t *testing.T) {
	managerID := uuid.New()
	svc := &mockWalletService{wallet: &domain.Wallet{
		ID:        uuid.New(),
		ManagerID: managerID,
		Balance:   decimal.RequireFromString("310.75"),
		UpdatedAt: time.Now().UTC(),
	}}
	h := NewWalletHandler(svc)

	rr := httptest.NewRecorder()
	h.Get(rr, authedRequest(http.MethodGet, "/api/v1/wallets/me", "", managerID))

	require.Equal(t, http.StatusOK, rr.Code)
	_, data := decodeResponse(t, rr)
	assert.Equal(t, "310.75", data["balance"])
	assert.Equal(t, managerID.String(), data["manager_id"])
}

func TestWalletGet_NoWallet(t *testing.T) {
	h := NewWalletHandler(&mockWalletService{err: fmt.Errorf("GetWallet: %w", domain.ErrNotFound)})

	rr := httptest.NewRecorder()
	h.Get(rr, authedRequest(http.MethodGet, "/api/v1/wallets/me", "", uuid.New()))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWalletListTransactions(t *testing.T) {
	svc := &mockWalletService{txs: []domain.WalletTransaction{
		{ID: uuid.New(), Amount: decimal.NewFromInt(10), Type: domain.TransactionTypeCredit, Status: domain.TransactionStatusSuccess, Reference: "ref-1"},
		{ID: uuid.New(), Amount: decimal.NewFromInt(20), Type: domain.TransactionTypeCredit, Status: domain.TransactionStatusSuccess, Reference: "ref-2"},
	}}
	h := NewWalletHandler(svc)

	rr := httptest.NewRecorder()
	h.ListTransactions(rr, authedRequest(http.MethodGet, "/api/v1/wallets/me/transactions?limit=5&offset=10", "", uuid.New()))

	require.Equal(t, http.StatusOK, rr.Code)
	_, data := decodeResponse(t, rr)
	assert.Equal(t, float64(2), data["total"])
	assert.Len(t, data["items"], 2)
	assert.Equal(t, 5, svc.limit)
	assert.Equal(t, 10, svc.offset)
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
		wantErrs   int
	}{
		{"", defaultPageLimit, 0, 0},
		{"limit=100&offset=3", 100, 3, 0},
		{"limit=0", defaultPageLimit, 0, 1},
		{"limit=101", defaultPageLimit, 0, 1},
		{"limit=abc&offset=-1", defaultPageLimit, 0, 2},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
			limit, offset, errs := parsePage(req)
			assert.Equal(t, tc.wantLimit, limit)
			assert.Equal(t, tc.wantOffset, offset)
			assert.Len(t, errs, tc.wantErrs)
		})
	}
}
