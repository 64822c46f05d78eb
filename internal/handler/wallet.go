package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/paysettle/internal/auth"
	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/logging"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type walletService interface {
	GetWallet(ctx context.Context, managerID uuid.UUID) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, managerID uuid.UUID, limit, offset int) ([]domain.WalletTransaction, int, error)
}

type WalletHandler struct {
	wallets walletService
}

func NewWalletHandler(wallets walletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type walletDTO struct {
	ID        uuid.UUID       `json:"id"`
	ManagerID uuid.UUID       `json:"manager_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type walletTransactionDTO struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

type transactionPage struct {
	Items  []walletTransactionDTO `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	wallet, err := h.wallets.GetWallet(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("wallet lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, walletDTO{
		ID:        wallet.ID,
		ManagerID: wallet.ManagerID,
		Balance:   wallet.Balance,
		UpdatedAt: wallet.UpdatedAt,
	})
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit, offset, fields := parsePage(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	txs, total, err := h.wallets.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Warn("wallet transactions lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	items := make([]walletTransactionDTO, 0, len(txs))
	for _, t := range txs {
		items = append(items, walletTransactionDTO{
			ID:          t.ID,
			Amount:      t.Amount,
			Type:        string(t.Type),
			Status:      string(t.Status),
			Reference:   t.Reference,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		})
	}

	RespondSuccess(w, http.StatusOK, transactionPage{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func parsePage(r *http.Request) (int, int, []FieldError) {
	var errs []FieldError
	limit, offset := defaultPageLimit, 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageLimit {
			errs = append(errs, FieldError{Field: "limit", Message: "must be between 1 and 100"})
		} else {
			limit = n
		}
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{Field: "offset", Message: "must be 0 or greater"})
		} else {
			offset = n
		}
	}

	return limit, offset, errs
}
