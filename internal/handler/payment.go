package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/paysettle/internal/auth"
	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/logging"
	"github.com/josh-kwaku/paysettle/internal/service/settlement"
)

type verificationService interface {
	Verify(ctx context.Context, req settlement.VerifyRequest) (*settlement.Outcome, error)
}

type paymentQuery interface {
	PaymentForUser(ctx context.Context, reference string, userID uuid.UUID) (*settlement.PaymentView, error)
}

type PaymentHandler struct {
	verifier verificationService
	query    paymentQuery
}

func NewPaymentHandler(verifier verificationService, query paymentQuery) *PaymentHandler {
	return &PaymentHandler{verifier: verifier, query: query}
}

type verifyPaymentRequest struct {
	Reference string                 `json:"reference"`
	Email     string                 `json:"email"`
	Amount    decimal.Decimal        `json:"amount"`
	Metadata  domain.PaymentMetadata `json:"metadata"`
}

func (r verifyPaymentRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Reference == "" {
		errs = append(errs, FieldError{Field: "reference", Message: "required"})
	}

	if r.Metadata.Purpose == string(domain.PurposeAccessKey) && !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}

	if r.Amount.IsNegative() {
		errs = append(errs, FieldError{Field: "amount", Message: "must not be negative"})
	}

	return errs
}

type verifyPaymentResponse struct {
	Message   string                 `json:"message"`
	Reference string                 `json:"reference"`
	Purpose   domain.PurposeKind     `json:"purpose"`
	State     domain.SettlementState `json:"state"`
	Code      string                 `json:"code,omitempty"`
	TargetID  *uuid.UUID             `json:"target_id,omitempty"`
	Replayed  bool                   `json:"replayed"`
}

func toVerifyPaymentResponse(out *settlement.Outcome) verifyPaymentResponse {
	resp := verifyPaymentResponse{
		Message:   settledMessage(out),
		Reference: out.Payment.Reference,
		Purpose:   out.Payment.Purpose,
		State:     out.State,
		Code:      out.Code,
		Replayed:  out.Replayed,
	}
	if out.TargetID.Valid {
		resp.TargetID = &out.TargetID.UUID
	}
	return resp
}

func settledMessage(out *settlement.Outcome) string {
	if out.Replayed {
		return "Payment already verified"
	}
	switch out.State {
	case domain.StateCodeIssued:
		return "Payment verified, activation code issued"
	case domain.StateBookingConfirmed:
		return "Payment verified, booking confirmed"
	case domain.StateOrderConfirmed:
		return "Payment verified, order confirmed"
	default:
		return "Payment verified"
	}
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if req.Metadata.UserID != "" && req.Metadata.UserID != userID.String() {
		log.Warn("payment metadata names another user", "metadata_user_id", req.Metadata.UserID)
		RespondAppError(w, ErrInvalidPurpose, nil)
		return
	}

	purpose, err := req.Metadata.ToPurpose(req.Amount)
	if err != nil {
		RespondAppError(w, ErrInvalidPurpose, []FieldError{{Field: "metadata", Message: err.Error()}})
		return
	}

	out, err := h.verifier.Verify(r.Context(), settlement.VerifyRequest{
		Reference: req.Reference,
		Purpose:   purpose,
		UserID:    uuid.NullUUID{UUID: userID, Valid: true},
		Actor:     "user:" + userID.String(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrLedgerInconsistency) {
			log.Error("payment verification failed", "reference", req.Reference, "error", err)
		} else {
			log.Warn("payment verification failed", "reference", req.Reference, "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toVerifyPaymentResponse(out))
}

type paymentDTO struct {
	ID            uuid.UUID                   `json:"id"`
	Reference     string                      `json:"reference"`
	Amount        decimal.Decimal             `json:"amount"`
	Currency      string                      `json:"currency"`
	Status        string                      `json:"status"`
	Purpose       domain.PurposeKind          `json:"purpose"`
	TargetID      *uuid.UUID                  `json:"target_id,omitempty"`
	Settlement    settlement.SettlementStatus `json:"settlement"`
	State         domain.SettlementState      `json:"state,omitempty"`
	FailureReason string                      `json:"failure_reason,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
}

func toPaymentDTO(v *settlement.PaymentView) paymentDTO {
	p := v.Payment
	dto := paymentDTO{
		ID:            p.ID,
		Reference:     p.Reference,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        p.Status,
		Purpose:       p.Purpose,
		Settlement:    v.Settlement,
		State:         v.SettledState,
		FailureReason: v.FailureReason,
		CreatedAt:     p.CreatedAt,
	}
	if p.TargetID.Valid {
		dto.TargetID = &p.TargetID.UUID
	}
	return dto
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	reference := r.PathValue("reference")
	if reference == "" {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	view, err := h.query.PaymentForUser(r.Context(), reference, userID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPaymentDTO(view))
}
