package settlement

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/logging"
)

type RecordParams struct {
	Reference string
	Amount    decimal.Decimal
	Currency  string
	Status    string
	Purpose   domain.Purpose
	UserID    uuid.NullUUID
	Metadata  json.RawMessage
	Actor     string
}

// Records persists verified payments. Apart from a one-time owner assignment
// a payment row is never updated; its settlement progress lives in payment
// events.
type Records struct {
	uow      unitOfWork
	payments paymentRepo
	events   eventRepo
}

func NewRecords(uow unitOfWork, payments paymentRepo, events eventRepo) *Records {
	return &Records{uow: uow, payments: payments, events: events}
}

// Record stores a successful payment together with its recorded event.
// A reference that is already stored yields ErrDuplicateReference.
func (r *Records) Record(ctx context.Context, params RecordParams) (*domain.Payment, error) {
	if params.Status != domain.GatewayStatusSuccess {
		return nil, fmt.Errorf("Record: status %q: %w", params.Status, domain.ErrGatewayDeclined)
	}
	if params.Purpose == nil {
		return nil, fmt.Errorf("Record: %w", domain.ErrInvalidPurpose)
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("Record: %w", domain.ErrInvalidAmount)
	}

	now := time.Now().UTC()
	p := &domain.Payment{
		ID:        uuid.New(),
		Reference: params.Reference,
		Amount:    params.Amount,
		Currency:  params.Currency,
		Status:    params.Status,
		Purpose:   params.Purpose.Kind(),
		TargetID:  params.Purpose.Target(),
		UserID:    params.UserID,
		Metadata:  params.Metadata,
		CreatedAt: now,
	}

	err := r.uow.WithTx(ctx, func(tx *sql.Tx) error {
		if err := r.payments.Create(ctx, tx, p); err != nil {
			return err
		}
		return r.events.Create(ctx, tx, &domain.PaymentEvent{
			ID:        uuid.New(),
			PaymentID: p.ID,
			EventType: domain.PaymentEventTypeRecorded,
			Actor:     params.Actor,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("Record: %w", err)
	}

	logging.FromContext(ctx).Info("payment recorded",
		"payment_id", p.ID,
		"reference", p.Reference,
		"purpose", p.Purpose,
		"amount", p.Amount,
		"currency", p.Currency,
	)
	return p, nil
}

func (r *Records) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	p, err := r.payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("GetByReference: %w", err)
	}
	return p, nil
}

// ClaimOwner binds a payment recorded without an owner to userID. When
// another caller claimed it first the stored payment is returned unchanged.
func (r *Records) ClaimOwner(ctx context.Context, p *domain.Payment, userID uuid.UUID) (*domain.Payment, error) {
	assigned, err := r.payments.AssignUser(ctx, p.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("ClaimOwner: %w", err)
	}
	if !assigned {
		current, err := r.payments.GetByReference(ctx, p.Reference)
		if err != nil {
			return nil, fmt.Errorf("ClaimOwner: %w", err)
		}
		return current, nil
	}

	logging.FromContext(ctx).Info("payment owner assigned", "payment_id", p.ID, "user_id", userID)
	claimed := *p
	claimed.UserID = uuid.NullUUID{UUID: userID, Valid: true}
	return &claimed, nil
}
