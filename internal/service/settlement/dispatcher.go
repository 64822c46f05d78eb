package settlement

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/logging"
)

type activationCodeRepo interface {
	Insert(ctx context.Context, tx *sql.Tx, code *domain.ActivationCode) (bool, error)
	GetByPaymentID(ctx context.Context, tx *sql.Tx, paymentID uuid.UUID) (*domain.ActivationCode, error)
}

type bookingRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Booking, error)
	Confirm(ctx context.Context, tx *sql.Tx, id, paymentID uuid.UUID, expectedVersion int64) error
}

type orderRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error)
	Confirm(ctx context.Context, tx *sql.Tx, id, paymentID uuid.UUID, expectedVersion int64) error
}

type businessRepo interface {
	ResolveManager(ctx context.Context, tx *sql.Tx, businessID uuid.UUID) (uuid.NullUUID, error)
}

type walletLedger interface {
	Credit(ctx context.Context, tx *sql.Tx, managerID uuid.UUID, amount decimal.Decimal, reference, description string) (*domain.WalletTransaction, error)
}

type Dispatcher struct {
	uow        unitOfWork
	codes      activationCodeRepo
	bookings   bookingRepo
	orders     orderRepo
	businesses businessRepo
	ledger     walletLedger
	events     eventRepo
}

func NewDispatcher(
	uow unitOfWork,
	codes activationCodeRepo,
	bookings bookingRepo,
	orders orderRepo,
	businesses businessRepo,
	ledger walletLedger,
	events eventRepo,
) *Dispatcher {
	return &Dispatcher{
		uow:        uow,
		codes:      codes,
		bookings:   bookings,
		orders:     orders,
		businesses: businesses,
		ledger:     ledger,
		events:     events,
	}
}

type settledPayload struct {
	State     domain.SettlementState `json:"state"`
	TargetID  *uuid.UUID             `json:"target_id,omitempty"`
	ManagerID *uuid.UUID             `json:"manager_id,omitempty"`
}

type failedPayload struct {
	Reason string `json:"reason"`
}

// Settle applies the branch selected by purpose to p in a single
// transaction. Running it again for the same payment returns the original
// outcome with Replayed set. On failure nothing is applied and a
// settlement_failed event is recorded for the payment.
func (d *Dispatcher) Settle(ctx context.Context, p *domain.Payment, purpose domain.Purpose) (*Outcome, error) {
	if purpose == nil || purpose.Kind() != p.Purpose || purpose.Target() != p.TargetID {
		return nil, fmt.Errorf("Settle: %w", domain.ErrReferenceConflict)
	}

	var out *Outcome
	err := d.uow.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		switch pp := purpose.(type) {
		case domain.AccessKeyPurpose:
			out, err = d.issueAccessKey(ctx, tx, p, pp)
		case domain.BookingPurpose:
			out, err = d.confirmBooking(ctx, tx, p, pp)
		case domain.OrderPurpose:
			out, err = d.confirmOrder(ctx, tx, p, pp)
		default:
			err = fmt.Errorf("purpose %T: %w", purpose, domain.ErrInvalidPurpose)
		}
		if err != nil {
			return err
		}
		if out.Replayed {
			return nil
		}
		return d.recordSettled(ctx, tx, out)
	})
	if err != nil {
		d.recordFailure(ctx, p, err)
		return nil, fmt.Errorf("Settle: %w", err)
	}

	log := logging.FromContext(ctx)
	if out.Replayed {
		log.Info("settlement replayed", "payment_id", p.ID, "state", out.State)
	} else {
		log.Info("payment settled", "payment_id", p.ID, "state", out.State, "manager_id", out.ManagerID)
	}
	return out, nil
}

func (d *Dispatcher) recordSettled(ctx context.Context, tx *sql.Tx, out *Outcome) error {
	payload := settledPayload{State: out.State}
	if out.TargetID.Valid {
		payload.TargetID = &out.TargetID.UUID
	}
	if out.ManagerID.Valid {
		payload.ManagerID = &out.ManagerID.UUID
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("recordSettled: marshal: %w", err)
	}

	return d.events.Create(ctx, tx, &domain.PaymentEvent{
		ID:        uuid.New(),
		PaymentID: out.Payment.ID,
		EventType: domain.PaymentEventTypeSettled,
		Actor:     "system",
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	})
}

// recordFailure is best effort and survives cancellation of ctx.
func (d *Dispatcher) recordFailure(ctx context.Context, p *domain.Payment, cause error) {
	log := logging.FromContext(ctx)
	ctx = context.WithoutCancel(ctx)
	if errors.Is(cause, domain.ErrLedgerInconsistency) {
		log.Error("settlement aborted on ledger inconsistency", "payment_id", p.ID, "reference", p.Reference, "error", cause)
	} else {
		log.Warn("settlement failed", "payment_id", p.ID, "reference", p.Reference, "error", cause)
	}

	data, _ := json.Marshal(failedPayload{Reason: cause.Error()})
	err := d.uow.WithTx(ctx, func(tx *sql.Tx) error {
		return d.events.Create(ctx, tx, &domain.PaymentEvent{
			ID:        uuid.New(),
			PaymentID: p.ID,
			EventType: domain.PaymentEventTypeSettlementFailed,
			Actor:     "system",
			Payload:   data,
			CreatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		log.Error("failed to record settlement failure", "payment_id", p.ID, "error", err)
	}
}
