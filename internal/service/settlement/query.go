package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/paysettle/internal/domain"
)

type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementSettled SettlementStatus = "settled"
	SettlementFailed  SettlementStatus = "settlement_failed"
)

type PaymentView struct {
	Payment       *domain.Payment
	Settlement    SettlementStatus
	FailureReason string
	SettledState  domain.SettlementState
}

type eventReader interface {
	Latest(ctx context.Context, paymentID uuid.UUID) (*domain.PaymentEvent, error)
}

type Query struct {
	records recorder
	events  eventReader
}

func NewQuery(records recorder, events eventReader) *Query {
	return &Query{records: records, events: events}
}

// PaymentForUser returns the payment for reference with its settlement
// status. Payments recorded for someone else are reported as not found.
func (q *Query) PaymentForUser(ctx context.Context, reference string, userID uuid.UUID) (*PaymentView, error) {
	p, err := q.records.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("PaymentForUser: %w", err)
	}
	if !p.UserID.Valid || p.UserID.UUID != userID {
		return nil, fmt.Errorf("PaymentForUser: %w", domain.ErrNotFound)
	}

	view := &PaymentView{Payment: p, Settlement: SettlementPending}

	latest, err := q.events.Latest(ctx, p.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return view, nil
		}
		return nil, fmt.Errorf("PaymentForUser: %w", err)
	}

	switch latest.EventType {
	case domain.PaymentEventTypeSettled:
		view.Settlement = SettlementSettled
		var payload settledPayload
		if err := json.Unmarshal(latest.Payload, &payload); err == nil {
			view.SettledState = payload.State
		}
	case domain.PaymentEventTypeSettlementFailed:
		view.Settlement = SettlementFailed
		var payload failedPayload
		if err := json.Unmarshal(latest.Payload, &payload); err == nil {
			view.FailureReason = payload.Reason
		}
	}
	return view, nil
}
