// Package settlement turns a gateway-verified payment reference into exactly
// one recorded Payment and exactly one applied settlement branch.
package settlement

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/paysettle/internal/domain"
)

// Verification is what the gateway reports for a reference.
type Verification struct {
	Status    string
	Amount    decimal.Decimal
	Currency  string
	Reference string
	Metadata  json.RawMessage
	PaidAt    *time.Time
}

func (v *Verification) Succeeded() bool {
	return v.Status == domain.GatewayStatusSuccess
}

// Outcome describes the settlement applied for a payment. Replayed is set
// when the effects already existed and nothing new was written.
type Outcome struct {
	Payment   *domain.Payment
	State     domain.SettlementState
	Code      string
	TargetID  uuid.NullUUID
	ManagerID uuid.NullUUID
	Credit    *domain.WalletTransaction
	Replayed  bool
}

type unitOfWork interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type paymentRepo interface {
	Create(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)
	AssignUser(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

type eventRepo interface {
	Create(ctx context.Context, tx *sql.Tx, event *domain.PaymentEvent) error
}
