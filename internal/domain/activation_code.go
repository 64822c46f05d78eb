package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const ActivationCodeGeneratedByPayment = "payment"

type ActivationCode struct {
	ID          uuid.UUID
	Code        string
	Price       decimal.Decimal
	GeneratedBy string
	IsUsed      bool
	PaymentID   uuid.UUID
	CreatedAt   time.Time
}
