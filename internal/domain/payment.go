package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GatewayStatusSuccess is the only gateway status that means funds moved.
const GatewayStatusSuccess = "success"

type PurposeKind string

const (
	PurposeAccessKey PurposeKind = "ACCESS_KEY"
	PurposeBooking   PurposeKind = "BOOKING"
	PurposeOrder     PurposeKind = "ORDER"
)

func (k PurposeKind) IsValid() bool {
	switch k {
	case PurposeAccessKey, PurposeBooking, PurposeOrder:
		return true
	default:
		return false
	}
}

// Payment is written once per verified gateway reference and never updated.
type Payment struct {
	ID        uuid.UUID
	Reference string
	Amount    decimal.Decimal
	Currency  string
	Status    string
	Purpose   PurposeKind
	TargetID  uuid.NullUUID
	UserID    uuid.NullUUID
	Metadata  json.RawMessage
	CreatedAt time.Time
}

type SettlementState string

const (
	StateCodeIssued       SettlementState = "CODE_ISSUED"
	StateBookingConfirmed SettlementState = "BOOKING_CONFIRMED"
	StateOrderConfirmed   SettlementState = "ORDER_CONFIRMED"
)
