package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PaymentEventType string

const (
	PaymentEventTypeRecorded         PaymentEventType = "recorded"
	PaymentEventTypeSettled          PaymentEventType = "settled"
	PaymentEventTypeSettlementFailed PaymentEventType = "settlement_failed"
)

type PaymentEvent struct {
	ID        uuid.UUID
	PaymentID uuid.UUID
	EventType PaymentEventType
	Actor     string
	Payload   json.RawMessage
	CreatedAt time.Time
}
