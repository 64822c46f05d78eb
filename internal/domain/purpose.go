package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purpose is what a payment pays for. The set of implementations is closed:
// AccessKeyPurpose, BookingPurpose and OrderPurpose.
type Purpose interface {
	Kind() PurposeKind
	// Target is the booking or order id, invalid for access keys.
	Target() uuid.NullUUID
	isPurpose()
}

type AccessKeyPurpose struct {
	DeclaredAmount decimal.Decimal
}

type BookingPurpose struct {
	BookingID uuid.UUID
}

type OrderPurpose struct {
	OrderID uuid.UUID
}

func (AccessKeyPurpose) Kind() PurposeKind { return PurposeAccessKey }
func (BookingPurpose) Kind() PurposeKind { return PurposeBooking }
func (OrderPurpose) Kind() PurposeKind { return PurposeOrder }

func (AccessKeyPurpose) Target() uuid.NullUUID { return uuid.NullUUID{} }
func (p BookingPurpose) Target() uuid.NullUUID { return uuid.NullUUID{UUID: p.BookingID, Valid: true} }
func (p OrderPurpose) Target() uuid.NullUUID { return uuid.NullUUID{UUID: p.OrderID, Valid: true} }

func (AccessKeyPurpose) isPurpose() {}
func (BookingPurpose) isPurpose() {}
func (OrderPurpose) isPurpose() {}

// ParsePurpose builds a Purpose from the loosely typed request metadata.
// Unknown tags and missing or malformed ids fail with ErrInvalidPurpose.
func ParsePurpose(kind string, declaredAmount decimal.Decimal, bookingID, orderID string) (Purpose, error) {
	switch PurposeKind(kind) {
	case PurposeAccessKey:
		return AccessKeyPurpose{DeclaredAmount: declaredAmount}, nil
	case PurposeBooking:
		id, err := parseTargetID("bookingId", bookingID)
		if err != nil {
			return nil, err
		}
		return BookingPurpose{BookingID: id}, nil
	case PurposeOrder:
		id, err := parseTargetID("orderId", orderID)
		if err != nil {
			return nil, err
		}
		return OrderPurpose{OrderID: id}, nil
	default:
		return nil, fmt.Errorf("ParsePurpose: unknown purpose %q: %w", kind, ErrInvalidPurpose)
	}
}

func parseTargetID(field, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("ParsePurpose: %s required: %w", field, ErrInvalidPurpose)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ParsePurpose: %s malformed: %w", field, ErrInvalidPurpose)
	}
	return id, nil
}
