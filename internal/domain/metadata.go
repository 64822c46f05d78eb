package domain

import "github.com/shopspring/decimal"

// PaymentMetadata is the purpose description the client attaches to a
// payment, both in verify requests and in gateway transaction metadata.
type PaymentMetadata struct {
	Purpose   string `json:"purpose"`
	UserID    string `json:"userId,omitempty"`
	BookingID string `json:"bookingId,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
}

func (m PaymentMetadata) ToPurpose(declaredAmount decimal.Decimal) (Purpose, error) {
	return ParsePurpose(m.Purpose, declaredAmount, m.BookingID, m.OrderID)
}
