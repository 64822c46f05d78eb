package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePurpose(t *testing.T) {
	bookingID := uuid.New()
	orderID := uuid.New()
	amount := decimal.RequireFromString("50.00")

	tests := []struct {
		name      string
		kind      string
		bookingID string
		orderID   string
		want      Purpose
		wantErr   error
	}{
		{
			name: "access key",
			kind: "ACCESS_KEY",
			want: AccessKeyPurpose{DeclaredAmount: amount},
		},
		{
			name:      "booking",
			kind:      "BOOKING",
			bookingID: bookingID.String(),
			want:      BookingPurpose{BookingID: bookingID},
		},
		{
			name:    "order",
			kind:    "ORDER",
			orderID: orderID.String(),
			want:    OrderPurpose{OrderID: orderID},
		},
		{
			name:    "booking without id",
			kind:    "BOOKING",
			orderID: orderID.String(),
			wantErr: ErrInvalidPurpose,
		},
		{
			name:    "order without id",
			kind:    "ORDER",
			wantErr: ErrInvalidPurpose,
		},
		{
			name:      "malformed booking id",
			kind:      "BOOKING",
			bookingID: "b1",
			wantErr:   ErrInvalidPurpose,
		},
		{
			name:    "malformed order id",
			kind:    "ORDER",
			orderID: "o9",
			wantErr: ErrInvalidPurpose,
		},
		{
			name:    "unknown purpose",
			kind:    "SUBSCRIPTION",
			wantErr: ErrInvalidPurpose,
		},
		{
			name:    "lowercase tag is not accepted",
			kind:    "booking",
			wantErr: ErrInvalidPurpose,
		},
		{
			name:    "empty purpose",
			kind:    "",
			wantErr: ErrInvalidPurpose,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePurpose(tc.kind, amount, tc.bookingID, tc.orderID)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, PurposeKind(tc.kind), got.Kind())
		})
	}
}

func TestPurposeTarget(t *testing.T) {
	id := uuid.New()

	assert.False(t, AccessKeyPurpose{}.Target().Valid)
	assert.Equal(t, uuid.NullUUID{UUID: id, Valid: true}, BookingPurpose{BookingID: id}.Target())
	assert.Equal(t, uuid.NullUUID{UUID: id, Valid: true}, OrderPurpose{OrderID: id}.Target())
}

func TestPurposeKindIsValid(t *testing.T) {
	for _, k := range []PurposeKind{PurposeAccessKey, PurposeBooking, PurposeOrder} {
		assert.True(t, k.IsValid(), k)
	}
	assert.False(t, PurposeKind("REFUND").IsValid())
}
