package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// Booking is a room booking owned by the bookings collaborator. Only
// Status, PaymentID and Version are written here.
type Booking struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	UserID     uuid.UUID
	Status     BookingStatus
	PaymentID  uuid.NullUUID
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is a food order owned by the orders collaborator.
type Order struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	UserID     uuid.UUID
	Status     OrderStatus
	PaymentID  uuid.NullUUID
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
