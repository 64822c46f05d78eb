package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/paysettle/internal/domain"
)

const bookingColumns = `id, business_id, user_id, status, payment_id, version, created_at, updated_at`

type BookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id,
	)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Booking, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id,
	)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return b, nil
}

// Confirm moves a pending, unpaid booking to CONFIRMED. A changed version or
// status fails with ErrVersionConflict.
func (r *BookingRepository) Confirm(ctx context.Context, tx *sql.Tx, id, paymentID uuid.UUID, expectedVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = $1, payment_id = $2, version = version + 1, updated_at = now()
		WHERE id = $3 AND version = $4 AND status = $5 AND payment_id IS NULL`,
		domain.BookingStatusConfirmed, paymentID, id, expectedVersion, domain.BookingStatusPending,
	)
	if err != nil {
		return fmt.Errorf("Confirm: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Confirm: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Confirm: %w", domain.ErrVersionConflict)
	}
	return nil
}

func scanBooking(s scanner) (*domain.Booking, error) {
	var b domain.Booking
	err := s.Scan(
		&b.ID, &b.BusinessID, &b.UserID, &b.Status, &b.PaymentID,
		&b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
