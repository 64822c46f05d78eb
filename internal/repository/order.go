package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/paysettle/internal/domain"
)

const orderColumns = `id, business_id, user_id, status, payment_id, version, created_at, updated_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id,
	)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id,
	)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return o, nil
}

// Confirm moves a pending, unpaid order to CONFIRMED. A changed version or
// status fails with ErrVersionConflict.
func (r *OrderRepository) Confirm(ctx context.Context, tx *sql.Tx, id, paymentID uuid.UUID, expectedVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, payment_id = $2, version = version + 1, updated_at = now()
		WHERE id = $3 AND version = $4 AND status = $5 AND payment_id IS NULL`,
		domain.OrderStatusConfirmed, paymentID, id, expectedVersion, domain.OrderStatusPending,
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

func scanOrder(s scanner) (*domain.Order, error) {
	var o domain.Order
	err := s.Scan(
		&o.ID, &o.BusinessID, &o.UserID, &o.Status, &o.PaymentID,
		&o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
