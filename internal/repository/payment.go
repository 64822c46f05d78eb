package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/paysettle/internal/domain"
)

const paymentColumns = `id, reference, amount, currency, status, purpose,
	target_id, user_id, metadata, created_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payments (
			id, reference, amount, currency, status, purpose,
			target_id, user_id, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		payment.ID, payment.Reference, payment.Amount, payment.Currency, payment.Status, payment.Purpose,
		payment.TargetID, payment.UserID, nullableJSON(payment.Metadata), payment.CreatedAt,
	)
	if err != nil {
		if isConstraintViolation(err, "payments_reference_key") {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateReference)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByReference: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByReference: %w", err)
	}
	return p, nil
}

// AssignUser sets the owner of a payment recorded without one. It reports
// false when the payment already has an owner.
func (r *PaymentRepository) AssignUser(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET user_id = $1 WHERE id = $2 AND user_id IS NULL`,
		userID, id,
	)
	if err != nil {
		return false, fmt.Errorf("AssignUser: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("AssignUser: rows affected: %w", err)
	}
	return rows == 1, nil
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var p domain.Payment
	var metadata []byte

	err := s.Scan(
		&p.ID, &p.Reference, &p.Amount, &p.Currency, &p.Status, &p.Purpose,
		&p.TargetID, &p.UserID, &metadata, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadata != nil {
		p.Metadata = metadata
	}
	return &p, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
