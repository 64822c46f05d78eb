package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/paysettle/internal/domain"
)

const activationCodeColumns = `id, code, price, generated_by, is_used, payment_id, created_at`

type ActivationCodeRepository struct {
	db *sql.DB
}

func NewActivationCodeRepository(db *sql.DB) *ActivationCodeRepository {
	return &ActivationCodeRepository{db: db}
}

// Insert stores code unless its code or payment id is already taken, in which
// case it reports inserted=false without aborting tx.
func (r *ActivationCodeRepository) Insert(ctx context.Context, tx *sql.Tx, code *domain.ActivationCode) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO activation_codes (id, code, price, generated_by, is_used, payment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING`,
		code.ID, code.Code, code.Price, code.GeneratedBy, code.IsUsed, code.PaymentID, code.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Insert: rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *ActivationCodeRepository) GetByPaymentID(ctx context.Context, tx *sql.Tx, paymentID uuid.UUID) (*domain.ActivationCode, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+activationCodeColumns+` FROM activation_codes WHERE payment_id = $1`, paymentID,
	)
	c, err := scanActivationCode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByPaymentID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByPaymentID: %w", err)
	}
	return c, nil
}

func (r *ActivationCodeRepository) CountByPaymentID(ctx context.Context, paymentID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activation_codes WHERE payment_id = $1`, paymentID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountByPaymentID: %w", err)
	}
	return n, nil
}

func scanActivationCode(s scanner) (*domain.ActivationCode, error) {
	var c domain.ActivationCode
	err := s.Scan(
		&c.ID, &c.Code, &c.Price, &c.GeneratedBy, &c.IsUsed, &c.PaymentID, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
