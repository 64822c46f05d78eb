package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/paysettle/internal/domain"
)

type BusinessRepository struct {
	db *sql.DB
}

func NewBusinessRepository(db *sql.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// ResolveManager returns the business's manager id. A business without a
// manager yields an invalid NullUUID and no error.
func (r *BusinessRepository) ResolveManager(ctx context.Context, tx *sql.Tx, businessID uuid.UUID) (uuid.NullUUID, error) {
	var managerID uuid.NullUUID
	err := tx.QueryRowContext(ctx,
		`SELECT manager_id FROM businesses WHERE id = $1`, businessID,
	).Scan(&managerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.NullUUID{}, fmt.Errorf("ResolveManager: business %s: %w", businessID, domain.ErrNotFound)
		}
		return uuid.NullUUID{}, fmt.Errorf("ResolveManager: %w", err)
	}
	return managerID, nil
}
