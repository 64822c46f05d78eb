package settlement

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/paysettle/internal/domain"
)

const (
	activationCodeBytes    = 8
	activationCodeAttempts = 5
)

func (d *Dispatcher) issueAccessKey(ctx context.Context, tx *sql.Tx, p *domain.Payment, purpose domain.AccessKeyPurpose) (*Outcome, error) {
	existing, err := d.codes.GetByPaymentID(ctx, tx, p.ID)
	if err == nil {
		return accessKeyOutcome(p, existing, true), nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("issueAccessKey: %w", err)
	}

	if !purpose.DeclaredAmount.Equal(p.Amount) {
		return nil, fmt.Errorf("issueAccessKey: declared %s, paid %s: %w",
			purpose.DeclaredAmount, p.Amount, domain.ErrAmountMismatch)
	}

	for range activationCodeAttempts {
		value, err := newActivationCode()
		if err != nil {
			return nil, fmt.Errorf("issueAccessKey: %w", err)
		}

		code := &domain.ActivationCode{
			ID:          uuid.New(),
			Code:        value,
			Price:       p.Amount,
			GeneratedBy: domain.ActivationCodeGeneratedByPayment,
			IsUsed:      false,
			PaymentID:   p.ID,
			CreatedAt:   time.Now().UTC(),
		}
		inserted, err := d.codes.Insert(ctx, tx, code)
		if err != nil {
			return nil, fmt.Errorf("issueAccessKey: %w", err)
		}
		if inserted {
			return accessKeyOutcome(p, code, false), nil
		}

		// Either a concurrent settlement of this payment won, or the code
		// collided with another payment's.
		existing, err := d.codes.GetByPaymentID(ctx, tx, p.ID)
		if err == nil {
			return accessKeyOutcome(p, existing, true), nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("issueAccessKey: %w", err)
		}
	}

	return nil, fmt.Errorf("issueAccessKey: no unique code after %d attempts", activationCodeAttempts)
}

func accessKeyOutcome(p *domain.Payment, code *domain.ActivationCode, replayed bool) *Outcome {
	return &Outcome{
		Payment:  p,
		State:    domain.StateCodeIssued,
		Code:     code.Code,
		Replayed: replayed,
	}
}

// newActivationCode returns 16 lowercase hex characters.
func newActivationCode() (string, error) {
	b := make([]byte, activationCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("newActivationCode: %w", err)
	}
	return hex.EncodeToString(b), nil
}
