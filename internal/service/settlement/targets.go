package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/paysettle/internal/domain"
)

// lockedTarget is the part of a locked booking or order that settlement
// decides on.
type lockedTarget struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	Pending    bool
	Confirmed  bool
	PaymentID  uuid.NullUUID
	Version    int64
}

func (d *Dispatcher) confirmBooking(ctx context.Context, tx *sql.Tx, p *domain.Payment, purpose domain.BookingPurpose) (*Outcome, error) {
	b, err := d.bookings.GetForUpdate(ctx, tx, purpose.BookingID)
	if err != nil {
		return nil, fmt.Errorf("confirmBooking: %w", targetLookupErr(err))
	}

	target := lockedTarget{
		ID:         b.ID,
		BusinessID: b.BusinessID,
		Pending:    b.Status == domain.BookingStatusPending,
		Confirmed:  b.Status == domain.BookingStatusConfirmed,
		PaymentID:  b.PaymentID,
		Version:    b.Version,
	}
	confirm := func() error {
		return d.bookings.Confirm(ctx, tx, b.ID, p.ID, b.Version)
	}

	out, err := d.confirmTarget(ctx, tx, p, target, confirm, domain.StateBookingConfirmed, "booking "+b.ID.String())
	if err != nil {
		return nil, fmt.Errorf("confirmBooking: %w", err)
	}
	return out, nil
}

func (d *Dispatcher) confirmOrder(ctx context.Context, tx *sql.Tx, p *domain.Payment, purpose domain.OrderPurpose) (*Outcome, error) {
	o, err := d.orders.GetForUpdate(ctx, tx, purpose.OrderID)
	if err != nil {
		return nil, fmt.Errorf("confirmOrder: %w", targetLookupErr(err))
	}

	target := lockedTarget{
		ID:         o.ID,
		BusinessID: o.BusinessID,
		Pending:    o.Status == domain.OrderStatusPending,
		Confirmed:  o.Status == domain.OrderStatusConfirmed,
		PaymentID:  o.PaymentID,
		Version:    o.Version,
	}
	confirm := func() error {
		return d.orders.Confirm(ctx, tx, o.ID, p.ID, o.Version)
	}

	out, err := d.confirmTarget(ctx, tx, p, target, confirm, domain.StateOrderConfirmed, "order "+o.ID.String())
	if err != nil {
		return nil, fmt.Errorf("confirmOrder: %w", err)
	}
	return out, nil
}

// confirmTarget moves a locked PENDING target to CONFIRMED and credits the
// business manager. A target already confirmed by p is a replay.
func (d *Dispatcher) confirmTarget(
	ctx context.Context,
	tx *sql.Tx,
	p *domain.Payment,
	t lockedTarget,
	confirm func() error,
	state domain.SettlementState,
	description string,
) (*Outcome, error) {
	out := &Outcome{
		Payment:  p,
		State:    state,
		TargetID: uuid.NullUUID{UUID: t.ID, Valid: true},
	}

	if t.Confirmed && t.PaymentID.Valid && t.PaymentID.UUID == p.ID {
		managerID, err := d.businesses.ResolveManager(ctx, tx, t.BusinessID)
		if err != nil {
			return nil, fmt.Errorf("confirmTarget: %w", err)
		}
		out.ManagerID = managerID
		out.Replayed = true
		return out, nil
	}

	if !t.Pending || t.PaymentID.Valid {
		return nil, fmt.Errorf("confirmTarget: %s: %w", description, domain.ErrTargetNotSettleable)
	}

	if err := confirm(); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return nil, fmt.Errorf("confirmTarget: %s: %w", description, domain.ErrTargetNotSettleable)
		}
		return nil, fmt.Errorf("confirmTarget: %w", err)
	}

	managerID, err := d.businesses.ResolveManager(ctx, tx, t.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("confirmTarget: %w", err)
	}
	out.ManagerID = managerID

	if !managerID.Valid {
		return out, nil
	}

	credit, err := d.ledger.Credit(ctx, tx, managerID.UUID, p.Amount, p.Reference, "payment for "+description)
	if err != nil {
		return nil, fmt.Errorf("confirmTarget: %w", err)
	}
	out.Credit = credit
	return out, nil
}

func targetLookupErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrSettlementTargetNotFound
	}
	return err
}
