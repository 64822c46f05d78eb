package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/logging"
	"github.com/josh-kwaku/paysettle/internal/notify"
)

type gatewayClient interface {
	Verify(ctx context.Context, reference string) (*Verification, error)
}

type recorder interface {
	Record(ctx context.Context, params RecordParams) (*domain.Payment, error)
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)
	ClaimOwner(ctx context.Context, p *domain.Payment, userID uuid.UUID) (*domain.Payment, error)
}

type settler interface {
	Settle(ctx context.Context, p *domain.Payment, purpose domain.Purpose) (*Outcome, error)
}

type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type notifier interface {
	Notify(ctx context.Context, n notify.Notification)
}

type walletCache interface {
	Invalidate(ctx context.Context, managerID uuid.UUID) error
}

type eventPublisher interface {
	Publish(ctx context.Context, topic, key string, message any) error
}

type VerifyRequest struct {
	Reference string
	Purpose   domain.Purpose
	// UserID is the authenticated caller, invalid for gateway webhooks.
	UserID uuid.NullUUID
	Actor  string
}

// SettledEvent is published once per payment after its first successful
// settlement.
type SettledEvent struct {
	PaymentID uuid.UUID              `json:"payment_id"`
	Reference string                 `json:"reference"`
	Purpose   domain.PurposeKind     `json:"purpose"`
	TargetID  *uuid.UUID             `json:"target_id,omitempty"`
	Amount    decimal.Decimal        `json:"amount"`
	Currency  string                 `json:"currency"`
	ManagerID *uuid.UUID             `json:"manager_id,omitempty"`
	State     domain.SettlementState `json:"state"`
	SettledAt time.Time              `json:"settled_at"`
}

type Service struct {
	gateway      gatewayClient
	records      recorder
	dispatcher   settler
	users        userRepo
	notifier     notifier
	wallets      walletCache
	publisher    eventPublisher
	settledTopic string

	wg sync.WaitGroup
}

func NewService(
	gateway gatewayClient,
	records recorder,
	dispatcher settler,
	users userRepo,
	notifier notifier,
	wallets walletCache,
	publisher eventPublisher,
	settledTopic string,
) *Service {
	return &Service{
		gateway:      gateway,
		records:      records,
		dispatcher:   dispatcher,
		users:        users,
		notifier:     notifier,
		wallets:      wallets,
		publisher:    publisher,
		settledTopic: settledTopic,
	}
}

// Verify confirms reference with the gateway, records it and settles it.
// A reference that was already recorded is not sent to the gateway again;
// its settlement is replayed and the original outcome returned.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*Outcome, error) {
	if req.Reference == "" {
		return nil, fmt.Errorf("Verify: reference required: %w", domain.ErrInvalidRequest)
	}
	if req.Purpose == nil {
		return nil, fmt.Errorf("Verify: %w", domain.ErrInvalidPurpose)
	}

	ctx = logging.With(ctx, "reference", req.Reference, "purpose", req.Purpose.Kind())
	log := logging.FromContext(ctx)

	existing, err := s.records.GetByReference(ctx, req.Reference)
	switch {
	case err == nil:
		log.Info("reference already recorded, replaying settlement", "payment_id", existing.ID)
		return s.replay(ctx, existing, req)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("Verify: %w", err)
	}

	v, err := s.gateway.Verify(ctx, req.Reference)
	if err != nil {
		return nil, fmt.Errorf("Verify: %w", err)
	}
	if !v.Succeeded() {
		log.Info("gateway reported unsuccessful payment", "gateway_status", v.Status)
		return nil, fmt.Errorf("Verify: gateway status %q: %w", v.Status, domain.ErrGatewayDeclined)
	}
	if v.Reference != "" && v.Reference != req.Reference {
		return nil, fmt.Errorf("Verify: gateway answered for %q: %w", v.Reference, domain.ErrGatewayDeclined)
	}

	p, err := s.records.Record(ctx, RecordParams{
		Reference: req.Reference,
		Amount:    v.Amount,
		Currency:  v.Currency,
		Status:    v.Status,
		Purpose:   req.Purpose,
		UserID:    req.UserID,
		Metadata:  v.Metadata,
		Actor:     req.Actor,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			existing, lookupErr := s.records.GetByReference(ctx, req.Reference)
			if lookupErr != nil {
				return nil, fmt.Errorf("Verify: %w", lookupErr)
			}
			log.Info("lost race to record reference, replaying settlement", "payment_id", existing.ID)
			return s.replay(ctx, existing, req)
		}
		return nil, fmt.Errorf("Verify: %w", err)
	}

	out, err := s.dispatcher.Settle(ctx, p, req.Purpose)
	if err != nil {
		return nil, fmt.Errorf("Verify: %w", err)
	}

	s.afterSettle(ctx, out)
	return out, nil
}

// replay settles an already recorded payment. The request must describe the
// same purpose and target the payment was recorded for. A payment recorded
// without an owner, as from a webhook, is bound to the first authenticated
// caller; later callers must match that owner.
func (s *Service) replay(ctx context.Context, p *domain.Payment, req VerifyRequest) (*Outcome, error) {
	if p.Purpose != req.Purpose.Kind() || p.TargetID != req.Purpose.Target() {
		return nil, fmt.Errorf("replay: recorded for %s: %w", p.Purpose, domain.ErrReferenceConflict)
	}
	if req.UserID.Valid && !p.UserID.Valid {
		claimed, err := s.records.ClaimOwner(ctx, p, req.UserID.UUID)
		if err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		p = claimed
	}
	if req.UserID.Valid && p.UserID.Valid && req.UserID.UUID != p.UserID.UUID {
		return nil, fmt.Errorf("replay: recorded for another user: %w", domain.ErrReferenceConflict)
	}

	out, err := s.dispatcher.Settle(ctx, p, req.Purpose)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	// A previous attempt may have recorded the payment but failed to settle
	// it, in which case this call did the settling.
	s.afterSettle(ctx, out)
	return out, nil
}

// afterSettle runs the side effects of a committed first-time settlement.
// None of them can fail the settlement.
func (s *Service) afterSettle(ctx context.Context, out *Outcome) {
	if out.Replayed {
		return
	}
	log := logging.FromContext(ctx)

	if out.Credit != nil && out.ManagerID.Valid {
		if err := s.wallets.Invalidate(ctx, out.ManagerID.UUID); err != nil {
			log.Warn("wallet cache invalidation failed", "manager_id", out.ManagerID.UUID, "error", err)
		}
	}

	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if out.State == domain.StateOrderConfirmed {
			s.notifyManager(bg, out)
		}
		s.publishSettled(bg, out)
	}()
}

func (s *Service) notifyManager(ctx context.Context, out *Outcome) {
	log := logging.FromContext(ctx)
	if !out.ManagerID.Valid {
		log.Info("order has no manager to notify", "target_id", out.TargetID.UUID)
		return
	}

	manager, err := s.users.GetByID(ctx, out.ManagerID.UUID)
	if err != nil {
		log.Warn("manager lookup for notification failed", "manager_id", out.ManagerID.UUID, "error", err)
		return
	}
	if manager.PushToken == nil || *manager.PushToken == "" {
		log.Info("manager has no push token", "manager_id", manager.ID)
		return
	}

	s.notifier.Notify(ctx, notify.Notification{
		Destination: *manager.PushToken,
		Title:       "New paid order",
		Body:        fmt.Sprintf("An order was paid: %s %s", out.Payment.Amount.StringFixed(2), out.Payment.Currency),
		Data: map[string]string{
			"type":      "order_paid",
			"orderId":   out.TargetID.UUID.String(),
			"reference": out.Payment.Reference,
		},
	})
}

func (s *Service) publishSettled(ctx context.Context, out *Outcome) {
	p := out.Payment
	event := SettledEvent{
		PaymentID: p.ID,
		Reference: p.Reference,
		Purpose:   p.Purpose,
		Amount:    p.Amount,
		Currency:  p.Currency,
		State:     out.State,
		SettledAt: time.Now().UTC(),
	}
	if out.TargetID.Valid {
		event.TargetID = &out.TargetID.UUID
	}
	if out.ManagerID.Valid {
		event.ManagerID = &out.ManagerID.UUID
	}

	if err := s.publisher.Publish(ctx, s.settledTopic, p.Reference, event); err != nil {
		logging.FromContext(ctx).Error("settlement event not published", "payment_id", p.ID, "error", err)
	}
}

// Wait blocks until post-settlement side effects started so far finish.
func (s *Service) Wait() {
	s.wg.Wait()
}
