package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/logging"
	"github.com/josh-kwaku/paysettle/internal/service/settlement"
)

// webhookMaxAttempts bounds retries of events that failed on a gateway outage.
const webhookMaxAttempts = 5

type webhookRepo interface {
	ClaimPending(ctx context.Context, limit int) ([]domain.WebhookEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.WebhookEventStatus) error
}

type paymentVerifier interface {
	Verify(ctx context.Context, req settlement.VerifyRequest) (*settlement.Outcome, error)
}

// WebhookProcessor drains stored gateway webhooks through the same
// verification pipeline the HTTP endpoint uses.
type WebhookProcessor struct {
	webhooks  webhookRepo
	verifier  paymentVerifier
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewWebhookProcessor(
	webhooks webhookRepo,
	verifier paymentVerifier,
	logger *slog.Logger,
	interval time.Duration,
	batchSize int,
) *WebhookProcessor {
	return &WebhookProcessor{
		webhooks:  webhooks,
		verifier:  verifier,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (p *WebhookProcessor) Start(ctx context.Context) {
	p.logger.Info("webhook processor started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("webhook processor stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *WebhookProcessor) poll(ctx context.Context) {
	events, err := p.webhooks.ClaimPending(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to claim pending webhook events", "error", err)
		return
	}

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error("failed to process webhook event",
				"webhook_event_id", event.ID,
				"error", err,
			)
		}
	}
}

func (p *WebhookProcessor) processEvent(ctx context.Context, event domain.WebhookEvent) error {
	var payload domain.GatewayWebhook
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		p.logger.Error("malformed webhook payload", "webhook_event_id", event.ID, "error", err)
		return p.webhooks.UpdateStatus(ctx, event.ID, domain.WebhookEventStatusFailed)
	}

	req, err := chargeVerifyRequest(payload.Data)
	if err != nil {
		p.logger.Warn("webhook charge has no usable purpose",
			"webhook_event_id", event.ID,
			"reference", payload.Data.Reference,
			"error", err,
		)
		return p.webhooks.UpdateStatus(ctx, event.ID, domain.WebhookEventStatusFailed)
	}

	ctx = logging.WithLogger(ctx, p.logger.With("webhook_event_id", event.ID))
	out, err := p.verifier.Verify(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrGatewayUnavailable) && event.Attempts+1 < webhookMaxAttempts {
			p.logger.Warn("gateway unavailable, webhook event requeued",
				"webhook_event_id", event.ID,
				"attempt", event.Attempts+1,
			)
			return p.webhooks.UpdateStatus(ctx, event.ID, domain.WebhookEventStatusPending)
		}
		if statusErr := p.webhooks.UpdateStatus(ctx, event.ID, domain.WebhookEventStatusFailed); statusErr != nil {
			return fmt.Errorf("processEvent: %w", statusErr)
		}
		return fmt.Errorf("processEvent: %w", err)
	}

	p.logger.Info("webhook charge settled",
		"webhook_event_id", event.ID,
		"reference", out.Payment.Reference,
		"state", out.State,
		"replayed", out.Replayed,
	)
	return p.webhooks.UpdateStatus(ctx, event.ID, domain.WebhookEventStatusDispatched)
}

// chargeVerifyRequest reads the purpose from the charge metadata. The charged
// amount stands in for the declared one; the gateway is asked again anyway.
func chargeVerifyRequest(data domain.GatewayWebhookData) (settlement.VerifyRequest, error) {
	var meta domain.PaymentMetadata
	if len(data.Metadata) > 0 {
		if err := json.Unmarshal(data.Metadata, &meta); err != nil {
			return settlement.VerifyRequest{}, fmt.Errorf("chargeVerifyRequest: metadata: %v: %w", err, domain.ErrInvalidPurpose)
		}
	}

	purpose, err := meta.ToPurpose(decimal.New(data.Amount, -2))
	if err != nil {
		return settlement.VerifyRequest{}, fmt.Errorf("chargeVerifyRequest: %w", err)
	}

	req := settlement.VerifyRequest{
		Reference: data.Reference,
		Purpose:   purpose,
		Actor:     "webhook",
	}
	if id, err := uuid.Parse(meta.UserID); err == nil {
		req.UserID = uuid.NullUUID{UUID: id, Valid: true}
	}
	return req, nil
}
