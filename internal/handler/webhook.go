package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/logging"
	"github.com/josh-kwaku/paysettle/internal/repository"
)

const gatewaySignatureHeader = "X-Paystack-Signature"

type webhookEventRepository interface {
	Create(ctx context.Context, event *domain.WebhookEvent) error
}

type WebhookHandler struct {
	webhooks webhookEventRepository
	secret   string
}

func NewWebhookHandler(webhooks webhookEventRepository, secret string) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, secret: secret}
}

func validateGatewayWebhook(p domain.GatewayWebhook) []FieldError {
	var errs []FieldError

	if p.Event == "" {
		errs = append(errs, FieldError{Field: "event", Message: "required"})
	}
	if p.Event == string(domain.WebhookEventTypeChargeSuccess) && p.Data.Reference == "" {
		errs = append(errs, FieldError{Field: "data.reference", Message: "required"})
	}

	return errs
}

// ReceiveGatewayWebhook stores signed charge.success events for the webhook
// processor. Other event types are acknowledged and dropped.
func (h *WebhookHandler) ReceiveGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	sig := r.Header.Get(gatewaySignatureHeader)
	if !verifyHMAC(body, sig, h.secret) {
		log.Warn("webhook signature verification failed")
		RespondAppError(w, ErrInvalidSignature, nil)
		return
	}

	var payload domain.GatewayWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn("failed to parse webhook payload", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := validateGatewayWebhook(payload); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if payload.Event != string(domain.WebhookEventTypeChargeSuccess) {
		log.Info("ignoring gateway webhook", "event", payload.Event)
		RespondSuccess(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	event := &domain.WebhookEvent{
		ID:             uuid.New(),
		IdempotencyKey: payload.Event + ":" + payload.Data.Reference,
		EventType:      domain.WebhookEventTypeChargeSuccess,
		Payload:        body,
		Status:         domain.WebhookEventStatusPending,
		CreatedAt:      time.Now().UTC(),
	}

	if err := h.webhooks.Create(r.Context(), event); err != nil {
		if repository.IsDuplicateKey(err) {
			log.Info("duplicate webhook received", "reference", payload.Data.Reference)
			RespondSuccess(w, http.StatusOK, map[string]string{"status": "already_received"})
			return
		}
		log.Error("failed to store webhook event", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	log.Info("webhook event stored",
		"webhook_event_id", event.ID,
		"reference", payload.Data.Reference,
		"event_type", event.EventType,
	)

	RespondSuccess(w, http.StatusOK, map[string]string{"status": "received"})
}

func verifyHMAC(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
