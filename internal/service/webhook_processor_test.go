package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/repository"
	"github.com/josh-kwaku/paysettle/internal/service/settlement"
	"github.com/josh-kwaku/paysettle/internal/testutil"
)

type fakeWebhookRepo struct {
	mu       sync.Mutex
	pending  []domain.WebhookEvent
	statuses map[uuid.UUID]domain.WebhookEventStatus
}

func newFakeWebhookRepo(events ...domain.WebhookEvent) *fakeWebhookRepo {
	return &fakeWebhookRepo{pending: events, statuses: make(map[uuid.UUID]domain.WebhookEventStatus)}
}

func (r *fakeWebhookRepo) ClaimPending(_ context.Context, limit int) ([]domain.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := min(limit, len(r.pending))
	claimed := r.pending[:n]
	r.pending = r.pending[n:]
	return claimed, nil
}

func (r *fakeWebhookRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.WebhookEventStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id] = status
	return nil
}

func (r *fakeWebhookRepo) status(id uuid.UUID) domain.WebhookEventStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[id]
}

type fakeVerifier struct {
	mu   sync.Mutex
	reqs []settlement.VerifyRequest
	err  error
}

func (v *fakeVerifier) Verify(_ context.Context, req settlement.VerifyRequest) (*settlement.Outcome, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reqs = append(v.reqs, req)
	if v.err != nil {
		return nil, v.err
	}
	return &settlement.Outcome{
		Payment: &domain.Payment{Reference: req.Reference},
		State:   domain.StateOrderConfirmed,
	}, nil
}

func chargeEvent(t *testing.T, reference string, amount int64, metadata string, attempts int) domain.WebhookEvent {
	t.Helper()

	payload, err := json.Marshal(domain.GatewayWebhook{
		Event: string(domain.WebhookEventTypeChargeSuccess),
		Data: domain.GatewayWebhookData{
			Reference: reference,
			Status:    "success",
			Amount:    amount,
			Currency:  "NGN",
			Metadata:  json.RawMessage(metadata),
		},
	})
	require.NoError(t, err)

	return domain.WebhookEvent{
		ID:             uuid.New(),
		IdempotencyKey: "charge.success:" + reference,
		EventType:      domain.WebhookEventTypeChargeSuccess,
		Payload:        payload,
		Status:         domain.WebhookEventStatusProcessing,
		Attempts:       attempts,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestProcessEvent_DispatchesCharge(t *testing.T) {
	orderID := uuid.New()
	userID := uuid.New()
	event := chargeEvent(t, "ref-wh",
		150000,
		fmt.Sprintf(`{"purpose":"ORDER","orderId":%q,"userId":%q}`, orderID, userID),
		0,
	)

	repo := newFakeWebhookRepo()
	verifier := &fakeVerifier{}
	p := NewWebhookProcessor(repo, verifier, slog.Default(), time.Second, 10)

	require.NoError(t, p.processEvent(context.Background(), event))

	assert.Equal(t, domain.WebhookEventStatusDispatched, repo.status(event.ID))
	require.Len(t, verifier.reqs, 1)
	req := verifier.reqs[0]
	assert.Equal(t, "ref-wh", req.Reference)
	assert.Equal(t, "webhook", req.Actor)
	assert.Equal(t, domain.OrderPurpose{OrderID: orderID}, req.Purpose)
	assert.Equal(t, uuid.NullUUID{UUID: userID, Valid: true}, req.UserID)
}

func TestProcessEvent_AccessKeyUsesChargedAmount(t *testing.T) {
	event := chargeEvent(t, "ref-key", 500050, `{"purpose":"ACCESS_KEY"}`, 0)

	repo := newFakeWebhookRepo()
	verifier := &fakeVerifier{}
	p := NewWebhookProcessor(repo, verifier, slog.Default(), time.Second, 10)

	require.NoError(t, p.processEvent(context.Background(), event))

	require.Len(t, verifier.reqs, 1)
	purpose, ok := verifier.reqs[0].Purpose.(domain.AccessKeyPurpose)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("5000.50").Equal(purpose.DeclaredAmount))
	assert.False(t, verifier.reqs[0].UserID.Valid)
}

func TestProcessEvent_Failures(t *testing.T) {
	tests := []struct {
		name         string
		payload      json.RawMessage
		metadata     string
		attempts     int
		verifyErr    error
		wantStatus   domain.WebhookEventStatus
		wantErr      bool
		wantVerified bool
	}{
		{
			name:       "malformed payload",
			payload:    json.RawMessage(`not-json`),
			metadata:   `{}`,
			wantStatus: domain.WebhookEventStatusFailed,
		},
		{
			name:       "missing purpose",
			metadata:   `{}`,
			wantStatus: domain.WebhookEventStatusFailed,
		},
		{
			name:       "booking without id",
			metadata:   `{"purpose":"BOOKING"}`,
			wantStatus: domain.WebhookEventStatusFailed,
		},
		{
			name:         "gateway outage is retried",
			metadata:     `{"purpose":"ACCESS_KEY"}`,
			verifyErr:    fmt.Errorf("verify: %w", domain.ErrGatewayUnavailable),
			wantStatus:   domain.WebhookEventStatusPending,
			wantVerified: true,
		},
		{
			name:         "gateway outage on last attempt fails",
			metadata:     `{"purpose":"ACCESS_KEY"}`,
			attempts:     webhookMaxAttempts - 1,
			verifyErr:    fmt.Errorf("verify: %w", domain.ErrGatewayUnavailable),
			wantStatus:   domain.WebhookEventStatusFailed,
			wantErr:      true,
			wantVerified: true,
		},
		{
			name:         "settlement error fails",
			metadata:     `{"purpose":"ACCESS_KEY"}`,
			verifyErr:    fmt.Errorf("verify: %w", domain.ErrSettlementTargetNotFound),
			wantStatus:   domain.WebhookEventStatusFailed,
			wantErr:      true,
			wantVerified: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			event := chargeEvent(t, "ref-"+uuid.NewString(), 1000, tc.metadata, tc.attempts)
			if tc.payload != nil {
				event.Payload = tc.payload
			}

			repo := newFakeWebhookRepo()
			verifier := &fakeVerifier{err: tc.verifyErr}
			p := NewWebhookProcessor(repo, verifier, slog.Default(), time.Second, 10)

			err := p.processEvent(context.Background(), event)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantStatus, repo.status(event.ID))
			assert.Equal(t, tc.wantVerified, len(verifier.reqs) == 1)
		})
	}
}

func TestWebhookProcessor_StartDrainsUntilCancelled(t *testing.T) {
	events := []domain.WebhookEvent{
		chargeEvent(t, "ref-1", 1000, `{"purpose":"ACCESS_KEY"}`, 0),
		chargeEvent(t, "ref-2", 1000, `{"purpose":"ACCESS_KEY"}`, 0),
		chargeEvent(t, "ref-3", 1000, `{"purpose":"ACCESS_KEY"}`, 0),
	}
	repo := newFakeWebhookRepo(events...)
	p := NewWebhookProcessor(repo, &fakeVerifier{}, slog.Default(), 10*time.Millisecond, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		for _, e := range events {
			if repo.status(e.ID) != domain.WebhookEventStatusDispatched {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop after cancel")
	}
}

func TestWebhookEventRepository_ClaimPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewWebhookEventRepository(db)
	ctx := context.Background()

	first := chargeEvent(t, "ref-a", 1000, `{"purpose":"ACCESS_KEY"}`, 0)
	first.Status = domain.WebhookEventStatusPending
	second := chargeEvent(t, "ref-b", 1000, `{"purpose":"ACCESS_KEY"}`, 0)
	second.Status = domain.WebhookEventStatusPending
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Create(ctx, &first))
	require.NoError(t, repo.Create(ctx, &second))

	claimed, err := repo.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, first.ID, claimed[0].ID)
	assert.Equal(t, domain.WebhookEventStatusProcessing, claimed[0].Status)

	claimed, err = repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, second.ID, claimed[0].ID)

	claimed, err = repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, domain.WebhookEventStatusPending))
	claimed, err = repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, 1, claimed[0].Attempts)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New(), domain.WebhookEventStatusFailed), domain.ErrNotFound)
}
