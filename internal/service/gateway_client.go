package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/logging"
	"github.com/josh-kwaku/paysettle/internal/service/settlement"
)

type GatewayClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewGatewayClient(baseURL, secretKey string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type gatewayEnvelope struct {
	Status  bool                `json:"status"`
	Message string              `json:"message"`
	Data    *gatewayTransaction `json:"data"`
}

type gatewayTransaction struct {
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    *time.Time      `json:"paid_at"`
	Metadata  json.RawMessage `json:"metadata"`
}

// Verify asks the gateway for the state of reference. Transport, timeout and
// decode failures map to ErrGatewayUnavailable; any non-2xx answer is a failed
// verification and maps to ErrGatewayDeclined. The returned amount is in major
// units.
func (c *GatewayClient) Verify(ctx context.Context, reference string) (*settlement.Verification, error) {
	if reference == "" {
		return nil, fmt.Errorf("Verify: empty reference: %w", domain.ErrInvalidRequest)
	}
	log := logging.FromContext(ctx)

	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("Verify: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	log.Info("gateway request sent", "gateway", "paystack", "reference", reference)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Verify: send: %v: %w", err, domain.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	log.Info("gateway response received",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("Verify: unexpected status %d: %s: %w", resp.StatusCode, string(respBody), domain.ErrGatewayDeclined)
	}

	var envelope gatewayEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("Verify: decode: %v: %w", err, domain.ErrGatewayUnavailable)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("Verify: %s: %w", envelope.Message, domain.ErrGatewayDeclined)
	}

	tx := envelope.Data
	return &settlement.Verification{
		Status:    tx.Status,
		Amount:    decimal.New(tx.Amount, -2),
		Currency:  tx.Currency,
		Reference: tx.Reference,
		Metadata:  tx.Metadata,
		PaidAt:    tx.PaidAt,
	}, nil
}
