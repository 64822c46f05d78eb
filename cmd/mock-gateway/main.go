package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	env "github.com/caarlos0/env/v11"

	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/logging"
)

type config struct {
	Port       int    `env:"PORT" envDefault:"8081"`
	SecretKey  string `env:"GATEWAY_SECRET_KEY" envDefault:"sk_test_local"`
	WebhookURL string `env:"WEBHOOK_URL"`
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
}

type transaction struct {
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

type gateway struct {
	cfg        config
	httpClient *http.Client

	mu           sync.RWMutex
	transactions map[string]transaction
}

func main() {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Init("mock-gateway", "info", cfg.AppEnv)

	g := &gateway{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		transactions: make(map[string]transaction),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /transaction/verify/{reference}", g.verify)
	mux.HandleFunc("POST /transactions", g.create)

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("mock gateway started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func (g *gateway) verify(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+g.cfg.SecretKey {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"status": false, "message": "Invalid key"})
		return
	}

	reference := r.PathValue("reference")
	g.mu.RLock()
	tx, ok := g.transactions[reference]
	g.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": false, "message": "Transaction reference not found"})
		return
	}

	slog.Info("verification served", "reference", reference, "status", tx.Status)
	writeJSON(w, http.StatusOK, map[string]any{"status": true, "message": "Verification successful", "data": tx})
}

// create registers a transaction. Successful ones are also pushed to
// WEBHOOK_URL as a signed charge.success event when configured.
func (g *gateway) create(w http.ResponseWriter, r *http.Request) {
	var tx transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil || tx.Reference == "" || tx.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": false, "message": "reference and positive amount required"})
		return
	}
	if tx.Status == "" {
		tx.Status = domain.GatewayStatusSuccess
	}
	if tx.Currency == "" {
		tx.Currency = "NGN"
	}
	if tx.Status == domain.GatewayStatusSuccess && tx.PaidAt == nil {
		now := time.Now().UTC()
		tx.PaidAt = &now
	}

	g.mu.Lock()
	g.transactions[tx.Reference] = tx
	g.mu.Unlock()

	slog.Info("transaction registered", "reference", tx.Reference, "amount", tx.Amount, "status", tx.Status)

	if g.cfg.WebhookURL != "" && tx.Status == domain.GatewayStatusSuccess {
		go g.sendWebhook(tx)
	}

	writeJSON(w, http.StatusCreated, map[string]any{"status": true, "data": tx})
}

func (g *gateway) sendWebhook(tx transaction) {
	body, err := json.Marshal(domain.GatewayWebhook{
		Event: string(domain.WebhookEventTypeChargeSuccess),
		Data: domain.GatewayWebhookData{
			ID:        time.Now().UnixNano(),
			Reference: tx.Reference,
			Status:    tx.Status,
			Amount:    tx.Amount,
			Currency:  tx.Currency,
			Metadata:  tx.Metadata,
		},
	})
	if err != nil {
		slog.Error("failed to marshal webhook", "error", err)
		return
	}

	mac := hmac.New(sha512.New, []byte(g.cfg.SecretKey))
	mac.Write(body)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		slog.Error("failed to build webhook request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Paystack-Signature", hex.EncodeToString(mac.Sum(nil)))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		slog.Warn("webhook delivery failed", "reference", tx.Reference, "error", err)
		return
	}
	defer resp.Body.Close()

	slog.Info("webhook delivered", "reference", tx.Reference, "status", resp.StatusCode)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
