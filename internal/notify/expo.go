package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ExpoSender posts notifications to the Expo push service.
type ExpoSender struct {
	url         string
	accessToken string
	httpClient  *http.Client
}

func NewExpoSender(url, accessToken string, timeout time.Duration) *ExpoSender {
	return &ExpoSender{
		url:         url,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type expoMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound"`
}

type expoResponse struct {
	Data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"data"`
}

func (s *ExpoSender) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(expoMessage{
		To:    n.Destination,
		Title: n.Title,
		Body:  n.Body,
		Data:  n.Data,
		Sound: "default",
	})
	if err != nil {
		return fmt.Errorf("Send: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("Send: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Send: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Send: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var ticket expoResponse
	if err := json.Unmarshal(respBody, &ticket); err != nil {
		return fmt.Errorf("Send: decode: %w", err)
	}
	if ticket.Data.Status == "error" {
		return fmt.Errorf("Send: rejected: %s", ticket.Data.Message)
	}
	return nil
}
