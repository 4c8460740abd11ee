package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// PayoutRequest is what the wallet service receives for one commerce claim.
// ClaimID doubles as the idempotency key on the wallet side.
type PayoutRequest struct {
	ClaimID      string          `json:"claim_id"`
	RespondentID string          `json:"respondent_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

// PayoutSender delivers claimed commerce rewards.
type PayoutSender interface {
	SendPayout(ctx context.Context, req PayoutRequest) error
}

type WalletClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewWalletClient(baseURL, token string) *WalletClient {
	return &WalletClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendPayout calls POST /api/v1/payouts on the wallet service.
func (c *WalletClient) SendPayout(ctx context.Context, req PayoutRequest) error {
	url := fmt.Sprintf("%s/api/v1/payouts", c.BaseURL)

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Service-Token", c.Token)
	httpReq.Header.Set("Idempotency-Key", req.ClaimID)

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("wallet service request failed: %w", err)
	}
	defer resp.Body.Close()

	// 409 means the wallet already has this claim.
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated ||
		resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusConflict {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("wallet service returned %d: %s", resp.StatusCode, string(msg))
}
