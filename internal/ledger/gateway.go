package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/wakefi/wakefid/internal/config"
)

// GatewayClient talks HTTP/JSON to a Hedera-style schedule gateway.
type GatewayClient struct {
	baseURL     string
	operatorID  string
	operatorKey string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewGatewayClient creates a schedule gateway client. It fails fast when the
// operator credentials are absent so misconfiguration surfaces at startup,
// not on the first arm or, worse, the first cancel.
func NewGatewayClient(cfg config.LedgerConfig, logger *slog.Logger) (*GatewayClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OperatorID == "" || cfg.OperatorKey == "" {
		return nil, fmt.Errorf("%w: operator account and key must be configured", ErrCredential)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GatewayClient{
		baseURL:     strings.TrimRight(cfg.GatewayURL, "/"),
		operatorID:  cfg.OperatorID,
		operatorKey: cfg.OperatorKey,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

type createScheduleRequest struct {
	PayerAccount  string  `json:"payer_account"`
	ToAccount     string  `json:"to_account"`
	Amount        float64 `json:"amount"`
	ExecuteAt     string  `json:"execute_at"`
	Memo          string  `json:"memo,omitempty"`
	WaitForExpiry bool    `json:"wait_for_expiry"`
}

type scheduleResponse struct {
	ScheduleID string `json:"schedule_id"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

// CreateScheduledTransfer registers a self-executing transfer with the gateway.
func (c *GatewayClient) CreateScheduledTransfer(ctx context.Context, t ScheduledTransfer) (string, error) {
	body := createScheduleRequest{
		PayerAccount:  t.FromAccount,
		ToAccount:     t.ToAccount,
		Amount:        t.Amount,
		ExecuteAt:     t.ExecuteAt.UTC().Format(time.RFC3339),
		Memo:          t.Memo,
		WaitForExpiry: true,
	}

	var resp scheduleResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/schedules", body, &resp); err != nil {
		return "", err
	}
	if resp.ScheduleID == "" {
		return "", fmt.Errorf("%w: gateway returned empty schedule id", ErrUnavailable)
	}

	c.logger.Info("Scheduled transfer created",
		"schedule_id", resp.ScheduleID,
		"execute_at", body.ExecuteAt,
		"memo", t.Memo)
	return resp.ScheduleID, nil
}

// DeleteScheduledTransfer cancels a schedule. The gateway's verdict is final.
func (c *GatewayClient) DeleteScheduledTransfer(ctx context.Context, ref string) error {
	if ref == "" {
		return fmt.Errorf("%w: empty schedule reference", ErrNotFound)
	}

	err := c.do(ctx, http.MethodDelete, "/api/v1/schedules/"+ref, nil, nil)
	if err != nil {
		return err
	}

	c.logger.Info("Scheduled transfer deleted", "schedule_id", ref)
	return nil
}

func (c *GatewayClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode gateway request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Operator-Account", c.operatorID)
	req.Header.Set("Authorization", "Bearer "+c.operatorKey)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		// Network error or timeout: remote state is unknown. Callers must not
		// guess; cancel in particular is never blindly retried.
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close gateway response body", "error", closeErr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if httpResp.StatusCode >= 400 {
		return c.mapError(httpResp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
	}
	return nil
}

// mapError translates gateway status codes into the package's error taxonomy.
// The body carries a Hedera-style status string when the HTTP code alone is
// ambiguous.
func (c *GatewayClient) mapError(code int, raw []byte) error {
	var resp scheduleResponse
	_ = json.Unmarshal(raw, &resp)

	switch resp.Status {
	case "SCHEDULE_ALREADY_EXECUTED":
		return ErrAlreadyExecuted
	case "SCHEDULE_ALREADY_DELETED":
		return ErrAlreadyCancelled
	case "INVALID_SCHEDULE_ID":
		return ErrNotFound
	case "INVALID_SIGNATURE", "UNAUTHORIZED":
		return ErrCredential
	}

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrCredential
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrAlreadyExecuted
	case code == http.StatusGone:
		return ErrAlreadyCancelled
	default:
		return fmt.Errorf("%w: gateway status %d: %s", ErrUnavailable, code, resp.Message)
	}
}
