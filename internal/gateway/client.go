package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prameswara/medibook/config"
	"github.com/prameswara/medibook/internal/domain"
	"go.uber.org/zap"
)

// Status is the gateway's view of an order. PENDING is the only
// non-terminal value.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
	StatusExpired Status = "EXPIRED"
)

// Session is the gateway's answer to a create call. ExpiresAt is the
// gateway's own deadline and is treated as authoritative downstream.
type Session struct {
	Handle    string    `json:"handle"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Client struct {
	baseURL     string
	apiKey      string
	http        *http.Client
	maxAttempts int
	logger      *zap.Logger
}

func NewClient(cfg config.GatewayConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		http:        &http.Client{Timeout: cfg.RequestTimeout()},
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
	}
}

type createSessionRequest struct {
	OrderID        string `json:"order_id"`
	Amount         int64  `json:"amount"`
	ExpiryHintSecs int64  `json:"expiry_hint_seconds"`
}

// CreateSession registers an order with the gateway and returns the
// payment handle plus the gateway's expiry instant.
func (c *Client) CreateSession(ctx context.Context, orderID string, amount int64, expiryHint time.Duration) (*Session, error) {
	body, err := json.Marshal(createSessionRequest{OrderID: orderID, Amount: amount, ExpiryHintSecs: int64(expiryHint.Seconds())})
	if err != nil {
		return nil, err
	}

	var session Session
	err = c.doWithRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(body))
		if err != nil {
			return err
		}
		return c.send(req, &session)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

type statusResponse struct {
	Status Status `json:"status"`
}

// GetStatus is an idempotent read of the order's payment status, safe to
// call as often as the reconciler likes.
func (c *Client) GetStatus(ctx context.Context, orderID string) (Status, error) {
	var resp statusResponse
	err := c.doWithRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions/"+orderID, nil)
		if err != nil {
			return err
		}
		return c.send(req, &resp)
	})
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *Client) send(req *http.Request, out interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// doWithRetry runs fn up to maxAttempts times with an incremental pause.
// A timed-out or failing call is retried rather than treated as a FAILED
// payment; exhausting the attempts surfaces ErrGatewayUnavailable.
func (c *Client) doWithRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for i := 0; i < c.maxAttempts; i++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		c.logger.Warn("gateway call failed", zap.Int("attempt", i+1), zap.Error(err))

		if i < c.maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
			}
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, lastErr)
}
