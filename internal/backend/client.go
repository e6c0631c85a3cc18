// Package backend is the REST client for the booking backend's device
// token registration endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

const tokensPath = "/device-tokens"

// Client registers and revokes device tokens. Transport errors and 5xx
// responses get a bounded exponential-backoff retry; 4xx responses are
// permanent. Callers treat any returned error as non-fatal — the next
// token refresh or login retries registration naturally.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	// MaxRetries and RetryInterval tune the bounded retry. Defaults
	// suit production; tests shrink them.
	MaxRetries    uint64
	RetryInterval time.Duration
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		logger:        logger.With("component", "BackendClient"),
		MaxRetries:    3,
		RetryInterval: 500 * time.Millisecond,
	}
}

type registerRequest struct {
	UserID     string `json:"user_id"`
	UserType   string `json:"user_type"`
	Token      string `json:"token"`
	DeviceInfo string `json:"device_info"`
}

type unregisterRequest struct {
	Token string `json:"token"`
}

// Register binds the token to the user on the backend.
func (c *Client) Register(ctx context.Context, reg agent.TokenRegistration) error {
	body := registerRequest{
		UserID:     reg.UserID.String(),
		UserType:   string(reg.UserType),
		Token:      reg.Token,
		DeviceInfo: reg.DeviceInfo,
	}
	return c.send(ctx, http.MethodPost, body)
}

// Unregister revokes the token's backend registration.
func (c *Client) Unregister(ctx context.Context, token string) error {
	return c.send(ctx, http.MethodDelete, unregisterRequest{Token: token})
}

func (c *Client) send(ctx context.Context, method string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+tokensPath, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("backend transport failed: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("backend returned %d", resp.StatusCode)
		default:
			// Client errors will not heal by retrying.
			return backoff.Permanent(fmt.Errorf("backend rejected request: %d", resp.StatusCode))
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.RetryInterval

	err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.MaxRetries), ctx))
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, tokensPath, err)
	}
	return nil
}
