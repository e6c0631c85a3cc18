// Package bridge is the HTTP client for the on-device companion
// process: the surface that owns the screen, the navigation stack and
// the platform push SDK. The agent talks to it over localhost.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

var (
	_ agent.Navigator   = (*Client)(nil)
	_ agent.TokenSource = (*Client)(nil)
)

// Client implements both agent.Navigator and agent.TokenSource against
// the companion's local HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger.With("component", "BridgeClient"),
	}
}

// --- Navigator ---

// Ready probes the companion's readiness endpoint with a short timeout.
// An unreachable companion reads as "not ready", never as an error.
func (c *Client) Ready() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/readyz", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type navigateRequest struct {
	Route  string            `json:"route"`
	Params map[string]string `json:"params,omitempty"`
}

func (c *Client) Navigate(ctx context.Context, target agent.NavigationTarget) error {
	body := navigateRequest{Route: target.Route, Params: target.Params}
	if err := c.post(ctx, "/navigate", body, nil); err != nil {
		return fmt.Errorf("navigate to %q: %w", target.Route, err)
	}
	return nil
}

// --- TokenSource ---

type permissionResponse struct {
	Granted bool `json:"granted"`
}

func (c *Client) PermissionGranted(ctx context.Context) (bool, error) {
	var out permissionResponse
	if err := c.get(ctx, "/permissions/notifications", &out); err != nil {
		return false, fmt.Errorf("permission check: %w", err)
	}
	return out.Granted, nil
}

// RequestPermission prompts the user through the companion. A denied
// prompt is a valid result, not an error.
func (c *Client) RequestPermission(ctx context.Context) (bool, error) {
	var out permissionResponse
	if err := c.post(ctx, "/permissions/notifications", nil, &out); err != nil {
		return false, fmt.Errorf("permission request: %w", err)
	}
	return out.Granted, nil
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (c *Client) Token(ctx context.Context) (string, error) {
	var out tokenResponse
	if err := c.get(ctx, "/push-token", &out); err != nil {
		return "", fmt.Errorf("token fetch: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("companion returned an empty push token")
	}
	return out.Token, nil
}

func (c *Client) DeleteToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/push-token", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token delete: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("token delete: companion returned %d", resp.StatusCode)
	}
	return nil
}

// --- plumbing ---

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("companion returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode companion response: %w", err)
	}
	return nil
}
