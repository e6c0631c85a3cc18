package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

// TokenCache persists the device's current push token under a single
// per-device key. No TTL: the token is valid until rotated or cleared.
type TokenCache struct {
	client Client
	key    string
}

func NewTokenCache(client Client, deviceID string) *TokenCache {
	return &TokenCache{
		client: client,
		key:    fmt.Sprintf("pushagent:token:%s", deviceID),
	}
}

func (c *TokenCache) Token(ctx context.Context) (string, error) {
	token, err := c.client.Get(ctx, c.key)
	if errors.Is(err, ErrNotFound) {
		return "", agent.ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("token cache read: %w", err)
	}
	return token, nil
}

func (c *TokenCache) SetToken(ctx context.Context, token string) error {
	if err := c.client.Set(ctx, c.key, token, 0); err != nil {
		return fmt.Errorf("token cache write: %w", err)
	}
	return nil
}

func (c *TokenCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key); err != nil {
		return fmt.Errorf("token cache clear: %w", err)
	}
	return nil
}
