// Package apns displays rendered notifications through the Apple Push
// Notification Service.
package apns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

// APNSClient defines the subset of the apns2.Client methods we use.
// This allows mocking for unit tests.
type APNSClient interface {
	Push(n *apns2.Notification) (*apns2.Response, error)
}

// Config holds the credentials required to sign APNs tokens.
type Config struct {
	KeyID    string
	TeamID   string
	BundleID string
	// P8KeyContent is the raw string content of the .p8 file
	P8KeyContent string
}

var _ agent.Notifier = (*Notifier)(nil)

type Notifier struct {
	client APNSClient
	topic  string // The App Bundle ID
	tokens agent.TokenCache
	logger *slog.Logger
}

// NewNotifier creates a configured APNs notifier. It parses the P8 key
// immediately to fail fast on startup if credentials are bad.
func NewNotifier(cfg Config, tokens agent.TokenCache, logger *slog.Logger) (*Notifier, error) {
	authKey, err := token.AuthKeyFromBytes([]byte(cfg.P8KeyContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse APNs P8 key: %w", err)
	}

	tokenSource := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	return &Notifier{
		client: apns2.NewTokenClient(tokenSource),
		topic:  cfg.BundleID,
		tokens: tokens,
		logger: logger.With("component", "APNSNotifier"),
	}, nil
}

// NewNotifierWithClient wires a pre-built client, used by tests.
func NewNotifierWithClient(client APNSClient, bundleID string, tokens agent.TokenCache, logger *slog.Logger) *Notifier {
	return &Notifier{
		client: client,
		topic:  bundleID,
		tokens: tokens,
		logger: logger.With("component", "APNSNotifier"),
	}
}

// ProvisionChannels is a no-op on APNs: the channel ID travels as the
// notification category, which the app declares client-side.
func (n *Notifier) ProvisionChannels(_ context.Context, channels []agent.Channel) error {
	n.logger.Debug("APNs categories follow channel IDs", "count", len(channels))
	return nil
}

// Display pushes the notification to this device's current token. Dead
// tokens reported by APNs clear the cache so the next refresh heals it.
func (n *Notifier) Display(ctx context.Context, ln agent.LocalNotification) error {
	deviceToken, err := n.tokens.Token(ctx)
	if errors.Is(err, agent.ErrNoToken) {
		n.logger.Debug("No push token cached; skipping APNs display")
		return nil
	}
	if err != nil {
		return fmt.Errorf("token cache read: %w", err)
	}

	builder := payload.NewPayload().
		AlertTitle(ln.Title).
		AlertBody(ln.Body).
		Category(ln.ChannelID)
	if ln.Sound {
		builder.Sound("default")
	}
	for k, v := range ln.Data {
		builder.Custom(k, v)
	}

	res, err := n.client.Push(&apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       n.topic,
		Payload:     builder,
	})
	if err != nil {
		return fmt.Errorf("apns transport failed: %w", err)
	}

	if res.Sent() {
		return nil
	}

	switch res.Reason {
	case apns2.ReasonBadDeviceToken, apns2.ReasonUnregistered, apns2.ReasonDeviceTokenNotForTopic:
		n.logger.Warn("APNs reports our token is dead; clearing cache", "reason", res.Reason)
		if clearErr := n.tokens.Clear(ctx); clearErr != nil {
			n.logger.Warn("Token cache clear failed", "err", clearErr)
		}
		return nil
	default:
		// Other rejections (TopicDisallowed, PayloadEmpty) mean our
		// configuration is wrong, not the token.
		return fmt.Errorf("apns rejected notification: %s (status %d)", res.Reason, res.StatusCode)
	}
}
