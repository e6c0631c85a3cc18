// Package web displays rendered notifications as web push messages to
// the browsers paired with this device.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

// VapidConfig holds the VAPID signing material.
type VapidConfig struct {
	PublicKey       string
	PrivateKey      string
	SubscriberEmail string
}

var _ agent.Notifier = (*Notifier)(nil)

type Notifier struct {
	subscriber string
	privateKey string
	publicKey  string
	logger     *slog.Logger
	httpClient *http.Client

	mu   sync.Mutex
	subs []agent.WebPushSubscription
}

func NewNotifier(cfg VapidConfig, subs []agent.WebPushSubscription, logger *slog.Logger) *Notifier {
	return &Notifier{
		privateKey: cfg.PrivateKey,
		publicKey:  cfg.PublicKey,
		subscriber: cfg.SubscriberEmail,
		logger:     logger.With("component", "WebPushNotifier"),
		httpClient: &http.Client{},
		subs:       subs,
	}
}

// ProvisionChannels is a no-op: browsers have no channel concept, the
// channel ID travels inside the payload instead.
func (n *Notifier) ProvisionChannels(_ context.Context, channels []agent.Channel) error {
	n.logger.Debug("Web push carries channel IDs in-payload", "count", len(channels))
	return nil
}

// Display fans the notification out to every paired browser. Gone
// subscriptions (404/410) are pruned; transport errors are logged and
// the remaining subscriptions still get their delivery.
func (n *Notifier) Display(ctx context.Context, ln agent.LocalNotification) error {
	n.mu.Lock()
	subs := make([]agent.WebPushSubscription, len(n.subs))
	copy(subs, n.subs)
	n.mu.Unlock()

	if len(subs) == 0 {
		return nil
	}

	payloadBytes, err := json.Marshal(map[string]interface{}{
		"notification": map[string]string{
			"title":      ln.Title,
			"body":       ln.Body,
			"channel_id": ln.ChannelID,
		},
		"data": ln.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var gone []string
	for _, sub := range subs {
		s := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.Keys.P256dh,
				Auth:   sub.Keys.Auth,
			},
		}

		resp, err := webpush.SendNotificationWithContext(ctx, payloadBytes, s, &webpush.Options{
			Subscriber:      n.subscriber,
			VAPIDPublicKey:  n.publicKey,
			VAPIDPrivateKey: n.privateKey,
			TTL:             60,
			HTTPClient:      n.httpClient,
		})
		if err != nil {
			n.logger.Error("WebPush transport error", "endpoint", sub.Endpoint, "err", err)
			continue
		}
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusCreated:
			// delivered
		case http.StatusGone, http.StatusNotFound:
			gone = append(gone, sub.Endpoint)
		default:
			n.logger.Warn("WebPush rejected", "status", resp.StatusCode, "endpoint", sub.Endpoint)
		}
	}

	if len(gone) > 0 {
		n.prune(gone)
	}
	return nil
}

// Subscriptions returns the current live subscription set.
func (n *Notifier) Subscriptions() []agent.WebPushSubscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]agent.WebPushSubscription, len(n.subs))
	copy(out, n.subs)
	return out
}

func (n *Notifier) prune(goneEndpoints []string) {
	dead := make(map[string]bool, len(goneEndpoints))
	for _, ep := range goneEndpoints {
		dead[ep] = true
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	kept := n.subs[:0]
	for _, sub := range n.subs {
		if !dead[sub.Endpoint] {
			kept = append(kept, sub)
		}
	}
	n.subs = kept
	n.logger.Info("Pruned gone web push subscriptions", "count", len(goneEndpoints))
}
