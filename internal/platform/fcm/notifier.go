// Package fcm displays rendered notifications through Firebase Cloud
// Messaging, addressed to this device's own push token.
package fcm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"firebase.google.com/go/v4/messaging"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

// MessagingClient defines the subset of the Firebase Messaging API we use.
// This interface allows us to mock the client for unit testing.
type MessagingClient interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

var _ agent.Notifier = (*Notifier)(nil)

type Notifier struct {
	client MessagingClient
	tokens agent.TokenCache
	logger *slog.Logger

	mu         sync.RWMutex
	channelIDs map[string]bool
}

// NewNotifier accepts the concrete client but stores it as the interface.
// Note: *messaging.Client automatically satisfies this interface.
func NewNotifier(client MessagingClient, tokens agent.TokenCache, logger *slog.Logger) *Notifier {
	return &Notifier{
		client:     client,
		tokens:     tokens,
		logger:     logger.With("component", "FCMNotifier"),
		channelIDs: make(map[string]bool),
	}
}

// ProvisionChannels records the channel set. FCM declares channels on
// the receiving device, so provisioning here means remembering which
// IDs are legal to stamp onto outgoing Android configs.
func (n *Notifier) ProvisionChannels(_ context.Context, channels []agent.Channel) error {
	n.mu.Lock()
	for _, ch := range channels {
		n.channelIDs[ch.ID] = true
	}
	n.mu.Unlock()
	n.logger.Debug("FCM channels provisioned", "count", len(channels))
	return nil
}

// Display sends the notification to this device's current token. A
// missing token is a silent skip: push is simply not set up yet. A
// token FCM reports as dead is cleared so the next refresh heals it.
func (n *Notifier) Display(ctx context.Context, ln agent.LocalNotification) error {
	token, err := n.tokens.Token(ctx)
	if errors.Is(err, agent.ErrNoToken) {
		n.logger.Debug("No push token cached; skipping FCM display")
		return nil
	}
	if err != nil {
		return fmt.Errorf("token cache read: %w", err)
	}

	n.mu.RLock()
	known := n.channelIDs[ln.ChannelID]
	n.mu.RUnlock()
	if !known {
		n.logger.Warn("Unknown channel ID on notification", "channel_id", ln.ChannelID)
	}

	android := &messaging.AndroidNotification{
		ChannelID:             ln.ChannelID,
		DefaultVibrateTimings: ln.Vibrate,
	}
	if ln.Sound {
		android.Sound = "default"
	}

	msg := &messaging.MulticastMessage{
		Tokens: []string{token},
		Data:   ln.Data,
		Notification: &messaging.Notification{
			Title: ln.Title,
			Body:  ln.Body,
		},
		Android: &messaging.AndroidConfig{
			Notification: android,
		},
	}

	br, err := n.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		if messaging.IsInvalidArgument(err) {
			n.logger.Error("FCM rejected notification as InvalidArgument (dropping)", "err", err)
			return nil
		}
		return fmt.Errorf("fcm transport failed: %w", err)
	}

	for _, resp := range br.Responses {
		if resp.Success {
			continue
		}
		if messaging.IsInvalidArgument(resp.Error) || messaging.IsRegistrationTokenNotRegistered(resp.Error) {
			n.logger.Warn("FCM reports our token is dead; clearing cache", "err", resp.Error)
			if clearErr := n.tokens.Clear(ctx); clearErr != nil {
				n.logger.Warn("Token cache clear failed", "err", clearErr)
			}
			return nil
		}
		return fmt.Errorf("fcm rejected notification: %w", resp.Error)
	}

	return nil
}
