package agent

import (
	"context"
	"errors"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

// ErrNoToken is returned by a TokenCache when no push token is cached.
var ErrNoToken = errors.New("no push token cached")

// Notifier displays a rendered notification on a platform surface
// (FCM, APNs, web push). Display is best-effort; callers log failures
// and never propagate them.
type Notifier interface {
	// ProvisionChannels registers the fixed channel set with the
	// platform. Safe to call repeatedly.
	ProvisionChannels(ctx context.Context, channels []Channel) error
	Display(ctx context.Context, n LocalNotification) error
}

// Navigator is the boundary to the navigation subsystem. The router
// calls it and never inspects navigation internals.
type Navigator interface {
	// Ready reports whether the navigation subsystem is mounted.
	// Navigating before readiness is a silent no-op on the platform
	// side, so callers must check.
	Ready() bool
	Navigate(ctx context.Context, target NavigationTarget) error
}

// TokenSource is the boundary to the platform push SDK: permission
// state and the device's current push-routing identifier.
type TokenSource interface {
	PermissionGranted(ctx context.Context) (bool, error)
	// RequestPermission prompts the user. A denied result is a valid
	// terminal state, not an error.
	RequestPermission(ctx context.Context) (bool, error)
	Token(ctx context.Context) (string, error)
	DeleteToken(ctx context.Context) error
}

// Registrar binds and unbinds a device token with the backend. Both
// operations are opportunistic; callers treat failure as non-fatal.
type Registrar interface {
	Register(ctx context.Context, reg TokenRegistration) error
	Unregister(ctx context.Context, token string) error
}

// TokenCache persists the device's last-known push token across process
// restarts. Writes are idempotent overwrites; last write wins.
type TokenCache interface {
	// Token returns ErrNoToken when nothing is cached.
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// InteractionStore holds at most one pending notification tap recorded
// while the agent was not running (the cold-start case).
type InteractionStore interface {
	SetPending(ctx context.Context, data map[string]string) error
	// TakePending consumes the pending tap, if any. A second call
	// returns ok=false.
	TakePending(ctx context.Context) (data map[string]string, ok bool, err error)
}

// Inbox stores per-user notification history for the notification list
// screen.
type Inbox interface {
	Append(ctx context.Context, user urn.URN, n LocalNotification) error
	List(ctx context.Context, user urn.URN, limit int) ([]InboxEntry, error)
	MarkRead(ctx context.Context, user urn.URN, id string) error
}

// AuthReader exposes the current session snapshot.
type AuthReader interface {
	Snapshot() AuthSnapshot
}
