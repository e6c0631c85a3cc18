// Package token keeps exactly one push token registered with the
// backend per logged-in device/user pair.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

// Manager owns the device token lifecycle across login, logout and
// SDK-driven refresh. Backend registration is opportunistic: failures
// are logged and swallowed, and the next refresh or login retries
// naturally.
type Manager struct {
	source     agent.TokenSource
	cache      agent.TokenCache
	registrar  agent.Registrar
	deviceInfo string
	logger     *slog.Logger

	// generation fences async completions: login and logout each bump
	// it, and a registration resolved under a stale generation is
	// discarded instead of resurrecting a dead session.
	generation atomic.Int64
}

func NewManager(source agent.TokenSource, cache agent.TokenCache, registrar agent.Registrar, logger *slog.Logger) *Manager {
	return &Manager{
		source:     source,
		cache:      cache,
		registrar:  registrar,
		deviceInfo: fmt.Sprintf("%s/%s %s", runtime.GOOS, runtime.GOARCH, runtime.Version()),
		logger:     logger.With("component", "TokenManager"),
	}
}

// Obtain checks (and if needed requests) notification permission, then
// fetches and caches the current token. A denied permission returns
// ok=false with a nil error: notifications are unavailable, which is a
// valid terminal state, not a failure.
func (m *Manager) Obtain(ctx context.Context) (token string, ok bool, err error) {
	granted, err := m.source.PermissionGranted(ctx)
	if err != nil {
		return "", false, fmt.Errorf("permission check failed: %w", err)
	}
	if !granted {
		granted, err = m.source.RequestPermission(ctx)
		if err != nil {
			return "", false, fmt.Errorf("permission request failed: %w", err)
		}
	}
	if !granted {
		m.logger.Info("Notification permission denied; push unavailable")
		return "", false, nil
	}

	token, err = m.source.Token(ctx)
	if err != nil {
		return "", false, fmt.Errorf("token fetch failed: %w", err)
	}

	if err := m.cache.SetToken(ctx, token); err != nil {
		// The in-memory value is still good; only restart recovery is
		// degraded.
		m.logger.Warn("Token cache write failed", "err", err)
	}

	return token, true, nil
}

// HandleLogin fetches a fresh token and registers it for the new
// session. The cached token from a previous, possibly different, user
// is never reused. Never blocks or fails the login itself.
func (m *Manager) HandleLogin(ctx context.Context, auth agent.AuthSnapshot) {
	gen := m.generation.Add(1)

	token, ok, err := m.Obtain(ctx)
	if err != nil {
		m.logger.Warn("Token obtain failed on login", "err", err)
		return
	}
	if !ok {
		return
	}

	if m.generation.Load() != gen {
		m.logger.Debug("Discarding stale login registration", "generation", gen)
		return
	}

	m.register(ctx, token, auth)
}

// HandleLogout unregisters the cached token from the backend before
// deleting it locally. Unregistration is best-effort: local cleanup
// proceeds regardless, and the caller's auth teardown is never blocked.
func (m *Manager) HandleLogout(ctx context.Context) {
	m.generation.Add(1)

	token, err := m.cache.Token(ctx)
	switch {
	case err == nil && token != "":
		if err := m.registrar.Unregister(ctx, token); err != nil {
			m.logger.Warn("Backend unregister failed; continuing logout", "err", err)
		}
	case errors.Is(err, agent.ErrNoToken):
		m.logger.Debug("No cached token to unregister")
	case err != nil:
		m.logger.Warn("Token cache read failed on logout", "err", err)
	}

	if err := m.cache.Clear(ctx); err != nil {
		m.logger.Warn("Token cache clear failed", "err", err)
	}
	if err := m.source.DeleteToken(ctx); err != nil {
		m.logger.Warn("Platform token delete failed", "err", err)
	}
}

// HandleRefresh persists a spontaneously rotated token. Re-registration
// only happens for a logged-in session; otherwise the token waits in
// the cache for the next login.
func (m *Manager) HandleRefresh(ctx context.Context, token string, auth agent.AuthSnapshot) {
	if err := m.cache.SetToken(ctx, token); err != nil {
		m.logger.Warn("Refreshed token cache write failed", "err", err)
	}
	if !auth.LoggedIn {
		m.logger.Debug("Token cached; registration deferred until login")
		return
	}
	m.register(ctx, token, auth)
}

func (m *Manager) register(ctx context.Context, token string, auth agent.AuthSnapshot) {
	reg := agent.TokenRegistration{
		UserID:     auth.UserID,
		UserType:   auth.UserType,
		Token:      token,
		DeviceInfo: m.deviceInfo,
	}
	if err := m.registrar.Register(ctx, reg); err != nil {
		m.logger.Warn("Backend token registration failed; will retry on next refresh or login", "err", err)
		return
	}
	m.logger.Info("Push token registered", "user_type", string(auth.UserType))
}
