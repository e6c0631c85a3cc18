// Package api exposes the agent's local HTTP surface: session
// transitions, notification interactions, token refresh events and the
// notification list.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

// TokenLifecycle is the slice of the token manager the API drives.
type TokenLifecycle interface {
	HandleLogin(ctx context.Context, auth agent.AuthSnapshot)
	HandleLogout(ctx context.Context)
}

// TapRouter handles a tapped notification's payload.
type TapRouter interface {
	HandleTap(ctx context.Context, data map[string]string, auth agent.AuthSnapshot)
}

// RefreshSink receives token rotation events from the companion.
type RefreshSink interface {
	EmitTokenRefresh(ctx context.Context, token string)
}

// SessionStore is the mutable side of the session state.
type SessionStore interface {
	Snapshot() agent.AuthSnapshot
	SetLoggedIn(user urn.URN, userType agent.UserType) agent.AuthSnapshot
	Clear()
}

type SessionAPI struct {
	Sessions SessionStore
	Tokens   TokenLifecycle
	Router   TapRouter
	Refresh  RefreshSink
	Inbox    agent.Inbox
	Logger   *slog.Logger
}

func NewSessionAPI(sessions SessionStore, tokens TokenLifecycle, router TapRouter, refresh RefreshSink, inbox agent.Inbox, logger *slog.Logger) *SessionAPI {
	return &SessionAPI{
		Sessions: sessions,
		Tokens:   tokens,
		Router:   router,
		Refresh:  refresh,
		Inbox:    inbox,
		Logger:   logger,
	}
}

// --- Session transitions ---

type LoginRequest struct {
	UserType string `json:"user_type"`
}

// Login marks the session as logged in and kicks off token registration
// in the background. The HTTP response never waits on the backend.
func (api *SessionAPI) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userURN, err := urn.Parse(userID)
	if err != nil {
		response.WriteJSONError(w, http.StatusUnauthorized, "invalid user identity")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	userType := agent.UserType(req.UserType)
	if userType != agent.UserTypeCustomer && userType != agent.UserTypeEmployee {
		response.WriteJSONError(w, http.StatusBadRequest, "unknown user_type")
		return
	}

	snap := api.Sessions.SetLoggedIn(userURN, userType)
	go api.Tokens.HandleLogin(context.WithoutCancel(ctx), snap)

	api.Logger.Info("Session logged in", "user_type", req.UserType)
	w.WriteHeader(http.StatusNoContent)
}

// Logout clears the session first, then unregisters the token in the
// background. Auth teardown must never wait on the network.
func (api *SessionAPI) Logout(w http.ResponseWriter, r *http.Request) {
	api.Sessions.Clear()
	go api.Tokens.HandleLogout(context.WithoutCancel(r.Context()))

	api.Logger.Info("Session logged out")
	w.WriteHeader(http.StatusNoContent)
}

// --- Notification interaction ---

type InteractionRequest struct {
	Data map[string]string `json:"data"`
}

// Interaction routes a tapped notification's payload. Routing is
// synchronous and total, so a 202 means the tap has landed somewhere.
func (api *SessionAPI) Interaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	api.Router.HandleTap(ctx, req.Data, api.Sessions.Snapshot())
	w.WriteHeader(http.StatusAccepted)
}

// --- Token refresh ---

type TokenRefreshRequest struct {
	Token string `json:"token"`
}

// TokenRefresh forwards a rotated token from the companion into the
// event bus, where the token manager picks it up.
func (api *SessionAPI) TokenRefresh(w http.ResponseWriter, r *http.Request) {
	var req TokenRefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Token == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing token")
		return
	}

	api.Refresh.EmitTokenRefresh(r.Context(), req.Token)
	w.WriteHeader(http.StatusAccepted)
}

// --- Notification list ---

// ListNotifications returns the logged-in user's notification history,
// newest first.
func (api *SessionAPI) ListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userURN, err := urn.Parse(userID)
	if err != nil {
		response.WriteJSONError(w, http.StatusUnauthorized, "invalid user identity")
		return
	}

	entries, err := api.Inbox.List(ctx, userURN, 50)
	if err != nil {
		api.Logger.Error("failed to list notifications", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		api.Logger.Error("failed to encode notification list", "err", err)
	}
}
