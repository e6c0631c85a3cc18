// Package route resolves tapped notification payloads into navigation
// targets and dispatches them exactly once.
package route

import (
	"context"
	"log/slog"

	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

var orderDetailTypes = map[string]struct{}{
	"order_created":       {},
	"order_status_update": {},
	"order_assigned":      {},
	"order_completed":     {},
}

var warrantyViewTypes = map[string]struct{}{
	"warranty_created":  {},
	"warranty_expiring": {},
}

// Resolve computes the navigation target for a tapped notification.
// Pure function of (data, userType); evaluated in order, first match
// wins, and the notification list screen is the terminal fallback.
func Resolve(data map[string]string, userType agent.UserType) agent.NavigationTarget {
	if len(data) == 0 {
		return agent.NavigationTarget{Route: agent.RouteNotifications}
	}

	messageType := data["type"]
	orderID := data["order_id"]

	if _, ok := orderDetailTypes[messageType]; ok {
		if orderID != "" {
			return orderDetail(userType, orderID)
		}
		return agent.NavigationTarget{Route: agent.RouteMyService}
	}

	if _, ok := warrantyViewTypes[messageType]; ok {
		return agent.NavigationTarget{Route: agent.RouteWarranty}
	}

	// Unrecognized or absent type: an order_id alone is still enough
	// to land on the order.
	if orderID != "" {
		return orderDetail(userType, orderID)
	}

	return agent.NavigationTarget{Route: agent.RouteNotifications}
}

func orderDetail(userType agent.UserType, orderID string) agent.NavigationTarget {
	route := agent.RouteOrderDetail
	if userType == agent.UserTypeEmployee {
		route = agent.RouteEmployeeOrderDetail
	}
	return agent.NavigationTarget{Route: route, Params: map[string]string{"id": orderID}}
}

// Router dispatches resolved targets to the navigation subsystem. A
// failed navigation falls back to the notification list screen rather
// than dropping the tap.
type Router struct {
	nav    agent.Navigator
	inbox  agent.Inbox
	logger *slog.Logger
}

func NewRouter(nav agent.Navigator, inbox agent.Inbox, logger *slog.Logger) *Router {
	return &Router{
		nav:    nav,
		inbox:  inbox,
		logger: logger.With("component", "Router"),
	}
}

// HandleTap resolves the payload and issues exactly one navigation
// call. Never returns an error and never panics: a tap must always end
// somewhere.
func (r *Router) HandleTap(ctx context.Context, data map[string]string, auth agent.AuthSnapshot) {
	target := Resolve(data, auth.UserType)

	if err := r.nav.Navigate(ctx, target); err != nil {
		r.logger.Warn("Navigation failed, falling back to notification list", "route", target.Route, "err", err)
		if target.Route != agent.RouteNotifications {
			if err := r.nav.Navigate(ctx, agent.NavigationTarget{Route: agent.RouteNotifications}); err != nil {
				r.logger.Error("Fallback navigation failed", "err", err)
			}
		}
	}

	r.markRead(ctx, data, auth)
}

// markRead flags the tapped notification in the user's inbox. History
// bookkeeping only; failure never affects the navigation outcome.
func (r *Router) markRead(ctx context.Context, data map[string]string, auth agent.AuthSnapshot) {
	if r.inbox == nil || !auth.LoggedIn {
		return
	}
	id := data["notification_id"]
	if id == "" {
		return
	}
	if err := r.inbox.MarkRead(ctx, auth.UserID, id); err != nil {
		r.logger.Warn("Inbox mark-read failed", "id", id, "err", err)
	}
}
