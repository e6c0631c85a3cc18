package receive

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

// Display is the slice of the renderer the receiver needs.
type Display interface {
	Display(ctx context.Context, title, body string, data map[string]string)
}

// RefreshHandler receives rotated tokens for persistence and
// opportunistic re-registration.
type RefreshHandler interface {
	HandleRefresh(ctx context.Context, token string, auth agent.AuthSnapshot)
}

// Receiver subscribes to the delivery paths and funnels each into the
// renderer. Init is idempotent: repeated calls tear down the previous
// foreground and token-refresh listeners before re-registering, so at
// most one live listener of each kind exists at a time.
type Receiver struct {
	bus      *Bus
	renderer Display
	tokens   RefreshHandler
	auth     agent.AuthReader
	logger   *slog.Logger

	mu               sync.Mutex
	cancelForeground func()
	cancelRefresh    func()
}

func NewReceiver(bus *Bus, renderer Display, tokens RefreshHandler, auth agent.AuthReader, logger *slog.Logger) *Receiver {
	return &Receiver{
		bus:      bus,
		renderer: renderer,
		tokens:   tokens,
		auth:     auth,
		logger:   logger.With("component", "Receiver"),
	}
}

// Init registers the foreground and token-refresh listeners. Safe to
// call multiple times.
func (r *Receiver) Init(_ context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancelForeground != nil {
		r.cancelForeground()
	}
	if r.cancelRefresh != nil {
		r.cancelRefresh()
	}

	r.cancelForeground = r.bus.OnForegroundMessage(r.HandleForeground)
	r.cancelRefresh = r.bus.OnTokenRefresh(r.handleTokenRefresh)
	r.logger.Info("Delivery listeners registered")
}

// Close tears the listeners down.
func (r *Receiver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelForeground != nil {
		r.cancelForeground()
		r.cancelForeground = nil
	}
	if r.cancelRefresh != nil {
		r.cancelRefresh()
		r.cancelRefresh = nil
	}
}

// HandleForeground handles a message delivered while the UI is active.
func (r *Receiver) HandleForeground(ctx context.Context, msg agent.InboundMessage) {
	r.display(ctx, msg)
}

// HandleBackground handles a message delivered while the app is
// backgrounded or killed. Registered once on the bus at assembly time,
// independent of Init.
func (r *Receiver) HandleBackground(ctx context.Context, msg agent.InboundMessage) {
	r.display(ctx, msg)
}

func (r *Receiver) display(ctx context.Context, msg agent.InboundMessage) {
	title, body := Normalize(msg)
	r.renderer.Display(ctx, title, body, msg.Data)
}

// handleTokenRefresh persists the rotated token regardless of login
// state; re-registration with the backend only happens for a logged-in
// session and is delegated to the token manager.
func (r *Receiver) handleTokenRefresh(ctx context.Context, token string) {
	if token == "" {
		r.logger.Warn("Ignoring empty refreshed token")
		return
	}
	r.logger.Info("Push token refreshed")
	r.tokens.HandleRefresh(ctx, token, r.auth.Snapshot())
}
