package route

import (
	"context"
	"log/slog"
	"time"

	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

const (
	defaultReadyDelay    = 700 * time.Millisecond
	defaultReadyAttempts = 5
)

// ColdStart performs the once-per-launch check for a notification tap
// that started the process. The resulting navigation is deferred until
// the navigation subsystem reports itself ready; navigating earlier is
// a silent no-op on the platform side.
type ColdStart struct {
	interactions agent.InteractionStore
	router       *Router
	nav          agent.Navigator
	auth         agent.AuthReader
	logger       *slog.Logger

	// ReadyDelay and ReadyAttempts bound how long Run waits for the
	// navigator before giving up.
	ReadyDelay    time.Duration
	ReadyAttempts int
}

func NewColdStart(interactions agent.InteractionStore, router *Router, nav agent.Navigator, auth agent.AuthReader, logger *slog.Logger) *ColdStart {
	return &ColdStart{
		interactions:  interactions,
		router:        router,
		nav:           nav,
		auth:          auth,
		logger:        logger.With("component", "ColdStart"),
		ReadyDelay:    defaultReadyDelay,
		ReadyAttempts: defaultReadyAttempts,
	}
}

// Run consumes the pending interaction, if any, and dispatches it once
// the navigator is ready. Attempts are bounded: if readiness never
// arrives the navigation is dropped and logged, not retried forever.
func (c *ColdStart) Run(ctx context.Context) {
	data, ok, err := c.interactions.TakePending(ctx)
	if err != nil {
		c.logger.Warn("Pending interaction check failed", "err", err)
		return
	}
	if !ok {
		c.logger.Debug("No pending cold-start interaction")
		return
	}

	for attempt := 0; attempt < c.ReadyAttempts; attempt++ {
		if c.nav.Ready() {
			c.router.HandleTap(ctx, data, c.auth.Snapshot())
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.ReadyDelay):
		}
	}

	c.logger.Warn("Navigation never became ready; dropping cold-start interaction")
}
