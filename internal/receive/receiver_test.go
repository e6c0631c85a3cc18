package receive_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tinywideclouds/go-push-agent/internal/receive"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingDisplay struct {
	calls     atomic.Int64
	lastTitle string
	lastBody  string
	lastData  map[string]string
}

func (d *countingDisplay) Display(_ context.Context, title, body string, data map[string]string) {
	d.calls.Add(1)
	d.lastTitle = title
	d.lastBody = body
	d.lastData = data
}

type countingRefresh struct {
	calls     atomic.Int64
	lastToken string
	lastAuth  agent.AuthSnapshot
}

func (h *countingRefresh) HandleRefresh(_ context.Context, token string, auth agent.AuthSnapshot) {
	h.calls.Add(1)
	h.lastToken = token
	h.lastAuth = auth
}

type staticAuth struct {
	snap agent.AuthSnapshot
}

func (s staticAuth) Snapshot() agent.AuthSnapshot { return s.snap }

func TestInit_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	bus := receive.NewBus()
	display := &countingDisplay{}
	refresh := &countingRefresh{}

	r := receive.NewReceiver(bus, display, refresh, staticAuth{}, newTestLogger())

	// Repeated initialization must leave exactly one live listener of
	// each kind.
	r.Init(ctx)
	r.Init(ctx)
	r.Init(ctx)

	bus.EmitForeground(ctx, agent.InboundMessage{Data: map[string]string{"title": "once"}})
	assert.Equal(t, int64(1), display.calls.Load())

	bus.EmitTokenRefresh(ctx, "tok-1")
	assert.Equal(t, int64(1), refresh.calls.Load())
}

func TestClose_RemovesListeners(t *testing.T) {
	ctx := context.Background()
	bus := receive.NewBus()
	display := &countingDisplay{}
	refresh := &countingRefresh{}

	r := receive.NewReceiver(bus, display, refresh, staticAuth{}, newTestLogger())
	r.Init(ctx)
	r.Close()

	bus.EmitForeground(ctx, agent.InboundMessage{})
	bus.EmitTokenRefresh(ctx, "tok-1")

	assert.Zero(t, display.calls.Load())
	assert.Zero(t, refresh.calls.Load())
}

func TestForegroundAndBackgroundShareNormalization(t *testing.T) {
	ctx := context.Background()
	display := &countingDisplay{}
	r := receive.NewReceiver(receive.NewBus(), display, &countingRefresh{}, staticAuth{}, newTestLogger())

	msg := agent.InboundMessage{
		Data: map[string]string{"title": "A", "message": "C", "type": "order_created"},
	}

	r.HandleForeground(ctx, msg)
	assert.Equal(t, "A", display.lastTitle)
	assert.Equal(t, "C", display.lastBody)
	assert.Equal(t, msg.Data, display.lastData)

	r.HandleBackground(ctx, msg)
	assert.Equal(t, "A", display.lastTitle)
	assert.Equal(t, "C", display.lastBody)
	assert.Equal(t, int64(2), display.calls.Load())
}

func TestTokenRefresh_ForwardsAuthSnapshot(t *testing.T) {
	ctx := context.Background()
	bus := receive.NewBus()
	refresh := &countingRefresh{}
	auth := staticAuth{snap: agent.AuthSnapshot{LoggedIn: true, UserType: agent.UserTypeEmployee}}

	r := receive.NewReceiver(bus, &countingDisplay{}, refresh, auth, newTestLogger())
	r.Init(ctx)

	bus.EmitTokenRefresh(ctx, "fresh-token")

	assert.Equal(t, "fresh-token", refresh.lastToken)
	assert.True(t, refresh.lastAuth.LoggedIn)
	assert.Equal(t, agent.UserTypeEmployee, refresh.lastAuth.UserType)
}

func TestTokenRefresh_IgnoresEmptyToken(t *testing.T) {
	ctx := context.Background()
	bus := receive.NewBus()
	refresh := &countingRefresh{}

	r := receive.NewReceiver(bus, &countingDisplay{}, refresh, staticAuth{}, newTestLogger())
	r.Init(ctx)

	bus.EmitTokenRefresh(ctx, "")
	assert.Zero(t, refresh.calls.Load())
}
