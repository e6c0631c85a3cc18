// Package receive normalizes push deliveries across the platform's
// delivery paths and manages the listener lifecycle for them.
package receive

import (
	"context"
	"sync"

	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

// Bus is the in-process analog of the push SDK's event surface. The
// ingestion pipeline emits into it; the Receiver subscribes to it.
//
// The background path is deliberately separate from the foreground and
// token-refresh paths: the platform requires the background handler to
// be registered once, before any other subsystem starts, so it is not
// part of the Receiver's re-runnable Init.
type Bus struct {
	mu         sync.Mutex
	nextID     int
	foreground map[int]func(context.Context, agent.InboundMessage)
	background map[int]func(context.Context, agent.InboundMessage)
	refresh    map[int]func(context.Context, string)
}

func NewBus() *Bus {
	return &Bus{
		foreground: make(map[int]func(context.Context, agent.InboundMessage)),
		background: make(map[int]func(context.Context, agent.InboundMessage)),
		refresh:    make(map[int]func(context.Context, string)),
	}
}

// OnForegroundMessage registers a handler and returns its teardown.
func (b *Bus) OnForegroundMessage(h func(context.Context, agent.InboundMessage)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.foreground[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.foreground, id)
	}
}

// OnBackgroundMessage registers the top-level background handler.
func (b *Bus) OnBackgroundMessage(h func(context.Context, agent.InboundMessage)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.background[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.background, id)
	}
}

// OnTokenRefresh registers a handler for spontaneous token rotation.
func (b *Bus) OnTokenRefresh(h func(context.Context, string)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.refresh[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.refresh, id)
	}
}

func (b *Bus) EmitForeground(ctx context.Context, msg agent.InboundMessage) {
	for _, h := range b.foregroundHandlers() {
		h(ctx, msg)
	}
}

func (b *Bus) EmitBackground(ctx context.Context, msg agent.InboundMessage) {
	for _, h := range b.backgroundHandlers() {
		h(ctx, msg)
	}
}

func (b *Bus) EmitTokenRefresh(ctx context.Context, token string) {
	for _, h := range b.refreshHandlers() {
		h(ctx, token)
	}
}

// Handlers are snapshotted under the lock and invoked outside it, so a
// handler may re-register without deadlocking.

func (b *Bus) foregroundHandlers() []func(context.Context, agent.InboundMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hs := make([]func(context.Context, agent.InboundMessage), 0, len(b.foreground))
	for _, h := range b.foreground {
		hs = append(hs, h)
	}
	return hs
}

func (b *Bus) backgroundHandlers() []func(context.Context, agent.InboundMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hs := make([]func(context.Context, agent.InboundMessage), 0, len(b.background))
	for _, h := range b.background {
		hs = append(hs, h)
	}
	return hs
}

func (b *Bus) refreshHandlers() []func(context.Context, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hs := make([]func(context.Context, string), 0, len(b.refresh))
	for _, h := range b.refresh {
		hs = append(hs, h)
	}
	return hs
}
