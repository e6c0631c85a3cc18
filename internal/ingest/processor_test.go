package ingest_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-push-agent/internal/ingest"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

type recordingBus struct {
	foreground []agent.InboundMessage
	background []agent.InboundMessage
}

func (b *recordingBus) EmitForeground(_ context.Context, msg agent.InboundMessage) {
	b.foreground = append(b.foreground, msg)
}

func (b *recordingBus) EmitBackground(_ context.Context, msg agent.InboundMessage) {
	b.background = append(b.background, msg)
}

func TestProcessor_RoutesByDeliveryPath(t *testing.T) {
	ctx := context.Background()
	bus := &recordingBus{}
	processor := ingest.NewProcessor(bus, slog.New(slog.NewTextHandler(io.Discard, nil)))
	original := messagepipeline.Message{MessageData: messagepipeline.MessageData{ID: "msg-1"}}

	err := processor(ctx, original, &agent.InboundMessage{
		Delivery: agent.DeliveryForeground,
		Data:     map[string]string{"type": "order_created"},
	})
	require.NoError(t, err)

	err = processor(ctx, original, &agent.InboundMessage{
		Delivery: agent.DeliveryBackground,
		Data:     map[string]string{"type": "warranty_created"},
	})
	require.NoError(t, err)

	require.Len(t, bus.foreground, 1)
	require.Len(t, bus.background, 1)
	assert.Equal(t, "order_created", bus.foreground[0].Data["type"])
	assert.Equal(t, "warranty_created", bus.background[0].Data["type"])
}
