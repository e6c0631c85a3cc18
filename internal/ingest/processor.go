package ingest

import (
	"context"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

// EventBus is the slice of the receive bus the processor emits into.
type EventBus interface {
	EmitForeground(ctx context.Context, msg agent.InboundMessage)
	EmitBackground(ctx context.Context, msg agent.InboundMessage)
}

// NewProcessor creates the pipeline stage that hands each decoded
// delivery to the matching bus path. Emission is fire-and-forget: a
// failing downstream handler never nacks the Pub/Sub message, the same
// way a device SDK never redelivers a message its handler mishandled.
func NewProcessor(bus EventBus, logger *slog.Logger) messagepipeline.StreamProcessor[agent.InboundMessage] {
	return func(ctx context.Context, original messagepipeline.Message, inbound *agent.InboundMessage) error {
		procLogger := logger.With(
			"pubsub_msg_id", original.ID,
			"delivery", string(inbound.Delivery),
		)

		switch inbound.Delivery {
		case agent.DeliveryForeground:
			bus.EmitForeground(ctx, *inbound)
		default:
			bus.EmitBackground(ctx, *inbound)
		}

		procLogger.Debug("Push delivery emitted")
		return nil
	}
}
