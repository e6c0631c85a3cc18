// Package ingest adapts the Pub/Sub delivery stream into the agent's
// event bus.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

// InboundMessageTransformer is a dataflow Transformer that safely
// unmarshals a raw push delivery into a structured agent.InboundMessage.
//
// Malformed payloads return skip=true so the StreamingService can apply
// its Nack/DLQ handling instead of crashing the pipeline.
func InboundMessageTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*agent.InboundMessage, bool, error) {
	var inbound agent.InboundMessage
	if err := json.Unmarshal(msg.Payload, &inbound); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal push delivery from message %s: %w", msg.ID, err)
	}

	// Deliveries that don't declare a path arrived while nothing was in
	// the foreground.
	if inbound.Delivery == "" {
		inbound.Delivery = agent.DeliveryBackground
	}

	return &inbound, false, nil
}
