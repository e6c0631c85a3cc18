package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-push-agent/internal/ingest"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

func TestInboundMessageTransformer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	testCases := []struct {
		name             string
		payload          string
		expectError      bool
		expectedDelivery agent.DeliveryPath
	}{
		{
			name:             "Happy Path - Foreground Delivery",
			payload:          `{"notification":{"title":"Hi","body":"There"},"data":{"type":"order_created"},"delivery":"foreground"}`,
			expectedDelivery: agent.DeliveryForeground,
		},
		{
			name:             "Data-Only Message Defaults To Background",
			payload:          `{"data":{"title":"Hi","type":"warranty_created"}}`,
			expectedDelivery: agent.DeliveryBackground,
		},
		{
			name:        "Failure - Malformed JSON",
			payload:     "not-json",
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := &messagepipeline.Message{
				MessageData: messagepipeline.MessageData{ID: "msg-1", Payload: []byte(tc.payload)},
			}

			inbound, skip, err := ingest.InboundMessageTransformer(ctx, msg)

			if tc.expectError {
				require.Error(t, err)
				assert.True(t, skip)
				assert.Contains(t, err.Error(), "failed to unmarshal push delivery")
				return
			}

			require.NoError(t, err)
			assert.False(t, skip)
			assert.Equal(t, tc.expectedDelivery, inbound.Delivery)
		})
	}
}
