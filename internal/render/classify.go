// Package render turns inbound push content into locally displayed
// notifications, routed to the correct channel.
package render

import (
	"strings"

	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

// Fixed channel IDs. Channels are provisioned once at startup and never
// change at runtime.
const (
	ChannelDefault  = "default"
	ChannelOrders   = "orders"
	ChannelWarranty = "warranty"
)

// MessageKind is the tagged classification of a message's "type" value.
type MessageKind int

const (
	KindGeneric MessageKind = iota
	KindOrder
	KindWarranty
)

var orderTypes = map[string]struct{}{
	"order_created":       {},
	"order_status_update": {},
	"order_assigned":      {},
	"order_completed":     {},
}

var warrantyTypes = map[string]struct{}{
	"warranty_created":  {},
	"warranty_expiring": {},
}

// KindOf classifies a message type. Known types map explicitly; values
// outside the known set fall back to a substring probe so that loosely
// named types ("order_reminder") still land on the right channel.
func KindOf(messageType string) MessageKind {
	if _, ok := orderTypes[messageType]; ok {
		return KindOrder
	}
	if _, ok := warrantyTypes[messageType]; ok {
		return KindWarranty
	}
	switch {
	case strings.Contains(messageType, "order"):
		return KindOrder
	case strings.Contains(messageType, "warranty"):
		return KindWarranty
	}
	return KindGeneric
}

// ChannelFor maps a kind to its channel. Total: every kind has a channel.
func ChannelFor(kind MessageKind) string {
	switch kind {
	case KindOrder:
		return ChannelOrders
	case KindWarranty:
		return ChannelWarranty
	default:
		return ChannelDefault
	}
}

// Channels returns the fixed channel set the agent provisions at startup.
func Channels() []agent.Channel {
	return []agent.Channel{
		{
			ID:          ChannelDefault,
			Name:        "General",
			Description: "General announcements and account updates",
			Importance:  agent.ImportanceHigh,
		},
		{
			ID:          ChannelOrders,
			Name:        "Orders",
			Description: "Service order status updates",
			Importance:  agent.ImportanceHigh,
		},
		{
			ID:          ChannelWarranty,
			Name:        "Warranty",
			Description: "Warranty registration and expiry reminders",
			Importance:  agent.ImportanceNormal,
		},
	}
}
