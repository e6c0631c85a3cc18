// Package agent contains the public domain models and collaborator
// interfaces for the push agent.
package agent

import (
	"time"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

// DeliveryPath identifies which of the platform's mutually exclusive
// delivery handlers received a push message.
type DeliveryPath string

const (
	DeliveryForeground DeliveryPath = "foreground"
	DeliveryBackground DeliveryPath = "background"
)

// MessageNotification is the display block of a push delivery. It is only
// present for "display" messages; pure data messages omit it.
type MessageNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// InboundMessage represents one push delivery. It is read-only and is
// discarded once it has been turned into a LocalNotification or a
// navigation call.
type InboundMessage struct {
	Notification *MessageNotification `json:"notification,omitempty"`
	Data         map[string]string    `json:"data"`
	Delivery     DeliveryPath         `json:"delivery"`
}

// Importance is the OS-level priority profile of a notification channel.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceNormal Importance = "normal"
)

// Channel is an OS-level grouping of notifications sharing an
// importance/sound/vibration profile.
type Channel struct {
	ID          string
	Name        string
	Description string
	Importance  Importance
}

// LocalNotification is a locally rendered notification. Data is echoed
// from the inbound message so it can be recovered when the user taps.
type LocalNotification struct {
	ID        string
	Title     string
	Body      string
	ChannelID string
	Data      map[string]string
	Sound     bool
	Vibrate   bool
	IssuedAt  time.Time
}

// NavigationTarget is the resolved outcome of interpreting a tapped
// notification's payload.
type NavigationTarget struct {
	Route  string
	Params map[string]string
}

// Route names the navigation subsystem understands.
const (
	RouteOrderDetail         = "OrderDetail"
	RouteEmployeeOrderDetail = "EmployeeOrderDetail"
	RouteMyService           = "MyService"
	RouteWarranty            = "Warranty"
	RouteNotifications       = "Notification"
)

// UserType distinguishes the two account kinds the backend serves.
type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeEmployee UserType = "employee"
)

// AuthSnapshot is a read-only view of the current session. Components
// receive it as an explicit parameter; nothing here mutates it.
type AuthSnapshot struct {
	LoggedIn bool
	UserID   urn.URN
	UserType UserType
}

// TokenRegistration is the payload sent to the backend when binding a
// device push token to a logged-in user.
type TokenRegistration struct {
	UserID     urn.URN
	UserType   UserType
	Token      string
	DeviceInfo string
}

// WebPushSubscription is a browser push subscription the agent may
// forward rendered notifications to. Keys are base64url encoded.
type WebPushSubscription struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh" yaml:"p256dh"`
		Auth   string `json:"auth" yaml:"auth"`
	} `json:"keys" yaml:"keys"`
}

// InboxEntry is one stored notification in the per-user history backing
// the notification list screen.
type InboxEntry struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	ChannelID string            `json:"channel_id"`
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}
