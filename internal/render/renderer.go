package render

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

// DefaultTitle is displayed when a message carries no usable title.
const DefaultTitle = "Thông báo mới"

// Renderer fans a (title, body, data) triple out to every configured
// platform notifier. Display is best-effort: failures are logged and
// never propagated to the delivery path.
type Renderer struct {
	notifiers []agent.Notifier
	inbox     agent.Inbox
	auth      agent.AuthReader
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

func New(notifiers []agent.Notifier, inbox agent.Inbox, auth agent.AuthReader, logger *slog.Logger) *Renderer {
	return &Renderer{
		notifiers: notifiers,
		inbox:     inbox,
		auth:      auth,
		logger:    logger.With("component", "Renderer"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// EnsureChannels provisions the fixed channel set on every notifier.
// Re-provisioning is idempotent, so this is safe to call on every start.
func (r *Renderer) EnsureChannels(ctx context.Context) {
	channels := Channels()
	for _, n := range r.notifiers {
		if err := n.ProvisionChannels(ctx, channels); err != nil {
			r.logger.Warn("Channel provisioning failed", "err", err)
		}
	}
}

// Display builds and shows a local notification. The data payload is
// echoed into the notification so it can be recovered on tap.
func (r *Renderer) Display(ctx context.Context, title, body string, data map[string]string) {
	n := r.build(title, body, data)

	for _, notifier := range r.notifiers {
		if err := notifier.Display(ctx, n); err != nil {
			r.logger.Warn("Notification display failed", "channel", n.ChannelID, "err", err)
		}
	}

	r.record(ctx, n)
}

func (r *Renderer) build(title, body string, data map[string]string) agent.LocalNotification {
	if title == "" {
		title = DefaultTitle
	}
	id := data["notification_id"]
	if id == "" {
		id = r.newID()
	}
	return agent.LocalNotification{
		ID:        id,
		Title:     title,
		Body:      body,
		ChannelID: ChannelFor(KindOf(data["type"])),
		Data:      data,
		Sound:     true,
		Vibrate:   true,
		IssuedAt:  r.now(),
	}
}

// record appends the notification to the logged-in user's inbox. Pure
// history; a failed write never blocks display.
func (r *Renderer) record(ctx context.Context, n agent.LocalNotification) {
	if r.inbox == nil {
		return
	}
	snap := r.auth.Snapshot()
	if !snap.LoggedIn {
		return
	}
	if err := r.inbox.Append(ctx, snap.UserID, n); err != nil {
		r.logger.Warn("Inbox append failed", "id", n.ID, "err", err)
	}
}
