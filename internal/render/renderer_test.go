package render_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-push-agent/internal/render"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mocks ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) ProvisionChannels(ctx context.Context, channels []agent.Channel) error {
	return m.Called(ctx, channels).Error(0)
}

func (m *mockNotifier) Display(ctx context.Context, n agent.LocalNotification) error {
	return m.Called(ctx, n).Error(0)
}

type mockInbox struct {
	mock.Mock
}

func (m *mockInbox) Append(ctx context.Context, user urn.URN, n agent.LocalNotification) error {
	return m.Called(ctx, user, n).Error(0)
}

func (m *mockInbox) List(ctx context.Context, user urn.URN, limit int) ([]agent.InboxEntry, error) {
	args := m.Called(ctx, user, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]agent.InboxEntry), args.Error(1)
}

func (m *mockInbox) MarkRead(ctx context.Context, user urn.URN, id string) error {
	return m.Called(ctx, user, id).Error(0)
}

type staticAuth struct {
	snap agent.AuthSnapshot
}

func (s staticAuth) Snapshot() agent.AuthSnapshot { return s.snap }

// --- Tests ---

func TestDisplay_TitleFallbackAndDataEcho(t *testing.T) {
	ctx := context.Background()
	notifier := new(mockNotifier)
	r := render.New([]agent.Notifier{notifier}, nil, staticAuth{}, newTestLogger())

	data := map[string]string{"type": "order_created", "order_id": "42"}

	var shown agent.LocalNotification
	notifier.On("Display", ctx, mock.Anything).Run(func(args mock.Arguments) {
		shown = args.Get(1).(agent.LocalNotification)
	}).Return(nil)

	r.Display(ctx, "", "engine check done", data)

	notifier.AssertExpectations(t)
	assert.Equal(t, render.DefaultTitle, shown.Title)
	assert.Equal(t, "engine check done", shown.Body)
	assert.Equal(t, render.ChannelOrders, shown.ChannelID)
	assert.Equal(t, data, shown.Data)
	assert.True(t, shown.Sound)
	assert.True(t, shown.Vibrate)
	assert.False(t, shown.IssuedAt.IsZero())
	assert.NotEmpty(t, shown.ID)
}

func TestDisplay_NotifierFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	failing := new(mockNotifier)
	healthy := new(mockNotifier)
	r := render.New([]agent.Notifier{failing, healthy}, nil, staticAuth{}, newTestLogger())

	failing.On("Display", ctx, mock.Anything).Return(errors.New("platform denied display"))
	healthy.On("Display", ctx, mock.Anything).Return(nil)

	require.NotPanics(t, func() {
		r.Display(ctx, "Hi", "", nil)
	})

	// A failing notifier must not stop the others.
	healthy.AssertExpectations(t)
}

func TestDisplay_RecordsInboxForLoggedInUser(t *testing.T) {
	ctx := context.Background()
	notifier := new(mockNotifier)
	inbox := new(mockInbox)
	user, _ := urn.Parse("urn:sm:user:customer-7")
	auth := staticAuth{snap: agent.AuthSnapshot{LoggedIn: true, UserID: user, UserType: agent.UserTypeCustomer}}

	r := render.New([]agent.Notifier{notifier}, inbox, auth, newTestLogger())

	notifier.On("Display", ctx, mock.Anything).Return(nil)
	inbox.On("Append", ctx, user, mock.Anything).Return(nil)

	r.Display(ctx, "Order update", "done", map[string]string{"type": "order_completed"})

	inbox.AssertExpectations(t)
}

func TestDisplay_SkipsInboxWhenLoggedOut(t *testing.T) {
	ctx := context.Background()
	notifier := new(mockNotifier)
	inbox := new(mockInbox)

	r := render.New([]agent.Notifier{notifier}, inbox, staticAuth{}, newTestLogger())

	notifier.On("Display", ctx, mock.Anything).Return(nil)

	r.Display(ctx, "Hello", "", nil)

	inbox.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureChannels_Idempotent(t *testing.T) {
	ctx := context.Background()
	notifier := new(mockNotifier)
	r := render.New([]agent.Notifier{notifier}, nil, staticAuth{}, newTestLogger())

	notifier.On("ProvisionChannels", ctx, render.Channels()).Return(nil).Twice()

	r.EnsureChannels(ctx)
	r.EnsureChannels(ctx)

	notifier.AssertExpectations(t)
}
