package route_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tinywideclouds/go-push-agent/internal/route"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mocks ---

type mockNavigator struct {
	mock.Mock
	ready bool
}

func (m *mockNavigator) Ready() bool { return m.ready }

func (m *mockNavigator) Navigate(ctx context.Context, target agent.NavigationTarget) error {
	return m.Called(ctx, target).Error(0)
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

// --- Resolve ---

func TestResolve_RoutingTable(t *testing.T) {
	cases := []struct {
		name     string
		data     map[string]string
		userType agent.UserType
		want     agent.NavigationTarget
	}{
		{
			name:     "order type with id, customer",
			data:     map[string]string{"type": "order_status_update", "order_id": "42"},
			userType: agent.UserTypeCustomer,
			want:     agent.NavigationTarget{Route: "OrderDetail", Params: map[string]string{"id": "42"}},
		},
		{
			name:     "order type with id, employee",
			data:     map[string]string{"type": "order_status_update", "order_id": "42"},
			userType: agent.UserTypeEmployee,
			want:     agent.NavigationTarget{Route: "EmployeeOrderDetail", Params: map[string]string{"id": "42"}},
		},
		{
			name:     "order type without id",
			data:     map[string]string{"type": "order_completed"},
			userType: agent.UserTypeCustomer,
			want:     agent.NavigationTarget{Route: "MyService"},
		},
		{
			name:     "warranty created",
			data:     map[string]string{"type": "warranty_created", "warranty_period": "24"},
			userType: agent.UserTypeCustomer,
			want:     agent.NavigationTarget{Route: "Warranty"},
		},
		{
			name:     "warranty expiring",
			data:     map[string]string{"type": "warranty_expiring"},
			userType: agent.UserTypeEmployee,
			want:     agent.NavigationTarget{Route: "Warranty"},
		},
		{
			name:     "unknown type but order_id present",
			data:     map[string]string{"type": "chat_message", "order_id": "7"},
			userType: agent.UserTypeEmployee,
			want:     agent.NavigationTarget{Route: "EmployeeOrderDetail", Params: map[string]string{"id": "7"}},
		},
		{
			name:     "no type, order_id present",
			data:     map[string]string{"order_id": "7"},
			userType: agent.UserTypeCustomer,
			want:     agent.NavigationTarget{Route: "OrderDetail", Params: map[string]string{"id": "7"}},
		},
		{
			name:     "unrecognized type, no order_id",
			data:     map[string]string{"type": "promotion"},
			userType: agent.UserTypeCustomer,
			want:     agent.NavigationTarget{Route: "Notification"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := route.Resolve(tc.data, tc.userType)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolve_EmptyDataAlwaysFallsBack(t *testing.T) {
	for _, userType := range []agent.UserType{agent.UserTypeCustomer, agent.UserTypeEmployee, ""} {
		assert.Equal(t, agent.NavigationTarget{Route: "Notification"}, route.Resolve(nil, userType))
		assert.Equal(t, agent.NavigationTarget{Route: "Notification"}, route.Resolve(map[string]string{}, userType))
	}
}

// --- HandleTap ---

func TestHandleTap_NavigatesOnce(t *testing.T) {
	ctx := context.Background()
	nav := new(mockNavigator)
	r := route.NewRouter(nav, nil, newTestLogger())

	want := agent.NavigationTarget{Route: "OrderDetail", Params: map[string]string{"id": "42"}}
	nav.On("Navigate", ctx, want).Return(nil).Once()

	r.HandleTap(ctx, map[string]string{"type": "order_created", "order_id": "42"}, agent.AuthSnapshot{UserType: agent.UserTypeCustomer})

	nav.AssertExpectations(t)
	nav.AssertNumberOfCalls(t, "Navigate", 1)
}

func TestHandleTap_FallsBackToNotificationListOnError(t *testing.T) {
	ctx := context.Background()
	nav := new(mockNavigator)
	r := route.NewRouter(nav, nil, newTestLogger())

	target := agent.NavigationTarget{Route: "OrderDetail", Params: map[string]string{"id": "42"}}
	nav.On("Navigate", ctx, target).Return(errors.New("navigator not mounted"))
	nav.On("Navigate", ctx, agent.NavigationTarget{Route: "Notification"}).Return(nil)

	assert.NotPanics(t, func() {
		r.HandleTap(ctx, map[string]string{"type": "order_created", "order_id": "42"}, agent.AuthSnapshot{UserType: agent.UserTypeCustomer})
	})

	nav.AssertExpectations(t)
}

func TestHandleTap_NoDoubleFallbackWhenAlreadyOnNotificationList(t *testing.T) {
	ctx := context.Background()
	nav := new(mockNavigator)
	r := route.NewRouter(nav, nil, newTestLogger())

	nav.On("Navigate", ctx, agent.NavigationTarget{Route: "Notification"}).Return(errors.New("still broken"))

	r.HandleTap(ctx, nil, agent.AuthSnapshot{})

	nav.AssertNumberOfCalls(t, "Navigate", 1)
}

func TestHandleTap_MarksInboxRead(t *testing.T) {
	ctx := context.Background()
	nav := new(mockNavigator)
	inbox := new(mockInbox)
	user, _ := urn.Parse("urn:sm:user:tap-user")
	r := route.NewRouter(nav, inbox, newTestLogger())

	nav.On("Navigate", ctx, mock.Anything).Return(nil)
	inbox.On("MarkRead", ctx, user, "n-9").Return(nil)

	r.HandleTap(ctx,
		map[string]string{"type": "order_created", "order_id": "1", "notification_id": "n-9"},
		agent.AuthSnapshot{LoggedIn: true, UserID: user, UserType: agent.UserTypeCustomer},
	)

	inbox.AssertExpectations(t)
}
