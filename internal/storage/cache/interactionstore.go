package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

// compile-time interface checks
var (
	_ agent.TokenCache       = (*TokenCache)(nil)
	_ agent.InteractionStore = (*InteractionStore)(nil)
)

// InteractionStore holds at most one pending notification tap payload,
// recorded while the agent was down and consumed on the next start.
type InteractionStore struct {
	client Client
	key    string
}

func NewInteractionStore(client Client, deviceID string) *InteractionStore {
	return &InteractionStore{
		client: client,
		key:    fmt.Sprintf("pushagent:pending:%s", deviceID),
	}
}

// SetPending overwrites any previously recorded tap. Only the most
// recent interaction matters for cold-start dispatch.
func (s *InteractionStore) SetPending(ctx context.Context, data map[string]string) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode pending interaction: %w", err)
	}
	if err := s.client.Set(ctx, s.key, string(payload), 0); err != nil {
		return fmt.Errorf("store pending interaction: %w", err)
	}
	return nil
}

// TakePending reads and deletes the pending tap in one logical step, so
// a restart loop cannot replay the same navigation twice.
func (s *InteractionStore) TakePending(ctx context.Context) (map[string]string, bool, error) {
	raw, err := s.client.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read pending interaction: %w", err)
	}

	if err := s.client.Del(ctx, s.key); err != nil {
		return nil, false, fmt.Errorf("consume pending interaction: %w", err)
	}

	var data map[string]string
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, false, fmt.Errorf("decode pending interaction: %w", err)
	}
	return data, true, nil
}
