package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

// stateTTL bounds how long an authorization flow may stay pending.
const stateTTL = 10 * time.Minute

// redisStateStore implements adapter.StateStore on Redis. The TTL expires
// abandoned flows and GETDEL makes consumption atomic, so a state can be
// completed at most once.
type redisStateStore struct {
	client *redis.Client
}

// NewRedisStateStore creates a new Redis backed state store.
func NewRedisStateStore(client *redis.Client) adapter.StateStore {
	return &redisStateStore{client: client}
}

func stateKey(state string) string {
	return "oauth:state:" + state
}

// Put stores the pending connection under the state token.
func (s *redisStateStore) Put(ctx context.Context, state string, pending adapter.PendingConnection) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to encode pending connection: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(state), payload, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to store authorization state: %w", err)
	}
	return nil
}

// Take retrieves and consumes the pending connection for a state token.
func (s *redisStateStore) Take(ctx context.Context, state string) (*adapter.PendingConnection, error) {
	payload, err := s.client.GetDel(ctx, stateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domainerror.NewBankingError(
			domainerror.ErrCodeInvalidState,
			"authorization state is unknown or expired",
			domainerror.ErrInvalidState,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read authorization state: %w", err)
	}

	var pending adapter.PendingConnection
	if err := json.Unmarshal([]byte(payload), &pending); err != nil {
		return nil, fmt.Errorf("failed to decode pending connection: %w", err)
	}
	return &pending, nil
}
