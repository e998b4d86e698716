package storage

import (
	"context"
	"encoding/json"
	"errors"

	apperrors "github.com/athena-agent/internal/errors"
	"github.com/athena-agent/internal/types"
	"github.com/redis/go-redis/v9"
)

const (
	// agentStateKey is the single well-known key holding the serialized
	// AgentState. The whole value is replaced on every mutation and
	// deleted on wipe.
	agentStateKey = "athena:agent:state"

	// sosIntentKey holds the in-flight SOS intent record. Its presence
	// after a restart means an SOS attempt did not run to completion.
	sosIntentKey = "athena:agent:sos-intent"
)

// StateStore persists the orchestrator's durable state
type StateStore struct {
	redis *RedisStore
}

// NewStateStore creates a state store backed by Redis
func NewStateStore(redis *RedisStore) *StateStore {
	return &StateStore{redis: redis}
}

// SaveState overwrites the persisted AgentState wholesale
func (s *StateStore) SaveState(ctx context.Context, state *types.AgentState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return apperrors.NewStorageError("SaveState", err)
	}
	// No TTL: the state survives until explicitly wiped
	if err := s.redis.client.Set(ctx, agentStateKey, data, 0).Err(); err != nil {
		return apperrors.NewStorageError("SaveState", err)
	}
	return nil
}

// LoadState restores the persisted AgentState. When no state has ever
// been saved it returns a fresh empty state, not an error.
func (s *StateStore) LoadState(ctx context.Context) (*types.AgentState, error) {
	data, err := s.redis.client.Get(ctx, agentStateKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.EmptyAgentState(), nil
		}
		return nil, apperrors.NewStorageError("LoadState", err)
	}

	var state types.AgentState
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt blob is unrecoverable; start clean rather than fail
		return types.EmptyAgentState(), nil
	}
	if state.Evidence == nil {
		state.Evidence = []types.EvidenceRecord{}
	}
	return &state, nil
}

// ClearState erases all persisted state. Safe to call when nothing has
// been saved; the wipe is a security feature and must always succeed
// for absent keys.
func (s *StateStore) ClearState(ctx context.Context) error {
	if err := s.redis.client.Del(ctx, agentStateKey, sosIntentKey).Err(); err != nil {
		return apperrors.NewStorageError("ClearState", err)
	}
	return nil
}

// SaveIntent records an in-flight SOS attempt
func (s *StateStore) SaveIntent(ctx context.Context, intent *types.SOSIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return apperrors.NewStorageError("SaveIntent", err)
	}
	if err := s.redis.client.Set(ctx, sosIntentKey, data, 0).Err(); err != nil {
		return apperrors.NewStorageError("SaveIntent", err)
	}
	return nil
}

// LoadIntent returns the dangling SOS intent, or nil when none exists
func (s *StateStore) LoadIntent(ctx context.Context) (*types.SOSIntent, error) {
	data, err := s.redis.client.Get(ctx, sosIntentKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("LoadIntent", err)
	}

	var intent types.SOSIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, nil
	}
	return &intent, nil
}

// ClearIntent removes the SOS intent record
func (s *StateStore) ClearIntent(ctx context.Context) error {
	if err := s.redis.client.Del(ctx, sosIntentKey).Err(); err != nil {
		return apperrors.NewStorageError("ClearIntent", err)
	}
	return nil
}
