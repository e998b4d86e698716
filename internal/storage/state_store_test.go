package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athena-agent/internal/types"
)

func setupTestStore(t *testing.T) *StateStore {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStateStore(NewRedisStoreFromClient(client))
}

func TestLoadStateEmpty(t *testing.T) {
	store := setupTestStore(t)

	state, err := store.LoadState(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state.Case)
	assert.Empty(t, state.Evidence)
	assert.False(t, state.Vault.IsOnline)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	state := types.EmptyAgentState()
	state.Case = &types.Case{
		ID:        "case_1700000000_ab12cd34",
		Address:   "0x1111111111111111111111111111111111111111",
		Status:    types.CaseActive,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	state.Evidence = append(state.Evidence, types.EvidenceRecord{
		ID:          "ev_1",
		ContentHash: "0xabc",
		Type:        types.EvidenceText,
		Status:      types.EvidenceOnChain,
		TxID:        "0xdeadbeef",
	})
	state.Vault.LiquidBalance = decimal.RequireFromString("50")

	require.NoError(t, store.SaveState(ctx, state))

	loaded, err := store.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded.Case)
	assert.Equal(t, state.Case.ID, loaded.Case.ID)
	assert.Equal(t, types.CaseActive, loaded.Case.Status)
	require.Len(t, loaded.Evidence, 1)
	assert.Equal(t, types.EvidenceOnChain, loaded.Evidence[0].Status)
	assert.True(t, loaded.Vault.LiquidBalance.Equal(decimal.RequireFromString("50")))
}

func TestSaveOverwritesWholesale(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := types.EmptyAgentState()
	first.Evidence = append(first.Evidence, types.EvidenceRecord{ID: "ev_1"})
	require.NoError(t, store.SaveState(ctx, first))

	second := types.EmptyAgentState()
	require.NoError(t, store.SaveState(ctx, second))

	loaded, err := store.LoadState(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Evidence)
}

func TestClearStateIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// Clearing with nothing saved must not fail
	require.NoError(t, store.ClearState(ctx))

	state := types.EmptyAgentState()
	state.Case = &types.Case{ID: "case_x", Status: types.CaseActive}
	require.NoError(t, store.SaveState(ctx, state))

	require.NoError(t, store.ClearState(ctx))
	require.NoError(t, store.ClearState(ctx))

	loaded, err := store.LoadState(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded.Case)
	assert.Empty(t, loaded.Evidence)
}

func TestIntentLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	intent, err := store.LoadIntent(ctx)
	require.NoError(t, err)
	assert.Nil(t, intent)

	saved := &types.SOSIntent{
		Destination: "0x2222222222222222222222222222222222222222",
		Phase:       types.PhaseLiquidated,
		TxIDs:       []string{"0xaaa"},
		StartedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.SaveIntent(ctx, saved))

	intent, err = store.LoadIntent(ctx)
	require.NoError(t, err)
	require.NotNil(t, intent)
	assert.Equal(t, types.PhaseLiquidated, intent.Phase)
	assert.Equal(t, saved.Destination, intent.Destination)

	require.NoError(t, store.ClearIntent(ctx))
	intent, err = store.LoadIntent(ctx)
	require.NoError(t, err)
	assert.Nil(t, intent)
}

func TestClearStateRemovesIntent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveIntent(ctx, &types.SOSIntent{Phase: types.PhaseStarted}))
	require.NoError(t, store.ClearState(ctx))

	intent, err := store.LoadIntent(ctx)
	require.NoError(t, err)
	assert.Nil(t, intent)
}
