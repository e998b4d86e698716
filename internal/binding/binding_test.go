package binding

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athena-agent/internal/types"
)

func TestRunClearsBusyOnSuccess(t *testing.T) {
	b := New()

	err := b.Run(context.Background(), "optimize", func(ctx context.Context) error {
		assert.True(t, b.State().Busy)
		assert.Equal(t, "optimize", b.State().Operation)
		return nil
	})
	require.NoError(t, err)

	state := b.State()
	assert.False(t, state.Busy)
	assert.Empty(t, state.Operation)
	assert.Empty(t, state.LastError)
}

func TestRunClearsBusyOnFailure(t *testing.T) {
	b := New()

	err := b.Run(context.Background(), "sos", func(ctx context.Context) error {
		return errors.New("transfer reverted")
	})
	require.Error(t, err)

	state := b.State()
	assert.False(t, state.Busy, "operation must always reach a final state")
	assert.Contains(t, state.LastError, "transfer reverted")
}

func TestSubscribeReceivesEvents(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.AppendLog("hello")

	event := <-ch
	assert.Contains(t, event.State.Logs, "hello")
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe()
	defer cancel()

	// Overflow the channel buffer; publishes must not block.
	for i := 0; i < 100; i++ {
		b.AppendLog("line")
	}

	assert.Len(t, ch, cap(ch))
	state := b.State()
	assert.Len(t, state.Logs, 100)
}

func TestCancelledSubscriberStopsReceiving(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe()

	cancel()
	cancel() // safe to call twice

	_, open := <-ch
	assert.False(t, open)
}

func TestLogRingBounded(t *testing.T) {
	b := New()

	for i := 0; i < maxViewLogs+50; i++ {
		b.AppendLog("line")
	}

	assert.Len(t, b.State().Logs, maxViewLogs)
}

func TestRecordSOS(t *testing.T) {
	b := New()

	b.RecordSOS(&types.SOSResult{
		Success:           true,
		TransferredAmount: decimal.NewFromInt(550),
		Logs:              []string{"SOS protocol initiating.", "SOS protocol complete."},
	})

	state := b.State()
	require.NotNil(t, state.LastSOS)
	assert.True(t, state.LastSOS.Success)
	assert.Contains(t, state.Logs, "SOS protocol complete.")
}

func TestSetOnline(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.SetOnline(true)
	event := <-ch
	assert.True(t, event.State.IsOnline)

	// No event for an unchanged flag.
	b.SetOnline(true)
	assert.Empty(t, ch)
}

func TestStateReturnsCopy(t *testing.T) {
	b := New()
	b.AppendLog("original")

	state := b.State()
	state.Logs[0] = "mutated"

	assert.Equal(t, "original", b.State().Logs[0])
}
