// Package binding sits between the orchestrator and the outer surfaces
// (HTTP handlers, SSE stream). It holds an observable view of what the
// agent is doing and fans state changes out to subscribers. Operations
// run through the binding always terminate in a final state: the Busy
// flag is cleared on every path, success or failure.
package binding

import (
	"context"
	"sync"
	"time"

	"github.com/athena-agent/internal/logging"
	"github.com/athena-agent/internal/types"
)

// maxViewLogs bounds the append-only log ring shown to subscribers
const maxViewLogs = 100

// ViewState is the observable snapshot consumed by the outer surfaces
type ViewState struct {
	Busy      bool             `json:"busy"`
	Operation string           `json:"operation"`
	IsOnline  bool             `json:"isOnline"`
	Logs      []string         `json:"logs"`
	LastSOS   *types.SOSResult `json:"lastSos,omitempty"`
	LastError string           `json:"lastError,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Event is one view-state change pushed to subscribers
type Event struct {
	State ViewState `json:"state"`
}

// Binding owns the view state and the subscriber set
type Binding struct {
	logger *logging.Logger

	mu          sync.Mutex
	state       ViewState
	subscribers map[chan Event]struct{}
}

// New creates an idle binding
func New() *Binding {
	return &Binding{
		logger: logging.WithField("component", "binding"),
		state: ViewState{
			Logs:      []string{},
			UpdatedAt: time.Now().UTC(),
		},
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a new event channel. The returned cancel function
// removes the subscription and closes the channel.
func (b *Binding) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// State returns a copy of the current view state
func (b *Binding) State() ViewState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Run executes an operation through the binding: flips Busy, runs fn,
// records the outcome and always returns to a non-busy final state.
// The error from fn is passed through untouched.
func (b *Binding) Run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	b.begin(operation)
	err := fn(ctx)
	b.finish(operation, err)
	return err
}

func (b *Binding) begin(operation string) {
	b.mu.Lock()
	b.state.Busy = true
	b.state.Operation = operation
	b.state.LastError = ""
	b.appendLogLocked(operation + " started")
	b.publishLocked()
	b.mu.Unlock()
}

func (b *Binding) finish(operation string, err error) {
	b.mu.Lock()
	b.state.Busy = false
	b.state.Operation = ""
	if err != nil {
		b.state.LastError = err.Error()
		b.appendLogLocked(operation + " failed: " + err.Error())
	} else {
		b.appendLogLocked(operation + " finished")
	}
	b.publishLocked()
	b.mu.Unlock()
}

// AppendLog streams a log line into the view state
func (b *Binding) AppendLog(line string) {
	b.mu.Lock()
	b.appendLogLocked(line)
	b.publishLocked()
	b.mu.Unlock()
}

// SetOnline updates the connectivity flag shown to subscribers
func (b *Binding) SetOnline(online bool) {
	b.mu.Lock()
	if b.state.IsOnline != online {
		b.state.IsOnline = online
		b.publishLocked()
	}
	b.mu.Unlock()
}

// RecordSOS stores the outcome of the latest SOS attempt and streams
// its log lines
func (b *Binding) RecordSOS(result *types.SOSResult) {
	b.mu.Lock()
	b.state.LastSOS = result
	for _, line := range result.Logs {
		b.appendLogLocked(line)
	}
	b.publishLocked()
	b.mu.Unlock()
}

func (b *Binding) appendLogLocked(line string) {
	b.state.Logs = append(b.state.Logs, line)
	if len(b.state.Logs) > maxViewLogs {
		b.state.Logs = b.state.Logs[len(b.state.Logs)-maxViewLogs:]
	}
	b.state.UpdatedAt = time.Now().UTC()
}

// publishLocked fans the current state out to all subscribers. Sends
// never block: a subscriber with a full channel misses the event and
// catches up on the next one.
func (b *Binding) publishLocked() {
	event := Event{State: b.snapshotLocked()}
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *Binding) snapshotLocked() ViewState {
	copied := b.state
	copied.Logs = append([]string{}, b.state.Logs...)
	if b.state.LastSOS != nil {
		sos := *b.state.LastSOS
		copied.LastSOS = &sos
	}
	return copied
}
