// Package worker runs the periodic vault-state refresh.
package worker

import (
	"context"
	"time"

	"github.com/athena-agent/internal/binding"
	"github.com/athena-agent/internal/logging"
	"github.com/athena-agent/internal/types"
)

// Refresher re-reads holdings on a fixed interval and pushes the result
// into the binding. The refresh is advisory: its failures are silent
// and nothing critical depends on the cached snapshot — the SOS
// protocol always performs its own fresh read.
type Refresher struct {
	agent    Agent
	binding  *binding.Binding
	interval time.Duration
	logger   *logging.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Agent is the slice of the orchestrator the refresher drives
type Agent interface {
	RefreshVaultState(ctx context.Context) types.VaultState
	IsOnline() bool
}

// NewRefresher creates a refresher with the given interval
func NewRefresher(agent Agent, bnd *binding.Binding, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Refresher{
		agent:    agent,
		binding:  bnd,
		interval: interval,
		logger:   logging.WithField("component", "refresh-worker"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the refresh loop in a goroutine. An immediate first
// refresh runs before the ticker takes over.
func (r *Refresher) Start(ctx context.Context) {
	r.logger.WithField("interval", r.interval.String()).Info("Starting vault refresh worker")
	go r.loop(ctx)
}

// Stop signals the loop to exit and waits for it to finish
func (r *Refresher) Stop() {
	close(r.stopCh)
	<-r.doneCh
	r.logger.Info("Vault refresh worker stopped")
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	state := r.agent.RefreshVaultState(ctx)
	if r.binding != nil {
		r.binding.SetOnline(state.IsOnline)
	}
	if !state.IsOnline {
		// Advisory refresh only; debug level keeps offline runs quiet.
		r.logger.Debug("Vault refresh returned offline snapshot")
	}
}
