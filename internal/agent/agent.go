// Package agent is the orchestrator: the only component the outer
// surfaces talk to. It owns the durable AgentState, sequences
// multi-step flows on top of the ledger client, and persists every
// mutation wholesale to the state store.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/athena-agent/internal/errors"
	"github.com/athena-agent/internal/hash"
	"github.com/athena-agent/internal/ledger"
	"github.com/athena-agent/internal/logging"
	"github.com/athena-agent/internal/storage"
	"github.com/athena-agent/internal/types"
)

// minOptimizeBalance is the smallest liquid balance worth staking.
var minOptimizeBalance = decimal.NewFromInt(1)

// Ledger is the slice of the ledger client the orchestrator uses
type Ledger interface {
	GetVaultState(ctx context.Context) types.VaultState
	DepositToVault(ctx context.Context, amount decimal.Decimal) (*types.TransactionResult, error)
	TriggerSOS(ctx context.Context, destinationAddress string) (*types.SOSResult, error)
	StoreEvidenceHash(ctx context.Context, contentHash string, metadata string) (*types.TransactionResult, error)
	SetIntentRecorder(recorder ledger.IntentRecorder)
	IsOnline() bool
	Mode() types.ConnectionMode
}

// Orchestrator sequences use cases and owns the durable state. All
// state mutations go through the mutex; the state blob is persisted
// wholesale after each one.
type Orchestrator struct {
	ledger Ledger
	store  *storage.StateStore
	logger *logging.Logger

	mu      sync.Mutex
	state   *types.AgentState
	sos     *types.SOSIntent
	stale   *types.SOSIntent
}

// New restores persisted state and wires the orchestrator to the
// ledger. A dangling SOS intent found at startup is kept for
// inspection, never silently discarded.
func New(ctx context.Context, ldg Ledger, store *storage.StateStore) (*Orchestrator, error) {
	state, err := store.LoadState(ctx)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		ledger: ldg,
		store:  store,
		logger: logging.WithField("component", "agent"),
		state:  state,
	}

	stale, err := store.LoadIntent(ctx)
	if err != nil {
		return nil, err
	}
	if stale != nil {
		o.stale = stale
		o.logger.WithFields(map[string]interface{}{
			"phase":       string(stale.Phase),
			"destination": stale.Destination,
			"startedAt":   stale.StartedAt,
		}).Warn("Found interrupted SOS attempt from a previous run")
	}

	ldg.SetIntentRecorder(o)
	return o, nil
}

// CreateCase starts a new case bound to a ledger address. It always
// creates; checking for an existing case first is the caller's job.
func (o *Orchestrator) CreateCase(ctx context.Context, address string) (*types.Case, error) {
	if !ledger.ValidAddress(address) {
		return nil, apperrors.NewInvalidAddressError(address)
	}

	c := &types.Case{
		ID:        newCaseID(),
		Address:   address,
		Status:    types.CaseActive,
		CreatedAt: time.Now().UTC(),
	}

	o.mu.Lock()
	o.state.Case = c
	o.persistLocked(ctx)
	o.mu.Unlock()

	o.logger.WithField("caseId", c.ID).Info("Case created")
	return c, nil
}

// SecureEvidence hashes content together with a timestamp (so the same
// content secured twice yields distinct digests), anchors the digest on
// the ledger, and appends the record. Anchoring failures still produce
// a record marked failed; the append always happens.
func (o *Orchestrator) SecureEvidence(ctx context.Context, content string, evType types.EvidenceType, metadata string) (*types.EvidenceRecord, error) {
	if content == "" {
		return nil, apperrors.NewInvalidParameterError("content", "must not be empty")
	}
	if !types.ValidEvidenceType(evType) {
		return nil, apperrors.NewInvalidParameterError("type", fmt.Sprintf("unknown evidence type %q", evType))
	}

	now := time.Now().UTC()
	digest := hash.Content(content + now.Format(time.RFC3339Nano))

	record := types.EvidenceRecord{
		ID:          "ev-" + uuid.NewString(),
		ContentHash: digest,
		Type:        evType,
		CreatedAt:   now,
		Status:      types.EvidencePending,
	}

	result, err := o.ledger.StoreEvidenceHash(ctx, digest, metadata)
	switch {
	case err != nil:
		record.Status = types.EvidenceFailed
		o.logger.WithError(err).Warn("Evidence anchoring errored, recording as failed")
	case result.Success:
		record.Status = types.EvidenceOnChain
		record.TxID = result.TxID
	default:
		record.Status = types.EvidenceFailed
		o.logger.WithField("message", result.Message).Warn("Evidence anchoring rejected, recording as failed")
	}

	o.mu.Lock()
	o.state.Evidence = append(o.state.Evidence, record)
	o.persistLocked(ctx)
	o.mu.Unlock()

	return &record, nil
}

// CalculateBudget derives the escape plan from its inputs and the
// last-known vault total. It never fetches fresh balances; the periodic
// refresh keeps the cache close enough for planning purposes.
func (o *Orchestrator) CalculateBudget(ctx context.Context, params BudgetParams) (*types.EscapePlan, error) {
	if params.RiskLevel < 1 || params.RiskLevel > 10 {
		return nil, apperrors.NewInvalidParameterError("riskLevel", "must be between 1 and 10")
	}
	if params.Dependents < 0 {
		return nil, apperrors.NewInvalidParameterError("dependents", "must not be negative")
	}

	o.mu.Lock()
	plan := buildEscapePlan(params, o.state.Vault.TotalValue)
	o.state.Plan = plan
	o.persistLocked(ctx)
	o.mu.Unlock()

	o.logger.WithFields(map[string]interface{}{
		"tier":   string(plan.Tier),
		"target": plan.TargetAmount.String(),
	}).Info("Escape plan calculated")
	return plan, nil
}

// OptimizeYield moves the full liquid balance into the vault when it
// crosses the minimum threshold. Below the threshold the ledger is
// never called.
func (o *Orchestrator) OptimizeYield(ctx context.Context) (*types.YieldResult, error) {
	state := o.ledger.GetVaultState(ctx)
	o.cacheVaultState(ctx, state)

	if state.LiquidBalance.LessThan(minOptimizeBalance) {
		return &types.YieldResult{
			Optimized:       false,
			Message:         "nothing to optimize: liquid balance below minimum",
			BalanceBefore:   state.StakedValue,
			BalanceAfter:    state.StakedValue,
			ProjectedPeriod: "monthly",
		}, nil
	}

	result, err := o.ledger.DepositToVault(ctx, state.LiquidBalance)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return &types.YieldResult{
			Optimized:       false,
			Message:         result.Message,
			BalanceBefore:   state.StakedValue,
			BalanceAfter:    state.StakedValue,
			ProjectedPeriod: "monthly",
		}, nil
	}

	newBalance := state.StakedValue.Add(state.LiquidBalance)
	projected := newBalance.
		Mul(decimal.NewFromFloat(state.APY)).
		Div(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(12))

	o.logger.WithFields(map[string]interface{}{
		"deposited": state.LiquidBalance.String(),
		"txId":      result.TxID,
	}).Info("Liquid balance staked into vault")

	return &types.YieldResult{
		Optimized:       true,
		Message:         "liquid balance deposited into yield vault",
		TxID:            result.TxID,
		BalanceBefore:   state.StakedValue,
		BalanceAfter:    newBalance,
		ProjectedYield:  projected,
		ProjectedPeriod: "monthly",
	}, nil
}

// TriggerSOS runs the emergency protocol. The case is marked EVACUATED
// and persisted before the ledger call so a crash mid-call still leaves
// the case marked evacuated. The state wipe happens only on success; a
// failed attempt keeps everything, including the intent record, for
// inspection.
func (o *Orchestrator) TriggerSOS(ctx context.Context, destinationAddress string) (*types.SOSResult, error) {
	if !ledger.ValidAddress(destinationAddress) {
		return nil, apperrors.NewInvalidAddressError(destinationAddress)
	}

	o.mu.Lock()
	if o.state.Case != nil && o.state.Case.Status.CanTransitionTo(types.CaseEvacuated) {
		o.state.Case.Status = types.CaseEvacuated
	}
	o.sos = &types.SOSIntent{
		Destination: destinationAddress,
		Phase:       types.PhaseStarted,
		TxIDs:       []string{},
		StartedAt:   time.Now().UTC(),
	}
	o.persistLocked(ctx)
	o.mu.Unlock()

	result, err := o.ledger.TriggerSOS(ctx, destinationAddress)

	o.mu.Lock()
	o.sos = nil
	o.mu.Unlock()

	if err != nil {
		return nil, err
	}

	if result.Success {
		if wipeErr := o.ClearLocalState(ctx); wipeErr != nil {
			o.logger.WithError(wipeErr).Error("State wipe after SOS failed")
		}
	} else {
		o.logger.Warn("SOS attempt failed, keeping state and intent record")
	}
	return result, nil
}

// RecordPhase implements ledger.IntentRecorder. Failures to persist the
// marker never interrupt the running protocol.
func (o *Orchestrator) RecordPhase(ctx context.Context, phase types.SOSPhase, txIDs []string) {
	o.mu.Lock()
	intent := o.sos
	if intent == nil {
		o.mu.Unlock()
		return
	}
	intent.Phase = phase
	intent.TxIDs = append([]string{}, txIDs...)
	snapshot := *intent
	o.mu.Unlock()

	if err := o.store.SaveIntent(ctx, &snapshot); err != nil {
		o.logger.WithError(err).Warn("Could not persist SOS intent marker")
	}
}

// ClearLocalState wipes everything: in-memory state, the persisted
// blob, and any intent record. Safe to call with nothing saved.
func (o *Orchestrator) ClearLocalState(ctx context.Context) error {
	o.mu.Lock()
	o.state = types.EmptyAgentState()
	o.stale = nil
	o.mu.Unlock()

	if err := o.store.ClearState(ctx); err != nil {
		return err
	}
	o.logger.Info("Local state wiped")
	return nil
}

// GetState returns a copy of the current state
func (o *Orchestrator) GetState() *types.AgentState {
	o.mu.Lock()
	defer o.mu.Unlock()

	copied := *o.state
	copied.Evidence = append([]types.EvidenceRecord{}, o.state.Evidence...)
	if o.state.Case != nil {
		c := *o.state.Case
		copied.Case = &c
	}
	if o.state.Plan != nil {
		p := *o.state.Plan
		copied.Plan = &p
	}
	return &copied
}

// DanglingIntent returns the interrupted SOS intent found at startup,
// or nil when the previous run completed cleanly.
func (o *Orchestrator) DanglingIntent() *types.SOSIntent {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stale == nil {
		return nil
	}
	intent := *o.stale
	return &intent
}

// IsOnline reflects the ledger client's connectivity flag
func (o *Orchestrator) IsOnline() bool {
	return o.ledger.IsOnline()
}

// RefreshVaultState re-reads holdings and updates the cached snapshot.
// Called by the periodic refresher; failures are already absorbed by
// the ledger so this never errors.
func (o *Orchestrator) RefreshVaultState(ctx context.Context) types.VaultState {
	state := o.ledger.GetVaultState(ctx)
	o.cacheVaultState(ctx, state)
	return state
}

func (o *Orchestrator) cacheVaultState(ctx context.Context, state types.VaultState) {
	o.mu.Lock()
	o.state.Vault = state
	o.persistLocked(ctx)
	o.mu.Unlock()
}

// persistLocked writes the state blob. Persistence failures are logged
// rather than propagated: losing a snapshot is recoverable, blocking
// the operation that produced it is not. Callers hold the mutex.
func (o *Orchestrator) persistLocked(ctx context.Context) {
	o.state.UpdatedAt = time.Now().UTC()
	if err := o.store.SaveState(ctx, o.state); err != nil {
		o.logger.WithError(err).Error("Could not persist agent state")
	}
}

func newCaseID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("case-%d-%s", time.Now().UnixNano(), suffix)
}
