// Package types provides common type definitions for the Athena agent.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConnectionMode represents how the ledger client talks to the network
type ConnectionMode string

const (
	// ModeLive represents a real JSON-RPC connection to the chain
	ModeLive ConnectionMode = "live"
	// ModeSimulated represents the deterministic offline stand-in path
	ModeSimulated ConnectionMode = "simulated"
)

// CaseStatus represents the lifecycle status of a case
type CaseStatus string

const (
	// CaseActive represents a case that is being worked on
	CaseActive CaseStatus = "ACTIVE"
	// CaseEvacuated represents a case whose SOS protocol has been triggered
	CaseEvacuated CaseStatus = "EVACUATED"
	// CaseArchived represents a case that was closed without evacuation
	CaseArchived CaseStatus = "ARCHIVED"
)

// CanTransitionTo reports whether a status change is allowed.
// Transitions only move forward: ACTIVE -> EVACUATED or ACTIVE -> ARCHIVED.
func (s CaseStatus) CanTransitionTo(next CaseStatus) bool {
	if s != CaseActive {
		return false
	}
	return next == CaseEvacuated || next == CaseArchived
}

// EvidenceType represents the media type of a secured evidence record
type EvidenceType string

const (
	// EvidenceText represents text evidence
	EvidenceText EvidenceType = "text"
	// EvidenceImage represents image evidence
	EvidenceImage EvidenceType = "image"
	// EvidenceAudio represents audio evidence
	EvidenceAudio EvidenceType = "audio"
	// EvidenceVideo represents video evidence
	EvidenceVideo EvidenceType = "video"
)

// ValidEvidenceType reports whether t is one of the known media types.
func ValidEvidenceType(t EvidenceType) bool {
	switch t {
	case EvidenceText, EvidenceImage, EvidenceAudio, EvidenceVideo:
		return true
	}
	return false
}

// EvidenceStatus represents the anchoring status of an evidence record
type EvidenceStatus string

const (
	// EvidencePending represents a record not yet anchored
	EvidencePending EvidenceStatus = "pending"
	// EvidenceOnChain represents a record anchored with a transaction id
	EvidenceOnChain EvidenceStatus = "on-chain"
	// EvidenceFailed represents a record whose anchoring failed
	EvidenceFailed EvidenceStatus = "failed"
)

// RiskTier represents the escape strategy tier selected from a risk level
type RiskTier string

const (
	// TierCritical is selected for risk levels >= 8
	TierCritical RiskTier = "critical"
	// TierElevated is selected for risk levels in [5, 8)
	TierElevated RiskTier = "elevated"
	// TierModerate is selected for risk levels < 5
	TierModerate RiskTier = "moderate"
)

// SOSPhase represents progress of an in-flight SOS intent record
type SOSPhase string

const (
	// PhaseStarted means the intent was recorded but nothing committed yet
	PhaseStarted SOSPhase = "started"
	// PhaseLiquidated means the vault redemption committed
	PhaseLiquidated SOSPhase = "liquidated"
	// PhaseTransferred means the outbound transfer committed
	PhaseTransferred SOSPhase = "transferred"
)

// VaultState is a snapshot of holdings at a point in time. Constructed
// fresh on every query and never mutated in place. When IsOnline is
// false every decimal field is zero, never absent.
type VaultState struct {
	StakedShares     decimal.Decimal `json:"stakedShares"`
	StakedValue      decimal.Decimal `json:"stakedValue"`
	LiquidBalance    decimal.Decimal `json:"liquidBalance"`
	SecondaryBalance decimal.Decimal `json:"secondaryBalance"`
	TotalValue       decimal.Decimal `json:"totalValue"`
	APY              float64         `json:"apy"`
	IsOnline         bool            `json:"isOnline"`
	Network          string          `json:"network"`
	FetchedAt        time.Time       `json:"fetchedAt"`
}

// OfflineVaultState returns the deterministic zero snapshot used
// whenever the network is unreachable.
func OfflineVaultState(network string) VaultState {
	return VaultState{
		StakedShares:     decimal.Zero,
		StakedValue:      decimal.Zero,
		LiquidBalance:    decimal.Zero,
		SecondaryBalance: decimal.Zero,
		TotalValue:       decimal.Zero,
		APY:              0,
		IsOnline:         false,
		Network:          network,
		FetchedAt:        time.Now().UTC(),
	}
}

// TransactionResult is the outcome of a single ledger operation
type TransactionResult struct {
	Success bool   `json:"success"`
	TxID    string `json:"txId"`
	Message string `json:"message"`
}

// SOSResult is the outcome of one liquidation attempt. A failed result
// may still carry transaction ids for steps that committed before the
// failure; callers must treat Success=false as "possibly partially
// executed", never "nothing happened".
type SOSResult struct {
	Success           bool            `json:"success"`
	LiquidatedAmount  decimal.Decimal `json:"liquidatedAmount"`
	TransferredAmount decimal.Decimal `json:"transferredAmount"`
	Destination       string          `json:"destination"`
	TxIDs             []string        `json:"txIds"`
	Logs              []string        `json:"logs"`
}

// Case identifies a user's tracked engagement with the system
type Case struct {
	ID        string     `json:"id"`
	Address   string     `json:"address"`
	Status    CaseStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Classification holds optional analysis metadata for evidence.
// Zero values mean "not classified".
type Classification struct {
	Category  string  `json:"category"`
	RiskScore float64 `json:"riskScore"`
	Summary   string  `json:"summary"`
}

// EvidenceRecord is one secured piece of evidence. Records are appended
// to AgentState and never deleted except by a full-state wipe.
type EvidenceRecord struct {
	ID             string         `json:"id"`
	ContentHash    string         `json:"contentHash"`
	Type           EvidenceType   `json:"type"`
	CreatedAt      time.Time      `json:"createdAt"`
	TxID           string         `json:"txId"`
	Status         EvidenceStatus `json:"status"`
	Classification Classification `json:"classification"`
}

// EscapePlan is the single current budget plan. At most one exists at a
// time; recalculating overwrites the previous plan.
type EscapePlan struct {
	RiskLevel     int             `json:"riskLevel"`
	Tier          RiskTier        `json:"tier"`
	Dependents    int             `json:"dependents"`
	Destination   string          `json:"destination"`
	HasOwnMoney   bool            `json:"hasOwnMoney"`
	TransportCost decimal.Decimal `json:"transportCost"`
	ShelterCost   decimal.Decimal `json:"shelterCost"`
	FoodCost      decimal.Decimal `json:"foodCost"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	AvailableNow  decimal.Decimal `json:"availableNow"`
	Strategy      string          `json:"strategy"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// YieldResult reports the outcome of a yield optimization pass
type YieldResult struct {
	Optimized       bool            `json:"optimized"`
	Message         string          `json:"message"`
	TxID            string          `json:"txId"`
	BalanceBefore   decimal.Decimal `json:"balanceBefore"`
	BalanceAfter    decimal.Decimal `json:"balanceAfter"`
	ProjectedYield  decimal.Decimal `json:"projectedYield"`
	ProjectedPeriod string          `json:"projectedPeriod"`
}

// AgentState is the orchestrator's durable process-wide state. It is
// persisted wholesale on every mutation and erased wholesale on wipe.
type AgentState struct {
	Case      *Case            `json:"case,omitempty"`
	Evidence  []EvidenceRecord `json:"evidence"`
	Plan      *EscapePlan      `json:"plan,omitempty"`
	Vault     VaultState       `json:"vault"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// EmptyAgentState returns the state used at first start and after a wipe.
func EmptyAgentState() *AgentState {
	return &AgentState{
		Evidence:  []EvidenceRecord{},
		Vault:     OfflineVaultState(""),
		UpdatedAt: time.Now().UTC(),
	}
}

// SOSIntent is the persisted record of an in-flight SOS attempt. It is
// written before liquidation and cleared after completion so a crash
// between liquidation and transfer is detectable on restart.
type SOSIntent struct {
	Destination string    `json:"destination"`
	Phase       SOSPhase  `json:"phase"`
	TxIDs       []string  `json:"txIds"`
	StartedAt   time.Time `json:"startedAt"`
}
