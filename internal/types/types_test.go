package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseStatusTransitions(t *testing.T) {
	tests := []struct {
		from    CaseStatus
		to      CaseStatus
		allowed bool
	}{
		{CaseActive, CaseEvacuated, true},
		{CaseActive, CaseArchived, true},
		{CaseActive, CaseActive, false},
		{CaseEvacuated, CaseActive, false},
		{CaseEvacuated, CaseArchived, false},
		{CaseArchived, CaseActive, false},
		{CaseArchived, CaseEvacuated, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to)
		assert.Equal(t, tt.allowed, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestValidEvidenceType(t *testing.T) {
	for _, valid := range []EvidenceType{EvidenceText, EvidenceImage, EvidenceAudio, EvidenceVideo} {
		assert.True(t, ValidEvidenceType(valid), string(valid))
	}
	assert.False(t, ValidEvidenceType(EvidenceType("hologram")))
	assert.False(t, ValidEvidenceType(EvidenceType("")))
}

func TestOfflineVaultStateAllZeros(t *testing.T) {
	state := OfflineVaultState("sepolia")

	assert.False(t, state.IsOnline)
	assert.Equal(t, "sepolia", state.Network)
	assert.True(t, state.StakedShares.IsZero())
	assert.True(t, state.StakedValue.IsZero())
	assert.True(t, state.LiquidBalance.IsZero())
	assert.True(t, state.SecondaryBalance.IsZero())
	assert.True(t, state.TotalValue.IsZero())
	assert.Zero(t, state.APY)
	assert.False(t, state.FetchedAt.IsZero())
}

func TestEmptyAgentState(t *testing.T) {
	state := EmptyAgentState()

	assert.Nil(t, state.Case)
	assert.NotNil(t, state.Evidence)
	assert.Empty(t, state.Evidence)
	assert.Nil(t, state.Plan)
	assert.False(t, state.Vault.IsOnline)
}

func TestAgentStateJSONRoundtrip(t *testing.T) {
	state := EmptyAgentState()
	state.Case = &Case{ID: "case-1", Status: CaseActive}
	state.Evidence = append(state.Evidence, EvidenceRecord{
		ID:          "ev-1",
		ContentHash: "0xabc",
		Type:        EvidenceText,
		Status:      EvidenceOnChain,
	})
	state.Plan = &EscapePlan{
		RiskLevel:    9,
		Tier:         TierCritical,
		TargetAmount: decimal.NewFromInt(265),
	}

	data, err := json.Marshal(state)
	require.NoError(t, err)

	var restored AgentState
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, "case-1", restored.Case.ID)
	require.Len(t, restored.Evidence, 1)
	assert.Equal(t, EvidenceOnChain, restored.Evidence[0].Status)
	assert.True(t, restored.Plan.TargetAmount.Equal(decimal.NewFromInt(265)))
}
