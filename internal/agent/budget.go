package agent

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/athena-agent/internal/types"
)

// Budget constants in human base-currency units.
var (
	perPersonTransportCost = decimal.NewFromInt(30)
	perNightShelterCost    = decimal.NewFromInt(75)
	emergencyFoodCost      = decimal.NewFromInt(100)
)

// TierForRiskLevel classifies a risk level into an escape strategy
// tier. 8 and 5 are inclusive lower bounds of their tier.
func TierForRiskLevel(riskLevel int) types.RiskTier {
	switch {
	case riskLevel >= 8:
		return types.TierCritical
	case riskLevel >= 5:
		return types.TierElevated
	default:
		return types.TierModerate
	}
}

func strategyForTier(tier types.RiskTier) string {
	switch tier {
	case types.TierCritical:
		return "Leave immediately. Physical safety first; do not wait to save more funds."
	case types.TierElevated:
		return "Collect evidence now and build savings over the next 2-4 weeks before leaving."
	default:
		return "Plan long-term: document incidents, grow savings, and prepare an exit route."
	}
}

// BudgetParams are the inputs to a budget calculation
type BudgetParams struct {
	Dependents  int
	Destination string
	HasOwnMoney bool
	RiskLevel   int
}

// buildEscapePlan is a pure function of its parameters and the
// last-known vault total. Shelter is budgeted for one night at
// critical risk (leave now) and three nights otherwise, and skipped
// entirely when the user has their own money.
func buildEscapePlan(params BudgetParams, availableNow decimal.Decimal) *types.EscapePlan {
	tier := TierForRiskLevel(params.RiskLevel)

	transport := perPersonTransportCost.Mul(decimal.NewFromInt(int64(params.Dependents + 1)))

	shelterNights := int64(3)
	if params.RiskLevel >= 8 {
		shelterNights = 1
	}
	shelter := decimal.Zero
	if !params.HasOwnMoney {
		shelter = perNightShelterCost.Mul(decimal.NewFromInt(shelterNights))
	}

	target := transport.Add(emergencyFoodCost).Add(shelter)

	return &types.EscapePlan{
		RiskLevel:     params.RiskLevel,
		Tier:          tier,
		Dependents:    params.Dependents,
		Destination:   params.Destination,
		HasOwnMoney:   params.HasOwnMoney,
		TransportCost: transport,
		ShelterCost:   shelter,
		FoodCost:      emergencyFoodCost,
		TargetAmount:  target,
		AvailableNow:  availableNow,
		Strategy:      strategyForTier(tier),
		CreatedAt:     time.Now().UTC(),
	}
}
