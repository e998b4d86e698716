package api

import (
	"context"
	"net/http"

	"github.com/athena-agent/internal/agent"
	"github.com/athena-agent/internal/types"
)

type createCaseRequest struct {
	Address string `json:"address"`
}

func (s *Server) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body", nil)
		return
	}

	var created *types.Case
	err := s.binding.Run(r.Context(), "create-case", func(ctx context.Context) error {
		var err error
		created, err = s.agent.CreateCase(ctx, req.Address)
		return err
	})
	if err != nil {
		respondCategorizedError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

type secureEvidenceRequest struct {
	Content  string `json:"content"`
	Type     string `json:"type"`
	Metadata string `json:"metadata,omitempty"`
}

func (s *Server) handleSecureEvidence(w http.ResponseWriter, r *http.Request) {
	var req secureEvidenceRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body", nil)
		return
	}

	var record *types.EvidenceRecord
	err := s.binding.Run(r.Context(), "secure-evidence", func(ctx context.Context) error {
		var err error
		record, err = s.agent.SecureEvidence(ctx, req.Content, types.EvidenceType(req.Type), req.Metadata)
		return err
	})
	if err != nil {
		respondCategorizedError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, record)
}

type calculateBudgetRequest struct {
	Dependents  int    `json:"dependents"`
	Destination string `json:"destination"`
	HasOwnMoney bool   `json:"hasOwnMoney"`
	RiskLevel   int    `json:"riskLevel"`
}

func (s *Server) handleCalculateBudget(w http.ResponseWriter, r *http.Request) {
	var req calculateBudgetRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body", nil)
		return
	}

	var plan *types.EscapePlan
	err := s.binding.Run(r.Context(), "calculate-budget", func(ctx context.Context) error {
		var err error
		plan, err = s.agent.CalculateBudget(ctx, agent.BudgetParams{
			Dependents:  req.Dependents,
			Destination: req.Destination,
			HasOwnMoney: req.HasOwnMoney,
			RiskLevel:   req.RiskLevel,
		})
		return err
	})
	if err != nil {
		respondCategorizedError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, plan)
}

func (s *Server) handleOptimizeYield(w http.ResponseWriter, r *http.Request) {
	var result *types.YieldResult
	err := s.binding.Run(r.Context(), "optimize-yield", func(ctx context.Context) error {
		var err error
		result, err = s.agent.OptimizeYield(ctx)
		return err
	})
	if err != nil {
		respondCategorizedError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type triggerSOSRequest struct {
	Destination string `json:"destination"`
}

func (s *Server) handleTriggerSOS(w http.ResponseWriter, r *http.Request) {
	var req triggerSOSRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body", nil)
		return
	}

	var result *types.SOSResult
	err := s.binding.Run(r.Context(), "trigger-sos", func(ctx context.Context) error {
		var err error
		result, err = s.agent.TriggerSOS(ctx, req.Destination)
		return err
	})
	if err != nil {
		respondCategorizedError(w, err)
		return
	}

	s.binding.RecordSOS(result)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"state":  s.agent.GetState(),
		"online": s.agent.IsOnline(),
	}
	if intent := s.agent.DanglingIntent(); intent != nil {
		response["interruptedSos"] = intent
	}
	respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleClearState(w http.ResponseWriter, r *http.Request) {
	err := s.binding.Run(r.Context(), "clear-state", func(ctx context.Context) error {
		return s.agent.ClearLocalState(ctx)
	})
	if err != nil {
		respondCategorizedError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	state := s.agent.RefreshVaultState(r.Context())
	s.binding.SetOnline(state.IsOnline)
	respondJSON(w, http.StatusOK, state)
}
