package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athena-agent/internal/agent"
	"github.com/athena-agent/internal/binding"
	apperrors "github.com/athena-agent/internal/errors"
	"github.com/athena-agent/internal/types"
)

// fakeAgent is a scriptable AgentService
type fakeAgent struct {
	state   *types.AgentState
	intent  *types.SOSIntent
	online  bool
	cleared bool
}

func newFakeAgent() *fakeAgent {
	return &fakeAgent{state: types.EmptyAgentState()}
}

func (f *fakeAgent) CreateCase(_ context.Context, address string) (*types.Case, error) {
	if address == "" {
		return nil, apperrors.NewInvalidAddressError(address)
	}
	return &types.Case{ID: "case-1", Address: address, Status: types.CaseActive}, nil
}

func (f *fakeAgent) SecureEvidence(_ context.Context, content string, evType types.EvidenceType, _ string) (*types.EvidenceRecord, error) {
	if !types.ValidEvidenceType(evType) {
		return nil, apperrors.NewInvalidParameterError("type", "unknown evidence type")
	}
	return &types.EvidenceRecord{ID: "ev-1", Status: types.EvidenceOnChain}, nil
}

func (f *fakeAgent) CalculateBudget(_ context.Context, params agent.BudgetParams) (*types.EscapePlan, error) {
	if params.RiskLevel < 1 || params.RiskLevel > 10 {
		return nil, apperrors.NewInvalidParameterError("riskLevel", "must be between 1 and 10")
	}
	return &types.EscapePlan{RiskLevel: params.RiskLevel, Tier: agent.TierForRiskLevel(params.RiskLevel)}, nil
}

func (f *fakeAgent) OptimizeYield(_ context.Context) (*types.YieldResult, error) {
	return &types.YieldResult{Optimized: false, Message: "nothing to optimize"}, nil
}

func (f *fakeAgent) TriggerSOS(_ context.Context, destination string) (*types.SOSResult, error) {
	if destination == "" {
		return nil, apperrors.NewInvalidAddressError(destination)
	}
	return &types.SOSResult{
		Success:           true,
		TransferredAmount: decimal.NewFromInt(550),
		Destination:       destination,
		Logs:              []string{"SOS protocol complete."},
	}, nil
}

func (f *fakeAgent) ClearLocalState(_ context.Context) error {
	f.cleared = true
	return nil
}

func (f *fakeAgent) GetState() *types.AgentState { return f.state }

func (f *fakeAgent) RefreshVaultState(_ context.Context) types.VaultState {
	return types.OfflineVaultState("testnet")
}

func (f *fakeAgent) DanglingIntent() *types.SOSIntent { return f.intent }
func (f *fakeAgent) IsOnline() bool                   { return f.online }

func setupServer(t *testing.T) (*Server, *fakeAgent) {
	t.Helper()
	fake := newFakeAgent()
	server := NewServer(DefaultServerConfig("127.0.0.1", "0", 100), fake, binding.New())
	return server, fake
}

func doRequest(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := setupServer(t)

	rec := doRequest(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestCreateCaseEndpoint(t *testing.T) {
	server, _ := setupServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/case", map[string]string{
		"address": "0x000000000000000000000000000000000000dEaD",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var c types.Case
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, types.CaseActive, c.Status)
}

func TestCreateCaseEndpointRejectsBadInput(t *testing.T) {
	server, _ := setupServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/case", map[string]string{"address": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_ADDRESS", body.Error.Code)
}

func TestSecureEvidenceEndpoint(t *testing.T) {
	server, _ := setupServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/evidence", map[string]string{
		"content": "incident report",
		"type":    "text",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/evidence", map[string]string{
		"content": "incident report",
		"type":    "hologram",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculateBudgetEndpoint(t *testing.T) {
	server, _ := setupServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/plan", map[string]interface{}{
		"dependents":  2,
		"destination": "Springfield",
		"hasOwnMoney": false,
		"riskLevel":   9,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var plan types.EscapePlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, types.TierCritical, plan.Tier)
}

func TestTriggerSOSEndpoint(t *testing.T) {
	server, _ := setupServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/sos", map[string]string{
		"destination": "0x000000000000000000000000000000000000dEaD",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var result types.SOSResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
}

func TestClearStateEndpoint(t *testing.T) {
	server, fake := setupServer(t)

	rec := doRequest(t, server, http.MethodDelete, "/api/v1/state", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, fake.cleared)
}

func TestGetStateEndpointIncludesInterruptedSOS(t *testing.T) {
	server, fake := setupServer(t)
	fake.intent = &types.SOSIntent{Phase: types.PhaseLiquidated}

	rec := doRequest(t, server, http.MethodGet, "/api/v1/state", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "interruptedSos")
}

func TestGetVaultEndpoint(t *testing.T) {
	server, _ := setupServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/vault", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var state types.VaultState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.False(t, state.IsOnline)
}

func TestEventsEndpointStreamsInitialState(t *testing.T) {
	server, _ := setupServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		server.Router().ServeHTTP(rec, req)
		close(done)
	}()

	// The handler sends the current state immediately; cancelling the
	// request context terminates the stream.
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SSE handler did not terminate on context cancellation")
	}

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "data: ")
}

func TestUnknownFieldRejected(t *testing.T) {
	server, _ := setupServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/case", map[string]string{
		"address": "0x000000000000000000000000000000000000dEaD",
		"extra":   "field",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
