package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-intentflow/internal/analytics"
	"go-intentflow/internal/config"
	"go-intentflow/pkg/messages"
	"go-intentflow/pkg/models"
)

type echoProcessor struct{}

func (echoProcessor) Process(_ context.Context, req models.Request) models.Response {
	return models.Response{
		RequestID: uuid.MustParse("6f1c1a2e-54b0-4a39-9a8c-0d3c2f9b1e11"),
		Success:   true,
		Response:  "echo: " + req.Utterance,
		Approach:  models.ApproachGeneralKnowledge,
		ToolsUsed: []string{},
	}
}

type evaluations map[uuid.UUID]messages.EvaluationResult

func (e evaluations) Lookup(id uuid.UUID) (messages.EvaluationResult, bool, error) {
	res, ok := e[id]
	return res, ok, nil
}

func newTestServer(t *testing.T, evals evaluations) (*Server, *analytics.Analytics) {
	t.Helper()
	a := analytics.New(analytics.NewMemoryStore())
	cfg := config.Default().Server
	cfg.RequestTimeout = time.Second
	s := New(actor.NewActorSystem().Root, Deps{Processor: echoProcessor{}, Evaluations: evals, Analytics: a}, cfg)
	return s, a
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChat(t *testing.T) {
	s, _ := newTestServer(t, evaluations{})

	rec := do(t, s, http.MethodPost, "/chat", `{"utterance": "What is the capital of France?", "conversation_history": [], "user_id": "u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "echo: What is the capital of France?", resp["response"])
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, []any{}, resp["tools_used"])
	assert.Equal(t, "6f1c1a2e-54b0-4a39-9a8c-0d3c2f9b1e11", resp["request_id"])
	assert.Zero(t, s.inflight.count())
}

func TestChatRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t, evaluations{})

	rec := do(t, s, http.MethodPost, "/chat", `{"utterance":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/chat", `{"utterance": "hi", "policy": {"approach": "reckless", "enabled_categories": []}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid policy")
}

func TestEvaluations(t *testing.T) {
	id := uuid.New()
	s, _ := newTestServer(t, evaluations{
		id: {RequestID: id, Record: models.EvaluationRecord{QualityScore: 0.9, Grade: models.GradeFor(0.9), Source: models.SourceHeuristic}},
	})

	rec := do(t, s, http.MethodGet, "/evaluations/"+id.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body getEvaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, id, body.RequestID)
	assert.Equal(t, 0.9, body.Evaluation.QualityScore)
	assert.Nil(t, body.Suggestion)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/evaluations/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/evaluations/not-a-uuid", "").Code)
}

func TestAnalyticsEndpoints(t *testing.T) {
	s, a := newTestServer(t, evaluations{})
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, a.LogToolUsage(ctx, "r", "u", models.ToolResult{Tool: "gmail_recent", Success: i == 0, Latency: time.Second}))
	}

	rec := do(t, s, http.MethodGet, "/analytics/stats?window=24h", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats analytics.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.Tools["gmail_recent"].Calls)
	assert.Equal(t, 0.25, stats.Tools["gmail_recent"].SuccessRate)

	rec = do(t, s, http.MethodGet, "/analytics/recommendations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var recs getRecommendations
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.NotEmpty(t, recs.Recommendations)
	assert.Equal(t, analytics.RecReliability, recs.Recommendations[0].Type)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/analytics/stats?window=soon", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/analytics/trim", "").Code)

	rec = do(t, s, http.MethodPost, "/analytics/trim?max_age=1ns", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed": 4}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, evaluations{})
	rec := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
