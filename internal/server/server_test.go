package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yates-Labs/verbatim/internal/answer"
	"github.com/Yates-Labs/verbatim/internal/orchestrator"
	"github.com/Yates-Labs/verbatim/internal/rag"
)

// mockAnswerer returns a fixed outcome or error and records the question
type mockAnswerer struct {
	outcome      *orchestrator.Outcome
	err          error
	lastQuestion string
	hadDeadline  bool
}

func (m *mockAnswerer) Answer(ctx context.Context, question string) (*orchestrator.Outcome, error) {
	m.lastQuestion = question
	_, m.hadDeadline = ctx.Deadline()
	if m.err != nil {
		return nil, m.err
	}
	return m.outcome, nil
}

func setupRouter(a Answerer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(Deps{
		Answerer:       a,
		ServiceName:    "verbatim",
		Version:        "test",
		Chunks:         3,
		RequestTimeout: 5 * time.Second,
	})
}

func post(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func answered(text string, sources []string, confidence float64) *orchestrator.Outcome {
	return &orchestrator.Outcome{Response: answer.Response{
		Answer:     &text,
		Sources:    sources,
		Confidence: confidence,
	}}
}

func TestAsk_Answered(t *testing.T) {
	mock := &mockAnswerer{outcome: answered(`"We deliver within Abuja only."`, []string{"chunk_1"}, 0.83)}
	r := setupRouter(mock)

	for _, path := range []string{"/ask", "/rag"} {
		rr := post(t, r, path, `{"question":"  Do you deliver to Lagos?  "}`)
		require.Equal(t, http.StatusOK, rr.Code, path)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, `"We deliver within Abuja only."`, body["answer"])
		assert.Equal(t, []any{"chunk_1"}, body["sources"])
		assert.InDelta(t, 0.83, body["confidence"], 1e-9)
		assert.Contains(t, body, "reason")
		assert.Nil(t, body["reason"])
		assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	}
	assert.True(t, mock.hadDeadline, "request timeout should reach the pipeline")
}

func TestAsk_RefusalIsOK(t *testing.T) {
	refusal := answer.Assemble(answer.GateDecision{Pass: false, Confidence: 0.12}, nil, nil, "")
	r := setupRouter(&mockAnswerer{outcome: &orchestrator.Outcome{Response: refusal}})

	rr := post(t, r, "/ask", `{"question":"Can I pay in bitcoin?"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t,
		`{"answer":null,"sources":[],"confidence":0.12,"reason":"retrieval confidence below threshold"}`,
		rr.Body.String())
}

func TestAsk_InvalidRequest(t *testing.T) {
	mock := &mockAnswerer{}
	r := setupRouter(mock)

	for _, body := range []string{`{"question":"   "}`, `{}`, `not json`} {
		rr := post(t, r, "/ask", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, CodeInvalidRequest, resp.Code)
	}
	assert.Empty(t, mock.lastQuestion, "pipeline must not run for invalid input")
}

func TestAsk_InfrastructureFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"retrieval", rag.ErrRetrievalUnavailable, http.StatusServiceUnavailable, CodeRetrievalUnavailable},
		{"generation", orchestrator.ErrGenerationUnavailable, http.StatusServiceUnavailable, CodeGenerationUnavailable},
		{"empty question", orchestrator.ErrEmptyQuestion, http.StatusBadRequest, CodeInvalidRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(&mockAnswerer{err: tt.err})
			req, _ := http.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"hours?"}`))
			req.Header.Set("X-Request-Id", "req-123")
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, "req-123", resp.RequestID)
			assert.Equal(t, "req-123", rr.Header().Get("X-Request-Id"))
		})
	}
}

// stubIndex reports a fixed vector count
type stubIndex struct {
	count int64
	err   error
}

func (s stubIndex) Count(ctx context.Context) (int64, error) {
	return s.count, s.err
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		chunks      int
		index       IndexCounter
		wantStatus  string
		wantIndex   string
		wantVectors int64
	}{
		{name: "no index check", chunks: 3, wantStatus: "healthy", wantIndex: "disabled"},
		{name: "index up", chunks: 3, index: stubIndex{count: 3}, wantStatus: "healthy", wantIndex: "up", wantVectors: 3},
		{name: "index empty", chunks: 3, index: stubIndex{count: 0}, wantStatus: "degraded", wantIndex: "empty"},
		{name: "index down", chunks: 3, index: stubIndex{err: errors.New("connection refused")}, wantStatus: "degraded", wantIndex: "down"},
		{name: "no chunks", chunks: 0, index: stubIndex{count: 3}, wantStatus: "degraded", wantIndex: "up", wantVectors: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := NewRouter(Deps{
				Answerer:    &mockAnswerer{},
				ServiceName: "verbatim",
				Version:     "test",
				Chunks:      tt.chunks,
				Index:       tt.index,
			})

			req, err := http.NewRequest(http.MethodGet, "/health", nil)
			require.NoError(t, err)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			require.Equal(t, http.StatusOK, rr.Code)
			var response HealthResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
			assert.Equal(t, tt.wantStatus, response.Status)
			assert.Equal(t, tt.wantIndex, response.Index)
			assert.Equal(t, tt.wantVectors, response.Vectors)
			assert.Equal(t, "verbatim", response.Service)
			assert.Equal(t, "test", response.Version)
			assert.Equal(t, tt.chunks, response.Chunks)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	r := setupRouter(&mockAnswerer{})

	req, _ := http.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetRequestID(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}
