// internal/api/router_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scout-workers/internal/common/auth"
	"scout-workers/internal/common/errors"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/models"
	enrichcompany "scout-workers/internal/workers/enrichment/enrich-company"
	fetchlivefeed "scout-workers/internal/workers/intelligence/fetch-live-feed"
	scoutchat "scout-workers/internal/workers/intelligence/scout-chat"
	calculatefitscore "scout-workers/internal/workers/scoring/calculate-fit-score"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) ValidateToken(ctx context.Context, token string) (*auth.TokenInfo, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenInfo), args.Error(1)
}

type MockEnricher struct{ mock.Mock }

func (m *MockEnricher) Execute(ctx context.Context, input *enrichcompany.Input) (*enrichcompany.Output, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrichcompany.Output), args.Error(1)
}

type MockChatter struct{ mock.Mock }

func (m *MockChatter) Execute(ctx context.Context, input *scoutchat.Input) (*scoutchat.Output, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scoutchat.Output), args.Error(1)
}

type MockFeedFetcher struct{ mock.Mock }

func (m *MockFeedFetcher) Execute(ctx context.Context, input *fetchlivefeed.Input) (*fetchlivefeed.Output, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fetchlivefeed.Output), args.Error(1)
}

type MockScorer struct{ mock.Mock }

func (m *MockScorer) Execute(ctx context.Context, input *calculatefitscore.Input) (*calculatefitscore.Output, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*calculatefitscore.Output), args.Error(1)
}

// ==========================
// Test Helper Functions
// ==========================

type testEnv struct {
	router    *gin.Engine
	validator *MockValidator
	enrich    *MockEnricher
	chat      *MockChatter
	feed      *MockFeedFetcher
	score     *MockScorer
}

func setupRouter(t *testing.T, checks map[string]ReadinessCheck) *testEnv {
	gin.SetMode(gin.TestMode)
	env := &testEnv{
		validator: new(MockValidator),
		enrich:    new(MockEnricher),
		chat:      new(MockChatter),
		feed:      new(MockFeedFetcher),
		score:     new(MockScorer),
	}
	env.validator.On("ValidateToken", mock.Anything, "good").Return(&auth.TokenInfo{Active: true, Sub: "u-1"}, nil).Maybe()
	env.validator.On("ValidateToken", mock.Anything, "bad").Return(nil, errors.NewUnauthorizedError("token is not active")).Maybe()

	env.router = NewRouter(
		RouterConfig{ServiceName: "scout-api", AllowedOrigins: []string{"https://app.scout.test"}, RequestTimeout: 5 * time.Second},
		Handlers{Enrich: env.enrich, Chat: env.chat, LiveFeed: env.feed, Score: env.score},
		env.validator,
		checks,
		logger.NewTestLogger(t),
	)
	return env
}

func do(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ==========================
// Public Endpoint Tests
// ==========================

func TestRouter_Health(t *testing.T) {
	env := setupRouter(t, nil)

	w := do(env.router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRouter_Ready(t *testing.T) {
	env := setupRouter(t, map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return fmt.Errorf("connection refused") },
	})

	w := do(env.router, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"not_ready","checks":{"postgres":"ok","redis":"connection refused"}}`, w.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	env := setupRouter(t, nil)

	w := do(env.router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_CORS(t *testing.T) {
	env := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://app.scout.test")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.scout.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.test")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// ==========================
// Auth Tests
// ==========================

func TestRouter_RequiresBearerToken(t *testing.T) {
	env := setupRouter(t, nil)

	for _, token := range []string{"", "bad"} {
		w := do(env.router, http.MethodPost, "/api/chat", token, map[string]string{"message": "hi"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, string(errors.ErrCodeUnauthorized), decodeError(t, w).Code)
	}
	env.chat.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestRouter_MissingValidator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterConfig{}, Handlers{}, nil, nil, logger.NewNoOpLogger())

	w := do(router, http.MethodPost, "/api/chat", "good", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// ==========================
// Operation Tests
// ==========================

func TestRouter_Enrich(t *testing.T) {
	env := setupRouter(t, nil)
	record := &models.EnrichmentRecord{Summary: "Acme", Sources: []string{"https://acme.test/"}}
	env.enrich.On("Execute", mock.Anything, &enrichcompany.Input{URL: "acme.test", CompanyID: "c-1"}).
		Return(&enrichcompany.Output{EnrichmentRecord: record, CompanyID: "c-1"}, nil)

	w := do(env.router, http.MethodPost, "/api/enrich", "good", map[string]string{"url": "acme.test", "companyId": "c-1"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Acme", resp["summary"])
	assert.Equal(t, "c-1", resp["companyId"])
	assert.Contains(t, resp, "facts")
}

func TestRouter_EnrichErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{errors.NewHomepageUnreachableError("https://acme.test/", nil), http.StatusBadGateway},
		{errors.NewLLMTimeoutError(context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.NewConfigurationError("GROQ_API_KEY"), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			env := setupRouter(t, nil)
			env.enrich.On("Execute", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := do(env.router, http.MethodPost, "/api/enrich", "good", map[string]string{"url": "acme.test"})
			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, string(errors.AsStandardError(tt.err).Code), resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestRouter_ChatRejectsMalformedBody(t *testing.T) {
	env := setupRouter(t, nil)

	w := do(env.router, http.MethodPost, "/api/chat", "good", `{"message": 5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodeInvalidInput), decodeError(t, w).Code)
	env.chat.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestRouter_Chat(t *testing.T) {
	env := setupRouter(t, nil)
	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	env.chat.On("Execute", mock.Anything, mock.MatchedBy(func(in *scoutchat.Input) bool {
		return in.Message == "rank" && len(in.Companies) == 1 && in.Thesis["fundSize"] == "$50M"
	})).Return(&scoutchat.Output{Reply: "1. **Acme**", Timestamp: ts}, nil)

	w := do(env.router, http.MethodPost, "/api/chat", "good", map[string]interface{}{
		"message":   "rank",
		"thesis":    map[string]interface{}{"sectors": []string{"AI"}, "fundSize": "$50M"},
		"companies": []map[string]string{{"name": "Acme"}},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reply":"1. **Acme**","timestamp":"2026-03-10T12:00:00Z"}`, w.Body.String())
}

func TestRouter_LiveFeed(t *testing.T) {
	env := setupRouter(t, nil)
	env.feed.On("Execute", mock.Anything, &fetchlivefeed.Input{Companies: []string{"Acme", " Beta"}, PerCompany: 3, Limit: 5}).
		Return(&fetchlivefeed.Output{Items: []models.NewsItem{}}, nil)

	w := do(env.router, http.MethodGet, "/api/live-feed?companies=Acme,%20Beta&perCompany=3&limit=5", "good", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
	env.feed.AssertExpectations(t)
}

func TestRouter_LiveFeedBadLimit(t *testing.T) {
	env := setupRouter(t, nil)

	w := do(env.router, http.MethodGet, "/api/live-feed?companies=Acme&limit=ten", "good", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env.feed.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestRouter_Score(t *testing.T) {
	env := setupRouter(t, nil)
	env.score.On("Execute", mock.Anything, mock.MatchedBy(func(in *calculatefitscore.Input) bool {
		return in.CompanyID == "c-1" && len(in.Thesis.Sectors) == 1
	})).Return(&calculatefitscore.Output{CompanyID: "c-1", FitScore: 79, Tier: "strong", Factors: []calculatefitscore.Factor{}}, nil)

	w := do(env.router, http.MethodPost, "/api/score", "good", map[string]interface{}{
		"companyId": "c-1",
		"thesis":    map[string]interface{}{"sectors": []string{"AI"}},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"companyId":"c-1","fitScore":79,"tier":"strong","factors":[]}`, w.Body.String())
}

func TestRouter_ScoreUnknownCompany(t *testing.T) {
	env := setupRouter(t, nil)
	env.score.On("Execute", mock.Anything, mock.Anything).Return(nil, errors.NewCompanyNotFoundError("ghost"))

	w := do(env.router, http.MethodPost, "/api/score", "good", map[string]string{"companyId": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(errors.ErrCodeCompanyNotFound), decodeError(t, w).Code)
}
