// internal/workers/enrichment/enrich-company/handler_test.go
package enrichcompany

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scout-workers/internal/common/aws"
	"scout-workers/internal/common/crawler"
	"scout-workers/internal/common/errors"
	httpx "scout-workers/internal/common/http"
	"scout-workers/internal/common/llm"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/common/webtext"
	"scout-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockCompanyRepository struct {
	mock.Mock
}

func (m *MockCompanyRepository) GetCompanyProfile(ctx context.Context, id string) (*models.CompanyProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CompanyProfile), args.Error(1)
}

func (m *MockCompanyRepository) SaveEnrichment(ctx context.Context, id string, record *models.EnrichmentRecord) error {
	return m.Called(ctx, id, record).Error(0)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexEnrichment(ctx context.Context, companyID string, record *models.EnrichmentRecord) error {
	return m.Called(ctx, companyID, record).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	return m.Called(ctx, eventType, payload).Error(0)
}

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const validReply = `{
  "summary": "Acme builds agent tooling.",
  "what_they_do": ["Agent runtime", " ", "Evaluation"],
  "keywords": ["agents", "llm"],
  "derived_signals": ["Hiring engineers"],
  "facts": {
    "location": "Berlin",
    "employee_count": null,
    "founded_year": 2021,
    "total_funding": 12000000,
    "stage": "Series A",
    "confidence": {"location": 0.9, "founded_year": "0.7", "stage": 4}
  }
}`

func newSite(t *testing.T, homeStatus int) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(homeStatus)
		fmt.Fprint(w, `<html><head><title>Acme</title></head><body>
			<p>Acme builds agents.</p>
			<a href="/careers">Careers</a>
			<a href="/blog#top">Blog</a>
			<a href="/legal">Legal</a>
			<a href="https://other.test/about">Elsewhere</a>
		</body></html>`)
	})
	mux.HandleFunc("/careers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>We are hiring engineers.</body></html>`)
	})
	mux.HandleFunc("/blog", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testDeps struct {
	completer *MockCompleter
	repo      *MockCompanyRepository
	indexer   *MockIndexer
	publisher *MockPublisher
}

func createTestHandler(t *testing.T) (*Handler, *testDeps) {
	log := logger.NewTestLogger(t)
	fetcher := httpx.NewFetcher(httpx.Config{Timeout: 5 * time.Second, UserAgent: "test"}, nil)
	siteCrawler := crawler.New(webtext.NewExtractor(fetcher, 0, log), crawler.Config{}, log)

	deps := &testDeps{
		completer: new(MockCompleter),
		repo:      new(MockCompanyRepository),
		indexer:   new(MockIndexer),
		publisher: new(MockPublisher),
	}
	synth := NewSynthesizer(deps.completer, DefaultTemperature, log)
	synth.now = func() time.Time { return fixedNow }

	h := NewHandler(LoadConfig(), siteCrawler, synth, deps.repo, deps.indexer, deps.publisher, log)
	return h, deps
}

// ==========================
// Synthesizer Tests
// ==========================

func TestParseObject(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{"not json", "not json", errors.ErrCodeLLMInvalidJSON},
		{"array", `["a"]`, errors.ErrCodeLLMInvalidJSON},
		{"string", `"summary"`, errors.ErrCodeLLMInvalidJSON},
		{"truncated", `{"summary": "cut`, errors.ErrCodeLLMInvalidJSON},
		{"blank", "   ", errors.ErrCodeLLMEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseObject(tt.content)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}

	obj, err := ParseObject("```json\n{\"summary\": \"ok\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "ok", obj["summary"])
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("SOURCE: https://acme.test/\nhello")

	assert.Contains(t, prompt, "return ONLY valid JSON")
	assert.Contains(t, prompt, `"confidence": {`)
	assert.True(t, strings.HasSuffix(prompt, "CONTENT:\nSOURCE: https://acme.test/\nhello\n"))
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute_WithoutCompany(t *testing.T) {
	site := newSite(t, http.StatusOK)
	h, deps := createTestHandler(t)

	deps.completer.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Purpose == "enrichment" && req.JSONMode && req.Temperature == DefaultTemperature &&
			strings.Contains(req.UserPrompt, "SOURCE: "+site.URL+"/\n") &&
			strings.Contains(req.UserPrompt, "\n\n---\n\nSOURCE: "+site.URL+"/careers\n")
	})).Return(validReply, nil)

	output, err := h.Execute(context.Background(), &Input{URL: site.URL})
	require.NoError(t, err)

	record := output.EnrichmentRecord
	assert.Equal(t, "Acme builds agent tooling.", record.Summary)
	assert.Equal(t, []string{"Agent runtime", "Evaluation"}, record.WhatTheyDo)
	assert.Equal(t, site.URL, record.Source)
	assert.Equal(t, []string{site.URL + "/", site.URL + "/careers"}, record.Sources)
	assert.Equal(t, "2026-03-10T12:00:00Z", record.Timestamp)

	require.NotNil(t, record.Facts)
	require.NotNil(t, record.Facts.FoundedYear)
	assert.Equal(t, 2021, *record.Facts.FoundedYear)
	assert.Nil(t, record.Facts.EmployeeCount)
	assert.Equal(t, "12000000", *record.Facts.TotalFunding)
	for _, key := range models.FactKeys {
		c, ok := record.Facts.Confidence[key]
		assert.True(t, ok, key)
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}
	assert.Equal(t, 0.7, record.Facts.Confidence["founded_year"])
	assert.Equal(t, 1.0, record.Facts.Confidence["stage"])

	deps.repo.AssertNotCalled(t, "SaveEnrichment", mock.Anything, mock.Anything, mock.Anything)
	deps.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_PersistsIndexesAndPublishes(t *testing.T) {
	site := newSite(t, http.StatusOK)
	h, deps := createTestHandler(t)

	deps.completer.On("Complete", mock.Anything, mock.Anything).Return(validReply, nil)
	deps.repo.On("SaveEnrichment", mock.Anything, "c-1", mock.AnythingOfType("*models.EnrichmentRecord")).Return(nil)
	deps.indexer.On("IndexEnrichment", mock.Anything, "c-1", mock.Anything).Return(fmt.Errorf("es down"))
	deps.publisher.On("Publish", mock.Anything, aws.EventEnrichmentCompleted, mock.MatchedBy(func(e EnrichmentCompletedEvent) bool {
		return e.CompanyID == "c-1" && len(e.Sources) == 2
	})).Return(nil)

	output, err := h.Execute(context.Background(), &Input{URL: site.URL, CompanyID: " c-1 "})
	require.NoError(t, err)
	assert.Equal(t, "c-1", output.CompanyID)

	deps.repo.AssertExpectations(t)
	deps.indexer.AssertExpectations(t)
	deps.publisher.AssertExpectations(t)
}

func TestHandler_Execute_HomepageFailurePersistsNothing(t *testing.T) {
	site := newSite(t, http.StatusInternalServerError)
	h, deps := createTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{URL: site.URL, CompanyID: "c-1"})

	assert.True(t, errors.HasCode(err, errors.ErrCodeHomepageUnreachable))
	deps.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	deps.repo.AssertNotCalled(t, "SaveEnrichment", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_InvalidModelOutputPersistsNothing(t *testing.T) {
	site := newSite(t, http.StatusOK)
	h, deps := createTestHandler(t)
	deps.completer.On("Complete", mock.Anything, mock.Anything).Return("not json", nil)

	_, err := h.Execute(context.Background(), &Input{URL: site.URL, CompanyID: "c-1"})

	assert.True(t, errors.HasCode(err, errors.ErrCodeLLMInvalidJSON))
	deps.repo.AssertNotCalled(t, "SaveEnrichment", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_ModelFailure(t *testing.T) {
	site := newSite(t, http.StatusOK)
	h, deps := createTestHandler(t)
	deps.completer.On("Complete", mock.Anything, mock.Anything).
		Return("", errors.NewLLMRequestFailedError(fmt.Errorf("503"))).Once()

	_, err := h.Execute(context.Background(), &Input{URL: site.URL})

	stdErr := errors.AsStandardError(err)
	require.NotNil(t, stdErr)
	assert.Equal(t, errors.ErrCodeLLMRequestFailed, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	deps.completer.AssertNumberOfCalls(t, "Complete", 1)
}

func TestHandler_Execute_SaveFailure(t *testing.T) {
	site := newSite(t, http.StatusOK)
	h, deps := createTestHandler(t)
	deps.completer.On("Complete", mock.Anything, mock.Anything).Return(validReply, nil)
	deps.repo.On("SaveEnrichment", mock.Anything, "ghost", mock.Anything).Return(errors.NewCompanyNotFoundError("ghost"))

	_, err := h.Execute(context.Background(), &Input{URL: site.URL, CompanyID: "ghost"})

	assert.True(t, errors.HasCode(err, errors.ErrCodeCompanyNotFound))
	deps.indexer.AssertNotCalled(t, "IndexEnrichment", mock.Anything, mock.Anything, mock.Anything)
	deps.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_InvalidURL(t *testing.T) {
	h, deps := createTestHandler(t)

	for _, raw := range []string{"", "https://"} {
		_, err := h.Execute(context.Background(), &Input{URL: raw})
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput), raw)
	}
	deps.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}
