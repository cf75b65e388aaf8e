// internal/workers/intelligence/scout-chat/handler_test.go
package scoutchat

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"scout-workers/internal/common/errors"
	"scout-workers/internal/common/llm"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Completer
// ==========================

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func createTestHandler(t *testing.T, completer llm.Completer) *Handler {
	h := NewHandler(LoadConfig(), completer, logger.NewTestLogger(t))
	return h.WithClock(func() time.Time { return fixedNow })
}

func enrichedCompany() models.CompanyProfile {
	return models.CompanyProfile{
		Name:     "Acme",
		Industry: "AI/ML",
		Stage:    "Series A",
		Tags:     []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9"},
		Enrichment: &models.EnrichmentRecord{
			Summary:        "Acme builds agents.",
			Keywords:       []string{"llm", "agents"},
			DerivedSignals: []string{"s1", "s2", "s3", "s4", "s5"},
		},
	}
}

// ==========================
// Prompt Tests
// ==========================

func TestSystemPrompt_CompanyBlocks(t *testing.T) {
	thesis := map[string]interface{}{"sectors": []string{"AI & data"}, "ticketSize": "$1-3M"}
	prompt := SystemPrompt(thesis, []models.CompanyProfile{
		enrichedCompany(),
		{Name: "Bare"},
	})

	assert.True(t, strings.HasPrefix(prompt, "You are Scout, a thesis-aware VC copilot."))
	assert.Contains(t, prompt, `THESIS CONTEXT (JSON): {"sectors":["AI & data"],"ticketSize":"$1-3M"}`+"\n")
	assert.Contains(t, prompt, "COMPANY CONTEXT:\n1. Acme\nIndustry: AI/ML | Stage: Series A | Location: Unknown")
	assert.Contains(t, prompt, "Tags: t1, t2, t3, t4, t5, t6, t7, t8\n")
	assert.Contains(t, prompt, "Derived Signals: s1 | s2 | s3 | s4")
	assert.NotContains(t, prompt, "s5")
	assert.Contains(t, prompt, "\n\n2. Bare\n")
	assert.Contains(t, prompt, "Employees: Unknown | Funding: Unknown\nTags: None\nDescription: N/A\nEnrichment Summary: N/A")
}

func TestSystemPrompt_NoCompanies(t *testing.T) {
	prompt := SystemPrompt(nil, nil)

	assert.Contains(t, prompt, "THESIS CONTEXT (JSON): null\n")
	assert.True(t, strings.HasSuffix(prompt, "COMPANY CONTEXT:\n"+noCompanyContext))
}

func TestSystemPrompt_ThesisIsCapped(t *testing.T) {
	long := strings.Repeat("k", 5000)
	prompt := SystemPrompt(map[string]interface{}{"keywords": []string{long}}, nil)

	line := strings.SplitN(strings.SplitN(prompt, "THESIS CONTEXT (JSON): ", 2)[1], "\n", 2)[0]
	assert.Equal(t, MaxThesisRunes, len([]rune(line)))
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Purpose == "chat" &&
			req.Temperature == DefaultTemperature &&
			req.MaxTokens == DefaultMaxTokens &&
			!req.JSONMode &&
			req.UserPrompt == "Rank these companies" &&
			strings.Contains(req.SystemPrompt, `{"checkSize":"seed","sectors":["AI"]}`) &&
			strings.Contains(req.SystemPrompt, "1. Acme")
	})).Return("1. **Acme**", nil)

	h := createTestHandler(t, completer)
	output, err := h.Execute(context.Background(), &Input{
		Message:   "  Rank these companies  ",
		Thesis:    map[string]interface{}{"sectors": []string{"AI"}, "checkSize": "seed"},
		Companies: []models.CompanyProfile{enrichedCompany()},
	})

	require.NoError(t, err)
	assert.Equal(t, "1. **Acme**", output.Reply)
	assert.Equal(t, fixedNow, output.Timestamp)
	completer.AssertExpectations(t)
}

func TestHandler_Execute_CapsInput(t *testing.T) {
	var companies []models.CompanyProfile
	for i := 0; i < 14; i++ {
		companies = append(companies, models.CompanyProfile{Name: fmt.Sprintf("Co%02d", i)})
	}

	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return len([]rune(req.UserPrompt)) == MaxMessageRunes &&
			strings.Contains(req.SystemPrompt, "10. Co09") &&
			!strings.Contains(req.SystemPrompt, "Co10")
	})).Return("ok", nil)

	h := createTestHandler(t, completer)
	_, err := h.Execute(context.Background(), &Input{
		Message:   strings.Repeat("é", MaxMessageRunes+50),
		Companies: companies,
	})

	require.NoError(t, err)
	completer.AssertExpectations(t)
}

func TestHandler_Execute_EmptyMessage(t *testing.T) {
	completer := new(MockCompleter)
	h := createTestHandler(t, completer)

	_, err := h.Execute(context.Background(), &Input{Message: " \n\t "})

	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestHandler_Execute_ModelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{"empty reply", errors.NewLLMEmptyResponseError(), errors.ErrCodeLLMEmptyResponse},
		{"request failed", errors.NewLLMRequestFailedError(fmt.Errorf("boom")), errors.ErrCodeLLMRequestFailed},
		{"missing key", errors.NewConfigurationError("GROQ_API_KEY"), errors.ErrCodeConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := new(MockCompleter)
			completer.On("Complete", mock.Anything, mock.Anything).Return("", tt.err).Once()

			h := createTestHandler(t, completer)
			_, err := h.Execute(context.Background(), &Input{Message: "hi"})

			assert.True(t, errors.HasCode(err, tt.code))
			completer.AssertNumberOfCalls(t, "Complete", 1)
		})
	}
}

func TestHandler_Execute_NoCompleter(t *testing.T) {
	h := createTestHandler(t, nil)
	_, err := h.Execute(context.Background(), &Input{Message: "hi"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration))
}
