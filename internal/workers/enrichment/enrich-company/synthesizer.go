// internal/workers/enrichment/enrich-company/synthesizer.go
package enrichcompany

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"scout-workers/internal/common/crawler"
	"scout-workers/internal/common/errors"
	"scout-workers/internal/common/llm"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/common/observability"
	"scout-workers/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

const DefaultTemperature = 0.1

const promptTemplate = `Analyze the following multi-page website content for a company and return ONLY valid JSON.

JSON schema:
{
  "summary": "1-2 sentences",
  "what_they_do": ["3-6 bullets"],
  "keywords": ["5-10 concise keywords"],
  "derived_signals": ["2-4 inferred signals from the scraped pages"],
  "facts": {
    "location": "string or null",
    "employee_count": "string or null",
    "founded_year": "integer or null",
    "total_funding": "string or null",
    "stage": "string or null",
    "confidence": {
      "location": 0.0,
      "employee_count": 0.0,
      "founded_year": 0.0,
      "total_funding": 0.0,
      "stage": 0.0
    }
  }
}

Rules:
- Keep statements grounded in provided content.
- "derived_signals" should infer evidence like careers presence, recent updates, docs/changelog, hiring, etc.
- Use null for any fact the content does not state, with confidence 0.
- Confidence values are numbers between 0 and 1.
- No markdown, no extra text.

CONTENT:
%s
`

type Synthesizer struct {
	completer   llm.Completer
	temperature float64
	now         func() time.Time
	logger      logger.Logger
}

func NewSynthesizer(completer llm.Completer, temperature float64, log logger.Logger) *Synthesizer {
	return &Synthesizer{
		completer:   completer,
		temperature: temperature,
		now:         time.Now,
		logger:      log.WithFields(map[string]interface{}{"component": "synthesizer"}),
	}
}

func BuildPrompt(content string) string {
	return fmt.Sprintf(promptTemplate, content)
}

// Synthesize asks the model for a structured summary of crawl and normalizes
// whatever comes back. Nothing is retried here.
func (s *Synthesizer) Synthesize(ctx context.Context, crawl *crawler.Result) (record *models.EnrichmentRecord, err error) {
	if s.completer == nil {
		return nil, errors.NewConfigurationError("llm")
	}

	ctx, span := observability.StartSpan(ctx, "enrichment.Synthesize",
		attribute.String("host", crawl.Host),
		attribute.Int("pages", len(crawl.Pages)),
	)
	defer func() { observability.EndSpan(span, err) }()

	content, err := s.completer.Complete(ctx, llm.Request{
		Purpose:     "enrichment",
		UserPrompt:  BuildPrompt(crawl.Combined),
		Temperature: s.temperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	raw, err := ParseObject(content)
	if err != nil {
		s.logger.Warn("model returned invalid json", map[string]interface{}{
			"host":   crawl.Host,
			"length": len(content),
		})
		return nil, err
	}

	record = models.NormalizeEnrichment(raw)
	record.Source = crawl.Input
	if record.Source == "" {
		record.Source = crawl.Root
	}
	record.Sources = crawl.Sources()
	record.Timestamp = s.now().UTC().Format(time.RFC3339)
	return record, nil
}

// ParseObject decodes content as a JSON object, tolerating a surrounding
// markdown code fence.
func ParseObject(content string) (map[string]interface{}, error) {
	content = stripFence(strings.TrimSpace(content))
	if content == "" {
		return nil, errors.NewLLMEmptyResponseError()
	}

	var v interface{}
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return nil, errors.NewLLMInvalidJSONError(err)
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.NewLLMInvalidJSONError(fmt.Errorf("expected object, got %T", v))
	}
	return obj, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
