// internal/common/llm/client.go
package llm

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"scout-workers/internal/common/errors"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/common/metrics"
	"scout-workers/internal/common/observability"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
	DefaultTimeout = 60 * time.Second

	apiKeySetting = "GROQ_API_KEY"
)

// Completer sends one chat completion and returns the trimmed reply text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Request struct {
	Purpose      string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	JSONMode     bool
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	openai     openai.Client
	model      string
	timeout    time.Duration
	configured bool
	logger     logger.Logger
}

// New never fails on a missing key. Each call reports CONFIGURATION_MISSING
// instead, so the worker can still start and serve the other task types.
func New(cfg Config, log logger.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		openai: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0),
		),
		model:      model,
		timeout:    timeout,
		configured: strings.TrimSpace(cfg.APIKey) != "",
		logger:     log.WithFields(map[string]interface{}{"component": "llm", "model": model}),
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Complete(ctx context.Context, req Request) (reply string, err error) {
	if !c.configured {
		return "", errors.NewConfigurationError(apiKeySetting)
	}

	purpose := req.Purpose
	if purpose == "" {
		purpose = "default"
	}

	ctx, span := observability.StartSpan(ctx, "llm.Complete",
		attribute.String("llm.purpose", purpose),
		attribute.String("llm.model", c.model),
	)
	defer func() { observability.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	start := time.Now()
	resp, err := c.openai.Chat.Completions.New(ctx, params)
	metrics.LLMRequestDuration.WithLabelValues(purpose).Observe(time.Since(start).Seconds())
	if err != nil {
		mapped := c.mapError(ctx, err)
		metrics.LLMRequests.WithLabelValues(purpose, string(mapped.Code)).Inc()
		return "", mapped
	}

	c.logger.Debug("llm completion finished", map[string]interface{}{
		"purpose":          purpose,
		"durationMs":       time.Since(start).Milliseconds(),
		"promptTokens":     resp.Usage.PromptTokens,
		"completionTokens": resp.Usage.CompletionTokens,
	})

	if len(resp.Choices) > 0 {
		reply = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if reply == "" {
		metrics.LLMRequests.WithLabelValues(purpose, string(errors.ErrCodeLLMEmptyResponse)).Inc()
		return "", errors.NewLLMEmptyResponseError()
	}

	metrics.LLMRequests.WithLabelValues(purpose, "ok").Inc()
	return reply, nil
}

func (c *Client) mapError(ctx context.Context, err error) *errors.StandardError {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewLLMTimeoutError(err)
	}

	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		c.logger.Warn("llm request rejected", map[string]interface{}{
			"statusCode": apiErr.StatusCode,
			"errorType":  apiErr.Type,
		})
		return errors.NewLLMRequestFailedError(err).WithMetadata("statusCode", apiErr.StatusCode)
	}

	c.logger.Warn("llm request failed", map[string]interface{}{"error": err.Error()})
	return errors.NewLLMRequestFailedError(err)
}
