// internal/workers/intelligence/scout-chat/handler.go
package scoutchat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"scout-workers/internal/common/errors"
	"scout-workers/internal/common/llm"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/common/observability"
	"scout-workers/internal/common/validation"
	"scout-workers/internal/common/webtext"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "scout-chat"
)

var inputSchema = validation.Schema{
	"type":     "object",
	"required": []interface{}{"message"},
	"properties": map[string]interface{}{
		"message":   map[string]interface{}{"type": "string"},
		"thesis":    map[string]interface{}{"type": []interface{}{"object", "null"}},
		"companies": map[string]interface{}{"type": []interface{}{"array", "null"}},
	},
}

type Handler struct {
	config     *Config
	completer  llm.Completer
	now        func() time.Time
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, completer llm.Completer, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		completer:  completer,
		now:        time.Now,
		logger:     l,
		errHandler: errors.NewErrorHandler(l),
	}
}

func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		stdErr := errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
		h.errHandler.HandleJobError(context.Background(), client, job, stdErr)
		return stdErr
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(context.Background(), client, job, err)
		return err
	}

	return h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (output *Output, err error) {
	if err := validation.Check(inputSchema, input); err != nil {
		return nil, err
	}

	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, errors.NewInvalidInputError("message is required")
	}
	if h.completer == nil {
		return nil, errors.NewConfigurationError("llm")
	}

	companies := input.Companies
	if len(companies) > MaxCompanies {
		companies = companies[:MaxCompanies]
	}

	ctx, span := observability.StartSpan(ctx, "chat.Reply", attribute.Int("companies", len(companies)))
	defer func() { observability.EndSpan(span, err) }()

	reply, err := h.completer.Complete(ctx, llm.Request{
		Purpose:      "chat",
		SystemPrompt: SystemPrompt(input.Thesis, companies),
		UserPrompt:   webtext.Truncate(message, MaxMessageRunes),
		Temperature:  h.config.Temperature,
		MaxTokens:    h.config.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("chat reply generated", map[string]interface{}{
		"companies":  len(companies),
		"replyRunes": len([]rune(reply)),
	})

	return &Output{Reply: reply, Timestamp: h.now().UTC()}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return errors.NewInternalError(err)
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return errors.NewInternalError(err)
	}

	h.logger.Info("job completed", map[string]interface{}{"jobKey": job.Key})
	return nil
}
