// internal/workers/scoring/calculate-fit-score/handler.go
package calculatefitscore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"scout-workers/internal/common/errors"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/common/metrics"
	"scout-workers/internal/common/validation"
	"scout-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "calculate-fit-score"
)

var inputSchema = validation.Schema{
	"type": "object",
	"anyOf": []interface{}{
		map[string]interface{}{"required": []interface{}{"companyId"}},
		map[string]interface{}{"required": []interface{}{"company"}},
	},
	"properties": map[string]interface{}{
		"companyId": map[string]interface{}{"type": "string", "minLength": 1},
		"company":   map[string]interface{}{"type": "object"},
		"thesis": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"sectors":       validation.StringList(),
				"stages":        validation.StringList(),
				"geographies":   validation.StringList(),
				"keywords":      validation.StringList(),
				"antiPortfolio": validation.StringList(),
			},
		},
	},
}

type Handler struct {
	config     *Config
	repo       repository.CompanyRepository
	now        func() time.Time
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, repo repository.CompanyRepository, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		repo:       repo,
		now:        time.Now,
		logger:     l,
		errHandler: errors.NewErrorHandler(l),
	}
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

// Execute resolves the company profile and scores it. Only the lookup
// touches the outside world.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validation.Check(inputSchema, input); err != nil {
		return nil, err
	}

	company := input.Company
	if company == nil {
		if h.repo == nil {
			return nil, errors.NewConfigurationError("database.postgres")
		}
		profile, err := h.repo.GetCompanyProfile(ctx, input.CompanyID)
		if err != nil {
			return nil, err
		}
		company = profile
	}

	breakdown := Evaluate(company, input.Thesis, input.News, h.now().UTC())
	metrics.FitScores.Observe(float64(breakdown.Score))

	companyID := input.CompanyID
	if companyID == "" {
		companyID = company.ID
	}

	h.logger.Info("fit score calculated", map[string]interface{}{
		"companyId": companyID,
		"score":     breakdown.Score,
		"tier":      breakdown.Tier,
	})

	return &Output{
		CompanyID: companyID,
		FitScore:  breakdown.Score,
		Tier:      breakdown.Tier,
		Factors:   breakdown.Factors,
	}, nil
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

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":   job.Key,
		"fitScore": output.FitScore,
	})
	return nil
}

// WithClock replaces the scoring clock, for tests and replays.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}
