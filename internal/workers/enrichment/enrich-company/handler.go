// internal/workers/enrichment/enrich-company/handler.go
package enrichcompany

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"scout-workers/internal/common/aws"
	"scout-workers/internal/common/crawler"
	"scout-workers/internal/common/errors"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/common/validation"
	"scout-workers/internal/models"
	"scout-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "enrich-company"
)

var inputSchema = validation.Schema{
	"type":     "object",
	"required": []interface{}{"url"},
	"properties": map[string]interface{}{
		"url":       map[string]interface{}{"type": "string", "minLength": 1},
		"companyId": map[string]interface{}{"type": "string"},
	},
}

type SiteCrawler interface {
	Crawl(ctx context.Context, rawURL string) (*crawler.Result, error)
}

type Handler struct {
	config      *Config
	crawler     SiteCrawler
	synthesizer *Synthesizer
	repo        repository.CompanyRepository
	indexer     repository.EnrichmentIndexer
	publisher   aws.EventPublisher
	logger      logger.Logger
	errHandler  *errors.ErrorHandler
}

// NewHandler accepts a nil indexer and publisher. The repository is only
// needed for requests that name a company.
func NewHandler(
	config *Config,
	siteCrawler SiteCrawler,
	synthesizer *Synthesizer,
	repo repository.CompanyRepository,
	indexer repository.EnrichmentIndexer,
	publisher aws.EventPublisher,
	log logger.Logger,
) *Handler {
	if publisher == nil {
		publisher = aws.NoopPublisher{}
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		crawler:     siteCrawler,
		synthesizer: synthesizer,
		repo:        repo,
		indexer:     indexer,
		publisher:   publisher,
		logger:      l,
		errHandler:  errors.NewErrorHandler(l),
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

// Execute crawls the site, synthesizes a fresh record and, when a company is
// named, replaces its stored enrichment. A failure at any step stores nothing.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validation.Check(inputSchema, input); err != nil {
		return nil, err
	}
	if _, err := crawler.NormalizeURL(input.URL); err != nil {
		return nil, err
	}

	companyID := strings.TrimSpace(input.CompanyID)
	if companyID != "" && h.repo == nil {
		return nil, errors.NewConfigurationError("database.postgres")
	}

	crawl, err := h.crawler.Crawl(ctx, input.URL)
	if err != nil {
		return nil, err
	}

	record, err := h.synthesizer.Synthesize(ctx, crawl)
	if err != nil {
		return nil, err
	}

	h.logger.Info("enrichment synthesized", map[string]interface{}{
		"source":   record.Source,
		"pages":    len(record.Sources),
		"keywords": len(record.Keywords),
	})

	if companyID != "" {
		if err := h.repo.SaveEnrichment(ctx, companyID, record); err != nil {
			return nil, err
		}
		h.index(ctx, companyID, record)
		h.publish(ctx, companyID, record)
	}

	return &Output{EnrichmentRecord: record, CompanyID: companyID}, nil
}

func (h *Handler) index(ctx context.Context, companyID string, record *models.EnrichmentRecord) {
	if h.indexer == nil {
		return
	}
	if err := h.indexer.IndexEnrichment(ctx, companyID, record); err != nil {
		h.logger.Warn("failed to index enrichment", map[string]interface{}{
			"companyId": companyID,
			"error":     err.Error(),
		})
	}
}

func (h *Handler) publish(ctx context.Context, companyID string, record *models.EnrichmentRecord) {
	event := EnrichmentCompletedEvent{
		CompanyID: companyID,
		Source:    record.Source,
		Sources:   record.Sources,
		Keywords:  record.Keywords,
		Timestamp: record.Timestamp,
	}
	if err := h.publisher.Publish(ctx, aws.EventEnrichmentCompleted, event); err != nil {
		h.logger.Warn("failed to publish enrichment event", map[string]interface{}{
			"companyId": companyID,
			"error":     err.Error(),
		})
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(map[string]interface{}{
			"enrichment": output.EnrichmentRecord,
			"companyId":  output.CompanyID,
		})
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
		"jobKey":    job.Key,
		"companyId": output.CompanyID,
	})
	return nil
}
