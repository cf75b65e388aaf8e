// internal/workers/intelligence/fetch-live-feed/handler.go
package fetchlivefeed

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"scout-workers/internal/common/errors"
	httpx "scout-workers/internal/common/http"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/common/metrics"
	"scout-workers/internal/common/observability"
	"scout-workers/internal/common/validation"
	"scout-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	TaskType = "fetch-live-feed"
)

var inputSchema = validation.Schema{
	"type": "object",
	"properties": map[string]interface{}{
		"companies":  validation.StringList(),
		"perCompany": map[string]interface{}{"type": "integer"},
		"limit":      map[string]interface{}{"type": "integer"},
	},
}

// Getter is satisfied by *httpx.Fetcher.
type Getter interface {
	Get(ctx context.Context, url string) (*httpx.Response, error)
}

type Handler struct {
	config     *Config
	getter     Getter
	redis      *redis.Client
	now        func() time.Time
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

// NewHandler caches per-company results in redis when it is non-nil.
func NewHandler(config *Config, getter Getter, redis *redis.Client, log logger.Logger) *Handler {
	if config.FeedBaseURL == "" {
		config.FeedBaseURL = DefaultFeedBaseURL
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		getter:     getter,
		redis:      redis,
		now:        time.Now,
		logger:     l,
		errHandler: errors.NewErrorHandler(l),
	}
}

// WithClock sets the clock used for items with an unreadable pubDate.
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

// Execute fetches news for every company concurrently. A company whose feed
// fails contributes no items; it never fails the whole request.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validation.Check(inputSchema, input); err != nil {
		return nil, err
	}

	companies := NormalizeCompanies(input.Companies)
	perCompany := clamp(input.PerCompany, DefaultPerCompany, MaxPerCompany)
	limit := clamp(input.Limit, DefaultLimit, MaxLimit)

	if len(companies) == 0 {
		return &Output{Items: []models.NewsItem{}}, nil
	}

	results := make([][]models.NewsItem, len(companies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxCompanies)
	for i, company := range companies {
		i, company := i, company
		g.Go(func() error {
			items, err := h.companyNews(gctx, company, perCompany)
			if err != nil {
				h.logger.Warn("live feed fetch failed", map[string]interface{}{
					"company": company,
					"error":   err.Error(),
				})
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var all []models.NewsItem
	for _, items := range results {
		all = append(all, items...)
	}
	items := Rank(all, limit)

	h.logger.Info("live feed assembled", map[string]interface{}{
		"companies": len(companies),
		"items":     len(items),
	})
	return &Output{Items: items}, nil
}

func (h *Handler) companyNews(ctx context.Context, company string, perCompany int) (items []models.NewsItem, err error) {
	ctx, span := observability.StartSpan(ctx, "livefeed.companyNews", attribute.String("company", company))
	defer func() { observability.EndSpan(span, err) }()

	key := CacheKey(perCompany, company)
	if cached, ok := h.cached(ctx, key); ok {
		metrics.NewsFeedFetches.WithLabelValues("cache_hit").Inc()
		return cached, nil
	}

	resp, err := h.getter.Get(ctx, FeedURL(h.config.FeedBaseURL, company))
	if err != nil {
		metrics.NewsFeedFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	if !resp.OK() {
		metrics.NewsFeedFetches.WithLabelValues("status").Inc()
		return nil, fmt.Errorf("news feed returned status %d", resp.StatusCode)
	}

	items, err = ParseFeed(company, resp.Body, perCompany, h.now())
	if err != nil {
		metrics.NewsFeedFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.NewsFeedFetches.WithLabelValues("ok").Inc()

	h.store(ctx, key, items)
	return items, nil
}

func (h *Handler) cached(ctx context.Context, key string) ([]models.NewsItem, bool) {
	if h.redis == nil || h.config.CacheTTL <= 0 {
		return nil, false
	}
	val, err := h.redis.Get(ctx, key).Result()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			h.logger.Warn("live feed cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return nil, false
	}
	var items []models.NewsItem
	if err := json.Unmarshal([]byte(val), &items); err != nil {
		return nil, false
	}
	return items, true
}

func (h *Handler) store(ctx context.Context, key string, items []models.NewsItem) {
	if h.redis == nil || h.config.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, key, data, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("live feed cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
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
		"jobKey": job.Key,
		"items":  len(output.Items),
	})
	return nil
}

func CacheKey(perCompany int, company string) string {
	return "livefeed:" + strconv.Itoa(perCompany) + ":" + strings.ToLower(company)
}

// NormalizeCompanies trims names, drops blanks and case-insensitive
// duplicates, and keeps the first MaxCompanies.
func NormalizeCompanies(names []string) []string {
	out := make([]string, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
		if len(out) == MaxCompanies {
			break
		}
	}
	return out
}

// Rank dedupes by URL, sorts newest first and truncates to limit. A later
// duplicate replaces the earlier item but keeps its position.
func Rank(items []models.NewsItem, limit int) []models.NewsItem {
	out := make([]models.NewsItem, 0, len(items))
	index := map[string]int{}
	for _, item := range items {
		if i, ok := index[item.URL]; ok {
			out[i] = item
			continue
		}
		index[item.URL] = len(out)
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func clamp(v, def, max int) int {
	switch {
	case v == 0:
		return def
	case v < 1:
		return 1
	case v > max:
		return max
	default:
		return v
	}
}
