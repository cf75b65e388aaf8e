// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"time"

	"scout-workers/internal/common/auth"
	"scout-workers/internal/common/aws"
	"scout-workers/internal/common/config"
	"scout-workers/internal/common/crawler"
	"scout-workers/internal/common/database"
	httpx "scout-workers/internal/common/http"
	"scout-workers/internal/common/llm"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/common/webtext"
	"scout-workers/internal/repository"
	enrichcompany "scout-workers/internal/workers/enrichment/enrich-company"
	fetchlivefeed "scout-workers/internal/workers/intelligence/fetch-live-feed"
	scoutchat "scout-workers/internal/workers/intelligence/scout-chat"
	calculatefitscore "scout-workers/internal/workers/scoring/calculate-fit-score"
)

// App holds the connected backends and the four handlers built on them.
// Both binaries construct it the same way.
type App struct {
	Config    *config.Config
	Postgres  *database.PostgresClient
	Redis     *database.RedisClient
	Search    *database.ElasticsearchClient
	Validator auth.TokenValidator

	Enrich   *enrichcompany.Handler
	Chat     *scoutchat.Handler
	LiveFeed *fetchlivefeed.Handler
	Score    *calculatefitscore.Handler

	log logger.Logger
}

// Build connects to Postgres and Redis (retrying), Elasticsearch and SNS
// when enabled, and wires the handlers.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{Config: cfg, log: log}

	err := RetryWithBackoff(func() error {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return err
		}
		a.Postgres = pg
		return nil
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	log.Info("PostgreSQL connected successfully", nil)

	a.Redis = database.NewRedis(cfg.Database.Redis)
	err = RetryWithBackoff(func() error {
		return a.Redis.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Info("Redis connected successfully", nil)

	var indexer repository.EnrichmentIndexer
	a.Search, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.Search != nil {
		if err := a.Search.Ping(ctx); err != nil {
			log.Warn("elasticsearch unavailable, enrichment indexing will be retried per request", map[string]interface{}{
				"error": err.Error(),
			})
		}
		indexer = repository.NewEnrichmentIndex(a.Search.Client, cfg.Database.Elasticsearch.EnrichmentIndex)
	}

	var publisher aws.EventPublisher = aws.NoopPublisher{}
	if cfg.Integrations.AWS.SNS.Enabled {
		sns, err := aws.NewSNSPublisher(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SNS.TopicARN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("sns publisher: %w", err)
		}
		publisher = sns
	}

	if kc := cfg.Auth.Keycloak; kc.URL != "" {
		a.Validator = auth.NewKeycloakClient(kc.URL, kc.Realm, kc.ClientID, kc.ClientSecret)
	}

	repo := repository.NewCompanyRepository(a.Postgres.DB, a.Redis.Client, 10*time.Minute, log)

	fetcher := httpx.NewFetcher(httpx.Config{
		Timeout:      config.GetDuration(cfg.Fetch.Timeout),
		UserAgent:    cfg.Fetch.UserAgent,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	}, httpx.NewLimiter(cfg.Fetch.MaxConcurrency))

	siteCrawler := crawler.New(
		webtext.NewExtractor(fetcher, cfg.Fetch.MaxPageChars, log),
		crawler.Config{MaxPages: cfg.Fetch.MaxPages, MaxCombinedChars: cfg.Fetch.MaxCombinedChars},
		log,
	)

	completer := llm.New(llm.Config{
		APIKey:  cfg.APIs.LLM.APIKey,
		BaseURL: cfg.APIs.LLM.BaseURL,
		Model:   cfg.APIs.LLM.Model,
		Timeout: config.GetDuration(cfg.APIs.LLM.Timeout),
	}, log)

	enrichCfg := enrichcompany.LoadConfig()
	enrichCfg.Timeout = taskTimeout(cfg, enrichcompany.TaskType, enrichCfg.Timeout)
	enrichCfg.Temperature = cfg.APIs.LLM.EnrichmentTemperature
	a.Enrich = enrichcompany.NewHandler(
		enrichCfg,
		siteCrawler,
		enrichcompany.NewSynthesizer(completer, enrichCfg.Temperature, log),
		repo,
		indexer,
		publisher,
		log,
	)

	chatCfg := scoutchat.LoadConfig()
	chatCfg.Timeout = taskTimeout(cfg, scoutchat.TaskType, chatCfg.Timeout)
	chatCfg.Temperature = cfg.APIs.LLM.ChatTemperature
	chatCfg.MaxTokens = cfg.APIs.LLM.ChatMaxTokens
	a.Chat = scoutchat.NewHandler(chatCfg, completer, log)

	feedCfg := fetchlivefeed.LoadConfig()
	feedCfg.Timeout = taskTimeout(cfg, fetchlivefeed.TaskType, feedCfg.Timeout)
	feedCfg.FeedBaseURL = cfg.APIs.NewsFeed.BaseURL
	feedCfg.CacheTTL = config.GetDuration(cfg.APIs.NewsFeed.CacheTTL)
	a.LiveFeed = fetchlivefeed.NewHandler(feedCfg, fetcher, a.Redis.Client, log)

	scoreCfg := calculatefitscore.LoadConfig()
	scoreCfg.Timeout = taskTimeout(cfg, calculatefitscore.TaskType, scoreCfg.Timeout)
	a.Score = calculatefitscore.NewHandler(scoreCfg, repo, log)

	return a, nil
}

// Ping reports the health of the required backends.
func (a *App) Ping(ctx context.Context) map[string]error {
	out := map[string]error{
		"postgres": a.Postgres.Ping(ctx),
		"redis":    a.Redis.Ping(ctx),
	}
	if a.Search != nil {
		out["elasticsearch"] = a.Search.Ping(ctx)
	}
	return out
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.log.Warn("error closing redis", map[string]interface{}{"error": err.Error()})
		}
	}
	if a.Postgres != nil {
		if err := a.Postgres.Close(); err != nil {
			a.log.Warn("error closing postgres", map[string]interface{}{"error": err.Error()})
		}
	}
}

// taskTimeout uses the worker's configured job timeout, falling back to def.
func taskTimeout(cfg *config.Config, taskType string, def time.Duration) time.Duration {
	if w, ok := cfg.Workers[taskType]; ok && w.Timeout > 0 {
		return config.GetDuration(w.Timeout)
	}
	return def
}

// RetryWithBackoff runs operation until it succeeds, doubling the delay
// between attempts.
func RetryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(operationName+" failed, retrying...", map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
