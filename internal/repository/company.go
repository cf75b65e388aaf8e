// internal/repository/company.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"scout-workers/internal/common/errors"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/redis/go-redis/v9"
)

const (
	companiesTable  = "companies"
	profileCacheTTL = 10 * time.Minute
)

// CompanyRepository reads tracked companies and stores their enrichment.
type CompanyRepository interface {
	GetCompanyProfile(ctx context.Context, id string) (*models.CompanyProfile, error)
	SaveEnrichment(ctx context.Context, id string, record *models.EnrichmentRecord) error
}

type PostgresCompanyRepository struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
	psql     sq.StatementBuilderType
	logger   logger.Logger
}

// NewCompanyRepository caches profiles in redis when it is non-nil.
func NewCompanyRepository(db *sql.DB, redis *redis.Client, cacheTTL time.Duration, log logger.Logger) *PostgresCompanyRepository {
	if cacheTTL <= 0 {
		cacheTTL = profileCacheTTL
	}
	return &PostgresCompanyRepository{
		db:       db,
		redis:    redis,
		cacheTTL: cacheTTL,
		psql:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:   log.WithFields(map[string]interface{}{"component": "company-repository"}),
	}
}

func ProfileCacheKey(id string) string {
	return "company:profile:" + id
}

func (r *PostgresCompanyRepository) GetCompanyProfile(ctx context.Context, id string) (*models.CompanyProfile, error) {
	if profile := r.cachedProfile(ctx, id); profile != nil {
		return profile, nil
	}

	query, args, err := r.psql.
		Select(
			"id",
			"name",
			"COALESCE(domain, '')",
			"COALESCE(industry, '')",
			"COALESCE(stage, '')",
			"COALESCE(location, '')",
			"COALESCE(employee_count, '')",
			"COALESCE(total_funding, '')",
			"tags",
			"COALESCE(description, '')",
			"enrichment",
		).
		From(companiesTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("build profile query: %w", err))
	}

	var (
		profile    models.CompanyProfile
		tags       []byte
		enrichment []byte
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&profile.ID,
		&profile.Name,
		&profile.Domain,
		&profile.Industry,
		&profile.Stage,
		&profile.Location,
		&profile.EmployeeCount,
		&profile.TotalFunding,
		&tags,
		&profile.Description,
		&enrichment,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewCompanyNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get company profile", err)
	}

	profile.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &profile.Tags); err != nil {
			r.logger.Warn("ignoring malformed tags", map[string]interface{}{"companyId": id, "error": err.Error()})
			profile.Tags = []string{}
		}
	}
	if len(enrichment) > 0 && string(enrichment) != "null" {
		var record models.EnrichmentRecord
		if err := json.Unmarshal(enrichment, &record); err != nil {
			r.logger.Warn("ignoring malformed enrichment", map[string]interface{}{"companyId": id, "error": err.Error()})
		} else {
			profile.Enrichment = &record
		}
	}

	r.cacheProfile(ctx, &profile)
	return &profile, nil
}

// SaveEnrichment replaces the stored enrichment for id and drops its cached
// profile. Concurrent saves are last-write-wins.
func (r *PostgresCompanyRepository) SaveEnrichment(ctx context.Context, id string, record *models.EnrichmentRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.NewInternalError(fmt.Errorf("marshal enrichment: %w", err))
	}

	query, args, err := r.psql.
		Update(companiesTable).
		Set("enrichment", payload).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.NewInternalError(fmt.Errorf("build enrichment update: %w", err))
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.NewPersistenceError("save enrichment", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewCompanyNotFoundError(id)
	}

	if r.redis != nil {
		if err := r.redis.Del(ctx, ProfileCacheKey(id)).Err(); err != nil {
			r.logger.Warn("failed to invalidate profile cache", map[string]interface{}{"companyId": id, "error": err.Error()})
		}
	}

	r.logger.Info("enrichment saved", map[string]interface{}{
		"companyId": id,
		"sources":   len(record.Sources),
	})
	return nil
}

func (r *PostgresCompanyRepository) cachedProfile(ctx context.Context, id string) *models.CompanyProfile {
	if r.redis == nil {
		return nil
	}
	val, err := r.redis.Get(ctx, ProfileCacheKey(id)).Result()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			r.logger.Warn("profile cache read failed", map[string]interface{}{"companyId": id, "error": err.Error()})
		}
		return nil
	}
	var profile models.CompanyProfile
	if err := json.Unmarshal([]byte(val), &profile); err != nil {
		return nil
	}
	return &profile
}

func (r *PostgresCompanyRepository) cacheProfile(ctx context.Context, profile *models.CompanyProfile) {
	if r.redis == nil {
		return
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, ProfileCacheKey(profile.ID), data, r.cacheTTL).Err(); err != nil {
		r.logger.Warn("profile cache write failed", map[string]interface{}{"companyId": profile.ID, "error": err.Error()})
	}
}
