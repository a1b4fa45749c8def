package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/regradar/internal/domain"
)

const crawlConfigColumns = `
	config_id, target_name, source_urls, crawl_depth, max_articles, transport,
	result_path, trigger_schedule, is_active, is_deleted, create_time, update_time
`

// ConfigRepository handles database operations for crawl configs.
type ConfigRepository struct {
	db *sqlx.DB
}

// NewConfigRepository creates a new crawl config repository.
func NewConfigRepository(db *sqlx.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// Create inserts a new crawl config.
func (r *ConfigRepository) Create(ctx context.Context, cfg *domain.CrawlConfig) error {
	query := `
		INSERT INTO crawler_config (target_name, source_urls, crawl_depth, max_articles,
		                            transport, result_path, trigger_schedule, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING config_id, create_time, update_time
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		cfg.TargetName,
		cfg.SourceURLs,
		cfg.CrawlDepth,
		cfg.MaxArticles,
		cfg.Transport,
		cfg.ResultPath,
		cfg.TriggerSchedule,
		cfg.IsActive,
	).Scan(&cfg.ID, &cfg.CreateTime, &cfg.UpdateTime)

	if err != nil {
		return fmt.Errorf("failed to create crawl config: %w", err)
	}

	return nil
}

// GetByID retrieves a crawl config by its ID. Soft-deleted configs are
// treated as absent.
func (r *ConfigRepository) GetByID(ctx context.Context, id int64) (*domain.CrawlConfig, error) {
	var cfg domain.CrawlConfig
	query := `SELECT ` + crawlConfigColumns + ` FROM crawler_config WHERE config_id = $1 AND is_deleted = FALSE`

	err := r.db.GetContext(ctx, &cfg, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to get crawl config: %w", err)
	}

	return &cfg, nil
}

// List retrieves crawl configs, optionally only active ones.
func (r *ConfigRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*domain.CrawlConfig, error) {
	var configs []*domain.CrawlConfig
	var query string
	var args []any

	if activeOnly {
		query = `SELECT ` + crawlConfigColumns + `
			FROM crawler_config
			WHERE is_deleted = FALSE AND is_active = TRUE
			ORDER BY config_id
			LIMIT $1 OFFSET $2`
		args = []any{limit, offset}
	} else {
		query = `SELECT ` + crawlConfigColumns + `
			FROM crawler_config
			WHERE is_deleted = FALSE
			ORDER BY config_id
			LIMIT $1 OFFSET $2`
		args = []any{limit, offset}
	}

	err := r.db.SelectContext(ctx, &configs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl configs: %w", err)
	}

	if configs == nil {
		configs = []*domain.CrawlConfig{}
	}

	return configs, nil
}

// ListScheduled retrieves active configs that carry a cron schedule.
func (r *ConfigRepository) ListScheduled(ctx context.Context) ([]*domain.CrawlConfig, error) {
	var configs []*domain.CrawlConfig
	query := `SELECT ` + crawlConfigColumns + `
		FROM crawler_config
		WHERE is_deleted = FALSE AND is_active = TRUE
		  AND trigger_schedule IS NOT NULL AND trigger_schedule <> ''
		ORDER BY config_id`

	err := r.db.SelectContext(ctx, &configs, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled crawl configs: %w", err)
	}

	return configs, nil
}

// Update updates an existing crawl config.
func (r *ConfigRepository) Update(ctx context.Context, cfg *domain.CrawlConfig) error {
	query := `
		UPDATE crawler_config
		SET target_name = $1, source_urls = $2, crawl_depth = $3, max_articles = $4,
		    transport = $5, result_path = $6, trigger_schedule = $7, is_active = $8,
		    update_time = NOW()
		WHERE config_id = $9 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		cfg.TargetName,
		cfg.SourceURLs,
		cfg.CrawlDepth,
		cfg.MaxArticles,
		cfg.Transport,
		cfg.ResultPath,
		cfg.TriggerSchedule,
		cfg.IsActive,
		cfg.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update crawl config: %w", err)
	}

	return execRequireRows(result, nil, domain.ErrConfigNotFound)
}

// SetResultPath records where the latest crawl batch for this config lives.
func (r *ConfigRepository) SetResultPath(ctx context.Context, id int64, resultPath string) error {
	query := `
		UPDATE crawler_config
		SET result_path = $1, update_time = NOW()
		WHERE config_id = $2 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, resultPath, id)
	return execRequireRows(result, err, domain.ErrConfigNotFound)
}

// SoftDelete marks a crawl config as deleted without removing the row.
func (r *ConfigRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `
		UPDATE crawler_config
		SET is_deleted = TRUE, update_time = NOW()
		WHERE config_id = $1 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, id)
	return execRequireRows(result, err, domain.ErrConfigNotFound)
}
