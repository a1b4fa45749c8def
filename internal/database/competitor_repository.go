package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/regradar/internal/domain"
)

// CompetitorRepository handles database operations for tracked competitors.
// Unlike policies, competitors are updated in place: a new article about a
// known source refreshes the existing row and replaces its analysis.
type CompetitorRepository struct {
	db *sqlx.DB
}

// NewCompetitorRepository creates a new competitor repository.
func NewCompetitorRepository(db *sqlx.DB) *CompetitorRepository {
	return &CompetitorRepository{db: db}
}

// FindBySourceURL retrieves the competitor whose sources list contains the
// given URL, or nil when no competitor matches.
func (r *CompetitorRepository) FindBySourceURL(ctx context.Context, userID int64, sourceURL string) (*domain.CompetitorInfo, error) {
	var competitor domain.CompetitorInfo
	query := `
		SELECT id, title, company_name, type, importance, relevance, key_points,
		       capture_time, sources, tags, content, summary, market_impact,
		       related_info, batch_source, user_id, created_at, updated_at
		FROM competitor_info
		WHERE user_id = $1 AND sources::text LIKE $2
		ORDER BY id
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &competitor, query, userID, "%"+sourceURL+"%")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find competitor by source url: %w", err)
	}

	return &competitor, nil
}

// Create inserts a new competitor row.
func (r *CompetitorRepository) Create(ctx context.Context, competitor *domain.CompetitorInfo) error {
	query := `
		INSERT INTO competitor_info (title, company_name, type, importance,
		                             relevance, key_points, capture_time, sources,
		                             tags, content, summary, market_impact,
		                             related_info, batch_source, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		competitor.Title,
		competitor.CompanyName,
		competitor.Type,
		competitor.Importance,
		competitor.Relevance,
		competitor.KeyPoints,
		competitor.CaptureTime,
		competitor.Sources,
		competitor.Tags,
		competitor.Content,
		competitor.Summary,
		competitor.MarketImpact,
		competitor.RelatedInfo,
		competitor.BatchSource,
		competitor.UserID,
	).Scan(&competitor.ID, &competitor.CreatedAt, &competitor.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create competitor: %w", err)
	}

	return nil
}

// Update rewrites the mutable fields of an existing competitor.
func (r *CompetitorRepository) Update(ctx context.Context, competitor *domain.CompetitorInfo) error {
	query := `
		UPDATE competitor_info
		SET title = $1, company_name = $2, type = $3, importance = $4,
		    relevance = $5, key_points = $6, capture_time = $7, sources = $8,
		    tags = $9, content = $10, summary = $11, market_impact = $12,
		    related_info = $13, batch_source = $14, updated_at = NOW()
		WHERE id = $15
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		competitor.Title,
		competitor.CompanyName,
		competitor.Type,
		competitor.Importance,
		competitor.Relevance,
		competitor.KeyPoints,
		competitor.CaptureTime,
		competitor.Sources,
		competitor.Tags,
		competitor.Content,
		competitor.Summary,
		competitor.MarketImpact,
		competitor.RelatedInfo,
		competitor.BatchSource,
		competitor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update competitor: %w", err)
	}

	return execRequireRows(result, nil, fmt.Errorf("competitor not found: %d", competitor.ID))
}

// UpsertAnalysis replaces the competitor's single analysis row at sort
// order 1, inserting it when none exists yet.
func (r *CompetitorRepository) UpsertAnalysis(ctx context.Context, analysis *domain.CompetitorAnalysis) error {
	analysis.SortOrder = 1

	updateQuery := `
		UPDATE competitor_analysis
		SET importance = $1, relevance = $2, key_points = $3, market_impact = $4,
		    competitive_analysis = $5, content = $6, our_suggestions = $7,
		    updated_at = NOW()
		WHERE competitor_id = $8 AND sort_order = 1
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		updateQuery,
		analysis.Importance,
		analysis.Relevance,
		analysis.KeyPoints,
		analysis.MarketImpact,
		analysis.CompetitiveAnalysis,
		analysis.Content,
		analysis.OurSuggestions,
		analysis.CompetitorID,
	).Scan(&analysis.ID, &analysis.CreatedAt, &analysis.UpdatedAt)

	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to update competitor analysis: %w", err)
	}

	insertQuery := `
		INSERT INTO competitor_analysis (competitor_id, importance, relevance,
		                                 key_points, market_impact,
		                                 competitive_analysis, content,
		                                 our_suggestions, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
		RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRowContext(
		ctx,
		insertQuery,
		analysis.CompetitorID,
		analysis.Importance,
		analysis.Relevance,
		analysis.KeyPoints,
		analysis.MarketImpact,
		analysis.CompetitiveAnalysis,
		analysis.Content,
		analysis.OurSuggestions,
	).Scan(&analysis.ID, &analysis.CreatedAt, &analysis.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert competitor analysis: %w", err)
	}

	return nil
}

// GetAnalysis retrieves the competitor's current analysis, or nil when the
// competitor has not been analyzed yet.
func (r *CompetitorRepository) GetAnalysis(ctx context.Context, competitorID int64) (*domain.CompetitorAnalysis, error) {
	var analysis domain.CompetitorAnalysis
	query := `
		SELECT id, competitor_id, importance, relevance, key_points,
		       market_impact, competitive_analysis, content, our_suggestions,
		       sort_order, created_at, updated_at
		FROM competitor_analysis
		WHERE competitor_id = $1 AND sort_order = 1
	`

	err := r.db.GetContext(ctx, &analysis, query, competitorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get competitor analysis: %w", err)
	}

	return &analysis, nil
}
