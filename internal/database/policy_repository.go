package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/regradar/internal/domain"
)

// PolicyRepository handles database operations for tracked policies.
// Policies are append-only: every analysis run inserts fresh analysis and
// suggestion rows rather than rewriting old ones.
type PolicyRepository struct {
	db *sqlx.DB
}

// NewPolicyRepository creates a new policy repository.
func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// ExistsByDedupKey reports whether a policy with the given dedup key is
// already stored for the user.
func (r *PolicyRepository) ExistsByDedupKey(ctx context.Context, userID int64, dedupKey string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM policy_info WHERE user_id = $1 AND dedup_key = $2)`

	err := r.db.GetContext(ctx, &exists, query, userID, dedupKey)
	if err != nil {
		return false, fmt.Errorf("failed to check policy dedup key: %w", err)
	}

	return exists, nil
}

// CreatePolicy inserts a new policy row.
func (r *PolicyRepository) CreatePolicy(ctx context.Context, policy *domain.PolicyInfo) error {
	query := `
		INSERT INTO policy_info (title, policy_type, source, source_url, dedup_key,
		                         publish_time, importance, relevance, areas, summary,
		                         batch_source, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		policy.Title,
		policy.PolicyType,
		policy.Source,
		policy.SourceURL,
		policy.DedupKey,
		policy.PublishTime,
		policy.Importance,
		policy.Relevance,
		policy.Areas,
		policy.Summary,
		policy.BatchSource,
		policy.UserID,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create policy: %w", err)
	}

	return nil
}

// CreateAnalysis appends an analysis row for a policy.
func (r *PolicyRepository) CreateAnalysis(ctx context.Context, analysis *domain.PolicyAnalysis) error {
	query := `
		INSERT INTO policy_analysis (policy_id, importance, relevance, summary,
		                             key_points, impact_analysis)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		analysis.PolicyID,
		analysis.Importance,
		analysis.Relevance,
		analysis.Summary,
		analysis.KeyPoints,
		analysis.ImpactAnalysis,
	).Scan(&analysis.ID, &analysis.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create policy analysis: %w", err)
	}

	return nil
}

// CreateSuggestions appends suggestion rows for a policy, preserving the
// analyzer's ordering via sort_order.
func (r *PolicyRepository) CreateSuggestions(ctx context.Context, suggestions []*domain.PolicySuggestion) error {
	if len(suggestions) == 0 {
		return nil
	}

	query := `
		INSERT INTO policy_suggestion (policy_id, suggestion, reason, sort_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	for _, s := range suggestions {
		err := r.db.QueryRowContext(ctx, query, s.PolicyID, s.Suggestion, s.Reason, s.SortOrder).
			Scan(&s.ID, &s.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create policy suggestion: %w", err)
		}
	}

	return nil
}

// GetPolicy retrieves one policy by ID.
func (r *PolicyRepository) GetPolicy(ctx context.Context, id int64) (*domain.PolicyInfo, error) {
	var policy domain.PolicyInfo
	query := `
		SELECT id, title, policy_type, source, source_url, dedup_key, publish_time,
		       importance, relevance, areas, summary, batch_source, user_id,
		       created_at, updated_at
		FROM policy_info
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &policy, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("policy not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	return &policy, nil
}

// ListByBatch retrieves the policies ingested from one crawl batch.
func (r *PolicyRepository) ListByBatch(ctx context.Context, userID int64, batchSource string) ([]*domain.PolicyInfo, error) {
	var policies []*domain.PolicyInfo
	query := `
		SELECT id, title, policy_type, source, source_url, dedup_key, publish_time,
		       importance, relevance, areas, summary, batch_source, user_id,
		       created_at, updated_at
		FROM policy_info
		WHERE user_id = $1 AND batch_source = $2
		ORDER BY id
	`

	err := r.db.SelectContext(ctx, &policies, query, userID, batchSource)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies by batch: %w", err)
	}

	if policies == nil {
		policies = []*domain.PolicyInfo{}
	}

	return policies, nil
}
