package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/regradar/internal/domain"
)

const taskLogColumns = `
	log_id, task_id, config_id, target_url, start_time, end_time, status,
	error_message, batch_path, article_count, category_stats, analysis_status,
	analysis_result, is_deleted, created_at, updated_at
`

// TaskLogRepository handles database operations for crawl task logs.
type TaskLogRepository struct {
	db *sqlx.DB
}

// NewTaskLogRepository creates a new task log repository.
func NewTaskLogRepository(db *sqlx.DB) *TaskLogRepository {
	return &TaskLogRepository{db: db}
}

// Create inserts a new task log row for a starting crawl attempt.
func (r *TaskLogRepository) Create(ctx context.Context, log *domain.TaskLog) error {
	query := `
		INSERT INTO crawler_task_log (task_id, config_id, target_url, start_time,
		                              status, analysis_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING log_id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		log.TaskID,
		log.ConfigID,
		log.TargetURL,
		log.StartTime,
		log.Status,
		log.AnalysisStatus,
	).Scan(&log.LogID, &log.CreatedAt, &log.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task log: %w", err)
	}

	return nil
}

// GetByID retrieves a task log by its numeric log ID.
func (r *TaskLogRepository) GetByID(ctx context.Context, logID int64) (*domain.TaskLog, error) {
	var log domain.TaskLog
	query := `SELECT ` + taskLogColumns + ` FROM crawler_task_log WHERE log_id = $1 AND is_deleted = FALSE`

	err := r.db.GetContext(ctx, &log, query, logID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskLogNotFound
		}
		return nil, fmt.Errorf("failed to get task log: %w", err)
	}

	return &log, nil
}

// GetByTaskID retrieves the task log carrying the given task ID. Task IDs
// are unique among non-deleted rows.
func (r *TaskLogRepository) GetByTaskID(ctx context.Context, taskID string) (*domain.TaskLog, error) {
	var log domain.TaskLog
	query := `SELECT ` + taskLogColumns + ` FROM crawler_task_log WHERE task_id = $1 AND is_deleted = FALSE`

	err := r.db.GetContext(ctx, &log, query, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskLogNotFound
		}
		return nil, fmt.Errorf("failed to get task log by task id: %w", err)
	}

	return &log, nil
}

// ListByConfig retrieves task logs for one config, newest first.
func (r *TaskLogRepository) ListByConfig(ctx context.Context, configID int64, limit, offset int) ([]*domain.TaskLog, error) {
	var logs []*domain.TaskLog
	query := `SELECT ` + taskLogColumns + `
		FROM crawler_task_log
		WHERE config_id = $1 AND is_deleted = FALSE
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3`

	err := r.db.SelectContext(ctx, &logs, query, configID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list task logs: %w", err)
	}

	if logs == nil {
		logs = []*domain.TaskLog{}
	}

	return logs, nil
}

// List retrieves task logs matching the filter, newest first.
func (r *TaskLogRepository) List(ctx context.Context, filter domain.TaskLogFilter) ([]*domain.TaskLog, error) {
	query := `SELECT ` + taskLogColumns + ` FROM crawler_task_log WHERE is_deleted = FALSE`
	args := []any{}

	if filter.ConfigID > 0 {
		args = append(args, filter.ConfigID)
		query += fmt.Sprintf(" AND config_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY start_time DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var logs []*domain.TaskLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list task logs: %w", err)
	}

	if logs == nil {
		logs = []*domain.TaskLog{}
	}
	return logs, nil
}

// Update writes the mutable fields of a task log back to the database.
func (r *TaskLogRepository) Update(ctx context.Context, log *domain.TaskLog) error {
	query := `
		UPDATE crawler_task_log
		SET start_time = $1, end_time = $2, status = $3, error_message = $4,
		    batch_path = $5, article_count = $6, category_stats = $7,
		    analysis_status = $8, analysis_result = $9, updated_at = NOW()
		WHERE log_id = $10 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		log.StartTime,
		log.EndTime,
		log.Status,
		log.ErrorMessage,
		log.BatchPath,
		log.ArticleCount,
		log.CategoryStats,
		log.AnalysisStatus,
		log.AnalysisResult,
		log.LogID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task log: %w", err)
	}

	return execRequireRows(result, nil, domain.ErrTaskLogNotFound)
}

// CompareAndSwapAnalysisStatus atomically moves analysis_status from one
// state to another, guarded on the crawl having succeeded. It reports
// whether the swap won; a false return with nil error means another run
// changed the status first.
func (r *TaskLogRepository) CompareAndSwapAnalysisStatus(
	ctx context.Context,
	logID int64,
	from, to domain.AnalysisStatus,
) (bool, error) {
	query := `
		UPDATE crawler_task_log
		SET analysis_status = $1, updated_at = NOW()
		WHERE log_id = $2 AND analysis_status = $3
		  AND status = $4 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, to, logID, from, domain.CrawlSuccess)
	if err != nil {
		return false, fmt.Errorf("failed to swap analysis status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return n == 1, nil
}

// SoftDelete marks a task log as deleted without removing the row.
func (r *TaskLogRepository) SoftDelete(ctx context.Context, logID int64) error {
	query := `
		UPDATE crawler_task_log
		SET is_deleted = TRUE, updated_at = NOW()
		WHERE log_id = $1 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, logID)
	return execRequireRows(result, err, domain.ErrTaskLogNotFound)
}
