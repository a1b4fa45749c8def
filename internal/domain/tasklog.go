// Package domain provides domain models used across the application.
package domain

import (
	"fmt"
	"time"
)

// CrawlStatus represents the execution state of one crawl attempt.
type CrawlStatus string

const (
	CrawlProcessing CrawlStatus = "processing"
	CrawlSuccess    CrawlStatus = "success"
	CrawlFailure    CrawlStatus = "failure"
)

// AnalysisStatus represents the analysis lifecycle layered on a task log.
// It is an independent state machine sharing the row with CrawlStatus.
type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisAnalyzing AnalysisStatus = "analyzing"
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisFailed    AnalysisStatus = "failed"
)

// TaskLog is the persisted record of one crawl attempt and its analysis
// lifecycle. Exactly one terminal status write happens per crawl attempt;
// re-crawl reuses the row and resets both state machines.
type TaskLog struct {
	LogID          int64          `db:"log_id" json:"logId"`
	TaskID         string         `db:"task_id" json:"taskId"`
	ConfigID       int64          `db:"config_id" json:"configId"`
	TargetURL      string         `db:"target_url" json:"targetUrl"`
	StartTime      time.Time      `db:"start_time" json:"startTime"`
	EndTime        *time.Time     `db:"end_time" json:"endTime,omitempty"`
	Status         CrawlStatus    `db:"status" json:"status"`
	ErrorMessage   *string        `db:"error_message" json:"errorMessage,omitempty"`
	BatchPath      *string        `db:"batch_path" json:"batchPath,omitempty"`
	ArticleCount   *int           `db:"article_count" json:"articleCount,omitempty"`
	CategoryStats  JSONBMap       `db:"category_stats" json:"categoryStats,omitempty"`
	AnalysisStatus AnalysisStatus `db:"analysis_status" json:"analysisStatus"`
	AnalysisResult *string        `db:"analysis_result" json:"analysisResult,omitempty"`
	IsDeleted      bool           `db:"is_deleted" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// TaskLogFilter narrows task log listings. Zero values mean "any".
type TaskLogFilter struct {
	ConfigID int64
	Status   CrawlStatus
	Limit    int
	Offset   int
}

// ValidateCrawlTransition checks if a crawl status transition is valid.
func ValidateCrawlTransition(from, to CrawlStatus) error {
	validTransitions := map[CrawlStatus][]CrawlStatus{
		CrawlProcessing: {
			CrawlSuccess, // crawl finished
			CrawlFailure, // crawl failed or transport error
		},
		CrawlSuccess: {
			CrawlProcessing, // re-crawl in place
		},
		CrawlFailure: {
			CrawlProcessing, // re-crawl in place
		},
	}

	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown crawl status: %s", from)
	}
	for _, state := range allowed {
		if state == to {
			return nil
		}
	}
	return fmt.Errorf("invalid crawl status transition from %s to %s", from, to)
}

// ValidateAnalysisTransition checks if an analysis status transition is
// valid given the crawl status on the same row. The cross-invariant is that
// analyzing/completed/failed are only reachable while the crawl status is
// success; a failed crawl never advances analysis past pending.
func ValidateAnalysisTransition(crawl CrawlStatus, from, to AnalysisStatus) error {
	if to != AnalysisPending && crawl != CrawlSuccess {
		return fmt.Errorf("analysis status %s requires crawl status success, have %s", to, crawl)
	}

	validTransitions := map[AnalysisStatus][]AnalysisStatus{
		AnalysisPending: {
			AnalysisAnalyzing, // analysis run started
		},
		AnalysisAnalyzing: {
			AnalysisCompleted, // run finished
			AnalysisFailed,    // manifest unreadable or run aborted
			AnalysisPending,   // re-crawl reset
		},
		AnalysisCompleted: {
			AnalysisAnalyzing, // re-analysis of the same batch
			AnalysisPending,   // re-crawl reset
		},
		AnalysisFailed: {
			AnalysisAnalyzing, // retry
			AnalysisPending,   // re-crawl reset
		},
	}

	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown analysis status: %s", from)
	}
	for _, state := range allowed {
		if state == to {
			return nil
		}
	}
	return fmt.Errorf("invalid analysis status transition from %s to %s", from, to)
}

// IsTerminal reports whether a crawl status is terminal for one attempt.
func (s CrawlStatus) IsTerminal() bool {
	return s == CrawlSuccess || s == CrawlFailure
}

// CanAnalyze reports whether an analysis run may be started for this log.
func (t *TaskLog) CanAnalyze() bool {
	return t.Status == CrawlSuccess &&
		t.BatchPath != nil && *t.BatchPath != "" &&
		t.AnalysisStatus != AnalysisAnalyzing
}

// AnalysisSummary aggregates the outcome of one batch analysis run.
type AnalysisSummary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
