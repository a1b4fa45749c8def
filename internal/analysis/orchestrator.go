package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/jonesrussell/regradar/internal/batch"
	"github.com/jonesrussell/regradar/internal/domain"
	"github.com/jonesrussell/regradar/internal/logger"
	"github.com/jonesrussell/regradar/internal/metrics"
	"github.com/jonesrussell/regradar/internal/worker"
)

// TaskLogStore is the subset of the task log repository the orchestrator needs.
type TaskLogStore interface {
	GetByID(ctx context.Context, logID int64) (*domain.TaskLog, error)
	Update(ctx context.Context, log *domain.TaskLog) error
	CompareAndSwapAnalysisStatus(ctx context.Context, logID int64, from, to domain.AnalysisStatus) (bool, error)
}

// Orchestrator walks one crawl batch and feeds its articles of one
// category through a strategy, tracking the run on the task log's
// analysis state machine.
type Orchestrator struct {
	taskLogs TaskLogStore
	products ProductStore
	strategy Strategy
	pool     *worker.Pool
	logger   logger.Interface
	tracker  *metrics.Tracker

	// baseDir resolves relative batch paths reported by the proxy.
	baseDir string
}

// NewOrchestrator creates a batch analysis orchestrator for one strategy.
func NewOrchestrator(
	taskLogs TaskLogStore,
	products ProductStore,
	strategy Strategy,
	pool *worker.Pool,
	baseDir string,
	log logger.Interface,
) *Orchestrator {
	return &Orchestrator{
		taskLogs: taskLogs,
		products: products,
		strategy: strategy,
		pool:     pool,
		baseDir:  baseDir,
		logger:   log.WithComponent("analysis." + string(strategy.Category())),
	}
}

// Instrument attaches a pipeline tracker. Must be called before the
// first run.
func (o *Orchestrator) Instrument(tracker *metrics.Tracker) {
	o.tracker = tracker
}

// Run analyzes the batch behind one task log synchronously. The analysis
// status moves pending/completed/failed → analyzing via compare-and-swap,
// so two concurrent runs on the same log cannot both start.
func (o *Orchestrator) Run(ctx context.Context, logID, userID int64) (*domain.AnalysisSummary, error) {
	log, err := o.taskLogs.GetByID(ctx, logID)
	if err != nil {
		return nil, err
	}

	if log.Status != domain.CrawlSuccess || log.BatchPath == nil || *log.BatchPath == "" {
		return nil, domain.ErrCrawlNotSuccessful
	}
	if log.AnalysisStatus == domain.AnalysisAnalyzing {
		return nil, domain.ErrAlreadyAnalyzing
	}
	if transitionErr := domain.ValidateAnalysisTransition(log.Status, log.AnalysisStatus, domain.AnalysisAnalyzing); transitionErr != nil {
		return nil, transitionErr
	}

	won, err := o.taskLogs.CompareAndSwapAnalysisStatus(ctx, logID, log.AnalysisStatus, domain.AnalysisAnalyzing)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.ErrAlreadyAnalyzing
	}
	o.tracker.AnalysisStarted()

	summary, runErr := o.analyze(ctx, log, userID)
	if runErr != nil {
		o.finish(ctx, logID, domain.AnalysisFailed, nil)
		o.tracker.AnalysisFinished(false, 0, 0, 0)
		return nil, runErr
	}

	o.finish(ctx, logID, domain.AnalysisCompleted, summary)
	o.tracker.AnalysisFinished(true, summary.Success, summary.Skipped, summary.Failed)
	return summary, nil
}

// RunAsync submits the run to the category's worker pool. A full queue
// rejects the submission; it is never silently dropped.
func (o *Orchestrator) RunAsync(logID, userID int64) error {
	err := o.pool.Submit(func(ctx context.Context) {
		if _, runErr := o.Run(ctx, logID, userID); runErr != nil {
			o.logger.Error("batch analysis run failed",
				"log_id", logID,
				"error", runErr)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to queue analysis run: %w", err)
	}
	return nil
}

// analyze walks the batch sequentially in manifest order. Per-article
// failures are contained and counted; only an unreadable manifest fails
// the whole run.
func (o *Orchestrator) analyze(ctx context.Context, log *domain.TaskLog, userID int64) (*domain.AnalysisSummary, error) {
	batchPath := batch.ResolvePath(o.baseDir, *log.BatchPath)

	manifest, err := batch.ReadManifest(batchPath)
	if err != nil {
		return nil, err
	}

	// The manifest names the crawled site; older batches without one
	// fall back to the batch directory name.
	batchSource := manifest.Source
	if batchSource == "" {
		batchSource = filepath.Base(batchPath)
	}

	articles := batch.ListArticles(batchPath, manifest, string(o.strategy.Category()))

	productsJSON, err := productContext(ctx, o.products, userID)
	if err != nil {
		// Missing product context degrades the analysis, it does not
		// cancel it.
		o.logger.Warn("product context unavailable, analyzing without it",
			"user_id", userID, "error", err)
		productsJSON = emptyProductContext
	}

	summary := &domain.AnalysisSummary{Total: len(articles)}
	for _, article := range articles {
		content, readErr := batch.ReadArticle(article)
		if readErr != nil {
			summary.Failed++
			o.logger.Warn("article unreadable", "filename", article.Filename, "error", readErr)
			continue
		}

		// The manifest URL is authoritative; extraction from the article
		// text only covers entries the manifest left blank.
		var sourceURL *string
		if article.URL != "" {
			url := article.URL
			sourceURL = &url
		} else {
			sourceURL = batch.ExtractSourceURL(content)
		}

		outcome, processErr := o.strategy.Process(ctx, &ArticleContext{
			Filename:     article.Filename,
			Content:      content,
			SourceURL:    sourceURL,
			BatchSource:  batchSource,
			UserID:       userID,
			ProductsJSON: productsJSON,
		})
		switch {
		case processErr != nil:
			summary.Failed++
			o.logger.Warn("article processing failed", "filename", article.Filename, "error", processErr)
		case outcome == OutcomeSkipped:
			summary.Skipped++
		default:
			summary.Success++
		}
	}

	o.logger.Info("batch analysis finished",
		"log_id", log.LogID,
		"batch_source", batchSource,
		"total", summary.Total,
		"success", summary.Success,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	return summary, nil
}

// finish moves the analysis state machine out of analyzing and records
// the summary when there is one.
func (o *Orchestrator) finish(ctx context.Context, logID int64, status domain.AnalysisStatus, summary *domain.AnalysisSummary) {
	log, err := o.taskLogs.GetByID(ctx, logID)
	if err != nil {
		o.logger.Error("failed to reload task log", "log_id", logID, "error", err)
		return
	}

	if transitionErr := domain.ValidateAnalysisTransition(log.Status, log.AnalysisStatus, status); transitionErr != nil {
		o.logger.Error("refusing analysis status write", "log_id", logID, "error", transitionErr)
		return
	}

	log.AnalysisStatus = status
	if summary != nil {
		if data, marshalErr := json.Marshal(summary); marshalErr == nil {
			serialized := string(data)
			log.AnalysisResult = &serialized
		}
	}

	if updateErr := o.taskLogs.Update(ctx, log); updateErr != nil {
		o.logger.Error("failed to record analysis status", "log_id", logID, "error", updateErr)
	}
}
