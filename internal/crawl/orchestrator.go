// Package crawl orchestrates crawl attempts: it resolves the config,
// tracks each attempt in a task log, and dispatches the crawl over the
// configured transport.
package crawl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/regradar/internal/batch"
	"github.com/jonesrussell/regradar/internal/domain"
	"github.com/jonesrussell/regradar/internal/logger"
	"github.com/jonesrussell/regradar/internal/metrics"
	"github.com/jonesrussell/regradar/internal/proxy"
	"github.com/jonesrussell/regradar/internal/queue"
)

// TriggerManual marks a crawl started by an operator or API call.
const TriggerManual = "manual"

// TriggerScheduled marks a crawl started by the cron scheduler.
const TriggerScheduled = "scheduled"

// ConfigStore is the subset of the config repository the orchestrator needs.
type ConfigStore interface {
	GetByID(ctx context.Context, id int64) (*domain.CrawlConfig, error)
	SetResultPath(ctx context.Context, id int64, resultPath string) error
}

// TaskLogStore is the subset of the task log repository the orchestrator needs.
type TaskLogStore interface {
	Create(ctx context.Context, log *domain.TaskLog) error
	GetByTaskID(ctx context.Context, taskID string) (*domain.TaskLog, error)
	Update(ctx context.Context, log *domain.TaskLog) error
}

// Crawler performs the actual crawl via the proxy service.
type Crawler interface {
	Crawl(ctx context.Context, req *proxy.CrawlRequest) (*proxy.CrawlResult, error)
}

// TaskPublisher dispatches crawl tasks to the legacy workers.
type TaskPublisher interface {
	Enqueue(ctx context.Context, task *queue.CrawlTaskMessage) (string, error)
}

// Orchestrator coordinates crawl attempts across both transports.
type Orchestrator struct {
	configs     ConfigStore
	taskLogs    TaskLogStore
	crawler     Crawler
	publisher   TaskPublisher
	logger      logger.Interface
	maxArticles int
	tracker     *metrics.Tracker

	// baseDir resolves relative batch paths reported by the proxy.
	baseDir string

	// logLocks serializes concurrent attempts on the same task log, so a
	// re-crawl cannot interleave with a finishing crawl.
	mu       sync.Mutex
	logLocks map[int64]*sync.Mutex
}

// NewOrchestrator creates a new crawl orchestrator.
func NewOrchestrator(
	configs ConfigStore,
	taskLogs TaskLogStore,
	crawler Crawler,
	publisher TaskPublisher,
	baseDir string,
	log logger.Interface,
	maxArticles int,
) *Orchestrator {
	return &Orchestrator{
		configs:     configs,
		taskLogs:    taskLogs,
		crawler:     crawler,
		publisher:   publisher,
		baseDir:     baseDir,
		logger:      log.WithComponent("crawl"),
		maxArticles: maxArticles,
		logLocks:    make(map[int64]*sync.Mutex),
	}
}

// Instrument attaches a pipeline tracker. Must be called before the
// first trigger.
func (o *Orchestrator) Instrument(tracker *metrics.Tracker) {
	o.tracker = tracker
}

// Trigger starts a crawl for the given config and returns once the task
// log exists; the crawl itself continues in the background. No task log
// is created when the config cannot be crawled at all.
func (o *Orchestrator) Trigger(ctx context.Context, configID int64, triggerType string) (*domain.TaskLog, error) {
	cfg, log, err := o.begin(ctx, configID)
	if err != nil {
		return nil, err
	}

	go func() {
		// Detached from the request context: the crawl outlives the
		// HTTP request that started it.
		o.runLocked(context.Background(), cfg, log, triggerType)
	}()

	return log, nil
}

// TriggerSync starts a crawl and waits for it to finish. Used by the
// scheduler, which wants one run at a time per config.
func (o *Orchestrator) TriggerSync(ctx context.Context, configID int64, triggerType string) (*domain.TaskLog, error) {
	cfg, log, err := o.begin(ctx, configID)
	if err != nil {
		return nil, err
	}

	o.runLocked(ctx, cfg, log, triggerType)
	return log, nil
}

// ReCrawl re-runs a finished crawl on its existing task log. The log's
// crawl status returns to processing and its analysis lifecycle resets to
// pending before the crawl is dispatched again.
func (o *Orchestrator) ReCrawl(ctx context.Context, taskID string) (*domain.TaskLog, error) {
	log, err := o.taskLogs.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	cfg, err := o.configs.GetByID(ctx, log.ConfigID)
	if err != nil {
		return nil, err
	}
	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, validateErr
	}
	// Legacy tasks belong to the external workers; their logs cannot be
	// re-run from here.
	if cfg.Transport == domain.TransportLegacy {
		return nil, domain.ErrUnsupportedTransport
	}

	lock := o.lockFor(log.LogID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a concurrent attempt may have moved the log.
	log, err = o.taskLogs.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if transitionErr := domain.ValidateCrawlTransition(log.Status, domain.CrawlProcessing); transitionErr != nil {
		return nil, transitionErr
	}
	if log.AnalysisStatus == domain.AnalysisAnalyzing {
		return nil, domain.ErrAlreadyAnalyzing
	}

	log.Status = domain.CrawlProcessing
	log.AnalysisStatus = domain.AnalysisPending
	log.StartTime = time.Now()
	log.EndTime = nil
	log.ErrorMessage = nil
	log.BatchPath = nil
	log.ArticleCount = nil
	log.CategoryStats = nil
	log.AnalysisResult = nil

	if updateErr := o.taskLogs.Update(ctx, log); updateErr != nil {
		return nil, updateErr
	}
	o.tracker.CrawlStarted()

	go func() {
		o.runLocked(context.Background(), cfg, log, TriggerManual)
	}()

	return log, nil
}

// begin resolves and validates the config, then opens a task log for a
// fresh crawl attempt.
func (o *Orchestrator) begin(ctx context.Context, configID int64) (*domain.CrawlConfig, *domain.TaskLog, error) {
	cfg, err := o.configs.GetByID(ctx, configID)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.IsActive {
		return nil, nil, domain.ErrConfigNotFound
	}
	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, nil, validateErr
	}

	log := &domain.TaskLog{
		TaskID:         NewTaskID(),
		ConfigID:       cfg.ID,
		TargetURL:      cfg.SourceURLList()[0],
		StartTime:      time.Now(),
		Status:         domain.CrawlProcessing,
		AnalysisStatus: domain.AnalysisPending,
	}

	if createErr := o.taskLogs.Create(ctx, log); createErr != nil {
		return nil, nil, createErr
	}

	o.tracker.CrawlStarted()
	return cfg, log, nil
}

// runLocked executes one crawl attempt under the per-log lock.
func (o *Orchestrator) runLocked(ctx context.Context, cfg *domain.CrawlConfig, log *domain.TaskLog, triggerType string) {
	lock := o.lockFor(log.LogID)
	lock.Lock()
	defer lock.Unlock()

	o.run(ctx, cfg, log, triggerType)
}

func (o *Orchestrator) run(ctx context.Context, cfg *domain.CrawlConfig, log *domain.TaskLog, triggerType string) {
	switch cfg.Transport {
	case domain.TransportLegacy:
		o.runLegacy(ctx, cfg, log, triggerType)
	default:
		o.runProxy(ctx, cfg, log)
	}
}

// runLegacy publishes the task for the legacy workers. The workers own
// the terminal status write; the log stays in processing here unless the
// publish itself fails.
func (o *Orchestrator) runLegacy(ctx context.Context, cfg *domain.CrawlConfig, log *domain.TaskLog, triggerType string) {
	msg := &queue.CrawlTaskMessage{
		TaskID:      log.TaskID,
		ConfigID:    cfg.ID,
		TargetURLs:  cfg.SourceURLList(),
		TriggerType: triggerType,
		Timestamp:   time.Now().Unix(),
	}

	messageID, err := o.publisher.Enqueue(ctx, msg)
	if err != nil {
		o.fail(ctx, log, fmt.Sprintf("failed to enqueue crawl task: %s", err))
		return
	}

	o.logger.Info("crawl task enqueued for legacy workers",
		"task_id", log.TaskID,
		"config_id", cfg.ID,
		"message_id", messageID)
}

// runProxy performs the crawl through the proxy service and writes the
// single terminal status for this attempt.
func (o *Orchestrator) runProxy(ctx context.Context, cfg *domain.CrawlConfig, log *domain.TaskLog) {
	maxArticles := cfg.MaxArticles
	if maxArticles <= 0 {
		maxArticles = o.maxArticles
	}

	req := &proxy.CrawlRequest{
		ListURL:     log.TargetURL,
		SourceName:  SourceName(log.TargetURL),
		MaxArticles: maxArticles,
		TaskID:      log.TaskID,
		UseSkill:    true,
	}

	result, err := o.crawler.Crawl(ctx, req)
	if err != nil {
		o.fail(ctx, log, err.Error())
		return
	}

	if len(result.PermissionDenials) > 0 {
		o.fail(ctx, log, "crawl denied for: "+strings.Join(result.PermissionDenials, ", "))
		return
	}

	o.succeed(ctx, cfg, log, result)
}

// succeed records a successful crawl. A result without a recognizable
// batch path or manifest still succeeds, just with zero counts.
func (o *Orchestrator) succeed(ctx context.Context, cfg *domain.CrawlConfig, log *domain.TaskLog, result *proxy.CrawlResult) {
	if err := domain.ValidateCrawlTransition(log.Status, domain.CrawlSuccess); err != nil {
		o.logger.Error("refusing crawl status write", "task_id", log.TaskID, "error", err)
		return
	}

	now := time.Now()
	log.Status = domain.CrawlSuccess
	log.EndTime = &now

	if result.BatchPath != "" {
		path := result.BatchPath
		log.BatchPath = &path

		// The proxy reports the path relative to its own working dir;
		// the manifest lives under our configured base.
		localPath := batch.ResolvePath(o.baseDir, path)
		if manifest, manifestErr := batch.ReadManifest(localPath); manifestErr == nil {
			count := manifest.ArticleCount
			log.ArticleCount = &count
			log.CategoryStats = categoryStats(manifest)
		} else {
			o.logger.Warn("crawl batch manifest unreadable, falling back to result text",
				"task_id", log.TaskID,
				"batch_path", path,
				"error", manifestErr)
			if count := result.FallbackArticleCount(); count > 0 {
				log.ArticleCount = &count
			}
		}
	}

	if err := o.taskLogs.Update(ctx, log); err != nil {
		o.logger.Error("failed to record crawl success", "task_id", log.TaskID, "error", err)
		return
	}
	o.tracker.CrawlFinished(true)

	if log.BatchPath != nil {
		if err := o.configs.SetResultPath(ctx, cfg.ID, *log.BatchPath); err != nil {
			o.logger.Warn("failed to mirror batch path to config",
				"config_id", cfg.ID,
				"error", err)
		}
	}

	o.logger.Info("crawl succeeded",
		"task_id", log.TaskID,
		"config_id", cfg.ID,
		"batch_path", result.BatchPath)
}

// fail records a failed crawl. The analysis lifecycle stays at pending so
// the row never claims analysis work for a batch that does not exist.
func (o *Orchestrator) fail(ctx context.Context, log *domain.TaskLog, message string) {
	if err := domain.ValidateCrawlTransition(log.Status, domain.CrawlFailure); err != nil {
		o.logger.Error("refusing crawl status write", "task_id", log.TaskID, "error", err)
		return
	}

	now := time.Now()
	log.Status = domain.CrawlFailure
	log.EndTime = &now
	log.ErrorMessage = &message

	if err := o.taskLogs.Update(ctx, log); err != nil {
		o.logger.Error("failed to record crawl failure", "task_id", log.TaskID, "error", err)
		return
	}
	o.tracker.CrawlFinished(false)

	o.logger.Warn("crawl failed", "task_id", log.TaskID, "error_message", message)
}

// lockFor returns the mutex guarding one task log.
func (o *Orchestrator) lockFor(logID int64) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.logLocks[logID]
	if !ok {
		lock = &sync.Mutex{}
		o.logLocks[logID] = lock
	}
	return lock
}

// NewTaskID generates a dashless UUID task identifier.
func NewTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// categoryStats flattens per-category article counts for the JSONB
// column. Counts are tallied from the manifest's article list, so they
// stay correct for manifests without a precomputed categories map.
func categoryStats(manifest *batch.Manifest) domain.JSONBMap {
	counts := manifest.CategoryCounts()
	if len(counts) == 0 {
		return nil
	}
	stats := make(domain.JSONBMap, len(counts))
	for category, count := range counts {
		stats[category] = count
	}
	return stats
}
