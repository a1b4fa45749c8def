package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/regradar/internal/domain"
	"github.com/jonesrussell/regradar/internal/logger"
	"github.com/jonesrussell/regradar/internal/worker"
)

// UserIDHeader carries the acting user's ID on analysis requests.
const UserIDHeader = "X-User-ID"

// TaskLogStore defines the task log repository operations the handler needs.
type TaskLogStore interface {
	GetByTaskID(ctx context.Context, taskID string) (*domain.TaskLog, error)
	List(ctx context.Context, filter domain.TaskLogFilter) ([]*domain.TaskLog, error)
	ListByConfig(ctx context.Context, configID int64, limit, offset int) ([]*domain.TaskLog, error)
}

// ReCrawler re-runs a finished crawl on its existing task log.
type ReCrawler interface {
	ReCrawl(ctx context.Context, taskID string) (*domain.TaskLog, error)
}

// AnalysisRunner starts batch analysis runs for one category.
type AnalysisRunner interface {
	RunAsync(logID, userID int64) error
}

// TasksHandler handles task log and analysis HTTP requests.
type TasksHandler struct {
	taskLogs    TaskLogStore
	recrawler   ReCrawler
	policies    AnalysisRunner
	competitors AnalysisRunner
	logger      logger.Interface
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(
	taskLogs TaskLogStore,
	recrawler ReCrawler,
	policies AnalysisRunner,
	competitors AnalysisRunner,
	log logger.Interface,
) *TasksHandler {
	return &TasksHandler{
		taskLogs:    taskLogs,
		recrawler:   recrawler,
		policies:    policies,
		competitors: competitors,
		logger:      log.WithComponent("api.tasks"),
	}
}

// Get handles GET /api/v1/tasks/:taskId
func (h *TasksHandler) Get(c *gin.Context) {
	log, ok := h.loadTaskLog(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, log)
}

// List handles GET /api/v1/tasks
func (h *TasksHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	filter := domain.TaskLogFilter{
		Status: domain.CrawlStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.Query("configId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid configId filter"})
			return
		}
		filter.ConfigID = id
	}

	logs, err := h.taskLogs.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list task logs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":   logs,
		"limit":  limit,
		"offset": offset,
	})
}

// ListByConfig handles GET /api/v1/configs/:id/logs
func (h *TasksHandler) ListByConfig(c *gin.Context) {
	id, ok := configID(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	logs, err := h.taskLogs.ListByConfig(c.Request.Context(), id, limit, offset)
	if err != nil {
		h.logger.Error("failed to list task logs", "config_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":   logs,
		"limit":  limit,
		"offset": offset,
	})
}

// ReCrawl handles POST /api/v1/tasks/:taskId/recrawl
func (h *TasksHandler) ReCrawl(c *gin.Context) {
	taskID := c.Param("taskId")

	log, err := h.recrawler.ReCrawl(c.Request.Context(), taskID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTaskLogNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		case errors.Is(err, domain.ErrAlreadyAnalyzing):
			c.JSON(http.StatusConflict, gin.H{"error": "Analysis in progress, try again later"})
		case errors.Is(err, domain.ErrInvalidConfig):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Config has no usable source URLs"})
		case errors.Is(err, domain.ErrUnsupportedTransport):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Legacy transport tasks cannot be re-crawled"})
		default:
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"taskId": log.TaskID,
		"status": log.Status,
	})
}

// AnalyzePolicies handles POST /api/v1/tasks/:taskId/analyze-policies
func (h *TasksHandler) AnalyzePolicies(c *gin.Context) {
	h.analyze(c, h.policies)
}

// AnalyzeCompetitors handles POST /api/v1/tasks/:taskId/analyze-competitors
func (h *TasksHandler) AnalyzeCompetitors(c *gin.Context) {
	h.analyze(c, h.competitors)
}

// analyze validates the task and queues an analysis run. The analyzing
// check here is advisory; the orchestrator's compare-and-swap is what
// actually prevents double starts.
func (h *TasksHandler) analyze(c *gin.Context, runner AnalysisRunner) {
	log, ok := h.loadTaskLog(c)
	if !ok {
		return
	}

	userID, ok := userID(c)
	if !ok {
		return
	}

	if !log.CanAnalyze() {
		if log.AnalysisStatus == domain.AnalysisAnalyzing {
			c.JSON(http.StatusConflict, gin.H{"error": "Analysis already in progress"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task has no successful crawl batch to analyze"})
		return
	}

	if err := runner.RunAsync(log.LogID, userID); err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Analysis queue full, try again later"})
			return
		}
		h.logger.Error("failed to queue analysis", "task_id", log.TaskID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue analysis"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"taskId": log.TaskID,
		"status": domain.AnalysisAnalyzing,
	})
}

func (h *TasksHandler) loadTaskLog(c *gin.Context) (*domain.TaskLog, bool) {
	taskID := c.Param("taskId")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return nil, false
	}

	log, err := h.taskLogs.GetByTaskID(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskLogNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return nil, false
		}
		h.logger.Error("failed to get task log", "task_id", taskID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		return nil, false
	}

	return log, true
}

// userID reads the acting user from the X-User-ID header.
func userID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader(UserIDHeader)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid " + UserIDHeader + " header"})
		return 0, false
	}
	return id, true
}
