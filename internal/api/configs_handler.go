package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/regradar/internal/domain"
	"github.com/jonesrussell/regradar/internal/logger"
)

const (
	defaultLimit  = 50
	defaultOffset = 0
)

// ConfigStore defines the config repository operations the handler needs.
type ConfigStore interface {
	Create(ctx context.Context, cfg *domain.CrawlConfig) error
	GetByID(ctx context.Context, id int64) (*domain.CrawlConfig, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*domain.CrawlConfig, error)
	Update(ctx context.Context, cfg *domain.CrawlConfig) error
	SoftDelete(ctx context.Context, id int64) error
}

// CrawlTrigger starts crawls for a config.
type CrawlTrigger interface {
	Trigger(ctx context.Context, configID int64, triggerType string) (*domain.TaskLog, error)
}

// SchedulerReloader re-reads scheduled configs after config changes.
type SchedulerReloader interface {
	Reload(ctx context.Context) error
}

// ConfigsHandler handles crawl config HTTP requests.
type ConfigsHandler struct {
	configs   ConfigStore
	trigger   CrawlTrigger
	scheduler SchedulerReloader
	logger    logger.Interface
}

// NewConfigsHandler creates a new configs handler. The scheduler may be
// nil when the process runs without one.
func NewConfigsHandler(configs ConfigStore, trigger CrawlTrigger, scheduler SchedulerReloader, log logger.Interface) *ConfigsHandler {
	return &ConfigsHandler{
		configs:   configs,
		trigger:   trigger,
		scheduler: scheduler,
		logger:    log.WithComponent("api.configs"),
	}
}

// configRequest is the request body for creating or updating a config.
type configRequest struct {
	TargetName      string  `json:"targetName" binding:"required"`
	SourceURLs      string  `json:"sourceUrls" binding:"required"`
	CrawlDepth      int     `json:"crawlDepth"`
	MaxArticles     int     `json:"maxArticles"`
	Transport       string  `json:"transport"`
	TriggerSchedule *string `json:"triggerSchedule"`
	IsActive        *bool   `json:"isActive"`
}

// List handles GET /api/v1/configs
func (h *ConfigsHandler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	limit, offset := pagination(c)

	configs, err := h.configs.List(c.Request.Context(), activeOnly, limit, offset)
	if err != nil {
		h.logger.Error("failed to list configs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve configs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"configs": configs,
		"limit":   limit,
		"offset":  offset,
	})
}

// Create handles POST /api/v1/configs
func (h *ConfigsHandler) Create(c *gin.Context) {
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	cfg := &domain.CrawlConfig{
		TargetName:      req.TargetName,
		SourceURLs:      req.SourceURLs,
		CrawlDepth:      req.CrawlDepth,
		MaxArticles:     req.MaxArticles,
		Transport:       transportOrDefault(req.Transport),
		TriggerSchedule: req.TriggerSchedule,
		IsActive:        req.IsActive == nil || *req.IsActive,
	}

	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Config needs at least one source URL"})
		return
	}

	if err := h.configs.Create(c.Request.Context(), cfg); err != nil {
		h.logger.Error("failed to create config", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create config"})
		return
	}

	h.reloadScheduler(c)
	c.JSON(http.StatusCreated, cfg)
}

// Get handles GET /api/v1/configs/:id
func (h *ConfigsHandler) Get(c *gin.Context) {
	id, ok := configID(c)
	if !ok {
		return
	}

	cfg, err := h.configs.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrConfigNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Config not found"})
			return
		}
		h.logger.Error("failed to get config", "config_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve config"})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// Update handles PUT /api/v1/configs/:id
func (h *ConfigsHandler) Update(c *gin.Context) {
	id, ok := configID(c)
	if !ok {
		return
	}

	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	cfg, err := h.configs.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrConfigNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Config not found"})
			return
		}
		h.logger.Error("failed to load config for update", "config_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update config"})
		return
	}

	cfg.TargetName = req.TargetName
	cfg.SourceURLs = req.SourceURLs
	cfg.CrawlDepth = req.CrawlDepth
	cfg.MaxArticles = req.MaxArticles
	cfg.Transport = transportOrDefault(req.Transport)
	cfg.TriggerSchedule = req.TriggerSchedule
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Config needs at least one source URL"})
		return
	}

	if updateErr := h.configs.Update(c.Request.Context(), cfg); updateErr != nil {
		h.logger.Error("failed to update config", "config_id", id, "error", updateErr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update config"})
		return
	}

	h.reloadScheduler(c)
	c.JSON(http.StatusOK, cfg)
}

// statusRequest is the request body for toggling a config.
type statusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// UpdateStatus handles PUT /api/v1/configs/:id/status
func (h *ConfigsHandler) UpdateStatus(c *gin.Context) {
	id, ok := configID(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	cfg, err := h.configs.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrConfigNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Config not found"})
			return
		}
		h.logger.Error("failed to load config for status update", "config_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update config status"})
		return
	}

	cfg.IsActive = *req.IsActive
	if updateErr := h.configs.Update(c.Request.Context(), cfg); updateErr != nil {
		h.logger.Error("failed to update config status", "config_id", id, "error", updateErr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update config status"})
		return
	}

	h.reloadScheduler(c)
	c.JSON(http.StatusOK, cfg)
}

// Delete handles DELETE /api/v1/configs/:id
func (h *ConfigsHandler) Delete(c *gin.Context) {
	id, ok := configID(c)
	if !ok {
		return
	}

	if err := h.configs.SoftDelete(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrConfigNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Config not found"})
			return
		}
		h.logger.Error("failed to delete config", "config_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete config"})
		return
	}

	h.reloadScheduler(c)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// Trigger handles POST /api/v1/configs/:id/trigger
func (h *ConfigsHandler) Trigger(c *gin.Context) {
	id, ok := configID(c)
	if !ok {
		return
	}

	log, err := h.trigger.Trigger(c.Request.Context(), id, "manual")
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConfigNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Config not found"})
		case errors.Is(err, domain.ErrInvalidConfig):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Config has no usable source URLs"})
		default:
			h.logger.Error("failed to trigger crawl", "config_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to trigger crawl"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"taskId": log.TaskID,
		"logId":  log.LogID,
		"status": log.Status,
	})
}

func (h *ConfigsHandler) reloadScheduler(c *gin.Context) {
	if h.scheduler == nil {
		return
	}
	if err := h.scheduler.Reload(c.Request.Context()); err != nil {
		h.logger.Warn("failed to reload scheduler", "error", err)
	}
}

// configID parses the :id path parameter, writing the error response on
// failure.
func configID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid config ID"})
		return 0, false
	}
	return id, true
}

func transportOrDefault(transport string) domain.Transport {
	if transport == string(domain.TransportLegacy) {
		return domain.TransportLegacy
	}
	return domain.TransportProxy
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", strconv.Itoa(defaultOffset)))
	if err != nil || offset < 0 {
		offset = defaultOffset
	}
	return limit, offset
}
