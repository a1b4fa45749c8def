// Package scheduler runs cron-scheduled crawls for configs that carry a
// trigger schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/regradar/internal/crawl"
	"github.com/jonesrussell/regradar/internal/domain"
	"github.com/jonesrussell/regradar/internal/logger"
)

// triggerTimeout bounds one scheduled crawl run.
const triggerTimeout = 30 * time.Minute

// ConfigStore lists the configs the scheduler should run.
type ConfigStore interface {
	ListScheduled(ctx context.Context) ([]*domain.CrawlConfig, error)
}

// Trigger starts a crawl and waits for it, one run at a time per config.
type Trigger interface {
	TriggerSync(ctx context.Context, configID int64, triggerType string) (*domain.TaskLog, error)
}

// Scheduler registers each scheduled config as a cron entry.
type Scheduler struct {
	configs ConfigStore
	trigger Trigger
	logger  logger.Interface

	cron *cron.Cron

	mu      sync.Mutex
	entries map[int64]cron.EntryID
	running map[int64]bool
}

// New creates a scheduler. Schedules use standard five-field cron
// expressions.
func New(configs ConfigStore, trigger Trigger, log logger.Interface) *Scheduler {
	return &Scheduler{
		configs: configs,
		trigger: trigger,
		logger:  log.WithComponent("scheduler"),
		cron:    cron.New(),
		entries: make(map[int64]cron.EntryID),
		running: make(map[int64]bool),
	}
}

// Start loads the scheduled configs, registers their cron entries, and
// starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "entries", len(s.entries))
	return nil
}

// Reload re-reads the scheduled configs and reconciles the cron entries.
// Called at startup and whenever configs change.
func (s *Scheduler) Reload(ctx context.Context) error {
	configs, err := s.configs.ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scheduled configs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]bool, len(configs))
	for _, cfg := range configs {
		seen[cfg.ID] = true
		if _, exists := s.entries[cfg.ID]; exists {
			continue
		}

		entryID, addErr := s.cron.AddFunc(*cfg.TriggerSchedule, s.runFunc(cfg.ID))
		if addErr != nil {
			s.logger.Warn("invalid trigger schedule, skipping config",
				"config_id", cfg.ID,
				"schedule", *cfg.TriggerSchedule,
				"error", addErr)
			continue
		}
		s.entries[cfg.ID] = entryID
		s.logger.Info("scheduled crawl registered",
			"config_id", cfg.ID,
			"schedule", *cfg.TriggerSchedule)
	}

	for configID, entryID := range s.entries {
		if !seen[configID] {
			s.cron.Remove(entryID)
			delete(s.entries, configID)
			s.logger.Info("scheduled crawl removed", "config_id", configID)
		}
	}

	return nil
}

// Stop halts the cron runner and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// runFunc builds the cron callback for one config. Overlapping runs of
// the same config are skipped, not queued.
func (s *Scheduler) runFunc(configID int64) func() {
	return func() {
		s.mu.Lock()
		if s.running[configID] {
			s.mu.Unlock()
			s.logger.Warn("previous scheduled crawl still running, skipping", "config_id", configID)
			return
		}
		s.running[configID] = true
		s.mu.Unlock()

		defer func() {
			s.mu.Lock()
			delete(s.running, configID)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
		defer cancel()

		log, err := s.trigger.TriggerSync(ctx, configID, crawl.TriggerScheduled)
		if err != nil {
			s.logger.Error("scheduled crawl failed to start", "config_id", configID, "error", err)
			return
		}

		s.logger.Info("scheduled crawl finished",
			"config_id", configID,
			"task_id", log.TaskID)
	}
}
