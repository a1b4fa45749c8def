// Package httpd implements the long-running server process: the HTTP
// API, the analysis worker pools, and the cron scheduler.
package httpd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/regradar/cmd/common"
	"github.com/jonesrussell/regradar/internal/analysis"
	"github.com/jonesrussell/regradar/internal/api"
	"github.com/jonesrussell/regradar/internal/crawl"
	"github.com/jonesrussell/regradar/internal/database"
	"github.com/jonesrussell/regradar/internal/metrics"
	"github.com/jonesrussell/regradar/internal/proxy"
	"github.com/jonesrussell/regradar/internal/queue"
	"github.com/jonesrussell/regradar/internal/scheduler"
	"github.com/jonesrussell/regradar/internal/worker"
)

const (
	errorChannelBufferSize = 1
	defaultShutdownTimeout = 30 * time.Second
)

// Command returns the httpd command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Run the API server, analysis workers, and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Start(*cfgFile, *debug)
		},
	}
}

// Start wires the application together and runs until interrupted.
func Start(cfgFile string, debug bool) error {
	deps, err := common.Build(cfgFile, debug)
	if err != nil {
		return err
	}
	defer deps.Close()

	cfg, log := deps.Config, deps.Logger

	configRepo := database.NewConfigRepository(deps.DB)
	taskLogRepo := database.NewTaskLogRepository(deps.DB)
	policyRepo := database.NewPolicyRepository(deps.DB)
	competitorRepo := database.NewCompetitorRepository(deps.DB)
	productRepo := database.NewProductRepository(deps.DB)

	proxyClient := proxy.NewClient(
		proxy.WithBaseURL(cfg.Proxy.BaseURL),
		proxy.WithTimeout(cfg.Proxy.Timeout),
	)

	// The legacy transport is optional: without Redis, proxy-transport
	// configs still work and legacy ones fail with a clear message.
	var publisher crawl.TaskPublisher
	streams, streamsErr := queue.NewStreamsClient(queue.StreamsConfig{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Stream:   cfg.Redis.Stream,
	})
	if streamsErr != nil {
		log.Warn("redis unavailable, legacy crawl transport disabled", "error", streamsErr)
		publisher = queue.UnavailableProducer{}
	} else {
		defer streams.Close()
		publisher = queue.NewProducer(streams, queue.ProducerConfig{})
	}

	tracker := metrics.NewTracker()

	orchestrator := crawl.NewOrchestrator(
		configRepo, taskLogRepo, proxyClient, publisher,
		cfg.Crawl.ResultBasePath, log, cfg.Crawl.MaxArticles)
	orchestrator.Instrument(tracker)

	policyPool, err := worker.NewPool(worker.Config{
		Name:      "policy",
		Workers:   cfg.Analysis.Workers,
		QueueSize: cfg.Analysis.QueueSize,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create policy pool: %w", err)
	}
	competitorPool, err := worker.NewPool(worker.Config{
		Name:      "competitor",
		Workers:   cfg.Analysis.Workers,
		QueueSize: cfg.Analysis.QueueSize,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create competitor pool: %w", err)
	}

	if startErr := policyPool.Start(); startErr != nil {
		return startErr
	}
	if startErr := competitorPool.Start(); startErr != nil {
		return startErr
	}

	policyRuns := analysis.NewOrchestrator(
		taskLogRepo, productRepo,
		analysis.NewPolicyStrategy(proxyClient, policyRepo, log),
		policyPool, cfg.Crawl.ResultBasePath, log)
	competitorRuns := analysis.NewOrchestrator(
		taskLogRepo, productRepo,
		analysis.NewCompetitorStrategy(proxyClient, competitorRepo, log),
		competitorPool, cfg.Crawl.ResultBasePath, log)
	policyRuns.Instrument(tracker)
	competitorRuns.Instrument(tracker)

	var sched *scheduler.Scheduler
	var reloader api.SchedulerReloader
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(configRepo, orchestrator, log)
		if schedErr := sched.Start(context.Background()); schedErr != nil {
			return fmt.Errorf("failed to start scheduler: %w", schedErr)
		}
		reloader = sched
	}

	server := api.NewServer(cfg, log,
		api.NewConfigsHandler(configRepo, orchestrator, reloader, log),
		api.NewTasksHandler(taskLogRepo, orchestrator, policyRuns, competitorRuns, log),
		tracker)

	errCh := make(chan error, errorChannelBufferSize)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-errCh:
		if err != nil {
			return err
		}
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	if stopErr := policyPool.Stop(shutdownCtx); stopErr != nil {
		log.Warn("policy pool stop failed", "error", stopErr)
	}
	if stopErr := competitorPool.Stop(shutdownCtx); stopErr != nil {
		log.Warn("competitor pool stop failed", "error", stopErr)
	}
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		return fmt.Errorf("shutdown failed: %w", shutdownErr)
	}

	return nil
}
