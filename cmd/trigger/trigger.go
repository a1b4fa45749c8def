// Package trigger implements the one-shot crawl trigger command.
package trigger

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/regradar/cmd/common"
	"github.com/jonesrussell/regradar/internal/crawl"
	"github.com/jonesrussell/regradar/internal/database"
	"github.com/jonesrussell/regradar/internal/proxy"
	"github.com/jonesrussell/regradar/internal/queue"
)

// Command returns the trigger command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <config-id>",
		Short: "Trigger a crawl for one config and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || configID <= 0 {
				return fmt.Errorf("invalid config id: %s", args[0])
			}
			return run(cmd, *cfgFile, *debug, configID)
		},
	}
}

func run(cmd *cobra.Command, cfgFile string, debug bool, configID int64) error {
	deps, err := common.Build(cfgFile, debug)
	if err != nil {
		return err
	}
	defer deps.Close()

	cfg := deps.Config

	proxyClient := proxy.NewClient(
		proxy.WithBaseURL(cfg.Proxy.BaseURL),
		proxy.WithTimeout(cfg.Proxy.Timeout),
	)

	streams, err := queue.NewStreamsClient(queue.StreamsConfig{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Stream:   cfg.Redis.Stream,
	})
	var publisher crawl.TaskPublisher = queue.UnavailableProducer{}
	if err != nil {
		deps.Logger.Warn("redis unavailable, legacy crawl transport disabled", "error", err)
	} else {
		defer streams.Close()
		publisher = queue.NewProducer(streams, queue.ProducerConfig{})
	}

	orchestrator := crawl.NewOrchestrator(
		database.NewConfigRepository(deps.DB),
		database.NewTaskLogRepository(deps.DB),
		proxyClient,
		publisher,
		cfg.Crawl.ResultBasePath,
		deps.Logger,
		cfg.Crawl.MaxArticles,
	)

	log, err := orchestrator.TriggerSync(cmd.Context(), configID, crawl.TriggerManual)
	if err != nil {
		return fmt.Errorf("crawl trigger failed: %w", err)
	}

	fmt.Printf("task %s finished with status %s\n", log.TaskID, log.Status)
	if log.ErrorMessage != nil {
		fmt.Printf("error: %s\n", *log.ErrorMessage)
	}
	if log.BatchPath != nil {
		fmt.Printf("batch: %s\n", *log.BatchPath)
	}
	return nil
}
